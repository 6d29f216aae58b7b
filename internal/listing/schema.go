package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

var (
	ErrUnknownFilter = errors.New("unknown filter key")
	ErrUnknownSort   = errors.New("unknown sort key")
	ErrFilterKind    = errors.New("filter value does not match field kind")
)

// FieldKind selects the matching rule of a filter field.
type FieldKind uint8

const (
	// KindText is a case-insensitive substring match against one or more string fields.
	KindText FieldKind = iota + 1
	// KindExact is equality against an enum-like string field.
	KindExact
	// KindBool requires the record flag to be true when the filter is true.
	KindBool
	// KindRange requires the record number to fall within [min, max].
	KindRange
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindExact:
		return "exact"
	case KindBool:
		return "bool"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Field describes one filter key of a page. Only the accessor matching
// Kind is consulted.
type Field[T any] struct {
	Key   string
	Label string
	Kind  FieldKind

	Strings []func(T) string
	Exact   func(T) string
	Bool    func(T) bool
	// Number returns false when the record has no value.
	Number func(T) (float64, bool)

	// Param is the backend query parameter; empty means the filter is
	// applied client-side only. Range fields send Param+"_min"/"_max".
	Param string
	// Options lists the accepted values of an exact field, for pickers.
	Options []string
}

// Remote reports whether changing the field needs a new fetch.
func (f Field[T]) Remote() bool {
	return f.Param != ""
}

// SortKey describes one sortable field.
type SortKey[T any] struct {
	Key   string
	Label string
	Value func(T) any
	// Param is the backend ordering value; empty sorts client-side only.
	Param string
}

// Schema is the fixed filter/sort layout of one listing page.
type Schema[T any] struct {
	Name        string
	Fields      []Field[T]
	Sorts       []SortKey[T]
	Defaults    FilterState
	DefaultSort SortState
	PageSize    int
}

func (s *Schema[T]) Field(key string) (Field[T], bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field[T]{}, false
}

func (s *Schema[T]) Sort(key string) (SortKey[T], bool) {
	for _, k := range s.Sorts {
		if k.Key == key {
			return k, true
		}
	}
	return SortKey[T]{}, false
}

// DefaultFilters returns a fresh copy of the page's default filter state.
func (s *Schema[T]) DefaultFilters() FilterState {
	if s.Defaults == nil {
		return FilterState{}
	}
	return s.Defaults.Clone()
}

// CheckValue validates a key/value pair against the schema.
// Unset values are always accepted.
func (s *Schema[T]) CheckValue(key string, v Value) error {
	f, ok := s.Field(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
	}
	if v.IsUnset() {
		return nil
	}
	var want valueKind
	switch f.Kind {
	case KindText, KindExact:
		want = kindText
	case KindBool:
		want = kindFlag
	case KindRange:
		want = kindRange
	}
	if v.kind != want {
		return fmt.Errorf("%w: %s is %s", ErrFilterKind, key, f.Kind)
	}
	return nil
}

// CheckState validates every key of a filter state.
func (s *Schema[T]) CheckState(state FilterState) error {
	for k, v := range state {
		if err := s.CheckValue(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema[T]) CheckSort(st SortState) error {
	if st.Key == "" {
		return nil
	}
	if _, ok := s.Sort(st.Key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSort, st.Key)
	}
	if st.Direction != Asc && st.Direction != Desc {
		return fmt.Errorf("%w: direction %q", ErrUnknownSort, st.Direction)
	}
	return nil
}

// Local keeps only the client-side filter values of state.
func (s *Schema[T]) Local(state FilterState) FilterState {
	out := FilterState{}
	for k, v := range state {
		if f, ok := s.Field(k); ok && !f.Remote() {
			out[k] = v
		}
	}
	return out
}

// Params encodes the remote filters, ordering and page into query params.
func (s *Schema[T]) Params(q Query) url.Values {
	params := url.Values{}

	for _, f := range s.Fields {
		if !f.Remote() {
			continue
		}
		v, ok := q.Filters[f.Key]
		if !ok || v.IsUnset() {
			continue
		}
		switch f.Kind {
		case KindText, KindExact:
			params.Set(f.Param, v.text)
		case KindBool:
			params.Set(f.Param, "true")
		case KindRange:
			if v.min != nil {
				params.Set(f.Param+"_min", formatFloat(*v.min))
			}
			if v.max != nil {
				params.Set(f.Param+"_max", formatFloat(*v.max))
			}
		}
	}

	if k, ok := s.Sort(q.Sort.Key); ok && k.Param != "" {
		ordering := k.Param
		if q.Sort.Direction == Desc {
			ordering = "-" + ordering
		}
		params.Set("ordering", ordering)
	}

	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}

	return params
}
