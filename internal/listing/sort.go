package listing

import (
	"cmp"
	"slices"
	"time"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

type SortState struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// Compare orders two field values: times by epoch milliseconds (nil or
// zero is epoch 0), strings lexicographically, numbers and bools
// relationally. Values of mismatched types compare equal.
func Compare(a, b any) int {
	if ta, ok := asMillis(a); ok {
		if tb, ok := asMillis(b); ok {
			return cmp.Compare(ta, tb)
		}
		return 0
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
		return 0
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
		return 0
	}

	if na, ok := asFloat(a); ok {
		if nb, ok := asFloat(b); ok {
			return cmp.Compare(na, nb)
		}
	}
	return 0
}

func asMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return 0, true
		}
		return t.UnixMilli(), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return 0, true
		}
		return t.UnixMilli(), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case *float64:
		if n == nil {
			return 0, true
		}
		return *n, true
	case *int:
		if n == nil {
			return 0, true
		}
		return float64(*n), true
	}
	return 0, false
}

// Comparator returns the record ordering for st, or nil when st has no
// key or the key is not part of the schema.
func Comparator[T any](schema *Schema[T], st SortState) func(a, b T) int {
	if st.Key == "" {
		return nil
	}
	k, ok := schema.Sort(st.Key)
	if !ok || k.Value == nil {
		return nil
	}
	return func(a, b T) int {
		c := Compare(k.Value(a), k.Value(b))
		if st.Direction == Desc {
			return -c
		}
		return c
	}
}

// SortRecords returns a sorted copy of records. An empty key keeps the
// input order.
func SortRecords[T any](schema *Schema[T], st SortState, records []T) []T {
	out := slices.Clone(records)
	if c := Comparator(schema, st); c != nil {
		slices.SortFunc(out, c)
	}
	return out
}
