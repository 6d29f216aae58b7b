package listing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindUnset valueKind = iota
	kindText
	kindFlag
	kindRange
)

// Value is one filter value: text, flag or numeric range.
// The zero Value is unset.
type Value struct {
	kind valueKind
	text string
	flag bool
	min  *float64
	max  *float64
}

func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

func Flag(b bool) Value {
	return Value{kind: kindFlag, flag: b}
}

// Range builds a numeric range; a nil bound is unbounded on that side.
func Range(min, max *float64) Value {
	return Value{kind: kindRange, min: copyFloat(min), max: copyFloat(max)}
}

// IsUnset reports whether the value imposes no constraint:
// empty text, false flag, range with no bounds or the zero Value.
func (v Value) IsUnset() bool {
	switch v.kind {
	case kindText:
		return strings.TrimSpace(v.text) == ""
	case kindFlag:
		return !v.flag
	case kindRange:
		return v.min == nil && v.max == nil
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindFlag:
		return strconv.FormatBool(v.flag)
	case kindRange:
		lo, hi := "", ""
		if v.min != nil {
			lo = formatFloat(*v.min)
		}
		if v.max != nil {
			hi = formatFloat(*v.max)
		}
		return lo + "-" + hi
	default:
		return ""
	}
}

func (v Value) TextValue() string { return v.text }

func (v Value) FlagValue() bool { return v.flag }

func (v Value) Bounds() (min, max *float64) {
	return copyFloat(v.min), copyFloat(v.max)
}

type valueJSON struct {
	Text *string  `json:"text,omitempty"`
	Flag *bool    `json:"flag,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	// Range marks a range value even when both bounds are absent.
	Range bool `json:"range,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var out valueJSON
	switch v.kind {
	case kindText:
		out.Text = &v.text
	case kindFlag:
		out.Flag = &v.flag
	case kindRange:
		out.Range = true
		out.Min = v.min
		out.Max = v.max
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode filter value: %w", err)
	}
	switch {
	case in.Text != nil:
		*v = Text(*in.Text)
	case in.Flag != nil:
		*v = Flag(*in.Flag)
	case in.Range || in.Min != nil || in.Max != nil:
		*v = Range(in.Min, in.Max)
	default:
		*v = Value{}
	}
	return nil
}

// ParseRange parses "min-max", "min-" or "-max" as typed by a user.
func ParseRange(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, nil
	}

	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		n, err := parseNumber(s)
		if err != nil {
			return Value{}, err
		}
		return Range(&n, nil), nil
	}

	var min, max *float64
	if lo = strings.TrimSpace(lo); lo != "" {
		n, err := parseNumber(lo)
		if err != nil {
			return Value{}, err
		}
		min = &n
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		n, err := parseNumber(hi)
		if err != nil {
			return Value{}, err
		}
		max = &n
	}

	return Range(min, max), nil
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	n := *f
	return &n
}

// FilterState maps schema filter keys to values.
type FilterState map[string]Value

func (s FilterState) Clone() FilterState {
	out := make(FilterState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Active returns the keys whose value constrains the result.
func (s FilterState) Active() []string {
	var keys []string
	for k, v := range s {
		if !v.IsUnset() {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s FilterState) Equal(other FilterState) bool {
	for k, v := range s {
		if !sameValue(v, other[k]) {
			return false
		}
	}
	for k, v := range other {
		if _, ok := s[k]; !ok && !v.IsUnset() {
			return false
		}
	}
	return true
}

func sameValue(a, b Value) bool {
	if a.IsUnset() && b.IsUnset() {
		return true
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kindText:
		return a.text == b.text
	case kindFlag:
		return a.flag == b.flag
	case kindRange:
		return sameBound(a.min, b.min) && sameBound(a.max, b.max)
	}
	return true
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
