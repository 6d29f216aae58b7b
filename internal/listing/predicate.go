package listing

import "strings"

// Predicate reports whether a record satisfies all active filters.
type Predicate[T any] func(T) bool

// BuildPredicate ANDs one matcher per set filter key. Unset values and
// keys unknown to the schema are skipped, so an all-unset state accepts
// every record.
func BuildPredicate[T any](schema *Schema[T], state FilterState) Predicate[T] {
	var matchers []Predicate[T]

	for _, f := range schema.Fields {
		v, ok := state[f.Key]
		if !ok || v.IsUnset() {
			continue
		}
		if m := matcher(f, v); m != nil {
			matchers = append(matchers, m)
		}
	}

	return func(rec T) bool {
		for _, m := range matchers {
			if !m(rec) {
				return false
			}
		}
		return true
	}
}

func matcher[T any](f Field[T], v Value) Predicate[T] {
	switch f.Kind {
	case KindText:
		if len(f.Strings) == 0 || v.kind != kindText {
			return nil
		}
		needle := strings.ToLower(strings.TrimSpace(v.text))
		return func(rec T) bool {
			for _, get := range f.Strings {
				if strings.Contains(strings.ToLower(get(rec)), needle) {
					return true
				}
			}
			return false
		}

	case KindExact:
		if f.Exact == nil || v.kind != kindText {
			return nil
		}
		want := strings.TrimSpace(v.text)
		return func(rec T) bool {
			return strings.EqualFold(f.Exact(rec), want)
		}

	case KindBool:
		if f.Bool == nil || v.kind != kindFlag {
			return nil
		}
		// a false filter never reaches here: IsUnset drops it
		return func(rec T) bool {
			return f.Bool(rec)
		}

	case KindRange:
		if f.Number == nil || v.kind != kindRange {
			return nil
		}
		lo, hi := v.min, v.max
		return func(rec T) bool {
			n, ok := f.Number(rec)
			if !ok {
				return false
			}
			if lo != nil && n < *lo {
				return false
			}
			if hi != nil && n > *hi {
				return false
			}
			return true
		}
	}
	return nil
}

// Filter returns the records accepted by p, in input order.
func Filter[T any](records []T, p Predicate[T]) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if p(rec) {
			out = append(out, rec)
		}
	}
	return out
}
