package crossfilter

type filterKind uint8

const (
	kindExact filterKind = iota
	kindRange
	kindFunc
	kindAny
)

// Filter is a dimension filter. The zero value matches only the zero Key;
// build filters with Exact, Range, Func or AnyOf.
type Filter struct {
	kind   filterKind
	key    Key
	lo, hi float64
	fn     func(Key) bool
	any    []Filter
}

func Exact(k Key) Filter { return Filter{kind: kindExact, key: k} }

// Range matches keys whose numeric first component v satisfies lo <= v < hi.
// Keys that do not parse as numbers never match.
func Range(lo, hi float64) Filter { return Filter{kind: kindRange, lo: lo, hi: hi} }

func Func(fn func(Key) bool) Filter { return Filter{kind: kindFunc, fn: fn} }

// AnyOf matches when at least one of fs matches. An empty AnyOf matches
// nothing.
func AnyOf(fs ...Filter) Filter { return Filter{kind: kindAny, any: fs} }

func (f Filter) Match(k Key) bool {
	switch f.kind {
	case kindExact:
		return k == f.key
	case kindRange:
		v, ok := k.Float()
		return ok && f.lo <= v && v < f.hi
	case kindFunc:
		return f.fn != nil && f.fn(k)
	case kindAny:
		for _, sub := range f.any {
			if sub.Match(k) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
