// Package confidence builds the confidence histogram keys and translates a
// brush selection over that histogram into a dimension filter.
package confidence

import (
	"strconv"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

// BinKey files r under its confidence rounded to two decimals and its
// outcome. Records without a confidence land in the 0.00 bin.
func BinKey(r record.Record) crossfilter.Key {
	return crossfilter.Pair(strconv.FormatFloat(r.Confidence, 'f', 2, 64), string(r.Outcome))
}

type specKind uint8

const (
	kindValue specKind = iota
	kindBetween
	kindMatching
)

// Spec is one entry of a histogram selection: an exact bin, a brushed
// [Min, Max] range, or a custom predicate.
type Spec struct {
	kind     specKind
	value    crossfilter.Key
	Min, Max float64
	match    func(crossfilter.Key) bool
}

func Value(k crossfilter.Key) Spec { return Spec{kind: kindValue, value: k} }

func Between(lo, hi float64) Spec { return Spec{kind: kindBetween, Min: lo, Max: hi} }

func Matching(fn func(crossfilter.Key) bool) Spec { return Spec{kind: kindMatching, match: fn} }

func (s Spec) IsRange() bool { return s.kind == kindBetween }

// isFiltered is the entry's own test, used when several entries are OR-ed.
// A brushed range here is half-open like a plain range filter.
func (s Spec) isFiltered(k crossfilter.Key) bool {
	switch s.kind {
	case kindBetween:
		v, ok := k.Float()
		return ok && s.Min <= v && v < s.Max
	case kindMatching:
		return s.match != nil && s.match(k)
	default:
		return k == s.value
	}
}

// Apply installs the filter described by specs on dim and returns specs
// unchanged so the caller can keep them as its selection state.
//
//   - no entries clears the filter
//   - a single exact value filters on that bin
//   - a single brushed range keeps false negatives, which have no
//     confidence, and otherwise requires Min < confidence < Max
//   - anything else keeps a key when any entry accepts it
func Apply(dim *crossfilter.Dimension, specs []Spec) []Spec {
	switch {
	case len(specs) == 0:
		dim.FilterAll()
	case len(specs) == 1 && specs[0].kind == kindValue:
		dim.FilterExact(specs[0].value)
	case len(specs) == 1 && specs[0].kind == kindBetween:
		lo, hi := specs[0].Min, specs[0].Max
		dim.FilterFunc(func(k crossfilter.Key) bool {
			if record.Outcome(k.Second) == record.FalseNegative {
				return true
			}
			v, _ := k.Float()
			return lo < v && v < hi
		})
	default:
		entries := append([]Spec(nil), specs...)
		dim.FilterFunc(func(k crossfilter.Key) bool {
			for _, s := range entries {
				if s.isFiltered(k) {
					return true
				}
			}
			return false
		})
	}
	return specs
}
