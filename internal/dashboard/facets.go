package dashboard

import (
	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

// Facet names a categorical panel that supports multi-select filtering.
type Facet string

const (
	FacetTrack         Facet = "track"
	FacetTrackTestCase Facet = "track/test case"
	FacetTestCase      Facet = "test case"
	FacetMatcher       Facet = "matcher"
	FacetRelation      Facet = "relation"
	FacetOutcome       Facet = "evaluation result"
	FacetTypeLeft      Facet = "type left"
	FacetTypeRight     Facet = "type right"
	FacetResidual      Facet = "residual true positive"
)

var facetOrder = []Facet{
	FacetTrack,
	FacetTrackTestCase,
	FacetTestCase,
	FacetMatcher,
	FacetRelation,
	FacetOutcome,
	FacetTypeLeft,
	FacetTypeRight,
	FacetResidual,
}

func one(fn func(record.Record) string) func(record.Record) []crossfilter.Key {
	return func(r record.Record) []crossfilter.Key { return []crossfilter.Key{crossfilter.K(fn(r))} }
}

func each(fn func(record.Record) []string) func(record.Record) []crossfilter.Key {
	return func(r record.Record) []crossfilter.Key {
		vs := fn(r)
		ks := make([]crossfilter.Key, len(vs))
		for i, v := range vs {
			ks[i] = crossfilter.K(v)
		}
		return ks
	}
}

var facetKeys = map[Facet]func(record.Record) []crossfilter.Key{
	FacetTrack: one(func(r record.Record) string { return r.Track }),
	FacetTrackTestCase: func(r record.Record) []crossfilter.Key {
		return []crossfilter.Key{crossfilter.Pair(r.Track, r.TestCase)}
	},
	FacetTestCase: one(func(r record.Record) string { return r.TestCase }),
	FacetMatcher:  one(func(r record.Record) string { return r.Matcher }),
	FacetRelation: one(func(r record.Record) string { return r.Relation }),
	FacetOutcome:  one(func(r record.Record) string { return string(r.Outcome) }),
	FacetTypeLeft:  each(func(r record.Record) []string { return r.TypeLeft }),
	FacetTypeRight: each(func(r record.Record) []string { return r.TypeRight }),
	FacetResidual:  one(func(r record.Record) string { return r.Residual }),
}

// Facets lists the facets in display order.
func Facets() []Facet { return append([]Facet(nil), facetOrder...) }

// FacetValue is one bar of a facet panel.
type FacetValue struct {
	Key      crossfilter.Key
	Count    int
	Selected bool
}
