package crossfilter

import (
	"slices"

	"github.com/keilerkonzept/matchdash/internal/record"
)

// Reducer defines an accumulator: Init creates an empty one, Add and Remove
// fold a record in and out. Remove must only be called for a record that
// was previously added; anything else leaves the accumulator undefined.
type Reducer[A any] struct {
	Init   func() A
	Add    func(acc A, r record.Record) A
	Remove func(acc A, r record.Record) A
}

func Count() Reducer[int] {
	return Reducer[int]{
		Init:   func() int { return 0 },
		Add:    func(n int, _ record.Record) int { return n + 1 },
		Remove: func(n int, _ record.Record) int { return n - 1 },
	}
}

// Counter counts records per field value. Entries that drop to zero stay in
// the map.
type Counter[F comparable] map[F]int

func (c Counter[F]) Get(f F) int { return c[f] }

// Empty reports whether every count is zero.
func (c Counter[F]) Empty() bool {
	for _, n := range c {
		if n != 0 {
			return false
		}
	}
	return true
}

func CountBy[F comparable](field func(record.Record) F) Reducer[Counter[F]] {
	return Reducer[Counter[F]]{
		Init: func() Counter[F] { return Counter[F]{} },
		Add: func(c Counter[F], r record.Record) Counter[F] {
			c[field(r)]++
			return c
		},
		Remove: func(c Counter[F], r record.Record) Counter[F] {
			c[field(r)]--
			return c
		},
	}
}

// Nested is a two-level count container, e.g. test case -> outcome -> n.
type Nested[F1, F2 comparable] map[F1]Counter[F2]

func (n Nested[F1, F2]) Get(one F1, two F2) int { return n[one][two] }

// CountByPair counts records per (one, two); the inner counter is created on
// first use.
func CountByPair[F1, F2 comparable](one func(record.Record) F1, two func(record.Record) F2) Reducer[Nested[F1, F2]] {
	return Reducer[Nested[F1, F2]]{
		Init: func() Nested[F1, F2] { return Nested[F1, F2]{} },
		Add: func(n Nested[F1, F2], r record.Record) Nested[F1, F2] {
			k := one(r)
			inner, ok := n[k]
			if !ok {
				inner = Counter[F2]{}
				n[k] = inner
			}
			inner[two(r)]++
			return n
		},
		Remove: func(n Nested[F1, F2], r record.Record) Nested[F1, F2] {
			n[one(r)][two(r)]--
			return n
		},
	}
}

// SortedBy keeps value(r) for every added record in ascending order. Records
// for which skip returns true are ignored by both Add and Remove.
func SortedBy(value func(record.Record) float64, skip func(record.Record) bool) Reducer[[]float64] {
	return Reducer[[]float64]{
		Init: func() []float64 { return nil },
		Add: func(vs []float64, r record.Record) []float64 {
			if skip != nil && skip(r) {
				return vs
			}
			v := value(r)
			i, _ := slices.BinarySearch(vs, v)
			return slices.Insert(vs, i, v)
		},
		Remove: func(vs []float64, r record.Record) []float64 {
			if skip != nil && skip(r) {
				return vs
			}
			i, found := slices.BinarySearch(vs, value(r))
			if !found {
				return vs
			}
			return slices.Delete(vs, i, i+1)
		},
	}
}

// SortedConfidence collects matcher confidences; false negatives have none
// and are skipped.
func SortedConfidence() Reducer[[]float64] {
	return SortedBy(
		func(r record.Record) float64 { return r.Confidence },
		func(r record.Record) bool { return r.Outcome == record.FalseNegative },
	)
}
