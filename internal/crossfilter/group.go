package crossfilter

import (
	"iter"

	"github.com/keilerkonzept/matchdash/internal/record"
)

type observer interface {
	add(ki int, r record.Record)
	remove(ki int, r record.Record)
}

type Entry[A any] struct {
	Key   Key
	Value A
}

// Source is anything that yields grouped entries in key order.
type Source[A any] interface {
	All() iter.Seq[Entry[A]]
}

// Group is an incrementally maintained aggregate keyed by a dimension's
// keys. Every key of the dimension is present, including keys whose records
// are currently filtered out.
type Group[A any] struct {
	dim     *Dimension
	reducer Reducer[A]
	values  []A // parallel to dim.keys
}

// NewGroup attaches a group to d and seeds it with the records currently
// visible to d.
func NewGroup[A any](d *Dimension, reducer Reducer[A]) *Group[A] {
	g := &Group[A]{
		dim:     d,
		reducer: reducer,
		values:  make([]A, len(d.keys)),
	}
	for i := range g.values {
		g.values[i] = reducer.Init()
	}
	x := d.index
	for id, r := range x.records {
		if x.fail[id]&^d.bit != 0 {
			continue
		}
		for _, ki := range d.recordKeys[id] {
			g.values[ki] = reducer.Add(g.values[ki], r)
		}
	}
	d.groups = append(d.groups, g)
	return g
}

func (g *Group[A]) add(ki int, r record.Record) {
	g.values[ki] = g.reducer.Add(g.values[ki], r)
}

func (g *Group[A]) remove(ki int, r record.Record) {
	g.values[ki] = g.reducer.Remove(g.values[ki], r)
}

func (g *Group[A]) Dimension() *Dimension { return g.dim }

func (g *Group[A]) Size() int { return len(g.values) }

func (g *Group[A]) Get(k Key) (A, bool) {
	ki, ok := g.dim.lookup(k)
	if !ok {
		var zero A
		return zero, false
	}
	return g.values[ki], true
}

// All yields every key with its accumulator in natural key order. The
// accumulators are live; callers must not modify them.
func (g *Group[A]) All() iter.Seq[Entry[A]] {
	return func(yield func(Entry[A]) bool) {
		for i, k := range g.dim.keys {
			if !yield(Entry[A]{Key: k, Value: g.values[i]}) {
				return
			}
		}
	}
}
