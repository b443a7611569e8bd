// Package crossfilter keeps grouped aggregates over a fixed record set
// consistent while per-dimension filters change.
//
// An Index owns the records. Each Dimension maps a record to one or more
// Keys and carries at most one active Filter. Groups hang off a dimension
// and see every record that passes the filters of all other dimensions; a
// dimension never filters its own groups. When a filter changes, only the
// records whose pass state flips are visited, and each of them is added to
// or removed from every affected group exactly once.
//
// The index is single-writer: callers must serialize filter changes and
// must not read groups while a change is being applied.
package crossfilter

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/keilerkonzept/matchdash/internal/record"
)

const maxDimensions = 64

var ErrTooManyDimensions = errors.New("too many dimensions")

type Index struct {
	records []record.Record
	dims    []*Dimension

	// fail has bit d set while record i is rejected by dimension d.
	fail     []uint64
	filtered int

	dispatched uint64
	logger     *slog.Logger
}

func New(records []record.Record) *Index {
	return &Index{
		records:  records,
		fail:     make([]uint64, len(records)),
		filtered: len(records),
		logger:   slog.Default().With("component", "crossfilter"),
	}
}

func (x *Index) Size() int { return len(x.records) }

// FilteredSize is the number of records passing every active filter.
func (x *Index) FilteredSize() int { return x.filtered }

// Dispatched counts reducer add/remove calls made by filter changes since the
// index was created.
func (x *Index) Dispatched() uint64 { return x.dispatched }

// Filtered yields the records passing every active filter in load order.
func (x *Index) Filtered() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for i, r := range x.records {
			if x.fail[i] == 0 && !yield(r) {
				return
			}
		}
	}
}

func (x *Index) ClearAll() {
	for _, d := range x.dims {
		d.FilterAll()
	}
}

// Dimension registers a single-valued dimension.
func (x *Index) Dimension(name string, key func(record.Record) Key) (*Dimension, error) {
	return x.MultiDimension(name, func(r record.Record) []Key { return []Key{key(r)} })
}

// MultiDimension registers a dimension where a record may carry several
// keys; it passes a filter when any of its keys does. A record without keys
// is filed under the zero Key.
func (x *Index) MultiDimension(name string, keys func(record.Record) []Key) (*Dimension, error) {
	if len(x.dims) >= maxDimensions {
		return nil, fmt.Errorf("%w: %s would be dimension %d of %d", ErrTooManyDimensions, name, len(x.dims)+1, maxDimensions)
	}
	d := &Dimension{
		index: x,
		id:    len(x.dims),
		name:  name,
	}
	d.bit = 1 << uint(d.id)

	perRecord := make([][]Key, len(x.records))
	seen := make(map[Key]struct{})
	for i, r := range x.records {
		ks := keys(r)
		if len(ks) == 0 {
			ks = []Key{{}}
		}
		ks = dedupeKeys(ks)
		perRecord[i] = ks
		for _, k := range ks {
			seen[k] = struct{}{}
		}
	}
	d.keys = make([]Key, 0, len(seen))
	for k := range seen {
		d.keys = append(d.keys, k)
	}
	slices.SortFunc(d.keys, Key.Compare)

	d.members = make([][]int, len(d.keys))
	d.recordKeys = make([][]int, len(x.records))
	d.hits = make([]int32, len(x.records))
	for i, ks := range perRecord {
		idx := make([]int, len(ks))
		for j, k := range ks {
			ki := d.keyIndex(k)
			idx[j] = ki
			d.members[ki] = append(d.members[ki], i)
		}
		d.recordKeys[i] = idx
		d.hits[i] = int32(len(idx))
	}
	d.pass = make([]bool, len(d.keys))
	for i := range d.pass {
		d.pass[i] = true
	}

	x.dims = append(x.dims, d)
	return d, nil
}

func dedupeKeys(ks []Key) []Key {
	if len(ks) < 2 {
		return ks
	}
	out := make([]Key, 0, len(ks))
	for _, k := range ks {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

type Dimension struct {
	index *Index
	id    int
	bit   uint64
	name  string

	keys       []Key   // sorted distinct keys
	members    [][]int // record ids per key, load order
	recordKeys [][]int // key indexes per record
	pass       []bool  // per key
	hits       []int32 // passing keys per record

	filter *Filter
	groups []observer
}

func (d *Dimension) Name() string { return d.name }

func (d *Dimension) Keys() []Key { return slices.Clone(d.keys) }

// Current returns the active filter, if any.
func (d *Dimension) Current() (Filter, bool) {
	if d.filter == nil {
		return Filter{}, false
	}
	return *d.filter, true
}

func (d *Dimension) Filter(f Filter) { d.apply(&f) }

func (d *Dimension) FilterExact(k Key) { d.Filter(Exact(k)) }

func (d *Dimension) FilterRange(lo, hi float64) { d.Filter(Range(lo, hi)) }

func (d *Dimension) FilterFunc(fn func(Key) bool) { d.Filter(Func(fn)) }

// FilterAll clears the dimension's filter.
func (d *Dimension) FilterAll() {
	if d.filter == nil {
		return
	}
	d.apply(nil)
}

// Bottom returns up to limit records passing every filter, in ascending key
// order, after skipping offset of them. Records of a multi-valued dimension
// are returned once per key.
func (d *Dimension) Bottom(limit, offset int) []record.Record {
	if limit <= 0 {
		return nil
	}
	x := d.index
	out := make([]record.Record, 0, min(limit, x.filtered))
	for _, ids := range d.members {
		for _, id := range ids {
			if x.fail[id] != 0 {
				continue
			}
			if offset > 0 {
				offset--
				continue
			}
			out = append(out, x.records[id])
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func (d *Dimension) keyIndex(k Key) int {
	i, _ := slices.BinarySearchFunc(d.keys, k, Key.Compare)
	return i
}

func (d *Dimension) lookup(k Key) (int, bool) {
	return slices.BinarySearchFunc(d.keys, k, Key.Compare)
}

func (d *Dimension) apply(f *Filter) {
	x := d.index
	d.filter = f

	var gained, lost []int
	for ki, k := range d.keys {
		now := f == nil || f.Match(k)
		if now == d.pass[ki] {
			continue
		}
		d.pass[ki] = now
		if now {
			gained = append(gained, ki)
		} else {
			lost = append(lost, ki)
		}
	}

	// Gains are counted before losses so a multi-valued record whose
	// passing key merely moves never leaves and re-enters.
	var entering, leaving []int
	for _, ki := range gained {
		for _, id := range d.members[ki] {
			d.hits[id]++
			if d.hits[id] == 1 {
				entering = append(entering, id)
			}
		}
	}
	for _, ki := range lost {
		for _, id := range d.members[ki] {
			d.hits[id]--
			if d.hits[id] == 0 {
				leaving = append(leaving, id)
			}
		}
	}

	for _, id := range entering {
		x.fail[id] &^= d.bit
		if x.fail[id] == 0 {
			x.filtered++
		}
	}
	for _, id := range leaving {
		if x.fail[id] == 0 {
			x.filtered--
		}
		x.fail[id] |= d.bit
	}

	for _, other := range x.dims {
		if other == d || len(other.groups) == 0 {
			continue
		}
		mask := other.bit | d.bit
		for _, id := range entering {
			if x.fail[id]&^mask != 0 {
				continue
			}
			for _, ki := range other.recordKeys[id] {
				for _, g := range other.groups {
					g.add(ki, x.records[id])
					x.dispatched++
				}
			}
		}
		for _, id := range leaving {
			if x.fail[id]&^mask != 0 {
				continue
			}
			for _, ki := range other.recordKeys[id] {
				for _, g := range other.groups {
					g.remove(ki, x.records[id])
					x.dispatched++
				}
			}
		}
	}

	x.logger.Debug("filter applied",
		"dimension", d.name,
		"active", f != nil,
		"entering", len(entering),
		"leaving", len(leaving),
		"filtered", x.filtered,
	)
}
