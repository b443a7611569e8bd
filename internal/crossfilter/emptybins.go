package crossfilter

import "iter"

// EmptyBinFilter hides group entries whose counts are all zero. It does not
// rank, so Top and Bottom return the same sequence as All.
type EmptyBinFilter[F comparable] struct {
	source Source[Counter[F]]
}

func RemoveEmptyBins[F comparable](source Source[Counter[F]]) *EmptyBinFilter[F] {
	return &EmptyBinFilter[F]{source: source}
}

func (f *EmptyBinFilter[F]) All() iter.Seq[Entry[Counter[F]]] {
	return func(yield func(Entry[Counter[F]]) bool) {
		for e := range f.source.All() {
			if e.Value.Empty() {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (f *EmptyBinFilter[F]) Top(int) iter.Seq[Entry[Counter[F]]] { return f.All() }

func (f *EmptyBinFilter[F]) Bottom(int) iter.Seq[Entry[Counter[F]]] { return f.All() }
