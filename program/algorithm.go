package main

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/keilerkonzept/topk/heap"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/dashboard"
)

// FacetRanker orders the values of the focused facet by visible count.
//
// A full re-rank runs when the facet changes or fullRefresh has elapsed.
// In between, only the counts of the leading partialSize values are
// refreshed and re-sorted, so the list does not reshuffle under the cursor
// while the user toggles values in quick succession.
type FacetRanker struct {
	k           int
	fullRefresh time.Duration
	partialSize int

	facet           dashboard.Facet
	lastFullRefresh time.Time
	items           []heap.Item
}

func NewFacetRanker(k int, fullRefresh time.Duration, partialSize int) *FacetRanker {
	return &FacetRanker{
		k:           max(1, k),
		fullRefresh: max(0, fullRefresh),
		partialSize: max(0, partialSize),
	}
}

func byCountDesc(a, b heap.Item) int {
	if a.Count != b.Count {
		if a.Count > b.Count {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Item, b.Item)
}

// itemID names a facet value inside the ranker. Unlike Key.String it keeps
// Pair("a:b", "c") and Pair("a", "b:c") apart.
func itemID(k crossfilter.Key) string {
	return strconv.Quote(k.First) + " " + strconv.Quote(k.Second)
}

func itemsOf(values []dashboard.FacetValue) []heap.Item {
	items := make([]heap.Item, len(values))
	for i, v := range values {
		items[i] = heap.Item{Item: itemID(v.Key), Count: uint32(max(0, v.Count))}
	}
	return items
}

// Refresh returns the ranked values of facet, at most k of them.
func (r *FacetRanker) Refresh(now time.Time, facet dashboard.Facet, visibleItems int, values []dashboard.FacetValue) (items []heap.Item, didFull bool) {
	if now.IsZero() {
		now = time.Now()
	}

	needFull := facet != r.facet || len(r.items) == 0 || r.lastFullRefresh.IsZero() ||
		r.fullRefresh == 0 || now.Sub(r.lastFullRefresh) >= r.fullRefresh
	if needFull {
		r.items = itemsOf(values)
		slices.SortStableFunc(r.items, byCountDesc)
		if len(r.items) > r.k {
			r.items = r.items[:r.k]
		}
		r.facet = facet
		r.lastFullRefresh = now
		return slices.Clone(r.items), true
	}

	limit := len(r.items)
	if visibleItems > 0 && visibleItems < limit {
		limit = visibleItems
	}
	if r.partialSize > 0 && r.partialSize < limit {
		limit = r.partialSize
	}

	counts := make(map[string]uint32, len(values))
	for _, it := range itemsOf(values) {
		counts[it.Item] = it.Count
	}
	for i := range r.items[:limit] {
		r.items[i].Count = counts[r.items[i].Item]
	}
	slices.SortStableFunc(r.items[:limit], byCountDesc)

	return slices.Clone(r.items), false
}

// Invalidate forces the next Refresh to re-rank fully.
func (r *FacetRanker) Invalidate() { r.lastFullRefresh = time.Time{} }
