package main

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/keilerkonzept/matchdash/internal/dashboard"
)

type durationRing struct {
	buf   []time.Duration
	idx   int
	count int
}

func newDurationRing(n int) *durationRing {
	if n < 1 {
		n = 1
	}
	return &durationRing{buf: make([]time.Duration, n)}
}

func (r *durationRing) add(d time.Duration) {
	r.buf[r.idx] = d
	r.idx = (r.idx + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

type durationStats struct {
	last time.Duration
	max  time.Duration
	avg  time.Duration
	p95  time.Duration
	n    int
}

func (r *durationRing) snapshot() durationStats {
	if r.count == 0 {
		return durationStats{}
	}
	window := make([]time.Duration, r.count)
	copy(window, r.buf[:r.count])

	var sum time.Duration
	for _, d := range window {
		sum += d
	}
	last := r.buf[(r.idx-1+len(r.buf))%len(r.buf)]
	slices.Sort(window)
	return durationStats{
		last: last,
		max:  window[len(window)-1],
		avg:  sum / time.Duration(r.count),
		p95:  window[(len(window)*95-1)/100],
		n:    r.count,
	}
}

// latencyMetrics feeds the on-screen stats block. It observes session
// interactions, frame renders and facet re-ranks; all methods are called from
// the UI goroutine except the atomic counters, which may be read anywhere.
type latencyMetrics struct {
	enabled atomic.Bool

	interactions atomic.Uint64
	dispatched   atomic.Uint64
	filtered     atomic.Int64

	interaction   *durationRing
	render        *durationRing
	rank          *durationRing
	fullRefreshes atomic.Uint64
	partRefreshes atomic.Uint64
}

func newLatencyMetrics(window int) *latencyMetrics {
	return &latencyMetrics{
		interaction: newDurationRing(window),
		render:      newDurationRing(window),
		rank:        newDurationRing(window),
	}
}

func (m *latencyMetrics) setEnabled(v bool) { m.enabled.Store(v) }
func (m *latencyMetrics) isEnabled() bool   { return m.enabled.Load() }

// Observe implements dashboard.Observer.
func (m *latencyMetrics) Observe(ev dashboard.Event) {
	if !m.isEnabled() {
		return
	}
	m.interactions.Add(1)
	m.dispatched.Add(ev.Dispatched)
	m.filtered.Store(int64(ev.Filtered))
	m.interaction.add(ev.Elapsed)
}

func (m *latencyMetrics) observeRender(d time.Duration) {
	if !m.isEnabled() {
		return
	}
	m.render.add(d)
}

func (m *latencyMetrics) observeRank(d time.Duration, didFull bool) {
	if !m.isEnabled() {
		return
	}
	m.rank.add(d)
	if didFull {
		m.fullRefreshes.Add(1)
		return
	}
	m.partRefreshes.Add(1)
}

type snapshot struct {
	interactions  uint64
	dispatched    uint64
	filtered      int64
	fullRefreshes uint64
	partRefreshes uint64
	interaction   durationStats
	render        durationStats
	rank          durationStats
}

func (m *latencyMetrics) snapshot() snapshot {
	if !m.isEnabled() {
		return snapshot{}
	}
	return snapshot{
		interactions:  m.interactions.Load(),
		dispatched:    m.dispatched.Load(),
		filtered:      m.filtered.Load(),
		fullRefreshes: m.fullRefreshes.Load(),
		partRefreshes: m.partRefreshes.Load(),
		interaction:   m.interaction.snapshot(),
		render:        m.render.snapshot(),
		rank:          m.rank.snapshot(),
	}
}
