package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keilerkonzept/matchdash/internal/config"
	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/dashboard"
	"github.com/keilerkonzept/matchdash/internal/heatmap"
	"github.com/keilerkonzept/matchdash/internal/record"
)

func TestComputePaneWidths(t *testing.T) {
	tests := []struct {
		total, split int
		left, right  int
	}{
		{0, 50, 1, 1},
		{100, 40, 40, 60},
		{100, 5, 18, 82},
		{100, 95, 82, 18},
		{20, 50, 10, 10},
	}
	for _, tt := range tests {
		left, right := computePaneWidths(tt.total, tt.split)
		assert.Equal(t, tt.left, left, "total=%d split=%d", tt.total, tt.split)
		assert.Equal(t, tt.right, right, "total=%d split=%d", tt.total, tt.split)
	}
}

func TestDurationRing(t *testing.T) {
	r := newDurationRing(3)
	assert.Equal(t, durationStats{}, r.snapshot())

	for _, ms := range []int{4, 1, 2, 8} {
		r.add(time.Duration(ms) * time.Millisecond)
	}
	s := r.snapshot()
	assert.Equal(t, 3, s.n)
	assert.Equal(t, 8*time.Millisecond, s.last)
	assert.Equal(t, 8*time.Millisecond, s.max)
	assert.Equal(t, 11*time.Millisecond/3, s.avg)
}

func TestLatencyMetricsObserve(t *testing.T) {
	m := newLatencyMetrics(16)
	m.Observe(dashboard.Event{Elapsed: time.Millisecond, Dispatched: 5, Filtered: 2})
	assert.Zero(t, m.snapshot().interactions, "disabled")

	m.setEnabled(true)
	m.Observe(dashboard.Event{Elapsed: time.Millisecond, Dispatched: 5, Filtered: 2})
	m.observeRank(time.Microsecond, true)
	m.observeRank(time.Microsecond, false)
	s := m.snapshot()
	assert.Equal(t, uint64(1), s.interactions)
	assert.Equal(t, uint64(5), s.dispatched)
	assert.Equal(t, int64(2), s.filtered)
	assert.Equal(t, uint64(1), s.fullRefreshes)
	assert.Equal(t, uint64(1), s.partRefreshes)
}

func TestRenderHeatMap(t *testing.T) {
	out := renderHeatMap([]heatmap.Cell{
		{Actual: heatmap.CondPositive, Predicted: heatmap.Positive, Count: 3},
		{Actual: heatmap.CondNegative, Predicted: heatmap.Positive, Count: 2},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"cond", "positive", "3", "0", "0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"cond", "negative", "2", "0", "0"}, strings.Fields(lines[2]))

	out = renderHeatMap([]heatmap.Cell{{Actual: heatmap.Default, Predicted: heatmap.Default, Count: 1}})
	assert.Len(t, strings.Split(out, "\n"), heatMapLines)
}

func TestPrintSummary(t *testing.T) {
	s, err := dashboard.New([]record.Record{
		{TestCase: "tc1", Matcher: "m", Confidence: 0.9, HasConfidence: true, Outcome: record.TruePositive},
		{TestCase: "tc1", Matcher: "m", Outcome: record.FalseNegative},
	}, dashboard.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "2 records")
	assert.Contains(t, out, "1.0000 0.5000 0.6667")
	assert.Contains(t, out, "tc1")
	assert.Contains(t, out, "tp=1 fp=0 fn=1")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))

	got := truncate("Übersetzungsmatcher", 4)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Übe…", got)
}

func TestToggleCompositeValuesWithColons(t *testing.T) {
	session, err := dashboard.New([]record.Record{
		{Track: "a:b", TestCase: "c", Matcher: "m", Outcome: record.TruePositive},
		{Track: "a", TestCase: "b:c", Matcher: "m", Outcome: record.FalsePositive},
	}, dashboard.Options{})
	require.NoError(t, err)

	cfg := config.Default()
	m := newModel(cfg, session, newLatencyMetrics(cfg.StatsWindow))
	m.facetIdx = slices.Index(m.facets, dashboard.FacetTrackTestCase)
	require.GreaterOrEqual(t, m.facetIdx, 0)
	m.refreshList()
	require.Len(t, m.list.Items(), 2)

	for i := range m.list.Items() {
		m.list.Select(i)
		m.toggleSelected()
	}
	assert.ElementsMatch(t,
		[]crossfilter.Key{crossfilter.Pair("a", "b:c"), crossfilter.Pair("a:b", "c")},
		session.Selected(dashboard.FacetTrackTestCase))
	assert.Equal(t, 2, session.Count().Filtered)
}

func keepDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestRunWritesSummaryAndClosesLog(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "cube.csv")
	require.NoError(t, os.WriteFile(in, []byte("TestCase,Matcher,Confidence (Matcher),Evaluation Result\n"+
		"tc,m1,0.9,true positive\n"+
		"tc,m1,,false negative\n"), 0o644))
	logPath := filepath.Join(dir, "matchdash.log")

	var out bytes.Buffer
	require.NoError(t, run([]string{"matchdash", "-log-file", logPath, in}, &out))
	assert.Contains(t, out.String(), "2 records")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "records loaded")
}

func TestRunReturnsLoadErrors(t *testing.T) {
	keepDefaultLogger(t)
	logPath := filepath.Join(t.TempDir(), "matchdash.log")
	var out bytes.Buffer
	err := run([]string{"matchdash", "-log-file", logPath, filepath.Join(t.TempDir(), "missing.csv")}, &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
	_, statErr := os.Stat(logPath)
	assert.NoError(t, statErr, "the log file was opened before loading")
}
