package dashboard

import (
	"math"
	"slices"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/heatmap"
	"github.com/keilerkonzept/matchdash/internal/metrics"
	"github.com/keilerkonzept/matchdash/internal/pager"
	"github.com/keilerkonzept/matchdash/internal/record"
)

// Facet returns every value of the facet in key order with the number of
// records passing the other panels' filters.
func (s *Session) Facet(f Facet) ([]FacetValue, error) {
	fs, err := s.facet(f)
	if err != nil {
		return nil, err
	}
	out := make([]FacetValue, 0, fs.count.Size())
	for e := range fs.count.All() {
		_, selected := slices.BinarySearchFunc(fs.selected, e.Key, crossfilter.Key.Compare)
		out = append(out, FacetValue{Key: e.Key, Count: e.Value, Selected: selected})
	}
	return out, nil
}

// HistogramBin is one stacked segment of the confidence bar chart.
type HistogramBin struct {
	Confidence float64
	Outcome    record.Outcome
	Count      int
}

// ConfidenceHistogram returns the non-empty confidence bins in ascending
// confidence order.
func (s *Session) ConfidenceHistogram() []HistogramBin {
	var out []HistogramBin
	for e := range s.confCount.All() {
		if e.Value == 0 {
			continue
		}
		v, _ := e.Key.Float()
		out = append(out, HistogramBin{Confidence: v, Outcome: record.Outcome(e.Key.Second), Count: e.Value})
	}
	return out
}

func (s *Session) HeatMap() []heatmap.Cell { return heatmap.Cells(s.heat) }

// ResultPerTestCase returns outcome counts per test case, skipping test cases
// with no visible records. The counters are live and must not be modified.
func (s *Session) ResultPerTestCase() []crossfilter.Entry[metrics.OutcomeCounter] {
	return slices.Collect(s.perTestCaseBins.All())
}

func (s *Session) ResultPerMatcher() []crossfilter.Entry[metrics.OutcomeCounter] {
	return slices.Collect(s.perMatcherBins.All())
}

// GroupMetrics returns the [micro, macro] scores of the current selection.
func (s *Session) GroupMetrics() []metrics.Scores {
	return metrics.ForGroup(s.selection.All())
}

// MatcherMetrics returns the micro scores of every matcher.
func (s *Session) MatcherMetrics() []metrics.Scores {
	return metrics.PerMatcher(s.metricTable.All())
}

// MetricTable returns the selection row followed by one row per matcher.
func (s *Session) MetricTable() []metrics.Row {
	return metrics.SelectedAndMatchers(s.selection.All(), s.metricTable.All(), s.beta)
}

// Box summarizes the confidences of one matcher.
type Box struct {
	Matcher string
	N       int

	Min, Q1, Median, Q3, Max float64
}

// ConfidenceBoxes returns a box per matcher that has at least one visible
// confidence.
func (s *Session) ConfidenceBoxes() []Box {
	var out []Box
	for e := range s.boxes.All() {
		vs := e.Value
		if len(vs) == 0 {
			continue
		}
		out = append(out, Box{
			Matcher: e.Key.First,
			N:       len(vs),
			Min:     vs[0],
			Q1:      quantile(vs, 0.25),
			Median:  quantile(vs, 0.5),
			Q3:      quantile(vs, 0.75),
			Max:     vs[len(vs)-1],
		})
	}
	return out
}

// quantile interpolates linearly between the closest ranks of sorted vs.
func quantile(vs []float64, p float64) float64 {
	h := float64(len(vs)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(vs) {
		return vs[len(vs)-1]
	}
	return vs[i] + (h-lo)*(vs[i+1]-vs[i])
}

type Count struct {
	Filtered, Total int
}

func (s *Session) Count() Count {
	return Count{Filtered: s.index.FilteredSize(), Total: s.index.Size()}
}

// Page is the visible slice of the data table, ordered by matcher.
type Page struct {
	pager.State
	Rows []record.Record
}

func (s *Session) Page() Page {
	begin, end := s.pager.Window()
	return Page{
		State: s.pager.State(),
		Rows:  s.table.Bottom(end-begin, begin),
	}
}
