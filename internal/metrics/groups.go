package metrics

import (
	"iter"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

type (
	OutcomeCounter = crossfilter.Counter[record.Outcome]
	CaseOutcomes   = crossfilter.Nested[string, record.Outcome]
)

// SelectedRow names the row summarizing the whole current selection.
const SelectedRow = "Selected"

func collect(entries iter.Seq[crossfilter.Entry[OutcomeCounter]]) []Counts {
	var cases []Counts
	for e := range entries {
		cases = append(cases, CountsOf(e.Value))
	}
	return cases
}

func casesOf(n CaseOutcomes) []Counts {
	cases := make([]Counts, 0, len(n))
	for _, c := range n {
		cases = append(cases, CountsOf(c))
	}
	return cases
}

// ForGroup computes the selection-wide scores from a test case -> outcome
// group and returns them as [micro, macro].
func ForGroup(entries iter.Seq[crossfilter.Entry[OutcomeCounter]]) []Scores {
	s := Compute(collect(entries), DefaultBeta)
	return []Scores{s.Micro, s.Macro}
}

// PerMatcher returns the micro scores of each matcher, named after it. Macro
// scores are not part of this view.
func PerMatcher(entries iter.Seq[crossfilter.Entry[CaseOutcomes]]) []Scores {
	var out []Scores
	for e := range entries {
		micro := Compute(casesOf(e.Value), DefaultBeta).Micro
		micro.Name = e.Key.First
		out = append(out, micro)
	}
	return out
}

// Row is one line of the metric table.
type Row struct {
	Name  string
	Micro Scores
	Macro Scores
}

// SelectedAndMatchers builds the metric table: the whole selection first,
// then one row per matcher with both micro and macro scores.
func SelectedAndMatchers(selected iter.Seq[crossfilter.Entry[OutcomeCounter]], perMatcher iter.Seq[crossfilter.Entry[CaseOutcomes]], beta float64) []Row {
	s := Compute(collect(selected), beta)
	rows := []Row{{Name: SelectedRow, Micro: s.Micro, Macro: s.Macro}}
	for e := range perMatcher {
		m := Compute(casesOf(e.Value), beta)
		rows = append(rows, Row{Name: e.Key.First, Micro: m.Micro, Macro: m.Macro})
	}
	return rows
}
