package metrics

import (
	"iter"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

func seq[A any](entries ...crossfilter.Entry[A]) iter.Seq[crossfilter.Entry[A]] {
	return func(yield func(crossfilter.Entry[A]) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

func outcomes(tp, fp, fn int) OutcomeCounter {
	return OutcomeCounter{
		record.TruePositive:  tp,
		record.FalsePositive: fp,
		record.FalseNegative: fn,
	}
}

func TestSafeDiv(t *testing.T) {
	tests := []struct {
		name string
		n, d float64
		want float64
	}{
		{"normal", 3, 4, 0.75},
		{"zero denominator", 5, 0, 0},
		{"NaN denominator", 1, math.NaN(), 0},
		{"zero numerator", 0, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeDiv(tt.n, tt.d))
		})
	}
}

func TestFBeta(t *testing.T) {
	assert.InDelta(t, 2*0.625/1.625, FBeta(1, 1, 0.625), 1e-12)
	assert.Equal(t, 0.0, FBeta(1, 0, 0))
	// beta 2 weighs recall higher
	assert.Greater(t, FBeta(2, 0.5, 1), FBeta(2, 1, 0.5))
}

func TestComputeSingleCase(t *testing.T) {
	s := Compute([]Counts{{TP: 5, FP: 0, FN: 3}}, DefaultBeta)
	assert.Equal(t, 1.0, s.Micro.Precision)
	assert.Equal(t, 0.625, s.Micro.Recall)
	assert.InDelta(t, 0.7692, s.Micro.Rounded().FMeasure, 1e-9)
	assert.Equal(t, s.Micro.Precision, s.Macro.Precision)
	assert.Equal(t, s.Micro.Recall, s.Macro.Recall)
}

func TestComputeAllZero(t *testing.T) {
	for _, cases := range [][]Counts{nil, {{}}, {{}, {}}} {
		s := Compute(cases, DefaultBeta)
		for _, sc := range []Scores{s.Micro, s.Macro} {
			assert.Zero(t, sc.Precision)
			assert.Zero(t, sc.Recall)
			assert.Zero(t, sc.FMeasure)
		}
	}
}

func TestComputeMicroSumsCounts(t *testing.T) {
	s := Compute([]Counts{{TP: 3, FP: 1, FN: 2}, {TP: 5, FP: 1, FN: 0}}, DefaultBeta)
	assert.InDelta(t, 0.8, s.Micro.Precision, 1e-12)
	assert.InDelta(t, 0.8, s.Micro.Recall, 1e-12)
	assert.InDelta(t, 0.8, s.Micro.FMeasure, 1e-12)
}

func TestComputeMacroAveragesContributingCases(t *testing.T) {
	s := Compute([]Counts{{TP: 1}, {FP: 1}, {}}, DefaultBeta)
	assert.Equal(t, 0.5, s.Macro.Precision)
	assert.Equal(t, 0.5, s.Macro.Recall)
	assert.Equal(t, 0.5, s.Macro.FMeasure)
}

func TestScoresDisplay(t *testing.T) {
	s := Scores{Name: "x", Precision: 2.0 / 3, Recall: 0.125, FMeasure: 1}
	r := s.Rounded()
	assert.Equal(t, 0.6667, r.Precision)
	assert.Equal(t, 0.125, r.Recall)
	assert.Equal(t, "x", r.Name)
	assert.Equal(t, [3]string{"0.6667", "0.1250", "1.0000"}, s.Format())
}

func TestCountsOfMissingOutcomes(t *testing.T) {
	assert.Equal(t, Counts{TP: 2}, CountsOf(OutcomeCounter{record.TruePositive: 2, record.TrueNegative: 9}))
	assert.True(t, CountsOf(nil).Empty())
}

func TestForGroup(t *testing.T) {
	got := ForGroup(seq(
		crossfilter.Entry[OutcomeCounter]{Key: crossfilter.K("a"), Value: outcomes(1, 0, 0)},
		crossfilter.Entry[OutcomeCounter]{Key: crossfilter.K("b"), Value: outcomes(0, 1, 0)},
	))
	require.Len(t, got, 2)
	assert.Equal(t, "micro", got[0].Name)
	assert.Equal(t, 0.5, got[0].Precision)
	assert.Equal(t, 1.0, got[0].Recall)
	assert.Equal(t, "macro", got[1].Name)
	assert.Equal(t, 0.5, got[1].Precision)
	assert.Equal(t, 0.5, got[1].Recall)
}

func TestPerMatcherAndTable(t *testing.T) {
	byMatcher := []crossfilter.Entry[CaseOutcomes]{
		{Key: crossfilter.K("alpha"), Value: CaseOutcomes{"tc1": outcomes(2, 0, 2), "tc2": outcomes(0, 0, 0)}},
		{Key: crossfilter.K("beta"), Value: CaseOutcomes{"tc1": outcomes(0, 4, 0)}},
	}

	per := PerMatcher(seq(byMatcher...))
	require.Len(t, per, 2)
	assert.Equal(t, Scores{Name: "alpha", Precision: 1, Recall: 0.5, FMeasure: FBeta(1, 1, 0.5)}, per[0])
	assert.Equal(t, Scores{Name: "beta"}, per[1])

	rows := SelectedAndMatchers(seq(
		crossfilter.Entry[OutcomeCounter]{Key: crossfilter.K("tc1"), Value: outcomes(2, 4, 2)},
	), seq(byMatcher...), DefaultBeta)
	require.Len(t, rows, 3)
	assert.Equal(t, SelectedRow, rows[0].Name)
	assert.InDelta(t, 2.0/6, rows[0].Micro.Precision, 1e-12)
	assert.Equal(t, "alpha", rows[1].Name)
	assert.Equal(t, 1.0, rows[1].Macro.Precision, "empty tc2 does not dilute the macro mean")
	assert.Equal(t, "beta", rows[2].Name)
	assert.Zero(t, rows[2].Micro.FMeasure)
}
