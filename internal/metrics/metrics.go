// Package metrics turns grouped confusion counts into micro and macro
// precision, recall and F-measure.
//
// Every ratio goes through SafeDiv, which yields 0 for a zero or NaN
// denominator. Precision of a matcher that returned nothing is therefore 0,
// not undefined, and no value is ever NaN or infinite.
package metrics

import (
	"fmt"
	"math"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

const DefaultBeta = 1.0

// Counts are the confusion counts of one test case.
type Counts struct {
	TP, FP, FN int
}

// CountsOf reads a per-outcome counter; missing outcomes count as zero.
func CountsOf(c crossfilter.Counter[record.Outcome]) Counts {
	return Counts{
		TP: c.Get(record.TruePositive),
		FP: c.Get(record.FalsePositive),
		FN: c.Get(record.FalseNegative),
	}
}

func (c Counts) Empty() bool { return c.TP+c.FP+c.FN == 0 }

func (c Counts) Precision() float64 { return SafeDiv(float64(c.TP), float64(c.TP+c.FP)) }

func (c Counts) Recall() float64 { return SafeDiv(float64(c.TP), float64(c.TP+c.FN)) }

func SafeDiv(n, d float64) float64 {
	if d == 0 || math.IsNaN(d) {
		return 0
	}
	return n / d
}

// FBeta is the weighted harmonic mean of p and r with weight beta² on
// recall.
func FBeta(beta, p, r float64) float64 {
	b2 := beta * beta
	return SafeDiv((1+b2)*p*r, b2*p+r)
}

// Scores holds full-precision values; use Rounded or Format for display.
type Scores struct {
	Name      string
	Precision float64
	Recall    float64
	FMeasure  float64
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

func (s Scores) Rounded() Scores {
	return Scores{
		Name:      s.Name,
		Precision: round4(s.Precision),
		Recall:    round4(s.Recall),
		FMeasure:  round4(s.FMeasure),
	}
}

// Format renders precision, recall and F-measure with four decimals.
func (s Scores) Format() [3]string {
	return [3]string{
		fmt.Sprintf("%.4f", s.Precision),
		fmt.Sprintf("%.4f", s.Recall),
		fmt.Sprintf("%.4f", s.FMeasure),
	}
}

type Snapshot struct {
	Micro Scores
	Macro Scores
}

// Compute derives micro scores from the summed counts and macro scores from
// the mean per-case precision and recall. Cases with no TP, FP or FN do not
// count towards the macro mean.
func Compute(cases []Counts, beta float64) Snapshot {
	var tp, fp, fn int
	var precSum, recSum float64
	contributing := 0
	for _, c := range cases {
		tp += c.TP
		fp += c.FP
		fn += c.FN
		if c.Empty() {
			continue
		}
		precSum += c.Precision()
		recSum += c.Recall()
		contributing++
	}

	micro := Scores{Name: "micro"}
	micro.Precision = SafeDiv(float64(tp), float64(tp+fp))
	micro.Recall = SafeDiv(float64(tp), float64(tp+fn))
	micro.FMeasure = FBeta(beta, micro.Precision, micro.Recall)

	macro := Scores{Name: "macro"}
	macro.Precision = SafeDiv(precSum, float64(contributing))
	macro.Recall = SafeDiv(recSum, float64(contributing))
	macro.FMeasure = FBeta(beta, macro.Precision, macro.Recall)

	return Snapshot{Micro: micro, Macro: macro}
}
