// Package heatmap places each outcome on the two axes of the confusion heat
// map: the true condition and the predicted condition.
package heatmap

import (
	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

const (
	CondPositive = "cond positive"
	CondNegative = "cond negative"
	Positive     = "positive"
	Negative     = "negative"
	Default      = "default"
)

// Actual is the true condition of an outcome.
func Actual(o record.Outcome) string {
	switch o {
	case record.TruePositive, record.FalseNegative:
		return CondPositive
	case record.FalsePositive, record.TrueNegative:
		return CondNegative
	default:
		return Default
	}
}

// Predicted is what the matcher claimed.
func Predicted(o record.Outcome) string {
	switch o {
	case record.TruePositive, record.FalsePositive:
		return Positive
	case record.FalseNegative, record.TrueNegative:
		return Negative
	default:
		return Default
	}
}

func Categorize(o record.Outcome) (actual, predicted string) {
	return Actual(o), Predicted(o)
}

// Key is the heat map dimension key: actual condition first.
func Key(r record.Record) crossfilter.Key {
	return crossfilter.Pair(Categorize(r.Outcome))
}

// Cell is one populated square of the heat map.
type Cell struct {
	Actual, Predicted string
	Count             int
}

// Cells flattens a count group over Key into heat map cells, skipping
// squares with no records.
func Cells(g crossfilter.Source[int]) []Cell {
	var out []Cell
	for e := range g.All() {
		if e.Value == 0 {
			continue
		}
		out = append(out, Cell{Actual: e.Key.First, Predicted: e.Key.Second, Count: e.Value})
	}
	return out
}
