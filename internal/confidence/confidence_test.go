package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keilerkonzept/matchdash/internal/crossfilter"
	"github.com/keilerkonzept/matchdash/internal/record"
)

func withConfidence(c float64, o record.Outcome) record.Record {
	return record.Record{TestCase: "tc", Matcher: "m", Confidence: c, HasConfidence: true, Outcome: o}
}

func setup(t *testing.T) (*crossfilter.Index, *crossfilter.Dimension) {
	t.Helper()
	x := crossfilter.New([]record.Record{
		withConfidence(0.5, record.TruePositive),
		withConfidence(0.9, record.FalsePositive),
		withConfidence(0.7, record.TruePositive),
		withConfidence(0.1, record.FalsePositive),
		{TestCase: "tc", Matcher: "m", Outcome: record.FalseNegative},
	})
	dim, err := x.Dimension("confidence", BinKey)
	require.NoError(t, err)
	return x, dim
}

func surviving(x *crossfilter.Index) []string {
	var out []string
	for r := range x.Filtered() {
		out = append(out, BinKey(r).String())
	}
	return out
}

func TestBinKey(t *testing.T) {
	assert.Equal(t, crossfilter.Pair("0.70", "true positive"), BinKey(withConfidence(0.7, record.TruePositive)))
	assert.Equal(t, "1.00:false positive", BinKey(withConfidence(0.999, record.FalsePositive)).String())
	assert.Equal(t, "0.00:false negative", BinKey(record.Record{Outcome: record.FalseNegative}).String())
}

func TestSingleRangeIsOpenAndKeepsFalseNegatives(t *testing.T) {
	x, dim := setup(t)
	specs := []Spec{Between(0.5, 0.9)}

	got := Apply(dim, specs)
	assert.Equal(t, specs, got, "selection is handed back unchanged")
	assert.Equal(t, []string{"0.70:true positive", "0.00:false negative"}, surviving(x))
}

func TestEmptySelectionClears(t *testing.T) {
	x, dim := setup(t)
	Apply(dim, []Spec{Between(0.5, 0.9)})
	require.Equal(t, 2, x.FilteredSize())

	Apply(dim, nil)
	assert.Equal(t, 5, x.FilteredSize())
	_, active := dim.Current()
	assert.False(t, active)
}

func TestSingleValueIsExact(t *testing.T) {
	x, dim := setup(t)
	Apply(dim, []Spec{Value(crossfilter.Pair("0.10", "false positive"))})
	assert.Equal(t, []string{"0.10:false positive"}, surviving(x))
}

func TestSeveralEntriesAreOred(t *testing.T) {
	x, dim := setup(t)
	Apply(dim, []Spec{
		Value(crossfilter.Pair("0.10", "false positive")),
		Between(0.5, 0.9),
	})
	// In the OR path a range uses its own half-open test, so 0.5 is kept and
	// the false negative in the 0.00 bin is not.
	assert.Equal(t, []string{"0.50:true positive", "0.70:true positive", "0.10:false positive"}, surviving(x))

	Apply(dim, []Spec{Matching(func(k crossfilter.Key) bool { return k.Second == string(record.FalsePositive) })})
	assert.Equal(t, []string{"0.90:false positive", "0.10:false positive"}, surviving(x))
}
