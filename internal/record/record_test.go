package record

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cubeCSV = `Track,TestCase,Matcher,Type Left,URI Left,Relation,Confidence (Matcher),URI Right,Type Right,Evaluation Result,Residual True Positive
conference,cmt-conference,LogMap,"[""Class""]",http://cmt#Paper,=,0.93,http://conf#Paper,"[""Class""]",true positive,false
conference,cmt-conference,LogMap,"[""Class"",""Property""]",http://cmt#Author,=,0.41,http://conf#Person,"[""Class"",""Thing""]",false positive,
conference,cmt-ekaw,AML,[],http://cmt#Review,=,,http://ekaw#Review,[],false negative,true
`

func TestReadCSV(t *testing.T) {
	recs, err := ReadCSV(strings.NewReader(cubeCSV))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "conference", recs[0].Track)
	assert.Equal(t, "LogMap", recs[0].Matcher)
	assert.Equal(t, TruePositive, recs[0].Outcome)
	assert.True(t, recs[0].HasConfidence)
	assert.InDelta(t, 0.93, recs[0].Confidence, 1e-9)
	assert.Equal(t, []string{"Class"}, recs[0].TypeLeft)

	assert.Equal(t, []string{"Class"}, recs[0].TypeRight)

	assert.Equal(t, []string{"Class", "Property"}, recs[1].TypeLeft)
	assert.Equal(t, []string{"Class", "Thing"}, recs[1].TypeRight)

	assert.Equal(t, FalseNegative, recs[2].Outcome)
	assert.False(t, recs[2].HasConfidence)
	assert.Empty(t, recs[2].TypeLeft)
	assert.Empty(t, recs[2].TypeRight)
	assert.Equal(t, "true", recs[2].Residual)
}

func TestReadCSVErrors(t *testing.T) {
	t.Run("missing required column", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("Track,Matcher\nx,y\n"))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("bad confidence", func(t *testing.T) {
		in := "TestCase,Matcher,Confidence (Matcher),Evaluation Result\ntc,m,high,true positive\n"
		_, err := ReadCSV(strings.NewReader(in))
		require.ErrorIs(t, err, ErrMalformed)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("bad type right", func(t *testing.T) {
		in := "TestCase,Matcher,Type Right,Evaluation Result\ntc,m,Class,true positive\n"
		_, err := ReadCSV(strings.NewReader(in))
		require.ErrorIs(t, err, ErrMalformed)
		assert.Contains(t, err.Error(), "type right")
	})

	t.Run("empty input", func(t *testing.T) {
		recs, err := ReadCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestReadJSON(t *testing.T) {
	in := `{"testCase":"a","matcher":"m1","confidence":0.5,"outcome":"true positive"}
{"testCase":"a","matcher":"m1","outcome":"false negative","typeLeft":["Class"],"typeRight":["Property"]}`
	recs, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].HasConfidence)
	assert.False(t, recs[1].HasConfidence)
	assert.Equal(t, []string{"Class"}, recs[1].TypeLeft)
	assert.Equal(t, []string{"Property"}, recs[1].TypeRight)

	_, err = ReadJSON(strings.NewReader(`{"testCase":"a"}`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestLoadFilesKeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.jsonl")
	require.NoError(t, os.WriteFile(first, []byte(cubeCSV), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(`{"testCase":"z","matcher":"last","outcome":"true negative"}`), 0o644))

	recs, err := LoadFiles(context.Background(), []string{first, second}, FormatAuto)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "LogMap", recs[0].Matcher)
	assert.Equal(t, "last", recs[3].Matcher)

	_, err = LoadFiles(context.Background(), []string{filepath.Join(dir, "missing.csv")}, FormatCSV)
	require.Error(t, err)
}

func TestOutcomeRank(t *testing.T) {
	assert.Less(t, TruePositive.Rank(), FalsePositive.Rank())
	assert.Less(t, FalsePositive.Rank(), FalseNegative.Rank())
	assert.Less(t, FalseNegative.Rank(), TrueNegative.Rank())
	assert.Less(t, TrueNegative.Rank(), Outcome("unknown").Rank())
}
