package record

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column names of the alignment-cube export.
const (
	ColTrack      = "Track"
	ColTestCase   = "TestCase"
	ColMatcher    = "Matcher"
	ColURILeft    = "URI Left"
	ColURIRight   = "URI Right"
	ColRelation   = "Relation"
	ColConfidence = "Confidence (Matcher)"
	ColOutcome    = "Evaluation Result"
	ColResidual   = "Residual True Positive"
	ColTypeLeft   = "Type Left"
	ColTypeRight  = "Type Right"
)

var requiredColumns = []string{ColTestCase, ColMatcher, ColOutcome}

// ReadCSV parses an alignment-cube CSV. Columns are located by header name so
// extra feature columns are ignored.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
	}

	var out []Record
	for {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("reading row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec := Record{
			Track:    field(ColTrack),
			TestCase: field(ColTestCase),
			Matcher:  field(ColMatcher),
			URILeft:  field(ColURILeft),
			URIRight: field(ColURIRight),
			Relation: field(ColRelation),
			Residual: field(ColResidual),
			Outcome:  Outcome(field(ColOutcome)),
		}
		if c := field(ColConfidence); c != "" {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return out, fmt.Errorf("%w: line %d: confidence %q: %v", ErrMalformed, line, c, err)
			}
			rec.Confidence, rec.HasConfidence = v, true
		}
		for _, col := range []struct {
			name string
			dst  *[]string
		}{{ColTypeLeft, &rec.TypeLeft}, {ColTypeRight, &rec.TypeRight}} {
			t := field(col.name)
			if t == "" {
				continue
			}
			if err := json.Unmarshal([]byte(t), col.dst); err != nil {
				return out, fmt.Errorf("%w: line %d: %s %q: %v", ErrMalformed, line, strings.ToLower(col.name), t, err)
			}
		}
		out = append(out, rec)
	}
}
