package record

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type jsonRecord struct {
	Track      string   `json:"track"`
	TestCase   string   `json:"testCase"`
	Matcher    string   `json:"matcher"`
	URILeft    string   `json:"uriLeft"`
	URIRight   string   `json:"uriRight"`
	Relation   string   `json:"relation"`
	Residual   string   `json:"residual"`
	TypeLeft   []string `json:"typeLeft"`
	TypeRight  []string `json:"typeRight"`
	Confidence *float64 `json:"confidence"`
	Outcome    string   `json:"outcome"`
}

// ReadJSON decodes a stream of JSON objects, one record each. A missing or
// null confidence leaves HasConfidence unset.
func ReadJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	var out []Record
	for n := 1; ; n++ {
		var item jsonRecord
		if err := dec.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("%w: object %d: %v", ErrMalformed, n, err)
		}
		if item.TestCase == "" || item.Matcher == "" || item.Outcome == "" {
			return out, fmt.Errorf("%w: object %d: testCase, matcher and outcome are required", ErrMalformed, n)
		}
		rec := Record{
			Track:     item.Track,
			TestCase:  item.TestCase,
			Matcher:   item.Matcher,
			URILeft:   item.URILeft,
			URIRight:  item.URIRight,
			Relation:  item.Relation,
			Residual:  item.Residual,
			TypeLeft:  item.TypeLeft,
			TypeRight: item.TypeRight,
			Outcome:   Outcome(item.Outcome),
		}
		if item.Confidence != nil {
			rec.Confidence, rec.HasConfidence = *item.Confidence, true
		}
		out = append(out, rec)
	}
}
