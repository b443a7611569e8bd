// Package record defines the evaluation records explored by the dashboard
// and the readers that load them from the upstream alignment-cube exports.
package record

import "errors"

// Outcome is the evaluation label of one correspondence.
type Outcome string

const (
	TruePositive  Outcome = "true positive"
	FalsePositive Outcome = "false positive"
	FalseNegative Outcome = "false negative"
	TrueNegative  Outcome = "true negative"
)

// Rank orders outcomes for display: TP, FP, FN, TN, then anything else.
func (o Outcome) Rank() int {
	switch o {
	case TruePositive:
		return 0
	case FalsePositive:
		return 1
	case FalseNegative:
		return 2
	case TrueNegative:
		return 3
	default:
		return 4
	}
}

var ErrMalformed = errors.New("malformed record")

// Record is one evaluated correspondence. Records are never modified after
// they are loaded.
type Record struct {
	Track     string
	TestCase  string
	Matcher   string
	URILeft   string
	URIRight  string
	Relation  string
	Residual  string
	TypeLeft  []string
	TypeRight []string

	// Confidence is only meaningful when HasConfidence is set; false
	// negatives were never produced by the matcher and carry none.
	Confidence    float64
	HasConfidence bool

	Outcome Outcome
}

func (r Record) OutcomeOf() Outcome { return r.Outcome }
