package fee

import (
	"parkfee/core/money"
)

// ComparisonResult classifies a computed-vs-recorded amount comparison.
type ComparisonResult string

const (
	ResultMatch    ComparisonResult = "match"
	ResultMismatch ComparisonResult = "mismatch"
)

// Action is the follow-up a verdict demands.
type Action string

const (
	ActionAutoApprove  Action = "auto_approve"
	ActionManualReview Action = "needs_manual_review"
)

// Verdict is the outcome of checking a recorded amount against a
// computed fee. Derived, never stored by the engine.
type Verdict struct {
	ExpectedAmount money.Amount     `json:"expected_amount_cents"`
	ActualAmount   money.Amount     `json:"actual_amount_cents"`
	Result         ComparisonResult `json:"result"`
	Action         Action           `json:"action"`
}

// Verify compares a recorded amount against the expected fee. Equality
// is exact at minor-unit precision; no tolerance band is applied, since
// rounding upstream is already deterministic. Any deviation goes to
// manual review rather than being silently absorbed.
func Verify(expected, actual money.Amount) Verdict {
	verdict := Verdict{
		ExpectedAmount: expected,
		ActualAmount:   actual,
	}
	if expected == actual {
		verdict.Result = ResultMatch
		verdict.Action = ActionAutoApprove
	} else {
		verdict.Result = ResultMismatch
		verdict.Action = ActionManualReview
	}
	return verdict
}
