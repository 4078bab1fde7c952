// Package engine composes resolution, interval splitting, and fee
// computation into the quote and verification entry points. CLI and any
// outer transport are thin wrappers around this engine.
package engine

import (
	"time"

	"parkfee/core/billing"
	"parkfee/core/fee"
	"parkfee/core/interval"
	"parkfee/core/money"
	"parkfee/core/resolve"
	"parkfee/internal/errors"
)

// Corpus is an immutable rule/version snapshot for one computation.
// Callers supply a consistent snapshot per invocation; the engine never
// mutates it and needs no synchronization of its own.
type Corpus struct {
	Rules []billing.Rule
}

// Engine is the deterministic fee computation facade. It performs no
// I/O; identical inputs always produce identical outputs.
type Engine struct {
	resolver *resolve.Resolver
}

// New creates an engine with the given tie-break policy.
func New(tieBreak resolve.TieBreak) *Engine {
	return &Engine{resolver: resolve.NewResolver(tieBreak)}
}

// Quote resolves the applicable rule version for the scope at the entry
// instant and computes the fee for [entry, exit).
func (e *Engine) Quote(corpus Corpus, q resolve.Query, entry, exit time.Time) (*fee.Result, error) {
	match, err := e.resolver.Resolve(corpus.Rules, q, entry)
	if err != nil {
		return nil, err
	}
	return e.computeVersion(match.Rule.RuleCode, match.Version, entry, exit)
}

// QuoteRule computes the fee under an explicitly named rule, resolving
// only the version by the entry instant. Used by simulation callers
// that already know which rule to exercise.
func (e *Engine) QuoteRule(rule *billing.Rule, entry, exit time.Time) (*fee.Result, error) {
	var matched *billing.Version
	for i := range rule.Versions {
		v := &rule.Versions[i]
		if !v.ActiveAt(entry) {
			continue
		}
		if matched == nil || v.Priority > matched.Priority ||
			(v.Priority == matched.Priority && v.VersionNo > matched.VersionNo) {
			matched = v
		}
	}
	if matched == nil {
		return nil, errors.Newf(errors.TypeNoApplicableRule,
			"rule %s has no version effective at %s", rule.RuleCode, entry.Format(time.RFC3339))
	}
	return e.computeVersion(rule.RuleCode, matched, entry, exit)
}

// Verify recomputes the fee for an interval and classifies the recorded
// amount against it.
func (e *Engine) Verify(corpus Corpus, q resolve.Query, entry, exit time.Time, recorded money.Amount) (*fee.Result, fee.Verdict, error) {
	result, err := e.Quote(corpus, q, entry, exit)
	if err != nil {
		return nil, fee.Verdict{}, err
	}
	return result, fee.Verify(result.TotalAmount, recorded), nil
}

func (e *Engine) computeVersion(ruleCode string, version *billing.Version, entry, exit time.Time) (*fee.Result, error) {
	seq, err := interval.Split(entry, exit, version.Segments)
	if err != nil {
		return nil, err
	}
	result, err := fee.Compute(seq, version.Segments)
	if err != nil {
		return nil, err
	}
	result.MatchedRuleCode = ruleCode
	result.MatchedVersionNo = version.VersionNo
	return result, nil
}
