// Package resolve selects the single billing rule version applicable to
// a scope and instant, and guards version writes against effective-range
// overlap. Resolution is a pure lookup over an immutable corpus snapshot.
package resolve

import (
	"fmt"
	"time"

	"parkfee/core/billing"
	"parkfee/internal/errors"
)

// TieBreak orders the resolver's tie-break criteria when several
// versions are simultaneously effective for the same scope.
type TieBreak string

const (
	// PriorityFirst ranks by priority, then scope specificity.
	PriorityFirst TieBreak = "priority_first"

	// ScopeFirst ranks by scope specificity, then priority.
	ScopeFirst TieBreak = "scope_first"
)

// ParseTieBreak validates a tie-break policy name.
func ParseTieBreak(value string) (TieBreak, error) {
	switch TieBreak(value) {
	case PriorityFirst, ScopeFirst:
		return TieBreak(value), nil
	case "":
		return PriorityFirst, nil
	default:
		return "", errors.Newf(errors.TypeConfig, "unknown tie_break policy %q", value)
	}
}

// Query names the scope a resolution runs against.
type Query struct {
	RegionCode string
	LotCode    string
}

// Match is a resolved (rule, version) pair.
type Match struct {
	Rule    *billing.Rule
	Version *billing.Version
}

// Resolver resolves rule versions under a fixed tie-break policy.
type Resolver struct {
	tieBreak TieBreak
}

// NewResolver creates a resolver with the given tie-break policy.
func NewResolver(tieBreak TieBreak) *Resolver {
	if tieBreak == "" {
		tieBreak = PriorityFirst
	}
	return &Resolver{tieBreak: tieBreak}
}

type candidate struct {
	rule        *billing.Rule
	version     *billing.Version
	lotSpecific bool
}

// Resolve selects the single applicable version among enabled rules
// whose scope covers the query, effective at the given instant.
// Effective ranges are inclusive-start, exclusive-end. Fails with
// NoApplicableRule when nothing matches and AmbiguousRuleVersion when
// more than one version survives every tie-break.
func (r *Resolver) Resolve(rules []billing.Rule, q Query, at time.Time) (Match, error) {
	var candidates []candidate
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled() || !rule.Scope.Matches(q.RegionCode, q.LotCode) {
			continue
		}
		for j := range rule.Versions {
			version := &rule.Versions[j]
			if version.ActiveAt(at) {
				candidates = append(candidates, candidate{
					rule:        rule,
					version:     version,
					lotSpecific: rule.Scope.IsLotSpecific(),
				})
			}
		}
	}

	if len(candidates) == 0 {
		return Match{}, errors.NoApplicableRule(q.RegionCode, q.LotCode)
	}

	best := []candidate{candidates[0]}
	for _, c := range candidates[1:] {
		switch r.compare(c, best[0]) {
		case 1:
			best = []candidate{c}
		case 0:
			best = append(best, c)
		}
	}

	if len(best) > 1 {
		return Match{}, errors.AmbiguousRuleVersion(fmt.Sprintf(
			"rules %s and %s both resolve for region %s lot %s at %s",
			best[0].rule.RuleCode, best[1].rule.RuleCode,
			q.RegionCode, q.LotCode, at.Format(time.RFC3339)))
	}

	return Match{Rule: best[0].rule, Version: best[0].version}, nil
}

// compare ranks two candidates: 1 if a wins, -1 if b wins, 0 on a full
// tie. Criteria order depends on the tie-break policy.
func (r *Resolver) compare(a, b candidate) int {
	byPriority := func() int {
		switch {
		case a.version.Priority > b.version.Priority:
			return 1
		case a.version.Priority < b.version.Priority:
			return -1
		}
		return 0
	}
	byScope := func() int {
		switch {
		case a.lotSpecific && !b.lotSpecific:
			return 1
		case !a.lotSpecific && b.lotSpecific:
			return -1
		}
		return 0
	}

	first, second := byPriority, byScope
	if r.tieBreak == ScopeFirst {
		first, second = byScope, byPriority
	}
	if c := first(); c != 0 {
		return c
	}
	return second()
}

// CheckOverlap enforces the write-time invariant: among versions of one
// rule at the same priority, effective ranges must be disjoint. Called
// by the configuration store before appending a version; the resolver
// assumes it at read time.
func CheckOverlap(existing []billing.Version, next billing.Version) error {
	for _, v := range existing {
		if v.Priority != next.Priority {
			continue
		}
		if v.Overlaps(next) {
			to := "open"
			if v.EffectiveTo != nil {
				to = v.EffectiveTo.Format(time.RFC3339)
			}
			return errors.OverlappingVersion(fmt.Sprintf(
				"effective range overlaps version %d (%s - %s) at priority %d",
				v.VersionNo, v.EffectiveFrom.Format(time.RFC3339), to, v.Priority))
		}
	}
	return nil
}
