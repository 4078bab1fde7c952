package billing

import (
	"time"

	"parkfee/internal/errors"
)

func errInvalidEffectiveRange(versionNo int) error {
	return errors.Newf(errors.TypeInput, "version %d: effective_to must be after effective_from", versionNo)
}

// Status is a rule lifecycle state. Rules are never deleted, only disabled.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
)

// Scope is the region/lot combination a rule applies to.
// An empty LotCodes set means every lot in the region.
type Scope struct {
	// RegionCode is the city/region code.
	RegionCode string

	// LotCodes is the explicit lot set. Empty = region-wide.
	LotCodes []string
}

// IsLotSpecific reports whether the scope names explicit lots.
func (s Scope) IsLotSpecific() bool {
	return len(s.LotCodes) > 0
}

// Matches reports whether the scope covers the given region and lot.
func (s Scope) Matches(regionCode, lotCode string) bool {
	if s.RegionCode != regionCode {
		return false
	}
	if !s.IsLotSpecific() {
		return true
	}
	for _, code := range s.LotCodes {
		if code == lotCode {
			return true
		}
	}
	return false
}

// Version is one effective-dated payload under a rule. Versions are
// append-only; an elapsed effective range is never mutated.
type Version struct {
	// VersionNo numbers versions within one rule, ascending.
	VersionNo int

	// EffectiveFrom is the inclusive start of the effective range.
	EffectiveFrom time.Time

	// EffectiveTo is the exclusive end; nil means open-ended.
	EffectiveTo *time.Time

	// Priority breaks ties among simultaneously effective versions; higher wins.
	Priority int

	// Segments is the declaration-ordered pricing payload.
	Segments []Segment
}

// ActiveAt reports whether the version's effective range covers the instant.
// The range is inclusive-start, exclusive-end.
func (v Version) ActiveAt(at time.Time) bool {
	if at.Before(v.EffectiveFrom) {
		return false
	}
	return v.EffectiveTo == nil || at.Before(*v.EffectiveTo)
}

// Overlaps reports whether two effective ranges intersect.
func (v Version) Overlaps(other Version) bool {
	if v.EffectiveTo != nil && !other.EffectiveFrom.Before(*v.EffectiveTo) {
		return false
	}
	if other.EffectiveTo != nil && !v.EffectiveFrom.Before(*other.EffectiveTo) {
		return false
	}
	return true
}

// Validate checks the version payload.
func (v Version) Validate() error {
	if v.EffectiveTo != nil && !v.EffectiveFrom.Before(*v.EffectiveTo) {
		return errInvalidEffectiveRange(v.VersionNo)
	}
	for _, seg := range v.Segments {
		if err := seg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Rule is a named billing rule with its scope and version history.
type Rule struct {
	// RuleCode uniquely identifies the rule.
	RuleCode string

	// Name is the display name.
	Name string

	// Status is the lifecycle state.
	Status Status

	// Scope is the region/lot coverage.
	Scope Scope

	// Versions is the append-only version history, ordered by VersionNo.
	Versions []Version
}

// Enabled reports whether the rule participates in resolution.
func (r Rule) Enabled() bool {
	return r.Status == StatusEnabled
}
