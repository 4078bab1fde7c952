// Package fee computes parking fees from claimed sub-ranges and checks
// computed fees against recorded order amounts. All amounts are integral
// cents; all unit rounding is ceiling, never round-to-nearest.
package fee

import (
	"time"

	"parkfee/core/billing"
	"parkfee/core/interval"
	"parkfee/core/money"
	"parkfee/internal/errors"
)

// SegmentCharge is the per-segment slice of a computed fee.
type SegmentCharge struct {
	SegmentName string       `json:"segment_name"`
	SegmentType billing.Kind `json:"segment_type"`

	// Minutes is the whole minutes the segment claimed.
	Minutes int64 `json:"minutes"`

	// Amount is the charge attributed to the segment, in cents.
	Amount money.Amount `json:"amount_cents"`

	// CappedDays counts calendar days where max_charge cut the charge.
	CappedDays int `json:"capped_days"`
}

// Result is an immutable fee computation output, produced fresh per call.
type Result struct {
	// TotalAmount is the fee owed, in cents.
	TotalAmount money.Amount `json:"total_amount_cents"`

	// DurationMinutes is the billed interval length in whole minutes.
	DurationMinutes int64 `json:"duration_minutes"`

	// Breakdown lists claimed segments in declaration order.
	Breakdown []SegmentCharge `json:"breakdown"`

	// MatchedRuleCode is the rule the fee was computed under.
	MatchedRuleCode string `json:"matched_rule_code"`

	// MatchedVersionNo is the resolved version number.
	MatchedVersionNo int `json:"matched_version_no"`
}

// dayKey identifies one per-day, per-segment accumulator bucket.
type dayKey struct {
	day     string
	segment int
}

// dayState is the fold accumulator for one (day, segment) bucket:
// accumulated claimed time and the charge already attributed to the day.
type dayState struct {
	claimed time.Duration
	charged money.Amount
	capped  bool
}

// Compute folds the sub-range sequence into a fee. The accumulator is
// keyed by (calendar day, segment); the free allowance refills and the
// cap resets whenever the calendar day changes.
func Compute(seq *interval.Sequence, segments []billing.Segment) (*Result, error) {
	seq.Reset()

	days := make(map[dayKey]*dayState)
	segMinutes := make([]time.Duration, len(segments))
	segAmounts := make([]money.Amount, len(segments))
	segCappedDays := make([]int, len(segments))
	claimedSeg := make([]bool, len(segments))

	var total money.Amount
	var walked time.Duration

	for {
		sub, ok, err := seq.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		length := sub.Duration()
		if length < 0 {
			return nil, errors.SegmentComputation("negative sub-range duration")
		}
		if length == 0 {
			continue
		}
		if sub.SegmentIndex < 0 || sub.SegmentIndex >= len(segments) {
			return nil, errors.SegmentComputation("sub-range references unknown segment")
		}

		seg := segments[sub.SegmentIndex]
		key := dayKey{day: sub.Day, segment: sub.SegmentIndex}
		state, exists := days[key]
		if !exists {
			state = &dayState{}
			days[key] = state
		}
		state.claimed += length

		// Re-derive the day total from cumulative claimed time and add
		// only the delta, so ceiling rounding never double-charges a
		// unit split across sub-ranges of the same day.
		target, capped, err := dayCharge(seg, state.claimed)
		if err != nil {
			return nil, err
		}
		delta := target.Sub(state.charged)
		if delta.IsNegative() {
			return nil, errors.SegmentComputation("day charge decreased within a day")
		}
		state.charged = target
		if capped && !state.capped {
			state.capped = true
			segCappedDays[sub.SegmentIndex]++
		}

		total = total.Add(delta)
		segAmounts[sub.SegmentIndex] = segAmounts[sub.SegmentIndex].Add(delta)
		segMinutes[sub.SegmentIndex] += length
		claimedSeg[sub.SegmentIndex] = true
		walked += length
	}

	result := &Result{
		TotalAmount:     total,
		DurationMinutes: int64(walked / time.Minute),
	}
	for i, seg := range segments {
		if !claimedSeg[i] {
			continue
		}
		result.Breakdown = append(result.Breakdown, SegmentCharge{
			SegmentName: seg.Name,
			SegmentType: seg.Kind,
			Minutes:     int64(segMinutes[i] / time.Minute),
			Amount:      segAmounts[i],
			CappedDays:  segCappedDays[i],
		})
	}
	return result, nil
}

// dayCharge prices one segment's cumulative claimed time within one
// calendar day: allowance subtraction, ceiling units, then the cap.
func dayCharge(seg billing.Segment, claimed time.Duration) (money.Amount, bool, error) {
	if claimed < 0 {
		return 0, false, errors.SegmentComputation("negative claimed duration")
	}

	minutes := ceilMinutes(claimed)
	chargeable := minutes - int64(seg.FreeMinutes)
	if chargeable <= 0 {
		return 0, false, nil
	}

	var amount money.Amount
	switch seg.Kind {
	case billing.KindFree:
		return 0, false, nil
	case billing.KindPeriodic:
		units := ceilDiv(chargeable, int64(seg.UnitMinutes))
		amount = seg.UnitPrice.MulUnits(units)
	case billing.KindTiered:
		amount = tierCharge(seg.Tiers, chargeable)
	default:
		return 0, false, errors.SegmentComputation("unknown segment kind " + string(seg.Kind))
	}

	if seg.MaxCharge != nil {
		clamped := money.Min(amount, *seg.MaxCharge)
		return clamped, clamped != amount, nil
	}
	return amount, false, nil
}

// tierCharge splits chargeable minutes across cumulative tier steps.
// Each step's portion rounds up to whole units at that step's price.
func tierCharge(tiers []billing.Tier, chargeable int64) money.Amount {
	var amount money.Amount
	for i, tier := range tiers {
		lower := int64(tier.ThresholdMinutes)
		if chargeable <= lower {
			break
		}
		upper := chargeable
		if i+1 < len(tiers) && int64(tiers[i+1].ThresholdMinutes) < upper {
			upper = int64(tiers[i+1].ThresholdMinutes)
		}
		portion := upper - lower
		units := ceilDiv(portion, int64(tier.UnitMinutes))
		amount = amount.Add(tier.UnitPrice.MulUnits(units))
	}
	return amount
}

// ceilMinutes rounds a duration up to whole minutes.
func ceilMinutes(d time.Duration) int64 {
	return int64((d + time.Minute - 1) / time.Minute)
}

// ceilDiv divides rounding up. A single minute into a new unit bills the
// full unit.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
