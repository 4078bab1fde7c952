// Package billing defines the billing rule corpus: rules, effective-dated
// versions, and the time-windowed pricing segments inside each version.
package billing

import (
	"fmt"
	"time"

	"parkfee/core/money"
	"parkfee/internal/errors"
)

// Kind identifies a segment pricing model.
type Kind string

const (
	// KindPeriodic charges a fixed price per billing unit of elapsed time.
	KindPeriodic Kind = "periodic"

	// KindTiered charges per unit with the price stepping at minute thresholds.
	KindTiered Kind = "tiered"

	// KindFree charges nothing inside its window.
	KindFree Kind = "free"
)

// TimeWindow is a daily time-of-day window in a named timezone.
// End < Start means the window wraps through midnight.
// Start == End means the window covers the whole day.
type TimeWindow struct {
	// StartMinute is minutes since local midnight, inclusive.
	StartMinute int

	// EndMinute is minutes since local midnight, exclusive.
	EndMinute int

	// TZName is the IANA zone name the window is anchored to.
	TZName string

	// Location is the loaded zone for TZName.
	Location *time.Location
}

// ParseClock parses an "HH:MM" clock value into minutes since midnight.
// "24:00" is accepted as an end-of-day marker and normalizes to 0.
func ParseClock(value string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	if h == 24 && m == 0 {
		return 0, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return h*60 + m, nil
}

// NewTimeWindow builds a window from "HH:MM" bounds and an IANA zone name.
func NewTimeWindow(start, end, tzName string) (TimeWindow, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("invalid timezone %q: %w", tzName, err)
	}
	return TimeWindow{
		StartMinute: startMin,
		EndMinute:   endMin,
		TZName:      tzName,
		Location:    loc,
	}, nil
}

// Wraps reports whether the window crosses local midnight.
func (w TimeWindow) Wraps() bool {
	return w.EndMinute < w.StartMinute
}

// ContainsMinute reports whether a minute-of-day falls inside the window.
func (w TimeWindow) ContainsMinute(minuteOfDay int) bool {
	if w.StartMinute == w.EndMinute {
		return true
	}
	if w.Wraps() {
		return minuteOfDay >= w.StartMinute || minuteOfDay < w.EndMinute
	}
	return minuteOfDay >= w.StartMinute && minuteOfDay < w.EndMinute
}

// Contains reports whether an instant falls inside the window,
// evaluated in the window's own timezone.
func (w TimeWindow) Contains(ts time.Time) bool {
	local := ts.In(w.Location)
	return w.ContainsMinute(local.Hour()*60 + local.Minute())
}

// StartClock formats the start bound as "HH:MM".
func (w TimeWindow) StartClock() string {
	return fmt.Sprintf("%02d:%02d", w.StartMinute/60, w.StartMinute%60)
}

// EndClock formats the end bound as "HH:MM".
func (w TimeWindow) EndClock() string {
	return fmt.Sprintf("%02d:%02d", w.EndMinute/60, w.EndMinute%60)
}

// Tier is one step of a tiered segment. Steps apply cumulatively from
// zero chargeable minutes within one calendar day.
type Tier struct {
	// ThresholdMinutes is the cumulative minute at which this step begins.
	ThresholdMinutes int

	// UnitMinutes is the billing unit size inside this step.
	UnitMinutes int

	// UnitPrice is the price per billing unit inside this step.
	UnitPrice money.Amount
}

// Segment is one pricing fragment of a rule version. Kind selects which
// parameter set applies; Validate enforces the per-kind shape.
type Segment struct {
	// Name identifies the segment in breakdowns.
	Name string

	// Kind is the pricing model tag.
	Kind Kind

	// Window is the daily time window the segment claims.
	Window TimeWindow

	// Weekdays restricts matching to ISO weekdays 1-7. Empty = every day.
	Weekdays []int

	// UnitMinutes is the billing unit size (periodic).
	UnitMinutes int

	// UnitPrice is the price per billing unit (periodic).
	UnitPrice money.Amount

	// FreeMinutes is the per-day grace allowance before charging starts.
	FreeMinutes int

	// MaxCharge caps the segment's charge within one calendar day.
	MaxCharge *money.Amount

	// Tiers are the cumulative price steps (tiered).
	Tiers []Tier
}

// Matches reports whether the segment claims the given instant:
// weekday filter and time window, both evaluated in the segment's zone.
func (s Segment) Matches(ts time.Time) bool {
	local := ts.In(s.Window.Location)
	if len(s.Weekdays) > 0 {
		iso := int(local.Weekday())
		if iso == 0 {
			iso = 7
		}
		found := false
		for _, d := range s.Weekdays {
			if d == iso {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return s.Window.ContainsMinute(local.Hour()*60 + local.Minute())
}

// Validate checks the per-kind parameter shape.
func (s Segment) Validate() error {
	if s.Name == "" {
		return errors.Input("segment name is required")
	}
	if s.Window.Location == nil {
		return errors.Newf(errors.TypeInput, "segment %s has no timezone", s.Name)
	}
	for _, d := range s.Weekdays {
		if d < 1 || d > 7 {
			return errors.Newf(errors.TypeInput, "segment %s: weekday %d out of range 1-7", s.Name, d)
		}
	}
	if s.MaxCharge != nil && s.MaxCharge.IsNegative() {
		return errors.Newf(errors.TypeInput, "segment %s: negative max_charge", s.Name)
	}
	if s.FreeMinutes < 0 {
		return errors.Newf(errors.TypeInput, "segment %s: negative free_minutes", s.Name)
	}

	switch s.Kind {
	case KindFree:
		return nil
	case KindPeriodic:
		if s.UnitMinutes <= 0 {
			return errors.Newf(errors.TypeInput, "segment %s: unit_minutes must be positive", s.Name)
		}
		if s.UnitPrice.IsNegative() {
			return errors.Newf(errors.TypeInput, "segment %s: negative unit_price", s.Name)
		}
		return nil
	case KindTiered:
		if len(s.Tiers) == 0 {
			return errors.Newf(errors.TypeInput, "segment %s: tiered segment needs at least one tier", s.Name)
		}
		if s.Tiers[0].ThresholdMinutes != 0 {
			return errors.Newf(errors.TypeInput, "segment %s: first tier must start at minute 0", s.Name)
		}
		prev := -1
		for i, tier := range s.Tiers {
			if tier.ThresholdMinutes <= prev {
				return errors.Newf(errors.TypeInput, "segment %s: tier %d threshold not increasing", s.Name, i)
			}
			if tier.UnitMinutes <= 0 {
				return errors.Newf(errors.TypeInput, "segment %s: tier %d unit_minutes must be positive", s.Name, i)
			}
			if tier.UnitPrice.IsNegative() {
				return errors.Newf(errors.TypeInput, "segment %s: tier %d negative unit_price", s.Name, i)
			}
			prev = tier.ThresholdMinutes
		}
		return nil
	default:
		return errors.Newf(errors.TypeInput, "segment %s: unknown kind %q", s.Name, s.Kind)
	}
}
