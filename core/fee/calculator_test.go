package fee

import (
	"testing"
	"time"

	"parkfee/core/billing"
	"parkfee/core/interval"
	"parkfee/core/money"
)

func mustWindow(t *testing.T, start, end string) billing.TimeWindow {
	t.Helper()
	w, err := billing.NewTimeWindow(start, end, "UTC")
	if err != nil {
		t.Fatalf("window %s-%s: %v", start, end, err)
	}
	return w
}

func computeFee(t *testing.T, segments []billing.Segment, entry, exit time.Time) *Result {
	t.Helper()
	seq, err := interval.Split(entry, exit, segments)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	result, err := Compute(seq, segments)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	return result
}

func TestPeriodicCeilingRounding(t *testing.T) {
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic, Window: mustWindow(t, "00:00", "00:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200)},
	}
	entry := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		minutes   int
		wantCents int64
	}{
		{name: "one minute bills a full unit", minutes: 1, wantCents: 200},
		{name: "31 minutes bills two units", minutes: 31, wantCents: 400},
		{name: "exactly 60 minutes bills two units", minutes: 60, wantCents: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := entry.Add(time.Duration(tt.minutes) * time.Minute)
			result := computeFee(t, segments, entry, exit)
			if result.TotalAmount.Cents() != tt.wantCents {
				t.Errorf("%d minutes = %d cents, want %d", tt.minutes, result.TotalAmount.Cents(), tt.wantCents)
			}
		})
	}
}

func TestFreeAllowanceBoundary(t *testing.T) {
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic, Window: mustWindow(t, "00:00", "00:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200), FreeMinutes: 30},
	}
	entry := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		minutes   int
		wantCents int64
	}{
		{minutes: 29, wantCents: 0},
		{minutes: 30, wantCents: 0},
		{minutes: 31, wantCents: 200},
	}

	for _, tt := range tests {
		exit := entry.Add(time.Duration(tt.minutes) * time.Minute)
		result := computeFee(t, segments, entry, exit)
		if result.TotalAmount.Cents() != tt.wantCents {
			t.Errorf("%d minutes = %d cents, want %d", tt.minutes, result.TotalAmount.Cents(), tt.wantCents)
		}
	}
}

func TestDailyCapResets(t *testing.T) {
	capAmount := money.FromCents(2000)
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic, Window: mustWindow(t, "00:00", "00:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(100), MaxCharge: &capAmount},
	}

	entry := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	exit := entry.AddDate(0, 0, 3)
	result := computeFee(t, segments, entry, exit)

	// 48 units/day at 1.00 would be 48.00; the cap holds each day at
	// 20.00 and resets at midnight, never accumulating across days.
	if result.TotalAmount.Cents() != 6000 {
		t.Errorf("3 capped days = %d cents, want 6000", result.TotalAmount.Cents())
	}
	if len(result.Breakdown) != 1 {
		t.Fatalf("breakdown size = %d, want 1", len(result.Breakdown))
	}
	if result.Breakdown[0].CappedDays != 3 {
		t.Errorf("capped days = %d, want 3", result.Breakdown[0].CappedDays)
	}
}

func TestCrossMidnightFreeWindow(t *testing.T) {
	segments := []billing.Segment{
		{Name: "overnight", Kind: billing.KindFree, Window: mustWindow(t, "22:00", "08:00")},
		{Name: "day", Kind: billing.KindPeriodic, Window: mustWindow(t, "08:00", "22:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200)},
	}

	tests := []struct {
		name  string
		entry time.Time
		exit  time.Time
	}{
		{
			name:  "late evening only",
			entry: time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC),
			exit:  time.Date(2026, 3, 1, 23, 45, 0, 0, time.UTC),
		},
		{
			name:  "early morning only",
			entry: time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC),
			exit:  time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC),
		},
		{
			name:  "spanning midnight",
			entry: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC),
			exit:  time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := computeFee(t, segments, tt.entry, tt.exit)
			if !result.TotalAmount.IsZero() {
				t.Errorf("overnight stay charged %d cents, want 0", result.TotalAmount.Cents())
			}
		})
	}
}

func TestAllowanceRefillsEachDay(t *testing.T) {
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic, Window: mustWindow(t, "00:00", "00:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200), FreeMinutes: 30},
	}

	// 20 minutes at the end of day one, 20 at the start of day two:
	// each day stays inside its own allowance.
	entry := time.Date(2026, 3, 1, 23, 40, 0, 0, time.UTC)
	exit := time.Date(2026, 3, 2, 0, 20, 0, 0, time.UTC)
	result := computeFee(t, segments, entry, exit)
	if !result.TotalAmount.IsZero() {
		t.Errorf("split allowance charged %d cents, want 0", result.TotalAmount.Cents())
	}
}

func TestAllowanceRefillsAtSegmentLocalMidnight(t *testing.T) {
	east := time.FixedZone("UTC+8", 8*3600)
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic,
			Window:      billing.TimeWindow{TZName: east.String(), Location: east},
			UnitMinutes: 30, UnitPrice: money.FromCents(100), FreeMinutes: 30},
	}

	// 15:00Z-17:00Z is 23:00-01:00 in the segment's zone: one hour on
	// each side of its local midnight. Each local day consumes its own
	// 30-minute allowance and bills one unit. Folding the whole stay
	// into a single UTC day would bill three units instead.
	entry := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	exit := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	result := computeFee(t, segments, entry, exit)
	if result.TotalAmount.Cents() != 200 {
		t.Errorf("stay across the segment's local midnight = %d cents, want 200",
			result.TotalAmount.Cents())
	}
}

func TestCapResetsAtSegmentLocalMidnight(t *testing.T) {
	east := time.FixedZone("UTC+8", 8*3600)
	capAmount := money.FromCents(300)
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic,
			Window:      billing.TimeWindow{TZName: east.String(), Location: east},
			UnitMinutes: 30, UnitPrice: money.FromCents(300), MaxCharge: &capAmount},
	}

	// One hour on each side of the segment's local midnight (16:00Z):
	// each local day would bill 6.00 and is capped at 3.00 separately.
	entry := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	exit := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	result := computeFee(t, segments, entry, exit)

	if result.TotalAmount.Cents() != 600 {
		t.Errorf("two capped local days = %d cents, want 600", result.TotalAmount.Cents())
	}
	if len(result.Breakdown) != 1 {
		t.Fatalf("breakdown size = %d, want 1", len(result.Breakdown))
	}
	if result.Breakdown[0].CappedDays != 2 {
		t.Errorf("capped days = %d, want 2", result.Breakdown[0].CappedDays)
	}
}

func TestTieredChargeSplitsAtThreshold(t *testing.T) {
	segments := []billing.Segment{
		{Name: "stepped", Kind: billing.KindTiered, Window: mustWindow(t, "00:00", "00:00"),
			Tiers: []billing.Tier{
				{ThresholdMinutes: 0, UnitMinutes: 30, UnitPrice: money.FromCents(300)},
				{ThresholdMinutes: 120, UnitMinutes: 60, UnitPrice: money.FromCents(200)},
			}},
	}
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		minutes   int
		wantCents int64
	}{
		// 90 min inside tier 0: ceil(90/30)=3 units at 3.00.
		{name: "inside first tier", minutes: 90, wantCents: 900},
		// 120 min: exactly fills tier 0 (4 units at 3.00).
		{name: "exactly at threshold", minutes: 120, wantCents: 1200},
		// 150 min: tier 0 full (12.00) + 30 min in tier 1 ceil(30/60)=1 unit at 2.00.
		{name: "crossing the threshold", minutes: 150, wantCents: 1400},
		// 300 min: 12.00 + 180 min in tier 1 = 3 units = 6.00.
		{name: "deep into second tier", minutes: 300, wantCents: 1800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := entry.Add(time.Duration(tt.minutes) * time.Minute)
			result := computeFee(t, segments, entry, exit)
			if result.TotalAmount.Cents() != tt.wantCents {
				t.Errorf("%d minutes = %d cents, want %d", tt.minutes, result.TotalAmount.Cents(), tt.wantCents)
			}
		})
	}
}

func TestEndToEndScenario(t *testing.T) {
	capAmount := money.FromCents(3000)
	segments := []billing.Segment{
		{Name: "day", Kind: billing.KindPeriodic, Window: mustWindow(t, "08:00", "22:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200), FreeMinutes: 30, MaxCharge: &capAmount},
		{Name: "night", Kind: billing.KindFree, Window: mustWindow(t, "22:00", "08:00")},
	}

	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	exit := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	result := computeFee(t, segments, entry, exit)

	// Day one: 840 min - 30 free = 810 -> 27 units = 54.00, capped at 30.00.
	// Night: free. Day two: 65 min - 30 free = 35 -> 2 units = 4.00.
	if result.TotalAmount.Cents() != 3400 {
		t.Errorf("total = %d cents, want 3400", result.TotalAmount.Cents())
	}

	if len(result.Breakdown) != 2 {
		t.Fatalf("breakdown size = %d, want 2", len(result.Breakdown))
	}
	day := result.Breakdown[0]
	if day.SegmentName != "day" || day.Amount.Cents() != 3400 {
		t.Errorf("day charge = %+v, want 34.00 on segment day", day)
	}
	if day.CappedDays != 1 {
		t.Errorf("day capped days = %d, want 1", day.CappedDays)
	}
	night := result.Breakdown[1]
	if night.SegmentName != "night" || !night.Amount.IsZero() {
		t.Errorf("night charge = %+v, want zero", night)
	}
	if night.Minutes != 600 {
		t.Errorf("night minutes = %d, want 600", night.Minutes)
	}
	if result.DurationMinutes != 1505 {
		t.Errorf("duration = %d minutes, want 1505", result.DurationMinutes)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	capAmount := money.FromCents(3000)
	segments := []billing.Segment{
		{Name: "day", Kind: billing.KindPeriodic, Window: mustWindow(t, "08:00", "22:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200), FreeMinutes: 30, MaxCharge: &capAmount},
		{Name: "night", Kind: billing.KindFree, Window: mustWindow(t, "22:00", "08:00")},
	}
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	exit := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)

	first := computeFee(t, segments, entry, exit)
	second := computeFee(t, segments, entry, exit)

	if first.TotalAmount != second.TotalAmount {
		t.Errorf("totals differ: %d vs %d", first.TotalAmount.Cents(), second.TotalAmount.Cents())
	}
	if len(first.Breakdown) != len(second.Breakdown) {
		t.Fatalf("breakdown sizes differ")
	}
	for i := range first.Breakdown {
		if first.Breakdown[i] != second.Breakdown[i] {
			t.Errorf("breakdown entry %d differs: %+v vs %+v", i, first.Breakdown[i], second.Breakdown[i])
		}
	}
}

func TestZeroDurationSubRangeIsNoOp(t *testing.T) {
	segments := []billing.Segment{
		{Name: "allday", Kind: billing.KindPeriodic, Window: mustWindow(t, "00:00", "00:00"),
			UnitMinutes: 30, UnitPrice: money.FromCents(200)},
	}
	// One second still bills a full unit; the ceiling applies to any
	// partial minute, and any partial unit.
	entry := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	result := computeFee(t, segments, entry, entry.Add(time.Second))
	if result.TotalAmount.Cents() != 200 {
		t.Errorf("one second = %d cents, want 200", result.TotalAmount.Cents())
	}
	if result.DurationMinutes != 0 {
		t.Errorf("duration = %d minutes, want 0", result.DurationMinutes)
	}
}
