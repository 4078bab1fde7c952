// Package interval decomposes an [entry, exit) instant range into
// chronological sub-ranges, each lying within one calendar day and one
// pricing segment. Day boundaries are evaluated in each segment's own
// timezone; windows that cross midnight split into their two halves.
package interval

import (
	"sort"
	"time"

	"parkfee/core/billing"
	"parkfee/internal/errors"
)

// DayKeyLayout formats the calendar-day grouping key.
const DayKeyLayout = "2006-01-02"

// SubRange is one claimed slice of the billed interval. It never spans
// more than one calendar day or one segment.
type SubRange struct {
	// Day is the calendar day key, in the claiming segment's timezone.
	Day string

	// SegmentIndex is the declaration index of the claiming segment.
	SegmentIndex int

	// Start is the inclusive start instant.
	Start time.Time

	// End is the exclusive end instant.
	End time.Time
}

// Duration returns the sub-range length.
func (r SubRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Sequence is a lazy, finite, restartable stream of sub-ranges in
// chronological order. It is not safe for concurrent use; each
// computation builds its own Sequence.
type Sequence struct {
	segments []billing.Segment

	// cuts holds every instant where a claim can change: entry, exit,
	// per-segment local midnights and window edges, sorted ascending.
	cuts []time.Time

	pos     int
	pending *SubRange
}

// Split validates the interval and prepares the sub-range sequence.
// Fails with InvalidInterval when exit <= entry.
func Split(entry, exit time.Time, segments []billing.Segment) (*Sequence, error) {
	if !exit.After(entry) {
		return nil, errors.InvalidInterval("exit must be after entry")
	}
	return &Sequence{
		segments: segments,
		cuts:     cutInstants(entry, exit, segments),
	}, nil
}

// Reset rewinds the sequence to the beginning.
func (s *Sequence) Reset() {
	s.pos = 0
	s.pending = nil
}

// Next returns the next sub-range. The second return is false once the
// sequence is exhausted. Fails with UncoveredInterval when an instant in
// the billed range is claimed by no segment.
func (s *Sequence) Next() (SubRange, bool, error) {
	for s.pos < len(s.cuts)-1 {
		start, end := s.cuts[s.pos], s.cuts[s.pos+1]
		if !end.After(start) {
			s.pos++
			continue
		}

		idx := s.claim(start)
		if idx < 0 {
			return SubRange{}, false, errors.UncoveredInterval(
				"no segment claims interval starting at " + start.Format(time.RFC3339))
		}

		day := start.In(s.segments[idx].Window.Location).Format(DayKeyLayout)
		s.pos++

		if s.pending == nil {
			s.pending = &SubRange{Day: day, SegmentIndex: idx, Start: start, End: end}
			continue
		}
		if s.pending.SegmentIndex == idx && s.pending.Day == day && s.pending.End.Equal(start) {
			s.pending.End = end
			continue
		}

		out := *s.pending
		s.pending = &SubRange{Day: day, SegmentIndex: idx, Start: start, End: end}
		return out, true, nil
	}

	if s.pending != nil {
		out := *s.pending
		s.pending = nil
		return out, true, nil
	}
	return SubRange{}, false, nil
}

// Collect drains the sequence into a slice and resets it.
func (s *Sequence) Collect() ([]SubRange, error) {
	s.Reset()
	var out []SubRange
	for {
		sub, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, sub)
	}
	s.Reset()
	return out, nil
}

// claim returns the declaration index of the first segment matching the
// instant, or -1. First match wins when windows overlap.
func (s *Sequence) claim(ts time.Time) int {
	for i, seg := range s.segments {
		if seg.Matches(ts) {
			return i
		}
	}
	return -1
}

// cutInstants collects entry, exit, and every per-segment local midnight
// and window edge inside (entry, exit), sorted and deduplicated. Claims
// are constant between consecutive cuts.
func cutInstants(entry, exit time.Time, segments []billing.Segment) []time.Time {
	seen := map[int64]time.Time{
		entry.UnixNano(): entry,
		exit.UnixNano():  exit,
	}
	add := func(ts time.Time) {
		if ts.After(entry) && ts.Before(exit) {
			seen[ts.UnixNano()] = ts
		}
	}

	for _, seg := range segments {
		loc := seg.Window.Location
		local := entry.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

		for !day.After(exit) {
			add(day)
			add(clockOn(day, seg.Window.StartMinute, loc))
			add(clockOn(day, seg.Window.EndMinute, loc))
			day = day.AddDate(0, 0, 1)
		}
		add(day) // midnight closing the final day
	}

	cuts := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		cuts = append(cuts, ts)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].Before(cuts[j]) })
	return cuts
}

// clockOn returns the instant at minuteOfDay on the calendar day of
// midnight, in the given zone.
func clockOn(midnight time.Time, minuteOfDay int, loc *time.Location) time.Time {
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(),
		minuteOfDay/60, minuteOfDay%60, 0, 0, loc)
}
