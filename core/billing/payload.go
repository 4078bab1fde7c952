package billing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"parkfee/core/money"
	"parkfee/internal/errors"
)

// Wire format for persisted rule version payloads. This is the only
// serialized shape the engine must parse bit-exactly; the storage layer
// hands these documents through unmodified.

// VersionDoc is the persisted JSON shape of one rule version.
type VersionDoc struct {
	EffectiveFrom time.Time    `json:"effective_from"`
	EffectiveTo   *time.Time   `json:"effective_to"`
	Priority      int          `json:"priority"`
	RulePayload   []SegmentDoc `json:"rule_payload"`
}

// SegmentDoc is the persisted JSON shape of one segment.
type SegmentDoc struct {
	Name       string           `json:"name"`
	Type       string           `json:"type"`
	TimeWindow *TimeWindowDoc   `json:"time_window,omitempty"`
	Weekdays   []int            `json:"weekdays,omitempty"`
	UnitMin    int              `json:"unit_minutes,omitempty"`
	UnitPrice  *decimal.Decimal `json:"unit_price,omitempty"`
	FreeMin    int              `json:"free_minutes,omitempty"`
	MaxCharge  *decimal.Decimal `json:"max_charge,omitempty"`
	Tiers      []TierDoc        `json:"tiers,omitempty"`
}

// TimeWindowDoc is the persisted JSON shape of a segment time window.
type TimeWindowDoc struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// TierDoc is the persisted JSON shape of one tier step.
type TierDoc struct {
	ThresholdMinutes int             `json:"threshold_minutes"`
	UnitMinutes      int             `json:"unit_minutes"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// DecodeVersion parses a persisted version document into a Version.
// Segments without a timezone fall back to defaultTZ.
func DecodeVersion(data []byte, versionNo int, defaultTZ string) (Version, error) {
	var doc VersionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Version{}, errors.Wrap(errors.TypeInput, "malformed version document", err)
	}

	segments, err := segmentsFromDocs(doc.RulePayload, defaultTZ)
	if err != nil {
		return Version{}, err
	}

	version := Version{
		VersionNo:     versionNo,
		EffectiveFrom: doc.EffectiveFrom,
		EffectiveTo:   doc.EffectiveTo,
		Priority:      doc.Priority,
		Segments:      segments,
	}
	if err := version.Validate(); err != nil {
		return Version{}, err
	}
	return version, nil
}

// DecodeSegments parses a bare rule_payload array into segments.
func DecodeSegments(data []byte, defaultTZ string) ([]Segment, error) {
	var docs []SegmentDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "malformed rule payload", err)
	}
	return segmentsFromDocs(docs, defaultTZ)
}

func segmentsFromDocs(docs []SegmentDoc, defaultTZ string) ([]Segment, error) {
	segments := make([]Segment, 0, len(docs))
	for i, doc := range docs {
		seg, err := doc.toSegment(defaultTZ)
		if err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "segment %d (%s)", i, doc.Name)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (d SegmentDoc) toSegment(defaultTZ string) (Segment, error) {
	start, end, tzName := "00:00", "00:00", defaultTZ
	if d.TimeWindow != nil {
		start, end = d.TimeWindow.Start, d.TimeWindow.End
		if d.TimeWindow.Timezone != "" {
			tzName = d.TimeWindow.Timezone
		}
	}
	window, err := NewTimeWindow(start, end, tzName)
	if err != nil {
		return Segment{}, err
	}

	seg := Segment{
		Name:        d.Name,
		Kind:        Kind(d.Type),
		Window:      window,
		Weekdays:    d.Weekdays,
		UnitMinutes: d.UnitMin,
		FreeMinutes: d.FreeMin,
	}

	if d.UnitPrice != nil {
		price, err := money.FromDecimal(*d.UnitPrice)
		if err != nil {
			return Segment{}, err
		}
		seg.UnitPrice = price
	}
	if d.MaxCharge != nil {
		maxCharge, err := money.FromDecimal(*d.MaxCharge)
		if err != nil {
			return Segment{}, err
		}
		seg.MaxCharge = &maxCharge
	}
	for _, tierDoc := range d.Tiers {
		price, err := money.FromDecimal(tierDoc.UnitPrice)
		if err != nil {
			return Segment{}, err
		}
		seg.Tiers = append(seg.Tiers, Tier{
			ThresholdMinutes: tierDoc.ThresholdMinutes,
			UnitMinutes:      tierDoc.UnitMinutes,
			UnitPrice:        price,
		})
	}

	if err := seg.Validate(); err != nil {
		return Segment{}, err
	}
	return seg, nil
}

// EncodeSegments serializes segments back to the persisted payload shape.
func EncodeSegments(segments []Segment) ([]byte, error) {
	docs := make([]SegmentDoc, 0, len(segments))
	for _, seg := range segments {
		docs = append(docs, segmentToDoc(seg))
	}
	return json.Marshal(docs)
}

func segmentToDoc(seg Segment) SegmentDoc {
	doc := SegmentDoc{
		Name: seg.Name,
		Type: string(seg.Kind),
		TimeWindow: &TimeWindowDoc{
			Start:    seg.Window.StartClock(),
			End:      seg.Window.EndClock(),
			Timezone: seg.Window.TZName,
		},
		Weekdays: seg.Weekdays,
		UnitMin:  seg.UnitMinutes,
		FreeMin:  seg.FreeMinutes,
	}
	if seg.Kind == KindPeriodic {
		price := seg.UnitPrice.Decimal()
		doc.UnitPrice = &price
	}
	if seg.MaxCharge != nil {
		maxCharge := seg.MaxCharge.Decimal()
		doc.MaxCharge = &maxCharge
	}
	for _, tier := range seg.Tiers {
		doc.Tiers = append(doc.Tiers, TierDoc{
			ThresholdMinutes: tier.ThresholdMinutes,
			UnitMinutes:      tier.UnitMinutes,
			UnitPrice:        tier.UnitPrice.Decimal(),
		})
	}
	return doc
}
