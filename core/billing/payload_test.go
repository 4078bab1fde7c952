package billing

import (
	"testing"
	"time"
)

const versionDocJSON = `{
  "effective_from": "2026-01-01T00:00:00Z",
  "effective_to": null,
  "priority": 100,
  "rule_payload": [
    {
      "name": "day",
      "type": "periodic",
      "time_window": {"start": "08:00", "end": "22:00", "timezone": "UTC"},
      "unit_minutes": 30,
      "unit_price": 2,
      "free_minutes": 30,
      "max_charge": 30
    },
    {
      "name": "night",
      "type": "free",
      "time_window": {"start": "22:00", "end": "08:00", "timezone": "UTC"}
    },
    {
      "name": "weekend",
      "type": "tiered",
      "time_window": {"start": "00:00", "end": "00:00", "timezone": "UTC"},
      "weekdays": [6, 7],
      "tiers": [
        {"threshold_minutes": 0, "unit_minutes": 30, "unit_price": 3},
        {"threshold_minutes": 120, "unit_minutes": 60, "unit_price": 2.5}
      ]
    }
  ]
}`

func TestDecodeVersion(t *testing.T) {
	version, err := DecodeVersion([]byte(versionDocJSON), 3, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if version.VersionNo != 3 {
		t.Errorf("version no = %d, want 3", version.VersionNo)
	}
	if version.Priority != 100 {
		t.Errorf("priority = %d, want 100", version.Priority)
	}
	if version.EffectiveTo != nil {
		t.Error("expected open-ended effective range")
	}
	if !version.EffectiveFrom.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("effective from = %v", version.EffectiveFrom)
	}
	if len(version.Segments) != 3 {
		t.Fatalf("segment count = %d, want 3", len(version.Segments))
	}

	day := version.Segments[0]
	if day.Kind != KindPeriodic {
		t.Errorf("day kind = %s", day.Kind)
	}
	if day.UnitPrice.Cents() != 200 {
		t.Errorf("day unit price = %d cents, want 200", day.UnitPrice.Cents())
	}
	if day.MaxCharge == nil || day.MaxCharge.Cents() != 3000 {
		t.Errorf("day max charge = %v, want 3000 cents", day.MaxCharge)
	}
	if day.FreeMinutes != 30 {
		t.Errorf("day free minutes = %d, want 30", day.FreeMinutes)
	}

	night := version.Segments[1]
	if night.Kind != KindFree {
		t.Errorf("night kind = %s", night.Kind)
	}
	if !night.Window.Wraps() {
		t.Error("night window should wrap through midnight")
	}

	weekend := version.Segments[2]
	if weekend.Kind != KindTiered {
		t.Errorf("weekend kind = %s", weekend.Kind)
	}
	if len(weekend.Tiers) != 2 {
		t.Fatalf("tier count = %d, want 2", len(weekend.Tiers))
	}
	if weekend.Tiers[1].UnitPrice.Cents() != 250 {
		t.Errorf("tier 1 price = %d cents, want 250", weekend.Tiers[1].UnitPrice.Cents())
	}
	if len(weekend.Weekdays) != 2 {
		t.Errorf("weekend weekdays = %v", weekend.Weekdays)
	}
}

func TestDecodeVersionErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "malformed json",
			doc:  `{"effective_from": `,
		},
		{
			name: "sub-cent price",
			doc: `{"effective_from": "2026-01-01T00:00:00Z", "priority": 100,
				"rule_payload": [{"name": "day", "type": "periodic",
				"time_window": {"start": "08:00", "end": "22:00", "timezone": "UTC"},
				"unit_minutes": 30, "unit_price": 2.001}]}`,
		},
		{
			name: "unknown timezone",
			doc: `{"effective_from": "2026-01-01T00:00:00Z", "priority": 100,
				"rule_payload": [{"name": "day", "type": "free",
				"time_window": {"start": "08:00", "end": "22:00", "timezone": "Mars/Olympus"}}]}`,
		},
		{
			name: "effective_to before effective_from",
			doc: `{"effective_from": "2026-02-01T00:00:00Z",
				"effective_to": "2026-01-01T00:00:00Z", "priority": 100, "rule_payload": []}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeVersion([]byte(tt.doc), 1, "UTC"); err == nil {
				t.Error("expected decode error, got nil")
			}
		})
	}
}

func TestEncodeSegmentsRoundTrip(t *testing.T) {
	version, err := DecodeVersion([]byte(versionDocJSON), 1, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := EncodeSegments(version.Segments)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeSegments(data, "UTC")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded) != len(version.Segments) {
		t.Fatalf("segment count changed: %d -> %d", len(version.Segments), len(decoded))
	}
	for i := range decoded {
		if decoded[i].Name != version.Segments[i].Name {
			t.Errorf("segment %d name %q != %q", i, decoded[i].Name, version.Segments[i].Name)
		}
		if decoded[i].Kind != version.Segments[i].Kind {
			t.Errorf("segment %d kind changed", i)
		}
		if decoded[i].UnitPrice != version.Segments[i].UnitPrice {
			t.Errorf("segment %d unit price changed", i)
		}
	}
}
