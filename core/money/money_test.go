package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromDecimal(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{name: "whole units", value: "2", want: 200},
		{name: "two decimals", value: "2.50", want: 250},
		{name: "zero", value: "0", want: 0},
		{name: "one cent", value: "0.01", want: 1},
		{name: "sub-cent precision rejected", value: "2.001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.value)
			if err != nil {
				t.Fatalf("bad test value: %v", err)
			}
			got, err := FromDecimal(d)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cents() != tt.want {
				t.Errorf("FromDecimal(%s) = %d cents, want %d", tt.value, got.Cents(), tt.want)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := FromCents(3400)
	b := FromCents(3000)

	if got := a.Sub(b).Cents(); got != 400 {
		t.Errorf("Sub = %d, want 400", got)
	}
	if got := a.Add(b).Cents(); got != 6400 {
		t.Errorf("Add = %d, want 6400", got)
	}
	if got := FromCents(200).MulUnits(27).Cents(); got != 5400 {
		t.Errorf("MulUnits = %d, want 5400", got)
	}
	if got := Min(a, b); got != b {
		t.Errorf("Min = %d, want %d", got.Cents(), b.Cents())
	}
	if b.Sub(a).IsNegative() != true {
		t.Error("expected negative difference")
	}
}

func TestAmountString(t *testing.T) {
	if got := FromCents(3400).String(); got != "34.00" {
		t.Errorf("String = %q, want 34.00", got)
	}
	if got := FromCents(5).String(); got != "0.05" {
		t.Errorf("String = %q, want 0.05", got)
	}
}
