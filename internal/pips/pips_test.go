package pips

import (
	"errors"
	"math"
	"testing"
)

func TestDivisor(t *testing.T) {
	tests := []struct {
		instrument string
		want       float64
		wantErr    bool
	}{
		{"EUR_USD", 10000, false},
		{"USD_JPY", 100, false},
		{"AUD_JPY", 100, false},
		{"GBP_NZD", 10000, false},
		{"EURUSD", 0, true},
		{"EUR/USD", 0, true},
		{"_USD", 0, true},
	}

	for _, tt := range tests {
		got, err := Divisor(tt.instrument)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Divisor(%q): expected error, got %v", tt.instrument, got)
			} else if !errors.Is(err, ErrBadInstrument) {
				t.Errorf("Divisor(%q): error %v is not ErrBadInstrument", tt.instrument, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Divisor(%q): unexpected error %v", tt.instrument, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Divisor(%q) = %v, want %v", tt.instrument, got, tt.want)
		}
	}
}

func TestAddSubtractRoundTrip(t *testing.T) {
	tests := []struct {
		instrument string
		price      float64
		pips       float64
	}{
		{"EUR_USD", 1.1234, 50},
		{"EUR_USD", 0.9871, 7},
		{"USD_JPY", 110.57, 30},
		{"AUD_JPY", 83.01, 125},
	}

	for _, tt := range tests {
		up, err := Add2Price(tt.instrument, tt.price, tt.pips)
		if err != nil {
			t.Fatalf("Add2Price: %v", err)
		}
		back, err := Subtract2Price(tt.instrument, up, tt.pips)
		if err != nil {
			t.Fatalf("Subtract2Price: %v", err)
		}
		if math.Abs(back-tt.price) > 1e-9 {
			t.Errorf("%s: round trip %v -> %v -> %v", tt.instrument, tt.price, up, back)
		}
	}
}

func TestDistance(t *testing.T) {
	d, err := Distance("EUR_USD", 1.1000, 1.1050)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-50) > 1e-6 {
		t.Errorf("Distance = %v, want 50", d)
	}

	d, err = Distance("USD_JPY", 110.00, 109.40)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-60) > 1e-6 {
		t.Errorf("Distance = %v, want 60", d)
	}
}

func TestRoundPrice(t *testing.T) {
	p, err := RoundPrice("EUR_USD", 1.123456)
	if err != nil {
		t.Fatal(err)
	}
	if p != 1.1235 {
		t.Errorf("RoundPrice EUR_USD = %v, want 1.1235", p)
	}
	p, err = RoundPrice("USD_JPY", 110.5678)
	if err != nil {
		t.Fatal(err)
	}
	if p != 110.57 {
		t.Errorf("RoundPrice USD_JPY = %v, want 110.57", p)
	}
}
