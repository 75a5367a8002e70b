// Package pips converts between raw prices and pip distances for forex
// instruments. Instrument codes are expected in "BASE_QUOTE" form, e.g.
// "EUR_USD" or "USD_JPY".
package pips

import (
	"fmt"
	"math"
	"strings"
)

// ErrBadInstrument is returned when an instrument code is not of the
// form "BASE_QUOTE".
var ErrBadInstrument = fmt.Errorf("instrument code must be underscore-separated, e.g. EUR_USD")

// Divisor returns the pip divisor for the instrument: 100 for
// JPY-quoted pairs (2-decimal quoting), 10000 otherwise.
func Divisor(instrument string) (float64, error) {
	parts := strings.Split(instrument, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, fmt.Errorf("%w: %q", ErrBadInstrument, instrument)
	}
	if parts[1] == "JPY" {
		return 100, nil
	}
	return 10000, nil
}

// Decimals returns the quoting precision for the instrument: 2 for
// JPY-quoted pairs, 4 otherwise.
func Decimals(instrument string) (int, error) {
	div, err := Divisor(instrument)
	if err != nil {
		return 0, err
	}
	if div == 100 {
		return 2, nil
	}
	return 4, nil
}

// Add2Price adds n pips to price and rounds to the instrument's quoting
// precision.
func Add2Price(instrument string, price, n float64) (float64, error) {
	div, err := Divisor(instrument)
	if err != nil {
		return 0, err
	}
	dec, _ := Decimals(instrument)
	return roundTo(price+n/div, dec), nil
}

// Subtract2Price subtracts n pips from price and rounds to the
// instrument's quoting precision.
func Subtract2Price(instrument string, price, n float64) (float64, error) {
	return Add2Price(instrument, price, -n)
}

// Distance returns the absolute distance between two prices in pips.
func Distance(instrument string, a, b float64) (float64, error) {
	div, err := Divisor(instrument)
	if err != nil {
		return 0, err
	}
	return math.Abs(a-b) * div, nil
}

// Price2Pips converts a raw price delta to pips, preserving sign.
func Price2Pips(instrument string, delta float64) (float64, error) {
	div, err := Divisor(instrument)
	if err != nil {
		return 0, err
	}
	return delta * div, nil
}

// RoundPrice rounds price to the instrument's quoting precision.
func RoundPrice(instrument string, price float64) (float64, error) {
	dec, err := Decimals(instrument)
	if err != nil {
		return 0, err
	}
	return roundTo(price, dec), nil
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
