package model

import "time"

// Colour classifies a candle body.
type Colour int

const (
	ColourUndefined Colour = iota
	ColourGreen
	ColourRed
)

func (c Colour) String() string {
	switch c {
	case ColourGreen:
		return "green"
	case ColourRed:
		return "red"
	default:
		return "undefined"
	}
}

// Candle represents a single OHLC price candle. Immutable once
// constructed; RSI is attached later by CandleSeries.CalcRSI.
type Candle struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Complete bool

	rsi    float64
	hasRSI bool
}

// Colour returns green for a rising body, red for a falling one and
// undefined for a doji.
func (c Candle) Colour() Colour {
	switch {
	case c.Close > c.Open:
		return ColourGreen
	case c.Close < c.Open:
		return ColourRed
	default:
		return ColourUndefined
	}
}

// BodyPercent returns the body size as a percentage of the full candle
// height, 0 when the candle has no height.
func (c Candle) BodyPercent() float64 {
	height := c.High - c.Low
	if height == 0 {
		return 0
	}
	body := c.Open - c.Close
	if body < 0 {
		body = -body
	}
	return body / height * 100
}

// RSI returns the candle's RSI value. Panics when CalcRSI has not run
// over this candle: reading an absent RSI is a programmer error, not a
// recoverable condition.
func (c Candle) RSI() float64 {
	if !c.hasRSI {
		panic("model: RSI read before CalcRSI")
	}
	return c.rsi
}

// HasRSI reports whether CalcRSI has populated this candle.
func (c Candle) HasRSI() bool { return c.hasRSI }

// Contains reports whether price falls within the candle's low/high
// range, inclusive.
func (c Candle) Contains(price float64) bool {
	return c.Low <= price && price <= c.High
}
