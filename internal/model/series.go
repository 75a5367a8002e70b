package model

import (
	"fmt"
	"time"
)

// CandleSeries is an ordered sequence of candles for one
// (instrument, granularity) pair. Read-only after construction except
// for the one-shot RSI augmentation.
type CandleSeries struct {
	Instrument  string
	Granularity string

	candles   []Candle
	rsiPeriod int
}

// NewCandleSeries validates ordering and builds a series. Candles must
// be in strictly ascending time order with unique timestamps.
func NewCandleSeries(instrument, granularity string, candles []Candle) (*CandleSeries, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return nil, fmt.Errorf("candle series %s %s: non-ascending timestamp at index %d (%s after %s)",
				instrument, granularity, i, candles[i].Time, candles[i-1].Time)
		}
	}
	cs := make([]Candle, len(candles))
	copy(cs, candles)
	return &CandleSeries{
		Instrument:  instrument,
		Granularity: granularity,
		candles:     cs,
	}, nil
}

// Len returns the number of candles.
func (s *CandleSeries) Len() int { return len(s.candles) }

// At returns the candle at index i.
func (s *CandleSeries) At(i int) Candle { return s.candles[i] }

// Candles returns the backing slice. Callers must not mutate it.
func (s *CandleSeries) Candles() []Candle { return s.candles }

// First returns the earliest candle.
func (s *CandleSeries) First() Candle { return s.candles[0] }

// Last returns the most recent candle.
func (s *CandleSeries) Last() Candle { return s.candles[len(s.candles)-1] }

// IndexOf returns the index of the candle with the given timestamp.
func (s *CandleSeries) IndexOf(t time.Time) (int, bool) {
	for i, c := range s.candles {
		if c.Time.Equal(t) {
			return i, true
		}
	}
	return 0, false
}

// IndexAtOrAfter returns the index of the first candle at or after t.
func (s *CandleSeries) IndexAtOrAfter(t time.Time) (int, bool) {
	for i, c := range s.candles {
		if !c.Time.Before(t) {
			return i, true
		}
	}
	return 0, false
}

// SliceTo returns a sub-series of all candles up to and including t.
func (s *CandleSeries) SliceTo(t time.Time) (*CandleSeries, error) {
	end := -1
	for i, c := range s.candles {
		if c.Time.After(t) {
			break
		}
		end = i
	}
	if end < 0 {
		return nil, fmt.Errorf("candle series %s %s: no candles at or before %s", s.Instrument, s.Granularity, t)
	}
	return NewCandleSeries(s.Instrument, s.Granularity, s.candles[:end+1])
}

// CalcRSI computes the Relative Strength Index for every candle from
// index period onward, using Wilder's exponential smoothing
// (com = period-1). Must run exactly once before any RSI read;
// concurrent augmentation of the same series is unsafe.
func (s *CandleSeries) CalcRSI(period int) {
	if s.rsiPeriod != 0 {
		panic("model: CalcRSI called twice on the same series")
	}
	if period <= 0 {
		panic("model: CalcRSI with non-positive period")
	}
	s.rsiPeriod = period
	if len(s.candles) < period+1 {
		return
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := s.candles[i].Close - s.candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	s.candles[period].rsi = rsiFrom(avgGain, avgLoss)
	s.candles[period].hasRSI = true

	for i := period + 1; i < len(s.candles); i++ {
		change := s.candles[i].Close - s.candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		s.candles[i].rsi = rsiFrom(avgGain, avgLoss)
		s.candles[i].hasRSI = true
	}
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
