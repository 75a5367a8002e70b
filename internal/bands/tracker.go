// Package bands answers time questions about a price band: when price
// was last on one side of it, and the fine-grained instant a candle
// crossed it.
package bands

import (
	"context"
	"time"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
)

// Side selects which side of the band a query refers to.
type Side int

const (
	Above Side = iota
	Below
)

func (s Side) String() string {
	if s == Above {
		return "above"
	}
	return "below"
}

// SeriesProvider fetches a candle series for an instrument window.
// Implemented by marketdata.Client; tests stub it.
type SeriesProvider interface {
	FetchSeries(ctx context.Context, instrument, granularity string, start, end time.Time) (*model.CandleSeries, error)
}

// LastTime scans backward from the most recent candle, skipping the
// first minCandles so the setup itself is not reported, and returns
// the time of the first candle strictly beyond the band edge on the
// requested side. When no candle qualifies it returns the series'
// first candle time as a sentinel, never a zero time.
func LastTime(series *model.CandleSeries, level model.Level, side Side, minCandles int) time.Time {
	for i := series.Len() - 1 - minCandles; i >= 0; i-- {
		c := series.At(i)
		if side == Above && c.Low > level.Upper {
			return c.Time
		}
		if side == Below && c.High < level.Lower {
			return c.Time
		}
	}
	return series.First().Time
}

// CrossTime returns the instant candle crossed level.Price, resolved
// against a finer-granularity sub-series spanning the candle's
// interval. The second return is false when the coarse candle never
// touched the price, or when it did but no finer candle does (a data
// artifact); callers report that case as "n.a.".
func CrossTime(ctx context.Context, provider SeriesProvider, instrument string, candle model.Candle, coarseGranularity string, level model.Level, finerGranularity string) (time.Time, bool) {
	if !candle.Contains(level.Price) {
		return time.Time{}, false
	}
	step, err := model.GranularityDuration(coarseGranularity)
	if err != nil {
		return time.Time{}, false
	}
	sub, err := provider.FetchSeries(ctx, instrument, finerGranularity, candle.Time, candle.Time.Add(step))
	if err != nil || sub == nil || sub.Len() == 0 {
		return time.Time{}, false
	}
	for _, c := range sub.Candles() {
		if c.Contains(level.Price) {
			return c.Time, true
		}
	}
	return time.Time{}, false
}
