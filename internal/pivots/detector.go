package pivots

import (
	"math"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
)

// PriceField selects the candle value driving pivot detection.
type PriceField func(model.Candle) float64

// ClosePrice is the default detection field.
func ClosePrice(c model.Candle) float64 { return c.Close }

// round7 rounds to 7 decimal places. Zigzag comparisons round both
// operands first so results do not depend on platform float jitter;
// the 7-decimal point is a fixed behavioral contract.
func round7(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}

// Detect runs a percentage-threshold zigzag over the series. Direction
// flips only once price retraces by more than sensitivity from the
// running extreme; every flip emits a pivot at the extreme candle.
// Fewer than two detectable pivots yields an empty PivotList, which is
// a legitimate "no signal" outcome.
func Detect(series *model.CandleSeries, sensitivity float64, field PriceField) *PivotList {
	if field == nil {
		field = ClosePrice
	}
	step, err := model.GranularityDuration(series.Granularity)
	if err != nil {
		step = 0
	}

	empty := &PivotList{
		Series:   series,
		Segments: NewSegmentList(nil, step),
	}
	n := series.Len()
	if n < 2 {
		return empty
	}

	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = field(series.At(i))
	}
	upThresh := round7(1 + sensitivity)
	downThresh := round7(1 - sensitivity)

	// The first pivot sits on the first candle, typed by the first
	// threshold-sized move away from it.
	trend := initialTrend(prices, upThresh, downThresh)
	if trend == 0 {
		return empty
	}

	type mark struct {
		idx int
		typ PivotType
	}
	marks := []mark{{0, pivotTypeFor(trend)}}

	extIdx, extVal := 0, prices[0]
	for t := 1; t < n; t++ {
		x := prices[t]
		if trend > 0 {
			if extVal > 0 && round7(x/extVal) < downThresh {
				marks = append(marks, mark{extIdx, Peak})
				trend = -1
				extIdx, extVal = t, x
			} else if x > extVal {
				extIdx, extVal = t, x
			}
		} else {
			if extVal > 0 && round7(x/extVal) > upThresh {
				marks = append(marks, mark{extIdx, Valley})
				trend = 1
				extIdx, extVal = t, x
			} else if x < extVal {
				extIdx, extVal = t, x
			}
		}
	}
	if len(marks) < 2 {
		return empty
	}

	// Cut segments between consecutive pivots. Segment k covers the
	// candles from pivot k up to (not including) pivot k+1; the final
	// segment also takes the last pivot's candle so the pivot span is
	// fully covered with no overlaps.
	candles := series.Candles()
	segments := make([]*Segment, 0, len(marks)-1)
	for k := 0; k+1 < len(marks); k++ {
		from, to := marks[k].idx, marks[k+1].idx
		if k+2 == len(marks) {
			to++
		}
		dir := DirUp
		if prices[marks[k+1].idx] < prices[marks[k].idx] {
			dir = DirDown
		}
		segments = append(segments, NewSegment(series.Instrument, dir, candles[from:to]))
	}
	arena := NewSegmentList(segments, step)

	pivots := make([]*Pivot, 0, len(marks))
	for k, m := range marks {
		p := &Pivot{Type: m.typ, Candle: series.At(m.idx)}
		if k > 0 {
			p.Pre = arena.Segment(k - 1).Copy()
		}
		if k < len(segments) {
			p.Aft = arena.Segment(k).Copy()
		}
		p.CalcScore(ScoreDiff)
		pivots = append(pivots, p)
	}

	pl := &PivotList{Series: series, Pivots: pivots, Segments: arena}
	pl.validate()
	return pl
}

// initialTrend returns +1 when the first threshold-sized move from the
// first price is upward, -1 when downward, 0 when the series never
// moves far enough either way.
func initialTrend(prices []float64, upThresh, downThresh float64) int {
	x0 := prices[0]
	if x0 == 0 {
		return 0
	}
	for t := 1; t < len(prices); t++ {
		r := round7(prices[t] / x0)
		if r > upThresh {
			return 1
		}
		if r < downThresh {
			return -1
		}
	}
	return 0
}

// pivotTypeFor maps the trend leaving a pivot to the pivot's own type:
// an up leg starts at a valley.
func pivotTypeFor(trendAfter int) PivotType {
	if trendAfter > 0 {
		return Valley
	}
	return Peak
}
