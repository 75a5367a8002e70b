// Package levels finds horizontal support/resistance price bands by
// scanning a price range for bands where merged pivots cluster, then
// filtering candidates through quantile thresholds and deduplicating
// nearby survivors.
package levels

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/pips"
	"github.com/FOREXfunguru/FOREX-sub000/internal/pivots"
)

// ErrBadRange is returned when the scan range is inverted or the scan
// increment is not positive. These are configuration errors and fail
// fast.
var ErrBadRange = errors.New("levels: degenerate scan range")

// Params configures a support/resistance scan.
type Params struct {
	// MarginPips widens the scan range beyond the series extremes.
	MarginPips float64
	// IPips is half the scan increment: prices step by 2*IPips.
	IPips float64
	// HRPips is the band half-width, both for pivot membership and
	// for the width of emitted levels.
	HRPips float64
	// Quantile selects the bounce/score thresholds, e.g. 0.70.
	Quantile float64
	// Sensitivity drives the zigzag re-detection used when
	// re-adjusting the most recent pivot.
	Sensitivity float64
	// Merge bounds the segment merging during re-adjustment and
	// selects the scoring mode.
	Merge pivots.MergeConfig
}

// Detector scans for horizontal areas.
type Detector struct {
	logger zerolog.Logger
}

// NewDetector returns a Detector logging through logger.
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{logger: logger.With().Str("component", "level_detector").Logger()}
}

type candidate struct {
	price   float64
	bounces int
	score   float64
}

// CalcSR scans [lowest-margin, highest+margin] in steps of twice IPips
// and returns the statistically significant, deduplicated levels. An
// empty pivot list degrades to zero levels; only a malformed
// configuration is an error.
func (d *Detector) CalcSR(pl *pivots.PivotList, p Params) ([]model.Level, error) {
	series := pl.Series
	if pl.Len() == 0 {
		d.logger.Debug().Str("instrument", series.Instrument).Msg("no pivots, no levels")
		return nil, nil
	}

	div, err := pips.Divisor(series.Instrument)
	if err != nil {
		return nil, err
	}
	lowest, highest := seriesExtremes(series)
	low := lowest - p.MarginPips/div
	high := highest + p.MarginPips/div
	if low > high {
		return nil, fmt.Errorf("%w: low %v > high %v", ErrBadRange, low, high)
	}
	increment := 2 * p.IPips / div
	if increment <= 0 {
		return nil, fmt.Errorf("%w: increment %v", ErrBadRange, increment)
	}
	hr := p.HRPips / div

	// The most recent pivot represents the still-open setup: it is
	// re-adjusted once and joins every scan band unconditionally.
	lastPivot := d.readjustLastPivot(pl, p)

	var cands []candidate
	for price := low; price <= high; price += increment {
		bounces := 1
		score := lastPivot.Score
		for _, piv := range pl.Pivots[:pl.Len()-1] {
			if pivotInBand(piv, price-hr, price+hr) {
				bounces++
				score += piv.Score
			}
		}
		cands = append(cands, candidate{price: price, bounces: bounces, score: score})
	}

	kept := selectCandidates(cands, p.Quantile)
	kept = dedup(kept, 3*increment)

	out := make([]model.Level, 0, len(kept))
	for _, c := range kept {
		lvl, err := model.NewLevel(series.Instrument, c.price, p.HRPips)
		if err != nil {
			return nil, err
		}
		lvl.BounceCount = c.bounces
		lvl.TotalScore = c.score
		out = append(out, lvl)
	}
	d.logger.Info().
		Str("instrument", series.Instrument).
		Str("granularity", series.Granularity).
		Int("candidates", len(cands)).
		Int("levels", len(out)).
		Msg("support/resistance scan complete")
	return out, nil
}

// selectCandidates keeps candidates beating the q-quantile threshold
// on bounce count or on total score. Thresholds are computed over the
// positive entries only.
func selectCandidates(cands []candidate, q float64) []candidate {
	var bounces, scores []float64
	for _, c := range cands {
		if c.bounces > 0 {
			bounces = append(bounces, float64(c.bounces))
		}
		if c.score > 0 {
			scores = append(scores, c.score)
		}
	}
	if len(bounces) == 0 && len(scores) == 0 {
		return nil
	}
	bounceThresh := quantile(bounces, q)
	scoreThresh := quantile(scores, q)

	var kept []candidate
	for _, c := range cands {
		if float64(c.bounces) > bounceThresh || c.score > scoreThresh {
			kept = append(kept, c)
		}
	}
	return kept
}

// pivotInBand tests band membership against the pivot's relevant
// extreme and its close: the zigzag timestamp can be imprecise, so a
// peak counts by its high, a valley by its low, either by its close.
func pivotInBand(p *pivots.Pivot, lower, upper float64) bool {
	within := func(v float64) bool { return lower <= v && v <= upper }
	if p.Type == pivots.Peak {
		return within(p.Candle.High) || within(p.Candle.Close)
	}
	return within(p.Candle.Low) || within(p.Candle.Close)
}

// seriesExtremes returns the lowest low and highest high.
func seriesExtremes(s *model.CandleSeries) (float64, float64) {
	lowest, highest := s.First().Low, s.First().High
	for _, c := range s.Candles() {
		if c.Low < lowest {
			lowest = c.Low
		}
		if c.High > highest {
			highest = c.High
		}
	}
	return lowest, highest
}

// readjustLastPivot recomputes the most recent pivot against the
// candle slice ending at its colour-adjusted time, re-running
// detection and merging over that slice. Falls back to the original
// pivot when the slice cannot be re-detected.
func (d *Detector) readjustLastPivot(pl *pivots.PivotList, p Params) *pivots.Pivot {
	last := pl.Last()
	adjusted := adjustedPivotTime(pl.Series, last)
	sub, err := pl.Series.SliceTo(adjusted)
	if err != nil {
		return last
	}
	subList := pivots.Detect(sub, p.Sensitivity, pivots.ClosePrice)
	if subList.Len() == 0 {
		return last
	}
	np := subList.Last()
	subList.MergePre(np, p.Merge, d.logger)
	subList.MergeAft(np, p.Merge, d.logger)
	np.CalcScore(p.Merge.Mode)
	return np
}

// adjustedPivotTime walks backward from the pivot candle until the
// candle colour changes, skipping undefined-colour candles only at the
// boundary next to the pivot.
func adjustedPivotTime(s *model.CandleSeries, p *pivots.Pivot) time.Time {
	idx, ok := s.IndexOf(p.Candle.Time)
	if !ok {
		return p.Candle.Time
	}
	i := idx
	ref := s.At(i).Colour()
	for ref == model.ColourUndefined && i > 0 {
		i--
		ref = s.At(i).Colour()
	}
	for i > 0 && s.At(i-1).Colour() == ref {
		i--
	}
	return s.At(i).Time
}

// dedup repeatedly drops the weaker of any two candidates closer than
// minDist until no such pair remains. Input must be price-sorted; the
// result is price-sorted too, so a second pass is a no-op.
func dedup(cands []candidate, minDist float64) []candidate {
	for {
		removed := false
		for i := 0; i+1 < len(cands); i++ {
			if cands[i+1].price-cands[i].price >= minDist {
				continue
			}
			drop := weaker(cands[i], cands[i+1])
			idx := i + drop
			cands = append(cands[:idx], cands[idx+1:]...)
			removed = true
			break
		}
		if !removed {
			return cands
		}
	}
}

// weaker returns 0 when the first candidate loses, 1 when the second
// does. Score takes precedence over bounce count; an exact tie drops
// the later (higher-price) entry.
func weaker(a, b candidate) int {
	switch {
	case a.score > b.score:
		return 1
	case b.score > a.score:
		return 0
	case a.bounces > b.bounces:
		return 1
	case b.bounces > a.bounces:
		return 0
	default:
		return 1
	}
}
