package trade

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/bands"
	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/pips"
)

// SameCandlePolicy resolves a candle touching both the stop and the
// target band in the same step.
type SameCandlePolicy int

const (
	// StopFirst is the conservative default and matches the historic
	// evaluation order.
	StopFirst SameCandlePolicy = iota
	// TargetFirst resolves the double touch in the trade's favor.
	TargetFirst
	// Ambiguous expires the trade instead of guessing.
	Ambiguous
)

// SimConfig bounds a simulation run.
type SimConfig struct {
	// MaxPeriods caps the walked candles after the start.
	MaxPeriods int
	// Expires is the candle count before which an entry must occur.
	Expires int
	// FinerGranularity resolves entry instants; empty disables the
	// finer lookup.
	FinerGranularity string
	// Policy resolves same-candle stop+target touches.
	Policy SameCandlePolicy
}

// Simulator walks trades forward over a candle series.
type Simulator struct {
	provider bands.SeriesProvider
	cfg      SimConfig
	logger   zerolog.Logger
}

// NewSimulator builds a Simulator. provider may be nil when
// cfg.FinerGranularity is empty.
func NewSimulator(provider bands.SeriesProvider, cfg SimConfig, logger zerolog.Logger) *Simulator {
	return &Simulator{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "trade_simulator").Logger(),
	}
}

// Run walks the series forward from t.Start and drives the trade to a
// terminal outcome. The trade must still be pending.
func (s *Simulator) Run(ctx context.Context, t *Trade, series *model.CandleSeries) error {
	if t.Outcome != Pending {
		panic("trade: Run on a terminal trade")
	}
	start, ok := series.IndexAtOrAfter(t.Start)
	if !ok {
		return fmt.Errorf("trade %s: no candles at or after %s", t.ID, t.Start)
	}

	walked := 0
	for i := start; i < series.Len() && walked < s.cfg.MaxPeriods; i++ {
		c := series.At(i)
		walked++

		if !t.Entered {
			if s.cfg.Expires > 0 && walked > s.cfg.Expires {
				s.expire(t, c)
				return nil
			}
			if gap, outcome := s.gapThrough(t, c); gap {
				s.enter(ctx, t, c, series.Granularity)
				s.finish(t, c, outcome)
				return nil
			}
			if overlaps(c, t.Entry) {
				s.enter(ctx, t, c, series.Granularity)
			}
			// The entry candle itself is not tested for stop or
			// target; evaluation resumes on the next candle.
			continue
		}

		stopHit := overlaps(c, t.Stop)
		targetHit := overlaps(c, t.Target)
		switch {
		case stopHit && targetHit:
			switch s.cfg.Policy {
			case TargetFirst:
				s.finish(t, c, Success)
			case Ambiguous:
				s.expire(t, c)
			default:
				s.finish(t, c, Failure)
			}
			return nil
		case stopHit:
			s.finish(t, c, Failure)
			return nil
		case targetHit:
			s.finish(t, c, Success)
			return nil
		}
	}

	s.expire(t, series.Last())
	return nil
}

// gapThrough reports whether a still-pending candle jumped clean
// through the entry and beyond the stop or target. A candle whose
// whole range lies beyond the stop on the unfavorable side is an
// immediate failure; the favorable rule is symmetric.
func (s *Simulator) gapThrough(t *Trade, c model.Candle) (bool, Outcome) {
	if t.Direction == Long {
		if c.High < t.Stop.Price {
			return true, Failure
		}
		if c.Low > t.Target.Price {
			return true, Success
		}
	} else {
		if c.Low > t.Stop.Price {
			return true, Failure
		}
		if c.High < t.Target.Price {
			return true, Success
		}
	}
	return false, Pending
}

func (s *Simulator) enter(ctx context.Context, t *Trade, c model.Candle, granularity string) {
	t.Entered = true
	t.EntryTime = c.Time
	if s.provider != nil && s.cfg.FinerGranularity != "" {
		if at, ok := bands.CrossTime(ctx, s.provider, t.Pair, c, granularity, t.Entry, s.cfg.FinerGranularity); ok {
			t.EntryTime = at
		}
	}
	s.logger.Debug().
		Str("trade", t.ID.String()).
		Time("entry_time", t.EntryTime).
		Msg("trade entered")
}

func (s *Simulator) finish(t *Trade, c model.Candle, outcome Outcome) {
	t.Outcome = outcome
	t.EndTime = c.Time
	var dist float64
	switch outcome {
	case Success:
		d, _ := pips.Distance(t.Pair, t.Entry.Price, t.Target.Price)
		dist = d
	case Failure:
		d, _ := pips.Distance(t.Pair, t.Entry.Price, t.Stop.Price)
		dist = -d
	}
	t.Pips = math.Round(dist*10) / 10
	s.logger.Info().
		Str("trade", t.ID.String()).
		Str("outcome", outcome.String()).
		Float64("pips", t.Pips).
		Time("end_time", t.EndTime).
		Msg("trade closed")
}

func (s *Simulator) expire(t *Trade, c model.Candle) {
	t.Outcome = Expired
	t.Pips = 0
	t.EndTime = c.Time
	s.logger.Info().
		Str("trade", t.ID.String()).
		Time("end_time", t.EndTime).
		Msg("trade expired")
}

// overlaps reports whether the candle's range intersects the level's
// band.
func overlaps(c model.Candle, l model.Level) bool {
	return c.Low <= l.Upper && c.High >= l.Lower
}
