package pivots

import (
	"github.com/rs/zerolog"
)

// MergeConfig bounds segment absorption. A contrary neighbor is
// absorbed only when it is shorter than NCandles and its magnitude is
// below DiffPercThreshold percent of the pivot's own leg.
type MergeConfig struct {
	NCandles          int
	DiffPercThreshold float64
	Mode              ScoreMode
}

// MergePre extends p.Pre backward through the segment arena: a
// same-direction neighbor is absorbed unconditionally, a contrary
// neighbor only under the config bounds. Absorbed arena entries are
// consumed and can never be re-absorbed by another pivot. The loop
// terminates when the lookup runs out of range or a merge condition
// fails.
func (pl *PivotList) MergePre(p *Pivot, cfg MergeConfig, logger zerolog.Logger) {
	if p.Pre == nil {
		return
	}
	for {
		idx, prev := pl.Segments.findEndingBefore(p.Pre.Start())
		if idx < 0 {
			return
		}
		if !pl.absorbable(prev, p.Pre, cfg) {
			return
		}
		logger.Debug().
			Time("pivot", p.Candle.Time).
			Time("segment_end", prev.End()).
			Str("direction", prev.Direction.String()).
			Msg("merging segment into pre")
		p.Pre.Prepend(prev)
		pl.Segments.consume(idx)
	}
}

// MergeAft is the forward mirror of MergePre, extending p.Aft.
func (pl *PivotList) MergeAft(p *Pivot, cfg MergeConfig, logger zerolog.Logger) {
	if p.Aft == nil {
		return
	}
	for {
		idx, next := pl.Segments.findStartingAfter(p.Aft.End())
		if idx < 0 {
			return
		}
		if !pl.absorbable(next, p.Aft, cfg) {
			return
		}
		logger.Debug().
			Time("pivot", p.Candle.Time).
			Time("segment_start", next.Start()).
			Str("direction", next.Direction.String()).
			Msg("merging segment into aft")
		p.Aft.Append(next)
		pl.Segments.consume(idx)
	}
}

// absorbable applies the merge rules: same direction always merges; a
// contrary segment merges only when short and insignificant relative
// to the pivot's leg.
func (pl *PivotList) absorbable(neighbor, leg *Segment, cfg MergeConfig) bool {
	if neighbor.Direction == leg.Direction {
		return true
	}
	if neighbor.Count() >= cfg.NCandles {
		// Contrary and long enough to be a real countertrend.
		return false
	}
	perc := neighbor.MagnitudePips() * 100 / leg.MagnitudePips()
	return perc < cfg.DiffPercThreshold
}

// MergeAll runs MergePre and MergeAft over every pivot in time order
// and recomputes scores under cfg.Mode.
func (pl *PivotList) MergeAll(cfg MergeConfig, logger zerolog.Logger) {
	for _, p := range pl.Pivots {
		pl.MergePre(p, cfg, logger)
		pl.MergeAft(p, cfg, logger)
		p.CalcScore(cfg.Mode)
	}
}
