// Package analyzer wires the analysis pipeline: fetch a candle
// series, detect and merge pivots, scan for support/resistance levels,
// then persist, cache and notify.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/bands"
	"github.com/FOREXfunguru/FOREX-sub000/internal/cache"
	"github.com/FOREXfunguru/FOREX-sub000/internal/config"
	"github.com/FOREXfunguru/FOREX-sub000/internal/levels"
	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/notifier"
	"github.com/FOREXfunguru/FOREX-sub000/internal/pivots"
	"github.com/FOREXfunguru/FOREX-sub000/internal/storage"
	"github.com/FOREXfunguru/FOREX-sub000/internal/trade"
)

// Analyzer runs scans and trade simulations.
type Analyzer struct {
	cfg      *config.Config
	provider bands.SeriesProvider
	levels   *levels.Detector
	store    *storage.DB       // optional
	cache    *cache.Cache      // optional
	notify   notifier.Notifier // never nil, Noop by default
	logger   zerolog.Logger
}

// New builds an Analyzer. store and c may be nil; n may be nil and
// defaults to the no-op notifier.
func New(cfg *config.Config, provider bands.SeriesProvider, store *storage.DB, c *cache.Cache, n notifier.Notifier, logger zerolog.Logger) *Analyzer {
	if n == nil {
		n = notifier.Noop{}
	}
	return &Analyzer{
		cfg:      cfg,
		provider: provider,
		levels:   levels.NewDetector(logger),
		store:    store,
		cache:    c,
		notify:   n,
		logger:   logger.With().Str("component", "analyzer").Logger(),
	}
}

// ScoreMode maps the configured score mode string to its enum.
func ScoreMode(mode string) pivots.ScoreMode {
	if mode == "candles" {
		return pivots.ScoreCandles
	}
	return pivots.ScoreDiff
}

// SameCandlePolicy maps the configured policy string to its enum.
func SameCandlePolicy(policy string) trade.SameCandlePolicy {
	switch policy {
	case "target_first":
		return trade.TargetFirst
	case "ambiguous":
		return trade.Ambiguous
	default:
		return trade.StopFirst
	}
}

func (a *Analyzer) mergeConfig() pivots.MergeConfig {
	return pivots.MergeConfig{
		NCandles:          a.cfg.MergeNCandles,
		DiffPercThreshold: a.cfg.MergeDiffPercent,
		Mode:              ScoreMode(a.cfg.ScoreMode),
	}
}

func (a *Analyzer) levelParams() levels.Params {
	return levels.Params{
		MarginPips:  a.cfg.MarginPips,
		IPips:       a.cfg.IPips,
		HRPips:      a.cfg.HRPips,
		Quantile:    a.cfg.LevelQuantile,
		Sensitivity: a.cfg.Sensitivity,
		Merge:       a.mergeConfig(),
	}
}

// FetchSeries loads the lookback window for one instrument, through
// the cache when one is configured.
func (a *Analyzer) FetchSeries(ctx context.Context, instrument, granularity string) (*model.CandleSeries, error) {
	step, err := model.GranularityDuration(granularity)
	if err != nil {
		return nil, err
	}
	end := time.Now().UTC().Truncate(step)
	start := end.Add(-time.Duration(a.cfg.LookbackCandles) * step)

	if a.cache != nil {
		if series, ok, err := a.cache.GetSeries(ctx, instrument, granularity, start); err == nil && ok {
			return series, nil
		}
	}
	series, err := a.provider.FetchSeries(ctx, instrument, granularity, start, end)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		if err := a.cache.SaveSeries(ctx, series, start); err != nil {
			a.logger.Warn().Err(err).Msg("series cache write failed")
		}
	}
	return series, nil
}

// Scan runs one full pivots-and-levels pass for a watchlist entry.
func (a *Analyzer) Scan(ctx context.Context, entry config.WatchlistEntry) error {
	series, err := a.FetchSeries(ctx, entry.Instrument, entry.Granularity)
	if err != nil {
		return fmt.Errorf("scan %s %s: %w", entry.Instrument, entry.Granularity, err)
	}
	series.CalcRSI(a.cfg.RSIPeriod)

	pl := pivots.Detect(series, a.cfg.Sensitivity, pivots.ClosePrice)
	pl.MergeAll(a.mergeConfig(), a.logger)

	detected, err := a.levels.CalcSR(pl, a.levelParams())
	if err != nil {
		return fmt.Errorf("scan %s %s: %w", entry.Instrument, entry.Granularity, err)
	}

	now := time.Now().UTC()
	if a.store != nil {
		if err := a.store.SaveLevels(ctx, entry.Instrument, entry.Granularity, now, detected); err != nil {
			a.logger.Error().Err(err).Msg("level persistence failed")
		}
		if err := a.store.SaveAudit(ctx, entry.Instrument, entry.Granularity, now, pl.AuditLines()); err != nil {
			a.logger.Error().Err(err).Msg("audit persistence failed")
		}
	}
	if a.cache != nil {
		if err := a.cache.SaveLevels(ctx, entry.Instrument, entry.Granularity, detected); err != nil {
			a.logger.Warn().Err(err).Msg("level cache write failed")
		}
	}
	if err := a.notify.NotifyLevels(entry.Instrument, entry.Granularity, detected); err != nil {
		a.logger.Warn().Err(err).Msg("level notification failed")
	}
	return nil
}

// Simulate walks a trade forward over the entry's series and persists
// and posts the terminal state.
func (a *Analyzer) Simulate(ctx context.Context, t *trade.Trade, series *model.CandleSeries) error {
	sim := trade.NewSimulator(a.provider, trade.SimConfig{
		MaxPeriods:       a.cfg.TradeMaxPeriods,
		Expires:          a.cfg.TradeExpires,
		FinerGranularity: a.cfg.FinerGranularity,
		Policy:           SameCandlePolicy(a.cfg.SameCandlePolicy),
	}, a.logger)

	if err := sim.Run(ctx, t, series); err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.SaveTrade(ctx, t); err != nil {
			a.logger.Error().Err(err).Msg("trade persistence failed")
		}
	}
	if err := a.notify.NotifyTrade(t); err != nil {
		a.logger.Warn().Err(err).Msg("trade notification failed")
	}
	return nil
}
