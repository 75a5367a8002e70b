// Package scheduler runs periodic support/resistance scans over a
// watchlist of instruments.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/config"
)

// ScanFunc runs one full scan (fetch, pivots, merge, levels, store,
// notify) for one watchlist entry.
type ScanFunc func(ctx context.Context, entry config.WatchlistEntry) error

// Scheduler manages the cron tasks.
type Scheduler struct {
	cron   *cron.Cron
	scan   ScanFunc
	logger zerolog.Logger
	ctx    context.Context
}

// New creates a Scheduler driving scan.
func New(ctx context.Context, scan ScanFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		scan:   scan,
		logger: logger.With().Str("component", "scheduler").Logger(),
		ctx:    ctx,
	}
}

// Register adds one cron task per watchlist entry.
func (s *Scheduler) Register(entries []config.WatchlistEntry) error {
	for _, entry := range entries {
		entry := entry
		_, err := s.cron.AddFunc(entry.Cron, func() {
			if err := s.scan(s.ctx, entry); err != nil {
				s.logger.Error().Err(err).
					Str("instrument", entry.Instrument).
					Str("granularity", entry.Granularity).
					Msg("scheduled scan failed")
				return
			}
			s.logger.Info().
				Str("instrument", entry.Instrument).
				Str("granularity", entry.Granularity).
				Msg("scheduled scan complete")
		})
		if err != nil {
			return fmt.Errorf("scheduler: register %s %s: %w", entry.Instrument, entry.Cron, err)
		}
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("tasks", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop halts the cron loop and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}
