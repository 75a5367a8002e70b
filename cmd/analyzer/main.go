package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/FOREXfunguru/FOREX-sub000/internal/analyzer"
	"github.com/FOREXfunguru/FOREX-sub000/internal/cache"
	"github.com/FOREXfunguru/FOREX-sub000/internal/config"
	"github.com/FOREXfunguru/FOREX-sub000/internal/marketdata"
	"github.com/FOREXfunguru/FOREX-sub000/internal/notifier"
	"github.com/FOREXfunguru/FOREX-sub000/internal/scheduler"
	"github.com/FOREXfunguru/FOREX-sub000/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.With().Str("service", "fx-analyzer").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := marketdata.NewClient(marketdata.ClientOptions{
		APIKey:          cfg.PriceAPIKey,
		BaseURL:         cfg.PriceAPIURL,
		RequestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec:  cfg.RequestsPerSec,
		MaxRetryTimeout: time.Duration(cfg.MaxRetryTimeout) * time.Second,
	})

	var store *storage.DB
	if cfg.PostgresPassword != "" {
		store, err = storage.New(storage.ConnectionParams{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			DBName:   cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSLMode,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer store.Close()
	}

	var levelCache *cache.Cache
	if cfg.RedisAddr != "" {
		levelCache, err = cache.New(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL(),
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer levelCache.Close()
	}

	var notify notifier.Notifier = notifier.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram setup failed")
		}
		notify = tg
	}

	app := analyzer.New(cfg, client, store, levelCache, notify, logger)

	if cfg.WatchlistPath == "" {
		// One-shot scan of the configured instrument.
		entry := config.WatchlistEntry{Instrument: cfg.Instrument, Granularity: cfg.Granularity}
		if err := app.Scan(ctx, entry); err != nil {
			logger.Fatal().Err(err).Msg("scan failed")
		}
		return
	}

	watchlist, err := config.LoadWatchlist(cfg.WatchlistPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("watchlist invalid")
	}
	sched := scheduler.New(ctx, app.Scan, logger)
	if err := sched.Register(watchlist); err != nil {
		logger.Fatal().Err(err).Msg("scheduler registration failed")
	}
	sched.Start()
	defer sched.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
}
