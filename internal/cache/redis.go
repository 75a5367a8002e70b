// Package cache keeps recently detected levels and fetched candle
// series in Redis so repeated scans do not refetch or recompute.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
)

const (
	levelsKeyPrefix = "sr:levels:"
	seriesKeyPrefix = "candles:"
)

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Options for creating a Cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects to Redis and pings it.
func New(ctx context.Context, opts Options, logger zerolog.Logger) (*Cache, error) {
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return &Cache{
		client: client,
		ttl:    opts.TTL,
		logger: logger.With().Str("component", "cache").Logger(),
	}, nil
}

func levelsKey(instrument, granularity string) string {
	return levelsKeyPrefix + instrument + ":" + granularity
}

func seriesKey(instrument, granularity string, start time.Time) string {
	return seriesKeyPrefix + instrument + ":" + granularity + ":" + start.UTC().Format("2006-01-02T15:04:05")
}

// SaveLevels stores one scan's levels as a JSON value with TTL.
func (c *Cache) SaveLevels(ctx context.Context, instrument, granularity string, levels []model.Level) error {
	data, err := json.Marshal(levels)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, levelsKey(instrument, granularity), data, c.ttl).Err()
}

// GetLevels returns the cached levels, or (nil, false) on a miss.
func (c *Cache) GetLevels(ctx context.Context, instrument, granularity string) ([]model.Level, bool, error) {
	data, err := c.client.Get(ctx, levelsKey(instrument, granularity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var levels []model.Level
	if err := json.Unmarshal(data, &levels); err != nil {
		// A corrupt entry is treated as a miss, not an error.
		c.logger.Warn().Err(err).Str("instrument", instrument).Msg("dropping corrupt cached levels")
		c.client.Del(ctx, levelsKey(instrument, granularity))
		return nil, false, nil
	}
	return levels, true, nil
}

type cachedCandle struct {
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	Complete bool      `json:"complete"`
}

// SaveSeries stores a fetched candle series keyed by its window start.
func (c *Cache) SaveSeries(ctx context.Context, series *model.CandleSeries, start time.Time) error {
	cached := make([]cachedCandle, 0, series.Len())
	for _, candle := range series.Candles() {
		cached = append(cached, cachedCandle{
			Time:     candle.Time,
			Open:     candle.Open,
			High:     candle.High,
			Low:      candle.Low,
			Close:    candle.Close,
			Volume:   candle.Volume,
			Complete: candle.Complete,
		})
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	key := seriesKey(series.Instrument, series.Granularity, start)
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// GetSeries returns the cached series, or (nil, false) on a miss.
func (c *Cache) GetSeries(ctx context.Context, instrument, granularity string, start time.Time) (*model.CandleSeries, bool, error) {
	data, err := c.client.Get(ctx, seriesKey(instrument, granularity, start)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cached []cachedCandle
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn().Err(err).Str("instrument", instrument).Msg("dropping corrupt cached series")
		c.client.Del(ctx, seriesKey(instrument, granularity, start))
		return nil, false, nil
	}
	candles := make([]model.Candle, 0, len(cached))
	for _, cc := range cached {
		candles = append(candles, model.Candle{
			Time:     cc.Time,
			Open:     cc.Open,
			High:     cc.High,
			Low:      cc.Low,
			Close:    cc.Close,
			Volume:   cc.Volume,
			Complete: cc.Complete,
		})
	}
	series, err := model.NewCandleSeries(instrument, granularity, candles)
	if err != nil {
		return nil, false, err
	}
	return series, true, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error { return c.client.Close() }
