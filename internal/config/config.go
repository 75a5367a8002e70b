package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/FOREXfunguru/FOREX-sub000/internal/pips"
)

// Config holds all application configuration.
type Config struct {
	// Market data provider
	PriceAPIKey     string
	PriceAPIURL     string
	RequestTimeout  int // seconds
	RequestsPerSec  int
	MaxRetryTimeout int // seconds

	// Analysis parameters
	Instrument        string
	Granularity       string
	LookbackCandles   int
	RSIPeriod         int
	Sensitivity       float64
	MergeNCandles     int
	MergeDiffPercent  float64
	ScoreMode         string // "diff" or "candles"
	MarginPips        float64
	IPips             float64
	HRPips            float64
	LevelQuantile     float64
	FinerGranularity  string
	TradeMaxPeriods   int
	TradeExpires      int
	SameCandlePolicy  string // "stop_first", "target_first" or "ambiguous"

	// Collaborators
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CacheTTLMinutes  int
	TelegramToken    string
	TelegramChatID   int64
	WatchlistPath    string

	LogLevel string
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		PriceAPIKey:     os.Getenv("PRICE_API_KEY"),
		PriceAPIURL:     os.Getenv("PRICE_API_URL"),
		RequestTimeout:  getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		RequestsPerSec:  getEnvIntWithDefault("REQUESTS_PER_SEC", 5),
		MaxRetryTimeout: getEnvIntWithDefault("MAX_RETRY_TIMEOUT", 30),

		Instrument:       getEnvWithDefault("INSTRUMENT", "EUR_USD"),
		Granularity:      getEnvWithDefault("GRANULARITY", "D"),
		LookbackCandles:  getEnvIntWithDefault("LOOKBACK_CANDLES", 400),
		RSIPeriod:        getEnvIntWithDefault("RSI_PERIOD", 14),
		Sensitivity:      getEnvFloatWithDefault("ZIGZAG_SENSITIVITY", 0.02),
		MergeNCandles:    getEnvIntWithDefault("MERGE_N_CANDLES", 5),
		MergeDiffPercent: getEnvFloatWithDefault("MERGE_DIFF_PERCENT", 50),
		ScoreMode:        getEnvWithDefault("SCORE_MODE", "diff"),
		MarginPips:       getEnvFloatWithDefault("MARGIN_PIPS", 100),
		IPips:            getEnvFloatWithDefault("I_PIPS", 25),
		HRPips:           getEnvFloatWithDefault("HR_PIPS", 50),
		LevelQuantile:    getEnvFloatWithDefault("LEVEL_QUANTILE", 0.70),
		FinerGranularity: getEnvWithDefault("FINER_GRANULARITY", "H1"),
		TradeMaxPeriods:  getEnvIntWithDefault("TRADE_MAX_PERIODS", 60),
		TradeExpires:     getEnvIntWithDefault("TRADE_EXPIRES", 10),
		SameCandlePolicy: getEnvWithDefault("SAME_CANDLE_POLICY", "stop_first"),

		PostgresHost:     getEnvWithDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvWithDefault("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnvWithDefault("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnvWithDefault("POSTGRES_DB", "fxlevels"),
		PostgresSSLMode:  getEnvWithDefault("POSTGRES_SSLMODE", "disable"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvIntWithDefault("REDIS_DB", 0),
		CacheTTLMinutes:  getEnvIntWithDefault("CACHE_TTL_MINUTES", 60),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		WatchlistPath:    getEnvWithDefault("WATCHLIST_PATH", ""),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := pips.Divisor(c.Instrument); err != nil {
		return fmt.Errorf("config: INSTRUMENT: %w", err)
	}
	if c.Sensitivity <= 0 || c.Sensitivity >= 1 {
		return fmt.Errorf("config: ZIGZAG_SENSITIVITY %v out of (0, 1)", c.Sensitivity)
	}
	if c.LevelQuantile < 0 || c.LevelQuantile > 1 {
		return fmt.Errorf("config: LEVEL_QUANTILE %v out of [0, 1]", c.LevelQuantile)
	}
	if c.IPips <= 0 {
		return fmt.Errorf("config: I_PIPS must be positive, got %v", c.IPips)
	}
	switch c.ScoreMode {
	case "diff", "candles":
	default:
		return fmt.Errorf("config: SCORE_MODE %q must be diff or candles", c.ScoreMode)
	}
	switch c.SameCandlePolicy {
	case "stop_first", "target_first", "ambiguous":
	default:
		return fmt.Errorf("config: SAME_CANDLE_POLICY %q unknown", c.SameCandlePolicy)
	}
	return nil
}

// CacheTTL returns the configured cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// WatchlistEntry names one instrument to scan on a schedule.
type WatchlistEntry struct {
	Instrument  string `yaml:"instrument"`
	Granularity string `yaml:"granularity"`
	Cron        string `yaml:"cron"`
}

type watchlistFile struct {
	Watchlist []WatchlistEntry `yaml:"watchlist"`
}

// LoadWatchlist reads the YAML watchlist file.
func LoadWatchlist(path string) ([]WatchlistEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read watchlist: %w", err)
	}
	var f watchlistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse watchlist: %w", err)
	}
	for _, e := range f.Watchlist {
		if _, err := pips.Divisor(e.Instrument); err != nil {
			return nil, fmt.Errorf("config: watchlist: %w", err)
		}
		if e.Cron == "" {
			return nil, fmt.Errorf("config: watchlist entry %s has no cron expression", e.Instrument)
		}
	}
	return f.Watchlist, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
