// Package marketdata fetches OHLC candle series from an OANDA-style
// price provider. Transport retries and rate limiting live in the
// platform HTTP client; callers only ever see a complete series or a
// data-unavailable error.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	httpClient "github.com/FOREXfunguru/FOREX-sub000/internal/platform/http"
)

// ErrNoData signals that the provider returned no candles for a
// requested window. A successful fetch never yields an empty series.
var ErrNoData = errors.New("marketdata: no candles for requested window")

// Client is the price-data API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Client.
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new price-data client.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = "https://api-fxtrade.oanda.com/v3"
	}
	return &Client{
		apiKey:  options.APIKey,
		baseURL: options.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "marketdata_client").Logger(),
	}
}

type candlesResponse struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Time     string `json:"time"`
		Volume   int64  `json:"volume"`
		Complete bool   `json:"complete"`
		Mid      struct {
			O string `json:"o"`
			H string `json:"h"`
			L string `json:"l"`
			C string `json:"c"`
		} `json:"mid"`
	} `json:"candles"`
}

// FetchSeries fetches the candles for [start, end] in ascending time
// order, market-closed gaps already excluded by the provider.
func (c *Client) FetchSeries(ctx context.Context, instrument, granularity string, start, end time.Time) (*model.CandleSeries, error) {
	q := url.Values{}
	q.Set("granularity", granularity)
	q.Set("price", "M")
	q.Set("from", start.UTC().Format(time.RFC3339))
	q.Set("to", end.UTC().Format(time.RFC3339))
	endpoint := fmt.Sprintf("%s/instruments/%s/candles?%s", c.baseURL, instrument, q.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp candlesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("marketdata: decode candles: %w", err)
	}
	if len(resp.Candles) == 0 {
		return nil, fmt.Errorf("%w: %s %s %s..%s", ErrNoData, instrument, granularity, start, end)
	}

	candles := make([]model.Candle, 0, len(resp.Candles))
	for _, raw := range resp.Candles {
		candle, err := parseCandle(raw.Time, raw.Mid.O, raw.Mid.H, raw.Mid.L, raw.Mid.C, raw.Volume, raw.Complete)
		if err != nil {
			return nil, fmt.Errorf("marketdata: %s %s: %w", instrument, granularity, err)
		}
		candles = append(candles, candle)
	}

	series, err := model.NewCandleSeries(instrument, granularity, candles)
	if err != nil {
		return nil, fmt.Errorf("marketdata: provider returned bad ordering: %w", err)
	}
	c.logger.Debug().
		Str("instrument", instrument).
		Str("granularity", granularity).
		Int("candles", series.Len()).
		Msg("fetched candle series")
	return series, nil
}

// FetchSingle fetches the one candle covering at, or nil when the
// provider has none (market closed).
func (c *Client) FetchSingle(ctx context.Context, instrument, granularity string, at time.Time) (*model.Candle, error) {
	step, err := model.GranularityDuration(granularity)
	if err != nil {
		return nil, err
	}
	series, err := c.FetchSeries(ctx, instrument, granularity, at, at.Add(step))
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, nil
		}
		return nil, err
	}
	for _, candle := range series.Candles() {
		if candle.Time.Equal(at) {
			out := candle
			return &out, nil
		}
	}
	return nil, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		var statusErr *httpClient.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func parseCandle(ts, o, h, l, cl string, volume int64, complete bool) (model.Candle, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return model.Candle{}, fmt.Errorf("bad candle time %q: %w", ts, err)
	}
	open, err := strconv.ParseFloat(o, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("bad open %q: %w", o, err)
	}
	high, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("bad high %q: %w", h, err)
	}
	low, err := strconv.ParseFloat(l, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("bad low %q: %w", l, err)
	}
	closePrice, err := strconv.ParseFloat(cl, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("bad close %q: %w", cl, err)
	}
	return model.Candle{
		Time:     t,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
		Complete: complete,
	}, nil
}
