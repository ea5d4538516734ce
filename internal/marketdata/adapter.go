// Package marketdata implements the adapter of spec §4.2: it fetches OHLCV
// bars and pre-computed indicators for a symbol from the external
// market-data HTTP server, caches results with a TTL, and retries transient
// failures with linear backoff. It never raises to the caller; upstream
// failure degrades to an empty series.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/enginerr"
	"github.com/atlas-desktop/signal-engine/pkg/types"
	"github.com/atlas-desktop/signal-engine/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config configures the adapter's transport, cache and retry policy.
type Config struct {
	BaseURL       string
	RetryAttempts int
	CacheDuration time.Duration
	HTTPTimeout   time.Duration
}

// DefaultConfig matches the data_server.* defaults from spec §6.
func DefaultConfig() Config {
	return Config{
		RetryAttempts: 3,
		CacheDuration: 300 * time.Second,
		HTTPTimeout:   12 * time.Second,
	}
}

type cacheEntry struct {
	bars        types.BarSeries
	indicators  types.IndicatorSet
	fetchedAt   time.Time
}

// Adapter is the market-data client described by spec §4.2.
type Adapter struct {
	logger *zap.Logger
	config Config
	client *http.Client

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

func New(logger *zap.Logger, config Config) *Adapter {
	return &Adapter{
		logger: logger.With(zap.String("component", "marketdata")),
		config: config,
		client: &http.Client{Timeout: config.HTTPTimeout},
		cache:  make(map[string]*cacheEntry),
	}
}

func cacheKey(symbol, interval string) string {
	return symbol + "|" + interval
}

// periodFor implements the fixed (interval, lookback) -> period table from
// spec §4.2: longer lookbacks at finer granularity widen the requested
// trading-day window so enough raw bars come back to satisfy it.
func periodFor(interval string, lookback int) string {
	switch interval {
	case "1m":
		if lookback > 200 {
			return "5d"
		}
		return "1d"
	case "5m":
		if lookback > 100 {
			return "10d"
		}
		return "5d"
	case "15m":
		if lookback > 100 {
			return "20d"
		}
		return "10d"
	case "1h":
		return "60d"
	default:
		return "30d"
	}
}

type enhancedDataResponse struct {
	RawData []struct {
		Timestamp string  `json:"timestamp"`
		Open      float64 `json:"open"`
		High      float64 `json:"high"`
		Low       float64 `json:"low"`
		Close     float64 `json:"close"`
		Volume    float64 `json:"volume"`
	} `json:"raw_data"`
	TechnicalIndicators map[string]interface{} `json:"technical_indicators"`
	Error               string                 `json:"error"`
}

// GetIntraday returns a BarSeries for symbol at the given interval and
// lookback. On any upstream error it returns an empty series rather than
// propagating, per the adapter's no-raise contract.
func (a *Adapter) GetIntraday(ctx context.Context, symbol, interval string, lookback int) types.BarSeries {
	bars, _ := a.fetch(ctx, symbol, interval, lookback)
	return bars
}

// GetIndicators returns the pre-computed indicator set for symbol.
func (a *Adapter) GetIndicators(ctx context.Context, symbol string, period string, interval string) types.IndicatorSet {
	lookback := 100
	_, ind := a.fetch(ctx, symbol, interval, lookback)
	return ind
}

// GetBarsAndIndicators fetches both in one round trip, the shape the
// cycle controller actually wants per symbol per tick.
func (a *Adapter) GetBarsAndIndicators(ctx context.Context, symbol, interval string, lookback int) (types.BarSeries, types.IndicatorSet) {
	return a.fetch(ctx, symbol, interval, lookback)
}

func (a *Adapter) fetch(ctx context.Context, symbol, interval string, lookback int) (types.BarSeries, types.IndicatorSet) {
	key := cacheKey(symbol, interval)

	a.mu.RLock()
	entry, ok := a.cache[key]
	a.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < a.config.CacheDuration {
		return entry.bars, entry.indicators
	}

	period := periodFor(interval, lookback)
	result, err := utils.Retry(utils.LinearRetryConfig(a.config.RetryAttempts), func(attempt int) (fetchResult, error) {
		return a.fetchOnce(ctx, symbol, period, interval)
	})
	if err != nil {
		a.logger.Warn("market data fetch failed, serving the stale cache entry if any, else an empty series",
			zap.String("symbol", symbol), zap.Error(err))
		if ok {
			// Serve the stale cache entry rather than nothing when the
			// upstream is down but we have something from a prior cycle.
			return entry.bars, entry.indicators
		}
		return types.BarSeries{}, types.IndicatorSet{}
	}

	a.mu.Lock()
	a.cache[key] = &cacheEntry{bars: result.bars, indicators: result.indicators, fetchedAt: time.Now()}
	a.mu.Unlock()

	return result.bars, result.indicators
}

type fetchResult struct {
	bars       types.BarSeries
	indicators types.IndicatorSet
}

func (a *Adapter) fetchOnce(ctx context.Context, symbol, period, interval string) (fetchResult, error) {
	u, err := url.Parse(a.config.BaseURL + "/enhanced-data")
	if err != nil {
		return fetchResult{}, enginerr.New(enginerr.KindProtocolViolation, "invalid base url", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("period", period)
	q.Set("interval", interval)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fetchResult{}, enginerr.New(enginerr.KindTransientUpstream, "build request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fetchResult{}, enginerr.New(enginerr.KindTransientUpstream, "http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, enginerr.New(enginerr.KindTransientUpstream,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body enhancedDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fetchResult{}, enginerr.New(enginerr.KindProtocolViolation, "malformed payload", err)
	}
	if body.Error != "" {
		return fetchResult{}, enginerr.New(enginerr.KindTransientUpstream, body.Error, nil)
	}

	bars, err := canonicalize(body.RawData)
	if err != nil {
		return fetchResult{}, enginerr.New(enginerr.KindProtocolViolation, "non-conforming bars", err)
	}

	return fetchResult{bars: bars, indicators: types.IndicatorSet(body.TechnicalIndicators)}, nil
}

func canonicalize(raw []struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}) (types.BarSeries, error) {
	out := make(types.BarSeries, 0, len(raw))
	for _, r := range raw {
		ts, err := parseTimestamp(r.Timestamp)
		if err != nil {
			continue // drop rows with unparseable timestamps, never fatal
		}
		if r.Open == 0 && r.High == 0 && r.Low == 0 && r.Close == 0 {
			continue // drop rows with missing OHLC
		}
		out = append(out, types.Bar{
			Timestamp: ts,
			Open:      decimal.NewFromFloat(r.Open),
			High:      decimal.NewFromFloat(r.High),
			Low:       decimal.NewFromFloat(r.Low),
			Close:     decimal.NewFromFloat(r.Close),
			Volume:    int64(r.Volume),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	for i := 1; i < len(out); i++ {
		if !out[i].Timestamp.After(out[i-1].Timestamp) {
			return nil, fmt.Errorf("non-monotonic timestamps at index %d", i)
		}
	}
	return out, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
