package binance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"binance-backtest-go/internal/backtest"
	"binance-backtest-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL        = "https://api.binance.com/api/v3"
	testnetBaseURL = "https://testnet.binance.vision/api/v3"

	// klinesPageLimit is the maximum number of klines Binance returns
	// per request; longer ranges are paginated.
	klinesPageLimit = 1000
)

// RestClientInterface defines the historical data provider consumed by
// the backtester.
type RestClientInterface interface {
	GetServerTime() (int64, error)
	GetKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]backtest.Candle, error)
}

// RestClient is a client for the Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client. Market data
// endpoints are public; no API key is needed.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) *RestClient {
	url := baseURL
	switch {
	case cfg.BaseURL != "":
		url = cfg.BaseURL
		logger.Info("Using custom Binance base URL", zap.String("base_url", url))
	case cfg.Testnet:
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	default:
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime() (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// GetKlines fetches the full candle series for [start, end], paginating
// past the per-request limit. The series is returned ascending by open
// time. An empty result is a typed *backtest.InsufficientDataError.
func (c *RestClient) GetKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]backtest.Candle, error) {
	if _, ok := backtest.IntervalDuration(interval); !ok {
		return nil, &backtest.InvalidConfigError{Field: "interval", Value: interval, Reason: "unknown interval"}
	}

	var candles []backtest.Candle
	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	for startMs <= endMs {
		page, err := c.getKlinesPage(ctx, symbol, interval, startMs, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		candles = append(candles, page...)
		if len(page) < klinesPageLimit {
			break
		}
		startMs = page[len(page)-1].OpenTime.UnixMilli() + 1
	}

	if len(candles) == 0 {
		return nil, &backtest.InsufficientDataError{
			Symbol:   symbol,
			Interval: interval,
			Bars:     0,
			Reason:   "no klines returned for the requested range",
		}
	}

	c.logger.Info("Fetched historical klines",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("bars", len(candles)),
	)
	return candles, nil
}

func (c *RestClient) getKlinesPage(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]backtest.Candle, error) {
	var raw [][]interface{}

	req := c.client.R().
		SetContext(ctx).
		SetResult(&raw).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  interval,
			"startTime": strconv.FormatInt(startMs, 10),
			"endTime":   strconv.FormatInt(endMs, 10),
			"limit":     strconv.Itoa(klinesPageLimit),
		})

	if _, err := c.doRequest(ctx, "GET", "/klines", req); err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}

	candles := make([]backtest.Candle, 0, len(raw))
	for _, k := range raw {
		candle, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline for %s: %w", symbol, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// parseKline converts one raw kline array into a Candle. Binance
// encodes timestamps as numbers and prices as strings:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(k []interface{}) (backtest.Candle, error) {
	if len(k) < 6 {
		return backtest.Candle{}, fmt.Errorf("kline has %d fields, want at least 6", len(k))
	}

	openTime, ok := k[0].(float64)
	if !ok {
		return backtest.Candle{}, fmt.Errorf("kline open time is not a number: %v", k[0])
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return backtest.Candle{}, fmt.Errorf("kline field %d is not a string: %v", i, k[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return backtest.Candle{}, fmt.Errorf("kline field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	return backtest.Candle{
		OpenTime: time.UnixMilli(int64(openTime)).UTC(),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
