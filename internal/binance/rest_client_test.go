package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"binance-backtest-go/internal/backtest"
	"binance-backtest-go/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	client := resty.New().SetBaseURL(server.URL)
	logger := zap.NewNop() // Use a no-op logger for tests

	rc := &RestClient{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
	}

	return rc, server
}

func TestGetServerTime(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		expectedTime := time.Now().UnixMilli()
		mockResponse := fmt.Sprintf(`{"serverTime": %d}`, expectedTime)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/time", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		serverTime, err := rc.GetServerTime()

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, expectedTime, serverTime)
	})

	t.Run("APIError", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1121, "msg": "Invalid symbol."}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		serverTime, err := rc.GetServerTime()

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get server time")
		assert.Equal(t, int64(0), serverTime)
	})
}

func TestGetKlines(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		// Arrange: two klines in Binance's array-of-arrays encoding.
		mockResponse := fmt.Sprintf(`[
			[%d, "42000.1", "42100.5", "41900.0", "42050.2", "123.45", %d, "0", 0, "0", "0", "0"],
			[%d, "42050.2", "42200.0", "42000.0", "42150.7", "98.76", %d, "0", 0, "0", "0", "0"]
		]`,
			start.UnixMilli(), start.Add(time.Hour).UnixMilli()-1,
			start.Add(time.Hour).UnixMilli(), start.Add(2*time.Hour).UnixMilli()-1,
		)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/klines", r.URL.Path)
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			assert.Equal(t, "1h", r.URL.Query().Get("interval"))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		candles, err := rc.GetKlines(context.Background(), "BTCUSDT", "1h", start, end)

		// Assert
		require.NoError(t, err)
		require.Len(t, candles, 2)
		assert.Equal(t, start, candles[0].OpenTime)
		assert.Equal(t, 42000.1, candles[0].Open)
		assert.Equal(t, 42100.5, candles[0].High)
		assert.Equal(t, 41900.0, candles[0].Low)
		assert.Equal(t, 42050.2, candles[0].Close)
		assert.Equal(t, 123.45, candles[0].Volume)
		assert.Equal(t, start.Add(time.Hour), candles[1].OpenTime)
	})

	t.Run("EmptyRange", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[]`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		candles, err := rc.GetKlines(context.Background(), "NOPEUSDT", "1h", start, end)

		assert.Nil(t, candles)
		var dataErr *backtest.InsufficientDataError
		require.ErrorAs(t, err, &dataErr)
		assert.Equal(t, "NOPEUSDT", dataErr.Symbol)
	})

	t.Run("UnknownInterval", func(t *testing.T) {
		rc, server := setupTestServer(http.NotFoundHandler())
		defer server.Close()

		_, err := rc.GetKlines(context.Background(), "BTCUSDT", "7m", start, end)

		var cfgErr *backtest.InvalidConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "interval", cfgErr.Field)
	})

	t.Run("MalformedKline", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[[1704067200000, "not-a-number", "1", "1", "1", "1"]]`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.GetKlines(context.Background(), "BTCUSDT", "1h", start, end)

		assert.ErrorContains(t, err, "failed to parse kline")
	})
}

func TestNewRestClient(t *testing.T) {
	t.Run("CustomBaseURL", func(t *testing.T) {
		cfg := &config.Binance{BaseURL: "http://localhost:9999/api/v3"}
		rc := NewRestClient(cfg, zap.NewNop())
		assert.NotNil(t, rc)
	})

	t.Run("Testnet", func(t *testing.T) {
		cfg := &config.Binance{Testnet: true}
		rc := NewRestClient(cfg, zap.NewNop())
		assert.NotNil(t, rc)
	})
}
