package backtest

import (
	"fmt"
	"time"
)

// Candle is one OHLCV bar. Immutable once constructed.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// intervalDurations is the Binance kline interval set.
var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// IntervalDuration maps an interval name ("1h", "1d", ...) to its bar
// duration. The second return value is false for unknown intervals.
func IntervalDuration(interval string) (time.Duration, bool) {
	d, ok := intervalDurations[interval]
	return d, ok
}

// ValidateSeries checks the candle series invariants: the series is
// non-empty and openTime is strictly increasing.
func ValidateSeries(symbol, interval string, candles []Candle) error {
	if len(candles) == 0 {
		return &InsufficientDataError{
			Symbol:   symbol,
			Interval: interval,
			Bars:     0,
			Reason:   "empty candle series",
		}
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			return &InsufficientDataError{
				Symbol:   symbol,
				Interval: interval,
				Bars:     len(candles),
				Reason:   fmt.Sprintf("candle open times are not strictly increasing at index %d", i),
			}
		}
	}
	return nil
}
