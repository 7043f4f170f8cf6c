package strategy

import (
	"context"
	"math"

	"binance-backtest-go/internal/backtest"
	"go.uber.org/zap"
)

const (
	rsiPeriod       = 14
	fastSMAPeriod   = 20
	slowSMAPeriod   = 50
	macdFastPeriod  = 12
	macdSlowPeriod  = 26
	macdSignalSpan  = 9
	bollingerPeriod = 20
	bollingerWidth  = 2.0

	// warmupBars is the longest lookback any rule needs; the source
	// holds until the window covers it.
	warmupBars = slowSMAPeriod

	rsiOversold   = 30.0
	rsiOverbought = 70.0

	ruleCount = 4
)

// Indicator is a rule-based signal source combining RSI, SMA trend,
// MACD crossover and Bollinger band breakout. Rules are evaluated in
// that fixed order and a later rule overrides an earlier one; the
// confidence is the fraction of rules agreeing with the final action.
//
// Stateless between calls: the same window always yields the same
// signal, which keeps backtest runs reproducible.
type Indicator struct {
	logger *zap.Logger
}

var _ backtest.SignalSource = (*Indicator)(nil)

// NewIndicator creates the rule-based signal source.
func NewIndicator(logger *zap.Logger) *Indicator {
	return &Indicator{logger: logger.Named("indicator")}
}

// Name returns the unique name of the signal source.
func (s *Indicator) Name() string { return "indicator" }

// Signal evaluates the rules over the window's closing prices.
func (s *Indicator) Signal(_ context.Context, window []backtest.Candle) (backtest.Signal, error) {
	if len(window) < warmupBars {
		return backtest.Signal{Action: backtest.ActionHold}, nil
	}

	closes := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
	}
	last := closes[len(closes)-1]

	votes := map[backtest.Action]int{}
	action := backtest.ActionHold

	// 1. RSI extremes
	rsi := relativeStrengthIndex(closes, rsiPeriod)
	if rsi < rsiOversold {
		action = backtest.ActionBuy
		votes[backtest.ActionBuy]++
	} else if rsi > rsiOverbought {
		action = backtest.ActionSell
		votes[backtest.ActionSell]++
	}

	// 2. SMA trend
	fast := simpleMovingAverage(closes, fastSMAPeriod)
	slow := simpleMovingAverage(closes, slowSMAPeriod)
	if fast > slow && last > fast {
		action = backtest.ActionBuy
		votes[backtest.ActionBuy]++
	} else if fast < slow && last < fast {
		action = backtest.ActionSell
		votes[backtest.ActionSell]++
	}

	// 3. MACD crossover
	macd, signalLine := macdLines(closes)
	hist := macd - signalLine
	if macd > signalLine && hist > 0 {
		action = backtest.ActionBuy
		votes[backtest.ActionBuy]++
	} else if macd < signalLine && hist < 0 {
		action = backtest.ActionSell
		votes[backtest.ActionSell]++
	}

	// 4. Bollinger band breakout
	middle := simpleMovingAverage(closes, bollingerPeriod)
	band := bollingerWidth * sampleStdDev(closes, bollingerPeriod)
	if last < middle-band {
		action = backtest.ActionBuy
		votes[backtest.ActionBuy]++
	} else if last > middle+band {
		action = backtest.ActionSell
		votes[backtest.ActionSell]++
	}

	if action == backtest.ActionHold {
		return backtest.Signal{Action: backtest.ActionHold}, nil
	}

	sig := backtest.Signal{
		Action:     action,
		Confidence: float64(votes[action]) / ruleCount,
	}
	s.logger.Debug("Signal generated",
		zap.String("action", string(sig.Action)),
		zap.Float64("confidence", sig.Confidence),
		zap.Float64("rsi", rsi),
		zap.Float64("macd_hist", hist),
	)
	return sig, nil
}

// simpleMovingAverage averages the last n closes.
func simpleMovingAverage(closes []float64, n int) float64 {
	sum := 0.0
	for _, v := range closes[len(closes)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// sampleStdDev is the sample standard deviation of the last n closes.
func sampleStdDev(closes []float64, n int) float64 {
	if n < 2 {
		return 0
	}
	window := closes[len(closes)-n:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	return math.Sqrt(variance)
}

// relativeStrengthIndex uses a simple average of gains and losses over
// the period. 50 is returned for a flat window and 100 when there are
// no losses, so extreme comparisons stay well-defined.
func relativeStrengthIndex(closes []float64, period int) float64 {
	window := closes[len(closes)-period-1:]
	var gain, loss float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss += -delta
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// exponentialMovingAverage returns the full EMA series, seeded at the
// first value with smoothing 2/(span+1).
func exponentialMovingAverage(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// macdLines returns the latest MACD value and its signal line.
func macdLines(closes []float64) (macd, signalLine float64) {
	fast := exponentialMovingAverage(closes, macdFastPeriod)
	slow := exponentialMovingAverage(closes, macdSlowPeriod)
	series := make([]float64, len(closes))
	for i := range closes {
		series[i] = fast[i] - slow[i]
	}
	signal := exponentialMovingAverage(series, macdSignalSpan)
	return series[len(series)-1], signal[len(signal)-1]
}
