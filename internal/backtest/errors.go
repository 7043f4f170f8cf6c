package backtest

import (
	"fmt"
	"time"
)

// InvalidConfigError reports a run configuration value that fails
// validation. The run never starts.
type InvalidConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: field %q = %v: %s", e.Field, e.Value, e.Reason)
}

// InsufficientDataError reports a candle series that cannot be
// simulated (empty, or ordering invariants violated).
type InsufficientDataError struct {
	Symbol   string
	Interval string
	Bars     int
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s/%s (%d bars): %s", e.Symbol, e.Interval, e.Bars, e.Reason)
}

// SignalSourceError reports a failed signal call. The whole run fails;
// a failed call is never treated as HOLD, that would corrupt
// reproducibility.
type SignalSourceError struct {
	Bar  int
	Time time.Time
	Err  error
}

func (e *SignalSourceError) Error() string {
	return fmt.Sprintf("signal source failed at bar %d (%s): %v", e.Bar, e.Time.Format(time.RFC3339), e.Err)
}

func (e *SignalSourceError) Unwrap() error { return e.Err }
