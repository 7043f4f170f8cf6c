package backtest

import (
	"context"
	"time"
)

// Action is a per-bar directional decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is the per-bar output of a SignalSource.
type Signal struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// SignalSource produces one directional decision per bar. The window
// contains bars [0..i] only, never future data. Implementations may
// block (e.g. on a model inference call); the simulator calls them
// synchronously, exactly once per bar, in bar order.
type SignalSource interface {
	Signal(ctx context.Context, window []Candle) (Signal, error)
}

// SignalEvent records a non-HOLD decision for the result's signal log.
type SignalEvent struct {
	Time       time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"`
	Price      float64   `json:"price"`
}
