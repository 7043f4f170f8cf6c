package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitStopLoss       ExitReason = "STOP_LOSS"
	ExitTakeProfit     ExitReason = "TAKE_PROFIT"
	ExitSignalReversal ExitReason = "SIGNAL_REVERSAL"
	ExitEndOfData      ExitReason = "END_OF_DATA"
)

// Trade is an immutable ledger record appended on position close.
type Trade struct {
	Symbol       string     `json:"symbol"`
	Side         Side       `json:"side"`
	EntryPrice   float64    `json:"entry_price"`
	ExitPrice    float64    `json:"exit_price"`
	Quantity     float64    `json:"quantity"`
	EntryTime    time.Time  `json:"entry_time"`
	ExitTime     time.Time  `json:"exit_time"`
	PnL          float64    `json:"pnl"`
	PnLPct       float64    `json:"pnl_pct"`
	Fee          float64    `json:"fee"`
	BalanceAfter float64    `json:"balance_after"`
	ExitReason   ExitReason `json:"exit_reason"`
}

// EquityPoint is one sample of the equity curve, taken at run start and
// at every trade close.
type EquityPoint struct {
	Time    time.Time `json:"timestamp"`
	Balance float64   `json:"balance"`
}

// position is the transient working state between entry and exit.
// At most one exists per run.
type position struct {
	Side            Side
	EntryPrice      float64
	Quantity        float64
	StopLossPrice   float64
	TakeProfitPrice float64
	EntryTime       time.Time
	EntryBalance    float64
}

// Simulator replays a candle series bar by bar against a signal
// source, simulating order fills and the position lifecycle. A
// Simulator owns no shared state: independent runs may execute
// concurrently, one Simulator each.
type Simulator struct {
	cfg    Config
	src    SignalSource
	sizer  Sizer
	logger *zap.Logger
}

// NewSimulator creates a simulator for one run.
func NewSimulator(cfg Config, src SignalSource, logger *zap.Logger) *Simulator {
	return &Simulator{
		cfg: cfg,
		src: src,
		sizer: Sizer{
			RiskPerTrade:  cfg.RiskPerTrade,
			StopLossPct:   cfg.StopLossPct,
			TakeProfitPct: cfg.TakeProfitPct,
		},
		logger: logger.Named("simulator"),
	}
}

// runState is the mutable per-run working set.
type runState struct {
	balance float64
	pos     *position
	trades  []Trade
	equity  []EquityPoint
	signals []SignalEvent
}

// Run executes the full simulation and returns the assembled result.
// It validates the config and the series first and never returns a
// partial result: any error aborts the whole run.
//
// Per-bar order: (1) intrabar stop/take-profit exits against the bar's
// high/low, stop-loss winning a same-bar tie; (2) one signal call;
// (3) close on an opposing signal at the bar close; (4) open a new
// position at the bar close if flat. A position still open after the
// last bar is force-closed at that bar's close.
func (s *Simulator) Run(ctx context.Context, candles []Candle) (*Result, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateSeries(s.cfg.Symbol, s.cfg.Interval, candles); err != nil {
		return nil, err
	}

	st := &runState{
		balance: s.cfg.InitialBalance,
		equity: []EquityPoint{
			{Time: candles[0].OpenTime, Balance: s.cfg.InitialBalance},
		},
	}

	s.logger.Info("Starting backtest",
		zap.String("symbol", s.cfg.Symbol),
		zap.String("interval", s.cfg.Interval),
		zap.Int("bars", len(candles)),
		zap.Float64("initial_balance", s.cfg.InitialBalance),
	)

	for i := range candles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := candles[i]

		// 1. Intrabar exits are checked against high/low before anything
		// else, so a stop hit on this bar cannot be masked by the signal.
		if st.pos != nil {
			if price, reason, hit := exitTrigger(st.pos, bar); hit {
				s.closePosition(st, bar.OpenTime, price, reason)
			}
		}

		// 2. One signal call per bar, window limited to past-and-current
		// bars. A failed call aborts the run.
		sig, err := s.src.Signal(ctx, candles[:i+1])
		if err != nil {
			return nil, &SignalSourceError{Bar: i, Time: bar.OpenTime, Err: err}
		}
		if sig.Action != ActionHold {
			st.signals = append(st.signals, SignalEvent{
				Time:       bar.OpenTime,
				Action:     sig.Action,
				Confidence: sig.Confidence,
				Price:      bar.Close,
			})
		}

		// 3. A signal opposing the open position closes it at the bar close.
		if st.pos != nil && opposes(st.pos.Side, sig.Action) {
			s.closePosition(st, bar.OpenTime, bar.Close, ExitSignalReversal)
		}

		// 4. Entries fill at the bar close, sized from the current balance.
		if st.pos == nil && sig.Confidence >= s.cfg.MinConfidence {
			switch sig.Action {
			case ActionBuy:
				s.openPosition(st, bar, SideLong)
			case ActionSell:
				s.openPosition(st, bar, SideShort)
			}
		}
	}

	if st.pos != nil {
		last := candles[len(candles)-1]
		s.closePosition(st, last.OpenTime, last.Close, ExitEndOfData)
	}

	metrics := CalculateMetrics(st.trades, st.equity, s.cfg.InitialBalance)
	result := assembleResult(s.cfg, st.trades, st.equity, st.signals, st.balance, metrics)

	s.logger.Info("Backtest finished",
		zap.String("symbol", s.cfg.Symbol),
		zap.Int("trades", len(st.trades)),
		zap.Float64("final_balance", st.balance),
	)
	return result, nil
}

// exitTrigger checks the bar's extremes against the position's trigger
// prices. When stop-loss and take-profit both lie inside the bar's
// range, the stop-loss wins: the adverse move is assumed to happen
// first.
func exitTrigger(pos *position, bar Candle) (float64, ExitReason, bool) {
	switch pos.Side {
	case SideLong:
		if bar.Low <= pos.StopLossPrice {
			return pos.StopLossPrice, ExitStopLoss, true
		}
		if bar.High >= pos.TakeProfitPrice {
			return pos.TakeProfitPrice, ExitTakeProfit, true
		}
	case SideShort:
		if bar.High >= pos.StopLossPrice {
			return pos.StopLossPrice, ExitStopLoss, true
		}
		if bar.Low <= pos.TakeProfitPrice {
			return pos.TakeProfitPrice, ExitTakeProfit, true
		}
	}
	return 0, "", false
}

// opposes reports whether the signal action is the reverse of the open
// position's side.
func opposes(side Side, action Action) bool {
	return (side == SideLong && action == ActionSell) ||
		(side == SideShort && action == ActionBuy)
}

func (s *Simulator) openPosition(st *runState, bar Candle, side Side) {
	entryPrice := bar.Close
	quantity := s.sizer.Quantity(st.balance, entryPrice)
	if quantity <= 0 {
		// Balance exhausted; losses already accrued stand, but there is
		// nothing left to size a new position from.
		s.logger.Debug("Skipping entry, non-positive quantity",
			zap.Float64("balance", st.balance),
			zap.Float64("entry_price", entryPrice),
		)
		return
	}

	st.pos = &position{
		Side:            side,
		EntryPrice:      entryPrice,
		Quantity:        quantity,
		StopLossPrice:   s.sizer.StopLossPrice(side, entryPrice),
		TakeProfitPrice: s.sizer.TakeProfitPrice(side, entryPrice),
		EntryTime:       bar.OpenTime,
		EntryBalance:    st.balance,
	}

	s.logger.Debug("Opened position",
		zap.String("side", string(side)),
		zap.Float64("entry_price", entryPrice),
		zap.Float64("quantity", quantity),
		zap.Float64("stop_loss", st.pos.StopLossPrice),
		zap.Float64("take_profit", st.pos.TakeProfitPrice),
	)
}

func (s *Simulator) closePosition(st *runState, exitTime time.Time, exitPrice float64, reason ExitReason) {
	pos := st.pos
	gross := (exitPrice - pos.EntryPrice) * pos.Quantity * pos.Side.sign()
	fee := (pos.EntryPrice + exitPrice) * pos.Quantity * s.cfg.FeeRate
	pnl := gross - fee
	st.balance += pnl

	trade := Trade{
		Symbol:       s.cfg.Symbol,
		Side:         pos.Side,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    exitPrice,
		Quantity:     pos.Quantity,
		EntryTime:    pos.EntryTime,
		ExitTime:     exitTime,
		PnL:          pnl,
		PnLPct:       pnl / (pos.EntryPrice * pos.Quantity),
		Fee:          fee,
		BalanceAfter: st.balance,
		ExitReason:   reason,
	}
	st.trades = append(st.trades, trade)
	st.equity = append(st.equity, EquityPoint{Time: exitTime, Balance: st.balance})
	st.pos = nil

	s.logger.Debug("Closed position",
		zap.String("side", string(trade.Side)),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("balance", st.balance),
	)
}
