package backtest

import "math"

// Metrics are aggregate performance numbers over a finished ledger.
// ProfitFactor and SharpeRatio are nil when undefined (no losing
// trades, fewer than two trades, zero variance); the structure never
// carries NaN or Inf.
type Metrics struct {
	TotalTrades   int      `json:"total_trades"`
	WinningTrades int      `json:"winning_trades"`
	LosingTrades  int      `json:"losing_trades"`
	WinRate       float64  `json:"win_rate"`
	ProfitFactor  *float64 `json:"profit_factor"`
	AverageWin    float64  `json:"average_win"`
	AverageLoss   float64  `json:"average_loss"`
	MaxDrawdown   float64  `json:"max_drawdown"`
	SharpeRatio   *float64 `json:"sharpe_ratio"`
}

// CalculateMetrics is a pure function over the finished trade ledger
// and equity curve. It never mutates its inputs.
//
// Sharpe convention: per-trade returns r_k = pnl_k / balanceBefore_k,
// sharpe = mean(r) / stdev(r) * sqrt(totalTrades), population standard
// deviation. Nil when totalTrades < 2 or stdev == 0.
func CalculateMetrics(trades []Trade, equity []EquityPoint, initialBalance float64) Metrics {
	m := Metrics{
		TotalTrades: len(trades),
		MaxDrawdown: maxDrawdown(equity),
	}
	if len(trades) == 0 {
		return m
	}

	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			grossProfit += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			grossLoss += -t.PnL
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AverageWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = grossLoss / float64(m.LosingTrades)
		pf := grossProfit / grossLoss
		m.ProfitFactor = &pf
	}
	// No losing trades: the profit factor is unbounded and reported as
	// null rather than +Inf.

	m.SharpeRatio = sharpeRatio(trades)
	return m
}

// maxDrawdown is the largest fractional decline from a running peak to
// a subsequent trough, computed in one forward pass.
func maxDrawdown(equity []EquityPoint) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0].Balance
	worst := 0.0
	for _, p := range equity {
		if p.Balance > peak {
			peak = p.Balance
		}
		if peak > 0 {
			dd := (peak - p.Balance) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func sharpeRatio(trades []Trade) *float64 {
	if len(trades) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		balanceBefore := t.BalanceAfter - t.PnL
		if balanceBefore == 0 {
			return nil
		}
		returns = append(returns, t.PnL/balanceBefore)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return nil
	}

	sharpe := mean / stdev * math.Sqrt(float64(len(returns)))
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return nil
	}
	return &sharpe
}
