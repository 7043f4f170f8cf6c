package backtest

import "time"

// maxRiskPerTrade caps the fraction of balance risked on a single
// trade. Anything above this is almost certainly a fat-fingered input.
const maxRiskPerTrade = 0.10

// Config describes one backtest run. Percentages are fractions
// (0.02 = 2%). Validated once before the simulation starts.
type Config struct {
	Symbol         string    `json:"symbol"`
	Interval       string    `json:"interval"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialBalance float64   `json:"initial_balance"`
	RiskPerTrade   float64   `json:"risk_per_trade"`
	StopLossPct    float64   `json:"stop_loss_pct"`
	TakeProfitPct  float64   `json:"take_profit_pct"`

	// FeeRate is an optional flat fee/slippage fraction charged on the
	// entry and exit notional of every trade. Zero disables fees.
	FeeRate float64 `json:"fee_rate"`

	// MinConfidence suppresses entries whose signal confidence falls
	// below the threshold. Zero accepts every signal.
	MinConfidence float64 `json:"min_confidence"`
}

// Validate fails fast on out-of-range values so a run never starts in a
// half-valid state.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return &InvalidConfigError{Field: "symbol", Value: c.Symbol, Reason: "must not be empty"}
	}
	if _, ok := IntervalDuration(c.Interval); !ok {
		return &InvalidConfigError{Field: "interval", Value: c.Interval, Reason: "unknown interval"}
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return &InvalidConfigError{Field: "end_date", Value: c.EndDate, Reason: "end date before start date"}
	}
	if c.InitialBalance <= 0 {
		return &InvalidConfigError{Field: "initial_balance", Value: c.InitialBalance, Reason: "must be positive"}
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade > maxRiskPerTrade {
		return &InvalidConfigError{Field: "risk_per_trade", Value: c.RiskPerTrade, Reason: "must be in (0, 0.10]"}
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 1 {
		return &InvalidConfigError{Field: "stop_loss_pct", Value: c.StopLossPct, Reason: "must be in (0, 1)"}
	}
	if c.TakeProfitPct <= 0 {
		return &InvalidConfigError{Field: "take_profit_pct", Value: c.TakeProfitPct, Reason: "must be positive"}
	}
	if c.FeeRate < 0 || c.FeeRate >= 0.1 {
		return &InvalidConfigError{Field: "fee_rate", Value: c.FeeRate, Reason: "must be in [0, 0.1)"}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &InvalidConfigError{Field: "min_confidence", Value: c.MinConfidence, Reason: "must be in [0, 1]"}
	}
	return nil
}
