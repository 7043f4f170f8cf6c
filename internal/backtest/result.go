package backtest

// Result is the write-once output of a run: config echo, trade ledger,
// equity curve (prefixed with the synthetic starting point), signal
// log, final balance and aggregate metrics.
type Result struct {
	Config         Config        `json:"config"`
	InitialBalance float64       `json:"initial_balance"`
	FinalBalance   float64       `json:"final_balance"`
	ProfitLoss     float64       `json:"profit_loss"`
	ProfitLossPct  float64       `json:"profit_loss_pct"`
	Trades         []Trade       `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Signals        []SignalEvent `json:"signals"`
	Metrics        Metrics       `json:"metrics"`
}

// assembleResult packages the finished run state. Pure assembly, no
// computation beyond the profit/loss deltas.
func assembleResult(cfg Config, trades []Trade, equity []EquityPoint, signals []SignalEvent, finalBalance float64, metrics Metrics) *Result {
	if trades == nil {
		trades = []Trade{}
	}
	if signals == nil {
		signals = []SignalEvent{}
	}
	return &Result{
		Config:         cfg,
		InitialBalance: cfg.InitialBalance,
		FinalBalance:   finalBalance,
		ProfitLoss:     finalBalance - cfg.InitialBalance,
		ProfitLossPct:  (finalBalance - cfg.InitialBalance) / cfg.InitialBalance,
		Trades:         trades,
		EquityCurve:    equity,
		Signals:        signals,
		Metrics:        metrics,
	}
}
