package models

import (
	"time"

	"gorm.io/gorm"
)

// BacktestRun persists the summary of one completed backtest.
type BacktestRun struct {
	gorm.Model
	Symbol         string    `json:"symbol" gorm:"index"`
	Interval       string    `json:"interval"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialBalance float64   `json:"initial_balance"`
	FinalBalance   float64   `json:"final_balance"`
	ProfitLoss     float64   `json:"profit_loss"`
	ProfitLossPct  float64   `json:"profit_loss_pct"`
	TotalTrades    int       `json:"total_trades"`
	WinRate        float64   `json:"win_rate"`
	ProfitFactor   *float64  `json:"profit_factor"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	SharpeRatio    *float64  `json:"sharpe_ratio"`

	Trades []TradeRecord `json:"trades" gorm:"foreignKey:RunID"`
}
