package models

import (
	"time"

	"gorm.io/gorm"
)

// TradeRecord persists one closed trade of a backtest run.
type TradeRecord struct {
	gorm.Model
	RunID        uint      `json:"run_id" gorm:"index"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"` // "LONG" or "SHORT"
	EntryPrice   float64   `json:"entry_price"`
	ExitPrice    float64   `json:"exit_price"`
	Quantity     float64   `json:"quantity"`
	EntryTime    time.Time `json:"entry_time"`
	ExitTime     time.Time `json:"exit_time"`
	PnL          float64   `json:"pnl"`
	PnLPct       float64   `json:"pnl_pct"`
	Fee          float64   `json:"fee"`
	BalanceAfter float64   `json:"balance_after"`
	ExitReason   string    `json:"exit_reason"`
}
