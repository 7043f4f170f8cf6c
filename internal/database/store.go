package database

import (
	"fmt"

	"binance-backtest-go/internal/backtest"
	"binance-backtest-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store persists finished backtest results. The engine itself keeps no
// state; persistence is a caller concern and lives entirely here.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a result store on top of an open database.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// SaveResult writes the run summary and its full trade ledger in one
// transaction.
func (s *Store) SaveResult(result *backtest.Result) (*models.BacktestRun, error) {
	run := &models.BacktestRun{
		Symbol:         result.Config.Symbol,
		Interval:       result.Config.Interval,
		StartDate:      result.Config.StartDate,
		EndDate:        result.Config.EndDate,
		InitialBalance: result.InitialBalance,
		FinalBalance:   result.FinalBalance,
		ProfitLoss:     result.ProfitLoss,
		ProfitLossPct:  result.ProfitLossPct,
		TotalTrades:    result.Metrics.TotalTrades,
		WinRate:        result.Metrics.WinRate,
		ProfitFactor:   result.Metrics.ProfitFactor,
		MaxDrawdown:    result.Metrics.MaxDrawdown,
		SharpeRatio:    result.Metrics.SharpeRatio,
	}

	for _, t := range result.Trades {
		run.Trades = append(run.Trades, models.TradeRecord{
			Symbol:       t.Symbol,
			Side:         string(t.Side),
			EntryPrice:   t.EntryPrice,
			ExitPrice:    t.ExitPrice,
			Quantity:     t.Quantity,
			EntryTime:    t.EntryTime,
			ExitTime:     t.ExitTime,
			PnL:          t.PnL,
			PnLPct:       t.PnLPct,
			Fee:          t.Fee,
			BalanceAfter: t.BalanceAfter,
			ExitReason:   string(t.ExitReason),
		})
	}

	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to save backtest run: %w", err)
	}

	s.logger.Info("Saved backtest run",
		zap.Uint("run_id", run.ID),
		zap.String("symbol", run.Symbol),
		zap.Int("trades", len(run.Trades)),
	)
	return run, nil
}

// RecentRuns returns the latest persisted runs, newest first, without
// their trade ledgers.
func (s *Store) RecentRuns(limit int) ([]models.BacktestRun, error) {
	var runs []models.BacktestRun
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}
	return runs, nil
}

// RunTrades returns the trade ledger of one persisted run, in close
// order.
func (s *Store) RunTrades(runID uint) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	if err := s.db.Where("run_id = ?", runID).Order("exit_time ASC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades for run %d: %w", runID, err)
	}
	return trades, nil
}
