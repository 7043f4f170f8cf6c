package database

import (
	"testing"
	"time"

	"binance-backtest-go/internal/backtest"
	"binance-backtest-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupStore creates a store over a fresh in-memory database.
func setupStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.BacktestRun{}, &models.TradeRecord{})
	require.NoError(t, err)

	return NewStore(db, zap.NewNop())
}

func sampleResult() *backtest.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pf := 2.0
	return &backtest.Result{
		Config: backtest.Config{
			Symbol:         "BTCUSDT",
			Interval:       "1h",
			StartDate:      start,
			EndDate:        start.AddDate(0, 1, 0),
			InitialBalance: 10000,
			RiskPerTrade:   0.02,
			StopLossPct:    0.02,
			TakeProfitPct:  0.04,
		},
		InitialBalance: 10000,
		FinalBalance:   10050,
		ProfitLoss:     50,
		ProfitLossPct:  0.005,
		Trades: []backtest.Trade{
			{
				Symbol: "BTCUSDT", Side: backtest.SideLong,
				EntryPrice: 100, ExitPrice: 104, Quantity: 25,
				EntryTime: start, ExitTime: start.Add(4 * time.Hour),
				PnL: 100, PnLPct: 0.04, BalanceAfter: 10100,
				ExitReason: backtest.ExitTakeProfit,
			},
			{
				Symbol: "BTCUSDT", Side: backtest.SideShort,
				EntryPrice: 104, ExitPrice: 106.08, Quantity: 25,
				EntryTime: start.Add(5 * time.Hour), ExitTime: start.Add(9 * time.Hour),
				PnL: -50, PnLPct: -0.02, BalanceAfter: 10050,
				ExitReason: backtest.ExitStopLoss,
			},
		},
		Metrics: backtest.Metrics{
			TotalTrades: 2, WinningTrades: 1, LosingTrades: 1,
			WinRate: 0.5, ProfitFactor: &pf, MaxDrawdown: 0.0049505,
		},
	}
}

func TestStore_SaveAndLoadRun(t *testing.T) {
	store := setupStore(t)

	run, err := store.SaveResult(sampleResult())
	require.NoError(t, err)
	require.NotZero(t, run.ID)

	runs, err := store.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, "1h", got.Interval)
	assert.Equal(t, 10000.0, got.InitialBalance)
	assert.Equal(t, 10050.0, got.FinalBalance)
	assert.Equal(t, 2, got.TotalTrades)
	assert.Equal(t, 0.5, got.WinRate)
	require.NotNil(t, got.ProfitFactor)
	assert.Equal(t, 2.0, *got.ProfitFactor)
	assert.Nil(t, got.SharpeRatio)

	trades, err := store.RunTrades(run.ID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "LONG", trades[0].Side)
	assert.Equal(t, "TAKE_PROFIT", trades[0].ExitReason)
	assert.Equal(t, "STOP_LOSS", trades[1].ExitReason)
	assert.Equal(t, 104.0, trades[1].EntryPrice)
}

func TestStore_RecentRunsNewestFirst(t *testing.T) {
	store := setupStore(t)

	first := sampleResult()
	second := sampleResult()
	second.Config.Symbol = "ETHUSDT"
	for i := range second.Trades {
		second.Trades[i].Symbol = "ETHUSDT"
	}

	_, err := store.SaveResult(first)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond) // distinct created_at timestamps
	_, err = store.SaveResult(second)
	require.NoError(t, err)

	runs, err := store.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ETHUSDT", runs[0].Symbol)
}
