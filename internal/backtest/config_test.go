package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Symbol:         "BTCUSDT",
		Interval:       "1h",
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InitialBalance: 10000,
		RiskPerTrade:   0.02,
		StopLossPct:    0.02,
		TakeProfitPct:  0.04,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"EmptySymbol", func(c *Config) { c.Symbol = "" }, "symbol"},
		{"UnknownInterval", func(c *Config) { c.Interval = "7m" }, "interval"},
		{"EndBeforeStart", func(c *Config) { c.EndDate = c.StartDate.AddDate(0, 0, -1) }, "end_date"},
		{"ZeroBalance", func(c *Config) { c.InitialBalance = 0 }, "initial_balance"},
		{"NegativeBalance", func(c *Config) { c.InitialBalance = -100 }, "initial_balance"},
		{"ZeroRisk", func(c *Config) { c.RiskPerTrade = 0 }, "risk_per_trade"},
		{"RiskAboveCap", func(c *Config) { c.RiskPerTrade = 0.11 }, "risk_per_trade"},
		{"ZeroStopLoss", func(c *Config) { c.StopLossPct = 0 }, "stop_loss_pct"},
		{"StopLossAtOne", func(c *Config) { c.StopLossPct = 1 }, "stop_loss_pct"},
		{"ZeroTakeProfit", func(c *Config) { c.TakeProfitPct = 0 }, "take_profit_pct"},
		{"NegativeFee", func(c *Config) { c.FeeRate = -0.001 }, "fee_rate"},
		{"ConfidenceAboveOne", func(c *Config) { c.MinConfidence = 1.5 }, "min_confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			var cfgErr *InvalidConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigValidate_RiskCapBoundary(t *testing.T) {
	cfg := validConfig()
	cfg.RiskPerTrade = 0.10 // inclusive upper bound
	assert.NoError(t, cfg.Validate())
}

func TestIntervalDuration(t *testing.T) {
	d, ok := IntervalDuration("4h")
	assert.True(t, ok)
	assert.Equal(t, 4*time.Hour, d)

	_, ok = IntervalDuration("42s")
	assert.False(t, ok)
}
