package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizer_Quantity(t *testing.T) {
	sizer := Sizer{RiskPerTrade: 0.02, StopLossPct: 0.02, TakeProfitPct: 0.04}

	t.Run("RiskBasedSize", func(t *testing.T) {
		// risk 200 over a 2.0 stop distance: 100 units, notional exactly
		// the balance boundary. Must not be clamped below the computed
		// value.
		qty := sizer.Quantity(10000, 100)
		assert.Equal(t, 100.0, qty)
	})

	t.Run("ClampedToBalance", func(t *testing.T) {
		// A tighter stop would size past the balance; the sizer caps the
		// notional, it never leverages.
		tight := Sizer{RiskPerTrade: 0.02, StopLossPct: 0.01, TakeProfitPct: 0.04}
		qty := tight.Quantity(10000, 100)
		assert.Equal(t, 100.0, qty) // balance / entryPrice
	})

	t.Run("PositiveWheneverBalanceIs", func(t *testing.T) {
		assert.Greater(t, sizer.Quantity(0.01, 100), 0.0)
	})

	t.Run("ZeroOnExhaustedBalance", func(t *testing.T) {
		assert.Equal(t, 0.0, sizer.Quantity(0, 100))
		assert.Equal(t, 0.0, sizer.Quantity(-50, 100))
	})
}

func TestSizer_TriggerPrices(t *testing.T) {
	sizer := Sizer{RiskPerTrade: 0.02, StopLossPct: 0.02, TakeProfitPct: 0.04}

	assert.Equal(t, 100*(1-0.02), sizer.StopLossPrice(SideLong, 100))
	assert.Equal(t, 100*(1+0.04), sizer.TakeProfitPrice(SideLong, 100))

	// mirrored for SHORT
	assert.Equal(t, 100*(1+0.02), sizer.StopLossPrice(SideShort, 100))
	assert.Equal(t, 100*(1-0.04), sizer.TakeProfitPrice(SideShort, 100))
}
