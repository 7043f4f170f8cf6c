package backtest

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// sign returns +1 for LONG and -1 for SHORT, the pnl direction factor.
func (s Side) sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Sizer converts account balance and risk configuration into an order
// quantity and stop/take-profit trigger prices.
//
// Quantity is chosen so that a full stop-loss hit loses exactly
// balance*RiskPerTrade. The notional is capped at the available
// balance: the sizer never leverages.
type Sizer struct {
	RiskPerTrade  float64
	StopLossPct   float64
	TakeProfitPct float64
}

// Quantity returns the order size for the given balance and entry
// price. Returns 0 when the balance is non-positive.
func (s Sizer) Quantity(balance, entryPrice float64) float64 {
	if balance <= 0 || entryPrice <= 0 || s.StopLossPct <= 0 {
		return 0
	}
	riskAmount := balance * s.RiskPerTrade
	stopLossDistance := entryPrice * s.StopLossPct
	quantity := riskAmount / stopLossDistance
	if quantity*entryPrice > balance {
		quantity = balance / entryPrice
	}
	return quantity
}

// StopLossPrice is the adverse trigger price for the given side.
func (s Sizer) StopLossPrice(side Side, entryPrice float64) float64 {
	if side == SideShort {
		return entryPrice * (1 + s.StopLossPct)
	}
	return entryPrice * (1 - s.StopLossPct)
}

// TakeProfitPrice is the favorable trigger price for the given side.
func (s Sizer) TakeProfitPrice(side Side, entryPrice float64) float64 {
	if side == SideShort {
		return entryPrice * (1 - s.TakeProfitPct)
	}
	return entryPrice * (1 + s.TakeProfitPct)
}
