package domain

import "github.com/shopspring/decimal"

// Position is the persistent net inventory for one market, in signed USDC
// units of the outcome token: positive means net long, negative net short.
// It is mutated only by the fill-update path (live venue fills, or
// simulated fills in paper mode) and survives process restarts.
type Position struct {
	MarketID string
	Net      decimal.Decimal
}

// ExceedsDriftCap reports whether |Net| breaches 1.5x the configured max
// position, the defense against stale/legacy data the risk governor
// auto-repairs at the start of every cycle.
func (p Position) ExceedsDriftCap(maxPosition decimal.Decimal) bool {
	cap15 := maxPosition.Mul(decimal.NewFromFloat(1.5))
	return p.Net.Abs().GreaterThan(cap15)
}
