package domain

import "github.com/shopspring/decimal"

// DailyPnL is the persistent one-row-per-UTC-date ledger the risk governor
// reads before every cycle. trade_count is monotone; once the breaker
// latches for a date it stays latched for the remainder of that date.
type DailyPnL struct {
	Date                string // YYYY-MM-DD, UTC
	RealizedPnL         decimal.Decimal
	CapitalSnapshot     decimal.Decimal
	TradeCount          int
	CircuitBreakerTripped bool
}

// BreachesLossLimit reports whether realized PnL has fallen below -3% of
// the snapshot capital.
func (d DailyPnL) BreachesLossLimit() bool {
	limit := d.CapitalSnapshot.Mul(decimal.NewFromFloat(-0.03))
	return d.RealizedPnL.LessThan(limit)
}
