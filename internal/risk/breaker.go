// Package risk implements the circuit breaker and inventory drift repair
// the cycle driver runs before any quoting work each cycle.
package risk

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
)

// ErrCircuitBreakerOpen signals that quoting must not proceed this cycle.
var ErrCircuitBreakerOpen = fmt.Errorf("circuit breaker open")

// PnLStore is the subset of the persistent store the breaker needs. The
// persisted daily row is the source of truth; the in-process atomic is only
// a fast-path mirror to avoid a store round trip on every AllowTrading call
// within the same cycle.
type PnLStore interface {
	GetDailyPnL(ctx context.Context, date string) (domain.DailyPnL, error)
	UpsertDailyPnL(ctx context.Context, row domain.DailyPnL) error
}

// Breaker evaluates the daily-loss circuit breaker. It latches for the
// remainder of a calendar date (UTC) once realized PnL breaches -3% of
// that date's capital snapshot; a fresh date always starts un-latched.
type Breaker struct {
	store PnLStore

	cachedDate  atomic.Value // string
	cachedOpen  atomic.Bool
}

func NewBreaker(store PnLStore) *Breaker {
	return &Breaker{store: store}
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// Evaluate reads today's PnL row, latches the breaker if the loss limit has
// been breached, and returns the (possibly just-updated) row. Quoting may
// proceed only if the returned row's CircuitBreakerTripped is false.
func (b *Breaker) Evaluate(ctx context.Context, totalCapital decimal.Decimal) (domain.DailyPnL, error) {
	date := today()
	row, err := b.store.GetDailyPnL(ctx, date)
	if err != nil {
		return row, err
	}
	if row.Date == "" {
		row = domain.DailyPnL{Date: date, CapitalSnapshot: totalCapital}
		if err := b.store.UpsertDailyPnL(ctx, row); err != nil {
			return row, err
		}
	}

	b.cachedDate.Store(date)

	if row.CircuitBreakerTripped {
		b.cachedOpen.Store(true)
		return row, ErrCircuitBreakerOpen
	}

	if row.BreachesLossLimit() {
		row.CircuitBreakerTripped = true
		if err := b.store.UpsertDailyPnL(ctx, row); err != nil {
			return row, err
		}
		b.cachedOpen.Store(true)
		return row, ErrCircuitBreakerOpen
	}

	b.cachedOpen.Store(false)
	return row, nil
}

// AllowTrading is the cheap in-cycle check other components may call
// without hitting the store again; callers still must call Evaluate once
// per cycle to pick up a new calendar date or a fresh trip.
func (b *Breaker) AllowTrading() error {
	if b.cachedOpen.Load() {
		return ErrCircuitBreakerOpen
	}
	return nil
}

// RecordFill folds a realized PnL delta into today's row. delta is signed:
// positive for profit, negative for loss.
func (b *Breaker) RecordFill(ctx context.Context, delta decimal.Decimal, totalCapital decimal.Decimal) error {
	date := today()
	row, err := b.store.GetDailyPnL(ctx, date)
	if err != nil {
		return err
	}
	if row.Date == "" {
		row = domain.DailyPnL{Date: date, CapitalSnapshot: totalCapital}
	}
	row.RealizedPnL = row.RealizedPnL.Add(delta)
	row.TradeCount++
	return b.store.UpsertDailyPnL(ctx, row)
}
