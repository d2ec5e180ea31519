package risk

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
)

// PositionStore is the subset of the persistent store position repair
// needs.
type PositionStore interface {
	ListPositions(ctx context.Context) ([]domain.Position, error)
	UpsertPosition(ctx context.Context, p domain.Position) error
}

// RepairDrift zeroes any stored position whose magnitude exceeds 1.5x the
// configured max position, a defense against legacy data or a prior
// configuration with a much larger cap. It returns the ids repaired.
func RepairDrift(ctx context.Context, store PositionStore, maxPosition decimal.Decimal) ([]string, error) {
	positions, err := store.ListPositions(ctx)
	if err != nil {
		return nil, err
	}

	var repaired []string
	for _, p := range positions {
		if !p.ExceedsDriftCap(maxPosition) {
			continue
		}
		p.Net = decimal.Zero
		if err := store.UpsertPosition(ctx, p); err != nil {
			return repaired, err
		}
		repaired = append(repaired, p.MarketID)
	}
	return repaired, nil
}
