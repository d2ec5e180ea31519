package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/catalog"
	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/venue"
)

// CatalogClient is the subset of internal/catalog.Client the engine needs.
// Defined as an interface here so tests can fake the network boundary.
type CatalogClient interface {
	TopMarkets(ctx context.Context, limit int) ([]catalog.Row, error)
	SponsorLookup(ctx context.Context, row catalog.Row, tokenID, title string) (float64, domain.SponsorMethod, error)
	ClassifyCached(conditionID, title string, sponsorPool float64) (float64, domain.Category, bool)
}

// VenueClient is the subset of internal/venue.Client the engine needs.
type VenueClient interface {
	GetOrderBook(ctx context.Context, tokenID string) (venue.OrderBook, error)
	GetLastTradePrice(ctx context.Context, tokenID string) (domain.Price, bool, error)
	GetOpenOrders(ctx context.Context) ([]domain.RestingOrder, error)
	PlaceGTC(ctx context.Context, tokenID string, side domain.Side, price domain.Price, size float64, opts venue.PlaceOptions) (venue.PlacedOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAll(ctx context.Context) error
	DeriveOrCreateAPIKey(ctx context.Context) (venue.APIKeyCreds, error)
	Address() string
}

// Store is the subset of internal/store.Store the engine needs.
type Store interface {
	UpsertPosition(ctx context.Context, p domain.Position) error
	GetPosition(ctx context.Context, marketID string) (domain.Position, error)
	ListPositions(ctx context.Context) ([]domain.Position, error)
	ResetPositions(ctx context.Context) error
	GetDailyPnL(ctx context.Context, date string) (domain.DailyPnL, error)
	UpsertDailyPnL(ctx context.Context, row domain.DailyPnL) error
	AppendTradeLog(ctx context.Context, e domain.TradeLogEntry) error
}

// Breaker is the subset of internal/risk.Breaker the engine needs.
type Breaker interface {
	Evaluate(ctx context.Context, totalCapital decimal.Decimal) (domain.DailyPnL, error)
	RecordFill(ctx context.Context, delta, totalCapital decimal.Decimal) error
}
