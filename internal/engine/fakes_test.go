package engine

import (
	"context"
	"fmt"

	"github.com/clobmm/engine/internal/catalog"
	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/venue"
)

// fakeVenue is an in-memory VenueClient used across engine package tests.
type fakeVenue struct {
	book            venue.OrderBook
	lastTradePrice  domain.Price
	hasLastTrade    bool
	lastTradeErr    error
	openOrders      []domain.RestingOrder
	placed          []domain.RestingOrder
	cancelled       []string
	placeErr        error
	cancelErr       error
	nextOrderID     int
}

func (f *fakeVenue) GetOrderBook(ctx context.Context, tokenID string) (venue.OrderBook, error) {
	return f.book, nil
}

func (f *fakeVenue) GetLastTradePrice(ctx context.Context, tokenID string) (domain.Price, bool, error) {
	return f.lastTradePrice, f.hasLastTrade, f.lastTradeErr
}

func (f *fakeVenue) GetOpenOrders(ctx context.Context) ([]domain.RestingOrder, error) {
	return f.openOrders, nil
}

func (f *fakeVenue) PlaceGTC(ctx context.Context, tokenID string, side domain.Side, price domain.Price, size float64, opts venue.PlaceOptions) (venue.PlacedOrder, error) {
	if f.placeErr != nil {
		return venue.PlacedOrder{}, f.placeErr
	}
	f.nextOrderID++
	id := fmt.Sprintf("order-%d", f.nextOrderID)
	f.placed = append(f.placed, domain.RestingOrder{ID: id, AssetID: tokenID, Side: side, Price: price, Size: size})
	return venue.PlacedOrder{OrderID: id, Status: "live"}, nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeVenue) CancelAll(ctx context.Context) error {
	return nil
}

func (f *fakeVenue) DeriveOrCreateAPIKey(ctx context.Context) (venue.APIKeyCreds, error) {
	return venue.APIKeyCreds{APIKey: "fake"}, nil
}

func (f *fakeVenue) Address() string { return "0xfake" }

// fakeCatalog is an in-memory CatalogClient used across engine package tests.
type fakeCatalog struct {
	rows       []catalog.Row
	fetchErr   error
	sponsor    float64
	method     domain.SponsorMethod
	sponsorErr error
}

func (f *fakeCatalog) TopMarkets(ctx context.Context, limit int) ([]catalog.Row, error) {
	return f.rows, f.fetchErr
}

func (f *fakeCatalog) SponsorLookup(ctx context.Context, row catalog.Row, tokenID, title string) (float64, domain.SponsorMethod, error) {
	return f.sponsor, f.method, f.sponsorErr
}

func (f *fakeCatalog) ClassifyCached(conditionID, title string, sponsorPool float64) (float64, domain.Category, bool) {
	return catalog.Classify(title, sponsorPool)
}

// fakeStore is an in-memory Store used across engine package tests.
type fakeStore struct {
	positions map[string]domain.Position
	dailyPnL  map[string]domain.DailyPnL
	tradeLog  []domain.TradeLogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{positions: map[string]domain.Position{}, dailyPnL: map[string]domain.DailyPnL{}}
}

func (s *fakeStore) UpsertPosition(ctx context.Context, p domain.Position) error {
	s.positions[p.MarketID] = p
	return nil
}

func (s *fakeStore) GetPosition(ctx context.Context, marketID string) (domain.Position, error) {
	if p, ok := s.positions[marketID]; ok {
		return p, nil
	}
	return domain.Position{MarketID: marketID}, nil
}

func (s *fakeStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	out := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) ResetPositions(ctx context.Context) error {
	for k, p := range s.positions {
		p.Net = p.Net.Sub(p.Net)
		s.positions[k] = p
	}
	return nil
}

func (s *fakeStore) GetDailyPnL(ctx context.Context, date string) (domain.DailyPnL, error) {
	return s.dailyPnL[date], nil
}

func (s *fakeStore) UpsertDailyPnL(ctx context.Context, row domain.DailyPnL) error {
	s.dailyPnL[row.Date] = row
	return nil
}

func (s *fakeStore) AppendTradeLog(ctx context.Context, e domain.TradeLogEntry) error {
	s.tradeLog = append(s.tradeLog, e)
	return nil
}
