package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/clobmm/engine/internal/domain"
)

func testMarket() *domain.Candidate {
	return &domain.Candidate{ConditionID: "c1", TokenID: "t1", Title: "Some Market", TickSize: domain.TickSize(0.01)}
}

func TestReconcileSide_KeepsWithinTolerance(t *testing.T) {
	ven := &fakeVenue{}
	store := newFakeStore()
	market := testMarket()

	existing := []domain.RestingOrder{
		{ID: "o1", AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.3978), Size: 5},
	}
	target := domain.Quote{AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.3978), Size: 5}

	result := ReconcileSide(context.Background(), ven, store, market, target, existing)

	if !result.Kept || result.Placed || result.Cancelled != 0 {
		t.Fatalf("expected keep with no place/cancel, got %+v", result)
	}
	if !containsSubstring(result.Logs, "♻️") {
		t.Errorf("expected keep log to contain ♻️, got %v", result.Logs)
	}
	if len(ven.placed) != 0 || len(ven.cancelled) != 0 {
		t.Errorf("no venue calls expected on keep")
	}
}

func TestReconcileSide_CancelAndReplaceOutsideTolerance(t *testing.T) {
	ven := &fakeVenue{}
	store := newFakeStore()
	market := testMarket()

	existing := []domain.RestingOrder{
		{ID: "o1", AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.35), Size: 5},
	}
	target := domain.Quote{AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.39), Size: 5}

	result := ReconcileSide(context.Background(), ven, store, market, target, existing)

	if !result.Placed || result.Cancelled != 1 {
		t.Fatalf("expected cancel-and-replace, got %+v", result)
	}
	if len(ven.cancelled) != 1 || ven.cancelled[0] != "o1" {
		t.Errorf("expected o1 cancelled, got %v", ven.cancelled)
	}
	if len(ven.placed) != 1 {
		t.Errorf("expected one new order placed, got %v", ven.placed)
	}
}

func TestReconcileSide_PausedCancelsAllPlacesNone(t *testing.T) {
	ven := &fakeVenue{}
	store := newFakeStore()
	market := testMarket()

	existing := []domain.RestingOrder{
		{ID: "o1", AssetID: "t1", Side: domain.SideSell, Price: domain.PriceFromDecimal(0.5), Size: 5},
		{ID: "o2", AssetID: "t1", Side: domain.SideSell, Price: domain.PriceFromDecimal(0.51), Size: 5},
	}
	target := domain.Quote{AssetID: "t1", Side: domain.SideSell, Paused: true}

	result := ReconcileSide(context.Background(), ven, store, market, target, existing)

	if result.Placed {
		t.Errorf("paused side must never place an order")
	}
	if result.Cancelled != 2 {
		t.Errorf("expected both existing orders cancelled, got %d", result.Cancelled)
	}
}

func TestReconcileSide_CancelsDuplicates(t *testing.T) {
	ven := &fakeVenue{}
	store := newFakeStore()
	market := testMarket()

	existing := []domain.RestingOrder{
		{ID: "o1", AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.39), Size: 5},
		{ID: "o2", AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.39), Size: 5},
	}
	target := domain.Quote{AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.39), Size: 5}

	result := ReconcileSide(context.Background(), ven, store, market, target, existing)

	if !result.Kept {
		t.Errorf("first order within tolerance should be kept")
	}
	if result.Cancelled != 1 {
		t.Errorf("duplicate order should be cancelled, got %d cancellations", result.Cancelled)
	}
}

func TestPartitionOrders_SplitsByAssetAndSide(t *testing.T) {
	orders := []domain.RestingOrder{
		{ID: "1", AssetID: "t1", Side: domain.SideBuy},
		{ID: "2", AssetID: "t1", Side: domain.SideSell},
		{ID: "3", AssetID: "t2", Side: domain.SideBuy},
	}
	buys, sells := PartitionOrders(orders, "t1")
	if len(buys) != 1 || len(sells) != 1 {
		t.Errorf("expected one buy and one sell for t1, got buys=%d sells=%d", len(buys), len(sells))
	}
}

func containsSubstring(logs []string, substr string) bool {
	for _, l := range logs {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func TestReconcileSide_IsIdempotentOnceSettled(t *testing.T) {
	ven := &fakeVenue{}
	store := newFakeStore()
	market := testMarket()

	target := domain.Quote{AssetID: "t1", Side: domain.SideBuy, Price: domain.PriceFromDecimal(0.39), Size: 5}

	first := ReconcileSide(context.Background(), ven, store, market, target, nil)
	if !first.Placed {
		t.Fatalf("expected the first reconciliation to place an order, got %+v", first)
	}

	resting := []domain.RestingOrder{
		{ID: ven.placed[0].ID, AssetID: "t1", Side: domain.SideBuy, Price: target.Price, Size: target.Size},
	}

	second := ReconcileSide(context.Background(), ven, store, market, target, resting)
	if second.Placed || second.Cancelled != 0 || !second.Kept {
		t.Errorf("reconciling an already-settled quote should be a no-op keep, got %+v", second)
	}
	if len(ven.placed) != 1 || len(ven.cancelled) != 0 {
		t.Errorf("idempotent reconcile must not issue further venue calls, placed=%v cancelled=%v", ven.placed, ven.cancelled)
	}
}
