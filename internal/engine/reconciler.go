package engine

import (
	"context"
	"time"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/errs"
	"github.com/clobmm/engine/internal/venue"
)

// keepToleranceBps is how close an existing resting order's price must be
// to the freshly computed target before the reconciler leaves it alone
// instead of cancel-and-replace.
const keepToleranceBps = 0.5

// ReconcileResult summarizes what one (market, side) reconciliation did,
// for the run_cycle response and for logging.
type ReconcileResult struct {
	Placed    bool
	Kept      bool
	Cancelled int
	Logs      []string
}

// ReconcileSide brings the venue's resting orders for one (token, side)
// into line with the target quote: keep within tolerance, otherwise
// cancel-and-replace, and cancel every duplicate beyond the first.
func ReconcileSide(ctx context.Context, ven VenueClient, store Store, market *domain.Candidate, target domain.Quote, existing []domain.RestingOrder) ReconcileResult {
	var result ReconcileResult

	if target.Paused {
		for _, o := range existing {
			cancelOne(ctx, ven, store, market, o, false, &result)
		}
		return result
	}

	if len(existing) == 0 {
		placeOne(ctx, ven, store, market, target, &result)
		return result
	}

	first := existing[0]
	if first.Price.AbsDiffBps(target.Price) <= keepToleranceBps {
		result.Kept = true
		result.Logs = append(result.Logs, "♻️ keeping "+string(target.Side)+" "+market.Title)
	} else {
		cancelOne(ctx, ven, store, market, first, false, &result)
		placeOne(ctx, ven, store, market, target, &result)
	}

	for _, dup := range existing[1:] {
		cancelOne(ctx, ven, store, market, dup, true, &result)
	}
	return result
}

func placeOne(ctx context.Context, ven VenueClient, store Store, market *domain.Candidate, target domain.Quote, result *ReconcileResult) {
	start := time.Now()
	placed, err := ven.PlaceGTC(ctx, target.AssetID, target.Side, target.Price, target.Size, venue.PlaceOptions{TickSize: market.TickSize})
	latency := time.Since(start).Milliseconds()

	note := domain.TradeNote{EventType: "place", LatencyMS: latency}
	action := domain.ActionPlace
	if err != nil {
		note.Error = errs.Normalize(err)
		action = domain.ActionError
		result.Logs = append(result.Logs, "place failed for "+market.Title+": "+note.Error)
	} else {
		note.OrderID = placed.OrderID
		result.Placed = true
		result.Logs = append(result.Logs, "placed "+string(target.Side)+" "+market.Title+" @ "+target.Price.String())
	}

	_ = store.AppendTradeLog(ctx, domain.TradeLogEntry{
		MarketID: market.ConditionID, MarketName: market.Title,
		Action: action, Side: target.Side, Price: target.Price, Size: target.Size, Note: note,
	})
}

func cancelOne(ctx context.Context, ven VenueClient, store Store, market *domain.Candidate, order domain.RestingOrder, duplicate bool, result *ReconcileResult) {
	start := time.Now()
	err := ven.CancelOrder(ctx, order.ID)
	latency := time.Since(start).Milliseconds()

	eventType := "cancel"
	if duplicate {
		eventType = "cancel_duplicate"
	}
	note := domain.TradeNote{EventType: eventType, OrderID: order.ID, LatencyMS: latency}
	action := domain.ActionCancel
	if err != nil {
		note.Error = errs.Normalize(err)
		action = domain.ActionError
		result.Logs = append(result.Logs, "cancel failed for "+market.Title+": "+note.Error)
	} else {
		result.Cancelled++
		result.Logs = append(result.Logs, "cancelled "+string(order.Side)+" "+market.Title)
	}

	_ = store.AppendTradeLog(ctx, domain.TradeLogEntry{
		MarketID: market.ConditionID, MarketName: market.Title,
		Action: action, Side: order.Side, Price: order.Price, Size: order.Size, Note: note,
	})
}

// PartitionOrders groups a flat list of resting orders by (asset id, side),
// the shape ReconcileSide expects for one market's two sides.
func PartitionOrders(orders []domain.RestingOrder, assetID string) (buys, sells []domain.RestingOrder) {
	for _, o := range orders {
		if o.AssetID != assetID {
			continue
		}
		if o.Side == domain.SideBuy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}
	return buys, sells
}
