package engine

import (
	"context"
	"testing"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/venue"
)

func TestApplyBook_BothSidesPresentUsesMidpoint(t *testing.T) {
	c := &domain.Candidate{}
	ven := &fakeVenue{}
	book := venue.OrderBook{
		TokenID: "t1",
		Bids:    []venue.BookLevel{{Price: domain.PriceFromDecimal(0.40), Size: 10}},
		Asks:    []venue.BookLevel{{Price: domain.PriceFromDecimal(0.42), Size: 10}},
	}

	applyBook(context.Background(), ven, c, book)

	if c.MidSource != domain.MidSourceOrderBook {
		t.Fatalf("expected orderbook mid source, got %v", c.MidSource)
	}
	if c.Mid != domain.PriceFromDecimal(0.41) {
		t.Errorf("expected midpoint 0.41, got %v", c.Mid)
	}
}

func TestApplyBook_OneSidedBookFallsThroughToLastTrade(t *testing.T) {
	c := &domain.Candidate{}
	ven := &fakeVenue{hasLastTrade: true, lastTradePrice: domain.PriceFromDecimal(0.37)}
	book := venue.OrderBook{
		TokenID: "t1",
		Bids:    []venue.BookLevel{{Price: domain.PriceFromDecimal(0.36), Size: 10}},
	}

	applyBook(context.Background(), ven, c, book)

	if c.MidSource != domain.MidSourceLastTrade {
		t.Fatalf("expected last_trade mid source, got %v", c.MidSource)
	}
	if c.Mid != domain.PriceFromDecimal(0.37) {
		t.Errorf("expected last trade price 0.37, got %v", c.Mid)
	}
}

func TestApplyBook_NoLastTradeFallsBackToBidOnly(t *testing.T) {
	c := &domain.Candidate{}
	ven := &fakeVenue{hasLastTrade: false}
	book := venue.OrderBook{
		TokenID: "t1",
		Bids:    []venue.BookLevel{{Price: domain.PriceFromDecimal(0.36), Size: 10}},
	}

	applyBook(context.Background(), ven, c, book)

	if c.MidSource != domain.MidSourceBidOnly {
		t.Fatalf("expected bid_only mid source, got %v", c.MidSource)
	}
	if c.Mid != domain.PriceFromDecimal(0.36) {
		t.Errorf("expected bid price 0.36, got %v", c.Mid)
	}
}

func TestApplyBook_AskOnlyWhenNoBidOrLastTrade(t *testing.T) {
	c := &domain.Candidate{}
	ven := &fakeVenue{}
	book := venue.OrderBook{
		TokenID: "t1",
		Asks:    []venue.BookLevel{{Price: domain.PriceFromDecimal(0.44), Size: 10}},
	}

	applyBook(context.Background(), ven, c, book)

	if c.MidSource != domain.MidSourceAskOnly {
		t.Fatalf("expected ask_only mid source, got %v", c.MidSource)
	}
}

func TestApplyBook_EmptyBookAndNoLastTradeIsEmpty(t *testing.T) {
	c := &domain.Candidate{}
	ven := &fakeVenue{}
	book := venue.OrderBook{TokenID: "t1"}

	applyBook(context.Background(), ven, c, book)

	if c.MidSource != domain.MidSourceEmpty {
		t.Fatalf("expected empty mid source, got %v", c.MidSource)
	}
	if !c.IsEmptyBook() {
		t.Errorf("expected IsEmptyBook to report true")
	}
}

func TestApplyBook_LastTradeLookupErrorFallsThrough(t *testing.T) {
	c := &domain.Candidate{}
	ven := &fakeVenue{lastTradeErr: context.DeadlineExceeded}
	book := venue.OrderBook{
		TokenID: "t1",
		Bids:    []venue.BookLevel{{Price: domain.PriceFromDecimal(0.30), Size: 5}},
	}

	applyBook(context.Background(), ven, c, book)

	if c.MidSource != domain.MidSourceBidOnly {
		t.Fatalf("expected a last-trade error to fall through to bid_only, got %v", c.MidSource)
	}
}
