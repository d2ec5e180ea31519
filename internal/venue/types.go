// Package venue is the CLOB client: derives trading credentials, reads
// order books and open orders, and places or cancels GTC limit orders,
// using EIP-712 L1 auth to bootstrap HMAC L2 auth for every authenticated
// call.
package venue

import "github.com/clobmm/engine/internal/domain"

// APIKeyCreds are the L2 HMAC credentials derived from the wallet's L1
// signature.
type APIKeyCreds struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// BookLevel is one price/size pair on either side of an order book.
type BookLevel struct {
	Price domain.Price
	Size  float64
}

// OrderBook is a snapshot of one token's resting liquidity.
type OrderBook struct {
	TokenID string
	Bids    []BookLevel // best bid first
	Asks    []BookLevel // best ask first
}

// BestBid returns the top-of-book bid, or a zero level if the book is empty
// on that side.
func (b OrderBook) BestBid() BookLevel {
	if len(b.Bids) == 0 {
		return BookLevel{}
	}
	return b.Bids[0]
}

func (b OrderBook) BestAsk() BookLevel {
	if len(b.Asks) == 0 {
		return BookLevel{}
	}
	return b.Asks[0]
}

// PlaceOptions carries the per-market parameters a GTC order needs beyond
// price/size/side: the tick size it must align to and whether the token
// trades through the neg-risk adapter.
type PlaceOptions struct {
	TickSize domain.TickSize
	NegRisk  bool
}

// PlacedOrder is the venue's acknowledgement of a successful order POST.
type PlacedOrder struct {
	OrderID string
	Status  string
}
