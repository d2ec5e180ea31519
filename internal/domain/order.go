package domain

// RestingOrder is a transient, per-cycle snapshot of one open order fetched
// from the venue. The reconciler partitions these per (TokenID, Side).
type RestingOrder struct {
	ID      string
	AssetID string
	Side    Side
	Price   Price
	Size    float64
}

// Quote is the reconciler's target for one side of one market: the price
// and size the engine wants resting at the venue, or Paused if this side
// should have no order at all this cycle.
type Quote struct {
	AssetID string
	Side    Side
	Price   Price
	Size    float64
	Paused  bool
}
