package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clobmm/engine/internal/catalog"
	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/venue"
)

const (
	maxFetched          = 90
	minLiquidityDepthAbs = 80.0
	enrichCapAbsolute   = 50
)

// enrichmentCap bounds how many pre-filtered candidates get the expensive
// per-market book/sponsor/category lookups.
func enrichmentCap(maxMarkets int) int {
	n := 3 * maxMarkets
	if n > enrichCapAbsolute {
		n = enrichCapAbsolute
	}
	return n
}

// FetchAndEnrich pulls the top markets from the catalog, pre-filters by
// 24h volume, and enriches the survivors with book, sponsor, and category
// signals. Each lookup is sequential to keep memory bounded and the cycle's
// log linear and observable.
func FetchAndEnrich(ctx context.Context, cat CatalogClient, ven VenueClient, minVolume24h float64, maxMarkets int) ([]*domain.Candidate, error) {
	rows, err := cat.TopMarkets(ctx, maxFetched)
	if err != nil {
		return nil, err
	}

	survivors := make([]catalog.Row, 0, len(rows))
	for _, r := range rows {
		if r.Volume24hr < minVolume24h {
			continue
		}
		survivors = append(survivors, r)
	}

	cap := enrichmentCap(maxMarkets)
	if len(survivors) > cap {
		survivors = survivors[:cap]
	}

	out := make([]*domain.Candidate, 0, len(survivors))
	for _, row := range survivors {
		c, ok := enrichOne(ctx, cat, ven, row)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func enrichOne(ctx context.Context, cat CatalogClient, ven VenueClient, row catalog.Row) (*domain.Candidate, bool) {
	tokenID := firstTokenID(row.ClobTokenIDs)
	if tokenID == "" {
		logrus.WithField("condition_id", row.ConditionID).Warn("engine: malformed clobTokenIds, skipping")
		return nil, false
	}

	c := &domain.Candidate{
		ConditionID: row.ConditionID,
		TokenID:     tokenID,
		Title:       row.Question,
		Volume24h:   row.Volume24hr,
		TickSize:    domain.DefaultTickSize,
	}

	book, err := ven.GetOrderBook(ctx, tokenID)
	if err != nil {
		logrus.WithError(err).WithField("token_id", tokenID).Info("engine: book fetch failed, skipping")
		return nil, false
	}
	applyBook(ctx, ven, c, book)
	if c.IsEmptyBook() {
		return nil, false
	}
	if c.LiquidityDepth < minLiquidityDepthAbs {
		return nil, false
	}

	pool, method, err := cat.SponsorLookup(ctx, row, tokenID, row.Question)
	if err != nil {
		logrus.WithError(err).WithField("token_id", tokenID).Info("engine: sponsor lookup failed, continuing with zero pool")
	}
	c.SponsorPool = pool
	c.SponsorMethod = method

	bonus, category, tier1 := cat.ClassifyCached(row.ConditionID, row.Question, pool)
	c.CategoryBonus = bonus
	c.Category = category
	c.Tier1 = tier1

	return c, true
}

// applyBook fills in mid/depth/range from a book snapshot using the
// precedence order: both sides present, last trade, bid only, ask only,
// empty.
func applyBook(ctx context.Context, ven VenueClient, c *domain.Candidate, book venue.OrderBook) {
	bestBid := book.BestBid()
	bestAsk := book.BestAsk()

	c.BestBid = bestBid.Price
	c.BestBidSize = bestBid.Size
	c.BestAsk = bestAsk.Price
	c.AskSize = bestAsk.Size

	switch {
	case bestBid.Price.Pips > 0 && bestAsk.Price.Pips > 0:
		c.Mid = domain.Price{Pips: (bestBid.Price.Pips + bestAsk.Price.Pips) / 2}
		c.MidSource = domain.MidSourceOrderBook
	default:
		if last, ok, err := ven.GetLastTradePrice(ctx, book.TokenID); err != nil {
			logrus.WithError(err).WithField("token_id", book.TokenID).Debug("engine: last trade price lookup failed, falling through")
		} else if ok {
			c.Mid = last
			c.MidSource = domain.MidSourceLastTrade
			break
		}
		switch {
		case bestBid.Price.Pips > 0:
			c.Mid = bestBid.Price
			c.MidSource = domain.MidSourceBidOnly
		case bestAsk.Price.Pips > 0:
			c.Mid = bestAsk.Price
			c.MidSource = domain.MidSourceAskOnly
		default:
			c.Mid = domain.Price{}
			c.MidSource = domain.MidSourceEmpty
			c.LiquidityDepth = 0
			return
		}
	}

	if c.Mid.Pips > 0 {
		spread := bestAsk.Price.Pips - bestBid.Price.Pips
		if spread < 0 {
			spread = 0
		}
		c.Range1h = float64(spread) / float64(c.Mid.Pips)
	}
	c.LiquidityDepth = bestBid.Size*bestBid.Price.ToDecimal() + bestAsk.Size*bestAsk.Price.ToDecimal()
}

// firstTokenID extracts the first id out of a clobTokenIds field, which is
// carried as a JSON-array-shaped string by the catalog API.
func firstTokenID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err == nil && len(ids) > 0 {
		return ids[0]
	}
	return strings.Trim(strings.Split(raw, ",")[0], `[]" `)
}
