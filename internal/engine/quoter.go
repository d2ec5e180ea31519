package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/pkg/config"
)

const (
	nearCertainHigh   = 0.92
	nearCertainLow    = 0.08
	nearCertainSpread = 5

	minSpreadBps = 5
	maxSpreadBps = 60

	inventorySkewFraction = 0.6
)

// QuotePlan is the quoter's output for one selected market: a target
// two-sided quote, or a skip with a logged reason.
type QuotePlan struct {
	Market     *domain.Candidate
	Buy        domain.Quote
	Sell       domain.Quote
	SpreadBps  int
	SkewLabel  string
	Skip       bool
	SkipReason string
}

// dynamicSpreadBps applies the sponsor and volatility multipliers, then
// clamps to [5, 60] bp.
func dynamicSpreadBps(base int, sponsorPool float64, range1h float64) int {
	spread := float64(base)

	switch {
	case sponsorPool > 2000:
		spread *= 0.5
	case sponsorPool > 1000:
		spread *= 0.7
	case sponsorPool > 500:
		spread *= 0.85
	}

	rangePct := range1h * 100
	switch {
	case rangePct > 4:
		spread *= 1.4
	case rangePct > 2:
		spread *= 1.2
	}

	rounded := int(math.Round(spread))
	if rounded < minSpreadBps {
		rounded = minSpreadBps
	}
	if rounded > maxSpreadBps {
		rounded = maxSpreadBps
	}
	return rounded
}

// BuildQuote computes the target two-sided quote for one selected market,
// applying dynamic spread, the near-certain override, inventory skew, and
// tick alignment, in that order.
func BuildQuote(c *domain.Candidate, position decimal.Decimal, cfg config.Config) QuotePlan {
	spreadBps := dynamicSpreadBps(cfg.BaseSpreadBps, c.SponsorPool, c.Range1h)

	mid := c.Mid.ToDecimal()
	pauseBuy, pauseSell := false, false

	switch {
	case mid > nearCertainHigh:
		spreadBps = nearCertainSpread
		pauseSell = true
	case mid < nearCertainLow && mid > 0:
		spreadBps = nearCertainSpread
		pauseBuy = true
	}

	s := float64(spreadBps) / 10000.0
	buyPrice := mid - s
	sellPrice := mid + s

	size, _ := cfg.OrderSize.Float64()
	buySize, sellSize := size, size

	skewLabel := ""
	pFloat, _ := position.Float64()
	maxPos, _ := cfg.MaxPosition.Float64()
	threshold := inventorySkewFraction * maxPos

	switch {
	case pFloat > threshold:
		buyPrice -= 0.5 * s
		sellPrice -= 0.3 * s
		buySize = math.Max(2, math.Round(size*0.5))
		skewLabel = "LONG heavy"
	case pFloat < -threshold:
		sellPrice += 0.5 * s
		buyPrice += 0.3 * s
		sellSize = math.Max(2, math.Round(size*0.5))
		skewLabel = "SHORT heavy"
	}

	if pFloat > maxPos {
		pauseBuy = true
	}
	if pFloat < -maxPos {
		pauseSell = true
	}

	tick := c.TickSize
	buyPrice = tick.Clamp(tick.Round(tick.AlignFloor(buyPrice)))
	sellPrice = tick.Clamp(tick.Round(tick.AlignCeil(sellPrice)))

	plan := QuotePlan{
		Market:    c,
		SpreadBps: spreadBps,
		SkewLabel: skewLabel,
		Buy: domain.Quote{
			AssetID: c.TokenID, Side: domain.SideBuy,
			Price: domain.PriceFromDecimal(buyPrice), Size: buySize, Paused: pauseBuy,
		},
		Sell: domain.Quote{
			AssetID: c.TokenID, Side: domain.SideSell,
			Price: domain.PriceFromDecimal(sellPrice), Size: sellSize, Paused: pauseSell,
		},
	}

	if buyPrice >= sellPrice {
		plan.Skip = true
		plan.SkipReason = fmt.Sprintf("tick-aligned buy %.4f >= sell %.4f", buyPrice, sellPrice)
	}
	return plan
}
