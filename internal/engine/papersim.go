package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
)

const (
	fillProbTightSpread = 0.65
	fillProbWideSpread  = 0.40
	tightSpreadBpsCutoff = 12
)

// PaperFillResult is what one simulated side produced: the (possibly
// unchanged) position, and the observability log lines for both the
// intention and the outcome.
type PaperFillResult struct {
	Position decimal.Decimal
	Filled   bool
	FillSize float64
	Logs     []string
}

// SimulatePaperFill probabilistically fills one side of a paper-mode quote.
// It never mutates position beyond the configured cap: a fill that would
// push |position| past maxPosition is discarded entirely.
func SimulatePaperFill(rng *rand.Rand, market *domain.Candidate, side domain.Side, quote domain.Quote, spreadBps int, position, maxPosition decimal.Decimal) PaperFillResult {
	result := PaperFillResult{Position: position}
	if quote.Paused {
		return result
	}
	result.Logs = append(result.Logs, fmt.Sprintf("paper: quoting %s %s @ %s size %.2f", side, market.Title, quote.Price, quote.Size))

	prob := fillProbWideSpread
	if spreadBps <= tightSpreadBpsCutoff {
		prob = fillProbTightSpread
	}

	roll := rng.Float64()
	if roll >= prob {
		result.Logs = append(result.Logs, fmt.Sprintf("paper: no fill for %s %s this cycle", side, market.Title))
		return result
	}

	pAbs, _ := position.Abs().Float64()
	maxPos, _ := maxPosition.Float64()
	room := maxPos - pAbs
	if room < 0 {
		room = 0
	}
	target := math.Min(quote.Size, room)

	u := rng.Float64()
	fillSize := math.Round(target * (0.3 + u*0.7))
	if fillSize <= 0 {
		result.Logs = append(result.Logs, fmt.Sprintf("paper: zero room to fill %s %s", side, market.Title))
		return result
	}

	delta := decimal.NewFromFloat(fillSize)
	if side == domain.SideSell {
		delta = delta.Neg()
	}
	newPosition := position.Add(delta)
	if newPosition.Abs().GreaterThan(maxPosition) {
		result.Logs = append(result.Logs, fmt.Sprintf("paper: skip fill for %s %s, would breach max position", side, market.Title))
		return result
	}

	result.Position = newPosition
	result.Filled = true
	result.FillSize = fillSize
	result.Logs = append(result.Logs, fmt.Sprintf("paper: filled %s %s size %.2f", side, market.Title, fillSize))
	return result
}

// PaperPnLCredit is the conservative 50%-spread-capture PnL model: every
// simulated fill credits half the quoted spread on the filled size,
// regardless of whether it closes an open position favorably. Spec.md
// documents this as a known simplification, not a realistic fill model.
func PaperPnLCredit(spreadBps int, fillSize float64) decimal.Decimal {
	spreadDecimal := float64(spreadBps) / 10000.0
	return decimal.NewFromFloat(spreadDecimal * fillSize * 0.5)
}

// RunPaperCycle simulates both sides of one market's quote and folds any
// fills into position and daily PnL through the supplied store/breaker.
func RunPaperCycle(ctx context.Context, rng *rand.Rand, store Store, breaker Breaker, market *domain.Candidate, plan QuotePlan, position decimal.Decimal, maxPosition, totalCapital decimal.Decimal) (decimal.Decimal, []string) {
	var logs []string
	pos := position

	for _, side := range []struct {
		s domain.Side
		q domain.Quote
	}{{domain.SideBuy, plan.Buy}, {domain.SideSell, plan.Sell}} {
		res := SimulatePaperFill(rng, market, side.s, side.q, plan.SpreadBps, pos, maxPosition)
		logs = append(logs, res.Logs...)
		if !res.Filled {
			continue
		}
		pos = res.Position
		credit := PaperPnLCredit(plan.SpreadBps, res.FillSize)
		if err := breaker.RecordFill(ctx, credit, totalCapital); err != nil {
			logs = append(logs, "paper: record pnl failed: "+err.Error())
		}
	}

	if !pos.Equal(position) {
		if err := store.UpsertPosition(ctx, domain.Position{MarketID: market.ConditionID, Net: pos}); err != nil {
			logs = append(logs, "paper: persist position failed: "+err.Error())
		}
	}
	return pos, logs
}
