package engine

import (
	"sort"

	"github.com/clobmm/engine/internal/domain"
)

const (
	volumeCap = 500_000.0
	depthCap  = 50_000.0

	volumeWeight = 0.03
	sponsorWeight = 30.0
	depthWeight  = 0.8
	tier1Multiplier = 4.0

	coinFlipBand    = 0.005
	coinFlipPenalty = -2000.0
	wideBookRatio   = 0.10
	wideBookPenalty = -3000.0
	looseBookRatio  = 0.05
	looseBookPenalty = -1000.0
	shallowBookPenalty = -1500.0
)

// Score computes the composite score for one enriched candidate. All
// dominant signals are capped or clamped so no single input can dominate
// the ranking; Tier-1 markets get a flat multiplier applied last.
func Score(c *domain.Candidate, minLiquidityDepth float64) float64 {
	cappedVol := c.Volume24h
	if cappedVol > volumeCap {
		cappedVol = volumeCap
	}
	cappedDepth := c.LiquidityDepth
	if cappedDepth > depthCap {
		cappedDepth = depthCap
	}

	base := volumeWeight*cappedVol + sponsorWeight*c.SponsorPool + depthWeight*cappedDepth + c.CategoryBonus

	mid := c.Mid.ToDecimal()
	if mid > 0 {
		if absDiff(mid, 0.5) < coinFlipBand {
			base += coinFlipPenalty
		}
		bestBid := c.BestBid.ToDecimal()
		bestAsk := c.BestAsk.ToDecimal()
		if bestAsk > 0 && bestBid > 0 {
			ratio := (bestAsk - bestBid) / mid
			switch {
			case ratio > wideBookRatio:
				base += wideBookPenalty
			case ratio > looseBookRatio:
				base += looseBookPenalty
			}
		}
	}
	if c.LiquidityDepth < minLiquidityDepth {
		base += shallowBookPenalty
	}

	if c.Tier1 {
		return base * tier1Multiplier
	}
	return base
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// SelectionCounts summarizes the selector's output for the run_cycle
// response: counts by category and how many carry a sponsor pool.
type SelectionCounts struct {
	TotalMarkets     int
	SponsoredMarkets int
	AvgSponsor       float64
	ByCategory       map[domain.Category]int
}

// Select scores every candidate, sorts descending, and keeps the top
// maxMarkets. Hard filters (min sponsor pool floor) are applied before
// scoring so they never influence the ranking of the survivors.
func Select(candidates []*domain.Candidate, maxMarkets int, minSponsorPool float64, minLiquidityDepth float64) ([]*domain.Candidate, SelectionCounts) {
	filtered := make([]*domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if minSponsorPool > 0 && c.SponsorPool < minSponsorPool {
			continue
		}
		c.Score = Score(c, minLiquidityDepth)
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	if maxMarkets > 0 && len(filtered) > maxMarkets {
		filtered = filtered[:maxMarkets]
	}

	counts := SelectionCounts{TotalMarkets: len(filtered), ByCategory: map[domain.Category]int{}}
	var sponsorSum float64
	for _, c := range filtered {
		counts.ByCategory[c.Category]++
		if c.SponsorPool > 0 {
			counts.SponsoredMarkets++
			sponsorSum += c.SponsorPool
		}
	}
	if counts.SponsoredMarkets > 0 {
		counts.AvgSponsor = sponsorSum / float64(counts.SponsoredMarkets)
	}
	return filtered, counts
}
