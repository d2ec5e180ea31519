package domain

import (
	"fmt"
	"math"
)

// Price is a fixed-point price value object at 1e-4 precision (pips).
// Tick sizes observed on the venue are 0.1, 0.01, 0.001, 0.0001; pips are
// the smallest of those, so every tick-aligned price is an exact integer
// number of pips and no float rounding drift can creep into comparisons.
type Price struct {
	Pips int
}

func PriceFromDecimal(d float64) Price {
	return Price{Pips: int(math.Round(d * 10000))}
}

func (p Price) ToDecimal() float64 {
	return float64(p.Pips) / 10000.0
}

func (p Price) String() string {
	return fmt.Sprintf("%.4f", p.ToDecimal())
}

func (p Price) Add(other Price) Price      { return Price{Pips: p.Pips + other.Pips} }
func (p Price) Sub(other Price) Price      { return Price{Pips: p.Pips - other.Pips} }
func (p Price) GreaterThan(o Price) bool   { return p.Pips > o.Pips }
func (p Price) LessThan(o Price) bool      { return p.Pips < o.Pips }
func (p Price) GreaterOrEqual(o Price) bool { return p.Pips >= o.Pips }
func (p Price) LessOrEqual(o Price) bool   { return p.Pips <= o.Pips }

// AbsDiffBps returns the absolute distance between two prices in basis points.
func (p Price) AbsDiffBps(o Price) float64 {
	diff := p.Pips - o.Pips
	if diff < 0 {
		diff = -diff
	}
	// 1 pip = 1e-4, 1 bp = 1e-4 of price too (bp is per-unit, pip is absolute
	// price units), so a diff in pips is already a diff in bp of price.
	return float64(diff)
}

// TickSize is the minimum price increment a venue accepts for a market.
type TickSize float64

const DefaultTickSize TickSize = 0.01

// AlignFloor rounds a decimal price down to the nearest tick.
func (t TickSize) AlignFloor(d float64) float64 {
	tick := float64(t)
	if tick <= 0 {
		return d
	}
	return t.Round(math.Floor(d/tick) * tick)
}

// AlignCeil rounds a decimal price up to the nearest tick.
func (t TickSize) AlignCeil(d float64) float64 {
	tick := float64(t)
	if tick <= 0 {
		return d
	}
	return t.Round(math.Ceil(d/tick) * tick)
}

// Decimals returns how many decimal places this tick size needs for display
// and for rounding away float noise after alignment.
func (t TickSize) Decimals() int {
	switch {
	case t >= 0.1:
		return 1
	case t >= 0.01:
		return 2
	case t >= 0.001:
		return 3
	default:
		return 4
	}
}

func (t TickSize) Round(d float64) float64 {
	pow := math.Pow(10, float64(t.Decimals()))
	return math.Round(d*pow) / pow
}

// Clamp restricts a decimal price to [tick, 1-tick].
func (t TickSize) Clamp(d float64) float64 {
	tick := float64(t)
	if d < tick {
		return tick
	}
	if d > 1-tick {
		return 1 - tick
	}
	return d
}
