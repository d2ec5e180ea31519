package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/pkg/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.OrderSize = decimal.NewFromFloat(5)
	cfg.BaseSpreadBps = 22
	cfg.MaxPosition = decimal.NewFromFloat(30)
	return cfg
}

func candidateAt(mid float64, sponsor float64, tick domain.TickSize) *domain.Candidate {
	return &domain.Candidate{
		ConditionID: "c1", TokenID: "t1", Title: "Market",
		Mid: domain.PriceFromDecimal(mid), SponsorPool: sponsor, TickSize: tick,
	}
}

func TestBuildQuote_CleanQuote(t *testing.T) {
	cfg := testConfig()
	c := candidateAt(0.40, 0, domain.TickSize(0.01))

	plan := BuildQuote(c, decimal.Zero, cfg)
	if plan.Skip {
		t.Fatalf("unexpected skip: %s", plan.SkipReason)
	}
	if got := plan.Buy.Price.ToDecimal(); got != 0.39 {
		t.Errorf("buy price = %v, want 0.39", got)
	}
	if got := plan.Sell.Price.ToDecimal(); got != 0.41 {
		t.Errorf("sell price = %v, want 0.41", got)
	}
	if plan.Buy.Price.GreaterOrEqual(plan.Sell.Price) {
		t.Errorf("buy must be strictly less than sell")
	}
}

func TestBuildQuote_SponsorAdjustedSpread(t *testing.T) {
	cfg := testConfig()
	c := candidateAt(0.50, 1500, domain.TickSize(0.01))

	plan := BuildQuote(c, decimal.Zero, cfg)
	if plan.SpreadBps != 15 {
		t.Errorf("spread = %d bp, want 15 (round(22*0.7))", plan.SpreadBps)
	}
	if got := plan.Buy.Price.ToDecimal(); got != 0.49 {
		t.Errorf("buy price = %v, want 0.49", got)
	}
	if got := plan.Sell.Price.ToDecimal(); got != 0.51 {
		t.Errorf("sell price = %v, want 0.51", got)
	}
}

func TestBuildQuote_InventorySkewLong(t *testing.T) {
	cfg := testConfig()
	cfg.BaseSpreadBps = 20
	cfg.MaxPosition = decimal.NewFromFloat(30)
	c := candidateAt(0.50, 0, domain.TickSize(0.0001))

	plan := BuildQuote(c, decimal.NewFromFloat(20), cfg)
	if plan.SkewLabel != "LONG heavy" {
		t.Errorf("skew label = %q, want LONG heavy", plan.SkewLabel)
	}
	if plan.Buy.Size > 3 {
		t.Errorf("buy size should be halved (floor 2) under long skew, got %v", plan.Buy.Size)
	}
}

func TestBuildQuote_NearYESLockIn(t *testing.T) {
	cfg := testConfig()
	c := candidateAt(0.95, 0, domain.TickSize(0.01))

	plan := BuildQuote(c, decimal.Zero, cfg)
	if plan.SpreadBps != nearCertainSpread {
		t.Errorf("spread = %d, want %d", plan.SpreadBps, nearCertainSpread)
	}
	if !plan.Sell.Paused {
		t.Errorf("SELL side should be paused near YES lock-in")
	}
	if got := plan.Buy.Price.ToDecimal(); got != 0.94 {
		t.Errorf("buy price = %v, want 0.94", got)
	}
}

func TestBuildQuote_NearNOLockIn(t *testing.T) {
	cfg := testConfig()
	c := candidateAt(0.05, 0, domain.TickSize(0.01))

	plan := BuildQuote(c, decimal.Zero, cfg)
	if !plan.Buy.Paused {
		t.Errorf("BUY side should be paused near NO lock-in")
	}
}

func TestBuildQuote_PauseLatchesAtPositionCap(t *testing.T) {
	cfg := testConfig()
	c := candidateAt(0.50, 0, domain.TickSize(0.01))

	plan := BuildQuote(c, decimal.NewFromFloat(31), cfg) // > max position 30
	if !plan.Buy.Paused {
		t.Errorf("BUY must be paused once position exceeds max_position")
	}
}

func TestBuildQuote_SkipWhenBuyNotBelowSell(t *testing.T) {
	cfg := testConfig()
	cfg.BaseSpreadBps = 1 // will clamp to min 5bp, but a coarse tick can still cross
	c := candidateAt(0.005, 0, domain.TickSize(0.01))

	// buy 0.0045 floors to 0 and clamps up to 0.01; sell 0.0055 ceils to 0.01.
	plan := BuildQuote(c, decimal.Zero, cfg)
	if !plan.Skip {
		t.Errorf("expected skip when tick-aligned buy is not below sell, got buy=%v sell=%v", plan.Buy.Price, plan.Sell.Price)
	}
}

func TestDynamicSpreadBps_ClampsToRange(t *testing.T) {
	if got := dynamicSpreadBps(1, 0, 0); got != minSpreadBps {
		t.Errorf("spread below floor should clamp to %d, got %d", minSpreadBps, got)
	}
	if got := dynamicSpreadBps(1000, 0, 0); got != maxSpreadBps {
		t.Errorf("spread above ceiling should clamp to %d, got %d", maxSpreadBps, got)
	}
}

func TestDynamicSpreadBps_Volatility(t *testing.T) {
	base := dynamicSpreadBps(20, 0, 0)
	wide := dynamicSpreadBps(20, 0, 0.05) // range1h=0.05 -> 5% -> >4 -> x1.4
	if wide <= base {
		t.Errorf("wide range1h should widen spread: base=%d wide=%d", base, wide)
	}
}
