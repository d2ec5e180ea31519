package engine

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
)

// sequenceSource is a deterministic math/rand.Source that replays a fixed
// sequence of Int63 values, letting tests pin exact Float64() outputs.
type sequenceSource struct {
	values []int64
	i      int
}

func (s *sequenceSource) Int63() int64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}
func (s *sequenceSource) Seed(int64) {}

func int63For(f float64) int64 {
	return int64(f * (1 << 63))
}

func TestSimulatePaperFill_GuaranteedFillRoundTripsThroughPosition(t *testing.T) {
	// roll=0 (always below prob) guarantees a fill attempt; u=1 picks the
	// maximum fraction of the available room.
	rng := rand.New(&sequenceSource{values: []int64{int63For(0), int63For(0.999999)}})

	market := &domain.Candidate{ConditionID: "c1", Title: "Market"}
	quote := domain.Quote{Size: 5}
	position := decimal.Zero
	maxPosition := decimal.NewFromFloat(30)

	result := SimulatePaperFill(rng, market, domain.SideBuy, quote, 20, position, maxPosition)

	if !result.Filled {
		t.Fatalf("expected a guaranteed fill, got none: logs=%v", result.Logs)
	}
	roundTripped := position.Add(decimal.NewFromFloat(result.FillSize))
	if !roundTripped.Equal(result.Position) {
		t.Errorf("position round trip mismatch: delta-applied=%v, returned=%v", roundTripped, result.Position)
	}
	if result.Position.Abs().GreaterThan(maxPosition) {
		t.Errorf("fill must never push |position| past max position")
	}
}

func TestSimulatePaperFill_PausedSideNeverFills(t *testing.T) {
	rng := rand.New(&sequenceSource{values: []int64{int63For(0), int63For(0.9)}})
	market := &domain.Candidate{ConditionID: "c1", Title: "Market"}
	quote := domain.Quote{Size: 5, Paused: true}

	result := SimulatePaperFill(rng, market, domain.SideBuy, quote, 20, decimal.Zero, decimal.NewFromFloat(30))
	if result.Filled {
		t.Errorf("paused side must never simulate a fill")
	}
}

func TestSimulatePaperFill_SkipsWhenWouldBreachCap(t *testing.T) {
	rng := rand.New(&sequenceSource{values: []int64{int63For(0), int63For(0.999999)}})
	market := &domain.Candidate{ConditionID: "c1", Title: "Market"}
	quote := domain.Quote{Size: 50}
	// room is 0.6; the fill rounds up to 1, which would take position to 30.4.
	position := decimal.NewFromFloat(29.4)
	maxPosition := decimal.NewFromFloat(30)

	result := SimulatePaperFill(rng, market, domain.SideBuy, quote, 20, position, maxPosition)
	if result.Filled && result.Position.Abs().GreaterThan(maxPosition) {
		t.Errorf("fill that would breach the cap must be discarded, got position %v", result.Position)
	}
	if result.Filled || !result.Position.Equal(position) {
		t.Errorf("expected the breaching fill to be skipped with position unchanged, got filled=%v position=%v", result.Filled, result.Position)
	}
}

func TestPaperPnLCredit_ConservativeHalfSpread(t *testing.T) {
	credit := PaperPnLCredit(20, 10) // spread=0.002, fillSize=10
	want := decimal.NewFromFloat(0.002 * 10 * 0.5)
	if !credit.Equal(want) {
		t.Errorf("PaperPnLCredit(20, 10) = %v, want %v", credit, want)
	}
}

func TestRunPaperCycle_UpdatesPositionAndPnLOnFill(t *testing.T) {
	// BUY: roll=0 fills, u~1 fills the full size 5. SELL: roll~1 never fills.
	rng := rand.New(&sequenceSource{values: []int64{int63For(0), int63For(0.999999), int63For(0.999999)}})
	store := newFakeStore()
	breaker := &fakeBreaker{store: store}

	market := &domain.Candidate{ConditionID: "c1", Title: "Market", TokenID: "t1", TickSize: domain.TickSize(0.01)}
	cfg := testConfig()
	plan := BuildQuote(market, decimal.Zero, cfg)

	_, logs := RunPaperCycle(context.Background(), rng, store, breaker, market, plan, decimal.Zero, cfg.MaxPosition, cfg.TotalCapital)
	if len(logs) == 0 {
		t.Errorf("expected paper cycle to log its intentions/fills")
	}
	if got := store.positions["c1"].Net; !got.Equal(decimal.NewFromFloat(5)) {
		t.Errorf("stored position = %v, want 5", got)
	}
	row := store.dailyPnL["2026-08-06"]
	if row.TradeCount != 1 || !row.RealizedPnL.Equal(PaperPnLCredit(plan.SpreadBps, 5)) {
		t.Errorf("daily pnl = %v over %d trades, want %v over 1", row.RealizedPnL, row.TradeCount, PaperPnLCredit(plan.SpreadBps, 5))
	}
}

// fakeBreaker is a minimal Breaker for papersim tests.
type fakeBreaker struct {
	store *fakeStore
}

func (b *fakeBreaker) Evaluate(ctx context.Context, totalCapital decimal.Decimal) (domain.DailyPnL, error) {
	return domain.DailyPnL{}, nil
}

func (b *fakeBreaker) RecordFill(ctx context.Context, delta, totalCapital decimal.Decimal) error {
	row, _ := b.store.GetDailyPnL(ctx, "2026-08-06")
	row.Date = "2026-08-06"
	row.RealizedPnL = row.RealizedPnL.Add(delta)
	row.TradeCount++
	return b.store.UpsertDailyPnL(ctx, row)
}
