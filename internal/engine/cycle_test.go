package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/catalog"
	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/risk"
	"github.com/clobmm/engine/pkg/config"
)

// blockingCatalog blocks TopMarkets until release is closed, letting tests
// hold a cycle "in flight" long enough to exercise the overlap guard.
type blockingCatalog struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingCatalog) TopMarkets(ctx context.Context, limit int) ([]catalog.Row, error) {
	b.calls.Add(1)
	<-b.release
	return nil, nil
}

func (b *blockingCatalog) SponsorLookup(ctx context.Context, row catalog.Row, tokenID, title string) (float64, domain.SponsorMethod, error) {
	return 0, domain.SponsorMethodNone, nil
}

func (b *blockingCatalog) ClassifyCached(conditionID, title string, sponsorPool float64) (float64, domain.Category, bool) {
	return catalog.Classify(title, sponsorPool)
}

func TestDriver_OverlapGuardDropsConcurrentTick(t *testing.T) {
	cat := &blockingCatalog{release: make(chan struct{})}
	ven := &fakeVenue{}
	store := newFakeStore()
	breaker := risk.NewBreaker(store)
	oracle := NewOracle("")
	cfg := config.Default()
	cfg.TotalCapital = decimal.NewFromFloat(1000)

	driver := NewDriver(cat, ven, store, breaker, oracle, cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		driver.tick(context.Background())
	}()

	// Give the first tick time to enter FetchAndEnrich and block.
	time.Sleep(50 * time.Millisecond)

	// A tick that fires while the first is still running must be dropped
	// without touching the catalog again.
	driver.tick(context.Background())

	if got := cat.calls.Load(); got != 1 {
		t.Errorf("expected exactly one catalog fetch while overlapped, got %d", got)
	}

	close(cat.release)
	wg.Wait()

	if got := cat.calls.Load(); got != 1 {
		t.Errorf("expected exactly one cycle to have executed, got %d catalog fetches", got)
	}
}

func TestRunCycle_CircuitBreakerLatchesAndSkipsQuoting(t *testing.T) {
	cat := &fakeCatalog{rows: []catalog.Row{{ConditionID: "c1", ClobTokenIDs: `["t1"]`, Question: "Market"}}}
	ven := &fakeVenue{}
	store := newFakeStore()
	today := time.Now().UTC().Format("2006-01-02")
	store.dailyPnL[today] = domain.DailyPnL{
		Date:            today,
		CapitalSnapshot: decimal.NewFromFloat(65),
		RealizedPnL:     decimal.NewFromFloat(-2.00),
	}
	breaker := risk.NewBreaker(store)
	oracle := NewOracle("")
	cfg := config.Default()
	cfg.TotalCapital = decimal.NewFromFloat(65)

	driver := NewDriver(cat, ven, store, breaker, oracle, cfg)

	result, err := driver.RunCycle(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunCycle returned an error: %v", err)
	}
	if !result.CircuitBreaker {
		t.Errorf("expected circuit breaker to be reported open")
	}
	if result.OrdersPlaced != 0 {
		t.Errorf("expected no orders placed once the breaker is latched, got %d", result.OrdersPlaced)
	}
	if len(ven.placed) != 0 {
		t.Errorf("expected no venue placements while breaker is open")
	}
}
