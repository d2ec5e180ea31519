// Package engine implements the quoting cycle: fetch/enrich candidates,
// score and select markets, compute target quotes, and reconcile them
// against resting orders (or simulate fills in paper mode).
package engine

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/internal/risk"
	"github.com/clobmm/engine/pkg/config"
)

const overlapWarnSuppressWindow = 15 * time.Second

// CycleResult is the run_cycle control-action response shape.
type CycleResult struct {
	Logs             []string
	OrdersPlaced     int
	CircuitBreaker   bool
	SponsoredMarkets int
	TotalMarkets     int
	AvgSponsor       float64
}

// Driver is the single-threaded cooperative cycle driver: it fires a
// quoting cycle every interval, drops ticks that overlap a still-running
// cycle, and lets stop requests take effect only after the in-flight cycle
// finishes.
type Driver struct {
	cat     CatalogClient
	ven     VenueClient
	store   Store
	breaker *risk.Breaker
	oracle  *Oracle

	mu  sync.Mutex
	cfg config.Config

	inFlight atomic.Bool
	running  atomic.Bool
	stopCh   chan struct{}
	ticker   *time.Ticker

	lastOverlapWarn atomic.Value // time.Time
	cycleCount      atomic.Int64
	lastCycleAt     atomic.Value // time.Time
	totalOrders     atomic.Int64

	rng *rand.Rand
}

func NewDriver(cat CatalogClient, ven VenueClient, store Store, breaker *risk.Breaker, oracle *Oracle, cfg config.Config) *Driver {
	return &Driver{
		cat: cat, ven: ven, store: store, breaker: breaker, oracle: oracle, cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetConfig replaces the configuration read by future cycles. Never
// applied mid-cycle: the current cycle keeps running with whatever
// snapshot it captured at its start.
func (d *Driver) SetConfig(cfg config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
}

func (d *Driver) config() config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Start runs an immediate first cycle, then schedules the periodic timer.
// Fatal errors constructing collaborators are the caller's problem; Start
// itself never fails, matching the "log and retry next tick" contract.
func (d *Driver) Start(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	d.stopCh = make(chan struct{})

	d.tick(ctx)

	interval := time.Duration(d.config().IntervalSeconds) * time.Second
	d.ticker = time.NewTicker(interval)
	go d.loop(ctx)
}

func (d *Driver) loop(ctx context.Context) {
	for {
		select {
		case <-d.ticker.C:
			d.tick(ctx)
		case <-d.stopCh:
			return
		}
	}
}

// tick is the overlap guard: exactly one cycle instance is ever active. A
// tick that fires while the previous cycle is still running is dropped,
// with an "overlap skipped" warning rate-limited to once per 15s.
func (d *Driver) tick(ctx context.Context) {
	if !d.inFlight.CompareAndSwap(false, true) {
		d.warnOverlap()
		return
	}
	defer d.inFlight.Store(false)

	cfg := d.config()
	result, err := d.RunCycle(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Warn("engine: cycle aborted")
	}
	d.cycleCount.Add(1)
	d.lastCycleAt.Store(time.Now())
	d.totalOrders.Add(int64(result.OrdersPlaced))
}

func (d *Driver) warnOverlap() {
	now := time.Now()
	if last, ok := d.lastOverlapWarn.Load().(time.Time); ok && now.Sub(last) < overlapWarnSuppressWindow {
		return
	}
	d.lastOverlapWarn.Store(now)
	logrus.Warn("engine: cycle tick dropped, previous cycle still running")
}

// Stop deactivates the timer, attempts a best-effort cancel-all, and flips
// running state to false. Idempotent, and never interrupts an in-flight
// cycle: it only disables future ticks.
func (d *Driver) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	if d.ticker != nil {
		d.ticker.Stop()
	}
	close(d.stopCh)

	if err := d.ven.CancelAll(ctx); err != nil {
		logrus.WithError(err).Warn("engine: best-effort cancel_all on stop failed")
		return err
	}
	return nil
}

func (d *Driver) Stats() (cycles int64, lastCycle time.Time, totalOrders int64) {
	cycles = d.cycleCount.Load()
	if t, ok := d.lastCycleAt.Load().(time.Time); ok {
		lastCycle = t
	}
	totalOrders = d.totalOrders.Load()
	return
}

// RunCycle executes one full quoting cycle: risk governor, candidate
// fetch/enrich, scoring/selection, per-market quoting, and reconciliation
// (or paper-mode simulation). It is exported directly so both the
// scheduled tick and the run_cycle control action share one code path.
func (d *Driver) RunCycle(ctx context.Context, cfg config.Config) (CycleResult, error) {
	result := CycleResult{}
	log := func(s string) { result.Logs = append(result.Logs, s) }

	pnlRow, err := d.breaker.Evaluate(ctx, cfg.TotalCapital)
	if err != nil {
		result.CircuitBreaker = true
		log("circuit breaker open for " + pnlRow.Date + ", no quoting this cycle")
		return result, nil
	}

	if repaired, err := risk.RepairDrift(ctx, d.store, cfg.MaxPosition); err != nil {
		log("position drift repair failed: " + err.Error())
	} else if len(repaired) > 0 {
		log("repaired drifted positions for: " + joinStrings(repaired))
	}

	candidates, err := FetchAndEnrich(ctx, d.cat, d.ven, cfg.MinVolume24h, cfg.MaxMarkets)
	if err != nil {
		log("candidate fetch failed: " + err.Error())
		return result, err
	}

	selected, counts := Select(candidates, cfg.MaxMarkets, cfg.MinSponsorPool, cfg.MinLiquidityDepth)
	result.TotalMarkets = counts.TotalMarkets
	result.SponsoredMarkets = counts.SponsoredMarkets
	result.AvgSponsor = counts.AvgSponsor

	var openOrders []domain.RestingOrder
	if !cfg.Paper {
		openOrders, err = d.ven.GetOpenOrders(ctx)
		if err != nil {
			log("open orders fetch failed, reconciliation skipped this cycle: " + err.Error())
		}
	}

	for _, c := range selected {
		if cfg.ExternalOracle {
			LogReference(ctx, d.oracle, c.Title, c.Mid.ToDecimal())
		}

		position, err := d.store.GetPosition(ctx, c.ConditionID)
		if err != nil {
			log("position read failed for " + c.Title + ": " + err.Error())
			continue
		}

		plan := BuildQuote(c, position.Net, cfg)
		if plan.Skip {
			log("skip " + c.Title + ": " + plan.SkipReason)
			continue
		}

		if cfg.Paper {
			_, logs := RunPaperCycle(ctx, d.rng, d.store, d.breaker, c, plan, position.Net, cfg.MaxPosition, cfg.TotalCapital)
			result.Logs = append(result.Logs, logs...)
			continue
		}

		buys, sells := PartitionOrders(openOrders, c.TokenID)
		buyResult := ReconcileSide(ctx, d.ven, d.store, c, plan.Buy, buys)
		result.Logs = append(result.Logs, buyResult.Logs...)
		if buyResult.Placed {
			result.OrdersPlaced++
		}

		sellResult := ReconcileSide(ctx, d.ven, d.store, c, plan.Sell, sells)
		result.Logs = append(result.Logs, sellResult.Logs...)
		if sellResult.Placed {
			result.OrdersPlaced++
		}
	}

	logrus.WithFields(logrus.Fields{
		"totalMarkets":     result.TotalMarkets,
		"sponsoredMarkets": result.SponsoredMarkets,
		"avgSponsor":       result.AvgSponsor,
		"ordersPlaced":     result.OrdersPlaced,
		"circuitBreaker":   result.CircuitBreaker,
	}).Info("engine: cycle complete")

	return result, nil
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
