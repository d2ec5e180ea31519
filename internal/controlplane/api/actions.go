package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/pkg/config"
)

func paramFloat(params map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return fallback
}

func paramInt(params map[string]interface{}, key string, fallback int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func paramBool(params map[string]interface{}, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}

func (s *Server) deriveCreds(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	creds, err := s.venue.DeriveOrCreateAPIKey(c.Request.Context())
	if err != nil {
		return nil, err
	}
	prefix := creds.APIKey
	if len(prefix) > 8 {
		prefix = prefix[:8] + "..."
	}
	return gin.H{"apiKeyPrefix": prefix}, nil
}

func (s *Server) getMarkets(c *gin.Context, params map[string]interface{}) (interface{}, error) {
	limit := paramInt(params, "limit", 50)
	return s.catalog.TopMarkets(c.Request.Context(), limit)
}

func (s *Server) getStats(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	ctx := c.Request.Context()
	cfg := s.cfg()

	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return nil, err
	}
	openPositions := 0
	for _, p := range positions {
		if !p.Net.IsZero() {
			openPositions++
		}
	}

	row, err := s.store.GetDailyPnL(ctx, todayUTC())
	if err != nil {
		return nil, err
	}

	history, err := s.store.PnLHistory(ctx, 1)
	if err != nil {
		return nil, err
	}
	cumulative := decimal.Zero
	if len(history) > 0 {
		cumulative = history[0].CumulativePnL
	}

	openOrders := 0
	if !cfg.Paper {
		orders, err := s.venue.GetOpenOrders(ctx)
		if err == nil {
			openOrders = len(orders)
		}
	}

	return gin.H{
		"openOrders":     openOrders,
		"totalValue":     cfg.TotalCapital,
		"pnl":            row.RealizedPnL,
		"cumulativePnl":  cumulative,
		"openPositions":  openPositions,
		"positions":      positions,
		"circuitBreaker": row.CircuitBreakerTripped,
	}, nil
}

func (s *Server) getPositions(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	return s.store.ListPositions(c.Request.Context())
}

func (s *Server) getPnLHistory(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	return s.store.PnLHistory(c.Request.Context(), 30)
}

func (s *Server) getConfigHistory(c *gin.Context, params map[string]interface{}) (interface{}, error) {
	limit := paramInt(params, "limit", 20)
	return s.store.ConfigVersionHistory(c.Request.Context(), limit)
}

func (s *Server) cancelAll(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	if err := s.venue.CancelAll(c.Request.Context()); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

func (s *Server) resetPositions(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	if err := s.store.ResetPositions(c.Request.Context()); err != nil {
		return nil, err
	}
	return gin.H{"ok": true}, nil
}

// runCycle merges run_cycle's request parameters over the current
// configuration, persists the merge as the driver's config going forward
// (so scheduled ticks pick it up too, not just this inline cycle), records
// it as a content-hashed version row, and runs exactly one cycle inline,
// sharing the same code path the scheduled ticker uses.
func (s *Server) runCycle(c *gin.Context, params map[string]interface{}) (interface{}, error) {
	ctx := c.Request.Context()
	cfg := s.cfg()
	applyRunCycleParams(&cfg, params)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s.setCfg(cfg)

	configHash, err := s.store.RecordConfigVersion(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Warn("control api: config version not recorded, continuing")
	}

	result, err := s.driver.RunCycle(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"logs":             result.Logs,
		"ordersPlaced":     result.OrdersPlaced,
		"circuitBreaker":   result.CircuitBreaker,
		"sponsoredMarkets": result.SponsoredMarkets,
		"totalMarkets":     result.TotalMarkets,
		"avgSponsor":       result.AvgSponsor,
		"configHash":       configHash,
	}, nil
}

func applyRunCycleParams(cfg *config.Config, params map[string]interface{}) {
	if v, ok := params["orderSize"].(float64); ok {
		cfg.OrderSize = decimal.NewFromFloat(v)
	}
	cfg.BaseSpreadBps = paramInt(params, "baseSpreadBps", cfg.BaseSpreadBps)
	cfg.IntervalSeconds = paramInt(params, "intervalSeconds", cfg.IntervalSeconds)
	cfg.MaxMarkets = paramInt(params, "maxMarkets", cfg.MaxMarkets)
	if v, ok := params["maxPosition"].(float64); ok {
		cfg.MaxPosition = decimal.NewFromFloat(v)
	}
	cfg.MinSponsorPool = paramFloat(params, "minSponsorPool", cfg.MinSponsorPool)
	cfg.MinLiquidityDepth = paramFloat(params, "minLiquidityDepth", cfg.MinLiquidityDepth)
	cfg.MinVolume24h = paramFloat(params, "minVolume24h", cfg.MinVolume24h)
	if v, ok := params["totalCapital"].(float64); ok {
		cfg.TotalCapital = decimal.NewFromFloat(v)
	}
	cfg.Paper = paramBool(params, "paper", cfg.Paper)
	cfg.ExternalOracle = paramBool(params, "externalOracle", cfg.ExternalOracle)
	cfg.AggressiveShortTerm = paramBool(params, "aggressiveShortTerm", cfg.AggressiveShortTerm)
}

func (s *Server) whoami(c *gin.Context, _ map[string]interface{}) (interface{}, error) {
	ctx := c.Request.Context()

	geoblockProbe := "ok"
	var sample []domain.RestingOrder
	if orders, err := s.venue.GetOpenOrders(ctx); err != nil {
		geoblockProbe = "error: " + err.Error()
	} else {
		sample = orders
		if len(sample) > 5 {
			sample = sample[:5]
		}
	}

	recent, err := s.store.RecentTradeLog(ctx, 10)
	if err != nil {
		return nil, err
	}

	return gin.H{
		"identity":         s.venue.Address(),
		"geoblockProbe":    geoblockProbe,
		"openOrdersSample": sample,
		"recentActions":    recent,
	}, nil
}

func todayUTC() string {
	return time.Now().UTC().Format("2006-01-02")
}
