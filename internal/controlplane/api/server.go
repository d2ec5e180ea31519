// Package api is the headless control surface: a single JSON action-dispatch
// endpoint plus a health probe, fronting the quoting engine for the
// dashboard and for scripted operators.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clobmm/engine/internal/catalog"
	"github.com/clobmm/engine/internal/engine"
	"github.com/clobmm/engine/internal/store"
	"github.com/clobmm/engine/internal/venue"
	"github.com/clobmm/engine/pkg/config"
)

// Server wires the control API to the engine's collaborators. All of its
// handlers are safe to call during an active quoting cycle; cancel_all and
// reset_positions may race with the cycle, which is accepted because the
// next cycle re-quotes from scratch.
type Server struct {
	driver  *engine.Driver
	venue   *venue.Client
	catalog *catalog.Client
	store   *store.Store
	cfg     func() config.Config
	setCfg  func(config.Config)

	startedAt time.Time
}

func New(driver *engine.Driver, ven *venue.Client, cat *catalog.Client, st *store.Store, cfg func() config.Config, setCfg func(config.Config)) *Server {
	return &Server{driver: driver, venue: ven, catalog: cat, store: st, cfg: cfg, setCfg: setCfg, startedAt: time.Now()}
}

// Router builds the gin engine: permissive CORS, a health probe at GET /
// and GET /health, and the single action-dispatch endpoint the rest of the
// control surface uses.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	r.GET("/", s.handleHealth)
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.POST("/", s.handleAction)
	r.POST("/action", s.handleAction)

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	cycles, lastCycle, totalOrders := s.driver.Stats()
	mode := "live"
	if s.cfg().Paper {
		mode = "paper"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"mode":        mode,
		"cycles":      cycles,
		"lastCycle":   lastCycle,
		"totalOrders": totalOrders,
		"uptime":      time.Since(s.startedAt).String(),
	})
}

// actionRequest is the envelope every control-API request carries:
// {action, ...params}. Params are re-decoded per action since each action
// recognizes a different parameter shape.
type actionRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleAction(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	action, _ := body["action"].(string)

	handler, ok := s.handlers()[action]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + action})
		return
	}

	result, err := handler(c, body)
	if err != nil {
		logrus.WithError(err).WithField("action", action).Error("control api: action failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type actionFunc func(c *gin.Context, params map[string]interface{}) (interface{}, error)

func (s *Server) handlers() map[string]actionFunc {
	return map[string]actionFunc{
		"derive_creds":    s.deriveCreds,
		"get_markets":     s.getMarkets,
		"get_stats":       s.getStats,
		"get_positions":   s.getPositions,
		"get_pnl_history": s.getPnLHistory,
		"get_config_history": s.getConfigHistory,
		"cancel_all":      s.cancelAll,
		"reset_positions": s.resetPositions,
		"run_cycle":       s.runCycle,
		"whoami":          s.whoami,
	}
}
