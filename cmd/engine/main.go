// Command engine is the headless deployment of the quoting engine: it
// loads configuration, constructs the venue client and database handle
// (process-wide singletons, built once at startup and passed down), starts
// the cycle driver, and serves the control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clobmm/engine/internal/catalog"
	"github.com/clobmm/engine/internal/controlplane/api"
	"github.com/clobmm/engine/internal/engine"
	"github.com/clobmm/engine/internal/risk"
	"github.com/clobmm/engine/internal/store"
	"github.com/clobmm/engine/internal/venue"
	"github.com/clobmm/engine/pkg/cache"
	"github.com/clobmm/engine/pkg/config"
	"github.com/clobmm/engine/pkg/logger"
	"github.com/clobmm/engine/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine: fatal init error:", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level: cfg.LogLevel, OutputFile: cfg.LogFile,
		MaxSize: 100, MaxBackups: 3, MaxAge: 7, Compress: true,
		RotateByCycle: true, CycleInterval: time.Duration(cfg.IntervalSeconds) * time.Second,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "engine: fatal init error: logger init:", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewManager()
	cat := catalog.New(cfg.Venue.CatalogURL, cfg.Venue.RewardsURL, limiter)

	if cfg.Store.CacheDir != "" {
		lookupCache, err := cache.Open(cache.OpenOptions{Path: cfg.Store.CacheDir})
		if err != nil {
			logrus.WithError(err).Warn("engine: cache open failed, lookups will hit the rewards API every cycle")
		} else {
			defer lookupCache.Close()
			cat = cat.WithCache(lookupCache, 10*time.Minute, 30*time.Minute)
		}
	}

	ven, err := venue.New(cfg.Venue, limiter)
	if err != nil {
		logrus.WithError(err).Error("engine: fatal init error: cannot construct venue client")
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.DSN)
	if err != nil {
		logrus.WithError(err).Error("engine: fatal init error: cannot open store")
		os.Exit(1)
	}
	defer st.Close()

	if !cfg.Paper {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, err := ven.DeriveOrCreateAPIKey(ctx)
		cancel()
		if err != nil {
			logrus.WithError(err).Error("engine: fatal init error: cannot derive api credentials")
			os.Exit(1)
		}
	}

	breaker := risk.NewBreaker(st)
	oracle := engine.NewOracle("")
	driver := engine.NewDriver(cat, ven, st, breaker, oracle, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver.Start(ctx)

	currentCfg := cfg
	srv := api.New(driver, ven, cat, st,
		func() config.Config { return currentCfg },
		func(c config.Config) { currentCfg = c; driver.SetConfig(c) },
	)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("engine: control api server error")
		}
	}()

	logrus.WithFields(logrus.Fields{"addr": cfg.ListenAddr, "paper": cfg.Paper}).Info("engine: started")

	<-ctx.Done()
	logrus.Info("engine: shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = driver.Stop(stopCtx)
	_ = httpServer.Shutdown(stopCtx)
}
