package main

import (
	"context"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"talentdesk/internal/cache"
	"talentdesk/internal/cli"
	apphttp "talentdesk/internal/http"
	applog "talentdesk/internal/log"
	"talentdesk/internal/metrics"
	"talentdesk/internal/services"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel)

	// amounts go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	logger.Info("Starting talentdesk",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"agency_share_scope", cfg.AgencyShareScope)

	engine, err := cli.NewEngine(cfg)
	if err != nil {
		logger.Error("Invalid report settings", "error", err)
		os.Exit(1)
	}

	store := cli.MustOpenBackend(context.Background(), logger, cfg)
	m := metrics.New()

	reports := services.NewReportService(store.Backend, engine, services.ReportServiceConfig{
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
		Recorder:  m,
	})
	cacheManager := cache.NewManager(func(removed int) {
		logger.Debug("Expired report cache entries removed",
			applog.FieldComponent, applog.ComponentCache, "removed", removed)
	})
	cacheManager.Register(reports.Cache())
	cacheManager.StartCleanup(cfg.ReportCacheTTL)

	srv, err := apphttp.NewServer(":"+cfg.Port, reports, apphttp.Options{
		Metrics:        m.Handler(),
		Observe:        m.ObserveHTTP,
		RateLimit:      cfg.RateLimitPerMinute,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		cacheManager.Stop()
		if err := store.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
