package main

import (
	"context"
	"errors"
	"os"
	"time"

	"talentdesk/internal/amqp"
	"talentdesk/internal/cli"
	applog "talentdesk/internal/log"
	"talentdesk/internal/metrics"
	"talentdesk/internal/services"
	"talentdesk/internal/sheets"
	gsheet "talentdesk/internal/sheets/google"
	"talentdesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	logger.Info("Starting report-worker", "backend", cfg.DataBackend, "queue", cfg.AMQPQueue)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	engine, err := cli.NewEngine(cfg)
	if err != nil {
		logger.Error("Invalid report settings", "error", err)
		os.Exit(1)
	}

	// the worker only consumes; its own backend needs no publisher
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	store := cli.MustOpenBackend(context.Background(), logger, &storeCfg)
	defer store.Cleanup()

	m := metrics.New()
	reports := services.NewReportService(store.Backend, engine, services.ReportServiceConfig{
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
		Recorder:  m,
	})

	var exporter sheets.ReportExporter
	if cfg.SheetsExportEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleReportSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	w := worker.NewReportWorker(reports, exporter, m)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", "error", err)
		}
	})

	if exporter != nil {
		// catch up on anything written while the worker was down
		if err := w.ExportCurrentYear(ctx); err != nil {
			logger.Error("Startup export failed", "error", err)
		}
		if cfg.SheetsExportInterval > 0 {
			go w.RunPeriodicExport(ctx, cfg.SheetsExportInterval)
		}
	}

	go func() {
		if err := client.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
