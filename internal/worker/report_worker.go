package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"talentdesk/internal/amqp"
	applog "talentdesk/internal/log"
	"talentdesk/internal/report"
	"talentdesk/internal/sheets"
)

// Reports is the slice of the report service the worker needs.
type Reports interface {
	Invalidate(ctx context.Context)
	AnnualFor(ctx context.Context, year string) (report.AnnualReport, error)
}

// ExportCounter counts export outcomes. *metrics.Metrics satisfies it.
type ExportCounter interface {
	Export(err error)
}

// ReportWorker keeps the current year's report sheet in step with the ledger.
type ReportWorker struct {
	reports  Reports
	exporter sheets.ReportExporter
	counter  ExportCounter
	now      func() time.Time
}

// NewReportWorker accepts a nil exporter, in which case events only
// invalidate the cache.
func NewReportWorker(reports Reports, exporter sheets.ReportExporter, counter ExportCounter) *ReportWorker {
	return &ReportWorker{
		reports:  reports,
		exporter: exporter,
		counter:  counter,
		now:      time.Now,
	}
}

// HandleLedgerChanged is an amqp.Handler. A failed export is returned so the
// event is requeued.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger changed message",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldEventID, msg.EventID,
		applog.FieldEntity, msg.Entity,
		applog.FieldEntityID, msg.EntityID,
		applog.FieldAction, msg.Action)

	w.reports.Invalidate(ctx)
	return w.ExportCurrentYear(ctx)
}

// ExportCurrentYear recomputes and exports the annual report of the year
// containing now.
func (w *ReportWorker) ExportCurrentYear(ctx context.Context) error {
	year := strconv.Itoa(w.now().Year())
	r, err := w.reports.AnnualFor(ctx, year)
	if err != nil {
		return fmt.Errorf("compute annual report %s: %w", year, err)
	}
	if w.exporter == nil {
		slog.DebugContext(ctx, "No report exporter configured, skipping export",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldYear, year)
		return nil
	}

	err = w.exporter.ExportAnnual(ctx, r)
	if w.counter != nil {
		w.counter.Export(err)
	}
	if err != nil {
		return fmt.Errorf("export annual report %s: %w", year, err)
	}
	return nil
}

// RunPeriodicExport re-exports on every tick as a backstop for lost events.
// It returns when ctx is done.
func (w *ReportWorker) RunPeriodicExport(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reports.Invalidate(ctx)
			if err := w.ExportCurrentYear(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed",
					applog.FieldComponent, applog.ComponentWorker,
					applog.FieldError, err)
			}
		}
	}
}
