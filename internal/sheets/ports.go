// Package sheets defines the outbound port for pushing reports to a
// spreadsheet and the row layout they are written with.
package sheets

import (
	"context"

	"talentdesk/internal/report"
)

// ReportExporter replaces the contents of a year's report sheet.
type ReportExporter interface {
	ExportAnnual(ctx context.Context, r report.AnnualReport) error
}
