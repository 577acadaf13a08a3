package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/application/service"
	"github.com/dmarkov/expensio/internal/domain/event"
	"github.com/dmarkov/expensio/internal/infrastructure/storage"
)

// Archiver snapshots a workbook of every submitted report into the archive
// store. It runs as a report.submitted subscriber, so submission itself never
// waits on rendering or disk.
type Archiver struct {
	reports  service.ReportService
	exporter *ExcelExporter
	store    port.ArchiveStore
	logger   *zap.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(reports service.ReportService, exporter *ExcelExporter, store port.ArchiveStore, logger *zap.Logger) *Archiver {
	return &Archiver{
		reports:  reports,
		exporter: exporter,
		store:    store,
		logger:   logger,
	}
}

// HandleReportSubmitted renders the submitted report and writes the workbook
// under reports/<id>/.
func (a *Archiver) HandleReportSubmitted(ctx context.Context, evt *event.Event) error {
	report, err := a.reports.Get(ctx, evt.ReportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", evt.ReportID, err)
	}
	receipts, err := a.reports.Receipts(ctx, report.ID)
	if err != nil {
		return fmt.Errorf("load members of %s: %w", report.ID, err)
	}
	totals, err := a.reports.ComputeTotals(ctx, report.ID)
	if err != nil {
		return fmt.Errorf("derive totals of %s: %w", report.ID, err)
	}

	f, err := a.exporter.Render(report, receipts, totals)
	if err != nil {
		return fmt.Errorf("render workbook: %w", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("serialize workbook: %w", err)
	}

	name := storage.SafeName(report.Title)
	if name == "" {
		name = "report"
	}
	path := fmt.Sprintf("reports/%s/%s.xlsx", report.ID, name)
	if err := a.store.Save(ctx, path, buf.Bytes()); err != nil {
		return fmt.Errorf("store workbook: %w", err)
	}

	a.logger.Info("submitted report archived",
		zap.String("report_id", report.ID),
		zap.String("path", path))
	return nil
}
