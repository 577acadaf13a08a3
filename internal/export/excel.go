package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/domain/entity"
)

// ExcelExporter renders a report workbook: a summary sheet with the
// per-currency totals and a receipts sheet with one row per member. It is a
// pure consumer of derived data — totals come in from the lifecycle engine
// and are never re-derived here.
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new exporter.
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

const (
	summarySheet  = "Summary"
	receiptsSheet = "Receipts"
)

// Render builds the workbook in memory. Callers own serialization (HTTP
// download, file on disk).
func (e *ExcelExporter) Render(report *entity.Report, receipts []*entity.Receipt, totals *entity.ReportTotals) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(receiptsSheet); err != nil {
		return nil, fmt.Errorf("add receipts sheet: %w", err)
	}

	e.fillSummary(f, report, totals)
	e.fillReceipts(f, receipts)

	e.logger.Info("report workbook rendered",
		zap.String("report_id", report.ID),
		zap.Int("receipts", len(receipts)),
		zap.Int("currencies", len(totals.ByCurrency)))
	return f, nil
}

func (e *ExcelExporter) fillSummary(f *excelize.File, report *entity.Report, totals *entity.ReportTotals) {
	e.setCell(f, summarySheet, "A1", "Report")
	e.setCell(f, summarySheet, "B1", report.Title)
	e.setCell(f, summarySheet, "A2", "Status")
	e.setCell(f, summarySheet, "B2", string(report.Status))
	e.setCell(f, summarySheet, "A3", "Receipts")
	e.setCell(f, summarySheet, "B3", totals.ReceiptCount)
	if report.SubmittedAt != nil {
		e.setCell(f, summarySheet, "A4", "Submitted")
		e.setCell(f, summarySheet, "B4", report.SubmittedAt.Format("2006-01-02"))
	}

	e.setCell(f, summarySheet, "A6", "Currency")
	e.setCell(f, summarySheet, "B6", "Total")

	// Stable row order regardless of map iteration.
	codes := make([]string, 0, len(totals.ByCurrency))
	for code := range totals.ByCurrency {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	row := 7
	for _, code := range codes {
		e.setCell(f, summarySheet, fmt.Sprintf("A%d", row), code)
		e.setCell(f, summarySheet, fmt.Sprintf("B%d", row), totals.ByCurrency[code].String())
		row++
	}
}

func (e *ExcelExporter) fillReceipts(f *excelize.File, receipts []*entity.Receipt) {
	headers := []string{"ID", "Merchant", "Date", "Amount", "Currency", "Category", "Status", "Note"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		e.setCell(f, receiptsSheet, cell, header)
	}

	for i, receipt := range receipts {
		row := i + 2
		values := []interface{}{
			receipt.ID,
			stringOrEmpty(receipt.Merchant),
			dateOrEmpty(receipt),
			amountOrEmpty(receipt),
			stringOrEmpty(receipt.Currency),
			stringOrEmpty(receipt.Category),
			string(receipt.Status),
			stringOrEmpty(receipt.Note),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			e.setCell(f, receiptsSheet, cell, value)
		}
	}
}

func (e *ExcelExporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("failed to set cell", zap.String("cell", cell), zap.Error(err))
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateOrEmpty(receipt *entity.Receipt) string {
	if receipt.TxDate == nil {
		return ""
	}
	return receipt.TxDate.Format("2006-01-02")
}

func amountOrEmpty(receipt *entity.Receipt) string {
	if receipt.Amount == nil {
		return ""
	}
	return receipt.Amount.String()
}
