package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/service"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/export"
)

// Handlers contains all HTTP request handlers.
type Handlers struct {
	receipts service.ReceiptService
	reports  service.ReportService
	exporter *export.ExcelExporter
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	receipts service.ReceiptService,
	reports service.ReportService,
	exporter *export.ExcelExporter,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		receipts: receipts,
		reports:  reports,
		exporter: exporter,
		logger:   logger,
	}
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ExtractRequest carries recognized text into the extraction endpoint.
type ExtractRequest struct {
	RawText string   `json:"raw_text"`
	Blocks  []string `json:"blocks,omitempty"`
}

// CreateReceiptRequest creates a receipt either from recognized text or as
// a manual entry.
type CreateReceiptRequest struct {
	RawText  string   `json:"raw_text,omitempty"`
	Blocks   []string `json:"blocks,omitempty"`
	ImageRef string   `json:"image_ref,omitempty"`

	Manual bool                 `json:"manual,omitempty"`
	Fields *ReceiptFieldsParams `json:"fields,omitempty"`
}

// ReceiptFieldsParams is the wire form of a partial receipt edit. The amount
// travels as a string to preserve exact decimals.
type ReceiptFieldsParams struct {
	Merchant *string `json:"merchant,omitempty"`
	TxDate   *string `json:"tx_date,omitempty"` // 2006-01-02
	Amount   *string `json:"amount,omitempty"`
	Currency *string `json:"currency,omitempty"`
	Category *string `json:"category,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// CreateReportRequest creates a draft report.
type CreateReportRequest struct {
	Title         string  `json:"title" binding:"required"`
	Currency      string  `json:"currency" binding:"required"`
	StartDate     *string `json:"start_date,omitempty"`
	EndDate       *string `json:"end_date,omitempty"`
	ApproverEmail *string `json:"approver_email,omitempty"`
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// Extract handles POST /api/extract: runs the pipeline without persisting.
func (h *Handlers) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result := h.receipts.Extract(req.RawText, req.Blocks)
	ok(c, result)
}

// CreateReceipt handles POST /api/receipts.
func (h *Handlers) CreateReceipt(c *gin.Context) {
	var req CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if req.Manual {
		fields, err := parseFields(req.Fields)
		if err != nil {
			badRequest(c, err)
			return
		}
		receipt, err := h.receipts.CreateManual(c.Request.Context(), fields)
		if err != nil {
			h.fail(c, err)
			return
		}
		created(c, receipt)
		return
	}

	receipt, err := h.receipts.CreateFromText(c.Request.Context(), req.RawText, req.Blocks, req.ImageRef)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, receipt)
}

// GetReceipt handles GET /api/receipts/:id.
func (h *Handlers) GetReceipt(c *gin.Context) {
	receipt, err := h.receipts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, receipt)
}

// ListReceipts handles GET /api/receipts.
func (h *Handlers) ListReceipts(c *gin.Context) {
	if status := c.Query("status"); status != "" {
		receipts, err := h.receipts.ListByStatus(c.Request.Context(), entity.ExtractionStatus(status))
		if err != nil {
			h.fail(c, err)
			return
		}
		ok(c, receipts)
		return
	}

	limit, offset := pagination(c)
	receipts, err := h.receipts.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, receipts)
}

// UpdateReceipt handles PATCH /api/receipts/:id.
func (h *Handlers) UpdateReceipt(c *gin.Context) {
	var params ReceiptFieldsParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err)
		return
	}
	fields, err := parseFields(&params)
	if err != nil {
		badRequest(c, err)
		return
	}

	receipt, err := h.receipts.UpdateFields(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, receipt)
}

// ConfirmReceipt handles POST /api/receipts/:id/confirm.
func (h *Handlers) ConfirmReceipt(c *gin.Context) {
	receipt, err := h.receipts.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, receipt)
}

// DeleteReceipt handles DELETE /api/receipts/:id.
func (h *Handlers) DeleteReceipt(c *gin.Context) {
	if err := h.receipts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateReport handles POST /api/reports.
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	input := service.NewReportInput{
		Title:         req.Title,
		Currency:      req.Currency,
		ApproverEmail: req.ApproverEmail,
	}
	var err error
	if input.StartDate, err = parseDate(req.StartDate); err != nil {
		badRequest(c, err)
		return
	}
	if input.EndDate, err = parseDate(req.EndDate); err != nil {
		badRequest(c, err)
		return
	}

	report, err := h.reports.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, report)
}

// GetReport handles GET /api/reports/:id.
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, report)
}

// ListReports handles GET /api/reports.
func (h *Handlers) ListReports(c *gin.Context) {
	limit, offset := pagination(c)
	reports, err := h.reports.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, reports)
}

// ListReportReceipts handles GET /api/reports/:id/receipts.
func (h *Handlers) ListReportReceipts(c *gin.Context) {
	receipts, err := h.reports.Receipts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, receipts)
}

// ReportTotals handles GET /api/reports/:id/totals.
func (h *Handlers) ReportTotals(c *gin.Context) {
	totals, err := h.reports.ComputeTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, totals)
}

// ReportDisplayTotal handles GET /api/reports/:id/display-total.
func (h *Handlers) ReportDisplayTotal(c *gin.Context) {
	total, currency, err := h.reports.DisplayTotal(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, gin.H{"total": total.String(), "currency": currency})
}

// SubmitReport handles POST /api/reports/:id/submit.
func (h *Handlers) SubmitReport(c *gin.Context) {
	report, err := h.reports.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, report)
}

// LinkReceipt handles POST /api/reports/:id/receipts/:receiptID.
func (h *Handlers) LinkReceipt(c *gin.Context) {
	if err := h.reports.Link(c.Request.Context(), c.Param("receiptID"), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnlinkReceipt handles DELETE /api/reports/:id/receipts/:receiptID.
func (h *Handlers) UnlinkReceipt(c *gin.Context) {
	if err := h.reports.Unlink(c.Request.Context(), c.Param("receiptID")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteReport handles DELETE /api/reports/:id.
func (h *Handlers) DeleteReport(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportReport handles GET /api/reports/:id/export: streams the report
// workbook.
func (h *Handlers) ExportReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	report, err := h.reports.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	receipts, err := h.reports.Receipts(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	totals, err := h.reports.ComputeTotals(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	workbook, err := h.exporter.Render(report, receipts, totals)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer workbook.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.xlsx", id))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := workbook.Write(c.Writer); err != nil {
		h.logger.Error("failed to stream workbook", zap.Error(err), zap.String("report_id", id))
	}
}

// fail maps domain errors to HTTP status codes.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidState), errors.Is(err, entity.ErrEmptyReport):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func parseFields(params *ReceiptFieldsParams) (entity.ReceiptFields, error) {
	var fields entity.ReceiptFields
	if params == nil {
		return fields, nil
	}

	fields.Merchant = params.Merchant
	fields.Currency = params.Currency
	fields.Category = params.Category
	fields.Note = params.Note

	var err error
	if fields.TxDate, err = parseDate(params.TxDate); err != nil {
		return fields, err
	}
	if params.Amount != nil {
		amount, err := decimal.NewFromString(*params.Amount)
		if err != nil {
			return fields, fmt.Errorf("invalid amount %q: %w", *params.Amount, err)
		}
		fields.Amount = &amount
	}
	return fields, nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", *s)
	}
	return &t, nil
}
