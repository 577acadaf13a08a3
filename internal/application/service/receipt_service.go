package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/dispatcher"
	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/domain/event"
	"github.com/dmarkov/expensio/internal/domain/workflow"
	"github.com/dmarkov/expensio/internal/extract"
)

// ReceiptService manages receipts and drives the extraction pipeline.
type ReceiptService interface {
	// CreateFromText creates a receipt from recognized text and runs
	// extraction. The receipt ends in needs_confirmation regardless of how
	// many fields were recovered.
	CreateFromText(ctx context.Context, rawText string, blocks []string, imageRef string) (*entity.Receipt, error)

	// CreateFromImage recognizes the image through the OCR collaborator
	// first. An unreadable image degrades to empty text, not an error.
	CreateFromImage(ctx context.Context, imageRef string) (*entity.Receipt, error)

	// CreateManual creates a user-entered expense. Manual entries bypass
	// extraction and start confirmed.
	CreateManual(ctx context.Context, fields entity.ReceiptFields) (*entity.Receipt, error)

	Get(ctx context.Context, id string) (*entity.Receipt, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Receipt, error)
	ListByStatus(ctx context.Context, status entity.ExtractionStatus) ([]*entity.Receipt, error)

	// UpdateFields applies a partial edit. Rejected once the owning report
	// is no longer a draft.
	UpdateFields(ctx context.Context, id string, fields entity.ReceiptFields) (*entity.Receipt, error)

	// Confirm marks the fields as reviewed. Idempotent.
	Confirm(ctx context.Context, id string) (*entity.Receipt, error)

	// Delete removes a receipt. Rejected once the owning report is no
	// longer a draft.
	Delete(ctx context.Context, id string) error

	// Extract runs the pipeline without persisting anything.
	Extract(rawText string, blocks []string) entity.ExtractionResult
}

type receiptServiceImpl struct {
	receipts  port.ReceiptRepository
	reports   port.ReportRepository
	ocr       port.OCRClient
	extractor *extract.Extractor
	txManager port.TransactionManager
	events    dispatcher.Dispatcher
	logger    *zap.Logger
}

// NewReceiptService creates a new ReceiptService. The OCR client may be nil
// when images are recognized elsewhere and only text reaches this service;
// the dispatcher may be nil when nothing subscribes to receipt events.
func NewReceiptService(
	receipts port.ReceiptRepository,
	reports port.ReportRepository,
	ocr port.OCRClient,
	extractor *extract.Extractor,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger *zap.Logger,
) ReceiptService {
	return &receiptServiceImpl{
		receipts:  receipts,
		reports:   reports,
		ocr:       ocr,
		extractor: extractor,
		txManager: txManager,
		events:    events,
		logger:    logger,
	}
}

func (s *receiptServiceImpl) CreateFromText(ctx context.Context, rawText string, blocks []string, imageRef string) (*entity.Receipt, error) {
	receipt := &entity.Receipt{
		ID:        uuid.NewString(),
		ImageRef:  imageRef,
		Status:    entity.StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	result := s.extractor.Extract(rawText, blocks)
	applyExtraction(receipt, result)

	machine := workflow.ForReceipt(workflow.StatePending)
	if err := machine.Fire(ctx, workflow.TriggerExtract); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidState, err)
	}
	receipt.Status = entity.StatusNeedsConfirmation

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Info("receipt created from text",
		zap.String("id", receipt.ID),
		zap.Float64("confidence", result.Confidence))
	s.publish(ctx, event.New(event.TypeReceiptCreated, receipt.ID, "", map[string]interface{}{
		"source":     "text",
		"confidence": result.Confidence,
	}))
	return receipt, nil
}

func (s *receiptServiceImpl) CreateFromImage(ctx context.Context, imageRef string) (*entity.Receipt, error) {
	var rawText string
	var blocks []string

	if s.ocr == nil {
		return nil, fmt.Errorf("no OCR client configured")
	}

	result, err := s.ocr.Recognize(ctx, imageRef)
	switch {
	case err == nil:
		rawText = result.FullText
		blocks = result.Blocks
	case errors.Is(err, entity.ErrImageUnreadable):
		// Unreadable images still produce a receipt; the user fills it in.
		s.logger.Warn("image unreadable, extraction skipped", zap.String("image_ref", imageRef))
	default:
		return nil, fmt.Errorf("recognize image: %w", err)
	}

	return s.CreateFromText(ctx, rawText, blocks, imageRef)
}

func (s *receiptServiceImpl) CreateManual(ctx context.Context, fields entity.ReceiptFields) (*entity.Receipt, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	receipt := &entity.Receipt{
		ID:        uuid.NewString(),
		Status:    entity.StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}
	applyFields(receipt, fields)

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Info("manual receipt created", zap.String("id", receipt.ID))
	s.publish(ctx, event.New(event.TypeReceiptCreated, receipt.ID, "", map[string]interface{}{
		"source": "manual",
	}))
	return receipt, nil
}

func (s *receiptServiceImpl) Get(ctx context.Context, id string) (*entity.Receipt, error) {
	return s.receipts.GetByID(ctx, id)
}

func (s *receiptServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Receipt, error) {
	return s.receipts.List(ctx, limit, offset)
}

func (s *receiptServiceImpl) ListByStatus(ctx context.Context, status entity.ExtractionStatus) ([]*entity.Receipt, error) {
	return s.receipts.ListByStatus(ctx, status)
}

func (s *receiptServiceImpl) UpdateFields(ctx context.Context, id string, fields entity.ReceiptFields) (*entity.Receipt, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	var updated *entity.Receipt
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		receipt, err := s.receipts.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.requireEditable(txCtx, receipt); err != nil {
			return err
		}

		applyFields(receipt, fields)
		if err := s.receipts.Update(txCtx, receipt); err != nil {
			return err
		}
		updated = receipt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *receiptServiceImpl) Confirm(ctx context.Context, id string) (*entity.Receipt, error) {
	var confirmed *entity.Receipt
	var transitioned bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		receipt, err := s.receipts.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if receipt.Status == entity.StatusConfirmed {
			confirmed = receipt
			return nil
		}
		if err := s.requireEditable(txCtx, receipt); err != nil {
			return err
		}

		machine := workflow.ForReceipt(receiptState(receipt.Status))
		if err := machine.Fire(txCtx, workflow.TriggerConfirm); err != nil {
			return fmt.Errorf("%w: confirm receipt %s in status %s", entity.ErrInvalidState, id, receipt.Status)
		}

		receipt.Status = entity.StatusConfirmed
		if err := s.receipts.Update(txCtx, receipt); err != nil {
			return err
		}
		confirmed = receipt
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.publish(ctx, event.New(event.TypeReceiptConfirmed, id, "", nil))
	}
	return confirmed, nil
}

func (s *receiptServiceImpl) Delete(ctx context.Context, id string) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		receipt, err := s.receipts.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.requireEditable(txCtx, receipt); err != nil {
			return err
		}
		return s.receipts.Delete(txCtx, id)
	})
}

func (s *receiptServiceImpl) Extract(rawText string, blocks []string) entity.ExtractionResult {
	return s.extractor.Extract(rawText, blocks)
}

// publish hands a lifecycle event to the subscribers. Detached from the
// request context so a completed response does not cancel slow handlers.
func (s *receiptServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	s.events.DispatchAsync(context.WithoutCancel(ctx), evt)
}

// requireEditable rejects mutation of receipts whose owning report has left
// the draft state.
func (s *receiptServiceImpl) requireEditable(ctx context.Context, receipt *entity.Receipt) error {
	if !receipt.Linked() {
		return nil
	}
	report, err := s.reports.GetByID(ctx, *receipt.ReportID)
	if err != nil {
		return err
	}
	if !report.Status.Editable() {
		return fmt.Errorf("%w: receipt %s belongs to %s report %s",
			entity.ErrInvalidState, receipt.ID, report.Status, report.ID)
	}
	return nil
}

func applyExtraction(receipt *entity.Receipt, result entity.ExtractionResult) {
	receipt.Merchant = result.Merchant
	receipt.TxDate = result.Date
	receipt.Amount = result.Amount
	receipt.Currency = result.Currency
	if result.Merchant != nil {
		category := result.Category.String()
		receipt.Category = &category
	}
}

func applyFields(receipt *entity.Receipt, fields entity.ReceiptFields) {
	if fields.Merchant != nil {
		receipt.Merchant = fields.Merchant
	}
	if fields.TxDate != nil {
		receipt.TxDate = fields.TxDate
	}
	if fields.Amount != nil {
		receipt.Amount = fields.Amount
	}
	if fields.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*fields.Currency))
		receipt.Currency = &code
	}
	if fields.Category != nil {
		receipt.Category = fields.Category
	}
	if fields.Note != nil {
		receipt.Note = fields.Note
	}
}

// validateFields enforces the amount invariant. Unknown currency codes pass
// through untouched.
func validateFields(fields entity.ReceiptFields) error {
	if fields.Amount != nil && fields.Amount.IsNegative() {
		return fmt.Errorf("amount must be non-negative, got %s", fields.Amount)
	}
	return nil
}

func receiptState(status entity.ExtractionStatus) workflow.State {
	switch status {
	case entity.StatusPending:
		return workflow.StatePending
	case entity.StatusNeedsConfirmation:
		return workflow.StateNeedsConfirmation
	default:
		return workflow.StateConfirmed
	}
}
