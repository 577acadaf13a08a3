package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/dispatcher"
	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/domain/event"
	"github.com/dmarkov/expensio/internal/domain/workflow"
)

// NewReportInput holds the fields for creating a report.
type NewReportInput struct {
	Title         string
	Currency      string
	StartDate     *time.Time
	EndDate       *time.Time
	ApproverEmail *string
}

// ReportService is the receipt/report lifecycle engine: it owns membership
// changes, the draft/submitted transition and total derivation.
type ReportService interface {
	Create(ctx context.Context, input NewReportInput) (*entity.Report, error)
	Get(ctx context.Context, id string) (*entity.Report, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Report, error)

	// Receipts returns the report's current members, derived from the
	// receipts' report_id field.
	Receipts(ctx context.Context, reportID string) ([]*entity.Receipt, error)

	// Link attaches a receipt to a draft report. Re-linking to the same
	// report is idempotent; linking to a second report is rejected.
	Link(ctx context.Context, receiptID, reportID string) error

	// Unlink detaches a receipt from its report. No-op when unlinked;
	// rejected once the owning report left the draft state.
	Unlink(ctx context.Context, receiptID string) error

	// Submit transitions a draft report to submitted, exactly once. A
	// report with zero receipts cannot be submitted.
	Submit(ctx context.Context, reportID string) (*entity.Report, error)

	// ComputeTotals derives the per-currency total mapping from the current
	// member set. This mapping is the authoritative total.
	ComputeTotals(ctx context.Context, reportID string) (*entity.ReportTotals, error)

	// DisplayTotal collapses the totals mapping into the report's declared
	// currency using the static rate table. Display convenience only.
	DisplayTotal(ctx context.Context, reportID string) (decimal.Decimal, string, error)

	// Delete removes a draft report, detaching all members first so no
	// receipt is left pointing at a missing report.
	Delete(ctx context.Context, reportID string) error
}

type reportServiceImpl struct {
	reports   port.ReportRepository
	receipts  port.ReceiptRepository
	rates     port.RateTable
	txManager port.TransactionManager
	events    dispatcher.Dispatcher
	logger    *zap.Logger
}

// NewReportService creates a new ReportService. The rate table may be nil
// when display conversion is not needed; the dispatcher may be nil when
// nothing subscribes to report events.
func NewReportService(
	reports port.ReportRepository,
	receipts port.ReceiptRepository,
	rates port.RateTable,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger *zap.Logger,
) ReportService {
	return &reportServiceImpl{
		reports:   reports,
		receipts:  receipts,
		rates:     rates,
		txManager: txManager,
		events:    events,
		logger:    logger,
	}
}

func (s *reportServiceImpl) Create(ctx context.Context, input NewReportInput) (*entity.Report, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("report title is required")
	}
	if input.Currency == "" {
		return nil, fmt.Errorf("report currency is required")
	}

	report := &entity.Report{
		ID:            uuid.NewString(),
		Title:         input.Title,
		Status:        entity.ReportDraft,
		Currency:      input.Currency,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		ApproverEmail: input.ApproverEmail,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("report created", zap.String("id", report.ID), zap.String("title", report.Title))
	s.publish(ctx, event.New(event.TypeReportCreated, "", report.ID, nil))
	return report, nil
}

func (s *reportServiceImpl) Get(ctx context.Context, id string) (*entity.Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *reportServiceImpl) List(ctx context.Context, limit, offset int) ([]*entity.Report, error) {
	return s.reports.List(ctx, limit, offset)
}

func (s *reportServiceImpl) Receipts(ctx context.Context, reportID string) ([]*entity.Receipt, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, err
	}
	return s.receipts.ListByReportID(ctx, reportID)
}

func (s *reportServiceImpl) Link(ctx context.Context, receiptID, reportID string) error {
	var linked bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.reports.GetByID(txCtx, reportID)
		if err != nil {
			return err
		}
		if !report.Status.Editable() {
			return fmt.Errorf("%w: link into %s report %s", entity.ErrInvalidState, report.Status, reportID)
		}

		receipt, err := s.receipts.GetByID(txCtx, receiptID)
		if err != nil {
			return err
		}
		if receipt.Linked() {
			if *receipt.ReportID == reportID {
				// Idempotent re-link.
				return nil
			}
			return fmt.Errorf("%w: receipt %s already linked to report %s",
				entity.ErrInvalidState, receiptID, *receipt.ReportID)
		}

		receipt.ReportID = &report.ID
		if err := s.receipts.Update(txCtx, receipt); err != nil {
			return err
		}

		linked = true
		s.logger.Info("receipt linked", zap.String("receipt_id", receiptID), zap.String("report_id", reportID))
		return nil
	})
	if err == nil && linked {
		s.publish(ctx, event.New(event.TypeReceiptLinked, receiptID, reportID, nil))
	}
	return err
}

func (s *reportServiceImpl) Unlink(ctx context.Context, receiptID string) error {
	var unlinkedFrom string
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		receipt, err := s.receipts.GetByID(txCtx, receiptID)
		if err != nil {
			return err
		}
		if !receipt.Linked() {
			return nil
		}

		report, err := s.reports.GetByID(txCtx, *receipt.ReportID)
		if err != nil {
			return err
		}
		if !report.Status.Editable() {
			return fmt.Errorf("%w: unlink from %s report %s", entity.ErrInvalidState, report.Status, report.ID)
		}

		receipt.ReportID = nil
		if err := s.receipts.Update(txCtx, receipt); err != nil {
			return err
		}

		unlinkedFrom = report.ID
		s.logger.Info("receipt unlinked", zap.String("receipt_id", receiptID), zap.String("report_id", report.ID))
		return nil
	})
	if err == nil && unlinkedFrom != "" {
		s.publish(ctx, event.New(event.TypeReceiptUnlinked, receiptID, unlinkedFrom, nil))
	}
	return err
}

func (s *reportServiceImpl) Submit(ctx context.Context, reportID string) (*entity.Report, error) {
	var submitted *entity.Report
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.reports.GetByID(txCtx, reportID)
		if err != nil {
			return err
		}

		machine := workflow.ForReport(reportState(report.Status))
		if err := machine.Fire(txCtx, workflow.TriggerSubmit); err != nil {
			return fmt.Errorf("%w: submit report %s in status %s", entity.ErrInvalidState, reportID, report.Status)
		}

		members, err := s.receipts.ListByReportID(txCtx, reportID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return fmt.Errorf("%w: report %s", entity.ErrEmptyReport, reportID)
		}

		now := time.Now().UTC()
		report.Status = entity.ReportSubmitted
		report.SubmittedAt = &now
		if err := s.reports.Update(txCtx, report); err != nil {
			return err
		}
		submitted = report

		s.logger.Info("report submitted",
			zap.String("report_id", reportID),
			zap.Int("receipts", len(members)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.New(event.TypeReportSubmitted, "", reportID, nil))
	return submitted, nil
}

func (s *reportServiceImpl) ComputeTotals(ctx context.Context, reportID string) (*entity.ReportTotals, error) {
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		return nil, err
	}
	members, err := s.receipts.ListByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return deriveTotals(reportID, members), nil
}

func (s *reportServiceImpl) DisplayTotal(ctx context.Context, reportID string) (decimal.Decimal, string, error) {
	if s.rates == nil {
		return decimal.Zero, "", fmt.Errorf("no rate table configured")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return decimal.Zero, "", err
	}
	totals, err := s.ComputeTotals(ctx, reportID)
	if err != nil {
		return decimal.Zero, "", err
	}

	sum := decimal.Zero
	for code, amount := range totals.ByCurrency {
		converted, err := s.rates.Convert(amount, code, report.Currency)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("convert %s to %s: %w", code, report.Currency, err)
		}
		sum = sum.Add(converted)
	}
	return sum, report.Currency, nil
}

func (s *reportServiceImpl) Delete(ctx context.Context, reportID string) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		report, err := s.reports.GetByID(txCtx, reportID)
		if err != nil {
			return err
		}
		if !report.Status.Editable() {
			return fmt.Errorf("%w: delete %s report %s", entity.ErrInvalidState, report.Status, reportID)
		}

		// Members are detached before the report row goes away; a dangling
		// report_id is a correctness bug.
		if err := s.receipts.ClearReportID(txCtx, reportID); err != nil {
			return err
		}
		if err := s.reports.Delete(txCtx, reportID); err != nil {
			return err
		}

		s.logger.Info("report deleted", zap.String("report_id", reportID))
		return nil
	})
	if err == nil {
		s.publish(ctx, event.New(event.TypeReportDeleted, "", reportID, nil))
	}
	return err
}

// publish hands a lifecycle event to the subscribers. Detached from the
// request context so a completed response does not cancel slow handlers.
func (s *reportServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	s.events.DispatchAsync(context.WithoutCancel(ctx), evt)
}

// deriveTotals is the pure derivation of a report's totals from its current
// member set. Receipts missing an amount or currency contribute to the count
// but not to any sum; only positive amounts are summed.
func deriveTotals(reportID string, members []*entity.Receipt) *entity.ReportTotals {
	totals := &entity.ReportTotals{
		ReportID:     reportID,
		ByCurrency:   make(map[string]decimal.Decimal),
		ReceiptCount: len(members),
	}
	for _, receipt := range members {
		if receipt.Amount == nil || receipt.Currency == nil || !receipt.Amount.IsPositive() {
			continue
		}
		code := *receipt.Currency
		totals.ByCurrency[code] = totals.ByCurrency[code].Add(*receipt.Amount)
	}
	return totals
}

func reportState(status entity.ReportStatus) workflow.State {
	switch status {
	case entity.ReportDraft:
		return workflow.StateDraft
	case entity.ReportSubmitted:
		return workflow.StateSubmitted
	case entity.ReportApproved:
		return workflow.StateApproved
	default:
		return workflow.StateRejected
	}
}
