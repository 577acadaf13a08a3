package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/dispatcher"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/domain/event"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func draftReport(id string) *entity.Report {
	return &entity.Report{
		ID:        id,
		Title:     "Berlin trip",
		Status:    entity.ReportDraft,
		Currency:  "EUR",
		CreatedAt: time.Now().UTC(),
	}
}

func confirmedReceipt(id, amount, currency string) *entity.Receipt {
	return &entity.Receipt{
		ID:        id,
		Amount:    decPtr(amount),
		Currency:  strPtr(currency),
		Status:    entity.StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}
}

func newTestReportService(reports *mockReportRepo, receipts *mockReceiptRepo) ReportService {
	return NewReportService(reports, receipts, &mockRateTable{}, &mockTxManager{}, nil, zap.NewNop())
}

func TestReportService_Create(t *testing.T) {
	reports := newMockReportRepo()
	svc := newTestReportService(reports, newMockReceiptRepo())

	report, err := svc.Create(context.Background(), NewReportInput{Title: "Q3 travel", Currency: "usd"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if report.Status != entity.ReportDraft {
		t.Errorf("new report status = %s, want draft", report.Status)
	}
	if report.ID == "" {
		t.Error("new report has no ID")
	}
}

func TestReportService_CreateValidation(t *testing.T) {
	svc := newTestReportService(newMockReportRepo(), newMockReceiptRepo())

	if _, err := svc.Create(context.Background(), NewReportInput{Currency: "USD"}); err == nil {
		t.Error("Create() without title should fail")
	}
	if _, err := svc.Create(context.Background(), NewReportInput{Title: "x"}); err == nil {
		t.Error("Create() without currency should fail")
	}
}

func TestReportService_Link(t *testing.T) {
	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, receipts)
	ctx := context.Background()

	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	stored, _ := receipts.GetByID(ctx, "r1")
	if stored.ReportID == nil || *stored.ReportID != "rep1" {
		t.Errorf("receipt report_id = %v, want rep1", stored.ReportID)
	}
}

func TestReportService_LinkIdempotent(t *testing.T) {
	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, receipts)
	ctx := context.Background()

	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("first Link() error = %v", err)
	}
	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("second Link() error = %v", err)
	}

	members, _ := receipts.ListByReportID(ctx, "rep1")
	if len(members) != 1 {
		t.Errorf("member count = %d, want 1", len(members))
	}
}

func TestReportService_LinkToSecondReportRejected(t *testing.T) {
	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	reports := newMockReportRepo(draftReport("rep1"), draftReport("rep2"))
	svc := newTestReportService(reports, receipts)
	ctx := context.Background()

	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("Link() error = %v", err)
	}

	err := svc.Link(ctx, "r1", "rep2")
	if !errors.Is(err, entity.ErrInvalidState) {
		t.Errorf("Link() to second report error = %v, want ErrInvalidState", err)
	}

	stored, _ := receipts.GetByID(ctx, "r1")
	if stored.ReportID == nil || *stored.ReportID != "rep1" {
		t.Errorf("receipt report_id = %v, want rep1 unchanged", stored.ReportID)
	}
}

func TestReportService_LinkIntoSubmittedReportRejected(t *testing.T) {
	report := draftReport("rep1")
	report.Status = entity.ReportSubmitted
	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	svc := newTestReportService(newMockReportRepo(report), receipts)

	err := svc.Link(context.Background(), "r1", "rep1")
	if !errors.Is(err, entity.ErrInvalidState) {
		t.Errorf("Link() into submitted report error = %v, want ErrInvalidState", err)
	}
}

func TestReportService_LinkMissingEntities(t *testing.T) {
	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, receipts)
	ctx := context.Background()

	if err := svc.Link(ctx, "missing", "rep1"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("Link() with missing receipt error = %v, want ErrNotFound", err)
	}
	if err := svc.Link(ctx, "r1", "missing"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("Link() with missing report error = %v, want ErrNotFound", err)
	}
}

func TestReportService_Unlink(t *testing.T) {
	receipt := confirmedReceipt("r1", "12.50", "USD")
	receipt.ReportID = strPtr("rep1")
	receipts := newMockReceiptRepo(receipt)
	svc := newTestReportService(newMockReportRepo(draftReport("rep1")), receipts)
	ctx := context.Background()

	if err := svc.Unlink(ctx, "r1"); err != nil {
		t.Fatalf("Unlink() error = %v", err)
	}

	stored, _ := receipts.GetByID(ctx, "r1")
	if stored.ReportID != nil {
		t.Errorf("receipt report_id = %v, want nil", *stored.ReportID)
	}
}

func TestReportService_UnlinkUnlinkedIsNoOp(t *testing.T) {
	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	svc := newTestReportService(newMockReportRepo(), receipts)

	if err := svc.Unlink(context.Background(), "r1"); err != nil {
		t.Errorf("Unlink() on unlinked receipt error = %v, want nil", err)
	}
}

func TestReportService_UnlinkFromSubmittedRejected(t *testing.T) {
	report := draftReport("rep1")
	report.Status = entity.ReportSubmitted
	receipt := confirmedReceipt("r1", "12.50", "USD")
	receipt.ReportID = strPtr("rep1")
	receipts := newMockReceiptRepo(receipt)
	svc := newTestReportService(newMockReportRepo(report), receipts)
	ctx := context.Background()

	err := svc.Unlink(ctx, "r1")
	if !errors.Is(err, entity.ErrInvalidState) {
		t.Errorf("Unlink() from submitted report error = %v, want ErrInvalidState", err)
	}

	stored, _ := receipts.GetByID(ctx, "r1")
	if stored.ReportID == nil || *stored.ReportID != "rep1" {
		t.Error("receipt report_id changed by rejected unlink")
	}
}

func TestReportService_Submit(t *testing.T) {
	receipt := confirmedReceipt("r1", "12.50", "USD")
	receipt.ReportID = strPtr("rep1")
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, newMockReceiptRepo(receipt))

	submitted, err := svc.Submit(context.Background(), "rep1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submitted.Status != entity.ReportSubmitted {
		t.Errorf("status = %s, want submitted", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Error("SubmittedAt not set")
	}
}

func TestReportService_SubmitEmptyReport(t *testing.T) {
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, newMockReceiptRepo())
	ctx := context.Background()

	_, err := svc.Submit(ctx, "rep1")
	if !errors.Is(err, entity.ErrEmptyReport) {
		t.Errorf("Submit() on empty report error = %v, want ErrEmptyReport", err)
	}

	stored, _ := reports.GetByID(ctx, "rep1")
	if stored.Status != entity.ReportDraft {
		t.Errorf("status = %s, want draft unchanged", stored.Status)
	}
}

func TestReportService_SubmitTwice(t *testing.T) {
	receipt := confirmedReceipt("r1", "12.50", "USD")
	receipt.ReportID = strPtr("rep1")
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, newMockReceiptRepo(receipt))
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "rep1"); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	_, err := svc.Submit(ctx, "rep1")
	if !errors.Is(err, entity.ErrInvalidState) {
		t.Errorf("second Submit() error = %v, want ErrInvalidState", err)
	}

	stored, _ := reports.GetByID(ctx, "rep1")
	if stored.Status != entity.ReportSubmitted {
		t.Errorf("status = %s, want submitted unchanged", stored.Status)
	}
}

func TestReportService_ComputeTotals(t *testing.T) {
	r1 := confirmedReceipt("r1", "12.50", "USD")
	r2 := confirmedReceipt("r2", "7.50", "USD")
	r3 := confirmedReceipt("r3", "30.00", "EUR")
	noAmount := confirmedReceipt("r4", "1.00", "USD")
	noAmount.Amount = nil
	for _, r := range []*entity.Receipt{r1, r2, r3, noAmount} {
		r.ReportID = strPtr("rep1")
	}

	svc := newTestReportService(
		newMockReportRepo(draftReport("rep1")),
		newMockReceiptRepo(r1, r2, r3, noAmount),
	)

	totals, err := svc.ComputeTotals(context.Background(), "rep1")
	if err != nil {
		t.Fatalf("ComputeTotals() error = %v", err)
	}
	if totals.ReceiptCount != 4 {
		t.Errorf("ReceiptCount = %d, want 4", totals.ReceiptCount)
	}
	if len(totals.ByCurrency) != 2 {
		t.Fatalf("currency count = %d, want 2", len(totals.ByCurrency))
	}
	if !totals.ByCurrency["USD"].Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("USD total = %s, want 20.00", totals.ByCurrency["USD"])
	}
	if !totals.ByCurrency["EUR"].Equal(decimal.RequireFromString("30.00")) {
		t.Errorf("EUR total = %s, want 30.00", totals.ByCurrency["EUR"])
	}
}

func TestReportService_TotalsFollowMembership(t *testing.T) {
	receipts := newMockReceiptRepo(
		confirmedReceipt("r1", "10.00", "USD"),
		confirmedReceipt("r2", "5.00", "USD"),
	)
	svc := newTestReportService(newMockReportRepo(draftReport("rep1")), receipts)
	ctx := context.Background()

	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("Link(r1) error = %v", err)
	}
	if err := svc.Link(ctx, "r2", "rep1"); err != nil {
		t.Fatalf("Link(r2) error = %v", err)
	}

	totals, _ := svc.ComputeTotals(ctx, "rep1")
	if !totals.ByCurrency["USD"].Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("USD total = %s, want 15.00", totals.ByCurrency["USD"])
	}

	// Totals track the current member set; nothing of r2 lingers.
	if err := svc.Unlink(ctx, "r2"); err != nil {
		t.Fatalf("Unlink(r2) error = %v", err)
	}
	totals, _ = svc.ComputeTotals(ctx, "rep1")
	if !totals.ByCurrency["USD"].Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("USD total after unlink = %s, want 10.00", totals.ByCurrency["USD"])
	}
	if totals.ReceiptCount != 1 {
		t.Errorf("ReceiptCount after unlink = %d, want 1", totals.ReceiptCount)
	}
}

func TestReportService_DisplayTotal(t *testing.T) {
	r1 := confirmedReceipt("r1", "10.00", "EUR")
	r1.ReportID = strPtr("rep1")
	svc := newTestReportService(newMockReportRepo(draftReport("rep1")), newMockReceiptRepo(r1))

	sum, currency, err := svc.DisplayTotal(context.Background(), "rep1")
	if err != nil {
		t.Fatalf("DisplayTotal() error = %v", err)
	}
	if currency != "EUR" {
		t.Errorf("currency = %s, want EUR", currency)
	}
	if !sum.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("sum = %s, want 10.00", sum)
	}
}

func TestReportService_DeleteDetachesMembers(t *testing.T) {
	r1 := confirmedReceipt("r1", "10.00", "USD")
	r1.ReportID = strPtr("rep1")
	receipts := newMockReceiptRepo(r1)
	reports := newMockReportRepo(draftReport("rep1"))
	svc := newTestReportService(reports, receipts)
	ctx := context.Background()

	if err := svc.Delete(ctx, "rep1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := reports.GetByID(ctx, "rep1"); !errors.Is(err, entity.ErrNotFound) {
		t.Error("report still present after delete")
	}
	stored, err := receipts.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("receipt gone after report delete: %v", err)
	}
	if stored.ReportID != nil {
		t.Errorf("receipt report_id = %v, want nil after report delete", *stored.ReportID)
	}
}

func TestReportService_PublishesLifecycleEvents(t *testing.T) {
	events := dispatcher.New(zap.NewNop())
	var mu sync.Mutex
	seen := make(map[event.Type]int)
	record := func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		seen[evt.Type]++
		mu.Unlock()
		return nil
	}
	events.Subscribe(event.TypeReceiptLinked, record)
	events.Subscribe(event.TypeReportSubmitted, record)

	receipts := newMockReceiptRepo(confirmedReceipt("r1", "12.50", "USD"))
	reports := newMockReportRepo(draftReport("rep1"))
	svc := NewReportService(reports, receipts, &mockRateTable{}, &mockTxManager{}, events, zap.NewNop())
	ctx := context.Background()

	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	// Idempotent re-link publishes nothing.
	if err := svc.Link(ctx, "r1", "rep1"); err != nil {
		t.Fatalf("re-Link() error = %v", err)
	}
	if _, err := svc.Submit(ctx, "rep1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Close waits for the async handlers.
	if err := events.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[event.TypeReceiptLinked] != 1 {
		t.Errorf("receipt.linked published %d times, want 1", seen[event.TypeReceiptLinked])
	}
	if seen[event.TypeReportSubmitted] != 1 {
		t.Errorf("report.submitted published %d times, want 1", seen[event.TypeReportSubmitted])
	}
}

func TestReportService_DeleteSubmittedRejected(t *testing.T) {
	report := draftReport("rep1")
	report.Status = entity.ReportSubmitted
	svc := newTestReportService(newMockReportRepo(report), newMockReceiptRepo())

	err := svc.Delete(context.Background(), "rep1")
	if !errors.Is(err, entity.ErrInvalidState) {
		t.Errorf("Delete() on submitted report error = %v, want ErrInvalidState", err)
	}
}
