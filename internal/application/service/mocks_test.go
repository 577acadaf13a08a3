package service

import (
	"context"
	"fmt"

	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Mock repositories: map-backed defaults with per-test func overrides. Copies
// go in and out so mutations only land through Update, mirroring a real store.

type mockReceiptRepo struct {
	receipts map[string]*entity.Receipt
	order    []string

	updateFunc func(ctx context.Context, receipt *entity.Receipt) error
	deleteFunc func(ctx context.Context, id string) error
}

func newMockReceiptRepo(seed ...*entity.Receipt) *mockReceiptRepo {
	repo := &mockReceiptRepo{receipts: make(map[string]*entity.Receipt)}
	for _, r := range seed {
		copied := *r
		repo.receipts[r.ID] = &copied
		repo.order = append(repo.order, r.ID)
	}
	return repo
}

func (m *mockReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	copied := *receipt
	m.receipts[receipt.ID] = &copied
	m.order = append(m.order, receipt.ID)
	return nil
}

func (m *mockReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	stored, ok := m.receipts[id]
	if !ok {
		return nil, fmt.Errorf("%w: receipt %s", entity.ErrNotFound, id)
	}
	copied := *stored
	return &copied, nil
}

func (m *mockReceiptRepo) Update(ctx context.Context, receipt *entity.Receipt) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, receipt)
	}
	if _, ok := m.receipts[receipt.ID]; !ok {
		return fmt.Errorf("%w: receipt %s", entity.ErrNotFound, receipt.ID)
	}
	copied := *receipt
	m.receipts[receipt.ID] = &copied
	return nil
}

func (m *mockReceiptRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	if _, ok := m.receipts[id]; !ok {
		return fmt.Errorf("%w: receipt %s", entity.ErrNotFound, id)
	}
	delete(m.receipts, id)
	return nil
}

func (m *mockReceiptRepo) List(ctx context.Context, limit, offset int) ([]*entity.Receipt, error) {
	var out []*entity.Receipt
	for _, id := range m.order {
		if stored, ok := m.receipts[id]; ok {
			copied := *stored
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockReceiptRepo) ListByReportID(ctx context.Context, reportID string) ([]*entity.Receipt, error) {
	var out []*entity.Receipt
	for _, id := range m.order {
		stored, ok := m.receipts[id]
		if !ok || stored.ReportID == nil || *stored.ReportID != reportID {
			continue
		}
		copied := *stored
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockReceiptRepo) ListByStatus(ctx context.Context, status entity.ExtractionStatus) ([]*entity.Receipt, error) {
	var out []*entity.Receipt
	for _, id := range m.order {
		if stored, ok := m.receipts[id]; ok && stored.Status == status {
			copied := *stored
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockReceiptRepo) ClearReportID(ctx context.Context, reportID string) error {
	for _, stored := range m.receipts {
		if stored.ReportID != nil && *stored.ReportID == reportID {
			stored.ReportID = nil
		}
	}
	return nil
}

type mockReportRepo struct {
	reports map[string]*entity.Report

	updateFunc func(ctx context.Context, report *entity.Report) error
}

func newMockReportRepo(seed ...*entity.Report) *mockReportRepo {
	repo := &mockReportRepo{reports: make(map[string]*entity.Report)}
	for _, r := range seed {
		copied := *r
		repo.reports[r.ID] = &copied
	}
	return repo
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.Report) error {
	copied := *report
	m.reports[report.ID] = &copied
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	stored, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", entity.ErrNotFound, id)
	}
	copied := *stored
	return &copied, nil
}

func (m *mockReportRepo) Update(ctx context.Context, report *entity.Report) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, report)
	}
	if _, ok := m.reports[report.ID]; !ok {
		return fmt.Errorf("%w: report %s", entity.ErrNotFound, report.ID)
	}
	copied := *report
	m.reports[report.ID] = &copied
	return nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.reports[id]; !ok {
		return fmt.Errorf("%w: report %s", entity.ErrNotFound, id)
	}
	delete(m.reports, id)
	return nil
}

func (m *mockReportRepo) List(ctx context.Context, limit, offset int) ([]*entity.Report, error) {
	var out []*entity.Report
	for _, stored := range m.reports {
		copied := *stored
		out = append(out, &copied)
	}
	return out, nil
}

// mockTxManager runs the function directly; transactional atomicity is the
// sqlite layer's concern, not the services'.
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockOCRClient struct {
	recognizeFunc func(ctx context.Context, imageRef string) (port.OCRResult, error)
}

func (m *mockOCRClient) Recognize(ctx context.Context, imageRef string) (port.OCRResult, error) {
	if m.recognizeFunc != nil {
		return m.recognizeFunc(ctx, imageRef)
	}
	return port.OCRResult{}, nil
}

type mockRateTable struct {
	convertFunc func(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

func (m *mockRateTable) Rate(code string) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

func (m *mockRateTable) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if m.convertFunc != nil {
		return m.convertFunc(amount, from, to)
	}
	return amount, nil
}
