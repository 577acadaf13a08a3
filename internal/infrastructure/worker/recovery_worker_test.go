package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/extract"
)

// stubReceiptRepo covers only what the recovery worker touches.
type stubReceiptRepo struct {
	mu       sync.Mutex
	receipts map[string]*entity.Receipt
}

func newStubReceiptRepo(seed ...*entity.Receipt) *stubReceiptRepo {
	repo := &stubReceiptRepo{receipts: make(map[string]*entity.Receipt)}
	for _, r := range seed {
		copied := *r
		repo.receipts[r.ID] = &copied
	}
	return repo
}

func (s *stubReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error { return nil }
func (s *stubReceiptRepo) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.receipts[id]
	return &copied, nil
}
func (s *stubReceiptRepo) Update(ctx context.Context, receipt *entity.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *receipt
	s.receipts[receipt.ID] = &copied
	return nil
}
func (s *stubReceiptRepo) Delete(ctx context.Context, id string) error { return nil }
func (s *stubReceiptRepo) List(ctx context.Context, limit, offset int) ([]*entity.Receipt, error) {
	return nil, nil
}
func (s *stubReceiptRepo) ListByReportID(ctx context.Context, reportID string) ([]*entity.Receipt, error) {
	return nil, nil
}
func (s *stubReceiptRepo) ListByStatus(ctx context.Context, status entity.ExtractionStatus) ([]*entity.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Receipt
	for _, r := range s.receipts {
		if r.Status == status {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}
func (s *stubReceiptRepo) ClearReportID(ctx context.Context, reportID string) error { return nil }

type stubOCR struct {
	text string
}

func (s *stubOCR) Recognize(ctx context.Context, imageRef string) (port.OCRResult, error) {
	return port.OCRResult{FullText: s.text}, nil
}

func TestRecoveryWorker_SweepAdvancesStuckReceipts(t *testing.T) {
	repo := newStubReceiptRepo(
		&entity.Receipt{ID: "stuck1", ImageRef: "img://1", Status: entity.StatusPending},
		&entity.Receipt{ID: "done", Status: entity.StatusConfirmed},
	)
	ocr := &stubOCR{text: "STARBUCKS\nTOTAL $12.50"}
	w := NewRecoveryWorker(repo, ocr, extract.NewExtractor(zap.NewNop()), time.Minute, zap.NewNop())

	w.sweep(context.Background())

	recovered, _ := repo.GetByID(context.Background(), "stuck1")
	if recovered.Status != entity.StatusNeedsConfirmation {
		t.Errorf("status = %s, want needs_confirmation", recovered.Status)
	}
	if recovered.Merchant == nil || *recovered.Merchant != "STARBUCKS" {
		t.Errorf("merchant = %v, want STARBUCKS", recovered.Merchant)
	}

	untouched, _ := repo.GetByID(context.Background(), "done")
	if untouched.Status != entity.StatusConfirmed {
		t.Errorf("confirmed receipt was modified: %s", untouched.Status)
	}
}

func TestRecoveryWorker_SweepWithoutOCR(t *testing.T) {
	repo := newStubReceiptRepo(
		&entity.Receipt{ID: "stuck1", ImageRef: "img://1", Status: entity.StatusPending},
	)
	w := NewRecoveryWorker(repo, nil, extract.NewExtractor(zap.NewNop()), time.Minute, zap.NewNop())

	w.sweep(context.Background())

	recovered, _ := repo.GetByID(context.Background(), "stuck1")
	if recovered.Status != entity.StatusNeedsConfirmation {
		t.Errorf("status = %s, want needs_confirmation", recovered.Status)
	}
	if recovered.Merchant != nil {
		t.Error("no OCR client, merchant should stay empty")
	}
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(zap.NewNop())
	repo := newStubReceiptRepo()
	m.Register(NewRecoveryWorker(repo, nil, extract.NewExtractor(zap.NewNop()), 10*time.Millisecond, zap.NewNop()))

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if err := m.StartAll(context.Background()); err == nil {
		t.Error("second StartAll() should fail")
	}

	if err := m.StopAll(); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}
	// Idempotent.
	if err := m.StopAll(); err != nil {
		t.Errorf("second StopAll() error = %v", err)
	}
}
