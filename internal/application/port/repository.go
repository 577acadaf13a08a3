package port

import (
	"context"

	"github.com/dmarkov/expensio/internal/domain/entity"
)

// ReceiptRepository persists receipts. Implementations must honor the
// transaction placed in the context by TransactionManager.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id string) (*entity.Receipt, error)
	Update(ctx context.Context, receipt *entity.Receipt) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Receipt, error)

	// ListByReportID returns the members of a report in creation order.
	// Report membership is always derived through this query; there is no
	// separately maintained member list to drift out of sync.
	ListByReportID(ctx context.Context, reportID string) ([]*entity.Receipt, error)
	ListByStatus(ctx context.Context, status entity.ExtractionStatus) ([]*entity.Receipt, error)

	// ClearReportID detaches every receipt linked to the report. Used when
	// a draft report is deleted, inside the same transaction.
	ClearReportID(ctx context.Context, reportID string) error
}

// ReportRepository persists reports.
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id string) (*entity.Report, error)
	Update(ctx context.Context, report *entity.Report) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Report, error)
}

// TransactionManager executes a function within a single storage
// transaction. Lifecycle operations that touch both a receipt row and its
// report (link, unlink, submit, delete) must not be observably interleaved,
// so services wrap them with this.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
