package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/infrastructure/persistence/sqlite"
)

const reportColumns = `id, title, status, currency, start_date, end_date, approver_email, submitted_at, created_at`

// ReportRepository implements port.ReportRepository on sqlite.
type ReportRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlite.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

// Create inserts a new report row.
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		report.ID,
		report.Title,
		string(report.Status),
		report.Currency,
		report.StartDate,
		report.EndDate,
		report.ApproverEmail,
		report.SubmittedAt,
		report.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create report", zap.Error(err), zap.String("id", report.ID))
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report, returning entity.ErrNotFound for unknown ids.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`
	report, err := scanReport(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", id, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// Update rewrites all mutable columns of a report.
func (r *ReportRepository) Update(ctx context.Context, report *entity.Report) error {
	query := `
		UPDATE reports
		SET title = ?, status = ?, currency = ?, start_date = ?, end_date = ?,
			approver_email = ?, submitted_at = ?
		WHERE id = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		report.Title,
		string(report.Status),
		report.Currency,
		report.StartDate,
		report.EndDate,
		report.ApproverEmail,
		report.SubmittedAt,
		report.ID,
	)
	if err != nil {
		r.logger.Error("failed to update report", zap.Error(err), zap.String("id", report.ID))
		return fmt.Errorf("update report: %w", err)
	}
	return requireRow(result, "report", report.ID)
}

// Delete removes a report row. Callers are responsible for detaching member
// receipts first, inside the same transaction.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireRow(result, "report", id)
}

// List returns reports in reverse creation order.
func (r *ReportRepository) List(ctx context.Context, limit, offset int) ([]*entity.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var (
		report        entity.Report
		status        string
		startDate     sql.NullTime
		endDate       sql.NullTime
		approverEmail sql.NullString
		submittedAt   sql.NullTime
	)

	err := row.Scan(
		&report.ID,
		&report.Title,
		&status,
		&report.Currency,
		&startDate,
		&endDate,
		&approverEmail,
		&submittedAt,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Status = entity.ReportStatus(status)
	report.ApproverEmail = nullableString(approverEmail)
	if startDate.Valid {
		t := startDate.Time
		report.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		report.EndDate = &t
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		report.SubmittedAt = &t
	}
	return &report, nil
}
