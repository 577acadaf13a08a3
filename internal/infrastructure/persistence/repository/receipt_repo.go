package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/infrastructure/persistence/sqlite"
)

const receiptColumns = `id, image_ref, merchant, tx_date, amount, currency, category, note, status, report_id, created_at`

// ReceiptRepository implements port.ReceiptRepository on sqlite.
type ReceiptRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository.
func NewReceiptRepository(db *sqlite.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{db: db, logger: logger}
}

// Create inserts a new receipt row.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		INSERT INTO receipts (` + receiptColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		receipt.ID,
		receipt.ImageRef,
		receipt.Merchant,
		receipt.TxDate,
		decimalArg(receipt.Amount),
		receipt.Currency,
		receipt.Category,
		receipt.Note,
		string(receipt.Status),
		receipt.ReportID,
		receipt.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create receipt", zap.Error(err), zap.String("id", receipt.ID))
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

// GetByID retrieves a receipt, returning entity.ErrNotFound for unknown ids.
func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = ?`
	receipt, err := scanReceipt(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("receipt %s: %w", id, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return receipt, nil
}

// Update rewrites all mutable columns of a receipt.
func (r *ReceiptRepository) Update(ctx context.Context, receipt *entity.Receipt) error {
	query := `
		UPDATE receipts
		SET image_ref = ?, merchant = ?, tx_date = ?, amount = ?, currency = ?,
			category = ?, note = ?, status = ?, report_id = ?
		WHERE id = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		receipt.ImageRef,
		receipt.Merchant,
		receipt.TxDate,
		decimalArg(receipt.Amount),
		receipt.Currency,
		receipt.Category,
		receipt.Note,
		string(receipt.Status),
		receipt.ReportID,
		receipt.ID,
	)
	if err != nil {
		r.logger.Error("failed to update receipt", zap.Error(err), zap.String("id", receipt.ID))
		return fmt.Errorf("update receipt: %w", err)
	}
	return requireRow(result, "receipt", receipt.ID)
}

// Delete removes a receipt row.
func (r *ReceiptRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	return requireRow(result, "receipt", id)
}

// List returns receipts in reverse creation order.
func (r *ReceiptRepository) List(ctx context.Context, limit, offset int) ([]*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return collectReceipts(rows)
}

// ListByReportID returns a report's members in creation order. This query is
// the only source of report membership.
func (r *ReceiptRepository) ListByReportID(ctx context.Context, reportID string) ([]*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE report_id = ? ORDER BY created_at ASC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("list receipts by report: %w", err)
	}
	return collectReceipts(rows)
}

// ListByStatus returns receipts in a given extraction status.
func (r *ReceiptRepository) ListByStatus(ctx context.Context, status entity.ExtractionStatus) ([]*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE status = ? ORDER BY created_at DESC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list receipts by status: %w", err)
	}
	return collectReceipts(rows)
}

// ClearReportID detaches every member of a report.
func (r *ReceiptRepository) ClearReportID(ctx context.Context, reportID string) error {
	query := `UPDATE receipts SET report_id = NULL WHERE report_id = ?`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, reportID); err != nil {
		return fmt.Errorf("clear report id: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var (
		receipt  entity.Receipt
		merchant sql.NullString
		txDate   sql.NullTime
		amount   sql.NullString
		currency sql.NullString
		category sql.NullString
		note     sql.NullString
		reportID sql.NullString
		status   string
	)

	err := row.Scan(
		&receipt.ID,
		&receipt.ImageRef,
		&merchant,
		&txDate,
		&amount,
		&currency,
		&category,
		&note,
		&status,
		&reportID,
		&receipt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	receipt.Status = entity.ExtractionStatus(status)
	receipt.Merchant = nullableString(merchant)
	receipt.Currency = nullableString(currency)
	receipt.Category = nullableString(category)
	receipt.Note = nullableString(note)
	receipt.ReportID = nullableString(reportID)
	if txDate.Valid {
		t := txDate.Time
		receipt.TxDate = &t
	}
	if amount.Valid {
		value, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q: %w", amount.String, err)
		}
		receipt.Amount = &value
	}
	return &receipt, nil
}

func collectReceipts(rows *sql.Rows) ([]*entity.Receipt, error) {
	defer rows.Close()

	var receipts []*entity.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

// decimalArg stores amounts as their exact decimal string; NULL when absent.
func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	value := s.String
	return &value
}

// requireRow turns a zero-row update or delete into entity.ErrNotFound.
func requireRow(result sql.Result, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, entity.ErrNotFound)
	}
	return nil
}
