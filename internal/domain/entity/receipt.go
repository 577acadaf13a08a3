package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractionStatus tracks how far a receipt has progressed from raw scan
// to user-confirmed data.
type ExtractionStatus string

const (
	// StatusPending means the receipt was created but extraction has not run yet.
	StatusPending ExtractionStatus = "pending"
	// StatusNeedsConfirmation means extraction completed (fully or partially)
	// and the result is awaiting human review.
	StatusNeedsConfirmation ExtractionStatus = "needs_confirmation"
	// StatusConfirmed means a user confirmed the fields, or the receipt was
	// entered manually.
	StatusConfirmed ExtractionStatus = "confirmed"
)

// IsValid returns true if the status is a known extraction status.
func (s ExtractionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusNeedsConfirmation, StatusConfirmed:
		return true
	}
	return false
}

// Receipt represents a single scanned or manually entered expense.
// Optional fields are pointers: nil means "unknown", not zero. A zero amount
// is a legitimate value.
type Receipt struct {
	ID       string           `json:"id"`
	ImageRef string           `json:"image_ref,omitempty"` // URI or local path; empty for manual entries
	Merchant *string          `json:"merchant,omitempty"`
	TxDate   *time.Time       `json:"tx_date,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency *string          `json:"currency,omitempty"` // 3-letter code; unknown codes pass through
	Category *string          `json:"category,omitempty"`
	Note     *string          `json:"note,omitempty"`
	Status   ExtractionStatus `json:"status"`

	// ReportID records membership in at most one report. It is the single
	// source of truth for the receipt<->report relation; report receipt
	// lists are always derived by querying this field.
	ReportID *string `json:"report_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Linked returns true if the receipt belongs to a report.
func (r *Receipt) Linked() bool {
	return r.ReportID != nil && *r.ReportID != ""
}

// ReceiptFields holds the editable fields of a receipt for partial updates.
// Nil members are left untouched.
type ReceiptFields struct {
	Merchant *string          `json:"merchant,omitempty"`
	TxDate   *time.Time       `json:"tx_date,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency *string          `json:"currency,omitempty"`
	Category *string          `json:"category,omitempty"`
	Note     *string          `json:"note,omitempty"`
}
