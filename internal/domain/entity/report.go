package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus tracks an expense report through its lifecycle.
type ReportStatus string

const (
	// ReportDraft means the report is open for membership changes.
	ReportDraft ReportStatus = "draft"
	// ReportSubmitted means the report was handed off for approval. Its
	// receipts are read-only from this point on.
	ReportSubmitted ReportStatus = "submitted"
	// ReportApproved and ReportRejected are set by an external approval
	// workflow. Within this system both behave like submitted: read-only.
	ReportApproved ReportStatus = "approved"
	ReportRejected ReportStatus = "rejected"
)

// IsValid returns true if the status is a known report status.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportDraft, ReportSubmitted, ReportApproved, ReportRejected:
		return true
	}
	return false
}

// Editable returns true if receipts may still be added, removed or edited.
func (s ReportStatus) Editable() bool {
	return s == ReportDraft
}

// Report represents an aggregation of receipts prepared for reimbursement.
// It does not own receipt lifetimes; membership is recorded on each receipt.
type Report struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Status ReportStatus `json:"status"`

	// Currency is the report's declared display currency. It never affects
	// the per-currency totals mapping, only optional display conversion.
	Currency string `json:"currency"`

	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	ApproverEmail *string    `json:"approver_email,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReportTotals is the authoritative monetary total of a report: a mapping
// from currency code to the sum of linked receipt amounts in that currency.
// Collapsing it to a single number is a display concern only.
type ReportTotals struct {
	ReportID     string                     `json:"report_id"`
	ByCurrency   map[string]decimal.Decimal `json:"by_currency"`
	ReceiptCount int                        `json:"receipt_count"`
}

// SingleCurrency returns the sole currency and sum when the mapping has
// exactly one key, for callers that want a display scalar.
func (t *ReportTotals) SingleCurrency() (string, decimal.Decimal, bool) {
	if len(t.ByCurrency) != 1 {
		return "", decimal.Zero, false
	}
	for code, sum := range t.ByCurrency {
		return code, sum, true
	}
	return "", decimal.Zero, false
}
