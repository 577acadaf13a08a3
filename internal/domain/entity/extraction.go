package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractionResult holds the fields recovered from one receipt's recognized
// text. It is ephemeral: produced per extraction call and copied into a
// Receipt, never persisted directly.
type ExtractionResult struct {
	Merchant *string          `json:"merchant,omitempty"`
	Date     *time.Time       `json:"date,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency *string          `json:"currency,omitempty"`
	Category Category         `json:"category"`
	RawText  string           `json:"raw_text"`

	// Confidence estimates extraction completeness (not correctness) in
	// [0,1]. Advisory only; it never gates acceptance.
	Confidence float64 `json:"confidence"`
}
