package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// OCRResult is the raw output of the external recognition engine: the full
// recognized text plus the detected regions in top-to-bottom order.
type OCRResult struct {
	FullText string
	Blocks   []string
}

// OCRClient is the external optical-character-recognition collaborator.
// A failed read surfaces entity.ErrImageUnreadable; extraction then proceeds
// with empty text rather than failing.
type OCRClient interface {
	Recognize(ctx context.Context, imageRef string) (OCRResult, error)
}

// RateTable supplies static exchange rates for display-time conversion.
// It is never consulted for the authoritative per-currency totals.
type RateTable interface {
	// Rate returns the value of one unit of the currency in the base unit.
	Rate(code string) (decimal.Decimal, error)

	// Convert converts an amount between two known currencies.
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}
