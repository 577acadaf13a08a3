package extract

import (
	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/domain/entity"
)

// Confidence weights: completeness of the three hard-to-recover fields.
const (
	merchantWeight = 0.3
	dateWeight     = 0.3
	amountWeight   = 0.4
)

// Extractor runs the field extractors over recognized receipt text and
// assembles one ExtractionResult. All extraction is pure and stateless;
// internal misses degrade to absent fields, never to errors.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract derives merchant, date, amount, currency and category from raw
// recognized text. Empty input yields an empty result with confidence 0.
func (e *Extractor) Extract(rawText string, blocks []string) entity.ExtractionResult {
	doc := Normalize(rawText, blocks)

	result := entity.ExtractionResult{
		RawText:  rawText,
		Category: entity.CategoryOther,
	}
	if doc.Empty() {
		return result
	}

	// Merchant first: the category classifier consumes it.
	result.Merchant = ExtractMerchant(doc)
	if result.Merchant != nil {
		result.Category = Classify(*result.Merchant)
	}
	result.Date = ExtractDate(doc)
	result.Amount = ExtractAmount(doc)
	result.Currency = ExtractCurrency(doc)

	result.Confidence = confidence(result)

	e.logger.Debug("extraction completed",
		zap.Bool("merchant", result.Merchant != nil),
		zap.Bool("date", result.Date != nil),
		zap.Bool("amount", result.Amount != nil),
		zap.String("category", result.Category.String()),
		zap.Float64("confidence", result.Confidence))

	return result
}

// confidence scores completeness additively, capped at 1.0. It says nothing
// about correctness.
func confidence(result entity.ExtractionResult) float64 {
	score := 0.0
	if result.Merchant != nil && *result.Merchant != "" {
		score += merchantWeight
	}
	if result.Date != nil {
		score += dateWeight
	}
	if result.Amount != nil && result.Amount.IsPositive() {
		score += amountWeight
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
