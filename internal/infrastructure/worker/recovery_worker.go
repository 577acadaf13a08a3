package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmarkov/expensio/internal/application/port"
	"github.com/dmarkov/expensio/internal/domain/entity"
	"github.com/dmarkov/expensio/internal/extract"
)

// RecoveryWorker sweeps receipts stuck in pending. A receipt is normally
// created and advanced in one call; a pending survivor means the process died
// mid-creation. The sweep re-runs recognition and extraction when an image
// reference and OCR client are available, and in any case moves the receipt
// to needs_confirmation so it shows up for review instead of staying
// invisible.
type RecoveryWorker struct {
	receipts  port.ReceiptRepository
	ocr       port.OCRClient
	extractor *extract.Extractor
	interval  time.Duration
	logger    *zap.Logger

	wg sync.WaitGroup
}

// NewRecoveryWorker creates a new RecoveryWorker. The OCR client may be nil;
// stuck receipts are then recovered without re-extraction.
func NewRecoveryWorker(
	receipts port.ReceiptRepository,
	ocr port.OCRClient,
	extractor *extract.Extractor,
	interval time.Duration,
	logger *zap.Logger,
) *RecoveryWorker {
	return &RecoveryWorker{
		receipts:  receipts,
		ocr:       ocr,
		extractor: extractor,
		interval:  interval,
		logger:    logger,
	}
}

// Name implements Worker.
func (w *RecoveryWorker) Name() string {
	return "receipt-recovery"
}

// Start runs the sweep loop until the context is canceled.
func (w *RecoveryWorker) Start(ctx context.Context) error {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
	return nil
}

// Stop waits for the loop to exit. The manager cancels the context first.
func (w *RecoveryWorker) Stop() error {
	w.wg.Wait()
	return nil
}

func (w *RecoveryWorker) sweep(ctx context.Context) {
	stuck, err := w.receipts.ListByStatus(ctx, entity.StatusPending)
	if err != nil {
		w.logger.Error("pending sweep failed", zap.Error(err))
		return
	}
	if len(stuck) == 0 {
		return
	}

	w.logger.Info("recovering stuck receipts", zap.Int("count", len(stuck)))
	for _, receipt := range stuck {
		if ctx.Err() != nil {
			return
		}
		if err := w.recover(ctx, receipt); err != nil {
			w.logger.Error("receipt recovery failed",
				zap.String("receipt_id", receipt.ID),
				zap.Error(err))
		}
	}
}

func (w *RecoveryWorker) recover(ctx context.Context, receipt *entity.Receipt) error {
	var rawText string
	var blocks []string

	if w.ocr != nil && receipt.ImageRef != "" {
		result, err := w.ocr.Recognize(ctx, receipt.ImageRef)
		switch {
		case err == nil:
			rawText = result.FullText
			blocks = result.Blocks
		case errors.Is(err, entity.ErrImageUnreadable):
			// Recovered with empty fields; the user fills them in.
		default:
			return err
		}
	}

	result := w.extractor.Extract(rawText, blocks)
	receipt.Merchant = result.Merchant
	receipt.TxDate = result.Date
	receipt.Amount = result.Amount
	receipt.Currency = result.Currency
	if result.Merchant != nil {
		category := result.Category.String()
		receipt.Category = &category
	}
	receipt.Status = entity.StatusNeedsConfirmation

	if err := w.receipts.Update(ctx, receipt); err != nil {
		return err
	}

	w.logger.Info("stuck receipt recovered",
		zap.String("receipt_id", receipt.ID),
		zap.Float64("confidence", result.Confidence))
	return nil
}
