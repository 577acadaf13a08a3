package entity

import "errors"

var (
	// ErrNotFound is returned when a receipt or report id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation violates the lifecycle
	// state machine, e.g. editing a submitted receipt or re-submitting a
	// report.
	ErrInvalidState = errors.New("invalid state")

	// ErrEmptyReport is returned when submitting a report with zero linked
	// receipts.
	ErrEmptyReport = errors.New("report has no receipts")

	// ErrImageUnreadable is reported by the OCR collaborator when an image
	// cannot be recognized. Extraction degrades to empty text.
	ErrImageUnreadable = errors.New("image unreadable")
)
