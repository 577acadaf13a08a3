package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a record of something that happened in the receipt/report
// lifecycle. ReceiptID and ReportID are set when the event concerns that
// entity and empty otherwise.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ReceiptID     string                 `json:"receipt_id,omitempty"`
	ReportID      string                 `json:"report_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// New creates an event with a fresh ID, timestamp and correlation chain.
func New(eventType Type, receiptID, reportID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReceiptID:     receiptID,
		ReportID:      reportID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
	}
}

// NewCorrelated creates an event linked to an existing correlation chain.
func NewCorrelated(eventType Type, receiptID, reportID string, payload map[string]interface{}, correlationID string) *Event {
	evt := New(eventType, receiptID, reportID, payload)
	evt.CorrelationID = correlationID
	return evt
}

// WithPayload returns a copy of the event with one payload entry added.
// The receiver is not modified.
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	copied := *e
	copied.Payload = payload
	return &copied
}

// PayloadString retrieves a string value from the payload, or "" when the
// key is absent or holds another type.
func (e *Event) PayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// PayloadInt retrieves an integer value from the payload, tolerating the
// numeric types JSON round-trips produce.
func (e *Event) PayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
