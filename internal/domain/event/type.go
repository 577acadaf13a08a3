package event

// Type identifies the type of domain event.
type Type string

const (
	TypeReceiptCreated   Type = "receipt.created"
	TypeReceiptConfirmed Type = "receipt.confirmed"
	TypeReceiptLinked    Type = "receipt.linked"
	TypeReceiptUnlinked  Type = "receipt.unlinked"
	TypeReportCreated    Type = "report.created"
	TypeReportSubmitted  Type = "report.submitted"
	TypeReportDeleted    Type = "report.deleted"
)

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants.
func (t Type) IsValid() bool {
	switch t {
	case TypeReceiptCreated,
		TypeReceiptConfirmed,
		TypeReceiptLinked,
		TypeReceiptUnlinked,
		TypeReportCreated,
		TypeReportSubmitted,
		TypeReportDeleted:
		return true
	default:
		return false
	}
}
