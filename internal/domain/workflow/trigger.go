package workflow

// Trigger represents an event that can cause a state transition.
type Trigger string

const (
	// TriggerExtract fires when extraction completes for a pending receipt,
	// whether or not any fields were recovered.
	TriggerExtract Trigger = "EXTRACT"
	// TriggerConfirm fires on explicit user confirmation of receipt fields.
	TriggerConfirm Trigger = "CONFIRM"

	// TriggerSubmit hands a draft report off for approval. It fires at most
	// once per report.
	TriggerSubmit Trigger = "SUBMIT"
	// TriggerApprove and TriggerReject record the external approval
	// workflow's decision on a submitted report.
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
