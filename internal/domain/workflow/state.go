package workflow

// State represents a lifecycle state of a receipt or report.
type State string

// Receipt extraction lifecycle.
const (
	StatePending           State = "PENDING"
	StateNeedsConfirmation State = "NEEDS_CONFIRMATION"
	StateConfirmed         State = "CONFIRMED"
)

// Report lifecycle. Approved and rejected are reached only through an
// external approval workflow; inside this system they are read-only.
const (
	StateDraft     State = "DRAFT"
	StateSubmitted State = "SUBMITTED"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
)

var validStates = map[State]bool{
	StatePending:           true,
	StateNeedsConfirmation: true,
	StateConfirmed:         true,
	StateDraft:             true,
	StateSubmitted:         true,
	StateApproved:          true,
	StateRejected:          true,
}

var terminalStates = map[State]bool{
	StateConfirmed: true,
	StateApproved:  true,
	StateRejected:  true,
}

// IsTerminal returns true if the state allows no further transitions.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a known lifecycle state.
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
