package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition should be allowed.
type GuardFunc func(ctx context.Context) bool

// Machine is a small guarded state machine. Transitions are declared up
// front with Permit/PermitIf; Fire validates the trigger against the current
// state and advances it. Machines are not safe for concurrent use; each
// entity operation builds its own.
type Machine struct {
	current     State
	transitions map[State]map[Trigger][]transition
}

type transition struct {
	to    State
	guard GuardFunc
}

// New creates a machine starting in the given state.
func New(initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	return &Machine{
		current:     initial,
		transitions: make(map[State]map[Trigger][]transition),
	}
}

// Permit allows a trigger to move the machine from one state to another.
func (m *Machine) Permit(from State, trigger Trigger, to State) *Machine {
	return m.PermitIf(from, trigger, to, nil)
}

// PermitIf allows the transition only when the guard passes at fire time.
func (m *Machine) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Machine {
	if !from.IsValid() || !to.IsValid() {
		panic(fmt.Sprintf("invalid transition states: %s -> %s", from, to))
	}
	if m.transitions[from] == nil {
		m.transitions[from] = make(map[Trigger][]transition)
	}
	m.transitions[from][trigger] = append(m.transitions[from][trigger], transition{to: to, guard: guard})
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger has at least one transition declared
// for the current state. Guards are not evaluated here.
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.transitions[m.current][trigger]) > 0
}

// Fire attempts the trigger, advancing to the first transition whose guard
// passes. The state is unchanged on error.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.transitions[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}
	return fmt.Errorf("%w: trigger %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers declared for the current state.
func (m *Machine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.transitions[m.current]))
	for trigger := range m.transitions[m.current] {
		triggers = append(triggers, trigger)
	}
	return triggers
}

// ForReceipt builds the receipt extraction-status machine:
// pending -> needs_confirmation -> confirmed. Confirmation is also allowed
// straight from pending, covering manual entries that bypass extraction.
func ForReceipt(initial State) *Machine {
	m := New(initial)
	m.Permit(StatePending, TriggerExtract, StateNeedsConfirmation)
	m.Permit(StatePending, TriggerConfirm, StateConfirmed)
	m.Permit(StateNeedsConfirmation, TriggerConfirm, StateConfirmed)
	return m
}

// ForReport builds the report machine: draft -> submitted, exactly once,
// then an external approval decision.
func ForReport(initial State) *Machine {
	m := New(initial)
	m.Permit(StateDraft, TriggerSubmit, StateSubmitted)
	m.Permit(StateSubmitted, TriggerApprove, StateApproved)
	m.Permit(StateSubmitted, TriggerReject, StateRejected)
	return m
}
