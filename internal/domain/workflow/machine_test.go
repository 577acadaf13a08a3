package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateNeedsConfirmation, false},
		{StateConfirmed, true},
		{StateDraft, false},
		{StateSubmitted, false},
		{StateApproved, true},
		{StateRejected, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"receipt state", StatePending, true},
		{"report state", StateSubmitted, true},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMachine_Fire(t *testing.T) {
	m := New(StateDraft)
	m.Permit(StateDraft, TriggerSubmit, StateSubmitted)

	if err := m.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if m.State() != StateSubmitted {
		t.Errorf("State() = %v, want %v", m.State(), StateSubmitted)
	}
}

func TestMachine_FireInvalidTransition(t *testing.T) {
	m := New(StateSubmitted)
	m.Permit(StateDraft, TriggerSubmit, StateSubmitted)

	err := m.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
	if m.State() != StateSubmitted {
		t.Errorf("state changed on failed fire: %v", m.State())
	}
}

func TestMachine_GuardBlocksTransition(t *testing.T) {
	m := New(StateDraft)
	m.PermitIf(StateDraft, TriggerSubmit, StateSubmitted, func(ctx context.Context) bool {
		return false
	})

	err := m.Fire(context.Background(), TriggerSubmit)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}
	if m.State() != StateDraft {
		t.Errorf("state changed on guarded fire: %v", m.State())
	}
}

func TestMachine_CanFire(t *testing.T) {
	m := New(StatePending)
	m.Permit(StatePending, TriggerExtract, StateNeedsConfirmation)

	if !m.CanFire(TriggerExtract) {
		t.Error("CanFire(TriggerExtract) = false, want true")
	}
	if m.CanFire(TriggerConfirm) {
		t.Error("CanFire(TriggerConfirm) = true, want false")
	}
}

func TestForReceipt_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	m := ForReceipt(StatePending)

	if err := m.Fire(ctx, TriggerExtract); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if err := m.Fire(ctx, TriggerConfirm); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if m.State() != StateConfirmed {
		t.Errorf("State() = %v, want %v", m.State(), StateConfirmed)
	}

	// Confirmed is terminal.
	if err := m.Fire(ctx, TriggerConfirm); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("re-confirm error = %v, want ErrInvalidTransition", err)
	}
}

func TestForReceipt_ManualEntrySkipsExtraction(t *testing.T) {
	m := ForReceipt(StatePending)
	if err := m.Fire(context.Background(), TriggerConfirm); err != nil {
		t.Fatalf("confirm from pending: %v", err)
	}
	if m.State() != StateConfirmed {
		t.Errorf("State() = %v, want %v", m.State(), StateConfirmed)
	}
}

func TestForReport_SubmitExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m := ForReport(StateDraft)

	if err := m.Fire(ctx, TriggerSubmit); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Fire(ctx, TriggerSubmit); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second submit error = %v, want ErrInvalidTransition", err)
	}
}

func TestForReport_ApprovalDecision(t *testing.T) {
	ctx := context.Background()

	m := ForReport(StateSubmitted)
	if err := m.Fire(ctx, TriggerApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if m.State() != StateApproved {
		t.Errorf("State() = %v, want %v", m.State(), StateApproved)
	}

	m = ForReport(StateSubmitted)
	if err := m.Fire(ctx, TriggerReject); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if m.State() != StateRejected {
		t.Errorf("State() = %v, want %v", m.State(), StateRejected)
	}
}
