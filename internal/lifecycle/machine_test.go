package lifecycle

import (
	"errors"
	"testing"

	"github.com/salle-pos/api/internal/enum"
)

func TestApplyFullLifecycle(t *testing.T) {
	// Walk the happy path from creation to payment.
	steps := []struct {
		status string
		role   string
		action Action
		want   string
	}{
		{enum.OrderStatusPendingValidation, enum.RoleWaiter, ActionApprove, enum.OrderStatusValidated},
		{enum.OrderStatusValidated, enum.RoleCook, ActionStartPreparation, enum.OrderStatusInProgress},
		{enum.OrderStatusInProgress, enum.RoleCook, ActionMarkReady, enum.OrderStatusReady},
		{enum.OrderStatusReady, enum.RoleWaiter, ActionServe, enum.OrderStatusServed},
		{enum.OrderStatusServed, enum.RoleDiner, ActionConfirmReceipt, enum.OrderStatusReceived},
		{enum.OrderStatusReceived, enum.RoleDiner, ActionPay, enum.OrderStatusPaid},
	}

	for _, s := range steps {
		got, err := Apply(s.status, s.role, s.action)
		if err != nil {
			t.Fatalf("Apply(%s, %s, %s): unexpected error %v", s.status, s.role, s.action, err)
		}
		if got != s.want {
			t.Errorf("Apply(%s, %s, %s) = %s, want %s", s.status, s.role, s.action, got, s.want)
		}
	}
}

func TestApplyRoleNotAllowed(t *testing.T) {
	tests := []struct {
		status string
		role   string
		action Action
	}{
		{enum.OrderStatusPendingValidation, enum.RoleCook, ActionApprove},
		{enum.OrderStatusValidated, enum.RoleWaiter, ActionStartPreparation},
		{enum.OrderStatusServed, enum.RoleWaiter, ActionConfirmReceipt},
		{enum.OrderStatusValidated, enum.RoleCook, ActionPay},
		{enum.OrderStatusPendingValidation, enum.RoleWaiter, ActionCancel},
	}

	for _, tt := range tests {
		if _, err := Apply(tt.status, tt.role, tt.action); !errors.Is(err, ErrRoleNotAllowed) {
			t.Errorf("Apply(%s, %s, %s): got %v, want ErrRoleNotAllowed", tt.status, tt.role, tt.action, err)
		}
	}
}

func TestApplyInvalidTransition(t *testing.T) {
	tests := []struct {
		status string
		role   string
		action Action
	}{
		// Terminal states accept nothing.
		{enum.OrderStatusCancelled, enum.RoleCook, ActionStartPreparation},
		{enum.OrderStatusPaid, enum.RoleWaiter, ActionServe},
		{enum.OrderStatusCancelled, enum.RoleDiner, ActionPay},
		// Stale-view races: status already advanced past the assumed one.
		{enum.OrderStatusValidated, enum.RoleWaiter, ActionApprove},
		{enum.OrderStatusReady, enum.RoleCook, ActionMarkReady},
		{enum.OrderStatusPendingValidation, enum.RoleDiner, ActionPay},
		// Cancel window closed once preparation started.
		{enum.OrderStatusInProgress, enum.RoleDiner, ActionCancel},
	}

	for _, tt := range tests {
		if _, err := Apply(tt.status, tt.role, tt.action); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Apply(%s, %s, %s): got %v, want ErrInvalidTransition", tt.status, tt.role, tt.action, err)
		}
	}
}

func TestApplyUnknownAction(t *testing.T) {
	if _, err := Apply(enum.OrderStatusValidated, enum.RoleWaiter, Action("EXPLODE")); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("got %v, want ErrUnknownAction", err)
	}
}

func TestEnabledActions(t *testing.T) {
	tests := []struct {
		status string
		role   string
		want   []Action
	}{
		{enum.OrderStatusPendingValidation, enum.RoleWaiter, []Action{ActionApprove, ActionRefuse}},
		{enum.OrderStatusPendingValidation, enum.RoleDiner, []Action{ActionCancel}},
		{enum.OrderStatusValidated, enum.RoleCook, []Action{ActionStartPreparation}},
		{enum.OrderStatusValidated, enum.RoleDiner, []Action{ActionPay, ActionCancel}},
		{enum.OrderStatusValidated, enum.RoleWaiter, []Action{ActionPay}},
		{enum.OrderStatusInProgress, enum.RoleCook, []Action{ActionMarkReady}},
		{enum.OrderStatusReady, enum.RoleWaiter, []Action{ActionServe, ActionPay}},
		{enum.OrderStatusServed, enum.RoleDiner, []Action{ActionConfirmReceipt, ActionPay}},
		{enum.OrderStatusReceived, enum.RoleWaiter, []Action{ActionPay}},
		// Pairs with no transition-table row resolve to nothing.
		{enum.OrderStatusServed, enum.RoleCook, nil},
		{enum.OrderStatusPendingValidation, enum.RoleCook, nil},
		{enum.OrderStatusPaid, enum.RoleWaiter, nil},
		{enum.OrderStatusCancelled, enum.RoleDiner, nil},
		{enum.OrderStatusInProgress, enum.RoleManager, nil},
	}

	for _, tt := range tests {
		got := EnabledActions(tt.status, tt.role)
		if len(got) != len(tt.want) {
			t.Errorf("EnabledActions(%s, %s) = %v, want %v", tt.status, tt.role, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("EnabledActions(%s, %s) = %v, want %v", tt.status, tt.role, got, tt.want)
				break
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	terminals := []string{enum.OrderStatusPaid, enum.OrderStatusCancelled}
	for _, s := range terminals {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false, want true", s)
		}
	}

	open := []string{
		enum.OrderStatusPendingValidation,
		enum.OrderStatusValidated,
		enum.OrderStatusInProgress,
		enum.OrderStatusReady,
		enum.OrderStatusServed,
		enum.OrderStatusReceived,
	}
	for _, s := range open {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
}

func TestAllowed(t *testing.T) {
	if !Allowed(enum.OrderStatusReady, enum.RoleWaiter, ActionServe) {
		t.Error("waiter should be able to serve a ready order")
	}
	if Allowed(enum.OrderStatusReady, enum.RoleCook, ActionServe) {
		t.Error("cook must not be able to serve")
	}
}
