// Package lifecycle defines the order status machine: which statuses exist,
// which transitions are legal, and which role may trigger each one. It is the
// single source of truth for both the server-side guard and the client-side
// action resolver, so the UI and the server can never disagree about what a
// role is allowed to do.
package lifecycle

import (
	"errors"

	"github.com/salle-pos/api/internal/enum"
)

// Action identifies a status-machine transition request.
type Action string

const (
	ActionApprove          Action = "APPROVE"
	ActionRefuse           Action = "REFUSE"
	ActionStartPreparation Action = "START_PREPARATION"
	ActionMarkReady        Action = "MARK_READY"
	ActionServe            Action = "SERVE"
	ActionConfirmReceipt   Action = "CONFIRM_RECEIPT"
	ActionPay              Action = "PAY"
	ActionCancel           Action = "CANCEL"
)

// Errors returned by Apply.
var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrRoleNotAllowed    = errors.New("role may not perform this action")
	ErrInvalidTransition = errors.New("action not valid for current status")
)

// Rule describes one row of the transition table: the statuses the action may
// start from, the roles allowed to trigger it, and the resulting status.
type Rule struct {
	From  []string
	Roles []string
	To    string
}

var rules = map[Action]Rule{
	ActionApprove: {
		From:  []string{enum.OrderStatusPendingValidation},
		Roles: []string{enum.RoleWaiter},
		To:    enum.OrderStatusValidated,
	},
	ActionRefuse: {
		From:  []string{enum.OrderStatusPendingValidation},
		Roles: []string{enum.RoleWaiter},
		To:    enum.OrderStatusCancelled,
	},
	ActionStartPreparation: {
		From:  []string{enum.OrderStatusValidated},
		Roles: []string{enum.RoleCook},
		To:    enum.OrderStatusInProgress,
	},
	ActionMarkReady: {
		From:  []string{enum.OrderStatusInProgress},
		Roles: []string{enum.RoleCook},
		To:    enum.OrderStatusReady,
	},
	ActionServe: {
		From:  []string{enum.OrderStatusReady},
		Roles: []string{enum.RoleWaiter},
		To:    enum.OrderStatusServed,
	},
	ActionConfirmReceipt: {
		From:  []string{enum.OrderStatusServed},
		Roles: []string{enum.RoleDiner},
		To:    enum.OrderStatusReceived,
	},
	ActionPay: {
		From: []string{
			enum.OrderStatusValidated,
			enum.OrderStatusInProgress,
			enum.OrderStatusReady,
			enum.OrderStatusServed,
			enum.OrderStatusReceived,
		},
		Roles: []string{enum.RoleDiner, enum.RoleWaiter},
		To:    enum.OrderStatusPaid,
	},
	ActionCancel: {
		From: []string{
			enum.OrderStatusPendingValidation,
			enum.OrderStatusValidated,
		},
		Roles: []string{enum.RoleDiner},
		To:    enum.OrderStatusCancelled,
	},
}

// actionOrder fixes the iteration order for EnabledActions so callers get a
// deterministic result.
var actionOrder = []Action{
	ActionApprove,
	ActionRefuse,
	ActionStartPreparation,
	ActionMarkReady,
	ActionServe,
	ActionConfirmReceipt,
	ActionPay,
	ActionCancel,
}

// Lookup returns the rule for an action.
func Lookup(action Action) (Rule, bool) {
	r, ok := rules[action]
	return r, ok
}

// Terminal reports whether a status accepts no further transitions.
func Terminal(status string) bool {
	return status == enum.OrderStatusPaid || status == enum.OrderStatusCancelled
}

// EnabledActions returns the actions a role may trigger on an order in the
// given status. Any (status, role) pair without a matching transition-table
// row yields an empty slice. Views must render buttons from this and nothing
// else.
func EnabledActions(status, role string) []Action {
	var out []Action
	for _, a := range actionOrder {
		rule := rules[a]
		if containsString(rule.From, status) && containsString(rule.Roles, role) {
			out = append(out, a)
		}
	}
	return out
}

// RoleAllowed reports whether the role may ever trigger the action,
// independent of the order's current status.
func RoleAllowed(role string, action Action) bool {
	rule, ok := rules[action]
	return ok && containsString(rule.Roles, role)
}

// Allowed reports whether Apply would succeed for the given triple.
func Allowed(status, role string, action Action) bool {
	_, err := Apply(status, role, action)
	return err == nil
}

// Apply resolves the status an order moves to when role triggers action from
// status. Role mismatches are reported as ErrRoleNotAllowed and status
// mismatches (the stale-view race) as ErrInvalidTransition, so callers can map
// them to authorization and guard failures respectively.
func Apply(status, role string, action Action) (string, error) {
	rule, ok := rules[action]
	if !ok {
		return "", ErrUnknownAction
	}
	if !containsString(rule.Roles, role) {
		return "", ErrRoleNotAllowed
	}
	if !containsString(rule.From, status) {
		return "", ErrInvalidTransition
	}
	return rule.To, nil
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
