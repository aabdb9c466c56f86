package service

import (
	"goldsmith-supplies/internal/domain"

	"github.com/google/uuid"
)

// Caller identifies the authenticated account making a request.
type Caller struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

// OrderAction is an operation a caller attempts against an order.
type OrderAction int

const (
	ActionView OrderAction = iota
	ActionUpdate
	ActionCancel
)

// Decision is the outcome of an authorization check: whether the action is
// allowed and, for updates, which fields the caller may touch (nil means all
// recognized fields).
type Decision struct {
	Allowed         bool
	UpdatableFields map[string]bool
}

// customerUpdatableFields is the whitelist a non-admin owner may mutate.
var customerUpdatableFields = map[string]bool{
	"customerNote":   true,
	"pickupLocation": true,
}

// AuthorizeOrder is the single authorization policy consulted by every order
// operation. It never inspects order status; state gating is a separate
// concern handled by the workflow.
func AuthorizeOrder(caller Caller, order *domain.Order, action OrderAction) Decision {
	if caller.IsAdmin() {
		return Decision{Allowed: true}
	}
	if order.UserID != caller.UserID {
		return Decision{Allowed: false}
	}

	switch action {
	case ActionView, ActionCancel:
		return Decision{Allowed: true}
	case ActionUpdate:
		return Decision{Allowed: true, UpdatableFields: customerUpdatableFields}
	default:
		return Decision{Allowed: false}
	}
}

// StatusPolicy governs status assignment on admin updates. When Strict is
// set, the forward-only transition table applies to everyone; otherwise
// admins may assign any status, which mirrors the storefront's operational
// flexibility.
type StatusPolicy struct {
	Strict bool
}

// AllowTransition reports whether the policy permits moving an order between
// the two statuses.
func (p StatusPolicy) AllowTransition(from, to domain.OrderStatus) bool {
	if from == to {
		return true
	}
	if !p.Strict {
		return true
	}
	return domain.CanTransition(from, to)
}
