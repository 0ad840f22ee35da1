package orders

import (
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPlaced:    {enums.OrderStatusConfirmed, enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered: {enums.OrderStatusReturned},
	enums.OrderStatusCancelled: nil,
	enums.OrderStatusReturned:  nil,
}

// AllowedTransitions lists the statuses reachable from the given one.
func AllowedTransitions(from enums.OrderStatus) []enums.OrderStatus {
	next := transitions[from]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition returns nil when from -> to is a legal lifecycle move and a
// STATE_CONFLICT error naming the rule otherwise.
func CanTransition(from, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", to)
	}
	switch {
	case from == enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot update status of cancelled orders")
	case from == enums.OrderStatusReturned:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot update status of returned orders")
	case from == enums.OrderStatusDelivered && to == enums.OrderStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel delivered orders, use return instead")
	case from == enums.OrderStatusDelivered && to != enums.OrderStatusReturned:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders can only be returned")
	case to == enums.OrderStatusReturned && from != enums.OrderStatusDelivered:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
	case from == to:
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is already %s", to)
	}
	for _, candidate := range transitions[from] {
		if candidate == to {
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s back to %s", from, to)
}

// currentStatus folds the sticky cancel/return flags into the status so a
// row with an inconsistent status column still reads as terminal.
func currentStatus(order *models.Order) enums.OrderStatus {
	switch {
	case order.IsReturned:
		return enums.OrderStatusReturned
	case order.IsCancelled:
		return enums.OrderStatusCancelled
	default:
		return order.Status
	}
}
