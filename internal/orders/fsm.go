package orders

import (
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// statusTransitions is the full fulfillment state machine. An order only
// moves forward; completed and cancelled are terminal.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusPreparing, enums.OrderStatusCancelled},
	enums.OrderStatusPreparing: {enums.OrderStatusReady, enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusReady:     {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether the fulfillment status may move from one
// state to another. A same-state transition is a legal no-op.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GuardTransition returns a STATE_CONFLICT error when the requested move is
// not in the transition table.
func GuardTransition(from, to enums.OrderStatus) error {
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			"order cannot move from "+from.String()+" to "+to.String())
	}
	return nil
}
