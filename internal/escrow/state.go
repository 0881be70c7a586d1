// Package escrow owns the booking state machine and the escrow ledger.
// It orchestrates locking, releasing and refunding funds, keeping the
// ledger and the booking status consistent, and appends every state
// transition to an append-only audit log.
package escrow

import "github.com/openbooking/escrow-core/internal/model"

// transitionTable defines every legal booking state transition.  A status
// missing from a state's successor list is illegal from that state; in
// particular CHECKED_IN has no CANCELLED successor, which is what makes
// host-initiated cancellation after check-in impossible by construction
// rather than by a role check.
var transitionTable = map[model.BookingStatus][]model.BookingStatus{
    model.StatusPending:       {model.StatusPaymentLocked, model.StatusCancelled},
    model.StatusPaymentLocked: {model.StatusCheckedIn, model.StatusCancelled},
    model.StatusCheckedIn:     {model.StatusCompleted},
    model.StatusCompleted:     {model.StatusSettled},
    model.StatusSettled:       {}, // terminal
    model.StatusCancelled:     {}, // terminal
}

// CanTransition reports whether moving a booking from one status to
// another is legal.
func CanTransition(from, to model.BookingStatus) bool {
    for _, next := range transitionTable[from] {
        if next == to {
            return true
        }
    }
    return false
}

// Successors returns the legal next states for a status.  The returned
// slice is shared and must not be mutated.
func Successors(from model.BookingStatus) []model.BookingStatus {
    return transitionTable[from]
}
