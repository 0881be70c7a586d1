package escrow

import (
    "errors"
    "fmt"

    "github.com/openbooking/escrow-core/internal/model"
)

// ErrNoLockedEscrow is returned when a release or refund is attempted for
// a booking that has no escrow entry in the locked state.
var ErrNoLockedEscrow = errors.New("no locked escrow entry for booking")

// ErrAlreadyLocked is returned when a lock is attempted for a booking
// that already has a locked escrow entry, e.g. on a duplicate webhook
// delivery.  The first lock stands; the duplicate fails cleanly.
var ErrAlreadyLocked = errors.New("booking already has a locked escrow entry")

// ErrLockBusy is returned when the per-booking serialization lock cannot
// be acquired.  Another operation is in flight for the same booking; the
// caller may retry after it completes.
var ErrLockBusy = errors.New("booking is locked by a concurrent operation")

// ErrInvalidDateRange is returned when a booking's check-out date does
// not fall after its check-in date.
var ErrInvalidDateRange = errors.New("check_out_date must be after check_in_date")

// ErrInvalidAmount is returned when a booking or payment amount is zero
// or negative.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrUnknownAssetType is returned when a lock names an asset the ledger
// does not track.
var ErrUnknownAssetType = errors.New("unknown asset type")

// ErrMissingTransactionHash is returned when a crypto lock carries no
// on-chain transaction hash.  Without the hash the confirmation feed can
// never match the entry.
var ErrMissingTransactionHash = errors.New("crypto escrow lock requires a transaction hash")

// ErrInvalidTransactionFormat is returned when a supplied transaction
// hash is not 64 hex characters prefixed with 0x.
var ErrInvalidTransactionFormat = errors.New("transaction hash must match ^0x[a-fA-F0-9]{64}$")

// ErrInvalidWalletFormat is returned when a supplied wallet address is
// not 40 hex characters prefixed with 0x.
var ErrInvalidWalletFormat = errors.New("wallet address must match ^0x[a-fA-F0-9]{40}$")

// TransitionError reports an attempted booking state transition that the
// transition table forbids.  It is a business-logic rejection: retrying
// the identical transition will fail identically.
type TransitionError struct {
    From model.BookingStatus
    To   model.BookingStatus
}

func (e *TransitionError) Error() string {
    return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// PrematureReleaseError reports an attempt to release escrowed funds
// before the booking has completed.  Current carries the offending
// booking status.
type PrematureReleaseError struct {
    Current model.BookingStatus
}

func (e *PrematureReleaseError) Error() string {
    return fmt.Sprintf("cannot release escrow before completion: booking is %s", e.Current)
}
