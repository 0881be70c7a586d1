package repository

import (
    "context"
    "time"

    "github.com/openbooking/escrow-core/internal/model"
)

// BookingPatch carries the optional column updates that accompany a
// booking status change.  Nil fields are left untouched.
type BookingPatch struct {
    CheckedInAt        *time.Time
    CancelledAt        *time.Time
    CancellationReason *string
}

// EscrowPatch carries the optional column updates that accompany an
// escrow status change.  Nil fields are left untouched.
type EscrowPatch struct {
    ReleasedAt    *time.Time
    ReleasedTo    *string
    ReleaseReason *string
}

// Store is the repository-style interface through which all services
// access the ledger store.  Every operation takes a context and returns
// an explicit error; store failures are propagated untouched so callers
// decide retry policy.  InTx runs a function against a transactional view
// of the store: either every write inside the function commits, or none
// does.  Implementations must support one level of nesting by running the
// inner function against the already-open transaction.
type Store interface {
    // Bookings.
    InsertBooking(ctx context.Context, b *model.Booking) error
    GetBooking(ctx context.Context, id string) (*model.Booking, error)
    UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, patch BookingPatch) error

    // Transition audit log (append-only, never pruned).
    InsertTransition(ctx context.Context, rec *model.TransitionLog) error
    ListTransitions(ctx context.Context, bookingID string) ([]model.TransitionLog, error)

    // Escrow ledger.
    InsertEscrowEntry(ctx context.Context, e *model.EscrowEntry) error
    UpdateEscrowStatus(ctx context.Context, id string, status model.EscrowStatus, patch EscrowPatch) error
    UpdateEscrowConfirmations(ctx context.Context, id string, confirmations int, blockNumber *uint64) error
    FindLockedEscrow(ctx context.Context, bookingID string) (*model.EscrowEntry, error)
    FindEscrowByTxHash(ctx context.Context, hash string) (*model.EscrowEntry, error)
    ListEscrowByBooking(ctx context.Context, bookingID string) ([]model.EscrowEntry, error)

    // Payment transactions (audit of money movement).
    InsertPaymentTransaction(ctx context.Context, tx *model.PaymentTransaction) error
    GetPaymentTransaction(ctx context.Context, id string) (*model.PaymentTransaction, error)
    UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error

    // Compliance audit log (append-only).
    InsertComplianceLog(ctx context.Context, entry *model.ComplianceLog) error

    // InTx executes fn atomically.  The Store passed to fn shares the
    // interface of the receiver but is bound to a single transaction.
    InTx(ctx context.Context, fn func(Store) error) error
}
