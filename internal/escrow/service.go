package escrow

import (
    "context"
    "errors"
    "log"
    "strconv"
    "time"

    "github.com/google/uuid"

    "github.com/openbooking/escrow-core/internal/metrics"
    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/queue"
    "github.com/openbooking/escrow-core/internal/repository"
)

// actorSystem identifies transitions performed by the escrow service
// itself (payment locks, settlements) rather than by a user.
const actorSystem = "system"

// EventPublisher pushes domain events to the message broker.  Publishing
// is best-effort: the escrow service logs failures and carries on, the
// committed transition log is the source of truth.
type EventPublisher interface {
    PublishTransition(ctx context.Context, ev queue.TransitionEvent) error
    PublishEscrowSettled(ctx context.Context, ev queue.EscrowSettledEvent) error
}

// Service owns the booking state machine and the escrow ledger.  Every
// mutating operation runs inside a single store transaction so a failed
// step rolls back the whole operation, and operations on the same booking
// are serialized through the BookingLocker.
type Service struct {
    store  repository.Store
    locker BookingLocker
    events EventPublisher // nil disables event publishing
}

// NewService constructs an escrow service.  store and locker must be
// non-nil; events may be nil when no broker is configured.
func NewService(store repository.Store, locker BookingLocker, events EventPublisher) *Service {
    if store == nil || locker == nil {
        panic("nil dependency passed to escrow.NewService")
    }
    return &Service{store: store, locker: locker, events: events}
}

// CreateBooking validates and persists a new booking in the PENDING
// state.  The caller provides the reservation details; the service
// assigns the ID when empty and rejects an inverted date range.
func (s *Service) CreateBooking(ctx context.Context, b *model.Booking) error {
    if !b.CheckOutDate.After(b.CheckInDate) {
        return ErrInvalidDateRange
    }
    if b.NumGuests < 1 {
        b.NumGuests = 1
    }
    if b.TotalPriceCents <= 0 {
        return ErrInvalidAmount
    }
    if b.ID == "" {
        b.ID = uuid.NewString()
    }
    b.Status = model.StatusPending
    return s.store.InsertBooking(ctx, b)
}

// GetBooking loads a booking by ID.
func (s *Service) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
    return s.store.GetBooking(ctx, bookingID)
}

// GetBookingStatus returns the current status of a booking.
func (s *Service) GetBookingStatus(ctx context.Context, bookingID string) (model.BookingStatus, error) {
    b, err := s.store.GetBooking(ctx, bookingID)
    if err != nil {
        return "", err
    }
    return b.Status, nil
}

// GetEscrowByBooking returns the full escrow ledger history for a
// booking, newest entry first.
func (s *Service) GetEscrowByBooking(ctx context.Context, bookingID string) ([]model.EscrowEntry, error) {
    return s.store.ListEscrowByBooking(ctx, bookingID)
}

// ListTransitions returns the append-only transition audit log for a
// booking, oldest first.
func (s *Service) ListTransitions(ctx context.Context, bookingID string) ([]model.TransitionLog, error) {
    return s.store.ListTransitions(ctx, bookingID)
}

// TransitionState moves a booking to a new status.  The transition must
// appear in the state machine's table; otherwise a *TransitionError
// carrying the current and attempted statuses is returned.  On success
// the status is updated, CHECKED_IN stamps checked_in_at, CANCELLED
// stamps cancelled_at, and a transition log entry is appended, all
// within one store transaction.
func (s *Service) TransitionState(ctx context.Context, bookingID string, to model.BookingStatus, actorID string, metadata map[string]string) error {
    var from model.BookingStatus
    err := s.store.InTx(ctx, func(st repository.Store) error {
        b, err := st.GetBooking(ctx, bookingID)
        if err != nil {
            return err
        }
        from = b.Status
        return s.applyTransition(ctx, st, b, to, actorID, metadata)
    })
    if err != nil {
        return err
    }
    s.afterTransition(ctx, bookingID, from, to, actorID, metadata)
    return nil
}

// applyTransition validates and applies a status change against the
// transactional store view, appending the audit log row.  The booking's
// in-memory status is advanced on success so callers can chain steps
// within the same transaction.
func (s *Service) applyTransition(ctx context.Context, st repository.Store, b *model.Booking, to model.BookingStatus, actorID string, metadata map[string]string) error {
    if !to.Valid() || !CanTransition(b.Status, to) {
        return &TransitionError{From: b.Status, To: to}
    }
    now := time.Now().UTC()
    var patch repository.BookingPatch
    switch to {
    case model.StatusCheckedIn:
        patch.CheckedInAt = &now
    case model.StatusCancelled:
        patch.CancelledAt = &now
        if reason, ok := metadata["reason"]; ok {
            r := reason
            patch.CancellationReason = &r
        }
    }
    if err := st.UpdateBookingStatus(ctx, b.ID, to, patch); err != nil {
        return err
    }
    rec := &model.TransitionLog{
        ID:         uuid.NewString(),
        BookingID:  b.ID,
        FromStatus: b.Status,
        ToStatus:   to,
        ActorID:    actorID,
        Metadata:   metadata,
    }
    if err := st.InsertTransition(ctx, rec); err != nil {
        return err
    }
    b.Status = to
    return nil
}

// afterTransition emits the metric and best-effort broker event for a
// committed transition.
func (s *Service) afterTransition(ctx context.Context, bookingID string, from, to model.BookingStatus, actorID string, metadata map[string]string) {
    metrics.Transitions.WithLabelValues(string(to)).Inc()
    if s.events == nil {
        return
    }
    ev := queue.TransitionEvent{
        BookingID:  bookingID,
        FromStatus: string(from),
        ToStatus:   string(to),
        ActorID:    actorID,
        Metadata:   metadata,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
    if err := s.events.PublishTransition(ctx, ev); err != nil {
        log.Printf("escrow: publish transition event failed: %v", err)
    }
}

// LockPayment creates a locked escrow ledger entry for a confirmed
// payment and transitions the booking PENDING → PAYMENT_LOCKED.  Both
// writes share one transaction: a booking outside PENDING, or a second
// locked entry, rolls everything back so no orphaned ledger entry can
// exist.  Crypto locks must carry a well-formed transaction hash or the
// confirmation feed could never find the entry; the asset type and any
// sender wallet are checked the same way before anything is written.  Concurrent locks for the same booking are serialized by the
// BookingLocker, and the store's uniqueness rule on locked entries backs
// the check up at the storage layer.
func (s *Service) LockPayment(ctx context.Context, bookingID string, amountCents int64, currency string, asset model.AssetType, txHash, walletFrom *string) error {
    if !asset.Valid() {
        return ErrUnknownAssetType
    }
    if amountCents <= 0 {
        return ErrInvalidAmount
    }
    if asset.Crypto() {
        if txHash == nil || *txHash == "" {
            return ErrMissingTransactionHash
        }
        if !model.ValidTransactionHash(*txHash) {
            return ErrInvalidTransactionFormat
        }
    }
    if walletFrom != nil && !model.ValidWalletAddress(*walletFrom) {
        return ErrInvalidWalletFormat
    }

    release, err := s.locker.Acquire(ctx, bookingID)
    if err != nil {
        return err
    }
    defer release()

    meta := map[string]string{
        "amount_cents": strconv.FormatInt(amountCents, 10),
        "asset_type":   string(asset),
    }
    err = s.store.InTx(ctx, func(st repository.Store) error {
        b, err := st.GetBooking(ctx, bookingID)
        if err != nil {
            return err
        }
        if b.Status != model.StatusPending {
            return &TransitionError{From: b.Status, To: model.StatusPaymentLocked}
        }
        if _, err := st.FindLockedEscrow(ctx, bookingID); err == nil {
            return ErrAlreadyLocked
        } else if !errors.Is(err, repository.ErrNotFound) {
            return err
        }
        entry := &model.EscrowEntry{
            ID:                    uuid.NewString(),
            BookingID:             bookingID,
            AmountCents:           amountCents,
            Currency:              currency,
            AssetType:             asset,
            TransactionHash:       txHash,
            WalletFrom:            walletFrom,
            Status:                model.EscrowLocked,
            Confirmations:         0,
            RequiredConfirmations: asset.RequiredConfirmations(),
            LockedAt:              time.Now().UTC(),
        }
        if err := st.InsertEscrowEntry(ctx, entry); err != nil {
            if errors.Is(err, repository.ErrDuplicate) {
                return ErrAlreadyLocked
            }
            return err
        }
        return s.applyTransition(ctx, st, b, model.StatusPaymentLocked, actorSystem, meta)
    })
    if err != nil {
        metrics.EscrowOperations.WithLabelValues("lock", "error").Inc()
        return err
    }
    metrics.EscrowOperations.WithLabelValues("lock", "ok").Inc()
    s.afterTransition(ctx, bookingID, model.StatusPending, model.StatusPaymentLocked, actorSystem, meta)
    return nil
}

// ReleasePayment moves the booking's locked funds to the host (or other
// recipient).  It requires a locked escrow entry and a booking that has
// completed its stay; releasing earlier fails with PrematureReleaseError,
// which is what prevents an operator from withdrawing funds before the
// guest has checked in and the stay has completed.  On success the entry
// becomes released, the booking settles, and an escrow_release payment
// transaction is recorded with the escrow amount and zero fee.
func (s *Service) ReleasePayment(ctx context.Context, bookingID, releasedTo, reason string) error {
    release, err := s.locker.Acquire(ctx, bookingID)
    if err != nil {
        return err
    }
    defer release()

    var entry *model.EscrowEntry
    var settledNow bool
    err = s.store.InTx(ctx, func(st repository.Store) error {
        b, err := st.GetBooking(ctx, bookingID)
        if err != nil {
            return err
        }
        // A booking that has not completed its stay can never release,
        // whether or not funds are locked yet.
        if b.Status == model.StatusPending || b.Status == model.StatusPaymentLocked || b.Status == model.StatusCheckedIn {
            return &PrematureReleaseError{Current: b.Status}
        }
        entry, err = st.FindLockedEscrow(ctx, bookingID)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrNoLockedEscrow
        }
        if err != nil {
            return err
        }
        // A cancelled booking with funds still locked is refund
        // territory; releasing to the host stays forbidden.
        if b.Status != model.StatusCompleted && b.Status != model.StatusSettled {
            return &PrematureReleaseError{Current: b.Status}
        }
        now := time.Now().UTC()
        patch := repository.EscrowPatch{ReleasedAt: &now, ReleasedTo: &releasedTo, ReleaseReason: &reason}
        if err := st.UpdateEscrowStatus(ctx, entry.ID, model.EscrowReleased, patch); err != nil {
            return err
        }
        if b.Status == model.StatusCompleted {
            if err := s.applyTransition(ctx, st, b, model.StatusSettled, actorSystem, map[string]string{"reason": reason}); err != nil {
                return err
            }
            settledNow = true
        }
        tx := &model.PaymentTransaction{
            ID:              uuid.NewString(),
            BookingID:       &bookingID,
            UserID:          releasedTo,
            Type:            model.TxEscrowRelease,
            Method:          model.PaymentMethod(entry.AssetType),
            AmountCents:     entry.AmountCents,
            Currency:        entry.Currency,
            FeeCents:        0,
            NetCents:        entry.AmountCents,
            Status:          model.TxConfirmed,
            TransactionHash: entry.TransactionHash,
            IdempotencyKey:  uuid.NewString(),
            Metadata:        map[string]string{"reason": reason},
        }
        return st.InsertPaymentTransaction(ctx, tx)
    })
    if err != nil {
        metrics.EscrowOperations.WithLabelValues("release", "error").Inc()
        return err
    }
    metrics.EscrowOperations.WithLabelValues("release", "ok").Inc()
    if settledNow {
        s.afterTransition(ctx, bookingID, model.StatusCompleted, model.StatusSettled, actorSystem, map[string]string{"reason": reason})
    }
    s.publishSettled(ctx, entry, "released", releasedTo, reason)
    return nil
}

// RefundPayment returns the booking's locked funds to the guest and
// cancels the booking.  The cancellation must be legal under the state
// machine, so refunds are only possible from PENDING or PAYMENT_LOCKED;
// a booking that has reached CHECKED_IN fails with a TransitionError.
func (s *Service) RefundPayment(ctx context.Context, bookingID, reason string) error {
    release, err := s.locker.Acquire(ctx, bookingID)
    if err != nil {
        return err
    }
    defer release()

    var entry *model.EscrowEntry
    var from model.BookingStatus
    var guestID string
    meta := map[string]string{"reason": reason}
    err = s.store.InTx(ctx, func(st repository.Store) error {
        b, err := st.GetBooking(ctx, bookingID)
        if err != nil {
            return err
        }
        from = b.Status
        guestID = b.GuestID
        entry, err = st.FindLockedEscrow(ctx, bookingID)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrNoLockedEscrow
        }
        if err != nil {
            return err
        }
        if err := s.applyTransition(ctx, st, b, model.StatusCancelled, actorSystem, meta); err != nil {
            return err
        }
        now := time.Now().UTC()
        patch := repository.EscrowPatch{ReleasedAt: &now, ReleasedTo: &guestID, ReleaseReason: &reason}
        return st.UpdateEscrowStatus(ctx, entry.ID, model.EscrowRefunded, patch)
    })
    if err != nil {
        metrics.EscrowOperations.WithLabelValues("refund", "error").Inc()
        return err
    }
    metrics.EscrowOperations.WithLabelValues("refund", "ok").Inc()
    s.afterTransition(ctx, bookingID, from, model.StatusCancelled, actorSystem, meta)
    s.publishSettled(ctx, entry, "refunded", guestID, reason)
    return nil
}

// UpdateConfirmations upserts the on-chain confirmation count for the
// escrow entry matching a transaction hash.  The call is idempotent and
// driven by an external confirmation watcher at its own cadence.  A count
// lower than the one recorded (possible after a chain reorg) is logged
// as an anomaly and otherwise ignored; the stored maximum stands.  No
// threshold action is taken here: callers decide what to do once
// confirmations reach required_confirmations.
func (s *Service) UpdateConfirmations(ctx context.Context, txHash string, confirmations int, blockNumber *uint64) error {
    entry, err := s.store.FindEscrowByTxHash(ctx, txHash)
    if err != nil {
        return err
    }
    if confirmations < entry.Confirmations {
        log.Printf("escrow: confirmation regression for %s: recorded %d, reported %d (possible reorg); keeping maximum",
            txHash, entry.Confirmations, confirmations)
    }
    return s.store.UpdateEscrowConfirmations(ctx, entry.ID, confirmations, blockNumber)
}

// publishSettled emits the terminal escrow event, best-effort.
func (s *Service) publishSettled(ctx context.Context, entry *model.EscrowEntry, outcome, recipient, reason string) {
    if s.events == nil || entry == nil {
        return
    }
    ev := queue.EscrowSettledEvent{
        BookingID:   entry.BookingID,
        EntryID:     entry.ID,
        AmountCents: entry.AmountCents,
        Currency:    entry.Currency,
        AssetType:   string(entry.AssetType),
        Outcome:     outcome,
        ReleasedTo:  recipient,
        Reason:      reason,
        OccurredAt:  time.Now().UTC().Format(time.RFC3339),
    }
    if err := s.events.PublishEscrowSettled(ctx, ev); err != nil {
        log.Printf("escrow: publish settlement event failed: %v", err)
    }
}
