package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/openbooking/escrow-core/internal/model"
)

// MemoryStore is an in-memory Store used by tests and local development
// runs that have no MySQL available.  It enforces the same uniqueness
// rules as the production schema (idempotency keys, one locked escrow
// entry per booking) and implements InTx with copy-on-write semantics:
// a failed transaction function leaves no partial writes behind.
type MemoryStore struct {
    mu sync.Mutex
    d  *memData
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{d: newMemData()}
}

// memData holds the actual tables.  All access goes through MemoryStore
// (which serializes with a mutex) or through a memTx clone.
type memData struct {
    bookings     map[string]model.Booking
    transitions  []model.TransitionLog
    escrow       map[string]model.EscrowEntry
    transactions map[string]model.PaymentTransaction
    idemKeys     map[string]struct{}
    compliance   []model.ComplianceLog
}

func newMemData() *memData {
    return &memData{
        bookings:     make(map[string]model.Booking),
        escrow:       make(map[string]model.EscrowEntry),
        transactions: make(map[string]model.PaymentTransaction),
        idemKeys:     make(map[string]struct{}),
    }
}

// clone returns a deep-enough copy of the tables: maps and slices are
// copied so writes to the clone never touch the original.
func (d *memData) clone() *memData {
    c := newMemData()
    for k, v := range d.bookings {
        c.bookings[k] = v
    }
    for k, v := range d.escrow {
        c.escrow[k] = v
    }
    for k, v := range d.transactions {
        c.transactions[k] = v
    }
    for k := range d.idemKeys {
        c.idemKeys[k] = struct{}{}
    }
    c.transitions = append([]model.TransitionLog(nil), d.transitions...)
    c.compliance = append([]model.ComplianceLog(nil), d.compliance...)
    return c
}

// InTx clones the store, runs fn against the clone and atomically swaps
// it in when fn succeeds.  The mutex is held for the duration, which also
// serializes concurrent transactions the way the database would.
func (s *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    clone := s.d.clone()
    if err := fn(&memTx{d: clone}); err != nil {
        return err
    }
    s.d = clone
    return nil
}

func (s *MemoryStore) InsertBooking(ctx context.Context, b *model.Booking) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.insertBooking(b)
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.getBooking(id)
}

func (s *MemoryStore) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, patch BookingPatch) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.updateBookingStatus(id, status, patch)
}

func (s *MemoryStore) InsertTransition(ctx context.Context, rec *model.TransitionLog) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.insertTransition(rec)
}

func (s *MemoryStore) ListTransitions(ctx context.Context, bookingID string) ([]model.TransitionLog, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.listTransitions(bookingID)
}

func (s *MemoryStore) InsertEscrowEntry(ctx context.Context, e *model.EscrowEntry) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.insertEscrowEntry(e)
}

func (s *MemoryStore) UpdateEscrowStatus(ctx context.Context, id string, status model.EscrowStatus, patch EscrowPatch) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.updateEscrowStatus(id, status, patch)
}

func (s *MemoryStore) UpdateEscrowConfirmations(ctx context.Context, id string, confirmations int, blockNumber *uint64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.updateEscrowConfirmations(id, confirmations, blockNumber)
}

func (s *MemoryStore) FindLockedEscrow(ctx context.Context, bookingID string) (*model.EscrowEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.findLockedEscrow(bookingID)
}

func (s *MemoryStore) FindEscrowByTxHash(ctx context.Context, hash string) (*model.EscrowEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.findEscrowByTxHash(hash)
}

func (s *MemoryStore) ListEscrowByBooking(ctx context.Context, bookingID string) ([]model.EscrowEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.listEscrowByBooking(bookingID)
}

func (s *MemoryStore) InsertPaymentTransaction(ctx context.Context, tx *model.PaymentTransaction) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.insertPaymentTransaction(tx)
}

func (s *MemoryStore) GetPaymentTransaction(ctx context.Context, id string) (*model.PaymentTransaction, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.getPaymentTransaction(id)
}

func (s *MemoryStore) UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.updatePaymentTransactionStatus(id, status)
}

func (s *MemoryStore) InsertComplianceLog(ctx context.Context, entry *model.ComplianceLog) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.d.insertComplianceLog(entry)
}

// ListComplianceLogs returns every compliance decision recorded for a
// user, oldest first.  Exposed for tests and audit tooling.
func (s *MemoryStore) ListComplianceLogs(ctx context.Context, userID string) ([]model.ComplianceLog, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.ComplianceLog, 0)
    for _, c := range s.d.compliance {
        if c.UserID == userID {
            out = append(out, c)
        }
    }
    return out, nil
}

// CountPaymentTransactions reports the number of recorded transactions.
// Exposed for tests asserting that rejected payments leave no rows.
func (s *MemoryStore) CountPaymentTransactions() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.d.transactions)
}

// memTx is the transactional view handed to InTx callbacks.  It operates
// on the clone without locking; the owning MemoryStore holds the mutex
// for the whole transaction.
type memTx struct {
    d *memData
}

func (t *memTx) InTx(ctx context.Context, fn func(Store) error) error { return fn(t) }

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
    return t.d.insertBooking(b)
}
func (t *memTx) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
    return t.d.getBooking(id)
}
func (t *memTx) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, patch BookingPatch) error {
    return t.d.updateBookingStatus(id, status, patch)
}
func (t *memTx) InsertTransition(ctx context.Context, rec *model.TransitionLog) error {
    return t.d.insertTransition(rec)
}
func (t *memTx) ListTransitions(ctx context.Context, bookingID string) ([]model.TransitionLog, error) {
    return t.d.listTransitions(bookingID)
}
func (t *memTx) InsertEscrowEntry(ctx context.Context, e *model.EscrowEntry) error {
    return t.d.insertEscrowEntry(e)
}
func (t *memTx) UpdateEscrowStatus(ctx context.Context, id string, status model.EscrowStatus, patch EscrowPatch) error {
    return t.d.updateEscrowStatus(id, status, patch)
}
func (t *memTx) UpdateEscrowConfirmations(ctx context.Context, id string, confirmations int, blockNumber *uint64) error {
    return t.d.updateEscrowConfirmations(id, confirmations, blockNumber)
}
func (t *memTx) FindLockedEscrow(ctx context.Context, bookingID string) (*model.EscrowEntry, error) {
    return t.d.findLockedEscrow(bookingID)
}
func (t *memTx) FindEscrowByTxHash(ctx context.Context, hash string) (*model.EscrowEntry, error) {
    return t.d.findEscrowByTxHash(hash)
}
func (t *memTx) ListEscrowByBooking(ctx context.Context, bookingID string) ([]model.EscrowEntry, error) {
    return t.d.listEscrowByBooking(bookingID)
}
func (t *memTx) InsertPaymentTransaction(ctx context.Context, tx *model.PaymentTransaction) error {
    return t.d.insertPaymentTransaction(tx)
}
func (t *memTx) GetPaymentTransaction(ctx context.Context, id string) (*model.PaymentTransaction, error) {
    return t.d.getPaymentTransaction(id)
}
func (t *memTx) UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error {
    return t.d.updatePaymentTransactionStatus(id, status)
}
func (t *memTx) InsertComplianceLog(ctx context.Context, entry *model.ComplianceLog) error {
    return t.d.insertComplianceLog(entry)
}

// Table operations below mutate memData directly. Callers hold the lock
// or own a transaction clone.

func (d *memData) insertBooking(b *model.Booking) error {
    if _, ok := d.bookings[b.ID]; ok {
        return ErrDuplicate
    }
    now := time.Now().UTC()
    b.CreatedAt = now
    b.UpdatedAt = now
    d.bookings[b.ID] = *b
    return nil
}

func (d *memData) getBooking(id string) (*model.Booking, error) {
    b, ok := d.bookings[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &b, nil
}

func (d *memData) updateBookingStatus(id string, status model.BookingStatus, patch BookingPatch) error {
    b, ok := d.bookings[id]
    if !ok {
        return ErrNotFound
    }
    b.Status = status
    if patch.CheckedInAt != nil {
        b.CheckedInAt = patch.CheckedInAt
    }
    if patch.CancelledAt != nil {
        b.CancelledAt = patch.CancelledAt
    }
    if patch.CancellationReason != nil {
        b.CancellationReason = patch.CancellationReason
    }
    b.UpdatedAt = time.Now().UTC()
    d.bookings[id] = b
    return nil
}

func (d *memData) insertTransition(rec *model.TransitionLog) error {
    rec.CreatedAt = time.Now().UTC()
    d.transitions = append(d.transitions, *rec)
    return nil
}

func (d *memData) listTransitions(bookingID string) ([]model.TransitionLog, error) {
    out := make([]model.TransitionLog, 0)
    for _, rec := range d.transitions {
        if rec.BookingID == bookingID {
            out = append(out, rec)
        }
    }
    return out, nil
}

func (d *memData) insertEscrowEntry(e *model.EscrowEntry) error {
    if _, ok := d.escrow[e.ID]; ok {
        return ErrDuplicate
    }
    if e.Status == model.EscrowLocked {
        for _, other := range d.escrow {
            if other.BookingID == e.BookingID && other.Status == model.EscrowLocked {
                return ErrDuplicate
            }
        }
    }
    if e.LockedAt.IsZero() {
        e.LockedAt = time.Now().UTC()
    }
    d.escrow[e.ID] = *e
    return nil
}

func (d *memData) updateEscrowStatus(id string, status model.EscrowStatus, patch EscrowPatch) error {
    e, ok := d.escrow[id]
    if !ok {
        return ErrNotFound
    }
    if e.Status.Terminal() {
        return ErrConflict
    }
    e.Status = status
    if patch.ReleasedAt != nil {
        e.ReleasedAt = patch.ReleasedAt
    }
    if patch.ReleasedTo != nil {
        e.ReleasedTo = patch.ReleasedTo
    }
    if patch.ReleaseReason != nil {
        e.ReleaseReason = patch.ReleaseReason
    }
    d.escrow[id] = e
    return nil
}

func (d *memData) updateEscrowConfirmations(id string, confirmations int, blockNumber *uint64) error {
    e, ok := d.escrow[id]
    if !ok {
        return ErrNotFound
    }
    if e.Status.Terminal() {
        return nil
    }
    if confirmations > e.Confirmations {
        e.Confirmations = confirmations
    }
    if blockNumber != nil {
        e.BlockNumber = blockNumber
    }
    d.escrow[id] = e
    return nil
}

func (d *memData) findLockedEscrow(bookingID string) (*model.EscrowEntry, error) {
    for _, e := range d.escrow {
        if e.BookingID == bookingID && e.Status == model.EscrowLocked {
            entry := e
            return &entry, nil
        }
    }
    return nil, ErrNotFound
}

func (d *memData) findEscrowByTxHash(hash string) (*model.EscrowEntry, error) {
    for _, e := range d.escrow {
        if e.TransactionHash != nil && *e.TransactionHash == hash {
            entry := e
            return &entry, nil
        }
    }
    return nil, ErrNotFound
}

func (d *memData) listEscrowByBooking(bookingID string) ([]model.EscrowEntry, error) {
    out := make([]model.EscrowEntry, 0)
    for _, e := range d.escrow {
        if e.BookingID == bookingID {
            out = append(out, e)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].LockedAt.After(out[j].LockedAt) })
    return out, nil
}

func (d *memData) insertPaymentTransaction(tx *model.PaymentTransaction) error {
    if _, ok := d.transactions[tx.ID]; ok {
        return ErrDuplicate
    }
    if _, ok := d.idemKeys[tx.IdempotencyKey]; ok {
        return ErrDuplicate
    }
    tx.CreatedAt = time.Now().UTC()
    d.transactions[tx.ID] = *tx
    d.idemKeys[tx.IdempotencyKey] = struct{}{}
    return nil
}

func (d *memData) getPaymentTransaction(id string) (*model.PaymentTransaction, error) {
    tx, ok := d.transactions[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &tx, nil
}

func (d *memData) updatePaymentTransactionStatus(id string, status model.TransactionStatus) error {
    tx, ok := d.transactions[id]
    if !ok {
        return ErrNotFound
    }
    tx.Status = status
    d.transactions[id] = tx
    return nil
}

func (d *memData) insertComplianceLog(entry *model.ComplianceLog) error {
    entry.CreatedAt = time.Now().UTC()
    d.compliance = append(d.compliance, *entry)
    return nil
}
