package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/openbooking/escrow-core/internal/model"
)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// MySQLStore is written against it so the same methods serve both the
// plain store and the transactional view handed out by InTx.
type queryer interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// MySQLStore implements Store on top of a MySQL database.  All timestamp
// columns are stored in UTC (the DSN is opened with loc=UTC).
type MySQLStore struct {
    db *sql.DB // nil when the store is a transactional view
    q  queryer
}

// NewMySQLStore returns a MySQLStore bound to the given database handle.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db, q: db} }

// InTx begins a transaction, runs fn against a store bound to it and
// commits when fn returns nil; any error rolls every write back.  Calling
// InTx on a store that is already transactional runs fn directly against
// the open transaction.
func (s *MySQLStore) InTx(ctx context.Context, fn func(Store) error) error {
    if s.db == nil {
        return fn(s)
    }
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    inner := &MySQLStore{q: tx}
    if err := fn(inner); err != nil {
        _ = tx.Rollback()
        return err
    }
    return tx.Commit()
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (errno 1062), raised by the unique indexes on idempotency_key and on
// the one-locked-entry-per-booking generated column.
func isDuplicateKey(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

// marshalMeta encodes a metadata map as JSON for storage.  A nil map is
// stored as SQL NULL.
func marshalMeta(m map[string]string) (interface{}, error) {
    if m == nil {
        return nil, nil
    }
    b, err := json.Marshal(m)
    if err != nil {
        return nil, err
    }
    return string(b), nil
}

// unmarshalMeta decodes a JSON metadata column; NULL yields a nil map.
func unmarshalMeta(raw sql.NullString) (map[string]string, error) {
    if !raw.Valid || raw.String == "" {
        return nil, nil
    }
    var m map[string]string
    if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
        return nil, err
    }
    return m, nil
}

// ─── Bookings ───────────────────────────────────────────────────────────────

// InsertBooking persists a new booking row.  The caller is responsible
// for validating the record (date range, status) before insertion.
func (s *MySQLStore) InsertBooking(ctx context.Context, b *model.Booking) error {
    const q = `INSERT INTO bookings
        (id, property_id, guest_id, host_id, check_in_date, check_out_date,
         num_guests, total_price_cents, currency, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    now := time.Now().UTC()
    b.CreatedAt = now
    b.UpdatedAt = now
    _, err := s.q.ExecContext(ctx, q,
        b.ID, b.PropertyID, b.GuestID, b.HostID, b.CheckInDate, b.CheckOutDate,
        b.NumGuests, b.TotalPriceCents, b.Currency, string(b.Status), now, now)
    if isDuplicateKey(err) {
        return ErrDuplicate
    }
    return err
}

// GetBooking loads a booking by ID.  ErrNotFound is returned when no row
// exists.
func (s *MySQLStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
    const q = `SELECT id, property_id, guest_id, host_id, check_in_date, check_out_date,
                      num_guests, total_price_cents, currency, status,
                      checked_in_at, cancelled_at, cancellation_reason,
                      created_at, updated_at
               FROM bookings WHERE id = ?`
    var b model.Booking
    var status string
    var checkedIn, cancelled sql.NullTime
    var reason sql.NullString
    err := s.q.QueryRowContext(ctx, q, id).Scan(
        &b.ID, &b.PropertyID, &b.GuestID, &b.HostID, &b.CheckInDate, &b.CheckOutDate,
        &b.NumGuests, &b.TotalPriceCents, &b.Currency, &status,
        &checkedIn, &cancelled, &reason,
        &b.CreatedAt, &b.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    b.Status = model.BookingStatus(status)
    if checkedIn.Valid {
        t := checkedIn.Time
        b.CheckedInAt = &t
    }
    if cancelled.Valid {
        t := cancelled.Time
        b.CancelledAt = &t
    }
    if reason.Valid {
        r := reason.String
        b.CancellationReason = &r
    }
    return &b, nil
}

// UpdateBookingStatus sets the booking's status and any accompanying
// patch columns.  ErrNotFound is returned when the booking does not
// exist.
func (s *MySQLStore) UpdateBookingStatus(ctx context.Context, id string, status model.BookingStatus, patch BookingPatch) error {
    const q = `UPDATE bookings
               SET status = ?,
                   checked_in_at = COALESCE(?, checked_in_at),
                   cancelled_at = COALESCE(?, cancelled_at),
                   cancellation_reason = COALESCE(?, cancellation_reason),
                   updated_at = ?
               WHERE id = ?`
    res, err := s.q.ExecContext(ctx, q,
        string(status), patch.CheckedInAt, patch.CancelledAt, patch.CancellationReason,
        time.Now().UTC(), id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // MySQL reports zero affected rows both for a missing booking and
        // for a no-op update; distinguish by probing for the row.
        if _, gerr := s.GetBooking(ctx, id); gerr != nil {
            return gerr
        }
    }
    return nil
}

// ─── Transition log ─────────────────────────────────────────────────────────

// InsertTransition appends one row to the booking transition audit log.
func (s *MySQLStore) InsertTransition(ctx context.Context, rec *model.TransitionLog) error {
    const q = `INSERT INTO booking_transitions
        (id, booking_id, from_status, to_status, actor_id, metadata, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    meta, err := marshalMeta(rec.Metadata)
    if err != nil {
        return err
    }
    rec.CreatedAt = time.Now().UTC()
    _, err = s.q.ExecContext(ctx, q,
        rec.ID, rec.BookingID, string(rec.FromStatus), string(rec.ToStatus),
        rec.ActorID, meta, rec.CreatedAt)
    return err
}

// ListTransitions returns the transition log for a booking, oldest first.
func (s *MySQLStore) ListTransitions(ctx context.Context, bookingID string) ([]model.TransitionLog, error) {
    const q = `SELECT id, booking_id, from_status, to_status, actor_id, metadata, created_at
               FROM booking_transitions WHERE booking_id = ? ORDER BY created_at ASC, id ASC`
    rows, err := s.q.QueryContext(ctx, q, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.TransitionLog, 0)
    for rows.Next() {
        var rec model.TransitionLog
        var from, to string
        var meta sql.NullString
        if err := rows.Scan(&rec.ID, &rec.BookingID, &from, &to, &rec.ActorID, &meta, &rec.CreatedAt); err != nil {
            return nil, err
        }
        rec.FromStatus = model.BookingStatus(from)
        rec.ToStatus = model.BookingStatus(to)
        if rec.Metadata, err = unmarshalMeta(meta); err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    return out, rows.Err()
}
