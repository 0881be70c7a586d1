package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/openbooking/escrow-core/internal/model"
)

// escrowColumns is the column list shared by every escrow ledger query.
const escrowColumns = `id, booking_id, amount_cents, currency, asset_type,
    transaction_hash, status, confirmations, required_confirmations,
    block_number, wallet_from, locked_at, released_at, released_to, release_reason`

// InsertEscrowEntry persists a new escrow ledger entry.  The schema's
// unique index on the locked generated column guarantees at most one
// locked entry per booking at the storage layer; a violation is mapped
// to ErrDuplicate.
func (s *MySQLStore) InsertEscrowEntry(ctx context.Context, e *model.EscrowEntry) error {
    const q = `INSERT INTO escrow_ledger
        (id, booking_id, amount_cents, currency, asset_type, transaction_hash,
         status, confirmations, required_confirmations, block_number, wallet_from, locked_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    if e.LockedAt.IsZero() {
        e.LockedAt = time.Now().UTC()
    }
    _, err := s.q.ExecContext(ctx, q,
        e.ID, e.BookingID, e.AmountCents, e.Currency, string(e.AssetType), e.TransactionHash,
        string(e.Status), e.Confirmations, e.RequiredConfirmations,
        e.BlockNumber, e.WalletFrom, e.LockedAt)
    if isDuplicateKey(err) {
        return ErrDuplicate
    }
    return err
}

// UpdateEscrowStatus moves an escrow entry to a new status, applying any
// patch columns.  Entries already in a terminal state are immutable:
// attempting to update one returns ErrConflict.
func (s *MySQLStore) UpdateEscrowStatus(ctx context.Context, id string, status model.EscrowStatus, patch EscrowPatch) error {
    const q = `UPDATE escrow_ledger
               SET status = ?,
                   released_at = COALESCE(?, released_at),
                   released_to = COALESCE(?, released_to),
                   release_reason = COALESCE(?, release_reason)
               WHERE id = ? AND status NOT IN ('released', 'refunded')`
    res, err := s.q.ExecContext(ctx, q,
        string(status), patch.ReleasedAt, patch.ReleasedTo, patch.ReleaseReason, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        var cur string
        err := s.q.QueryRowContext(ctx, `SELECT status FROM escrow_ledger WHERE id = ?`, id).Scan(&cur)
        if err == sql.ErrNoRows {
            return ErrNotFound
        }
        if err != nil {
            return err
        }
        if model.EscrowStatus(cur).Terminal() {
            return ErrConflict
        }
    }
    return nil
}

// UpdateEscrowConfirmations upserts the confirmation count on an entry.
// GREATEST keeps the recorded maximum, making the call idempotent and
// immune to confirmation regressions reported after a chain reorg.
// Terminal entries are immutable: a late watcher callback for a
// released or refunded entry is a no-op.
func (s *MySQLStore) UpdateEscrowConfirmations(ctx context.Context, id string, confirmations int, blockNumber *uint64) error {
    const q = `UPDATE escrow_ledger
               SET confirmations = GREATEST(confirmations, ?),
                   block_number = COALESCE(?, block_number)
               WHERE id = ? AND status NOT IN ('released', 'refunded')`
    res, err := s.q.ExecContext(ctx, q, confirmations, blockNumber, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        var one int
        if perr := s.q.QueryRowContext(ctx, `SELECT 1 FROM escrow_ledger WHERE id = ?`, id).Scan(&one); perr == sql.ErrNoRows {
            return ErrNotFound
        }
    }
    return nil
}

// FindLockedEscrow returns the single locked entry for a booking, or
// ErrNotFound when the booking has no funds locked.
func (s *MySQLStore) FindLockedEscrow(ctx context.Context, bookingID string) (*model.EscrowEntry, error) {
    const q = `SELECT ` + escrowColumns + `
               FROM escrow_ledger WHERE booking_id = ? AND status = 'locked'`
    return s.scanEscrow(s.q.QueryRowContext(ctx, q, bookingID))
}

// FindEscrowByTxHash locates an entry by its on-chain transaction hash.
func (s *MySQLStore) FindEscrowByTxHash(ctx context.Context, hash string) (*model.EscrowEntry, error) {
    const q = `SELECT ` + escrowColumns + `
               FROM escrow_ledger WHERE transaction_hash = ?`
    return s.scanEscrow(s.q.QueryRowContext(ctx, q, hash))
}

// ListEscrowByBooking returns every ledger entry for a booking, newest
// first, so callers can inspect the full lock/release/refund history.
func (s *MySQLStore) ListEscrowByBooking(ctx context.Context, bookingID string) ([]model.EscrowEntry, error) {
    const q = `SELECT ` + escrowColumns + `
               FROM escrow_ledger WHERE booking_id = ? ORDER BY locked_at DESC, id DESC`
    rows, err := s.q.QueryContext(ctx, q, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.EscrowEntry, 0)
    for rows.Next() {
        e, err := scanEscrowRow(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *e)
    }
    return out, rows.Err()
}

// scanEscrow scans a single-row escrow query, translating sql.ErrNoRows
// into ErrNotFound.
func (s *MySQLStore) scanEscrow(row *sql.Row) (*model.EscrowEntry, error) {
    e, err := scanEscrowRow(row.Scan)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return e, nil
}

// scanEscrowRow maps one escrow_ledger row onto a model.EscrowEntry.
func scanEscrowRow(scan func(dest ...interface{}) error) (*model.EscrowEntry, error) {
    var e model.EscrowEntry
    var asset, status string
    var txHash, releasedTo, releaseReason, walletFrom sql.NullString
    var blockNumber sql.NullInt64
    var releasedAt sql.NullTime
    err := scan(
        &e.ID, &e.BookingID, &e.AmountCents, &e.Currency, &asset,
        &txHash, &status, &e.Confirmations, &e.RequiredConfirmations,
        &blockNumber, &walletFrom, &e.LockedAt, &releasedAt, &releasedTo, &releaseReason,
    )
    if err != nil {
        return nil, err
    }
    e.AssetType = model.AssetType(asset)
    e.Status = model.EscrowStatus(status)
    if txHash.Valid {
        h := txHash.String
        e.TransactionHash = &h
    }
    if walletFrom.Valid {
        w := walletFrom.String
        e.WalletFrom = &w
    }
    if blockNumber.Valid {
        bn := uint64(blockNumber.Int64)
        e.BlockNumber = &bn
    }
    if releasedAt.Valid {
        t := releasedAt.Time
        e.ReleasedAt = &t
    }
    if releasedTo.Valid {
        r := releasedTo.String
        e.ReleasedTo = &r
    }
    if releaseReason.Valid {
        r := releaseReason.String
        e.ReleaseReason = &r
    }
    return &e, nil
}
