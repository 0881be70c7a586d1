package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/openbooking/escrow-core/internal/model"
)

// InsertPaymentTransaction records one money-movement audit row.  The
// unique index on idempotency_key rejects replays of the same logical
// payment attempt; violations are mapped to ErrDuplicate.
func (s *MySQLStore) InsertPaymentTransaction(ctx context.Context, tx *model.PaymentTransaction) error {
    const q = `INSERT INTO payment_transactions
        (id, booking_id, user_id, tx_type, payment_method, amount_cents, currency,
         fee_cents, net_cents, status, transaction_hash, gateway_reference,
         idempotency_key, retry_count, metadata, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    meta, err := marshalMeta(tx.Metadata)
    if err != nil {
        return err
    }
    tx.CreatedAt = time.Now().UTC()
    _, err = s.q.ExecContext(ctx, q,
        tx.ID, tx.BookingID, tx.UserID, string(tx.Type), string(tx.Method),
        tx.AmountCents, tx.Currency, tx.FeeCents, tx.NetCents, string(tx.Status),
        tx.TransactionHash, tx.GatewayReference, tx.IdempotencyKey, tx.RetryCount,
        meta, tx.CreatedAt)
    if isDuplicateKey(err) {
        return ErrDuplicate
    }
    return err
}

// GetPaymentTransaction loads a transaction by ID.
func (s *MySQLStore) GetPaymentTransaction(ctx context.Context, id string) (*model.PaymentTransaction, error) {
    const q = `SELECT id, booking_id, user_id, tx_type, payment_method, amount_cents,
                      currency, fee_cents, net_cents, status, transaction_hash,
                      gateway_reference, idempotency_key, retry_count, metadata, created_at
               FROM payment_transactions WHERE id = ?`
    var tx model.PaymentTransaction
    var txType, method, status string
    var bookingID, txHash, gatewayRef sql.NullString
    var meta sql.NullString
    err := s.q.QueryRowContext(ctx, q, id).Scan(
        &tx.ID, &bookingID, &tx.UserID, &txType, &method, &tx.AmountCents,
        &tx.Currency, &tx.FeeCents, &tx.NetCents, &status, &txHash,
        &gatewayRef, &tx.IdempotencyKey, &tx.RetryCount, &meta, &tx.CreatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    tx.Type = model.TransactionType(txType)
    tx.Method = model.PaymentMethod(method)
    tx.Status = model.TransactionStatus(status)
    if bookingID.Valid {
        b := bookingID.String
        tx.BookingID = &b
    }
    if txHash.Valid {
        h := txHash.String
        tx.TransactionHash = &h
    }
    if gatewayRef.Valid {
        g := gatewayRef.String
        tx.GatewayReference = &g
    }
    if tx.Metadata, err = unmarshalMeta(meta); err != nil {
        return nil, err
    }
    return &tx, nil
}

// UpdatePaymentTransactionStatus advances the status of a transaction as
// confirmations or gateway callbacks arrive.
func (s *MySQLStore) UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error {
    const q = `UPDATE payment_transactions SET status = ? WHERE id = ?`
    res, err := s.q.ExecContext(ctx, q, string(status), id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        var one int
        if perr := s.q.QueryRowContext(ctx, `SELECT 1 FROM payment_transactions WHERE id = ?`, id).Scan(&one); perr == sql.ErrNoRows {
            return ErrNotFound
        }
    }
    return nil
}

// InsertComplianceLog appends one compliance decision to the audit log.
// Entries are never mutated after creation.
func (s *MySQLStore) InsertComplianceLog(ctx context.Context, entry *model.ComplianceLog) error {
    const q = `INSERT INTO compliance_logs
        (id, user_id, entity_type, entity_id, action, status, risk_score, metadata, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    meta, err := marshalMeta(entry.Metadata)
    if err != nil {
        return err
    }
    entry.CreatedAt = time.Now().UTC()
    _, err = s.q.ExecContext(ctx, q,
        entry.ID, entry.UserID, entry.EntityType, entry.EntityID, entry.Action,
        string(entry.Status), entry.RiskScore, meta, entry.CreatedAt)
    return err
}
