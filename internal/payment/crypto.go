package payment

import (
    "context"
    "fmt"

    "github.com/google/uuid"

    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/repository"
)

// MetaTransactionHash is the metadata key carrying the on-chain hash of
// a crypto payment.  MetaWalletFrom optionally carries the sender.
const (
    MetaTransactionHash = "transaction_hash"
    MetaWalletFrom      = "wallet_from"
)

// CryptoAdapter handles the on-chain rail (eth, dai, a7a5).  A payment is
// accepted once its transaction hash is syntactically valid; confirmation
// accumulation and sender/amount matching are fed back later by the
// external RPC listener through the escrow service.
type CryptoAdapter struct {
    store repository.Store
}

// NewCryptoAdapter returns a crypto adapter recording transactions in the
// given store.
func NewCryptoAdapter(store repository.Store) *CryptoAdapter {
    return &CryptoAdapter{store: store}
}

// Process validates the transaction hash and records a confirmed
// PaymentTransaction with a freshly generated idempotency key.  No fee is
// charged on the crypto rail.
func (a *CryptoAdapter) Process(ctx context.Context, req Request) (*Result, error) {
    hash, ok := req.Metadata[MetaTransactionHash]
    if !ok || hash == "" {
        return nil, ErrMissingTransactionHash
    }
    if !model.ValidTransactionHash(hash) {
        return nil, ErrInvalidTransactionFormat
    }
    if wallet, ok := req.Metadata[MetaWalletFrom]; ok && !model.ValidWalletAddress(wallet) {
        return nil, ErrInvalidWalletFormat
    }
    tx := &model.PaymentTransaction{
        ID:              uuid.NewString(),
        BookingID:       req.BookingID,
        UserID:          req.UserID,
        Type:            model.TxPayment,
        Method:          req.Method,
        AmountCents:     req.AmountCents,
        Currency:        req.Currency,
        FeeCents:        0,
        NetCents:        req.AmountCents,
        Status:          model.TxConfirmed,
        TransactionHash: &hash,
        IdempotencyKey:  uuid.NewString(),
        Metadata:        req.Metadata,
    }
    if err := a.store.InsertPaymentTransaction(ctx, tx); err != nil {
        return nil, err
    }
    return &Result{Success: true, TransactionID: tx.ID, TransactionHash: hash}, nil
}

// Refund always fails: reversing an on-chain payment requires a new
// transaction constructed outside this core.
func (a *CryptoAdapter) Refund(ctx context.Context, transactionID string, amountCents *int64) (*Result, error) {
    return nil, fmt.Errorf("crypto transaction %s: %w", transactionID, ErrRefundUnsupported)
}

// Status reads back the stored transaction status.
func (a *CryptoAdapter) Status(ctx context.Context, transactionID string) (model.TransactionStatus, error) {
    tx, err := a.store.GetPaymentTransaction(ctx, transactionID)
    if err != nil {
        return "", err
    }
    return tx.Status, nil
}
