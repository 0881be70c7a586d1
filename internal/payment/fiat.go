package payment

import (
    "context"
    "fmt"

    "github.com/google/uuid"

    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/repository"
)

// gatewayRegions maps each fiat method to the region code used when
// generating gateway references.  Dispatching to the real regional
// gateway happens outside the core; the reference ties the stored
// transaction to the external system.
var gatewayRegions = map[model.PaymentMethod]string{
    model.MethodSBP:      "RU",
    model.MethodMir:      "RU",
    model.MethodYooKassa: "RU",
    model.MethodSEPA:     "EU",
    model.MethodAdyen:    "EU",
    model.MethodKlarna:   "EU",
    model.MethodBorica:   "BG",
    model.MethodEPay:     "BG",
}

// FiatAdapter handles gateway-settled methods (sbp, mir, yookassa, sepa,
// adyen, klarna, borica, epay).  Transactions start in processing and are
// confirmed later by gateway callbacks at the boundary.
type FiatAdapter struct {
    store  repository.Store
    feeBps int64 // gateway fee in basis points of the amount
}

// NewFiatAdapter returns a fiat adapter charging the given fee in basis
// points (200 = 2%).
func NewFiatAdapter(store repository.Store, feeBps int64) *FiatAdapter {
    return &FiatAdapter{store: store, feeBps: feeBps}
}

// Process records a processing PaymentTransaction with the gateway fee
// deducted: fee = amount * feeBps / 10000, net = amount - fee, so
// fee + net always equals the amount exactly.  The gateway reference is
// {REGION}_{idempotencyKey}.
func (a *FiatAdapter) Process(ctx context.Context, req Request) (*Result, error) {
    region, ok := gatewayRegions[req.Method]
    if !ok {
        return nil, fmt.Errorf("unsupported fiat method %q", req.Method)
    }
    key := uuid.NewString()
    ref := region + "_" + key
    fee := req.AmountCents * a.feeBps / 10000
    tx := &model.PaymentTransaction{
        ID:               uuid.NewString(),
        BookingID:        req.BookingID,
        UserID:           req.UserID,
        Type:             model.TxPayment,
        Method:           req.Method,
        AmountCents:      req.AmountCents,
        Currency:         req.Currency,
        FeeCents:         fee,
        NetCents:         req.AmountCents - fee,
        Status:           model.TxProcessing,
        GatewayReference: &ref,
        IdempotencyKey:   key,
        Metadata:         req.Metadata,
    }
    if err := a.store.InsertPaymentTransaction(ctx, tx); err != nil {
        return nil, err
    }
    return &Result{Success: true, TransactionID: tx.ID, GatewayReference: ref}, nil
}

// Refund always fails in-core: a real reversal must go through the
// external gateway.
func (a *FiatAdapter) Refund(ctx context.Context, transactionID string, amountCents *int64) (*Result, error) {
    return nil, fmt.Errorf("fiat transaction %s: %w", transactionID, ErrRefundUnsupported)
}

// Status reads back the stored transaction status.
func (a *FiatAdapter) Status(ctx context.Context, transactionID string) (model.TransactionStatus, error) {
    tx, err := a.store.GetPaymentTransaction(ctx, transactionID)
    if err != nil {
        return "", err
    }
    return tx.Status, nil
}
