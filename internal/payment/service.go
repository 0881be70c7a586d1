package payment

import (
    "context"
    "errors"

    "github.com/openbooking/escrow-core/internal/compliance"
    "github.com/openbooking/escrow-core/internal/metrics"
    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/repository"
)

// Service is the facade composing the compliance gate and the two
// adapters; it is the single entry point the webhook/API boundary uses
// for payments.
type Service struct {
    gate   *compliance.Gate
    crypto Adapter
    fiat   Adapter
    store  repository.Store
}

// NewService wires the facade.  feeBps is the fiat gateway fee in basis
// points.
func NewService(store repository.Store, gate *compliance.Gate, feeBps int64) *Service {
    if store == nil || gate == nil {
        panic("nil dependency passed to payment.NewService")
    }
    return &Service{
        gate:   gate,
        crypto: NewCryptoAdapter(store),
        fiat:   NewFiatAdapter(store, feeBps),
        store:  store,
    }
}

// adapterFor selects the rail: the crypto set is {eth, dai, a7a5},
// everything else routes to the fiat adapter.
func (s *Service) adapterFor(method model.PaymentMethod) Adapter {
    if method.Crypto() {
        return s.crypto
    }
    return s.fiat
}

// Process runs the compliance gate and delegates to the selected
// adapter.  A gate rejection short-circuits: no adapter is invoked and no
// transaction is recorded; the flagged compliance log is the audit
// trail.  Business rejections come back as a failed Result; the error
// return is reserved for store faults.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
    if req.AmountCents <= 0 {
        metrics.PaymentsProcessed.WithLabelValues(string(req.Method), "rejected").Inc()
        return &Result{Success: false, Error: ErrInvalidAmount.Error()}, nil
    }
    gate, err := s.gate.Validate(ctx, req.UserID, req.AmountCents)
    if err != nil {
        return nil, err
    }
    if !gate.Passed {
        metrics.PaymentsProcessed.WithLabelValues(string(req.Method), "compliance_blocked").Inc()
        return &Result{Success: false, Error: gate.Reason, RiskScore: gate.RiskScore}, nil
    }
    res, err := s.adapterFor(req.Method).Process(ctx, req)
    if err != nil {
        if businessReject(err) {
            metrics.PaymentsProcessed.WithLabelValues(string(req.Method), "rejected").Inc()
            return &Result{Success: false, Error: err.Error()}, nil
        }
        metrics.PaymentsProcessed.WithLabelValues(string(req.Method), "error").Inc()
        return nil, err
    }
    metrics.PaymentsProcessed.WithLabelValues(string(req.Method), "ok").Inc()
    return res, nil
}

// Refund looks up the stored transaction to select the adapter that
// produced it, then delegates.  The transaction must exist;
// repository.ErrNotFound propagates to the caller.
func (s *Service) Refund(ctx context.Context, transactionID string, amountCents *int64) (*Result, error) {
    tx, err := s.store.GetPaymentTransaction(ctx, transactionID)
    if err != nil {
        return nil, err
    }
    res, err := s.adapterFor(tx.Method).Refund(ctx, transactionID, amountCents)
    if err != nil {
        if businessReject(err) {
            return &Result{Success: false, TransactionID: transactionID, Error: err.Error()}, nil
        }
        return nil, err
    }
    return res, nil
}

// Status reads back the stored status of a transaction.
func (s *Service) Status(ctx context.Context, transactionID string) (model.TransactionStatus, error) {
    tx, err := s.store.GetPaymentTransaction(ctx, transactionID)
    if err != nil {
        return "", err
    }
    return tx.Status, nil
}

// businessReject reports whether err is an expected business rejection
// that should surface as a failed Result rather than propagate.  A
// duplicate idempotency key counts: the replayed attempt is rejected
// cleanly without creating a second row.
func businessReject(err error) bool {
    return errors.Is(err, ErrMissingTransactionHash) ||
        errors.Is(err, ErrInvalidTransactionFormat) ||
        errors.Is(err, ErrInvalidWalletFormat) ||
        errors.Is(err, ErrRefundUnsupported) ||
        errors.Is(err, ErrInvalidAmount) ||
        errors.Is(err, repository.ErrDuplicate)
}
