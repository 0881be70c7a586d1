// Package payment routes payment requests to the crypto-verification or
// fiat-gateway rail and exposes the single facade the webhook boundary
// calls.  Each adapter normalizes its rail's behavior into a Result and
// records a PaymentTransaction audit row for every accepted request.
package payment

import (
    "context"

    "github.com/openbooking/escrow-core/internal/model"
)

// Request describes one inbound payment attempt.  BookingID is optional:
// some transactions are not booking-scoped.  Metadata carries rail
// specifics such as the on-chain transaction hash.
type Request struct {
    UserID      string            `json:"user_id"`
    BookingID   *string           `json:"booking_id,omitempty"`
    AmountCents int64             `json:"amount_cents"`
    Currency    string            `json:"currency"`
    Method      model.PaymentMethod `json:"method"`
    Metadata    map[string]string `json:"metadata,omitempty"`
}

// Result is the normalized outcome of a payment operation.  Business
// rejections set Success=false with a reason in Error; only store or
// transport faults surface as Go errors from the facade.
type Result struct {
    Success          bool    `json:"success"`
    TransactionID    string  `json:"transaction_id,omitempty"`
    TransactionHash  string  `json:"transaction_hash,omitempty"`
    GatewayReference string  `json:"gateway_reference,omitempty"`
    Error            string  `json:"error,omitempty"`
    RiskScore        float64 `json:"risk_score,omitempty"`
}

// Adapter is one payment rail.  Adding a new rail means adding an
// implementation, not modifying the facade's dispatch.
type Adapter interface {
    // Process validates and records a payment attempt.
    Process(ctx context.Context, req Request) (*Result, error)
    // Refund reverses a previously processed transaction, in full when
    // amountCents is nil.
    Refund(ctx context.Context, transactionID string, amountCents *int64) (*Result, error)
    // Status reads back the stored status of a transaction; no adapter
    // polls its rail independently.
    Status(ctx context.Context, transactionID string) (model.TransactionStatus, error)
}
