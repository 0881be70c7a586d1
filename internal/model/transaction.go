package model

import "time"

// TransactionType classifies a money movement recorded in the
// payment_transactions audit table.
type TransactionType string

const (
    TxDeposit       TransactionType = "deposit"
    TxPayment       TransactionType = "payment"
    TxEscrowLock    TransactionType = "escrow_lock"
    TxEscrowRelease TransactionType = "escrow_release"
    TxFee           TransactionType = "fee"
    TxRefund        TransactionType = "refund"
)

// TransactionStatus tracks the settlement progress of a transaction as
// confirmations or gateway callbacks arrive.
type TransactionStatus string

const (
    TxPending    TransactionStatus = "pending"
    TxProcessing TransactionStatus = "processing"
    TxConfirmed  TransactionStatus = "confirmed"
    TxFailed     TransactionStatus = "failed"
    TxRefunded   TransactionStatus = "refunded"
)

// PaymentMethod names the concrete payment rail selected by the caller.
// The crypto set routes to the crypto adapter; every other method routes
// to a region-specific fiat gateway.
type PaymentMethod string

const (
    MethodETH  PaymentMethod = "eth"
    MethodDAI  PaymentMethod = "dai"
    MethodA7A5 PaymentMethod = "a7a5"

    MethodSBP      PaymentMethod = "sbp"
    MethodMir      PaymentMethod = "mir"
    MethodYooKassa PaymentMethod = "yookassa"
    MethodSEPA     PaymentMethod = "sepa"
    MethodAdyen    PaymentMethod = "adyen"
    MethodKlarna   PaymentMethod = "klarna"
    MethodBorica   PaymentMethod = "borica"
    MethodEPay     PaymentMethod = "epay"
)

// Crypto reports whether the method settles on-chain.
func (m PaymentMethod) Crypto() bool {
    switch m {
    case MethodETH, MethodDAI, MethodA7A5:
        return true
    }
    return false
}

// Asset maps a payment method to the escrow asset type it funds.
func (m PaymentMethod) Asset() AssetType {
    switch m {
    case MethodETH:
        return AssetETH
    case MethodDAI:
        return AssetDAI
    case MethodA7A5:
        return AssetA7A5
    }
    return AssetFiat
}

// PaymentTransaction is an audit record of money movement, independent of
// the escrow ledger.  BookingID is nullable because some transactions are
// not booking-scoped.  NetCents always equals AmountCents minus FeeCents.
// IdempotencyKey is unique per logical payment attempt so replays of the
// same webhook cannot create duplicate rows.
type PaymentTransaction struct {
    ID               string            // payment_transactions.id
    BookingID        *string           // payment_transactions.booking_id (nullable)
    UserID           string            // payment_transactions.user_id
    Type             TransactionType   // payment_transactions.tx_type
    Method           PaymentMethod     // payment_transactions.payment_method
    AmountCents      int64             // payment_transactions.amount_cents
    Currency         string            // payment_transactions.currency
    FeeCents         int64             // payment_transactions.fee_cents
    NetCents         int64             // payment_transactions.net_cents
    Status           TransactionStatus // payment_transactions.status
    TransactionHash  *string           // payment_transactions.transaction_hash (crypto, nullable)
    GatewayReference *string           // payment_transactions.gateway_reference (fiat, nullable)
    IdempotencyKey   string            // payment_transactions.idempotency_key (unique)
    RetryCount       int               // payment_transactions.retry_count
    Metadata         map[string]string // payment_transactions.metadata (JSON)
    CreatedAt        time.Time         // payment_transactions.created_at
}
