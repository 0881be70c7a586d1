package payment

import "errors"

// ErrMissingTransactionHash is returned when a crypto payment request
// carries no on-chain transaction hash in its metadata.
var ErrMissingTransactionHash = errors.New("crypto payment requires a transaction hash")

// ErrInvalidTransactionFormat is returned when a supplied transaction
// hash is not 64 hex characters prefixed with 0x.
var ErrInvalidTransactionFormat = errors.New("transaction hash must match ^0x[a-fA-F0-9]{64}$")

// ErrInvalidWalletFormat is returned when a supplied wallet address is
// not 40 hex characters prefixed with 0x.
var ErrInvalidWalletFormat = errors.New("wallet address must match ^0x[a-fA-F0-9]{40}$")

// ErrRefundUnsupported is returned by both adapters' Refund: crypto
// reversals require a new on-chain transaction handled off-protocol, and
// fiat reversals must go through the external gateway.  The core only
// records the attempt pattern.
var ErrRefundUnsupported = errors.New("refund requires manual handling outside the payment core")

// ErrInvalidAmount is returned when a payment amount is zero or negative.
var ErrInvalidAmount = errors.New("payment amount must be positive")
