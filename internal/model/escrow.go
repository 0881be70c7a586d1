package model

import "time"

// AssetType identifies the rail a payment was made on.  Crypto assets
// settle on-chain and need confirmation tracking; fiat settles through an
// external gateway and is trusted after a single confirmation.
type AssetType string

const (
    AssetETH  AssetType = "eth"
    AssetDAI  AssetType = "dai"
    AssetA7A5 AssetType = "a7a5"
    AssetFiat AssetType = "fiat"
)

// Valid reports whether the asset type is one the ledger tracks.
func (a AssetType) Valid() bool {
    switch a {
    case AssetETH, AssetDAI, AssetA7A5, AssetFiat:
        return true
    }
    return false
}

// Crypto reports whether the asset settles on-chain.
func (a AssetType) Crypto() bool { return a != AssetFiat }

// RequiredConfirmations returns the number of on-chain confirmations
// needed before a locked payment of this asset type is trusted: 12 for
// crypto assets, 1 for fiat.
func (a AssetType) RequiredConfirmations() int {
    if a.Crypto() {
        return 12
    }
    return 1
}

// EscrowStatus enumerates the states of one escrow ledger entry.  An entry
// in released or refunded is terminal and immutable.
type EscrowStatus string

const (
    EscrowPending  EscrowStatus = "pending"
    EscrowLocked   EscrowStatus = "locked"
    EscrowReleased EscrowStatus = "released"
    EscrowRefunded EscrowStatus = "refunded"
    EscrowFrozen   EscrowStatus = "frozen"
)

// Terminal reports whether the status permits no further changes.
func (s EscrowStatus) Terminal() bool {
    return s == EscrowReleased || s == EscrowRefunded
}

// EscrowEntry is one locked-funds record tied to exactly one booking.  At
// most one entry per booking may be in the locked state at a time; a
// release or refund requires a prior locked entry.
//
// Fields:
//  ID                    – primary key (UUID).
//  BookingID             – owning booking.
//  AmountCents           – locked amount in minor units.
//  Currency              – ISO currency or asset code.
//  AssetType             – rail the funds arrived on.
//  TransactionHash       – on-chain hash; required for crypto assets.
//  Status                – escrow lifecycle state.
//  Confirmations         – on-chain confirmations observed so far (≥ 0).
//  RequiredConfirmations – confirmations needed before trust (12 crypto, 1 fiat).
//  LockedAt              – when the funds were locked.
//  ReleasedAt            – when the entry reached a terminal state.
//  ReleasedTo            – recipient of released funds (host or guest).
//  ReleaseReason         – free-form reason recorded at release/refund.
type EscrowEntry struct {
    ID                    string       // escrow_ledger.id
    BookingID             string       // escrow_ledger.booking_id
    AmountCents           int64        // escrow_ledger.amount_cents
    Currency              string       // escrow_ledger.currency
    AssetType             AssetType    // escrow_ledger.asset_type
    TransactionHash       *string      // escrow_ledger.transaction_hash (nullable)
    Status                EscrowStatus // escrow_ledger.status
    Confirmations         int          // escrow_ledger.confirmations
    RequiredConfirmations int          // escrow_ledger.required_confirmations
    BlockNumber           *uint64      // escrow_ledger.block_number (nullable)
    WalletFrom            *string      // escrow_ledger.wallet_from (nullable)
    LockedAt              time.Time    // escrow_ledger.locked_at
    ReleasedAt            *time.Time   // escrow_ledger.released_at (nullable)
    ReleasedTo            *string      // escrow_ledger.released_to (nullable)
    ReleaseReason         *string      // escrow_ledger.release_reason (nullable)
}
