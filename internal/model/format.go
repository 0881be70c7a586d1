package model

import "regexp"

// Wire formats shared by the payment and escrow packages.
var (
    txHashPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
    walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// ValidTransactionHash reports whether s is a well-formed on-chain
// transaction hash: 0x followed by 64 hex characters.
func ValidTransactionHash(s string) bool { return txHashPattern.MatchString(s) }

// ValidWalletAddress reports whether s is a well-formed wallet address:
// 0x followed by 40 hex characters.
func ValidWalletAddress(s string) bool { return walletPattern.MatchString(s) }
