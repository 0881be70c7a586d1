// Package repository implements the ledger store: durable persistence for
// bookings, escrow ledger entries, payment transactions and compliance
// logs.  Services depend on the Store interface; two implementations are
// provided, MySQLStore for production and MemoryStore for tests and local
// development.  This file defines sentinel errors shared by both so that
// higher layers can distinguish failure scenarios without inspecting
// driver-specific error values.
package repository

import "errors"

// ErrNotFound is returned when a referenced booking, escrow entry or
// transaction does not exist.  It is always surfaced to the caller and
// never silently defaulted.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness rule,
// such as replaying a payment with an idempotency key that was already
// recorded or locking a booking that already has a locked escrow entry.
var ErrDuplicate = errors.New("duplicate record")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as mutating an escrow entry that has already
// reached a terminal (released or refunded) status.
var ErrConflict = errors.New("conflict")
