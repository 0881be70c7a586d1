// Package queue defines message payloads exchanged over the message broker.
package queue

// TransitionEvent is published whenever a booking state transition
// commits.  It mirrors the append-only transition log so downstream
// consumers can audit, notify or feed analytics without querying the
// primary database.
type TransitionEvent struct {
    BookingID  string            `json:"booking_id"`
    FromStatus string            `json:"from_status"`
    ToStatus   string            `json:"to_status"`
    ActorID    string            `json:"actor_id"`
    Metadata   map[string]string `json:"metadata,omitempty"`
    OccurredAt string            `json:"occurred_at"`
}

// EscrowSettledEvent is published when an escrow entry reaches a terminal
// state.  Outcome is "released" when funds went to the host and
// "refunded" when they were returned to the guest.
type EscrowSettledEvent struct {
    BookingID   string `json:"booking_id"`
    EntryID     string `json:"entry_id"`
    AmountCents int64  `json:"amount_cents"`
    Currency    string `json:"currency"`
    AssetType   string `json:"asset_type"`
    Outcome     string `json:"outcome"`
    ReleasedTo  string `json:"released_to"`
    Reason      string `json:"reason,omitempty"`
    OccurredAt  string `json:"occurred_at"`
}
