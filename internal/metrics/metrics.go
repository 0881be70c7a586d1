// Package metrics registers the Prometheus instruments exported by the
// escrow core.  Counters are registered once at import time via promauto
// and served on /metrics by the HTTP boundary.
package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    // PaymentsProcessed counts payment requests by method and outcome
    // (ok, rejected, compliance_blocked, error).
    PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "openbooking_payments_processed_total",
        Help: "Payment requests processed, by payment method and outcome.",
    }, []string{"method", "outcome"})

    // Transitions counts committed booking state transitions.
    Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "openbooking_booking_transitions_total",
        Help: "Committed booking state transitions, by target status.",
    }, []string{"to"})

    // EscrowOperations counts escrow ledger operations (lock, release,
    // refund) by result.
    EscrowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "openbooking_escrow_operations_total",
        Help: "Escrow lock/release/refund operations, by operation and result.",
    }, []string{"op", "result"})

    // ComplianceFlagged counts payments blocked by the AML gate.
    ComplianceFlagged = promauto.NewCounter(prometheus.CounterOpts{
        Name: "openbooking_compliance_flagged_total",
        Help: "Payments flagged and blocked by the compliance gate.",
    })
)
