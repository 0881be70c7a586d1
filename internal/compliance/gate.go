// Package compliance implements the AML gate that screens payment
// requests before they reach an adapter.  The current rule set is a
// single per-transaction amount threshold; despite the DAILY_LIMIT name
// inherited from the product side, no rolling daily aggregation per user
// is performed.
package compliance

import (
    "context"
    "strconv"

    "github.com/google/uuid"

    "github.com/openbooking/escrow-core/internal/metrics"
    "github.com/openbooking/escrow-core/internal/model"
    "github.com/openbooking/escrow-core/internal/repository"
)

// ReasonExceedsLimit is the reason string returned when a payment is
// blocked by the amount threshold.
const ReasonExceedsLimit = "exceeds daily limit, manual review required"

// Result is the outcome of a gate evaluation.  Reason and RiskScore are
// meaningful only when Passed is false.
type Result struct {
    Passed    bool
    Reason    string
    RiskScore float64
}

// Gate evaluates payments against the AML threshold and writes flagged
// decisions to the compliance audit log.  Passing traffic is not logged
// by the gate itself; the escrow service's transition log audits every
// state change regardless.
type Gate struct {
    store      repository.Store
    limitCents int64
}

// NewGate constructs a compliance gate with the given per-transaction
// threshold in minor units.
func NewGate(store repository.Store, limitCents int64) *Gate {
    if store == nil {
        panic("nil store passed to compliance.NewGate")
    }
    return &Gate{store: store, limitCents: limitCents}
}

// Validate screens one payment attempt.  Amounts above the threshold are
// blocked: a flagged ComplianceLog with risk_score min(amount/limit, 1)
// is recorded and the returned Result carries the rejection reason.  The
// error return is reserved for store failures.
func (g *Gate) Validate(ctx context.Context, userID string, amountCents int64) (Result, error) {
    if amountCents <= g.limitCents {
        return Result{Passed: true}, nil
    }
    risk := float64(amountCents) / float64(g.limitCents)
    if risk > 1.0 {
        risk = 1.0
    }
    entry := &model.ComplianceLog{
        ID:         uuid.NewString(),
        UserID:     userID,
        EntityType: "payment",
        EntityID:   "",
        Action:     "process_payment",
        Status:     model.ComplianceFlagged,
        RiskScore:  risk,
        Metadata: map[string]string{
            "amount_cents": strconv.FormatInt(amountCents, 10),
            "limit_cents":  strconv.FormatInt(g.limitCents, 10),
        },
    }
    if err := g.store.InsertComplianceLog(ctx, entry); err != nil {
        return Result{}, err
    }
    metrics.ComplianceFlagged.Inc()
    return Result{Passed: false, Reason: ReasonExceedsLimit, RiskScore: risk}, nil
}
