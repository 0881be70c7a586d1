package model

import "time"

// ComplianceStatus is the outcome recorded on a compliance log entry.
type ComplianceStatus string

const (
    CompliancePending  ComplianceStatus = "pending"
    ComplianceApproved ComplianceStatus = "approved"
    ComplianceRejected ComplianceStatus = "rejected"
    ComplianceFlagged  ComplianceStatus = "flagged"
)

// ComplianceLog is one flagged or approved compliance decision.  Entries
// are written whenever the AML gate blocks a payment and are never mutated
// after creation.
//
// Fields:
//  ID         – primary key (UUID).
//  UserID     – user the decision applies to.
//  EntityType – kind of entity evaluated (e.g. "payment").
//  EntityID   – identifier of the evaluated entity, if any.
//  Action     – action that triggered the evaluation.
//  Status     – decision outcome.
//  RiskScore  – normalized risk in [0.0, 1.0].
//  Metadata   – free-form context (amounts, thresholds).
type ComplianceLog struct {
    ID         string            // compliance_logs.id
    UserID     string            // compliance_logs.user_id
    EntityType string            // compliance_logs.entity_type
    EntityID   string            // compliance_logs.entity_id
    Action     string            // compliance_logs.action
    Status     ComplianceStatus  // compliance_logs.status
    RiskScore  float64           // compliance_logs.risk_score
    Metadata   map[string]string // compliance_logs.metadata (JSON)
    CreatedAt  time.Time         // compliance_logs.created_at
}
