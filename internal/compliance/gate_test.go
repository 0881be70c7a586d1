package compliance

import (
	"context"
	"testing"

	"github.com/openbooking/escrow-core/internal/model"
	"github.com/openbooking/escrow-core/internal/repository"
)

func newTestGate(t *testing.T) (*Gate, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewGate(store, 1_000_000), store
}

func TestValidate_WithinLimit(t *testing.T) {
	gate, store := newTestGate(t)

	tests := []int64{1, 500_000, 999_999, 1_000_000}
	for _, amount := range tests {
		res, err := gate.Validate(context.Background(), "user-1", amount)
		if err != nil {
			t.Fatalf("Validate(%d): %v", amount, err)
		}
		if !res.Passed {
			t.Errorf("amount %d blocked, want pass", amount)
		}
	}

	// Passing traffic leaves no compliance log entries.
	logs, _ := store.ListComplianceLogs(context.Background(), "user-1")
	if len(logs) != 0 {
		t.Errorf("compliance logs = %d, want 0", len(logs))
	}
}

func TestValidate_AboveLimit(t *testing.T) {
	gate, store := newTestGate(t)

	res, err := gate.Validate(context.Background(), "user-1", 1_500_000)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Passed {
		t.Fatal("amount above limit passed, want block")
	}
	if res.Reason != ReasonExceedsLimit {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonExceedsLimit)
	}
	if res.RiskScore != 1.0 {
		t.Errorf("risk score = %v, want 1.0 (clamped)", res.RiskScore)
	}

	logs, _ := store.ListComplianceLogs(context.Background(), "user-1")
	if len(logs) != 1 {
		t.Fatalf("compliance logs = %d, want 1", len(logs))
	}
	entry := logs[0]
	if entry.Status != model.ComplianceFlagged {
		t.Errorf("log status = %s, want flagged", entry.Status)
	}
	if entry.Action != "process_payment" {
		t.Errorf("log action = %q, want process_payment", entry.Action)
	}
	if entry.Metadata["amount_cents"] != "1500000" {
		t.Errorf("log amount = %q, want 1500000", entry.Metadata["amount_cents"])
	}
	if entry.Metadata["limit_cents"] != "1000000" {
		t.Errorf("log limit = %q, want 1000000", entry.Metadata["limit_cents"])
	}
}

func TestValidate_EachBlockIsLogged(t *testing.T) {
	gate, store := newTestGate(t)

	for i := 0; i < 3; i++ {
		if _, err := gate.Validate(context.Background(), "user-1", 2_000_000); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}
	logs, _ := store.ListComplianceLogs(context.Background(), "user-1")
	if len(logs) != 3 {
		t.Errorf("compliance logs = %d, want 3 (one per blocked attempt)", len(logs))
	}
}
