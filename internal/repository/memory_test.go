package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openbooking/escrow-core/internal/model"
)

func testBooking(id string) *model.Booking {
	return &model.Booking{
		ID:              id,
		PropertyID:      "prop-1",
		GuestID:         "guest-1",
		HostID:          "host-1",
		CheckInDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOutDate:    time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		NumGuests:       2,
		TotalPriceCents: 50_000,
		Currency:        "USD",
		Status:          model.StatusPending,
	}
}

func lockedEntry(id, bookingID string) *model.EscrowEntry {
	return &model.EscrowEntry{
		ID:                    id,
		BookingID:             bookingID,
		AmountCents:           50_000,
		Currency:              "USD",
		AssetType:             model.AssetETH,
		Status:                model.EscrowLocked,
		RequiredConfirmations: 12,
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.InTx(ctx, func(st Store) error {
		if err := st.InsertBooking(ctx, testBooking("b-1")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected the transaction error to propagate")
	}
	if _, err := s.GetBooking(ctx, "b-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("booking visible after rollback: err = %v, want ErrNotFound", err)
	}
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.InTx(ctx, func(st Store) error {
		if err := st.InsertBooking(ctx, testBooking("b-1")); err != nil {
			return err
		}
		return st.InsertEscrowEntry(ctx, lockedEntry("e-1", "b-1"))
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if _, err := s.GetBooking(ctx, "b-1"); err != nil {
		t.Errorf("GetBooking after commit: %v", err)
	}
	if _, err := s.FindLockedEscrow(ctx, "b-1"); err != nil {
		t.Errorf("FindLockedEscrow after commit: %v", err)
	}
}

func TestInsertEscrowEntry_OneLockedPerBooking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.InsertEscrowEntry(ctx, lockedEntry("e-1", "b-1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.InsertEscrowEntry(ctx, lockedEntry("e-2", "b-1")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second locked entry err = %v, want ErrDuplicate", err)
	}

	// A released entry frees the slot for a new lock.
	if err := s.UpdateEscrowStatus(ctx, "e-1", model.EscrowReleased, EscrowPatch{}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := s.InsertEscrowEntry(ctx, lockedEntry("e-3", "b-1")); err != nil {
		t.Errorf("lock after release: %v", err)
	}
}

func TestUpdateEscrowStatus_TerminalGuard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.InsertEscrowEntry(ctx, lockedEntry("e-1", "b-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpdateEscrowStatus(ctx, "e-1", model.EscrowRefunded, EscrowPatch{}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := s.UpdateEscrowStatus(ctx, "e-1", model.EscrowReleased, EscrowPatch{}); !errors.Is(err, ErrConflict) {
		t.Errorf("update of terminal entry err = %v, want ErrConflict", err)
	}
}

func TestUpdateEscrowConfirmations_KeepsMaximum(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.InsertEscrowEntry(ctx, lockedEntry("e-1", "b-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	steps := []struct {
		report int
		want   int
	}{
		{3, 3},
		{7, 7},
		{7, 7}, // replay
		{2, 7}, // regression keeps the maximum
		{12, 12},
	}
	for _, step := range steps {
		if err := s.UpdateEscrowConfirmations(ctx, "e-1", step.report, nil); err != nil {
			t.Fatalf("UpdateEscrowConfirmations(%d): %v", step.report, err)
		}
		entries, _ := s.ListEscrowByBooking(ctx, "b-1")
		if entries[0].Confirmations != step.want {
			t.Errorf("confirmations after report %d = %d, want %d", step.report, entries[0].Confirmations, step.want)
		}
	}
}

func TestUpdateEscrowConfirmations_TerminalNoOp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.InsertEscrowEntry(ctx, lockedEntry("e-1", "b-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpdateEscrowConfirmations(ctx, "e-1", 12, nil); err != nil {
		t.Fatalf("confirmations: %v", err)
	}
	if err := s.UpdateEscrowStatus(ctx, "e-1", model.EscrowReleased, EscrowPatch{}); err != nil {
		t.Fatalf("release: %v", err)
	}

	// A late watcher callback for a terminal entry changes nothing.
	block := uint64(19_000_000)
	if err := s.UpdateEscrowConfirmations(ctx, "e-1", 40, &block); err != nil {
		t.Fatalf("late callback: %v", err)
	}
	entries, _ := s.ListEscrowByBooking(ctx, "b-1")
	if entries[0].Confirmations != 12 {
		t.Errorf("confirmations on terminal entry = %d, want 12", entries[0].Confirmations)
	}
	if entries[0].BlockNumber != nil {
		t.Errorf("block_number on terminal entry = %v, want nil", *entries[0].BlockNumber)
	}
}

func TestInsertPaymentTransaction_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tx := &model.PaymentTransaction{
		ID:             "tx-1",
		UserID:         "user-1",
		Type:           model.TxPayment,
		Method:         model.MethodSEPA,
		AmountCents:    10_000,
		NetCents:       9_800,
		FeeCents:       200,
		Currency:       "EUR",
		Status:         model.TxProcessing,
		IdempotencyKey: "key-1",
	}
	if err := s.InsertPaymentTransaction(ctx, tx); err != nil {
		t.Fatalf("insert: %v", err)
	}

	replay := *tx
	replay.ID = "tx-2"
	if err := s.InsertPaymentTransaction(ctx, &replay); !errors.Is(err, ErrDuplicate) {
		t.Errorf("replayed idempotency key err = %v, want ErrDuplicate", err)
	}
}

func TestTransitions_AppendOnlyPerBooking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, rec := range []*model.TransitionLog{
		{ID: "t-1", BookingID: "b-1", FromStatus: model.StatusPending, ToStatus: model.StatusPaymentLocked, ActorID: "system"},
		{ID: "t-2", BookingID: "b-2", FromStatus: model.StatusPending, ToStatus: model.StatusCancelled, ActorID: "guest-1"},
		{ID: "t-3", BookingID: "b-1", FromStatus: model.StatusPaymentLocked, ToStatus: model.StatusCheckedIn, ActorID: "guest-1"},
	} {
		if err := s.InsertTransition(ctx, rec); err != nil {
			t.Fatalf("InsertTransition(%s): %v", rec.ID, err)
		}
	}

	got, err := s.ListTransitions(ctx, "b-1")
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("transitions for b-1 = %d, want 2", len(got))
	}
	if got[0].ID != "t-1" || got[1].ID != "t-3" {
		t.Errorf("transition order = %s, %s; want t-1, t-3", got[0].ID, got[1].ID)
	}
}
