package store

import (
	"testing"
	"time"
)

func TestSubscriptionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	acct := testAccount(t, db)
	s := NewSubscriptionStore(db)

	sub, err := s.Create(acct.ID, "studio")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.Status != "incomplete" {
		t.Errorf("status = %q, want incomplete", sub.Status)
	}
	if sub.StripeSubscriptionID != nil {
		t.Error("stripe id should be nil before checkout completes")
	}

	if err := s.UpdateStripeID(sub.ID, "sub_stripe_1"); err != nil {
		t.Fatalf("update stripe id: %v", err)
	}
	if err := s.UpdateStatus(sub.ID, "active"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpdatePeriod(sub.ID, periodEnd, true); err != nil {
		t.Fatalf("update period: %v", err)
	}

	got, err := s.GetByStripeID("sub_stripe_1")
	if err != nil {
		t.Fatalf("get by stripe id: %v", err)
	}
	if got == nil {
		t.Fatal("subscription not found by stripe id")
	}
	if got.Status != "active" {
		t.Errorf("status = %q, want active", got.Status)
	}
	if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(periodEnd) {
		t.Errorf("period end = %v, want %v", got.CurrentPeriodEnd, periodEnd)
	}
	if !got.CancelAtPeriodEnd {
		t.Error("cancel_at_period_end should be true")
	}

	byAccount, err := s.GetByAccountID(acct.ID)
	if err != nil {
		t.Fatalf("get by account: %v", err)
	}
	if byAccount == nil || byAccount.ID != sub.ID {
		t.Errorf("get by account = %v, want subscription %d", byAccount, sub.ID)
	}
}

func TestSubscriptionNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewSubscriptionStore(db)

	got, err := s.GetByStripeID("sub_missing")
	if err != nil {
		t.Fatalf("get by stripe id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown stripe subscription")
	}
}
