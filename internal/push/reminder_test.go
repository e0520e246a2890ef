package push

import (
	"log/slog"
	"testing"
	"time"

	"github.com/hferris/lumen/internal/database"
	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/store"
)

type fakeSender struct {
	payloads []Payload
	errs     map[string]error // keyed by endpoint
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	if err := f.errs[sub.Endpoint]; err != nil {
		return err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func setupScheduler(t *testing.T) (*Scheduler, *fakeSender, *store.PushStore, *store.BookingStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	accounts := store.NewAccountStore(db)
	acct, err := accounts.Create("owner@studio.test", "Owner")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	pushStore := store.NewPushStore(db)
	bookingStore := store.NewBookingStore(db)
	settingsStore := store.NewSettingsStore(db)

	s := NewScheduler(nil, pushStore, bookingStore, settingsStore, slog.New(slog.DiscardHandler))
	sender := &fakeSender{errs: make(map[string]error)}
	s.sender = sender
	return s, sender, pushStore, bookingStore, acct.ID
}

func TestReminderSentOnceInsideWindow(t *testing.T) {
	s, sender, pushStore, bookingStore, accountID := setupScheduler(t)

	if _, err := pushStore.CreateSubscription(accountID, "https://push.test/a", "p256dh", "auth", "phone"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	// Default lead is 60 minutes; place the booking just inside the window.
	start := time.Now().UTC().Add(60*time.Minute + 30*time.Second)
	if _, err := bookingStore.Create(accountID, nil, "Portraits", "", start.Format("2006-01-02"), start, start.Add(time.Hour)); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	s.tick()
	if len(sender.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(sender.payloads))
	}
	if sender.payloads[0].Title != "Upcoming session" {
		t.Errorf("title = %q", sender.payloads[0].Title)
	}

	// Second tick in the same window must not re-announce.
	s.tick()
	if len(sender.payloads) != 1 {
		t.Errorf("payloads after second tick = %d, want 1", len(sender.payloads))
	}
}

func TestReminderOutsideWindowNotSent(t *testing.T) {
	s, sender, pushStore, bookingStore, accountID := setupScheduler(t)
	pushStore.CreateSubscription(accountID, "https://push.test/a", "p256dh", "auth", "phone")

	// Starts in 3 hours: well past the lead window.
	start := time.Now().UTC().Add(3 * time.Hour)
	bookingStore.Create(accountID, nil, "Portraits", "", start.Format("2006-01-02"), start, start.Add(time.Hour))

	s.tick()
	if len(sender.payloads) != 0 {
		t.Errorf("payloads = %d, want 0", len(sender.payloads))
	}
}

func TestBroadcastPrunesExpiredSubscriptions(t *testing.T) {
	s, sender, pushStore, _, accountID := setupScheduler(t)

	pushStore.CreateSubscription(accountID, "https://push.test/live", "p256dh", "auth", "phone")
	pushStore.CreateSubscription(accountID, "https://push.test/dead", "p256dh", "auth", "tablet")
	sender.errs["https://push.test/dead"] = ErrExpired

	s.Broadcast(accountID, Payload{Title: "Test"})

	if len(sender.payloads) != 1 {
		t.Errorf("payloads = %d, want 1 (live endpoint only)", len(sender.payloads))
	}
	subs, err := pushStore.ListByAccount(accountID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 || subs[0].Endpoint != "https://push.test/live" {
		t.Errorf("subs = %+v, want only the live endpoint", subs)
	}
}

func TestNotifySyncFailed(t *testing.T) {
	s, sender, pushStore, _, accountID := setupScheduler(t)
	pushStore.CreateSubscription(accountID, "https://push.test/a", "p256dh", "auth", "phone")

	s.NotifySyncFailed(accountID, errTest)

	if len(sender.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(sender.payloads))
	}
	if sender.payloads[0].Tag != model.NotifTypeSyncFailed {
		t.Errorf("tag = %q", sender.payloads[0].Tag)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "token expired" }
