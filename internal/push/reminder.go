package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/store"
)

// sender abstracts Service.Send for tests.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Scheduler delivers session reminders ahead of each booking's start time
// and one-off notifications triggered elsewhere in the app.
type Scheduler struct {
	mu       sync.RWMutex
	sender   sender
	push     *store.PushStore
	bookings *store.BookingStore
	settings *store.SettingsStore
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}

	// sent tracks booking ids already reminded, so a booking is not
	// re-announced every tick while it sits inside the lead window.
	sent map[int64]time.Time
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, bookingStore *store.BookingStore, settingsStore *store.SettingsStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   svc,
		push:     pushStore,
		bookings: bookingStore,
		settings: settingsStore,
		interval: 60 * time.Second,
		logger:   logger,
		now:      time.Now,
		sent:     make(map[int64]time.Time),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	accountIDs, err := s.push.ListAccountIDs()
	if err != nil {
		s.logger.Error("push scheduler: list accounts", "error", err)
		return
	}

	for _, id := range accountIDs {
		s.checkReminders(id)
	}
	s.pruneSent()
}

func (s *Scheduler) checkReminders(accountID int64) {
	leadStr, err := s.settings.Get(accountID, store.SettingReminderLead, "60")
	if err != nil {
		s.logger.Error("push scheduler: load reminder lead", "account_id", accountID, "error", err)
		return
	}
	lead, err := strconv.Atoi(leadStr)
	if err != nil || lead <= 0 {
		lead = 60
	}

	// A booking is due for a reminder when its start enters the window
	// [now+lead, now+lead+interval). One tick later it has left the window,
	// so together with the sent map each booking is announced once.
	now := s.now().UTC()
	from := now.Add(time.Duration(lead) * time.Minute)
	to := from.Add(s.interval)

	due, err := s.bookings.ListStartingBetween(accountID, from, to)
	if err != nil {
		s.logger.Error("push scheduler: list due bookings", "account_id", accountID, "error", err)
		return
	}

	for _, b := range due {
		s.mu.Lock()
		_, already := s.sent[b.ID]
		if !already {
			s.sent[b.ID] = b.StartTime
		}
		s.mu.Unlock()
		if already {
			continue
		}

		s.Broadcast(accountID, Payload{
			Title: "Upcoming session",
			Body:  fmt.Sprintf("%s starts at %s", b.Summary, b.StartTime.Format("3:04 PM")),
			URL:   "/bookings/" + b.Reference,
			Tag:   fmt.Sprintf("reminder-%d", b.ID),
		})
	}
}

// Broadcast sends a payload to every subscription of the account, pruning
// subscriptions the push service reports expired.
func (s *Scheduler) Broadcast(accountID int64, payload Payload) {
	subs, err := s.push.ListByAccount(accountID)
	if err != nil {
		s.logger.Error("push scheduler: list subscriptions", "account_id", accountID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := s.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if derr := s.push.DeleteByEndpoint(sub.Endpoint); derr != nil {
					s.logger.Error("push scheduler: prune expired subscription", "error", derr)
				}
			} else {
				s.logger.Error("push scheduler: send", "account_id", accountID, "error", err)
			}
		}
	}
}

// NotifyBookingCreated announces a new booking to the studio owner's devices.
func (s *Scheduler) NotifyBookingCreated(accountID int64, b *model.Booking) {
	s.Broadcast(accountID, Payload{
		Title: "New booking",
		Body:  fmt.Sprintf("%s on %s", b.Summary, b.Date),
		URL:   "/bookings/" + b.Reference,
		Tag:   model.NotifTypeBookingCreated,
	})
}

// NotifySyncFailed announces a failed calendar sync.
func (s *Scheduler) NotifySyncFailed(accountID int64, syncErr error) {
	s.Broadcast(accountID, Payload{
		Title: "Calendar sync failed",
		Body:  syncErr.Error(),
		URL:   "/settings",
		Tag:   model.NotifTypeSyncFailed,
	})
}

// pruneSent drops entries for bookings that have already started.
func (s *Scheduler) pruneSent() {
	cutoff := s.now().UTC()
	s.mu.Lock()
	for id, start := range s.sent {
		if start.Before(cutoff) {
			delete(s.sent, id)
		}
	}
	s.mu.Unlock()
}
