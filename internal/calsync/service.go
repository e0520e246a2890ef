// Package calsync reconciles a studio's bookings against the owner's Google
// Calendar. Bookings are the source of truth: the engine creates events for
// unlinked bookings, updates drifted ones, and deletes remote events no
// booking claims.
package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/hferris/lumen/internal/gcal"
	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/store"
)

// BookingSource loads the full booking set for an account.
type BookingSource interface {
	ListByAccount(accountID int64) ([]model.Booking, error)
}

// BookingLinker persists the calendar link after a successful push. Kept as
// its own seam so the store write stays out of the diff algorithm.
type BookingLinker interface {
	LinkEvent(bookingID int64, eventID, syncedDate string) error
}

// AccountSource resolves the account and its stored OAuth token.
type AccountSource interface {
	GetByID(id int64) (*model.Account, error)
}

// SettingsSource provides per-account settings (the event timezone).
type SettingsSource interface {
	Get(accountID int64, key, def string) (string, error)
}

// CalendarFactory builds a calendar client for a token. Tests substitute a
// fake API here.
type CalendarFactory func(ctx context.Context, tok *oauth2.Token) (gcal.API, error)

// Result partitions everything a sync run touched by the action taken.
// Deleted holds the remote event ids of removed orphans, which by
// definition have no booking to report.
type Result struct {
	Added   []model.Booking `json:"added"`
	Updated []model.Booking `json:"updated"`
	Deleted []string        `json:"deleted"`
}

// Service runs the reconciliation. One run is strictly sequential: the
// booking pass completes before orphan cleanup starts, because deletion
// decisions depend on which event ids the booking pass claimed.
type Service struct {
	accounts    AccountSource
	bookings    BookingSource
	links       BookingLinker
	settings    SettingsSource
	newCalendar CalendarFactory
	baseURL     string
	logger      *slog.Logger

	sleep func(time.Duration)
	now   func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates the sync service. baseURL is used for the booking link
// embedded in event descriptions and may be empty.
func NewService(accounts AccountSource, bookings BookingSource, links BookingLinker, settings SettingsSource, newCalendar CalendarFactory, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		accounts:    accounts,
		bookings:    bookings,
		links:       links,
		settings:    settings,
		newCalendar: newCalendar,
		baseURL:     baseURL,
		logger:      logger,
		sleep:       time.Sleep,
		now:         time.Now,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing runs for one account, so a
// double-triggered sync cannot race itself into duplicate creates.
func (s *Service) lockFor(accountID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	return l
}

// SyncAll reconciles every booking of the account against the remote
// calendar and returns the run summary. Create/update failures abort the
// run; orphan-cleanup failures are logged and skipped, because a stale
// remote event is cosmetic while an un-synced booking is not.
func (s *Service) SyncAll(ctx context.Context, accountID int64) (*Result, error) {
	lock := s.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", accountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("account %d not found", accountID)
	}

	var stored string
	if acct.GoogleToken != nil {
		stored = *acct.GoogleToken
	}
	tok, err := gcal.DecodeToken(stored)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", accountID, err)
	}

	cal, err := s.newCalendar(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("build calendar client: %w", err)
	}

	bookings, err := s.bookings.ListByAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	remote, err := cal.ListUpcoming(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote events: %w", err)
	}

	tz, err := s.settings.Get(accountID, store.SettingTimezone, "UTC")
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	byID := make(map[string]*calendar.Event, len(remote))
	for _, ev := range remote {
		if ev.Id != "" {
			byID[ev.Id] = ev
		}
	}

	res := &Result{Added: []model.Booking{}, Updated: []model.Booking{}, Deleted: []string{}}
	now := s.now()

	for i := range bookings {
		b := &bookings[i]

		// Canceled and past bookings keep no claim on a remote event.
		// The remote window is future-only, so a past booking's event is
		// never fetched; a canceled booking's event falls through to
		// orphan cleanup below.
		if b.Status == model.BookingCanceled || b.EndTime.Before(now) {
			continue
		}

		ev := buildEvent(b, tz, s.baseURL)

		if !b.Linked() || byID[*b.EventID] == nil {
			// Never synced, or the link is stale because the event was
			// deleted upstream. Either way the fix is a fresh create.
			created, err := cal.Insert(ctx, ev)
			if err != nil {
				return nil, fmt.Errorf("create event for booking %d: %w", b.ID, err)
			}
			if err := s.links.LinkEvent(b.ID, created.Id, b.Date); err != nil {
				return nil, fmt.Errorf("link booking %d: %w", b.ID, err)
			}
			res.Added = append(res.Added, *b)
			continue
		}

		// Claim the event so it cannot be treated as an orphan.
		delete(byID, *b.EventID)

		if b.LastSyncedDate != nil && *b.LastSyncedDate == b.Date {
			continue
		}

		_, err := cal.Update(ctx, *b.EventID, ev)
		switch {
		case gcal.IsNotFound(err):
			// The event vanished between list and update; self-heal.
			created, cerr := cal.Insert(ctx, ev)
			if cerr != nil {
				return nil, fmt.Errorf("recreate event for booking %d: %w", b.ID, cerr)
			}
			if lerr := s.links.LinkEvent(b.ID, created.Id, b.Date); lerr != nil {
				return nil, fmt.Errorf("link booking %d: %w", b.ID, lerr)
			}
			res.Added = append(res.Added, *b)
		case err != nil:
			return nil, fmt.Errorf("update event for booking %d: %w", b.ID, err)
		default:
			if err := s.links.LinkEvent(b.ID, *b.EventID, b.Date); err != nil {
				return nil, fmt.Errorf("link booking %d: %w", b.ID, err)
			}
			res.Updated = append(res.Updated, *b)
		}
	}

	// Every unclaimed remote event is an orphan.
	for id := range byID {
		err := s.deleteWithBackoff(ctx, cal, id)
		switch {
		case err == nil, gcal.IsNotFound(err):
			// Already gone counts as deleted.
			res.Deleted = append(res.Deleted, id)
		default:
			s.logger.Warn("orphan event delete failed",
				"account_id", accountID, "event_id", id, "error", err)
		}
	}

	s.logger.Info("calendar sync complete",
		"account_id", accountID,
		"added", len(res.Added),
		"updated", len(res.Updated),
		"deleted", len(res.Deleted))

	return res, nil
}
