package calsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ConnectedLister enumerates accounts with a stored calendar token.
type ConnectedLister interface {
	ListCalendarConnected() ([]int64, error)
}

// Scheduler periodically syncs every calendar-connected account.
type Scheduler struct {
	mu        sync.RWMutex
	service   *Service
	accounts  ConnectedLister
	interval  time.Duration
	onFailure func(accountID int64, err error)
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a sync scheduler. onFailure may be nil; when set it
// is invoked for each account whose scheduled run fails.
func NewScheduler(svc *Service, accounts ConnectedLister, interval time.Duration, onFailure func(accountID int64, err error), logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		service:   svc,
		accounts:  accounts,
		interval:  interval,
		onFailure: onFailure,
		logger:    logger,
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
				s.tick(ctx)
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

func (s *Scheduler) tick(ctx context.Context) {
	ids, err := s.accounts.ListCalendarConnected()
	if err != nil {
		s.logger.Error("sync scheduler: list accounts", "error", err)
		return
	}

	for _, id := range ids {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		_, err := s.service.SyncAll(runCtx, id)
		cancel()
		if err != nil {
			s.logger.Error("scheduled sync failed", "account_id", id, "error", err)
			if s.onFailure != nil {
				s.onFailure(id, err)
			}
		}
	}
}
