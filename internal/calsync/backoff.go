package calsync

import (
	"context"
	"time"

	"github.com/hferris/lumen/internal/gcal"
)

const (
	maxDeleteAttempts = 5
	baseRetryDelay    = time.Second
)

// deleteWithBackoff deletes an orphan event, retrying only when Google
// rejects the call with its rate-limit signature. Bulk orphan cleanup is the
// one spot that can burst past the per-user quota, so this is the only retry
// policy in the engine. Delays double from baseRetryDelay; any other error,
// or hitting the attempt ceiling, propagates.
func (s *Service) deleteWithBackoff(ctx context.Context, cal gcal.API, eventID string) error {
	for attempt := 1; ; attempt++ {
		err := cal.Delete(ctx, eventID)
		if err == nil || !gcal.IsRateLimited(err) || attempt >= maxDeleteAttempts {
			return err
		}

		delay := baseRetryDelay << (attempt - 1)
		s.logger.Warn("calendar delete rate limited",
			"event_id", eventID, "attempt", attempt, "retry_in", delay)
		s.sleep(delay)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
