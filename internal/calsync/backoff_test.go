package calsync

import (
	"context"
	"testing"
	"time"

	"github.com/hferris/lumen/internal/gcal"
)

func TestDeleteBackoffRateLimitExhaustsAttempts(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Stuck")
	cal.deleteErrs["E1"] = []error{
		rateLimitErr(), rateLimitErr(), rateLimitErr(), rateLimitErr(), rateLimitErr(),
	}
	svc := newTestService(t, cal, &fakeBookings{})

	var delays []time.Duration
	svc.sleep = func(d time.Duration) { delays = append(delays, d) }

	err := svc.deleteWithBackoff(context.Background(), cal, "E1")
	if !gcal.IsRateLimited(err) {
		t.Fatalf("err = %v, want the final rate-limit error", err)
	}
	if cal.deleteCalls["E1"] != maxDeleteAttempts {
		t.Errorf("delete calls = %d, want %d", cal.deleteCalls["E1"], maxDeleteAttempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDeleteBackoffRecoversMidway(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Flaky")
	cal.deleteErrs["E1"] = []error{rateLimitErr(), rateLimitErr()}
	svc := newTestService(t, cal, &fakeBookings{})

	var delays []time.Duration
	svc.sleep = func(d time.Duration) { delays = append(delays, d) }

	if err := svc.deleteWithBackoff(context.Background(), cal, "E1"); err != nil {
		t.Fatalf("err = %v, want success on third attempt", err)
	}
	if cal.deleteCalls["E1"] != 3 {
		t.Errorf("delete calls = %d, want 3", cal.deleteCalls["E1"])
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", delays)
	}
}

func TestDeleteBackoffNonRateLimitNoRetry(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Broken")
	cal.deleteErrs["E1"] = []error{serverErr()}
	svc := newTestService(t, cal, &fakeBookings{})

	slept := 0
	svc.sleep = func(time.Duration) { slept++ }

	err := svc.deleteWithBackoff(context.Background(), cal, "E1")
	if err == nil || gcal.IsRateLimited(err) {
		t.Fatalf("err = %v, want the server error passed through", err)
	}
	if cal.deleteCalls["E1"] != 1 {
		t.Errorf("delete calls = %d, want 1 (no retry on non-rate-limit errors)", cal.deleteCalls["E1"])
	}
	if slept != 0 {
		t.Errorf("slept %d times, want 0", slept)
	}
}

func TestDeleteBackoffStopsOnCanceledContext(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Stuck")
	cal.deleteErrs["E1"] = []error{rateLimitErr(), rateLimitErr(), rateLimitErr()}
	svc := newTestService(t, cal, &fakeBookings{})

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(time.Duration) { cancel() }

	if err := svc.deleteWithBackoff(ctx, cal, "E1"); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if cal.deleteCalls["E1"] != 1 {
		t.Errorf("delete calls = %d, want 1 after cancellation", cal.deleteCalls["E1"])
	}
}
