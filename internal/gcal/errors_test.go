package gcal

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestIsNotFound(t *testing.T) {
	nf := &googleapi.Error{Code: http.StatusNotFound}

	if !IsNotFound(nf) {
		t.Error("bare 404 not detected")
	}
	if !IsNotFound(fmt.Errorf("update event: %w", nf)) {
		t.Error("wrapped 404 not detected")
	}
	if IsNotFound(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Error("403 must not count as not-found")
	}
	if IsNotFound(errors.New("plain error")) {
		t.Error("non-API error must not count as not-found")
	}
	if IsNotFound(nil) {
		t.Error("nil must not count as not-found")
	}
}

func TestIsRateLimited(t *testing.T) {
	byReason := &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	}
	byUserReason := &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
	}
	byMessage := &googleapi.Error{
		Code:    http.StatusForbidden,
		Message: "Rate Limit Exceeded",
	}

	if !IsRateLimited(byReason) || !IsRateLimited(byUserReason) || !IsRateLimited(byMessage) {
		t.Error("rate-limit signatures not detected")
	}
	if !IsRateLimited(fmt.Errorf("delete event: %w", byReason)) {
		t.Error("wrapped rate-limit error not detected")
	}
	if IsRateLimited(&googleapi.Error{Code: http.StatusForbidden, Message: "insufficient permissions"}) {
		t.Error("plain 403 must not count as rate-limited")
	}
	if IsRateLimited(&googleapi.Error{Code: http.StatusTooManyRequests, Message: "Rate Limit Exceeded"}) {
		t.Error("only the 403 signature counts, not a 429")
	}
	if IsRateLimited(nil) {
		t.Error("nil must not count as rate-limited")
	}
}
