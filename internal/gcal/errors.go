package gcal

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// IsNotFound reports whether err is a 404 from the calendar API: the event
// no longer exists remotely.
func IsNotFound(err error) bool {
	var ge *googleapi.Error
	return errors.As(err, &ge) && ge.Code == http.StatusNotFound
}

// IsRateLimited reports whether err is Google's rate-limit rejection, which
// arrives as a 403 with a rate-limit reason rather than a 429.
func IsRateLimited(err error) bool {
	var ge *googleapi.Error
	if !errors.As(err, &ge) || ge.Code != http.StatusForbidden {
		return false
	}
	for _, item := range ge.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return strings.Contains(ge.Message, "Rate Limit Exceeded")
}
