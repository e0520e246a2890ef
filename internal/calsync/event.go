package calsync

import (
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/hferris/lumen/internal/model"
)

// buildEvent renders a booking as its calendar event payload.
func buildEvent(b *model.Booking, tz, baseURL string) *calendar.Event {
	desc := b.Description
	if link := bookingLink(baseURL, b.Reference); link != "" {
		if desc != "" {
			desc += "\n\n"
		}
		desc += "Booking: " + link
	}

	return &calendar.Event{
		Summary:     b.Summary,
		Description: desc,
		Start: &calendar.EventDateTime{
			DateTime: b.StartTime.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: b.EndTime.Format(time.RFC3339),
			TimeZone: tz,
		},
	}
}

// bookingLink builds the dashboard URL for a booking reference, or "" when
// no base URL is configured.
func bookingLink(baseURL, reference string) string {
	if baseURL == "" || reference == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/bookings/" + reference
}
