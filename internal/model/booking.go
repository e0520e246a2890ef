package model

import "time"

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCanceled  = "canceled"
)

// Booking is a scheduled studio session. It is the authoritative record;
// the linked Google Calendar event (EventID) only mirrors it.
type Booking struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	ClientID    *int64    `json:"client_id"`
	Reference   string    `json:"reference"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Date        string    `json:"date"` // YYYY-MM-DD, studio-local
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`

	// EventID is set once the booking has been pushed to Google Calendar.
	// LastSyncedDate holds Date as of the last successful push; a mismatch
	// with Date is the drift signal that triggers an update on the next sync.
	EventID        *string `json:"event_id"`
	LastSyncedDate *string `json:"last_synced_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Linked reports whether the booking carries a calendar event reference.
func (b *Booking) Linked() bool {
	return b.EventID != nil && *b.EventID != ""
}
