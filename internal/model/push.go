package model

import "time"

// Notification type constants
const (
	NotifTypeBookingCreated  = "booking_created"
	NotifTypeBookingReminder = "booking_reminder"
	NotifTypeSyncFailed      = "sync_failed"
)

type PushSubscription struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"account_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
