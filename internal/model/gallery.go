package model

import "time"

// Gallery is a PIN-protected photo delivery page for a booking. Slug is the
// public share identifier; PINHash is a bcrypt hash of the access PIN.
type Gallery struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	BookingID int64     `json:"booking_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Photo is a single object stored in the gallery bucket.
type Photo struct {
	ID          int64     `json:"id"`
	GalleryID   int64     `json:"gallery_id"`
	ObjectKey   string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
