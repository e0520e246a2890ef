package model

import "time"

// Account is a studio owner's account. GoogleToken holds the OAuth token
// JSON written by the OAuth callback; it is nil until the owner connects
// a Google account.
type Account struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	StripeCustomerID *string   `json:"stripe_customer_id"`
	GoogleToken      *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CalendarConnected reports whether the account has a stored Google token.
func (a *Account) CalendarConnected() bool {
	return a.GoogleToken != nil && *a.GoogleToken != ""
}

// Session is a browser session minted by the Google OAuth callback.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	AccountID int64     `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
