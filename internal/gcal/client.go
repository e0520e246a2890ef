package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNoToken indicates the account has no usable Google token stored.
var ErrNoToken = errors.New("no google calendar token")

// listPageSize bounds the events.list call. Per-studio calendars stay far
// below this, so no pagination loop is needed.
const listPageSize = 2500

// API is the slice of the Google Calendar events surface the sync engine
// depends on. The sync tests substitute a fake.
type API interface {
	// ListUpcoming returns all events from now forward, with recurring
	// events expanded to concrete instances.
	ListUpcoming(ctx context.Context) ([]*calendar.Event, error)
	Insert(ctx context.Context, ev *calendar.Event) (*calendar.Event, error)
	Update(ctx context.Context, eventID string, ev *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, eventID string) error
}

// Client talks to the studio owner's primary Google Calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
}

var _ API = (*Client)(nil)

// NewClient builds a calendar client for a stored token. The token source
// refreshes the access token transparently when a refresh token is present;
// an expired token without one surfaces as a transport error on first use.
func NewClient(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, opts ...option.ClientOption) (*Client, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNoToken
	}

	all := append([]option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx, tok))}, opts...)
	svc, err := calendar.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &Client{svc: svc, calendarID: "primary"}, nil
}

func (c *Client) ListUpcoming(ctx context.Context) ([]*calendar.Event, error) {
	res, err := c.svc.Events.List(c.calendarID).
		TimeMin(time.Now().UTC().Format(time.RFC3339)).
		MaxResults(listPageSize).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return res.Items, nil
}

func (c *Client) Insert(ctx context.Context, ev *calendar.Event) (*calendar.Event, error) {
	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}
	return created, nil
}

func (c *Client) Update(ctx context.Context, eventID string, ev *calendar.Event) (*calendar.Event, error) {
	updated, err := c.svc.Events.Update(c.calendarID, eventID, ev).Context(ctx).Do()
	if err != nil {
		// Callers distinguish 404 (stale link) from everything else, so
		// keep the googleapi error in the chain.
		return nil, fmt.Errorf("update calendar event %s: %w", eventID, err)
	}
	return updated, nil
}

func (c *Client) Delete(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}
