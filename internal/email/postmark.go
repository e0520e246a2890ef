package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hferris/lumen/internal/model"
)

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendBookingConfirmation mails the client their session details.
func (c *Client) SendBookingConfirmation(toEmail, clientName, studioName string, b *model.Booking) error {
	if studioName == "" {
		studioName = "the studio"
	}
	subject := fmt.Sprintf("Your session with %s is confirmed", studioName)
	when := fmt.Sprintf("%s from %s to %s",
		b.Date, b.StartTime.Format("3:04 PM"), b.EndTime.Format("3:04 PM"))

	textBody := fmt.Sprintf("Hi %s,\n\nYour session %q is confirmed for %s.\n\nSee you then!\n%s",
		clientName, b.Summary, when, studioName)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your session <strong>%s</strong> is confirmed for %s.</p><p>See you then!<br>%s</p>`,
		clientName, b.Summary, when, studioName,
	)

	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendSyncFailure alerts the studio owner that a scheduled calendar sync
// failed, with a link to reconnect.
func (c *Client) SendSyncFailure(toEmail string, syncErr error) error {
	link := c.baseURL + "/settings"
	textBody := fmt.Sprintf(
		"Your Google Calendar sync failed:\n\n%v\n\nCheck your calendar connection at %s",
		syncErr, link)
	htmlBody := fmt.Sprintf(
		`<p>Your Google Calendar sync failed:</p><p><code>%v</code></p><p>Check your calendar connection in <a href="%s">settings</a>.</p>`,
		syncErr, link)

	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Calendar sync failed",
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
