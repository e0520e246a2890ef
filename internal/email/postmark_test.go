package email

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hferris/lumen/internal/model"
)

func testBooking() *model.Booking {
	start := time.Date(2026, 9, 14, 15, 0, 0, 0, time.UTC)
	return &model.Booking{
		Summary:   "Family portraits",
		Date:      "2026-09-14",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func TestSendBookingConfirmation(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@lumen.test", "https://lumen.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendBookingConfirmation("alice@example.com", "Alice", "Hazel Light Studio", testBooking())
	if err != nil {
		t.Fatalf("send confirmation: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@lumen.test" {
		t.Errorf("From = %q, want %q", received.From, "noreply@lumen.test")
	}
	if received.Subject != "Your session with Hazel Light Studio is confirmed" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "2026-09-14") {
		t.Errorf("TextBody missing session date: %q", received.TextBody)
	}
}

func TestSendSyncFailure(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@lumen.test", "https://lumen.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendSyncFailure("owner@studio.test", errors.New("token expired"))
	if err != nil {
		t.Fatalf("send sync failure: %v", err)
	}

	if received.Subject != "Calendar sync failed" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "token expired") {
		t.Errorf("TextBody missing cause: %q", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "https://lumen.test/settings") {
		t.Errorf("TextBody missing settings link: %q", received.TextBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@lumen.test", "https://lumen.test")

	err := client.SendBookingConfirmation("alice@example.com", "Alice", "", testBooking())
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@lumen.test", "https://lumen.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendSyncFailure("owner@studio.test", errors.New("boom"))
	if err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@lumen.test", "https://lumen.test").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@lumen.test", "https://lumen.test").Configured() {
		t.Error("expected Configured() = false")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
