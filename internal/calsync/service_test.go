package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/hferris/lumen/internal/gcal"
	"github.com/hferris/lumen/internal/model"
)

// fakeCalendar implements gcal.API in memory.
type fakeCalendar struct {
	events map[string]*calendar.Event
	nextID int

	insertCalls int
	updateCalls int
	deleteCalls map[string]int

	listErr    error
	insertErr  error
	updateErrs map[string]error
	deleteErrs map[string][]error // popped per call; empty means success
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:      make(map[string]*calendar.Event),
		deleteCalls: make(map[string]int),
		updateErrs:  make(map[string]error),
		deleteErrs:  make(map[string][]error),
	}
}

func (f *fakeCalendar) addEvent(id, summary string) {
	f.events[id] = &calendar.Event{Id: id, Summary: summary}
}

func (f *fakeCalendar) ListUpcoming(ctx context.Context) ([]*calendar.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var items []*calendar.Event
	for _, ev := range f.events {
		items = append(items, ev)
	}
	return items, nil
}

func (f *fakeCalendar) Insert(ctx context.Context, ev *calendar.Event) (*calendar.Event, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	created := *ev
	created.Id = fmt.Sprintf("gen-%d", f.nextID)
	f.events[created.Id] = &created
	return &created, nil
}

func (f *fakeCalendar) Update(ctx context.Context, eventID string, ev *calendar.Event) (*calendar.Event, error) {
	f.updateCalls++
	if err := f.updateErrs[eventID]; err != nil {
		return nil, err
	}
	updated := *ev
	updated.Id = eventID
	f.events[eventID] = &updated
	return &updated, nil
}

func (f *fakeCalendar) Delete(ctx context.Context, eventID string) error {
	f.deleteCalls[eventID]++
	if errs := f.deleteErrs[eventID]; len(errs) > 0 {
		f.deleteErrs[eventID] = errs[1:]
		return errs[0]
	}
	if _, ok := f.events[eventID]; !ok {
		return notFoundErr()
	}
	delete(f.events, eventID)
	return nil
}

var _ gcal.API = (*fakeCalendar)(nil)

type fakeBookings struct {
	bookings []model.Booking
	listErr  error
	linkErr  error
	links    int
}

func (f *fakeBookings) ListByAccount(accountID int64) ([]model.Booking, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Booking, len(f.bookings))
	copy(out, f.bookings)
	return out, nil
}

func (f *fakeBookings) LinkEvent(bookingID int64, eventID, syncedDate string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.links++
	for i := range f.bookings {
		if f.bookings[i].ID == bookingID {
			id, date := eventID, syncedDate
			f.bookings[i].EventID = &id
			f.bookings[i].LastSyncedDate = &date
		}
	}
	return nil
}

type fakeAccounts struct {
	accounts map[int64]*model.Account
}

func (f *fakeAccounts) GetByID(id int64) (*model.Account, error) {
	return f.accounts[id], nil
}

type fakeSettings map[string]string

func (f fakeSettings) Get(accountID int64, key, def string) (string, error) {
	if v, ok := f[key]; ok {
		return v, nil
	}
	return def, nil
}

func rateLimitErr() error {
	return &googleapi.Error{
		Code:    http.StatusForbidden,
		Message: "Rate Limit Exceeded",
		Errors:  []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	}
}

func notFoundErr() error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "Not Found"}
}

func serverErr() error {
	return &googleapi.Error{Code: http.StatusInternalServerError, Message: "Backend Error"}
}

const testAccountID = int64(1)

func connectedAccount() *model.Account {
	tok := `{"access_token":"ya29.test","token_type":"Bearer"}`
	return &model.Account{ID: testAccountID, Email: "owner@studio.test", GoogleToken: &tok}
}

func newTestService(t *testing.T, cal *fakeCalendar, fb *fakeBookings) *Service {
	t.Helper()
	accounts := &fakeAccounts{accounts: map[int64]*model.Account{testAccountID: connectedAccount()}}
	factory := func(ctx context.Context, tok *oauth2.Token) (gcal.API, error) {
		return cal, nil
	}
	svc := NewService(accounts, fb, fb, fakeSettings{}, factory, "https://lumen.test", slog.New(slog.DiscardHandler))
	svc.sleep = func(time.Duration) {}
	return svc
}

// futureBooking builds a confirmed booking starting tomorrow.
func futureBooking(id int64, summary, date string) model.Booking {
	start := time.Now().Add(24 * time.Hour)
	return model.Booking{
		ID:        id,
		AccountID: testAccountID,
		Reference: fmt.Sprintf("ref-%d", id),
		Summary:   summary,
		Date:      date,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.BookingConfirmed,
	}
}

func linked(b model.Booking, eventID, syncedDate string) model.Booking {
	b.EventID = &eventID
	b.LastSyncedDate = &syncedDate
	return b
}

func TestSyncCreatesUnlinkedBookings(t *testing.T) {
	cal := newFakeCalendar()
	fb := &fakeBookings{bookings: []model.Booking{
		futureBooking(1, "Portraits", "2026-09-14"),
		futureBooking(2, "Headshots", "2026-09-15"),
	}}
	svc := newTestService(t, cal, fb)

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Added) != 2 {
		t.Fatalf("added = %d, want 2", len(res.Added))
	}
	if len(res.Updated) != 0 || len(res.Deleted) != 0 {
		t.Errorf("updated/deleted = %d/%d, want 0/0", len(res.Updated), len(res.Deleted))
	}
	if cal.insertCalls != 2 {
		t.Errorf("insert calls = %d, want 2", cal.insertCalls)
	}
	for _, b := range fb.bookings {
		if !b.Linked() {
			t.Errorf("booking %d not linked after sync", b.ID)
		}
		if b.LastSyncedDate == nil || *b.LastSyncedDate != b.Date {
			t.Errorf("booking %d synced date = %v, want %q", b.ID, b.LastSyncedDate, b.Date)
		}
	}
}

func TestSyncIdempotent(t *testing.T) {
	cal := newFakeCalendar()
	fb := &fakeBookings{bookings: []model.Booking{
		futureBooking(1, "Portraits", "2026-09-14"),
		futureBooking(2, "Headshots", "2026-09-15"),
	}}
	svc := newTestService(t, cal, fb)

	if _, err := svc.SyncAll(context.Background(), testAccountID); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if len(res.Added) != 0 || len(res.Updated) != 0 || len(res.Deleted) != 0 {
		t.Errorf("second run = %d added, %d updated, %d deleted; want all zero",
			len(res.Added), len(res.Updated), len(res.Deleted))
	}
	if cal.insertCalls != 2 {
		t.Errorf("insert calls after two runs = %d, want 2", cal.insertCalls)
	}
	if cal.updateCalls != 0 {
		t.Errorf("update calls = %d, want 0", cal.updateCalls)
	}
}

func TestSyncDriftTriggersUpdate(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Portraits")
	fb := &fakeBookings{bookings: []model.Booking{
		linked(futureBooking(1, "Portraits", "2026-09-20"), "E1", "2026-09-14"),
	}}
	svc := newTestService(t, cal, fb)

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Updated) != 1 || res.Updated[0].ID != 1 {
		t.Fatalf("updated = %v, want booking 1", res.Updated)
	}
	if len(res.Added) != 0 || len(res.Deleted) != 0 {
		t.Errorf("added/deleted = %d/%d, want 0/0", len(res.Added), len(res.Deleted))
	}
	if cal.updateCalls != 1 || cal.insertCalls != 0 {
		t.Errorf("update/insert calls = %d/%d, want 1/0", cal.updateCalls, cal.insertCalls)
	}
	if got := *fb.bookings[0].LastSyncedDate; got != "2026-09-20" {
		t.Errorf("synced date after update = %q, want 2026-09-20", got)
	}
}

func TestSyncNoDriftNoOp(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Portraits")
	fb := &fakeBookings{bookings: []model.Booking{
		linked(futureBooking(1, "Portraits", "2026-09-14"), "E1", "2026-09-14"),
	}}
	svc := newTestService(t, cal, fb)

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Added)+len(res.Updated)+len(res.Deleted) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if cal.insertCalls != 0 || cal.updateCalls != 0 {
		t.Errorf("insert/update calls = %d/%d, want 0/0", cal.insertCalls, cal.updateCalls)
	}
	if cal.deleteCalls["E1"] != 0 {
		t.Error("claimed event must not be deleted as an orphan")
	}
}

func TestSyncStaleLinkCreates(t *testing.T) {
	cal := newFakeCalendar() // E1 does not exist remotely
	fb := &fakeBookings{bookings: []model.Booking{
		linked(futureBooking(1, "Portraits", "2026-09-14"), "E1", "2026-09-14"),
	}}
	svc := newTestService(t, cal, fb)

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Added) != 1 {
		t.Fatalf("added = %d, want 1 (stale link treated as unlinked)", len(res.Added))
	}
	if cal.insertCalls != 1 || cal.updateCalls != 0 {
		t.Errorf("insert/update calls = %d/%d, want 1/0", cal.insertCalls, cal.updateCalls)
	}
	if got := *fb.bookings[0].EventID; got == "E1" {
		t.Error("stale event id should be replaced by the created event's id")
	}
}

func TestSyncUpdate404FallsBackToCreate(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Portraits")
	cal.updateErrs["E1"] = notFoundErr()
	fb := &fakeBookings{bookings: []model.Booking{
		linked(futureBooking(1, "Portraits", "2026-09-21"), "E1", "2026-09-14"),
	}}
	svc := newTestService(t, cal, fb)

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync should self-heal a 404 on update, got %v", err)
	}
	if len(res.Added) != 1 || len(res.Updated) != 0 {
		t.Fatalf("added/updated = %d/%d, want 1/0", len(res.Added), len(res.Updated))
	}
	if cal.insertCalls != 1 {
		t.Errorf("insert calls = %d, want 1", cal.insertCalls)
	}
}

func TestSyncFatalUpdateErrorAborts(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Portraits")
	cal.addEvent("orphan", "Stale")
	cal.updateErrs["E1"] = serverErr()
	fb := &fakeBookings{bookings: []model.Booking{
		linked(futureBooking(1, "Portraits", "2026-09-21"), "E1", "2026-09-14"),
	}}
	svc := newTestService(t, cal, fb)

	if _, err := svc.SyncAll(context.Background(), testAccountID); err == nil {
		t.Fatal("expected error for non-404 update failure")
	}
	if cal.deleteCalls["orphan"] != 0 {
		t.Error("orphan cleanup must not run after a fatal booking-pass error")
	}
}

func TestSyncOrphanCleanup(t *testing.T) {
	cal := newFakeCalendar()
	fb := &fakeBookings{}
	for i := 1; i <= 45; i++ {
		eventID := fmt.Sprintf("E%d", i)
		date := "2026-09-14"
		cal.addEvent(eventID, "Session")
		fb.bookings = append(fb.bookings, linked(futureBooking(int64(i), "Session", date), eventID, date))
	}
	cal.addEvent("orphan-1", "Manually created")
	svc := newTestService(t, cal, fb)

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Added) != 0 || len(res.Updated) != 0 {
		t.Errorf("added/updated = %d/%d, want 0/0", len(res.Added), len(res.Updated))
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != "orphan-1" {
		t.Fatalf("deleted = %v, want [orphan-1]", res.Deleted)
	}
	if cal.deleteCalls["orphan-1"] != 1 {
		t.Errorf("delete calls for orphan = %d, want 1", cal.deleteCalls["orphan-1"])
	}
	if _, ok := cal.events["orphan-1"]; ok {
		t.Error("orphan event should be gone")
	}
}

func TestSyncOrphanDelete404Swallowed(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("orphan-1", "Gone already")
	cal.deleteErrs["orphan-1"] = []error{notFoundErr()}
	svc := newTestService(t, cal, &fakeBookings{})

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Deleted) != 1 {
		t.Errorf("deleted = %v, want the already-gone orphan counted", res.Deleted)
	}
}

func TestSyncOrphanDeleteFailureSkipped(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("orphan-1", "Stubborn")
	cal.deleteErrs["orphan-1"] = []error{serverErr()}
	svc := newTestService(t, cal, &fakeBookings{})

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("cleanup failures must not fail the run: %v", err)
	}
	if len(res.Deleted) != 0 {
		t.Errorf("deleted = %v, want empty", res.Deleted)
	}
}

func TestSyncCanceledBookingReleasesEvent(t *testing.T) {
	cal := newFakeCalendar()
	cal.addEvent("E1", "Canceled session")
	b := linked(futureBooking(1, "Canceled session", "2026-09-14"), "E1", "2026-09-14")
	b.Status = model.BookingCanceled
	svc := newTestService(t, cal, &fakeBookings{bookings: []model.Booking{b}})

	res, err := svc.SyncAll(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(res.Added) != 0 || len(res.Updated) != 0 {
		t.Errorf("canceled booking should take no write action: %+v", res)
	}
	if len(res.Deleted) != 1 || res.Deleted[0] != "E1" {
		t.Errorf("deleted = %v, want the released event", res.Deleted)
	}
}

func TestSyncMissingAccount(t *testing.T) {
	svc := newTestService(t, newFakeCalendar(), &fakeBookings{})

	_, err := svc.SyncAll(context.Background(), 99)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want account-not-found", err)
	}
}

func TestSyncMissingTokenFailsFast(t *testing.T) {
	cal := newFakeCalendar()
	cal.listErr = serverErr() // would fail if reached
	accounts := &fakeAccounts{accounts: map[int64]*model.Account{
		testAccountID: {ID: testAccountID, Email: "owner@studio.test"},
	}}
	factory := func(ctx context.Context, tok *oauth2.Token) (gcal.API, error) { return cal, nil }
	svc := NewService(accounts, &fakeBookings{}, &fakeBookings{}, fakeSettings{}, factory, "", slog.New(slog.DiscardHandler))

	_, err := svc.SyncAll(context.Background(), testAccountID)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if !strings.Contains(err.Error(), "token") {
		t.Errorf("err = %v, want token precondition failure", err)
	}
}

func TestSyncListFailureAborts(t *testing.T) {
	cal := newFakeCalendar()
	cal.listErr = serverErr()
	svc := newTestService(t, cal, &fakeBookings{bookings: []model.Booking{
		futureBooking(1, "Portraits", "2026-09-14"),
	}})

	if _, err := svc.SyncAll(context.Background(), testAccountID); err == nil {
		t.Fatal("expected error when listing remote events fails")
	}
	if cal.insertCalls != 0 {
		t.Error("no writes may happen when the remote read fails")
	}
}
