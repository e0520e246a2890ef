package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hferris/lumen/internal/model"
)

type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

const bookingCols = `id, account_id, client_id, reference, summary, description, date, start_time, end_time, status, event_id, last_synced_date, created_at, updated_at`

func scanBooking(scanner interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var clientID sql.NullInt64
	var eventID, lastSynced sql.NullString
	err := scanner.Scan(
		&b.ID, &b.AccountID, &clientID, &b.Reference, &b.Summary, &b.Description,
		&b.Date, &b.StartTime, &b.EndTime, &b.Status, &eventID, &lastSynced,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		b.ClientID = &clientID.Int64
	}
	if eventID.Valid {
		b.EventID = &eventID.String
	}
	if lastSynced.Valid {
		b.LastSyncedDate = &lastSynced.String
	}
	return &b, nil
}

func (s *BookingStore) Create(accountID int64, clientID *int64, summary, description, date string, startTime, endTime time.Time) (*model.Booking, error) {
	var cID sql.NullInt64
	if clientID != nil {
		cID = sql.NullInt64{Int64: *clientID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO bookings (account_id, client_id, reference, summary, description, date, start_time, end_time, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		accountID, cID, uuid.NewString(), summary, description, date,
		startTime.UTC(), endTime.UTC(), model.BookingConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *BookingStore) GetByID(id int64) (*model.Booking, error) {
	row := s.db.QueryRow(`SELECT `+bookingCols+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (s *BookingStore) GetByReference(reference string) (*model.Booking, error) {
	row := s.db.QueryRow(`SELECT `+bookingCols+` FROM bookings WHERE reference = ?`, reference)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking by reference: %w", err)
	}
	return b, nil
}

// ListByAccount returns every booking for the account, regardless of status
// or date. The calendar sync engine relies on getting the complete set.
func (s *BookingStore) ListByAccount(accountID int64) ([]model.Booking, error) {
	rows, err := s.db.Query(
		`SELECT `+bookingCols+` FROM bookings WHERE account_id = ? ORDER BY start_time ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListStartingBetween returns confirmed bookings whose start time falls in
// [from, to). Used by the reminder scheduler.
func (s *BookingStore) ListStartingBetween(accountID int64, from, to time.Time) ([]model.Booking, error) {
	rows, err := s.db.Query(
		`SELECT `+bookingCols+` FROM bookings
		 WHERE account_id = ? AND status = ? AND start_time >= ? AND start_time < ?
		 ORDER BY start_time ASC`,
		accountID, model.BookingConfirmed, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query upcoming bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (s *BookingStore) Update(id int64, clientID *int64, summary, description, date string, startTime, endTime time.Time) (*model.Booking, error) {
	var cID sql.NullInt64
	if clientID != nil {
		cID = sql.NullInt64{Int64: *clientID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE bookings
		 SET client_id = ?, summary = ?, description = ?, date = ?, start_time = ?, end_time = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		cID, summary, description, date, startTime.UTC(), endTime.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	return s.GetByID(id)
}

func (s *BookingStore) SetStatus(id int64, status string) error {
	_, err := s.db.Exec(
		`UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set booking status: %w", err)
	}
	return nil
}

// LinkEvent records the calendar event a booking was pushed to, along with
// the date it was synced as. Called by the sync engine after every
// successful create or update against Google Calendar.
func (s *BookingStore) LinkEvent(bookingID int64, eventID, syncedDate string) error {
	_, err := s.db.Exec(
		`UPDATE bookings SET event_id = ?, last_synced_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		eventID, syncedDate, bookingID,
	)
	if err != nil {
		return fmt.Errorf("link booking %d to event: %w", bookingID, err)
	}
	return nil
}

func (s *BookingStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}
