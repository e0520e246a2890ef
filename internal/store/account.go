package store

import (
	"database/sql"
	"fmt"

	"github.com/hferris/lumen/internal/model"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

const accountCols = `id, email, name, stripe_customer_id, google_token, created_at, updated_at`

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	var stripeID, token sql.NullString
	err := scanner.Scan(&a.ID, &a.Email, &a.Name, &stripeID, &token, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if stripeID.Valid {
		a.StripeCustomerID = &stripeID.String
	}
	if token.Valid {
		a.GoogleToken = &token.String
	}
	return &a, nil
}

func (s *AccountStore) Create(email, name string) (*model.Account, error) {
	result, err := s.db.Exec(
		`INSERT INTO accounts (email, name) VALUES (?, ?)`,
		email, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AccountStore) GetByID(id int64) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(email string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// SetGoogleToken stores the OAuth token JSON written by the OAuth callback.
func (s *AccountStore) SetGoogleToken(id int64, tokenJSON string) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET google_token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		tokenJSON, id,
	)
	if err != nil {
		return fmt.Errorf("set google token: %w", err)
	}
	return nil
}

func (s *AccountStore) ClearGoogleToken(id int64) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET google_token = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear google token: %w", err)
	}
	return nil
}

func (s *AccountStore) SetStripeCustomerID(id int64, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET stripe_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	return nil
}

func (s *AccountStore) GetByStripeCustomerID(customerID string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE stripe_customer_id = ?`, customerID)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by stripe customer: %w", err)
	}
	return a, nil
}

// ListCalendarConnected returns the ids of all accounts with a stored
// Google token. The sync scheduler iterates these.
func (s *AccountStore) ListCalendarConnected() ([]int64, error) {
	rows, err := s.db.Query(`SELECT id FROM accounts WHERE google_token IS NOT NULL AND google_token != ''`)
	if err != nil {
		return nil, fmt.Errorf("query connected accounts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
