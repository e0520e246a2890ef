package store

import (
	"database/sql"
	"fmt"
)

// Setting keys used by the application.
const (
	SettingTimezone      = "timezone"
	SettingStudioName    = "studio_name"
	SettingReminderLead  = "reminder_lead_minutes"
	SettingSyncInterval  = "sync_interval_minutes"
	SettingNotifyOnEmail = "notify_failures_by_email"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for an account's setting, or the provided default
// when the key has never been set.
func (s *SettingsStore) Get(accountID int64, key, def string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE account_id = ? AND key = ?`,
		accountID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(accountID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (account_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(account_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		accountID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// All returns every setting for the account as a map.
func (s *SettingsStore) All(accountID int64) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}
