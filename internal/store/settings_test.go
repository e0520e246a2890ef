package store

import "testing"

func TestSettingsDefaultAndSet(t *testing.T) {
	db := setupTestDB(t)
	acct := testAccount(t, db)
	s := NewSettingsStore(db)

	tz, err := s.Get(acct.ID, SettingTimezone, "UTC")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if tz != "UTC" {
		t.Errorf("unset timezone = %q, want default UTC", tz)
	}

	if err := s.Set(acct.ID, SettingTimezone, "America/Denver"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	tz, _ = s.Get(acct.ID, SettingTimezone, "UTC")
	if tz != "America/Denver" {
		t.Errorf("timezone = %q, want America/Denver", tz)
	}

	// Upsert overwrites.
	s.Set(acct.ID, SettingTimezone, "Europe/Lisbon")
	tz, _ = s.Get(acct.ID, SettingTimezone, "UTC")
	if tz != "Europe/Lisbon" {
		t.Errorf("timezone = %q, want Europe/Lisbon", tz)
	}
}

func TestSettingsScopedPerAccount(t *testing.T) {
	db := setupTestDB(t)
	a1 := testAccount(t, db)
	a2 := testAccount2(t, db)
	s := NewSettingsStore(db)

	s.Set(a1.ID, SettingStudioName, "North Light")
	s.Set(a2.ID, SettingStudioName, "South Light")

	got, _ := s.Get(a1.ID, SettingStudioName, "")
	if got != "North Light" {
		t.Errorf("account 1 studio name = %q", got)
	}

	all, err := s.All(a2.ID)
	if err != nil {
		t.Fatalf("all settings: %v", err)
	}
	if all[SettingStudioName] != "South Light" {
		t.Errorf("account 2 settings = %v", all)
	}
}
