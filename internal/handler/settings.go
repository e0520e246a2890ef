package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, logger: logger}
}

// allowedSettings maps setting keys to their validators.
var allowedSettings = map[string]func(string) bool{
	store.SettingTimezone: func(v string) bool {
		_, err := time.LoadLocation(v)
		return err == nil
	},
	store.SettingStudioName:    func(string) bool { return true },
	store.SettingReminderLead:  isPositiveInt,
	store.SettingSyncInterval:  isPositiveInt,
	store.SettingNotifyOnEmail: func(v string) bool { return v == "true" || v == "false" },
}

func isPositiveInt(v string) bool {
	if v == "" {
		return false
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return false
		}
	}
	return v != "0"
}

func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.settings.All(auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("list settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	for key, value := range req {
		validate, ok := allowedSettings[key]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
		if !validate(value) {
			writeError(w, http.StatusBadRequest, "invalid value for "+key)
			return
		}
	}

	accountID := auth.AccountID(r.Context())
	for key, value := range req {
		if err := h.settings.Set(accountID, key, value); err != nil {
			h.logger.Error("set setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
