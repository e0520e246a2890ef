package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/calsync"
	"github.com/hferris/lumen/internal/gcal"
	"github.com/hferris/lumen/internal/websocket"
)

type SyncHandler struct {
	sync   *calsync.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewSyncHandler(sync *calsync.Service, hub *websocket.Hub, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, hub: hub, logger: logger}
}

// Run triggers a sync for the authenticated account and returns the run
// summary.
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())

	res, err := h.sync.SyncAll(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, gcal.ErrNoToken) {
			writeError(w, http.StatusConflict, "google calendar is not connected")
			return
		}
		h.logger.Error("manual sync failed", "account_id", accountID, "error", err)
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	h.hub.Broadcast(accountID, websocket.NewMessage("sync", "completed", 0, map[string]any{
		"added":   len(res.Added),
		"updated": len(res.Updated),
		"deleted": len(res.Deleted),
	}))
	writeJSON(w, http.StatusOK, res)
}
