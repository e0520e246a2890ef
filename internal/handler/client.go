package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/store"
)

type ClientHandler struct {
	clients *store.ClientStore
	logger  *slog.Logger
}

func NewClientHandler(cs *store.ClientStore, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{clients: cs, logger: logger}
}

type clientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListByAccount(auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("list clients", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c, err := h.clients.Create(auth.AccountID(r.Context()), req.Name, req.Email, req.Phone, req.Notes)
	if err != nil {
		h.logger.Error("create client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create client")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.load(w, r)
	if existing == nil {
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c, err := h.clients.Update(existing.ID, req.Name, req.Email, req.Phone, req.Notes)
	if err != nil {
		h.logger.Error("update client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update client")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	if err := h.clients.Delete(c.ID); err != nil {
		h.logger.Error("delete client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) load(w http.ResponseWriter, r *http.Request) *model.Client {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	c, err := h.clients.GetByID(id)
	if err != nil {
		h.logger.Error("get client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return nil
	}
	if c == nil || c.AccountID != auth.AccountID(r.Context()) {
		writeError(w, http.StatusNotFound, "client not found")
		return nil
	}
	return c
}
