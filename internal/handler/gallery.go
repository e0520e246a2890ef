package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/gallery"
	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/store"
)

// maxPhotoBytes caps a single upload at 50 MB.
const maxPhotoBytes = 50 << 20

type GalleryHandler struct {
	galleries *store.GalleryStore
	bookings  *store.BookingStore
	service   *gallery.Service
	logger    *slog.Logger
}

func NewGalleryHandler(gs *store.GalleryStore, bs *store.BookingStore, svc *gallery.Service, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		galleries: gs,
		bookings:  bs,
		service:   svc,
		logger:    logger,
	}
}

type galleryRequest struct {
	BookingID int64  `json:"booking_id"`
	Title     string `json:"title"`
	PIN       string `json:"pin"`
}

// Create makes a PIN-protected gallery for one of the account's bookings.
func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())

	var req galleryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	b, err := h.bookings.GetByID(req.BookingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booking")
		return
	}
	if b == nil || b.AccountID != accountID {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if existing, err := h.galleries.GetByBookingID(b.ID); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "booking already has a gallery")
		return
	}

	g, err := h.service.Create(accountID, b.ID, req.Title, req.PIN)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// Upload accepts a multipart photo upload into the gallery.
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	g := h.loadOwned(w, r)
	if g == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "only image uploads are accepted")
		return
	}

	photo, err := h.service.UploadPhoto(r.Context(), g.ID, header.Filename, contentType, header.Size, file)
	if err != nil {
		h.logger.Error("upload photo", "gallery_id", g.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// ListPhotos returns the gallery's photos to the owner.
func (h *GalleryHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	g := h.loadOwned(w, r)
	if g == nil {
		return
	}
	photos, err := h.galleries.ListPhotos(g.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	if photos == nil {
		photos = []model.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

// DeletePhoto removes a photo object and record.
func (h *GalleryHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	photo, err := h.galleries.GetPhoto(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}
	if photo == nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	g, err := h.galleries.GetByID(photo.GalleryID)
	if err != nil || g == nil || g.AccountID != auth.AccountID(r.Context()) {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	if err := h.service.RemovePhoto(r.Context(), photo); err != nil {
		h.logger.Error("remove photo", "photo_id", photo.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove photo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// VerifyPIN is the public gallery entry point: the client supplies the slug
// and PIN and receives the photo listing.
func (h *GalleryHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	g, ok := h.checkPublicAccess(w, r, func() string {
		var req pinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ""
		}
		return req.PIN
	})
	if !ok {
		return
	}

	photos, err := h.galleries.ListPhotos(g.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	if photos == nil {
		photos = []model.Photo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":  g.Title,
		"photos": photos,
	})
}

// ServePhoto streams one photo to a visitor who knows the PIN.
func (h *GalleryHandler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	g, ok := h.checkPublicAccess(w, r, func() string {
		return r.URL.Query().Get("pin")
	})
	if !ok {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	photo, err := h.galleries.GetPhoto(id)
	if err != nil || photo == nil || photo.GalleryID != g.ID {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	rc, err := h.service.OpenPhoto(r.Context(), photo)
	if err != nil {
		h.logger.Error("open photo", "photo_id", photo.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to open photo")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", photo.ContentType)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("stream photo", "photo_id", photo.ID, "error", err)
	}
}

// checkPublicAccess resolves the slug and verifies the PIN produced by
// pinFn. Wrong PIN and unknown slug look identical to the caller.
func (h *GalleryHandler) checkPublicAccess(w http.ResponseWriter, r *http.Request, pinFn func() string) (*model.Gallery, bool) {
	slug := r.PathValue("slug")
	g, err := h.galleries.GetBySlug(slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load gallery")
		return nil, false
	}
	if g == nil || !h.service.VerifyPIN(g, pinFn()) {
		writeError(w, http.StatusUnauthorized, "invalid gallery or PIN")
		return nil, false
	}
	return g, true
}

// loadOwned fetches the gallery from the path id and enforces ownership.
func (h *GalleryHandler) loadOwned(w http.ResponseWriter, r *http.Request) *model.Gallery {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	g, err := h.galleries.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get gallery")
		return nil
	}
	if g == nil || g.AccountID != auth.AccountID(r.Context()) {
		writeError(w, http.StatusNotFound, "gallery not found")
		return nil
	}
	return g
}
