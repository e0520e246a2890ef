package handler

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/gcal"
	"github.com/hferris/lumen/internal/middleware"
	"github.com/hferris/lumen/internal/store"
)

const stateCookieName = "lumen_oauth_state"

// AuthHandler signs the studio owner in with Google. The OAuth consent
// doubles as calendar authorization: the token stored on the account is the
// one the sync engine uses.
type AuthHandler struct {
	accounts *store.AccountStore
	sessions *store.SessionStore
	oauth    *oauth2.Config
	logger   *slog.Logger
}

func NewAuthHandler(accounts *store.AccountStore, sessions *store.SessionStore, oauth *oauth2.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		oauth:    oauth,
		logger:   logger,
	}
}

// Login starts the OAuth flow.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	// offline + consent so Google issues a refresh token; without it the
	// stored token dies when the access token expires.
	url := h.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Callback completes the OAuth flow: exchange the code, resolve the user,
// persist the token, and mint a session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	tok, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth exchange", "error", err)
		http.Error(w, "Authentication failed", http.StatusBadGateway)
		return
	}

	info, err := gcal.FetchUserInfo(r.Context(), h.oauth, tok)
	if err != nil {
		h.logger.Error("fetch userinfo", "error", err)
		http.Error(w, "Authentication failed", http.StatusBadGateway)
		return
	}

	account, err := h.accounts.GetByEmail(info.Email)
	if err != nil {
		h.logger.Error("account lookup", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if account == nil {
		account, err = h.accounts.Create(info.Email, info.Name)
		if err != nil {
			h.logger.Error("create account", "error", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
	}

	encoded, err := gcal.EncodeToken(tok)
	if err != nil {
		h.logger.Error("encode token", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if err := h.accounts.SetGoogleToken(account.ID, encoded); err != nil {
		h.logger.Error("store token", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	sess, err := h.sessions.Create(account.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(auth.AccountID(r.Context()))
	if err != nil || account == nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 account.ID,
		"email":              account.Email,
		"name":               account.Name,
		"calendar_connected": account.CalendarConnected(),
	})
}

// DisconnectCalendar drops the stored Google token. Bookings keep their
// event links, so a later reconnect resumes syncing in place.
func (h *AuthHandler) DisconnectCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.ClearGoogleToken(auth.AccountID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect calendar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}
