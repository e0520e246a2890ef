package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/hferris/lumen/internal/billing"
	"github.com/hferris/lumen/internal/calsync"
	"github.com/hferris/lumen/internal/email"
	"github.com/hferris/lumen/internal/gallery"
	"github.com/hferris/lumen/internal/gcal"
	"github.com/hferris/lumen/internal/handler"
	"github.com/hferris/lumen/internal/middleware"
	"github.com/hferris/lumen/internal/push"
	"github.com/hferris/lumen/internal/store"
	ws "github.com/hferris/lumen/internal/websocket"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	BaseURL         string
	OAuth           *oauth2.Config
	Stripe          billing.Config
	S3              gallery.S3Config
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	SyncInterval    time.Duration
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH     *handler.AuthHandler
	bookingH  *handler.BookingHandler
	clientH   *handler.ClientHandler
	syncH     *handler.SyncHandler
	galleryH  *handler.GalleryHandler
	pushH     *handler.PushHandler
	settingsH *handler.SettingsHandler
	checkoutH *handler.CheckoutHandler
	webhookH  *handler.WebhookHandler

	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	syncService   *calsync.Service
	syncScheduler *calsync.Scheduler
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	accountStore := store.NewAccountStore(db)
	sessionStore := store.NewSessionStore(db)
	clientStore := store.NewClientStore(db)
	bookingStore := store.NewBookingStore(db)
	galleryStore := store.NewGalleryStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	pushStore := store.NewPushStore(db)
	settingsStore := store.NewSettingsStore(db)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	pushSched := push.NewScheduler(pushSvc, pushStore, bookingStore, settingsStore, logger.With("component", "push"))

	newCalendar := func(ctx context.Context, tok *oauth2.Token) (gcal.API, error) {
		c, err := gcal.NewClient(ctx, cfg.OAuth, tok)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	syncSvc := calsync.NewService(accountStore, bookingStore, bookingStore, settingsStore, newCalendar, cfg.BaseURL, logger.With("component", "calsync"))

	// Failed scheduled syncs reach the owner on every channel they have
	// enabled; a silently broken sync defeats the point of the product.
	onSyncFailure := func(accountID int64, err error) {
		if pushSvc.Configured() {
			pushSched.NotifySyncFailed(accountID, err)
		}
		if !emailClient.Configured() {
			return
		}
		notify, serr := settingsStore.Get(accountID, store.SettingNotifyOnEmail, "true")
		if serr != nil || notify != "true" {
			return
		}
		account, aerr := accountStore.GetByID(accountID)
		if aerr != nil || account == nil {
			return
		}
		if merr := emailClient.SendSyncFailure(account.Email, err); merr != nil {
			logger.Error("send sync failure email", "account_id", accountID, "error", merr)
		}
	}
	syncSched := calsync.NewScheduler(syncSvc, accountStore, cfg.SyncInterval, onSyncFailure, logger.With("component", "calsync_scheduler"))

	gallerySvc := gallery.NewService(galleryStore, cfg.S3, logger.With("component", "gallery"))

	stripeClient := billing.NewClient(cfg.Stripe)
	processor := billing.NewProcessor(accountStore, subscriptionStore, logger.With("component", "billing"))

	return &Server{
		db:  db,
		hub: hub,

		authH:     handler.NewAuthHandler(accountStore, sessionStore, cfg.OAuth, logger.With("component", "auth")),
		bookingH:  handler.NewBookingHandler(bookingStore, clientStore, settingsStore, hub, emailClient, pushSched, logger.With("component", "booking")),
		clientH:   handler.NewClientHandler(clientStore, logger.With("component", "client")),
		syncH:     handler.NewSyncHandler(syncSvc, hub, logger.With("component", "sync")),
		galleryH:  handler.NewGalleryHandler(galleryStore, bookingStore, gallerySvc, logger.With("component", "gallery")),
		pushH:     handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		settingsH: handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		checkoutH: handler.NewCheckoutHandler(accountStore, stripeClient, cfg.BaseURL, logger.With("component", "checkout")),
		webhookH:  handler.NewWebhookHandler(stripeClient, processor),

		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(),
		syncService:   syncSvc,
		syncScheduler: syncSched,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// SyncScheduler returns the calendar sync scheduler.
func (s *Server) SyncScheduler() *calsync.Scheduler {
	return s.syncScheduler
}

// PushScheduler returns the reminder scheduler.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /auth/google/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("GET /auth/google/callback", s.rateLimited(s.authH.Callback))
	outerMux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)

	// Public client gallery: slug plus PIN, no account needed.
	outerMux.HandleFunc("POST /g/{slug}/verify", s.rateLimited(s.galleryH.VerifyPIN))
	outerMux.HandleFunc("GET /g/{slug}/photos/{id}", s.galleryH.ServePhoto)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("DELETE /api/calendar/connection", s.authH.DisconnectCalendar)

	// Bookings
	mux.HandleFunc("GET /api/bookings", s.bookingH.List)
	mux.HandleFunc("POST /api/bookings", s.bookingH.Create)
	mux.HandleFunc("GET /api/bookings/{id}", s.bookingH.Get)
	mux.HandleFunc("PUT /api/bookings/{id}", s.bookingH.Update)
	mux.HandleFunc("POST /api/bookings/{id}/cancel", s.bookingH.Cancel)
	mux.HandleFunc("DELETE /api/bookings/{id}", s.bookingH.Delete)

	// Clients
	mux.HandleFunc("GET /api/clients", s.clientH.List)
	mux.HandleFunc("POST /api/clients", s.clientH.Create)
	mux.HandleFunc("GET /api/clients/{id}", s.clientH.Get)
	mux.HandleFunc("PUT /api/clients/{id}", s.clientH.Update)
	mux.HandleFunc("DELETE /api/clients/{id}", s.clientH.Delete)

	// Calendar sync
	mux.HandleFunc("POST /api/sync", s.rateLimited(s.syncH.Run))

	// Galleries
	mux.HandleFunc("POST /api/galleries", s.galleryH.Create)
	mux.HandleFunc("GET /api/galleries/{id}/photos", s.galleryH.ListPhotos)
	mux.HandleFunc("POST /api/galleries/{id}/photos", s.galleryH.Upload)
	mux.HandleFunc("DELETE /api/photos/{id}", s.galleryH.DeletePhoto)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.List)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	// Billing
	mux.HandleFunc("POST /api/billing/checkout", s.checkoutH.CreateCheckout)
	mux.HandleFunc("POST /api/billing/portal", s.checkoutH.CreatePortal)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
