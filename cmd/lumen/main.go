package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hferris/lumen/internal/billing"
	"github.com/hferris/lumen/internal/database"
	"github.com/hferris/lumen/internal/email"
	"github.com/hferris/lumen/internal/gallery"
	"github.com/hferris/lumen/internal/gcal"
	"github.com/hferris/lumen/internal/logging"
	"github.com/hferris/lumen/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("LUMEN_LOG_LEVEL"))

	port := os.Getenv("LUMEN_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("LUMEN_DB_PATH")
	if dbPath == "" {
		dbPath = "lumen.db"
	}

	baseURL := os.Getenv("LUMEN_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("LUMEN_POSTMARK_TOKEN"),
		os.Getenv("LUMEN_FROM_EMAIL"),
		baseURL,
	)

	syncInterval := 15 * time.Minute
	if v := os.Getenv("LUMEN_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			syncInterval = d
		} else {
			logger.Warn("invalid LUMEN_SYNC_INTERVAL, using default", "value", v)
		}
	}

	cfg := server.Config{
		BaseURL: baseURL,
		OAuth: gcal.NewOAuthConfig(
			os.Getenv("LUMEN_GOOGLE_CLIENT_ID"),
			os.Getenv("LUMEN_GOOGLE_CLIENT_SECRET"),
			baseURL+"/auth/google/callback",
		),
		Stripe: billing.Config{
			SecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
			ProPriceID:       os.Getenv("STRIPE_PRO_PRICE_ID"),
			ProAnnualPriceID: os.Getenv("STRIPE_PRO_ANNUAL_PRICE_ID"),
			SuccessURL:       baseURL + "/settings?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:        baseURL + "/pricing",
		},
		S3: gallery.S3Config{
			Endpoint:  os.Getenv("LUMEN_S3_ENDPOINT"),
			Bucket:    os.Getenv("LUMEN_S3_BUCKET"),
			Region:    os.Getenv("LUMEN_S3_REGION"),
			AccessKey: os.Getenv("LUMEN_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("LUMEN_S3_SECRET_KEY"),
		},
		VAPIDPublicKey:  os.Getenv("LUMEN_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("LUMEN_VAPID_PRIVATE_KEY"),
		SyncInterval:    syncInterval,
	}

	srv := server.New(db, emailClient, cfg, logger)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.SyncScheduler().Start(bgCtx)
	defer srv.SyncScheduler().Stop()
	srv.PushScheduler().Start(bgCtx)
	defer srv.PushScheduler().Stop()

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("lumen running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
