package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/billing"
	"github.com/hferris/lumen/internal/store"
)

type CheckoutHandler struct {
	accounts *store.AccountStore
	stripe   *billing.Client
	baseURL  string
	logger   *slog.Logger
}

func NewCheckoutHandler(as *store.AccountStore, sc *billing.Client, baseURL string, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		accounts: as,
		stripe:   sc,
		baseURL:  baseURL,
		logger:   logger,
	}
}

type checkoutRequest struct {
	Interval string `json:"interval"` // "monthly" or "annual"
}

// CreateCheckout starts a Stripe checkout for the pro plan, creating the
// Stripe customer on first use.
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if !h.stripe.Configured() {
		writeError(w, http.StatusNotFound, "billing is not configured")
		return
	}

	account, err := h.accounts.GetByID(auth.AccountID(r.Context()))
	if err != nil || account == nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	customerID := ""
	if account.StripeCustomerID != nil {
		customerID = *account.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = h.stripe.CreateCustomer(account.Email, account.Name)
		if err != nil {
			h.logger.Error("create stripe customer", "error", err)
			writeError(w, http.StatusBadGateway, "failed to create customer")
			return
		}
		if err := h.accounts.SetStripeCustomerID(account.ID, customerID); err != nil {
			h.logger.Error("store stripe customer id", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save customer")
			return
		}
	}

	url, err := h.stripe.CreateCheckoutSession(customerID, h.stripe.PriceIDForPlan(req.Interval))
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		writeError(w, http.StatusBadGateway, "failed to start checkout")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// CreatePortal opens the Stripe customer portal for subscription management.
func (h *CheckoutHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	if !h.stripe.Configured() {
		writeError(w, http.StatusNotFound, "billing is not configured")
		return
	}

	account, err := h.accounts.GetByID(auth.AccountID(r.Context()))
	if err != nil || account == nil {
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if account.StripeCustomerID == nil || *account.StripeCustomerID == "" {
		writeError(w, http.StatusConflict, "no billing profile yet")
		return
	}

	url, err := h.stripe.CreateBillingPortalSession(*account.StripeCustomerID, h.baseURL+"/settings")
	if err != nil {
		h.logger.Error("create portal session", "error", err)
		writeError(w, http.StatusBadGateway, "failed to open billing portal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
