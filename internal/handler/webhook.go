package handler

import (
	"io"
	"net/http"

	"github.com/hferris/lumen/internal/billing"
)

type WebhookHandler struct {
	stripe    *billing.Client
	processor *billing.Processor
}

func NewWebhookHandler(sc *billing.Client, p *billing.Processor) *WebhookHandler {
	return &WebhookHandler{stripe: sc, processor: p}
}

// HandleStripeWebhook verifies and applies a Stripe event.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	event, err := h.stripe.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	h.processor.HandleEvent(event)
	w.WriteHeader(http.StatusOK)
}
