package billing

import (
	"encoding/json"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/hferris/lumen/internal/store"
)

// Processor applies verified webhook events to local subscription state.
// Handlers log and return rather than erroring: Stripe retries delivery on
// non-2xx, and a malformed payload will not improve on retry.
type Processor struct {
	accounts      *store.AccountStore
	subscriptions *store.SubscriptionStore
	logger        *slog.Logger
}

func NewProcessor(accounts *store.AccountStore, subscriptions *store.SubscriptionStore, logger *slog.Logger) *Processor {
	return &Processor{
		accounts:      accounts,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// HandleEvent dispatches a verified Stripe event. Unrecognized event types
// are ignored.
func (p *Processor) HandleEvent(event stripe.Event) {
	switch event.Type {
	case "checkout.session.completed":
		p.handleCheckoutCompleted(event)
	case "invoice.paid":
		p.handleInvoicePaid(event)
	case "invoice.payment_failed":
		p.handleInvoicePaymentFailed(event)
	case "customer.subscription.updated":
		p.handleSubscriptionUpdated(event)
	case "customer.subscription.deleted":
		p.handleSubscriptionDeleted(event)
	}
}

func (p *Processor) handleCheckoutCompleted(event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		p.logger.Error("webhook: unmarshal checkout session", "error", err)
		return
	}

	var email string
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		p.logger.Error("webhook: checkout session missing email")
		return
	}

	// The owner signs in with Google before checkout, so the account exists.
	account, err := p.accounts.GetByEmail(email)
	if err != nil {
		p.logger.Error("webhook: get account by email", "error", err)
		return
	}
	if account == nil {
		p.logger.Error("webhook: checkout for unknown account", "email", email)
		return
	}

	if sess.Customer != nil {
		if err := p.accounts.SetStripeCustomerID(account.ID, sess.Customer.ID); err != nil {
			p.logger.Error("webhook: set stripe customer id", "error", err)
		}
	}

	sub, err := p.subscriptions.Create(account.ID, "pro")
	if err != nil {
		p.logger.Error("webhook: create subscription", "error", err)
		return
	}

	if sess.Subscription != nil {
		if err := p.subscriptions.UpdateStripeID(sub.ID, sess.Subscription.ID); err != nil {
			p.logger.Error("webhook: update stripe subscription id", "error", err)
		}
	}
	if err := p.subscriptions.UpdateStatus(sub.ID, "active"); err != nil {
		p.logger.Error("webhook: activate subscription", "error", err)
	}

	p.logger.Info("webhook: checkout completed", "email", email)
}

// subscriptionIDFromInvoice extracts the subscription ID from an invoice's parent.
func subscriptionIDFromInvoice(invoice stripe.Invoice) string {
	if invoice.Parent != nil &&
		invoice.Parent.SubscriptionDetails != nil &&
		invoice.Parent.SubscriptionDetails.Subscription != nil {
		return invoice.Parent.SubscriptionDetails.Subscription.ID
	}
	return ""
}

func (p *Processor) handleInvoicePaid(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		p.logger.Error("webhook: unmarshal invoice", "error", err)
		return
	}

	subID := subscriptionIDFromInvoice(invoice)
	if subID == "" {
		return
	}

	sub, err := p.subscriptions.GetByStripeID(subID)
	if err != nil || sub == nil {
		p.logger.Error("webhook: get subscription for invoice.paid", "stripe_id", subID, "error", err)
		return
	}

	if err := p.subscriptions.UpdateStatus(sub.ID, "active"); err != nil {
		p.logger.Error("webhook: update subscription status", "error", err)
	}
	if invoice.PeriodEnd > 0 {
		periodEnd := time.Unix(invoice.PeriodEnd, 0).UTC()
		if err := p.subscriptions.UpdatePeriod(sub.ID, periodEnd, sub.CancelAtPeriodEnd); err != nil {
			p.logger.Error("webhook: update subscription period", "error", err)
		}
	}
}

func (p *Processor) handleInvoicePaymentFailed(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		p.logger.Error("webhook: unmarshal invoice", "error", err)
		return
	}

	subID := subscriptionIDFromInvoice(invoice)
	if subID == "" {
		return
	}

	sub, err := p.subscriptions.GetByStripeID(subID)
	if err != nil || sub == nil {
		return
	}

	if err := p.subscriptions.UpdateStatus(sub.ID, "past_due"); err != nil {
		p.logger.Error("webhook: mark subscription past_due", "error", err)
	}
}

func (p *Processor) handleSubscriptionUpdated(event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		p.logger.Error("webhook: unmarshal subscription", "error", err)
		return
	}

	sub, err := p.subscriptions.GetByStripeID(stripeSub.ID)
	if err != nil || sub == nil {
		return
	}

	if err := p.subscriptions.UpdateStatus(sub.ID, string(stripeSub.Status)); err != nil {
		p.logger.Error("webhook: update subscription status", "error", err)
	}
	if err := p.subscriptions.SetCancelAtPeriodEnd(sub.ID, stripeSub.CancelAtPeriodEnd); err != nil {
		p.logger.Error("webhook: set cancel at period end", "error", err)
	}
}

func (p *Processor) handleSubscriptionDeleted(event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		p.logger.Error("webhook: unmarshal subscription", "error", err)
		return
	}

	sub, err := p.subscriptions.GetByStripeID(stripeSub.ID)
	if err != nil || sub == nil {
		return
	}

	if err := p.subscriptions.UpdateStatus(sub.ID, "canceled"); err != nil {
		p.logger.Error("webhook: cancel subscription", "error", err)
	}
}
