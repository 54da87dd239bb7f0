package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrInvalidSignature means the webhook payload was not signed with our secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookOutcome is what a webhook asks us to do with a session.
type WebhookOutcome int

const (
	WebhookIgnored WebhookOutcome = iota
	WebhookPaid
	WebhookFailed
)

type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	Outcome   WebhookOutcome
}

// WebhookVerifier checks Stripe-Signature headers.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Parse verifies the signature and classifies checkout session events.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (*WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed", "checkout.session.expired":
	default:
		return out, nil
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("webhook %s has no data", ev.ID)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = s.ID

	switch ev.Type {
	case "checkout.session.completed":
		// Delayed payment methods complete unpaid and settle with async_payment_succeeded.
		if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			out.Outcome = WebhookPaid
		}
	case "checkout.session.async_payment_succeeded":
		out.Outcome = WebhookPaid
	default:
		out.Outcome = WebhookFailed
	}
	return out, nil
}
