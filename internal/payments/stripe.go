package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"interviewhub/internal/models"
)

// StripeGateway uses Stripe Checkout in payment mode.
type StripeGateway struct {
	api        *client.API
	successURL string
	cancelURL  string
}

func NewStripeGateway(secretKey, successURL, cancelURL string) *StripeGateway {
	return NewStripeGatewayWithBackends(secretKey, successURL, cancelURL, nil)
}

// NewStripeGatewayWithBackends allows pointing the client at another API host.
func NewStripeGatewayWithBackends(secretKey, successURL, cancelURL string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{
		api:        client.New(secretKey, backends),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(req.BookingID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
				UnitAmount: stripe.Int64(int64(req.Amount)),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata("booking_id", strconv.FormatInt(req.BookingID, 10))

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &Checkout{SessionID: s.ID, URL: s.URL, Method: "card"}, nil
}

func (g *StripeGateway) SessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return "", fmt.Errorf("%s: %w", sessionID, ErrUnknownSession)
		}
		return "", fmt.Errorf("stripe get checkout session: %w", err)
	}
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return SessionPaid, nil
	case s.Status == stripe.CheckoutSessionStatusExpired:
		return SessionExpired, nil
	default:
		return SessionOpen, nil
	}
}

func (g *StripeGateway) Refund(ctx context.Context, sessionID string, amount models.Money) (string, error) {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	s, err := g.api.CheckoutSessions.Get(sessionID, getParams)
	if err != nil {
		return "", fmt.Errorf("stripe get checkout session: %w", err)
	}
	if s.PaymentIntent == nil || s.PaymentIntent.ID == "" {
		return "", fmt.Errorf("checkout session %s has no payment intent", sessionID)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(s.PaymentIntent.ID),
		Amount:        stripe.Int64(int64(amount)),
	}
	params.Context = ctx
	r, err := g.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund: %w", err)
	}
	return r.ID, nil
}
