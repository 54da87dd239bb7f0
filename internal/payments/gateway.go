// Package payments talks to the external payment processor.
package payments

import (
	"context"
	"errors"

	"interviewhub/internal/models"
)

// ErrUnknownSession is returned for a session id the gateway never issued.
var ErrUnknownSession = errors.New("unknown checkout session")

// SessionStatus is the processor-side state of a checkout session.
type SessionStatus string

const (
	SessionOpen    SessionStatus = "open"
	SessionPaid    SessionStatus = "paid"
	SessionExpired SessionStatus = "expired"
)

type CheckoutRequest struct {
	BookingID   int64
	Amount      models.Money
	Currency    string
	Description string
	Email       string
}

// Checkout is a created checkout session.
type Checkout struct {
	SessionID string
	URL       string
	Method    string
}

// Gateway is the payment processor boundary.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	SessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
	// Refund returns the processor's refund id.
	Refund(ctx context.Context, sessionID string, amount models.Money) (string, error)
}
