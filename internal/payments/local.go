package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"interviewhub/internal/models"
)

const localPrefix = "cs_local_"

// LocalGateway completes every checkout immediately. It is meant for
// development and tests, where the success redirect stands in for payment.
type LocalGateway struct {
	successURL string
}

func NewLocalGateway(successURL string) *LocalGateway {
	return &LocalGateway{successURL: successURL}
}

func (g *LocalGateway) Name() string { return "local" }

func (g *LocalGateway) CreateCheckout(_ context.Context, _ CheckoutRequest) (*Checkout, error) {
	id := localPrefix + uuid.NewString()
	url := strings.ReplaceAll(g.successURL, "{CHECKOUT_SESSION_ID}", id)
	return &Checkout{SessionID: id, URL: url, Method: "local"}, nil
}

func (g *LocalGateway) SessionStatus(_ context.Context, sessionID string) (SessionStatus, error) {
	if !strings.HasPrefix(sessionID, localPrefix) {
		return "", ErrUnknownSession
	}
	return SessionPaid, nil
}

func (g *LocalGateway) Refund(_ context.Context, sessionID string, _ models.Money) (string, error) {
	if !strings.HasPrefix(sessionID, localPrefix) {
		return "", ErrUnknownSession
	}
	return "re_local_" + uuid.NewString(), nil
}
