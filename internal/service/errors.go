package service

import (
	"context"
	"errors"

	"interviewhub/internal/apperr"
	"interviewhub/internal/database"
	"interviewhub/internal/models"
)

// Publisher emits domain events after a state change commits.
type Publisher interface {
	PublishJSON(ctx context.Context, eventType string, payload any)
}

// storeErr classifies a database or model error for the API. Unknown
// failures become Internal with op as the client message.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	var kind apperr.Kind
	switch {
	case errors.Is(err, database.ErrNotFound):
		kind = apperr.KindNotFound
	case errors.Is(err, database.ErrNotAvailable),
		errors.Is(err, database.ErrDuplicate),
		errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, database.ErrInvalidState):
		kind = apperr.KindConflict
	case errors.Is(err, models.ErrUnknownValue), errors.Is(err, models.ErrInvalidWindow):
		kind = apperr.KindBadRequest
	default:
		return apperr.Internal(op, err)
	}
	return &apperr.Error{Kind: kind, Msg: err.Error()}
}
