package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/models"
)

// Event types published by the services.
const (
	BookingCreated     = "booking.created"
	BookingCancelled   = "booking.cancelled"
	PaymentConfirmed   = "payment.confirmed"
	PaymentFailed      = "payment.failed"
	PaymentRefunded    = "payment.refunded"
	InterviewCreated   = "interview.created"
	InterviewCancelled = "interview.cancelled"
	InterviewCompleted = "interview.completed"
	VerificationOTP    = "verification.otp"
)

// wildcard subscribers receive every event type.
const wildcard = "*"

// Event represents a lightweight domain event.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type BookingPayload struct {
	BookingID      int64        `json:"bookingId"`
	AvailabilityID int64        `json:"availabilityId"`
	IntervieweeID  int64        `json:"intervieweeId"`
	TotalPrice     models.Money `json:"totalPrice"`
	Reason         string       `json:"reason,omitempty"`
}

type PaymentPayload struct {
	PaymentID     int64        `json:"paymentId"`
	BookingID     int64        `json:"bookingId"`
	TransactionID string       `json:"transactionId"`
	Amount        models.Money `json:"amount"`
	Currency      string       `json:"currency"`
	InterviewID   *int64       `json:"interviewId,omitempty"`
}

type InterviewPayload struct {
	InterviewID int64  `json:"interviewId"`
	BookingID   int64  `json:"bookingId"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	Timezone    string `json:"timezone"`
	Link        string `json:"link,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// OTPPayload carries a one-time code to its delivery channel. It never leaves the process.
type OTPPayload struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EventHandler reacts to an event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.Subscribe(wildcard, handler)
}

// Publish notifies subscribers of the event type. Handler errors are logged,
// never returned: the state change that produced the event is already committed.
func (b *EventBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[wildcard]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *EventBus) PublishJSON(ctx context.Context, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error().Err(err).Str("event", eventType).Msg("marshal event payload")
		return
	}
	b.Publish(ctx, Event{Type: eventType, Payload: raw})
}
