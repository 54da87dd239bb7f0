package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// channel is the subset of *amqp.Channel the forwarder uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Forwarder republishes bus events to a RabbitMQ topic exchange, routed by event type.
type Forwarder struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	skip     map[string]bool
	logger   *zerolog.Logger
}

func NewForwarder(url, exchange string, logger *zerolog.Logger) (*Forwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return newForwarder(conn, ch, exchange, logger), nil
}

func newForwarder(conn *amqp.Connection, ch channel, exchange string, logger *zerolog.Logger) *Forwarder {
	return &Forwarder{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		skip:     map[string]bool{VerificationOTP: true},
		logger:   logger,
	}
}

// Attach subscribes the forwarder to every event on bus.
func (f *Forwarder) Attach(bus *EventBus) {
	bus.SubscribeAll(f.Handle)
}

// Handle publishes one event. OTP events are kept in-process.
func (f *Forwarder) Handle(ctx context.Context, event Event) error {
	if f.skip[event.Type] {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = f.ch.PublishWithContext(ctx, f.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	f.logger.Debug().Str("event", event.Type).Str("exchange", f.exchange).Msg("event forwarded")
	return nil
}

func (f *Forwarder) Close() error {
	if f.ch != nil {
		_ = f.ch.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
