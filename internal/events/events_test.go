package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestEventBus_PublishRoutesByType(t *testing.T) {
	bus := NewEventBus(testLogger())

	var got []string
	bus.Subscribe(BookingCreated, func(_ context.Context, e Event) error {
		got = append(got, "typed:"+e.Type)
		return nil
	})
	bus.SubscribeAll(func(_ context.Context, e Event) error {
		got = append(got, "all:"+e.Type)
		return nil
	})

	bus.PublishJSON(context.Background(), BookingCreated, BookingPayload{BookingID: 7})
	bus.PublishJSON(context.Background(), PaymentFailed, PaymentPayload{TransactionID: "tx"})

	assert.Equal(t, []string{"typed:booking.created", "all:booking.created", "all:payment.failed"}, got)
}

func TestEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus(testLogger())
	calls := 0
	bus.Subscribe(InterviewCreated, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	bus.Subscribe(InterviewCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), Event{Type: InterviewCreated, Payload: json.RawMessage(`{}`)})
	assert.Equal(t, 2, calls)
}

func TestEvent_Decode(t *testing.T) {
	bus := NewEventBus(testLogger())
	var decoded InterviewPayload
	bus.Subscribe(InterviewCreated, func(_ context.Context, e Event) error {
		assert.False(t, e.CreatedAt.IsZero())
		return e.Decode(&decoded)
	})
	bus.PublishJSON(context.Background(), InterviewCreated, InterviewPayload{InterviewID: 3, StartTime: "10:00"})
	assert.Equal(t, int64(3), decoded.InterviewID)
	assert.Equal(t, "10:00", decoded.StartTime)
}

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestForwarder_PublishesAndSkipsOTP(t *testing.T) {
	ch := &fakeChannel{}
	fwd := newForwarder(nil, ch, "interviewhub.events", testLogger())
	bus := NewEventBus(testLogger())
	fwd.Attach(bus)

	bus.PublishJSON(context.Background(), PaymentConfirmed, PaymentPayload{PaymentID: 1, TransactionID: "tx1"})
	bus.PublishJSON(context.Background(), VerificationOTP, OTPPayload{UserID: 1, Code: "123456"})

	require.Len(t, ch.published, 1)
	assert.Equal(t, PaymentConfirmed, ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var e Event
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &e))
	var p PaymentPayload
	require.NoError(t, e.Decode(&p))
	assert.Equal(t, "tx1", p.TransactionID)
}
