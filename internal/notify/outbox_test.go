package notify

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingMailer struct {
	release chan struct{}

	mu   sync.Mutex
	sent []Message
}

func (m *blockingMailer) Send(ctx context.Context, msg Message) error {
	select {
	case <-m.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *blockingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type chatFunc func(ctx context.Context, text string) error

func (f chatFunc) Post(ctx context.Context, text string) error { return f(ctx, text) }

func TestOutbox_SendDoesNotWaitForDelivery(t *testing.T) {
	logger := zerolog.New(io.Discard)
	o := NewOutbox(4, time.Second, &logger)
	o.Start(1)

	inner := &blockingMailer{release: make(chan struct{})}
	mailer := o.Mailer(inner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mailer.Send(ctx, Message{To: "a@b.c", Subject: "hi"}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Send blocked on delivery")
	}
	// The caller's context ending must not abort a queued delivery.
	cancel()
	assert.Zero(t, inner.count())

	close(inner.release)
	o.Close()
	assert.Equal(t, 1, inner.count())
}

func TestOutbox_BoundedQueue(t *testing.T) {
	logger := zerolog.New(io.Discard)
	o := NewOutbox(1, time.Second, &logger)

	var mu sync.Mutex
	var posted []string
	chat := o.Poster(chatFunc(func(_ context.Context, text string) error {
		mu.Lock()
		defer mu.Unlock()
		posted = append(posted, text)
		return nil
	}))

	require.NoError(t, chat.Post(context.Background(), "first"))
	assert.ErrorIs(t, chat.Post(context.Background(), "second"), ErrOutboxFull)

	o.Start(2)
	o.Close()
	assert.Equal(t, []string{"first"}, posted)
	assert.ErrorIs(t, chat.Post(context.Background(), "late"), ErrOutboxClosed)
}

func TestOutbox_DeliveryDeadline(t *testing.T) {
	logger := zerolog.New(io.Discard)
	o := NewOutbox(1, 20*time.Millisecond, &logger)
	o.Start(1)

	inner := &blockingMailer{release: make(chan struct{})}
	require.NoError(t, o.Mailer(inner).Send(context.Background(), Message{To: "a@b.c"}))

	start := time.Now()
	o.Close()
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, inner.count())
}
