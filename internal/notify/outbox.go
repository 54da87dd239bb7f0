package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/metrics"
)

var (
	ErrOutboxFull   = errors.New("notify: outbox full")
	ErrOutboxClosed = errors.New("notify: outbox closed")
)

// Poster posts a text to a chat.
type Poster interface {
	Post(ctx context.Context, text string) error
}

type delivery struct {
	channel string
	run     func(ctx context.Context) error
}

// Outbox hands deliveries to background workers so the caller returns once a
// message is queued. The queue is bounded and refuses work when full. Each
// delivery gets its own deadline, detached from the caller's context.
type Outbox struct {
	queue   chan delivery
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewOutbox(size int, timeout time.Duration, logger *zerolog.Logger) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{
		queue:   make(chan delivery, size),
		timeout: timeout,
		logger:  logger.With().Str("component", "outbox").Logger(),
	}
}

// Start launches the workers. They run until Close.
func (o *Outbox) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go o.work()
	}
}

func (o *Outbox) work() {
	defer o.wg.Done()
	for d := range o.queue {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		err := d.run(ctx)
		cancel()
		if err != nil {
			metrics.IncDelivery(d.channel, "failed")
			o.logger.Warn().Err(err).Str("channel", d.channel).Msg("delivery failed")
			continue
		}
		metrics.IncDelivery(d.channel, "sent")
	}
}

func (o *Outbox) enqueue(d delivery) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.queue <- d:
		return nil
	default:
		metrics.IncDelivery(d.channel, "dropped")
		return ErrOutboxFull
	}
}

// Close stops taking work and waits for queued deliveries to finish.
func (o *Outbox) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// Mailer wraps m so Send only queues the message.
func (o *Outbox) Mailer(m Mailer) Mailer {
	return queuedMailer{outbox: o, next: m}
}

// Poster wraps p so Post only queues the text.
func (o *Outbox) Poster(p Poster) Poster {
	return queuedPoster{outbox: o, next: p}
}

type queuedMailer struct {
	outbox *Outbox
	next   Mailer
}

func (q queuedMailer) Send(_ context.Context, msg Message) error {
	return q.outbox.enqueue(delivery{channel: "mail", run: func(ctx context.Context) error {
		return q.next.Send(ctx, msg)
	}})
}

type queuedPoster struct {
	outbox *Outbox
	next   Poster
}

func (q queuedPoster) Post(_ context.Context, text string) error {
	return q.outbox.enqueue(delivery{channel: "chat", run: func(ctx context.Context) error {
		return q.next.Post(ctx, text)
	}})
}
