package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type completionSweeper interface {
	SweepCompletions(ctx context.Context, now time.Time) ([]int64, error)
}

type expirySweeper interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweepResult counts the transitions of one sweep.
type SweepResult struct {
	Completed []int64
	Expired   int64
}

// Sweeper periodically advances time-dependent statuses: overdue interviews
// become COMPLETED and unbooked past slots become EXPIRED.
type Sweeper struct {
	interviews completionSweeper
	slots      expirySweeper
	interval   time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewSweeper(interviews completionSweeper, slots expirySweeper, interval time.Duration, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		interviews: interviews,
		slots:      slots,
		interval:   interval,
		logger:     logger.With().Str("component", "sweeper").Logger(),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until ctx is done
// or Stop is called. It blocks.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx, s.now().UTC()); err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
	}
}

// RunOnce performs a single sweep at now. Running it twice with the same
// now leaves the same state as running it once.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult
	completed, err := s.interviews.SweepCompletions(ctx, now)
	if err != nil {
		return res, err
	}
	res.Completed = completed

	if res.Expired, err = s.slots.MarkExpired(ctx, now); err != nil {
		return res, err
	}
	if len(res.Completed) > 0 || res.Expired > 0 {
		s.logger.Info().Int("completed", len(res.Completed)).Int64("expired", res.Expired).Msg("sweep applied")
	}
	return res, nil
}
