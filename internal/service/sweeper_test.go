package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/events"
	"interviewhub/internal/models"
)

func TestSweeperIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.paidInterview(t, "2025-06-01")
	open := e.slot(t, "2025-06-02", "09:00", "10:00")
	future := e.slot(t, "2030-06-02", "09:00", "10:00")

	logger := zerolog.New(io.Discard)
	sweeper := NewSweeper(e.interviews, e.availability, time.Minute, &logger)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := sweeper.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{res.Interview.ID}, first.Completed)
	assert.Equal(t, int64(1), first.Expired)

	second, err := sweeper.RunOnce(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, second.Completed)
	assert.Zero(t, second.Expired)
	assert.Equal(t, 1, e.bus.count(events.InterviewCompleted))

	iv, err := e.interviews.Get(ctx, res.Interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, iv.Status)

	got, err := e.availability.Get(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityExpired, got.Status)
	got, err = e.availability.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityAvailable, got.Status)
}

func TestSweeperComparesFullInstant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	// Late in the day on a past date: a time-of-day comparison at 08:00 would miss it.
	b := e.book(t, e.slot(t, "2025-06-01", "22:00", "23:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	res, err := e.payments.HandleSuccess(ctx, p.TransactionID)
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	sweeper := NewSweeper(e.interviews, e.availability, time.Minute, &logger)
	out, err := sweeper.RunOnce(ctx, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int64{res.Interview.ID}, out.Completed)
}

func TestSweeperStartStop(t *testing.T) {
	e := newEnv(t)
	logger := zerolog.New(io.Discard)
	sweeper := NewSweeper(e.interviews, e.availability, 10*time.Millisecond, &logger)

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()
	require.Eventually(t, sweeper.IsRunning, time.Second, 5*time.Millisecond)
	sweeper.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.False(t, sweeper.IsRunning())
}
