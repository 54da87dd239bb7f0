package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	t.Run("known values are case-insensitive", func(t *testing.T) {
		s, err := ParseAvailabilityStatus("available")
		require.NoError(t, err)
		assert.Equal(t, AvailabilityAvailable, s)

		r, err := ParseRole(" Interviewer ")
		require.NoError(t, err)
		assert.Equal(t, RoleInterviewer, r)
	})

	t.Run("unknown values fail", func(t *testing.T) {
		_, err := ParseBookingStatus("PAID")
		assert.True(t, errors.Is(err, ErrUnknownValue))

		_, err = ParsePaymentStatus("")
		assert.True(t, errors.Is(err, ErrUnknownValue))

		_, err = ParseInterviewStatus("DONE")
		assert.Error(t, err)
	})
}

func TestTransitions(t *testing.T) {
	assert.True(t, AvailabilityAvailable.CanTransitionTo(AvailabilityBooked))
	assert.True(t, AvailabilityBooked.CanTransitionTo(AvailabilityAvailable))
	assert.False(t, AvailabilityBooked.CanTransitionTo(AvailabilityExpired))
	assert.False(t, AvailabilityExpired.CanTransitionTo(AvailabilityAvailable))

	assert.True(t, BookingPending.CanTransitionTo(BookingConfirmed))
	assert.False(t, BookingCancelled.CanTransitionTo(BookingConfirmed))

	assert.True(t, InterviewBooked.CanTransitionTo(InterviewCompleted))
	assert.False(t, InterviewCompleted.CanTransitionTo(InterviewCancelled))

	assert.True(t, PaymentPaid.CanTransitionTo(PaymentRefunded))
	assert.True(t, PaymentFailed.CanTransitionTo(PaymentPaid))
	assert.False(t, PaymentRefunded.CanTransitionTo(PaymentPending))

	assert.True(t, BookingPending.IsActive())
	assert.False(t, BookingCancelled.IsActive())
}

func TestMoney(t *testing.T) {
	m, err := ParseMoney("49.99")
	require.NoError(t, err)
	assert.Equal(t, Money(4999), m)
	assert.Equal(t, "49.99", m.String())

	_, err = ParseMoney("abc")
	assert.Error(t, err)

	var body struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 120.5}`), &body))
	assert.Equal(t, Money(12050), body.Price)

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 120.50}`, string(out))
}

func TestAvailabilityResolve(t *testing.T) {
	tests := []struct {
		name    string
		slot    Availability
		wantErr bool
	}{
		{"valid utc", Availability{Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00"}, false},
		{"valid zone", Availability{Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Timezone: "Europe/Berlin"}, false},
		{"end equals start", Availability{Date: "2025-06-01", StartTime: "10:00", EndTime: "10:00"}, true},
		{"end before start", Availability{Date: "2025-06-01", StartTime: "11:00", EndTime: "10:00"}, true},
		{"bad date", Availability{Date: "01-06-2025", StartTime: "10:00", EndTime: "11:00"}, true},
		{"bad zone", Availability{Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Timezone: "Mars/Base"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.slot
			err := a.Resolve()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.Hour, a.Duration())
		})
	}

	t.Run("berlin offset", func(t *testing.T) {
		a := Availability{Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00", Timezone: "Europe/Berlin"}
		require.NoError(t, a.Resolve())
		assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), a.StartsAt)
	})
}

func TestAvailabilityPatch(t *testing.T) {
	a := Availability{Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00"}
	require.NoError(t, a.Resolve())

	end := "12:30"
	require.NoError(t, AvailabilityPatch{EndTime: &end}.Apply(&a))
	assert.Equal(t, "10:00", a.StartTime)
	assert.Equal(t, 150*time.Minute, a.Duration())

	bad := "09:00"
	assert.ErrorIs(t, AvailabilityPatch{EndTime: &bad}.Apply(&a), ErrInvalidWindow)
}

func TestInterviewEndTime(t *testing.T) {
	slot := &Availability{InterviewerID: 3, Date: "2025-06-01", StartTime: "10:00", EndTime: "11:00"}
	require.NoError(t, slot.Resolve())

	iv, err := InterviewFromSlot(&Booking{ID: 9, IntervieweeID: 4}, slot)
	require.NoError(t, err)
	assert.Equal(t, 60, iv.Duration)
	assert.Equal(t, "11:00", iv.EndTime)
	assert.Equal(t, InterviewBooked, iv.Status)
	assert.Equal(t, iv.StartsAt.Add(time.Hour), iv.EndsAt)

	d := 45
	require.NoError(t, InterviewPatch{Duration: &d}.Apply(iv))
	assert.Equal(t, "10:45", iv.EndTime)

	start := "23:30"
	require.NoError(t, InterviewPatch{StartTime: &start}.Apply(iv))
	assert.Equal(t, "00:15", iv.EndTime)
	assert.Equal(t, iv.StartsAt.Add(45*time.Minute), iv.EndsAt)

	zero := 0
	assert.Error(t, InterviewPatch{Duration: &zero}.Apply(iv))
}

func TestVerificationExpired(t *testing.T) {
	now := time.Now()
	v := Verification{ExpiresAt: now.Add(15 * time.Minute)}
	assert.False(t, v.Expired(now))
	assert.True(t, v.Expired(now.Add(15*time.Minute)))
}
