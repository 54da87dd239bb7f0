package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/apperr"
	"interviewhub/internal/database"
	"interviewhub/internal/events"
	"interviewhub/internal/models"
	"interviewhub/internal/payments"
	"interviewhub/internal/slots"
)

func TestAvailabilityRegisterValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		start, end string
		tz         string
		kind       apperr.Kind
	}{
		{"end before start", "11:00", "10:00", "UTC", apperr.KindBadRequest},
		{"empty window", "10:00", "10:00", "UTC", apperr.KindBadRequest},
		{"bad clock", "25:00", "26:00", "UTC", apperr.KindBadRequest},
		{"bad zone", "10:00", "11:00", "Mars/Olympus", apperr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.availability.Register(ctx, RegisterAvailabilityRequest{
				InterviewerID: e.interviewer.ID, Date: "2030-06-01", StartTime: tt.start, EndTime: tt.end, Timezone: tt.tz,
			})
			assertKind(t, err, tt.kind)
		})
	}

	list, err := e.availability.ListByInterviewer(ctx, e.interviewer.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAvailabilityOverlapAndUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.slot(t, "2030-06-01", "10:00", "11:00")

	_, err := e.availability.Register(ctx, RegisterAvailabilityRequest{
		InterviewerID: e.interviewer.ID, Date: "2030-06-01", StartTime: "10:30", EndTime: "11:30",
	})
	assertKind(t, err, apperr.KindConflict)

	_, err = e.availability.Register(ctx, RegisterAvailabilityRequest{
		InterviewerID: 999, Date: "2030-06-01", StartTime: "12:00", EndTime: "13:00",
	})
	assertKind(t, err, apperr.KindNotFound)

	end := "09:00"
	_, err = e.availability.Update(ctx, a.ID, models.AvailabilityPatch{EndTime: &end})
	assertKind(t, err, apperr.KindBadRequest)

	end = "11:30"
	updated, err := e.availability.Update(ctx, a.ID, models.AvailabilityPatch{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "11:30", updated.EndTime)

	e.book(t, a.ID)
	start := "10:15"
	_, err = e.availability.Update(ctx, a.ID, models.AvailabilityPatch{StartTime: &start})
	assertKind(t, err, apperr.KindConflict)

	booked := models.AvailabilityBooked
	other := e.slot(t, "2030-06-02", "10:00", "11:00")
	_, err = e.availability.Update(ctx, other.ID, models.AvailabilityPatch{Status: &booked})
	assertKind(t, err, apperr.KindBadRequest)

	_, err = e.availability.ListByInterviewer(ctx, e.interviewer.ID, "sleeping")
	assertKind(t, err, apperr.KindBadRequest)
	list, err := e.availability.ListByInterviewer(ctx, e.interviewer.ID, "available")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
}

func TestAvailabilityGenerateSkipsTakenSlots(t *testing.T) {
	e := newEnv(t)
	e.slot(t, "2030-06-01", "10:00", "11:00")

	created, err := e.availability.Generate(context.Background(), GenerateRequest{
		InterviewerID: e.interviewer.ID,
		Date:          "2030-06-01",
		Timezone:      "UTC",
		Schedule: slots.Schedule{
			DayStart: "09:00", DayEnd: "13:00", BreakStart: "12:00", BreakEnd: "12:30", SlotMinutes: 60,
		},
	})
	require.NoError(t, err)

	var starts []string
	for _, a := range created {
		starts = append(starts, a.StartTime)
	}
	assert.Equal(t, []string{"09:00", "11:00"}, starts)
}

func TestBookingConcurrentCreateOnlyOneWins(t *testing.T) {
	e := newEnv(t)
	a := e.slot(t, "2030-06-01", "10:00", "11:00")

	const n = 2
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.bookings.Create(context.Background(), CreateBookingRequest{
				IntervieweeID: e.interviewee.ID, AvailabilityID: a.ID, TotalPrice: 5000,
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, e.bus.count(events.BookingCreated))

	slot, err := e.availability.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityBooked, slot.Status)
}

func TestBookingCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.slot(t, "2030-06-01", "10:00", "11:00")

	_, err := e.bookings.Create(ctx, CreateBookingRequest{IntervieweeID: e.interviewee.ID, AvailabilityID: a.ID})
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.bookings.Create(ctx, CreateBookingRequest{IntervieweeID: e.interviewee.ID, AvailabilityID: 999, TotalPrice: 100})
	assertKind(t, err, apperr.KindNotFound)
	_, err = e.bookings.Create(ctx, CreateBookingRequest{
		IntervieweeID: e.interviewee.ID, AvailabilityID: a.ID, TotalPrice: 100, BookingDate: "01/06/2030",
	})
	assertKind(t, err, apperr.KindBadRequest)

	e.bookings.now = func() time.Time { return time.Date(2030, 5, 20, 8, 0, 0, 0, time.UTC) }
	b := e.book(t, a.ID)
	assert.Equal(t, "2030-05-20", b.BookingDate)
	assert.Equal(t, models.BookingPending, b.PaymentStatus)
}

func TestBookingCancelReleasesSlotAndInterview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.paidInterview(t, "2025-06-01")

	b, err := e.bookings.Cancel(ctx, res.Booking.ID, "schedule conflict")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.PaymentStatus)
	assert.Equal(t, "schedule conflict", b.CancellationReason)

	slot, err := e.availability.Get(ctx, b.AvailabilityID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityAvailable, slot.Status)

	iv, err := e.interviews.Get(ctx, res.Interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCancelled, iv.Status)

	_, err = e.bookings.Cancel(ctx, b.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, 1, e.bus.count(events.BookingCancelled))
	assert.Equal(t, 1, e.bus.count(events.InterviewCancelled))

	_, err = e.bookings.Cancel(ctx, 999, "")
	assertKind(t, err, apperr.KindNotFound)
}

func TestBookingConfirmRequiresItsOwnPaidCheckout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	other := e.book(t, e.slot(t, "2030-06-02", "10:00", "11:00").ID)

	_, err := e.bookings.Confirm(ctx, b.ID, "")
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.bookings.Confirm(ctx, b.ID, "made-up")
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.bookings.Confirm(ctx, 999, "made-up")
	assertKind(t, err, apperr.KindNotFound)

	foreign, err := e.payments.InitiateCheckout(ctx, other.ID, 0)
	require.NoError(t, err)
	_, err = e.bookings.Confirm(ctx, b.ID, foreign.TransactionID)
	assertKind(t, err, apperr.KindBadRequest)

	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	e.withSessionStatus(payments.SessionOpen)
	_, err = e.bookings.Confirm(ctx, b.ID, p.TransactionID)
	assertKind(t, err, apperr.KindConflict)

	pending, err := e.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, pending.PaymentStatus)
	_, err = e.db.GetInterviewByBooking(ctx, b.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	e.withSessionStatus(payments.SessionPaid)
	confirmed, err := e.bookings.Confirm(ctx, b.ID, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.PaymentStatus)
	assert.Equal(t, p.TransactionID, confirmed.TransactionID)
	_, err = e.bookings.Confirm(ctx, b.ID, p.TransactionID)
	require.NoError(t, err)

	iv, err := e.db.GetInterviewByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "11:00", iv.EndTime)
	assert.NotEmpty(t, iv.InterviewLink)
	assert.Equal(t, 1, e.bus.count(events.PaymentConfirmed))
	assert.Equal(t, 1, e.bus.count(events.InterviewCreated))

	_, err = e.interviews.CreateFromBooking(ctx, b.ID)
	assertKind(t, err, apperr.KindConflict)

	list, err := e.bookings.ListByInterviewee(ctx, e.interviewee.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
