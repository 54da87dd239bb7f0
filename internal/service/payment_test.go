package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"interviewhub/internal/apperr"
	"interviewhub/internal/events"
	"interviewhub/internal/models"
	"interviewhub/internal/payments"
)

func TestPaymentScenarioConfirmOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.slot(t, "2025-06-01", "10:00", "11:00")
	b := e.book(t, a.ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, models.Money(5000), p.Amount)
	assert.Contains(t, p.CheckoutURL, p.TransactionID)

	first, err := e.payments.HandleSuccess(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, models.BookingConfirmed, first.Booking.PaymentStatus)
	assert.Equal(t, models.InterviewBooked, first.Interview.Status)
	assert.Equal(t, "11:00", first.Interview.EndTime)
	assert.NotEmpty(t, first.Interview.InterviewLink)

	second, err := e.payments.ConfirmPayment(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, first.Interview.ID, second.Interview.ID)

	slot, err := e.availability.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityBooked, slot.Status)
	assert.Equal(t, 1, e.bus.count(events.PaymentConfirmed))
	assert.Equal(t, 1, e.bus.count(events.InterviewCreated))
}

func TestInitiateCheckoutValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)

	_, err := e.payments.InitiateCheckout(ctx, b.ID, 1234)
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.payments.InitiateCheckout(ctx, 999, 0)
	assertKind(t, err, apperr.KindNotFound)

	_, err = e.bookings.Cancel(ctx, b.ID, "")
	require.NoError(t, err)
	_, err = e.payments.InitiateCheckout(ctx, b.ID, 0)
	assertKind(t, err, apperr.KindConflict)
}

func TestInitiateCheckoutReusesOpenSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	e.withSessionStatus(payments.SessionOpen)

	first, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	second, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	e.withSessionStatus(payments.SessionExpired)
	third, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.NotEqual(t, first.TransactionID, third.TransactionID)

	list, err := e.payments.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.PaymentFailed, list[0].Status)
	assert.Equal(t, models.PaymentPending, list[1].Status)

	e.withSessionStatus(payments.SessionPaid)
	_, err = e.payments.InitiateCheckout(ctx, b.ID, 0)
	assertKind(t, err, apperr.KindConflict)
	booking, err := e.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.PaymentStatus)
	assert.Equal(t, third.TransactionID, booking.TransactionID)
}

func TestCancelCheckoutKeepsPayableSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)

	_, err = e.payments.CancelCheckout(ctx, "")
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.payments.CancelCheckout(ctx, "cs_local_unknown")
	assertKind(t, err, apperr.KindNotFound)

	e.withSessionStatus(payments.SessionOpen)
	kept, err := e.payments.CancelCheckout(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, kept.Status)
	assert.Zero(t, e.bus.count(events.PaymentFailed))

	e.withSessionStatus(payments.SessionPaid)
	res, err := e.payments.HandleSuccess(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, res.Booking.PaymentStatus)
}

func TestExpiredCheckoutPaidLaterStillSettles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)

	e.withSessionStatus(payments.SessionExpired)
	failed, err := e.payments.CancelCheckout(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)
	assert.Equal(t, 1, e.bus.count(events.PaymentFailed))

	e.withSessionStatus(payments.SessionPaid)
	res, err := e.payments.HandleSuccess(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.PaymentPaid, res.Payment.Status)
	assert.Equal(t, models.BookingConfirmed, res.Booking.PaymentStatus)
	require.NotNil(t, res.Interview)
}

func TestHandleSuccessErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.payments.HandleSuccess(ctx, "")
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.payments.HandleSuccess(ctx, "cs_test_foreign")
	assertKind(t, err, apperr.KindNotFound)
	_, err = e.payments.HandleSuccess(ctx, "cs_local_unknown")
	assertKind(t, err, apperr.KindNotFound)
}

func TestPaymentAfterCancellationIsConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)

	_, err = e.bookings.Cancel(ctx, b.ID, "changed my mind")
	require.NoError(t, err)

	_, err = e.payments.ConfirmPayment(ctx, p.TransactionID)
	assertKind(t, err, apperr.KindConflict)
	assert.Zero(t, e.bus.count(events.PaymentConfirmed))
}

func TestHandleWebhook(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)

	paid := &payments.WebhookEvent{ID: "evt_1", Type: "checkout.session.completed", SessionID: p.TransactionID, Outcome: payments.WebhookPaid}
	e.webhooks.On("Parse", []byte("paid"), "sig").Return(paid, nil)
	e.webhooks.On("Parse", []byte("bad"), "sig").Return(nil, payments.ErrInvalidSignature)
	e.webhooks.On("Parse", []byte("stranger"), "sig").Return(&payments.WebhookEvent{
		ID: "evt_2", Type: "checkout.session.completed", SessionID: "cs_other", Outcome: payments.WebhookPaid,
	}, nil)
	e.webhooks.On("Parse", []byte("noise"), "sig").Return(&payments.WebhookEvent{ID: "evt_3", Type: "customer.created"}, nil)

	require.NoError(t, e.payments.HandleWebhook(ctx, []byte("paid"), "sig"))
	require.NoError(t, e.payments.HandleWebhook(ctx, []byte("paid"), "sig"))
	assertKind(t, e.payments.HandleWebhook(ctx, []byte("bad"), "sig"), apperr.KindBadRequest)
	require.NoError(t, e.payments.HandleWebhook(ctx, []byte("stranger"), "sig"))
	require.NoError(t, e.payments.HandleWebhook(ctx, []byte("noise"), "sig"))

	booking, err := e.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.PaymentStatus)
	assert.Equal(t, 1, e.bus.count(events.PaymentConfirmed))
	e.webhooks.AssertNumberOfCalls(t, "Parse", 5)
}

func TestWebhookForCancelledBookingIsAcknowledged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	_, err = e.bookings.Cancel(ctx, b.ID, "changed my mind")
	require.NoError(t, err)

	e.webhooks.On("Parse", mock.Anything, mock.Anything).Return(&payments.WebhookEvent{
		ID: "evt_late", Type: "checkout.session.completed", SessionID: p.TransactionID, Outcome: payments.WebhookPaid,
	}, nil)
	require.NoError(t, e.payments.HandleWebhook(ctx, []byte("{}"), "sig"))

	booking, err := e.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.PaymentStatus)
	assert.Zero(t, e.bus.count(events.PaymentConfirmed))
}

func TestWebhookFailureMarksPaymentFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.book(t, e.slot(t, "2030-06-01", "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)

	e.webhooks.On("Parse", mock.Anything, mock.Anything).Return(&payments.WebhookEvent{
		ID: "evt_9", Type: "checkout.session.expired", SessionID: p.TransactionID, Outcome: payments.WebhookFailed,
	}, nil)
	require.NoError(t, e.payments.HandleWebhook(ctx, []byte("{}"), "sig"))

	got, err := e.payments.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.Status)
	assert.Equal(t, 1, e.bus.count(events.PaymentFailed))

	booking, err := e.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.PaymentStatus)
}

func TestRefund(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.paidInterview(t, "2030-06-01")
	id := res.Payment.ID

	_, err := e.payments.Refund(ctx, id, 0)
	assertKind(t, err, apperr.KindBadRequest)
	_, err = e.payments.Refund(ctx, id, 5001)
	assertKind(t, err, apperr.KindBadRequest)

	p, err := e.payments.Refund(ctx, id, 2000)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, p.Status)
	assert.Equal(t, models.Money(2000), p.RefundAmount)

	_, err = e.payments.Refund(ctx, id, 3001)
	assertKind(t, err, apperr.KindBadRequest)
	p, err = e.payments.Refund(ctx, id, 3000)
	require.NoError(t, err)
	assert.Equal(t, models.Money(5000), p.RefundAmount)
	assert.Equal(t, 2, e.bus.count(events.PaymentRefunded))

	_, err = e.payments.Refund(ctx, 999, 100)
	assertKind(t, err, apperr.KindNotFound)
}

func TestEarningsAndExport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res := e.paidInterview(t, "2030-06-01")
	_, err := e.payments.Refund(ctx, res.Payment.ID, 1000)
	require.NoError(t, err)

	paid, _, err := e.payments.Earnings(ctx, e.intervieweeUser.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, paid.Paid.Count)
	assert.Equal(t, models.Money(5000), paid.Paid.Gross)
	assert.Equal(t, models.Money(4000), paid.Paid.Net)
	assert.Zero(t, paid.Received.Count)

	received, lines, err := e.payments.Earnings(ctx, e.interviewerUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Money(1000), received.Received.Refunded)
	require.Len(t, lines, 1)
	assert.Equal(t, models.SideReceived, lines[0].Side)

	_, _, err = e.payments.Earnings(ctx, 999)
	assertKind(t, err, apperr.KindNotFound)

	var buf bytes.Buffer
	require.NoError(t, e.payments.ExportEarnings(ctx, e.interviewerUser.ID, &buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")

	list, err := e.payments.ListByBooking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
