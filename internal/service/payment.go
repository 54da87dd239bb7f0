package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/database"
	"interviewhub/internal/events"
	"interviewhub/internal/metrics"
	"interviewhub/internal/models"
	"interviewhub/internal/payments"
	"interviewhub/internal/report"
)

type PaymentStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByTransaction(ctx context.Context, txID string) (*models.Payment, error)
	CreatePendingPayment(ctx context.Context, p *models.Payment) error
	ConfirmPayment(ctx context.Context, txID, method string, paidAt time.Time) (*database.ConfirmResult, error)
	FailPayment(ctx context.Context, txID string) (*models.Payment, bool, error)
	RecordRefund(ctx context.Context, id int64, amount models.Money) (*models.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error)
	ListEarningsLines(ctx context.Context, userID int64) ([]models.EarningsLine, error)
}

// interviewScheduler runs the follow-ups of a freshly created interview.
type interviewScheduler interface {
	Scheduled(ctx context.Context, iv *models.Interview)
}

type webhookParser interface {
	Parse(payload []byte, signature string) (*payments.WebhookEvent, error)
}

type PaymentService struct {
	store      PaymentStore
	gateway    payments.Gateway
	webhooks   webhookParser
	interviews interviewScheduler
	bus        Publisher
	currency   string
	logger     zerolog.Logger
	now        func() time.Time
}

func NewPaymentService(
	store PaymentStore,
	gateway payments.Gateway,
	webhooks webhookParser,
	interviews interviewScheduler,
	bus Publisher,
	currency string,
	logger *zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		store:      store,
		gateway:    gateway,
		webhooks:   webhooks,
		interviews: interviews,
		bus:        bus,
		currency:   currency,
		logger:     logger.With().Str("component", "payment").Str("gateway", gateway.Name()).Logger(),
		now:        time.Now,
	}
}

// InitiateCheckout opens a checkout session for a PENDING booking and stores
// the pending payment keyed by the session id. A zero amount means the booking total.
// A booking has at most one open checkout; while it is still payable it is
// returned instead of a new one.
func (s *PaymentService) InitiateCheckout(ctx context.Context, bookingID int64, amount models.Money) (*models.Payment, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeErr("get booking", err)
	}
	if b.PaymentStatus != models.BookingPending {
		return nil, apperr.Conflictf("booking %d is %s", bookingID, b.PaymentStatus)
	}
	if amount == 0 {
		amount = b.TotalPrice
	}
	if amount < 0 || amount != b.TotalPrice {
		return nil, apperr.BadRequestf("amount %s does not match booking total %s", amount, b.TotalPrice)
	}
	open, err := s.openCheckout(ctx, b.ID)
	if err != nil || open != nil {
		return open, err
	}

	checkout, err := s.gateway.CreateCheckout(ctx, payments.CheckoutRequest{
		BookingID:   b.ID,
		Amount:      amount,
		Currency:    s.currency,
		Description: fmt.Sprintf("Mock interview booking #%d", b.ID),
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("checkout session not created")
		return nil, apperr.Internal("payment provider unavailable", err)
	}

	p := &models.Payment{
		BookingID:     b.ID,
		TransactionID: checkout.SessionID,
		Amount:        amount,
		Currency:      s.currency,
		PaymentMethod: checkout.Method,
		CheckoutURL:   checkout.URL,
	}
	if err := s.store.CreatePendingPayment(ctx, p); err != nil {
		return nil, storeErr("create payment", err)
	}
	metrics.IncPayment("initiated")
	s.logger.Info().Int64("booking_id", b.ID).Str("transaction_id", p.TransactionID).Msg("checkout initiated")
	return p, nil
}

// openCheckout returns the booking's PENDING payment while the provider still
// accepts it. Stale sessions are failed so a new checkout can start.
func (s *PaymentService) openCheckout(ctx context.Context, bookingID int64) (*models.Payment, error) {
	list, err := s.store.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	for i := range list {
		p := &list[i]
		if p.Status != models.PaymentPending {
			continue
		}
		status, err := s.gateway.SessionStatus(ctx, p.TransactionID)
		switch {
		case errors.Is(err, payments.ErrUnknownSession), err == nil && status == payments.SessionExpired:
			if _, err := s.FailPayment(ctx, p.TransactionID); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, apperr.Internal("payment provider unavailable", err)
		case status == payments.SessionPaid:
			if _, err := s.ConfirmPayment(ctx, p.TransactionID); err != nil {
				return nil, err
			}
			return nil, apperr.Conflictf("booking %d has already been paid by %s", bookingID, p.TransactionID)
		default:
			s.logger.Debug().Int64("booking_id", bookingID).Str("transaction_id", p.TransactionID).Msg("reusing open checkout")
			return p, nil
		}
	}
	return nil, nil
}

// ConfirmPayment settles the payment of txID: payment PAID, booking CONFIRMED
// and interview created, all or nothing. Replays return the stored result.
func (s *PaymentService) ConfirmPayment(ctx context.Context, txID string) (*database.ConfirmResult, error) {
	if txID == "" {
		return nil, apperr.BadRequestf("transaction id is required")
	}
	res, err := s.store.ConfirmPayment(ctx, txID, "", s.now().UTC())
	if err != nil {
		if errors.Is(err, database.ErrInvalidState) {
			// Money was taken for a booking that can no longer be honoured.
			metrics.IncPayment("needs_refund")
			s.logger.Error().Err(err).Str("transaction_id", txID).Msg("payment received for an inactive booking; refund required")
		}
		return nil, storeErr("confirm payment", err)
	}
	if !res.Applied {
		s.logger.Debug().Str("transaction_id", txID).Msg("payment already confirmed")
		return res, nil
	}

	metrics.IncPayment("paid")
	s.logger.Info().Str("transaction_id", txID).Int64("booking_id", res.Booking.ID).
		Int64("interview_id", res.Interview.ID).Msg("payment confirmed")
	s.interviews.Scheduled(ctx, res.Interview)
	s.bus.PublishJSON(ctx, events.PaymentConfirmed, events.PaymentPayload{
		PaymentID:     res.Payment.ID,
		BookingID:     res.Payment.BookingID,
		TransactionID: res.Payment.TransactionID,
		Amount:        res.Payment.Amount,
		Currency:      res.Payment.Currency,
		InterviewID:   res.Payment.InterviewID,
	})
	return res, nil
}

// HandleSuccess finalizes a checkout from its success redirect after checking
// with the provider that the session is paid.
func (s *PaymentService) HandleSuccess(ctx context.Context, sessionID string) (*database.ConfirmResult, error) {
	if sessionID == "" {
		return nil, apperr.BadRequestf("session_id is required")
	}
	status, err := s.gateway.SessionStatus(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownSession) {
			return nil, apperr.NotFoundf("checkout session %s not found", sessionID)
		}
		return nil, apperr.Internal("payment provider unavailable", err)
	}
	switch status {
	case payments.SessionPaid:
		return s.ConfirmPayment(ctx, sessionID)
	case payments.SessionExpired:
		if _, err := s.FailPayment(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, apperr.Conflictf("checkout session %s has expired", sessionID)
	default:
		return nil, apperr.Conflictf("checkout session %s is not paid yet", sessionID)
	}
}

// HandleWebhook verifies and applies a provider webhook. Payments we do not
// know about are acknowledged and ignored, as are payments that conflict with
// the booking state: a retry cannot change that outcome.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.webhooks.Parse(payload, signature)
	if err != nil {
		s.logger.Warn().Err(err).Msg("webhook rejected")
		return apperr.BadRequestf("invalid webhook signature")
	}

	log := s.logger.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Str("transaction_id", ev.SessionID).Logger()
	switch ev.Outcome {
	case payments.WebhookPaid:
		_, err = s.ConfirmPayment(ctx, ev.SessionID)
	case payments.WebhookFailed:
		_, err = s.FailPayment(ctx, ev.SessionID)
	default:
		log.Debug().Msg("webhook ignored")
		return nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		log.Warn().Msg("webhook for unknown payment")
		return nil
	}
	if apperr.KindOf(err) == apperr.KindConflict {
		log.Error().Err(err).Msg("webhook conflicts with booking state; acknowledged")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Msg("webhook applied")
	return nil
}

// CancelCheckout handles the cancel redirect. The redirect alone proves
// nothing, so the payment only fails once the provider reports the session
// expired; an open session stays payable.
func (s *PaymentService) CancelCheckout(ctx context.Context, sessionID string) (*models.Payment, error) {
	if sessionID == "" {
		return nil, apperr.BadRequestf("session_id is required")
	}
	p, err := s.store.GetPaymentByTransaction(ctx, sessionID)
	if err != nil {
		return nil, storeErr("get payment", err)
	}
	status, err := s.gateway.SessionStatus(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownSession) {
			return nil, apperr.NotFoundf("checkout session %s not found", sessionID)
		}
		return nil, apperr.Internal("payment provider unavailable", err)
	}
	if status != payments.SessionExpired {
		s.logger.Info().Str("transaction_id", sessionID).Str("session_status", string(status)).Msg("checkout cancel redirect; payment left open")
		return p, nil
	}
	return s.FailPayment(ctx, sessionID)
}

// FailPayment moves a PENDING payment to FAILED.
func (s *PaymentService) FailPayment(ctx context.Context, txID string) (*models.Payment, error) {
	p, changed, err := s.store.FailPayment(ctx, txID)
	if err != nil {
		return nil, storeErr("fail payment", err)
	}
	if changed {
		metrics.IncPayment("failed")
		s.logger.Info().Str("transaction_id", txID).Int64("booking_id", p.BookingID).Msg("payment failed")
		s.bus.PublishJSON(ctx, events.PaymentFailed, events.PaymentPayload{
			PaymentID:     p.ID,
			BookingID:     p.BookingID,
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			Currency:      p.Currency,
		})
	}
	return p, nil
}

// Refund returns amount of a settled payment through the provider.
func (s *PaymentService) Refund(ctx context.Context, paymentID int64, amount models.Money) (*models.Payment, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, storeErr("get payment", err)
	}
	if p.Status != models.PaymentPaid && p.Status != models.PaymentRefunded {
		return nil, apperr.Conflictf("payment %d is %s and cannot be refunded", paymentID, p.Status)
	}
	if amount <= 0 {
		return nil, apperr.BadRequestf("refund amount must be greater than zero")
	}
	if amount > p.Refundable() {
		return nil, apperr.BadRequestf("refund amount %s exceeds refundable %s", amount, p.Refundable())
	}

	refundID, err := s.gateway.Refund(ctx, p.TransactionID, amount)
	if err != nil {
		s.logger.Error().Err(err).Int64("payment_id", paymentID).Msg("provider refund failed")
		return nil, apperr.Internal("payment provider refund failed", err)
	}
	updated, err := s.store.RecordRefund(ctx, paymentID, amount)
	if err != nil {
		s.logger.Error().Err(err).Int64("payment_id", paymentID).Str("refund_id", refundID).
			Str("amount", amount.String()).Msg("refund issued but not recorded")
		return nil, storeErr("record refund", err)
	}

	metrics.IncPayment("refunded")
	s.logger.Info().Int64("payment_id", paymentID).Str("refund_id", refundID).Str("amount", amount.String()).Msg("payment refunded")
	s.bus.PublishJSON(ctx, events.PaymentRefunded, events.PaymentPayload{
		PaymentID:     updated.ID,
		BookingID:     updated.BookingID,
		TransactionID: updated.TransactionID,
		Amount:        amount,
		Currency:      updated.Currency,
	})
	return updated, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	return p, storeErr("get payment", err)
}

func (s *PaymentService) ListByBooking(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	if _, err := s.store.GetBooking(ctx, bookingID); err != nil {
		return nil, storeErr("get booking", err)
	}
	list, err := s.store.ListPaymentsByBooking(ctx, bookingID)
	return list, storeErr("list payments", err)
}

// Earnings sums what a user paid as interviewee and received as interviewer.
func (s *PaymentService) Earnings(ctx context.Context, userID int64) (*models.Earnings, []models.EarningsLine, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, nil, storeErr("get user", err)
	}
	lines, err := s.store.ListEarningsLines(ctx, userID)
	if err != nil {
		return nil, nil, storeErr("list earnings", err)
	}

	e := &models.Earnings{UserID: userID}
	for _, l := range lines {
		side := &e.Paid
		if l.Side == models.SideReceived {
			side = &e.Received
		}
		side.Count++
		side.Gross += l.Amount
		side.Refunded += l.RefundAmount
	}
	e.Paid.Net = e.Paid.Gross - e.Paid.Refunded
	e.Received.Net = e.Received.Gross - e.Received.Refunded
	return e, lines, nil
}

// ExportEarnings writes the earnings workbook to w.
func (s *PaymentService) ExportEarnings(ctx context.Context, userID int64, w io.Writer) error {
	e, lines, err := s.Earnings(ctx, userID)
	if err != nil {
		return err
	}
	if err := report.WriteEarnings(w, *e, lines); err != nil {
		return apperr.Internal("export earnings", err)
	}
	return nil
}
