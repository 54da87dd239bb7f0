package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/database"
	"interviewhub/internal/events"
	"interviewhub/internal/metrics"
	"interviewhub/internal/models"
)

type BookingStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBookingWithReservation(ctx context.Context, b *models.Booking) error
	GetPaymentByTransaction(ctx context.Context, txID string) (*models.Payment, error)
	CancelBooking(ctx context.Context, id int64, reason string) (*database.CancelResult, error)
	ListBookingsByInterviewee(ctx context.Context, intervieweeID int64) ([]models.Booking, error)
	GetBookingParticipants(ctx context.Context, bookingID int64) (*database.Participants, error)
}

// checkoutSettler settles a checkout once the provider reports it paid.
type checkoutSettler interface {
	HandleSuccess(ctx context.Context, sessionID string) (*database.ConfirmResult, error)
}

type CreateBookingRequest struct {
	IntervieweeID  int64        `json:"intervieweeId"`
	AvailabilityID int64        `json:"availabilityId"`
	BookingDate    string       `json:"bookingDate"`
	TotalPrice     models.Money `json:"totalPrice"`
	Notes          string       `json:"notes"`
}

type BookingService struct {
	store    BookingStore
	payments checkoutSettler
	bus      Publisher
	logger   zerolog.Logger
	now      func() time.Time
}

func NewBookingService(store BookingStore, payments checkoutSettler, bus Publisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:    store,
		payments: payments,
		bus:      bus,
		logger:   logger.With().Str("component", "booking").Logger(),
		now:      time.Now,
	}
}

// Create reserves the slot and records a PENDING booking atomically.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if req.IntervieweeID <= 0 || req.AvailabilityID <= 0 {
		return nil, apperr.BadRequestf("intervieweeId and availabilityId are required")
	}
	if req.TotalPrice <= 0 {
		return nil, apperr.BadRequestf("totalPrice must be greater than zero")
	}
	if req.BookingDate == "" {
		req.BookingDate = s.now().UTC().Format(models.DateLayout)
	} else if _, err := models.ParseDate(req.BookingDate); err != nil {
		return nil, apperr.BadRequestf("%v", err)
	}

	b := &models.Booking{
		IntervieweeID:  req.IntervieweeID,
		AvailabilityID: req.AvailabilityID,
		BookingDate:    req.BookingDate,
		TotalPrice:     req.TotalPrice,
		Notes:          req.Notes,
	}
	if err := s.store.CreateBookingWithReservation(ctx, b); err != nil {
		if errors.Is(err, database.ErrNotAvailable) {
			metrics.IncBookingCreated("conflict")
		}
		return nil, storeErr("create booking", err)
	}
	metrics.IncBookingCreated("created")

	s.logger.Info().Int64("booking_id", b.ID).Int64("availability_id", b.AvailabilityID).
		Int64("interviewee_id", b.IntervieweeID).Msg("booking created")
	s.bus.PublishJSON(ctx, events.BookingCreated, events.BookingPayload{
		BookingID:      b.ID,
		AvailabilityID: b.AvailabilityID,
		IntervieweeID:  b.IntervieweeID,
		TotalPrice:     b.TotalPrice,
	})
	return b, nil
}

// Confirm settles a PENDING booking through its checkout txID. The checkout
// must belong to the booking and the provider must report it paid; payment,
// booking and interview then commit together. Retries are no-ops.
func (s *BookingService) Confirm(ctx context.Context, id int64, txID string) (*models.Booking, error) {
	if txID == "" {
		return nil, apperr.BadRequestf("transactionId is required")
	}
	if _, err := s.store.GetBooking(ctx, id); err != nil {
		return nil, storeErr("get booking", err)
	}
	p, err := s.store.GetPaymentByTransaction(ctx, txID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, storeErr("get payment", err)
	}
	if p == nil || p.BookingID != id {
		s.logger.Warn().Int64("booking_id", id).Str("transaction_id", txID).Msg("confirm with a foreign transaction")
		return nil, apperr.BadRequestf("transaction %s is not a checkout of booking %d", txID, id)
	}
	res, err := s.payments.HandleSuccess(ctx, txID)
	if err != nil {
		return nil, err
	}
	return res.Booking, nil
}

// Cancel cancels the booking, releases its slot and cancels its scheduled interview.
func (s *BookingService) Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	res, err := s.store.CancelBooking(ctx, id, reason)
	if err != nil {
		return nil, storeErr("cancel booking", err)
	}
	if res.AlreadyCancelled {
		return res.Booking, nil
	}
	metrics.IncBookingCancelled()

	b := res.Booking
	log := s.logger.Info().Int64("booking_id", b.ID).Str("reason", reason).Bool("slot_released", res.SlotReleased)
	if res.CancelledInterview != nil {
		log = log.Int64("interview_id", *res.CancelledInterview)
	}
	log.Msg("booking cancelled")

	s.bus.PublishJSON(ctx, events.BookingCancelled, events.BookingPayload{
		BookingID:      b.ID,
		AvailabilityID: b.AvailabilityID,
		IntervieweeID:  b.IntervieweeID,
		TotalPrice:     b.TotalPrice,
		Reason:         reason,
	})
	if res.CancelledInterview != nil {
		s.bus.PublishJSON(ctx, events.InterviewCancelled, events.InterviewPayload{
			InterviewID: *res.CancelledInterview,
			BookingID:   b.ID,
			Reason:      reason,
		})
	}
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	return b, storeErr("get booking", err)
}

func (s *BookingService) ListByInterviewee(ctx context.Context, intervieweeID int64) ([]models.Booking, error) {
	list, err := s.store.ListBookingsByInterviewee(ctx, intervieweeID)
	return list, storeErr("list bookings", err)
}

// Participants names the users on both sides of a booking.
func (s *BookingService) Participants(ctx context.Context, id int64) (*database.Participants, error) {
	p, err := s.store.GetBookingParticipants(ctx, id)
	return p, storeErr("get booking participants", err)
}
