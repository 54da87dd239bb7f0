package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"interviewhub/internal/database"
	"interviewhub/internal/events"
	"interviewhub/internal/models"
	"interviewhub/internal/notify"
)

type NotificationStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetInterview(ctx context.Context, id int64) (*models.Interview, error)
	GetBookingParticipants(ctx context.Context, bookingID int64) (*database.Participants, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
}

// ChatPoster posts operator alerts to a chat.
type ChatPoster interface {
	Post(ctx context.Context, text string) error
}

// NotificationService turns domain events into stored notifications and
// delivers them by mail. Selected events are mirrored to the operator chat.
type NotificationService struct {
	store  NotificationStore
	mailer notify.Mailer
	chat   ChatPoster
	logger zerolog.Logger
}

func NewNotificationService(store NotificationStore, mailer notify.Mailer, chat ChatPoster, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		mailer: mailer,
		chat:   chat,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Attach subscribes the service to every event it reacts to.
func (s *NotificationService) Attach(bus *events.EventBus) {
	for _, t := range []string{
		events.BookingCreated,
		events.BookingCancelled,
		events.PaymentConfirmed,
		events.PaymentFailed,
		events.PaymentRefunded,
		events.InterviewCreated,
		events.InterviewCancelled,
		events.InterviewCompleted,
		events.VerificationOTP,
	} {
		bus.Subscribe(t, s.Handle)
	}
}

// Handle reacts to a single event.
func (s *NotificationService) Handle(ctx context.Context, ev events.Event) error {
	switch ev.Type {
	case events.BookingCreated, events.BookingCancelled:
		var p events.BookingPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return s.onBooking(ctx, ev.Type, p)
	case events.PaymentConfirmed, events.PaymentFailed, events.PaymentRefunded:
		var p events.PaymentPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return s.onPayment(ctx, ev.Type, p)
	case events.InterviewCreated, events.InterviewCancelled, events.InterviewCompleted:
		var p events.InterviewPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return s.onInterview(ctx, ev.Type, p)
	case events.VerificationOTP:
		var p events.OTPPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return s.mailer.Send(ctx, notify.Message{
			To:      p.Email,
			Subject: "Your verification code",
			Body: fmt.Sprintf("Your verification code is %s. It expires at %s UTC.",
				p.Code, p.ExpiresAt.UTC().Format("2006-01-02 15:04")),
		})
	}
	return nil
}

func (s *NotificationService) onBooking(ctx context.Context, eventType string, p events.BookingPayload) error {
	who, err := s.store.GetBookingParticipants(ctx, p.BookingID)
	if err != nil {
		return fmt.Errorf("resolve booking %d: %w", p.BookingID, err)
	}
	if eventType == events.BookingCreated {
		s.deliver(ctx, who.Interviewee, eventType, "Booking reserved",
			fmt.Sprintf("Your booking #%d is reserved. Complete the payment of %s to confirm it.", p.BookingID, p.TotalPrice))
		s.deliver(ctx, who.Interviewer, eventType, "New booking",
			fmt.Sprintf("%s booked your slot #%d (booking #%d).", who.Interviewee.Name, p.AvailabilityID, p.BookingID))
		s.alert(ctx, fmt.Sprintf("New booking #%d: %s with %s, %s", p.BookingID, who.Interviewee.Name, who.Interviewer.Name, p.TotalPrice))
		return nil
	}

	msg := fmt.Sprintf("Booking #%d was cancelled.", p.BookingID)
	if p.Reason != "" {
		msg = fmt.Sprintf("Booking #%d was cancelled: %s", p.BookingID, p.Reason)
	}
	s.deliver(ctx, who.Interviewee, eventType, "Booking cancelled", msg)
	s.deliver(ctx, who.Interviewer, eventType, "Booking cancelled", msg)
	s.alert(ctx, msg)
	return nil
}

func (s *NotificationService) onPayment(ctx context.Context, eventType string, p events.PaymentPayload) error {
	who, err := s.store.GetBookingParticipants(ctx, p.BookingID)
	if err != nil {
		return fmt.Errorf("resolve booking %d: %w", p.BookingID, err)
	}
	switch eventType {
	case events.PaymentConfirmed:
		s.deliver(ctx, who.Interviewee, eventType, "Payment received",
			fmt.Sprintf("We received %s %s for booking #%d. Your interview is scheduled.", p.Amount, p.Currency, p.BookingID))
		s.alert(ctx, fmt.Sprintf("Payment %s %s for booking #%d (%s)", p.Amount, p.Currency, p.BookingID, p.TransactionID))
	case events.PaymentFailed:
		s.deliver(ctx, who.Interviewee, eventType, "Payment failed",
			fmt.Sprintf("The payment for booking #%d did not go through. You can start a new checkout.", p.BookingID))
	case events.PaymentRefunded:
		s.deliver(ctx, who.Interviewee, eventType, "Refund issued",
			fmt.Sprintf("%s %s was refunded for booking #%d.", p.Amount, p.Currency, p.BookingID))
		s.alert(ctx, fmt.Sprintf("Refund %s %s for booking #%d", p.Amount, p.Currency, p.BookingID))
	}
	return nil
}

func (s *NotificationService) onInterview(ctx context.Context, eventType string, p events.InterviewPayload) error {
	if p.BookingID == 0 {
		iv, err := s.store.GetInterview(ctx, p.InterviewID)
		if err != nil {
			return fmt.Errorf("resolve interview %d: %w", p.InterviewID, err)
		}
		p.BookingID, p.Date, p.StartTime, p.Timezone = iv.BookingID, iv.Date, iv.StartTime, iv.Timezone
	}
	who, err := s.store.GetBookingParticipants(ctx, p.BookingID)
	if err != nil {
		return fmt.Errorf("resolve booking %d: %w", p.BookingID, err)
	}

	var subject, msg string
	switch eventType {
	case events.InterviewCreated:
		subject = "Interview scheduled"
		msg = fmt.Sprintf("Interview #%d is scheduled on %s at %s (%s).", p.InterviewID, p.Date, p.StartTime, p.Timezone)
		if p.Link != "" {
			msg += " Join at " + p.Link
		}
	case events.InterviewCancelled:
		subject = "Interview cancelled"
		msg = fmt.Sprintf("Interview #%d on %s at %s was cancelled.", p.InterviewID, p.Date, p.StartTime)
		if p.Reason != "" {
			msg += " Reason: " + p.Reason
		}
	default:
		subject = "Interview completed"
		msg = fmt.Sprintf("Interview #%d is complete. You can now leave feedback.", p.InterviewID)
	}
	s.deliver(ctx, who.Interviewee, eventType, subject, msg)
	s.deliver(ctx, who.Interviewer, eventType, subject, msg)
	return nil
}

// deliver stores the notification and mails it. Failures are logged so one
// recipient cannot block the other.
func (s *NotificationService) deliver(ctx context.Context, to database.Participant, eventType, subject, msg string) {
	n := &models.Notification{UserID: to.UserID, Type: eventType, Message: msg}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Error().Err(err).Int64("user_id", to.UserID).Str("event", eventType).Msg("notification not stored")
	}
	if to.Email == "" {
		return
	}
	if err := s.mailer.Send(ctx, notify.Message{To: to.Email, Subject: subject, Body: msg}); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", to.UserID).Str("event", eventType).Msg("notification mail not sent")
	}
}

func (s *NotificationService) alert(ctx context.Context, text string) {
	if s.chat == nil {
		return
	}
	if err := s.chat.Post(ctx, text); err != nil {
		s.logger.Warn().Err(err).Msg("chat alert not sent")
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, storeErr("get user", err)
	}
	list, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	return list, storeErr("list notifications", err)
}

func (s *NotificationService) Get(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	return n, storeErr("get notification", err)
}

func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	return storeErr("mark notification read", s.store.MarkNotificationRead(ctx, id))
}
