package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/events"
	"interviewhub/internal/meeting"
	"interviewhub/internal/metrics"
	"interviewhub/internal/models"
)

type InterviewStore interface {
	GetInterview(ctx context.Context, id int64) (*models.Interview, error)
	CreateInterviewFromBooking(ctx context.Context, bookingID int64) (*models.Interview, error)
	UpdateInterview(ctx context.Context, iv *models.Interview) error
	SetInterviewLink(ctx context.Context, id int64, link string) error
	CancelInterview(ctx context.Context, id int64, reason string) (*models.Interview, bool, error)
	CompleteOverdueInterviews(ctx context.Context, at time.Time) ([]int64, error)
}

type InterviewService struct {
	store  InterviewStore
	linker meeting.Linker
	bus    Publisher
	logger zerolog.Logger
}

func NewInterviewService(store InterviewStore, linker meeting.Linker, bus Publisher, logger *zerolog.Logger) *InterviewService {
	return &InterviewService{
		store:  store,
		linker: linker,
		bus:    bus,
		logger: logger.With().Str("component", "interview").Logger(),
	}
}

// CreateFromBooking schedules the interview of a CONFIRMED booking.
func (s *InterviewService) CreateFromBooking(ctx context.Context, bookingID int64) (*models.Interview, error) {
	iv, err := s.store.CreateInterviewFromBooking(ctx, bookingID)
	if err != nil {
		return nil, storeErr("create interview", err)
	}
	s.Scheduled(ctx, iv)
	return iv, nil
}

// Scheduled runs the follow-ups of a newly created interview: it attaches a
// meeting link and announces the interview.
func (s *InterviewService) Scheduled(ctx context.Context, iv *models.Interview) {
	s.attachLink(ctx, iv)
	s.logger.Info().Int64("interview_id", iv.ID).Int64("booking_id", iv.BookingID).
		Str("date", iv.Date).Str("start", iv.StartTime).Str("end", iv.EndTime).Msg("interview scheduled")
	s.bus.PublishJSON(ctx, events.InterviewCreated, events.InterviewPayload{
		InterviewID: iv.ID,
		BookingID:   iv.BookingID,
		Date:        iv.Date,
		StartTime:   iv.StartTime,
		Timezone:    iv.Timezone,
		Link:        iv.InterviewLink,
	})
}

// attachLink leaves the link empty when the linker fails; it can be set later by Update.
func (s *InterviewService) attachLink(ctx context.Context, iv *models.Interview) {
	if s.linker == nil || iv.InterviewLink != "" {
		return
	}
	link, err := s.linker.Link(ctx, iv)
	if err != nil {
		s.logger.Warn().Err(err).Int64("interview_id", iv.ID).Msg("meeting link not created")
		return
	}
	if err := s.store.SetInterviewLink(ctx, iv.ID, link); err != nil {
		s.logger.Warn().Err(err).Int64("interview_id", iv.ID).Msg("meeting link not saved")
		return
	}
	iv.InterviewLink = link
}

func (s *InterviewService) Get(ctx context.Context, id int64) (*models.Interview, error) {
	iv, err := s.store.GetInterview(ctx, id)
	return iv, storeErr("get interview", err)
}

// Update applies a partial change and recomputes the end time.
func (s *InterviewService) Update(ctx context.Context, id int64, patch models.InterviewPatch) (*models.Interview, error) {
	iv, err := s.store.GetInterview(ctx, id)
	if err != nil {
		return nil, storeErr("get interview", err)
	}
	reschedules := patch.Date != nil || patch.StartTime != nil || patch.Duration != nil || patch.Timezone != nil
	switch {
	case iv.Status == models.InterviewCancelled:
		return nil, apperr.Conflictf("interview %d is cancelled", id)
	case iv.Status == models.InterviewCompleted && reschedules:
		return nil, apperr.Conflictf("interview %d is completed and cannot be rescheduled", id)
	}
	if err := patch.Apply(iv); err != nil {
		return nil, apperr.BadRequestf("%v", err)
	}
	if iv.ActualStartTime != nil && iv.ActualEndTime != nil && iv.ActualEndTime.Before(*iv.ActualStartTime) {
		return nil, apperr.BadRequestf("actualEndTime must not be before actualStartTime")
	}
	if err := s.store.UpdateInterview(ctx, iv); err != nil {
		return nil, storeErr("update interview", err)
	}
	return iv, nil
}

// Cancel cancels a BOOKED interview. The booking, payment and slot are left as they are.
func (s *InterviewService) Cancel(ctx context.Context, id int64, reason string) (*models.Interview, error) {
	iv, changed, err := s.store.CancelInterview(ctx, id, reason)
	if err != nil {
		return nil, storeErr("cancel interview", err)
	}
	if changed {
		s.logger.Info().Int64("interview_id", id).Str("reason", reason).Msg("interview cancelled")
		s.bus.PublishJSON(ctx, events.InterviewCancelled, events.InterviewPayload{
			InterviewID: iv.ID,
			BookingID:   iv.BookingID,
			Date:        iv.Date,
			StartTime:   iv.StartTime,
			Timezone:    iv.Timezone,
			Reason:      reason,
		})
	}
	return iv, nil
}

// SweepCompletions marks BOOKED interviews that ended before now as COMPLETED.
func (s *InterviewService) SweepCompletions(ctx context.Context, now time.Time) ([]int64, error) {
	ids, err := s.store.CompleteOverdueInterviews(ctx, now)
	if err != nil {
		return nil, storeErr("complete interviews", err)
	}
	metrics.AddSweepTransitions("interview_completed", len(ids))
	for _, id := range ids {
		s.bus.PublishJSON(ctx, events.InterviewCompleted, events.InterviewPayload{InterviewID: id})
	}
	return ids, nil
}
