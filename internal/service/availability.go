package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/metrics"
	"interviewhub/internal/models"
	"interviewhub/internal/slots"
)

type AvailabilityStore interface {
	GetAvailability(ctx context.Context, id int64) (*models.Availability, error)
	CreateAvailability(ctx context.Context, a *models.Availability) error
	CreateAvailabilities(ctx context.Context, batch []*models.Availability) ([]*models.Availability, error)
	UpdateAvailability(ctx context.Context, a *models.Availability) error
	ReserveAvailability(ctx context.Context, id int64) (*models.Availability, error)
	ListAvailabilities(ctx context.Context, interviewerID int64, status *models.AvailabilityStatus) ([]models.Availability, error)
	MarkExpiredAvailabilities(ctx context.Context, at time.Time) (int64, error)
}

// RegisterAvailabilityRequest is the input of Register.
type RegisterAvailabilityRequest struct {
	InterviewerID int64  `json:"interviewerId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Timezone      string `json:"timezone"`
}

// GenerateRequest cuts a day into consecutive slots.
type GenerateRequest struct {
	InterviewerID int64
	Date          string
	Timezone      string
	Schedule      slots.Schedule
}

type AvailabilityService struct {
	store  AvailabilityStore
	logger zerolog.Logger
}

func NewAvailabilityService(store AvailabilityStore, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{store: store, logger: logger.With().Str("component", "availability").Logger()}
}

func (s *AvailabilityService) Register(ctx context.Context, req RegisterAvailabilityRequest) (*models.Availability, error) {
	a := &models.Availability{
		InterviewerID: req.InterviewerID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Timezone:      req.Timezone,
	}
	if err := a.Resolve(); err != nil {
		return nil, apperr.BadRequestf("%v", err)
	}
	if err := s.store.CreateAvailability(ctx, a); err != nil {
		return nil, storeErr("register availability", err)
	}
	s.logger.Info().Int64("availability_id", a.ID).Int64("interviewer_id", a.InterviewerID).
		Str("date", a.Date).Str("start", a.StartTime).Str("end", a.EndTime).Msg("availability registered")
	return a, nil
}

// Update applies a partial change. A booked slot keeps its window and status
// until its booking is cancelled.
func (s *AvailabilityService) Update(ctx context.Context, id int64, patch models.AvailabilityPatch) (*models.Availability, error) {
	a, err := s.store.GetAvailability(ctx, id)
	if err != nil {
		return nil, storeErr("get availability", err)
	}
	if patch.TouchesWindow() && a.Status == models.AvailabilityBooked {
		return nil, apperr.Conflictf("availability %d is booked; its time window cannot change", id)
	}
	if patch.Status != nil && *patch.Status != a.Status {
		switch {
		case a.Status == models.AvailabilityBooked:
			return nil, apperr.Conflictf("availability %d is booked; cancel the booking to release it", id)
		case *patch.Status == models.AvailabilityBooked:
			return nil, apperr.BadRequestf("availability can only be booked through a booking")
		case !a.Status.CanTransitionTo(*patch.Status):
			return nil, apperr.BadRequestf("availability status cannot change from %s to %s", a.Status, *patch.Status)
		}
	}
	if err := patch.Apply(a); err != nil {
		return nil, apperr.BadRequestf("%v", err)
	}
	if err := s.store.UpdateAvailability(ctx, a); err != nil {
		return nil, storeErr("update availability", err)
	}
	return a, nil
}

func (s *AvailabilityService) Get(ctx context.Context, id int64) (*models.Availability, error) {
	a, err := s.store.GetAvailability(ctx, id)
	return a, storeErr("get availability", err)
}

func (s *AvailabilityService) ListByInterviewer(ctx context.Context, interviewerID int64, status string) ([]models.Availability, error) {
	var filter *models.AvailabilityStatus
	if status != "" {
		st, err := models.ParseAvailabilityStatus(status)
		if err != nil {
			return nil, apperr.BadRequestf("%v", err)
		}
		filter = &st
	}
	list, err := s.store.ListAvailabilities(ctx, interviewerID, filter)
	return list, storeErr("list availabilities", err)
}

// Reserve flips a slot from AVAILABLE to BOOKED; Conflict when it is not available.
func (s *AvailabilityService) Reserve(ctx context.Context, id int64) (*models.Availability, error) {
	a, err := s.store.ReserveAvailability(ctx, id)
	return a, storeErr("reserve availability", err)
}

// Generate creates back-to-back slots, skipping ones that overlap existing slots.
func (s *AvailabilityService) Generate(ctx context.Context, req GenerateRequest) ([]*models.Availability, error) {
	windows, err := slots.Generate(req.Schedule)
	if err != nil {
		return nil, apperr.BadRequestf("%v", err)
	}
	if len(windows) == 0 {
		return nil, apperr.BadRequestf("schedule produces no slots")
	}

	batch := make([]*models.Availability, 0, len(windows))
	for _, w := range windows {
		a := &models.Availability{
			InterviewerID: req.InterviewerID,
			Date:          req.Date,
			StartTime:     w.StartTime,
			EndTime:       w.EndTime,
			Timezone:      req.Timezone,
		}
		if err := a.Resolve(); err != nil {
			return nil, apperr.BadRequestf("%v", err)
		}
		batch = append(batch, a)
	}

	created, err := s.store.CreateAvailabilities(ctx, batch)
	if err != nil {
		return nil, storeErr("generate availabilities", err)
	}
	s.logger.Info().Int64("interviewer_id", req.InterviewerID).Str("date", req.Date).
		Int("requested", len(batch)).Int("created", len(created)).Msg("availabilities generated")
	return created, nil
}

// MarkExpired expires AVAILABLE slots that ended before now.
func (s *AvailabilityService) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.MarkExpiredAvailabilities(ctx, now)
	if err != nil {
		return 0, storeErr("mark expired availabilities", err)
	}
	metrics.AddSweepTransitions("availability_expired", int(n))
	return n, nil
}
