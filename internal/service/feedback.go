package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/models"
)

type FeedbackStore interface {
	GetInterview(ctx context.Context, id int64) (*models.Interview, error)
	GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error)
	GetInterviewee(ctx context.Context, id int64) (*models.Interviewee, error)
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedbackByInterview(ctx context.Context, interviewID int64) ([]models.Feedback, error)
}

type CreateFeedbackRequest struct {
	InterviewID int64  `json:"interviewId"`
	GiverID     int64  `json:"giverId"`
	Rating      int    `json:"rating"`
	Comments    string `json:"comments"`
}

type FeedbackService struct {
	store  FeedbackStore
	logger zerolog.Logger
}

func NewFeedbackService(store FeedbackStore, logger *zerolog.Logger) *FeedbackService {
	return &FeedbackService{store: store, logger: logger.With().Str("component", "feedback").Logger()}
}

// Create records one participant's rating of the other after a completed
// interview. GiverID is a user id; the receiver is derived.
func (s *FeedbackService) Create(ctx context.Context, req CreateFeedbackRequest) (*models.Feedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.BadRequestf("rating must be between 1 and 5")
	}
	iv, err := s.store.GetInterview(ctx, req.InterviewID)
	if err != nil {
		return nil, storeErr("get interview", err)
	}
	if iv.Status != models.InterviewCompleted {
		return nil, apperr.Conflictf("interview %d is %s, feedback opens once it is completed", iv.ID, iv.Status)
	}

	interviewer, err := s.store.GetInterviewer(ctx, iv.InterviewerID)
	if err != nil {
		return nil, storeErr("get interviewer", err)
	}
	interviewee, err := s.store.GetInterviewee(ctx, iv.IntervieweeID)
	if err != nil {
		return nil, storeErr("get interviewee", err)
	}

	var receiver int64
	switch req.GiverID {
	case interviewer.UserID:
		receiver = interviewee.UserID
	case interviewee.UserID:
		receiver = interviewer.UserID
	default:
		return nil, apperr.Forbiddenf("user %d did not take part in interview %d", req.GiverID, iv.ID)
	}

	f := &models.Feedback{
		InterviewID: iv.ID,
		GiverID:     req.GiverID,
		ReceiverID:  receiver,
		Rating:      req.Rating,
		Comments:    strings.TrimSpace(req.Comments),
	}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return nil, storeErr("create feedback", err)
	}
	s.logger.Info().Int64("interview_id", iv.ID).Int64("giver_id", f.GiverID).Int("rating", f.Rating).Msg("feedback left")
	return f, nil
}

func (s *FeedbackService) ListByInterview(ctx context.Context, interviewID int64) ([]models.Feedback, error) {
	if _, err := s.store.GetInterview(ctx, interviewID); err != nil {
		return nil, storeErr("get interview", err)
	}
	list, err := s.store.ListFeedbackByInterview(ctx, interviewID)
	return list, storeErr("list feedback", err)
}
