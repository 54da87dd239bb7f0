package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/models"
)

type SkillStore interface {
	CreateSkill(ctx context.Context, s *models.Skill) error
	ListSkills(ctx context.Context) ([]models.Skill, error)
	AddInterviewerSkill(ctx context.Context, interviewerID, skillID int64) error
	AddIntervieweeSkill(ctx context.Context, intervieweeID, skillID int64) error
}

type SkillService struct {
	store  SkillStore
	logger zerolog.Logger
}

func NewSkillService(store SkillStore, logger *zerolog.Logger) *SkillService {
	return &SkillService{store: store, logger: logger.With().Str("component", "skills").Logger()}
}

// Create adds a skill. Names are unique regardless of case.
func (s *SkillService) Create(ctx context.Context, name string) (*models.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequestf("skill name is required")
	}
	sk := &models.Skill{Name: name}
	if err := s.store.CreateSkill(ctx, sk); err != nil {
		return nil, storeErr("create skill", err)
	}
	s.logger.Debug().Int64("skill_id", sk.ID).Str("name", sk.Name).Msg("skill created")
	return sk, nil
}

func (s *SkillService) List(ctx context.Context) ([]models.Skill, error) {
	list, err := s.store.ListSkills(ctx)
	return list, storeErr("list skills", err)
}

func (s *SkillService) AddToInterviewer(ctx context.Context, interviewerID, skillID int64) error {
	return storeErr("add interviewer skill", s.store.AddInterviewerSkill(ctx, interviewerID, skillID))
}

func (s *SkillService) AddToInterviewee(ctx context.Context, intervieweeID, skillID int64) error {
	return storeErr("add interviewee skill", s.store.AddIntervieweeSkill(ctx, intervieweeID, skillID))
}
