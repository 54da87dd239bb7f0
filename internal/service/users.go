package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"interviewhub/internal/apperr"
	"interviewhub/internal/auth"
	"interviewhub/internal/database"
	"interviewhub/internal/models"
)

const minPasswordLength = 8

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateInterviewer(ctx context.Context, iv *models.Interviewer) error
	GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error)
	CreateInterviewee(ctx context.Context, ie *models.Interviewee) error
	GetInterviewee(ctx context.Context, id int64) (*models.Interviewee, error)
}

type RegisterUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type RegisterInterviewerRequest struct {
	UserID            int64        `json:"userId"`
	Bio               string       `json:"bio"`
	YearsOfExperience int          `json:"yearsOfExperience"`
	HourlyRate        models.Money `json:"hourlyRate"`
}

type RegisterIntervieweeRequest struct {
	UserID      int64  `json:"userId"`
	CurrentRole string `json:"currentRole"`
	TargetRole  string `json:"targetRole"`
}

// Session is the result of a successful login.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UserService struct {
	store  UserStore
	tokens *auth.Issuer
	cost   int
	logger zerolog.Logger
}

func NewUserService(store UserStore, tokens *auth.Issuer, logger *zerolog.Logger) *UserService {
	return &UserService{
		store:  store,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Register creates an interviewer or interviewee account. Admins come from EnsureAdmin.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (*models.User, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.BadRequestf("%v", err)
	}
	if role == models.RoleAdmin {
		return nil, apperr.Forbiddenf("admin accounts cannot be self-registered")
	}
	return s.create(ctx, req, role)
}

// EnsureAdmin creates the bootstrap admin account unless the email is taken.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, storeErr("get user", err)
	}
	return s.create(ctx, RegisterUserRequest{FirstName: "Admin", Email: email, Password: password}, models.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, req RegisterUserRequest, role models.Role) (*models.User, error) {
	first := strings.TrimSpace(req.FirstName)
	if first == "" {
		return nil, apperr.BadRequestf("firstName is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, apperr.BadRequestf("invalid email %q", req.Email)
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperr.BadRequestf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	u := &models.User{
		FirstName:    first,
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(addr.Address),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, storeErr("create user", err)
	}
	s.logger.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

// Login checks the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.Unauthorizedf("invalid email or password")
		}
		return nil, storeErr("get user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorizedf("invalid email or password")
	}
	token, err := s.tokens.CreateAccessToken(u.ID, string(u.Role), u.Email)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	return &Session{Token: token, User: u}, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	return u, storeErr("get user", err)
}

func (s *UserService) RegisterInterviewer(ctx context.Context, req RegisterInterviewerRequest) (*models.Interviewer, error) {
	if req.YearsOfExperience < 0 {
		return nil, apperr.BadRequestf("yearsOfExperience must not be negative")
	}
	if req.HourlyRate < 0 {
		return nil, apperr.BadRequestf("hourlyRate must not be negative")
	}
	iv := &models.Interviewer{
		UserID:            req.UserID,
		Bio:               strings.TrimSpace(req.Bio),
		YearsOfExperience: req.YearsOfExperience,
		HourlyRate:        req.HourlyRate,
		DocumentStatus:    models.DocumentNotSubmitted,
	}
	if err := s.store.CreateInterviewer(ctx, iv); err != nil {
		return nil, storeErr("create interviewer", err)
	}
	s.logger.Info().Int64("interviewer_id", iv.ID).Int64("user_id", iv.UserID).Msg("interviewer registered")
	return iv, nil
}

func (s *UserService) GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error) {
	iv, err := s.store.GetInterviewer(ctx, id)
	return iv, storeErr("get interviewer", err)
}

func (s *UserService) RegisterInterviewee(ctx context.Context, req RegisterIntervieweeRequest) (*models.Interviewee, error) {
	ie := &models.Interviewee{
		UserID:      req.UserID,
		CurrentRole: strings.TrimSpace(req.CurrentRole),
		TargetRole:  strings.TrimSpace(req.TargetRole),
	}
	if err := s.store.CreateInterviewee(ctx, ie); err != nil {
		return nil, storeErr("create interviewee", err)
	}
	s.logger.Info().Int64("interviewee_id", ie.ID).Int64("user_id", ie.UserID).Msg("interviewee registered")
	return ie, nil
}

func (s *UserService) GetInterviewee(ctx context.Context, id int64) (*models.Interviewee, error) {
	ie, err := s.store.GetInterviewee(ctx, id)
	return ie, storeErr("get interviewee", err)
}
