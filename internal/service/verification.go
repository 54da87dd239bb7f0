package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"interviewhub/internal/apperr"
	"interviewhub/internal/database"
	"interviewhub/internal/events"
	"interviewhub/internal/metrics"
	"interviewhub/internal/models"
	"interviewhub/internal/ratelimit"
)

const otpDigits = 6

type VerificationStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateVerification(ctx context.Context, v *models.Verification) error
	GetActiveVerification(ctx context.Context, userID int64) (*models.Verification, error)
	RecordFailedAttempt(ctx context.Context, id int64) (int, error)
	CompleteVerification(ctx context.Context, id, userID int64) error
	GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error)
	UpdateInterviewerDocument(ctx context.Context, id int64, url string, status models.DocumentStatus) error
}

type VerificationConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type VerificationService struct {
	store   VerificationStore
	limiter ratelimit.Limiter
	bus     Publisher
	cfg     VerificationConfig
	logger  zerolog.Logger
	now     func() time.Time
	code    func() (string, error)
}

func NewVerificationService(
	store VerificationStore,
	limiter ratelimit.Limiter,
	bus Publisher,
	cfg VerificationConfig,
	logger *zerolog.Logger,
) *VerificationService {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &VerificationService{
		store:   store,
		limiter: limiter,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With().Str("component", "verification").Logger(),
		now:     time.Now,
		code:    randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// SendOTP issues a new code for the user and revokes any earlier one.
func (s *VerificationService) SendOTP(ctx context.Context, userID int64) (*models.Verification, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeErr("get user", err)
	}
	if u.IsVerified {
		return nil, apperr.Conflictf("user %d is already verified", userID)
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, "otp:"+strconv.FormatInt(userID, 10))
		if err != nil {
			return nil, apperr.Internal("rate limit", err)
		}
		if !ok {
			metrics.IncOTPSent("limited")
			return nil, apperr.TooManyf("too many codes requested, try again later")
		}
	}

	code, err := s.code()
	if err != nil {
		return nil, apperr.Internal("generate code", err)
	}
	v := &models.Verification{
		UserID:    userID,
		OTP:       code,
		ExpiresAt: s.now().UTC().Add(s.cfg.TTL),
	}
	if err := s.store.CreateVerification(ctx, v); err != nil {
		return nil, storeErr("create verification", err)
	}

	metrics.IncOTPSent("sent")
	s.logger.Info().Int64("user_id", userID).Time("expires_at", v.ExpiresAt).Msg("otp issued")
	s.bus.PublishJSON(ctx, events.VerificationOTP, events.OTPPayload{
		UserID:    userID,
		Email:     u.Email,
		Code:      code,
		ExpiresAt: v.ExpiresAt,
	})
	return v, nil
}

// ResendOTP replaces the pending code with a fresh one.
func (s *VerificationService) ResendOTP(ctx context.Context, userID int64) (*models.Verification, error) {
	return s.SendOTP(ctx, userID)
}

// VerifyOTP checks code against the user's pending verification and marks
// the user verified on a match.
func (s *VerificationService) VerifyOTP(ctx context.Context, userID int64, code string) error {
	if code == "" {
		return apperr.BadRequestf("otp is required")
	}
	v, err := s.store.GetActiveVerification(ctx, userID)
	if err != nil {
		return storeErr("get verification", err)
	}
	if v.Expired(s.now()) {
		return apperr.BadRequestf("otp has expired, request a new one")
	}
	if v.Attempts >= s.cfg.MaxAttempts {
		return apperr.BadRequestf("too many wrong attempts, request a new otp")
	}

	if subtle.ConstantTimeCompare([]byte(v.OTP), []byte(code)) != 1 {
		attempts, err := s.store.RecordFailedAttempt(ctx, v.ID)
		if err != nil {
			return storeErr("record attempt", err)
		}
		s.logger.Warn().Int64("user_id", userID).Int("attempts", attempts).Msg("wrong otp")
		return apperr.BadRequestf("invalid otp")
	}

	if err := s.store.CompleteVerification(ctx, v.ID, userID); err != nil {
		if errors.Is(err, database.ErrConcurrentModification) {
			return apperr.Conflictf("otp is no longer valid")
		}
		return storeErr("complete verification", err)
	}
	s.logger.Info().Int64("user_id", userID).Msg("user verified")
	return nil
}

// SubmitDocument records an interviewer's proof document for review.
func (s *VerificationService) SubmitDocument(ctx context.Context, interviewerID int64, documentURL string) (*models.Interviewer, error) {
	u, err := url.ParseRequestURI(documentURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.BadRequestf("documentUrl must be an http(s) URL")
	}
	if err := s.store.UpdateInterviewerDocument(ctx, interviewerID, documentURL, models.DocumentPending); err != nil {
		return nil, storeErr("submit document", err)
	}
	s.logger.Info().Int64("interviewer_id", interviewerID).Msg("document submitted")
	iv, err := s.store.GetInterviewer(ctx, interviewerID)
	return iv, storeErr("get interviewer", err)
}

// ReviewDocument approves or rejects a PENDING document.
func (s *VerificationService) ReviewDocument(ctx context.Context, interviewerID int64, approved bool) (*models.Interviewer, error) {
	iv, err := s.store.GetInterviewer(ctx, interviewerID)
	if err != nil {
		return nil, storeErr("get interviewer", err)
	}
	if iv.DocumentStatus != models.DocumentPending {
		return nil, apperr.Conflictf("interviewer %d has no document pending review", interviewerID)
	}
	status := models.DocumentRejected
	if approved {
		status = models.DocumentApproved
	}
	if err := s.store.UpdateInterviewerDocument(ctx, interviewerID, iv.DocumentURL, status); err != nil {
		return nil, storeErr("review document", err)
	}
	iv.DocumentStatus = status
	s.logger.Info().Int64("interviewer_id", interviewerID).Str("status", string(status)).Msg("document reviewed")
	return iv, nil
}
