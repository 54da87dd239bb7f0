package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"interviewhub/internal/apperr"
	"interviewhub/internal/auth"
	"interviewhub/internal/database"
	"interviewhub/internal/meeting"
	"interviewhub/internal/models"
	"interviewhub/internal/payments"
	"interviewhub/internal/ratelimit"
)

type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBus) PublishJSON(_ context.Context, eventType string, _ any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
}

func (b *recordingBus) count(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type mockWebhooks struct {
	mock.Mock
}

func (m *mockWebhooks) Parse(payload []byte, signature string) (*payments.WebhookEvent, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*payments.WebhookEvent)
	return ev, args.Error(1)
}

type env struct {
	db           *database.DB
	bus          *recordingBus
	webhooks     *mockWebhooks
	users        *UserService
	skills       *SkillService
	availability *AvailabilityService
	bookings     *BookingService
	interviews   *InterviewService
	payments     *PaymentService
	feedback     *FeedbackService
	verification *VerificationService

	interviewerUser *models.User
	intervieweeUser *models.User
	interviewer     *models.Interviewer
	interviewee     *models.Interviewee
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{db: db, bus: &recordingBus{}, webhooks: &mockWebhooks{}}
	e.users = NewUserService(db, auth.NewIssuer("test-secret", time.Hour), &logger)
	e.users.cost = 4
	e.skills = NewSkillService(db, &logger)
	e.availability = NewAvailabilityService(db, &logger)
	e.interviews = NewInterviewService(db, meeting.NewTemplateLinker("https://meet.example/%s"), e.bus, &logger)
	gateway := payments.NewLocalGateway("http://localhost/success?session_id={CHECKOUT_SESSION_ID}")
	e.payments = NewPaymentService(db, gateway, e.webhooks, e.interviews, e.bus, "usd", &logger)
	e.bookings = NewBookingService(db, e.payments, e.bus, &logger)
	e.feedback = NewFeedbackService(db, &logger)
	e.verification = NewVerificationService(db, ratelimit.PerWindow(3, time.Hour), e.bus,
		VerificationConfig{TTL: 15 * time.Minute, MaxAttempts: 3}, &logger)

	ctx := context.Background()
	e.interviewerUser, err = e.users.Register(ctx, RegisterUserRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "password1", Role: "interviewer",
	})
	require.NoError(t, err)
	e.intervieweeUser, err = e.users.Register(ctx, RegisterUserRequest{
		FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Password: "password2", Role: "INTERVIEWEE",
	})
	require.NoError(t, err)
	e.interviewer, err = e.users.RegisterInterviewer(ctx, RegisterInterviewerRequest{
		UserID: e.interviewerUser.ID, Bio: "Staff engineer", YearsOfExperience: 10, HourlyRate: 5000,
	})
	require.NoError(t, err)
	e.interviewee, err = e.users.RegisterInterviewee(ctx, RegisterIntervieweeRequest{
		UserID: e.intervieweeUser.ID, CurrentRole: "Junior", TargetRole: "Senior",
	})
	require.NoError(t, err)
	return e
}

func (e *env) slot(t *testing.T, date, start, end string) *models.Availability {
	t.Helper()
	a, err := e.availability.Register(context.Background(), RegisterAvailabilityRequest{
		InterviewerID: e.interviewer.ID, Date: date, StartTime: start, EndTime: end, Timezone: "UTC",
	})
	require.NoError(t, err)
	return a
}

func (e *env) book(t *testing.T, slotID int64) *models.Booking {
	t.Helper()
	b, err := e.bookings.Create(context.Background(), CreateBookingRequest{
		IntervieweeID: e.interviewee.ID, AvailabilityID: slotID, TotalPrice: 5000,
	})
	require.NoError(t, err)
	return b
}

func (e *env) paidInterview(t *testing.T, date string) *database.ConfirmResult {
	t.Helper()
	ctx := context.Background()
	b := e.book(t, e.slot(t, date, "10:00", "11:00").ID)
	p, err := e.payments.InitiateCheckout(ctx, b.ID, 0)
	require.NoError(t, err)
	res, err := e.payments.HandleSuccess(ctx, p.TransactionID)
	require.NoError(t, err)
	return res
}

// sessionGateway reports a fixed session status on top of the local gateway.
type sessionGateway struct {
	*payments.LocalGateway
	status payments.SessionStatus
}

func (g *sessionGateway) SessionStatus(ctx context.Context, sessionID string) (payments.SessionStatus, error) {
	if _, err := g.LocalGateway.SessionStatus(ctx, sessionID); err != nil {
		return "", err
	}
	return g.status, nil
}

// withSessionStatus makes the provider report status for every local session.
func (e *env) withSessionStatus(status payments.SessionStatus) {
	e.payments.gateway = &sessionGateway{
		LocalGateway: payments.NewLocalGateway("http://localhost/success?session_id={CHECKOUT_SESSION_ID}"),
		status:       status,
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}
