// Package api exposes the marketplace over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"interviewhub/internal/auth"
	"interviewhub/internal/models"
	"interviewhub/internal/ratelimit"
	"interviewhub/internal/service"
)

// Services bundles the domain services the handlers call.
type Services struct {
	Users         *service.UserService
	Skills        *service.SkillService
	Availability  *service.AvailabilityService
	Bookings      *service.BookingService
	Interviews    *service.InterviewService
	Payments      *service.PaymentService
	Verification  *service.VerificationService
	Feedback      *service.FeedbackService
	Notifications *service.NotificationService
}

type Options struct {
	// Issuer signs and checks access tokens. Login needs it.
	Issuer *auth.Issuer
	// RequireAuth guards every non-public route with a bearer token.
	RequireAuth bool
	// Limiter throttles requests per client IP when set.
	Limiter ratelimit.Limiter
}

type Server struct {
	svc    Services
	opts   Options
	engine *gin.Engine
	logger zerolog.Logger
}

func NewServer(svc Services, opts Options, logger *zerolog.Logger) *Server {
	s := &Server{
		svc:    svc,
		opts:   opts,
		engine: gin.New(),
		logger: logger.With().Str("component", "http").Logger(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger(), s.countRequests())
	if opts.Limiter != nil {
		s.engine.Use(s.rateLimit(opts.Limiter))
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	r := s.engine

	r.POST("/webhook/stripe", s.stripeWebhook)

	public := r.Group("/api")
	public.POST("/users/register", s.registerUser)
	public.POST("/auth/login", s.login)
	public.GET("/payments/success", s.paymentSuccess)
	public.GET("/payments/cancel", s.paymentCancel)
	public.GET("/skills", s.listSkills)

	api := r.Group("/api")
	admin := r.Group("/api")
	if s.opts.RequireAuth && s.opts.Issuer != nil {
		api.Use(auth.JWTAuth(s.opts.Issuer))
		admin.Use(auth.JWTAuth(s.opts.Issuer), auth.RequireRole(string(models.RoleAdmin)))
	}

	api.GET("/users/:id", s.getUser)
	api.POST("/interviewers/register", s.registerInterviewer)
	api.GET("/interviewers/:id", s.getInterviewer)
	api.GET("/interviewers/:id/availabilities", s.listInterviewerAvailabilities)
	api.POST("/interviewers/:id/skills/:skillId", s.addInterviewerSkill)
	api.POST("/interviewees/register", s.registerInterviewee)
	api.GET("/interviewees/:id", s.getInterviewee)
	api.GET("/interviewees/:id/bookings", s.listIntervieweeBookings)
	api.POST("/interviewees/:id/skills/:skillId", s.addIntervieweeSkill)
	api.POST("/skills", s.createSkill)

	api.POST("/availabilities/register", s.registerAvailability)
	api.POST("/availabilities/generate", s.generateAvailabilities)
	api.GET("/availabilities/:id", s.getAvailability)
	api.PUT("/availabilities/:id", s.updateAvailability)

	api.POST("/bookings/register", s.createBooking)
	api.GET("/bookings/:id", s.getBooking)
	api.PUT("/bookings/:id/confirm", s.confirmBooking)
	api.PUT("/bookings/:id/cancel", s.cancelBooking)

	api.GET("/interviews/:id", s.getInterview)
	api.PUT("/interviews/:id", s.updateInterview)
	api.PUT("/interviews/:id/cancel", s.cancelInterview)

	api.POST("/payments/create-checkout-session", s.createCheckoutSession)
	api.GET("/payments/booking/:bookingId", s.listBookingPayments)
	api.GET("/payments/earnings/:userId", s.earnings)
	api.GET("/payments/earnings/:userId/export", s.exportEarnings)
	admin.POST("/payments/:id/refund", s.refundPayment)

	api.POST("/verification/user/sendOtp/:userId", s.sendOTP)
	api.POST("/verification/user/verifyOtp/:userId", s.verifyOTP)
	api.POST("/verification/user/resendOtp/:userId", s.resendOTP)
	api.POST("/verification/interviewer/:id/document", s.submitDocument)
	admin.PUT("/verification/interviewer/:id/review", s.reviewDocument)

	api.POST("/feedback", s.createFeedback)
	api.GET("/feedback/interview/:id", s.listFeedback)

	api.GET("/notifications/user/:userId", s.listNotifications)
	api.PUT("/notifications/:id/read", s.markNotificationRead)
}
