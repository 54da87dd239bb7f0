package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"interviewhub/internal/models"
	"interviewhub/internal/service"
)

type updateInterviewBody struct {
	Date            *string    `json:"date"`
	StartTime       *string    `json:"startTime"`
	Duration        *int       `json:"duration"`
	InterviewLink   *string    `json:"interviewLink"`
	ActualStartTime *time.Time `json:"actualStartTime"`
	ActualEndTime   *time.Time `json:"actualEndTime"`
	Timezone        *string    `json:"timezone"`
}

// POST /api/bookings/register
func (s *Server) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	if !s.authorize(c, s.intervieweeOf(req.IntervieweeID)) {
		return
	}
	b, err := s.svc.Bookings.Create(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *Server) getBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.bookingParties(id)) {
		return
	}
	b, err := s.svc.Bookings.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PUT /api/bookings/:id/confirm?transactionId=
func (s *Server) confirmBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.bookingPayer(id)) {
		return
	}
	b, err := s.svc.Bookings.Confirm(c.Request.Context(), id, c.Query("transactionId"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PUT /api/bookings/:id/cancel?reason=
func (s *Server) cancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.bookingParties(id)) {
		return
	}
	b, err := s.svc.Bookings.Cancel(c.Request.Context(), id, c.Query("reason"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) listIntervieweeBookings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.intervieweeOf(id)) {
		return
	}
	list, err := s.svc.Bookings.ListByInterviewee(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getInterview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.interviewParties(id)) {
		return
	}
	iv, err := s.svc.Interviews.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

// PUT /api/interviews/:id
func (s *Server) updateInterview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.interviewParties(id)) {
		return
	}
	var body updateInterviewBody
	if !bindJSON(c, &body) {
		return
	}
	iv, err := s.svc.Interviews.Update(c.Request.Context(), id, models.InterviewPatch{
		Date:            body.Date,
		StartTime:       body.StartTime,
		Duration:        body.Duration,
		InterviewLink:   body.InterviewLink,
		ActualStartTime: body.ActualStartTime,
		ActualEndTime:   body.ActualEndTime,
		Timezone:        body.Timezone,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

// PUT /api/interviews/:id/cancel?reason=
func (s *Server) cancelInterview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.interviewParties(id)) {
		return
	}
	iv, err := s.svc.Interviews.Cancel(c.Request.Context(), id, c.Query("reason"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}
