package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interviewhub/internal/models"
	"interviewhub/internal/service"
	"interviewhub/internal/slots"
)

type updateAvailabilityBody struct {
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Timezone  *string `json:"timezone"`
	Status    *string `json:"status"`
}

type generateBody struct {
	InterviewerID int64  `json:"interviewerId"`
	Date          string `json:"date"`
	Timezone      string `json:"timezone"`
	DayStart      string `json:"dayStart"`
	DayEnd        string `json:"dayEnd"`
	BreakStart    string `json:"breakStart"`
	BreakEnd      string `json:"breakEnd"`
	SlotMinutes   int    `json:"slotMinutes"`
}

// POST /api/availabilities/register
func (s *Server) registerAvailability(c *gin.Context) {
	var req service.RegisterAvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	if !s.authorize(c, s.interviewerOf(req.InterviewerID)) {
		return
	}
	a, err := s.svc.Availability.Register(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// POST /api/availabilities/generate
func (s *Server) generateAvailabilities(c *gin.Context) {
	var body generateBody
	if !bindJSON(c, &body) {
		return
	}
	if !s.authorize(c, s.interviewerOf(body.InterviewerID)) {
		return
	}
	created, err := s.svc.Availability.Generate(c.Request.Context(), service.GenerateRequest{
		InterviewerID: body.InterviewerID,
		Date:          body.Date,
		Timezone:      body.Timezone,
		Schedule: slots.Schedule{
			DayStart:    body.DayStart,
			DayEnd:      body.DayEnd,
			BreakStart:  body.BreakStart,
			BreakEnd:    body.BreakEnd,
			SlotMinutes: body.SlotMinutes,
		},
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.svc.Availability.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// PUT /api/availabilities/:id
func (s *Server) updateAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.availabilityOwner(id)) {
		return
	}
	var body updateAvailabilityBody
	if !bindJSON(c, &body) {
		return
	}
	patch := models.AvailabilityPatch{
		Date:      body.Date,
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Timezone:  body.Timezone,
	}
	if body.Status != nil {
		st, err := models.ParseAvailabilityStatus(*body.Status)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		patch.Status = &st
	}
	a, err := s.svc.Availability.Update(c.Request.Context(), id, patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /api/interviewers/:id/availabilities?status=
func (s *Server) listInterviewerAvailabilities(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := s.svc.Availability.ListByInterviewer(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
