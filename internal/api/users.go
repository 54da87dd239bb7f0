package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interviewhub/internal/service"
)

func (s *Server) registerUser(c *gin.Context) {
	var req service.RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.svc.Users.Register(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	session, err := s.svc.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := s.svc.Users.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) registerInterviewer(c *gin.Context) {
	var req service.RegisterInterviewerRequest
	if !bindJSON(c, &req) {
		return
	}
	if !s.authorize(c, user(req.UserID)) {
		return
	}
	iv, err := s.svc.Users.RegisterInterviewer(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, iv)
}

func (s *Server) getInterviewer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	iv, err := s.svc.Users.GetInterviewer(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

func (s *Server) registerInterviewee(c *gin.Context) {
	var req service.RegisterIntervieweeRequest
	if !bindJSON(c, &req) {
		return
	}
	if !s.authorize(c, user(req.UserID)) {
		return
	}
	ie, err := s.svc.Users.RegisterInterviewee(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ie)
}

func (s *Server) getInterviewee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ie, err := s.svc.Users.GetInterviewee(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ie)
}

func (s *Server) createSkill(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sk, err := s.svc.Skills.Create(c.Request.Context(), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sk)
}

func (s *Server) listSkills(c *gin.Context) {
	list, err := s.svc.Skills.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) addInterviewerSkill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	skillID, ok := pathID(c, "skillId")
	if !ok {
		return
	}
	if !s.authorize(c, s.interviewerOf(id)) {
		return
	}
	if err := s.svc.Skills.AddToInterviewer(c.Request.Context(), id, skillID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addIntervieweeSkill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	skillID, ok := pathID(c, "skillId")
	if !ok {
		return
	}
	if !s.authorize(c, s.intervieweeOf(id)) {
		return
	}
	if err := s.svc.Skills.AddToInterviewee(c.Request.Context(), id, skillID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
