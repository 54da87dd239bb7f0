package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) sendOTP(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if !s.authorize(c, user(id)) {
		return
	}
	v, err := s.svc.Verification.SendOTP(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "otp sent", "expiresAt": v.ExpiresAt})
}

func (s *Server) resendOTP(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if !s.authorize(c, user(id)) {
		return
	}
	v, err := s.svc.Verification.ResendOTP(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "otp resent", "expiresAt": v.ExpiresAt})
}

// POST /api/verification/user/verifyOtp/:userId?otp=
// The code may also come as {"otp": "..."}.
func (s *Server) verifyOTP(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if !s.authorize(c, user(id)) {
		return
	}
	code := c.Query("otp")
	if code == "" && c.Request.ContentLength != 0 {
		var body struct {
			OTP string `json:"otp"`
		}
		if !bindJSON(c, &body) {
			return
		}
		code = body.OTP
	}
	if err := s.svc.Verification.VerifyOTP(c.Request.Context(), id, code); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user verified"})
}

func (s *Server) submitDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if !s.authorize(c, s.interviewerOf(id)) {
		return
	}
	var body struct {
		DocumentURL string `json:"documentUrl"`
	}
	if !bindJSON(c, &body) {
		return
	}
	iv, err := s.svc.Verification.SubmitDocument(c.Request.Context(), id, body.DocumentURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}

// PUT /api/verification/interviewer/:id/review?approved=true|false
func (s *Server) reviewDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	approved, err := strconv.ParseBool(c.Query("approved"))
	if err != nil {
		badRequest(c, "approved must be true or false")
		return
	}
	iv, err := s.svc.Verification.ReviewDocument(c.Request.Context(), id, approved)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iv)
}
