package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"interviewhub/internal/models"
)

const (
	maxWebhookBody = 64 << 10
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// queryMoney reads an optional decimal amount; absent means zero.
func queryMoney(c *gin.Context, name string) (models.Money, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	m, err := models.ParseMoney(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return m, true
}

// POST /api/payments/create-checkout-session?bookingId=&amount=
func (s *Server) createCheckoutSession(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Query("bookingId"), 10, 64)
	if err != nil || bookingID <= 0 {
		badRequest(c, "bookingId is required")
		return
	}
	amount, ok := queryMoney(c, "amount")
	if !ok {
		return
	}
	if !s.authorize(c, s.bookingPayer(bookingID)) {
		return
	}
	p, err := s.svc.Payments.InitiateCheckout(c.Request.Context(), bookingID, amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessionId":   p.TransactionID,
		"checkoutUrl": p.CheckoutURL,
		"payment":     p,
	})
}

// GET /api/payments/success?session_id=
func (s *Server) paymentSuccess(c *gin.Context) {
	res, err := s.svc.Payments.HandleSuccess(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment":   res.Payment,
		"booking":   res.Booking,
		"interview": res.Interview,
	})
}

// GET /api/payments/cancel?session_id=
// The session stays payable unless the provider has expired it.
func (s *Server) paymentCancel(c *gin.Context) {
	body := gin.H{"message": "checkout cancelled; the booking stays reserved until it is paid or cancelled"}
	if id := c.Query("session_id"); id != "" {
		p, err := s.svc.Payments.CancelCheckout(c.Request.Context(), id)
		if err != nil {
			s.writeError(c, err)
			return
		}
		body["paymentStatus"] = p.Status
	}
	c.JSON(http.StatusOK, body)
}

// POST /webhook/stripe
func (s *Server) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if err := s.svc.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// POST /api/payments/:id/refund?amount=
func (s *Server) refundPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	amount, ok := queryMoney(c, "amount")
	if !ok {
		return
	}
	p, err := s.svc.Payments.Refund(c.Request.Context(), id, amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) listBookingPayments(c *gin.Context) {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return
	}
	if !s.authorize(c, s.bookingParties(id)) {
		return
	}
	list, err := s.svc.Payments.ListByBooking(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) earnings(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if !s.authorize(c, user(id)) {
		return
	}
	e, _, err := s.svc.Payments.Earnings(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) exportEarnings(c *gin.Context) {
	id, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if !s.authorize(c, user(id)) {
		return
	}
	var buf bytes.Buffer
	if err := s.svc.Payments.ExportEarnings(c.Request.Context(), id, &buf); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="earnings_%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxType, buf.Bytes())
}
