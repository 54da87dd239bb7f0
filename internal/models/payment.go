package models

import "time"

type Payment struct {
	ID            int64         `json:"id"`
	BookingID     int64         `json:"bookingId"`
	TransactionID string        `json:"transactionId"`
	PaymentDate   *time.Time    `json:"paymentDate,omitempty"`
	Amount        Money         `json:"amount"`
	Currency      string        `json:"currency"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	RefundAmount  Money         `json:"refundAmount"`
	Status        PaymentStatus `json:"paymentStatus"`
	InterviewID   *int64        `json:"interviewId,omitempty"`
	CheckoutURL   string        `json:"checkoutUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Refundable is what is left to refund on a paid payment.
func (p *Payment) Refundable() Money {
	return p.Amount - p.RefundAmount
}

// EarningsSide aggregates payments on one side of the marketplace.
type EarningsSide struct {
	Count    int   `json:"count"`
	Gross    Money `json:"gross"`
	Refunded Money `json:"refunded"`
	Net      Money `json:"net"`
}

// Earnings splits a user's payments into what they paid and what they received.
type Earnings struct {
	UserID   int64        `json:"userId"`
	Paid     EarningsSide `json:"paid"`
	Received EarningsSide `json:"received"`
}

// EarningsLine is one payment row in an earnings export.
type EarningsLine struct {
	Side          string
	PaymentID     int64
	BookingID     int64
	TransactionID string
	PaymentDate   *time.Time
	Amount        Money
	RefundAmount  Money
	Currency      string
	Status        PaymentStatus
}

// Earnings sides.
const (
	SidePaid     = "paid"
	SideReceived = "received"
)
