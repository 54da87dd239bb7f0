package models

import "time"

// Booking is an interviewee's claim on an availability slot.
type Booking struct {
	ID                 int64         `json:"id"`
	IntervieweeID      int64         `json:"intervieweeId"`
	AvailabilityID     int64         `json:"availabilityId"`
	BookingDate        string        `json:"bookingDate"`
	TotalPrice         Money         `json:"totalPrice"`
	PaymentStatus      BookingStatus `json:"paymentStatus"`
	TransactionID      string        `json:"transactionId,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Version            int64         `json:"version"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}
