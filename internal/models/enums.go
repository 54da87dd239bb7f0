package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when an enum string is not recognised.
var ErrUnknownValue = errors.New("unknown value")

type Role string

const (
	RoleInterviewer Role = "INTERVIEWER"
	RoleInterviewee Role = "INTERVIEWEE"
	RoleAdmin       Role = "ADMIN"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityBooked    AvailabilityStatus = "BOOKED"
	AvailabilityExpired   AvailabilityStatus = "EXPIRED"
)

// BookingStatus is the payment status carried by a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

type InterviewStatus string

const (
	InterviewBooked    InterviewStatus = "BOOKED"
	InterviewCompleted InterviewStatus = "COMPLETED"
	InterviewCancelled InterviewStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type DocumentStatus string

const (
	DocumentNotSubmitted DocumentStatus = "NOT_SUBMITTED"
	DocumentPending      DocumentStatus = "PENDING"
	DocumentApproved     DocumentStatus = "APPROVED"
	DocumentRejected     DocumentStatus = "REJECTED"
)

func parseEnum[T ~string](kind, s string, allowed ...T) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(s)))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s %q", ErrUnknownValue, kind, s)
}

func ParseRole(s string) (Role, error) {
	return parseEnum("role", s, RoleInterviewer, RoleInterviewee, RoleAdmin)
}

func ParseAvailabilityStatus(s string) (AvailabilityStatus, error) {
	return parseEnum("availability status", s, AvailabilityAvailable, AvailabilityBooked, AvailabilityExpired)
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	return parseEnum("booking status", s, BookingPending, BookingConfirmed, BookingCancelled)
}

func ParseInterviewStatus(s string) (InterviewStatus, error) {
	return parseEnum("interview status", s, InterviewBooked, InterviewCompleted, InterviewCancelled)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	return parseEnum("payment status", s, PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded)
}

func ParseDocumentStatus(s string) (DocumentStatus, error) {
	return parseEnum("document status", s, DocumentNotSubmitted, DocumentPending, DocumentApproved, DocumentRejected)
}
