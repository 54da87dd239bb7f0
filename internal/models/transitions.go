package models

// Allowed status transitions. Anything not listed is rejected.
var (
	availabilityTransitions = map[AvailabilityStatus][]AvailabilityStatus{
		AvailabilityAvailable: {AvailabilityBooked, AvailabilityExpired},
		AvailabilityBooked:    {AvailabilityAvailable},
	}
	bookingTransitions = map[BookingStatus][]BookingStatus{
		BookingPending:   {BookingConfirmed, BookingCancelled},
		BookingConfirmed: {BookingCancelled},
	}
	interviewTransitions = map[InterviewStatus][]InterviewStatus{
		InterviewBooked: {InterviewCompleted, InterviewCancelled},
	}
	paymentTransitions = map[PaymentStatus][]PaymentStatus{
		PaymentPending: {PaymentPaid, PaymentFailed},
		PaymentPaid:    {PaymentRefunded},
		PaymentFailed:  {PaymentPaid},
	}
)

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (s AvailabilityStatus) CanTransitionTo(next AvailabilityStatus) bool {
	return contains(availabilityTransitions[s], next)
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return contains(bookingTransitions[s], next)
}

func (s InterviewStatus) CanTransitionTo(next InterviewStatus) bool {
	return contains(interviewTransitions[s], next)
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return contains(paymentTransitions[s], next)
}

// IsActive reports whether the booking still holds its slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}
