package models

import (
	"fmt"
	"time"
)

// Interview is the session scheduled from a confirmed booking.
type Interview struct {
	ID                 int64           `json:"id"`
	IntervieweeID      int64           `json:"intervieweeId"`
	InterviewerID      int64           `json:"interviewerId"`
	BookingID          int64           `json:"bookingId"`
	Date               string          `json:"date"`
	StartTime          string          `json:"startTime"`
	Duration           int             `json:"duration"`
	EndTime            string          `json:"endTime"`
	InterviewLink      string          `json:"interviewLink,omitempty"`
	Status             InterviewStatus `json:"status"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	ActualStartTime    *time.Time      `json:"actualStartTime,omitempty"`
	ActualEndTime      *time.Time      `json:"actualEndTime,omitempty"`
	Timezone           string          `json:"timezone"`
	StartsAt           time.Time       `json:"startsAt"`
	EndsAt             time.Time       `json:"endsAt"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Recompute derives EndTime, StartsAt and EndsAt from date, start and duration.
func (i *Interview) Recompute() error {
	if i.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if i.Timezone == "" {
		i.Timezone = DefaultTimezone
	}
	start, err := SlotInstant(i.Date, i.StartTime, i.Timezone)
	if err != nil {
		return err
	}
	end := start.Add(time.Duration(i.Duration) * time.Minute)
	i.StartsAt = start.UTC()
	i.EndsAt = end.UTC()
	i.EndTime = FormatClock(end, i.Timezone)
	return nil
}

// InterviewFromSlot builds the interview for a confirmed booking.
func InterviewFromSlot(b *Booking, slot *Availability) (*Interview, error) {
	iv := &Interview{
		IntervieweeID: b.IntervieweeID,
		InterviewerID: slot.InterviewerID,
		BookingID:     b.ID,
		Date:          slot.Date,
		StartTime:     slot.StartTime,
		Duration:      int(slot.Duration() / time.Minute),
		Status:        InterviewBooked,
		Timezone:      slot.Timezone,
	}
	if err := iv.Recompute(); err != nil {
		return nil, err
	}
	return iv, nil
}

// InterviewPatch carries optional fields for a partial update.
type InterviewPatch struct {
	Date            *string
	StartTime       *string
	Duration        *int
	InterviewLink   *string
	ActualStartTime *time.Time
	ActualEndTime   *time.Time
	Timezone        *string
}

func (p InterviewPatch) Apply(i *Interview) error {
	if p.Date != nil {
		i.Date = *p.Date
	}
	if p.StartTime != nil {
		i.StartTime = *p.StartTime
	}
	if p.Duration != nil {
		i.Duration = *p.Duration
	}
	if p.InterviewLink != nil {
		i.InterviewLink = *p.InterviewLink
	}
	if p.ActualStartTime != nil {
		i.ActualStartTime = p.ActualStartTime
	}
	if p.ActualEndTime != nil {
		i.ActualEndTime = p.ActualEndTime
	}
	if p.Timezone != nil {
		i.Timezone = *p.Timezone
	}
	return i.Recompute()
}
