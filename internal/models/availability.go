package models

import (
	"errors"
	"time"
)

// ErrInvalidWindow is returned when a slot does not end after it starts.
var ErrInvalidWindow = errors.New("end time must be after start time")

// Availability is a window offered by an interviewer.
type Availability struct {
	ID            int64              `json:"id"`
	InterviewerID int64              `json:"interviewerId"`
	Date          string             `json:"date"`
	StartTime     string             `json:"startTime"`
	EndTime       string             `json:"endTime"`
	Timezone      string             `json:"timezone"`
	Status        AvailabilityStatus `json:"status"`
	StartsAt      time.Time          `json:"startsAt"`
	EndsAt        time.Time          `json:"endsAt"`
	Version       int64              `json:"version"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// Resolve validates the window and fills StartsAt/EndsAt.
func (a *Availability) Resolve() error {
	if a.Timezone == "" {
		a.Timezone = DefaultTimezone
	}
	start, err := SlotInstant(a.Date, a.StartTime, a.Timezone)
	if err != nil {
		return err
	}
	end, err := SlotInstant(a.Date, a.EndTime, a.Timezone)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return ErrInvalidWindow
	}
	a.StartsAt = start.UTC()
	a.EndsAt = end.UTC()
	return nil
}

// Duration is the slot length.
func (a *Availability) Duration() time.Duration {
	return a.EndsAt.Sub(a.StartsAt)
}

// Overlaps reports whether two windows intersect.
func (a *Availability) Overlaps(o *Availability) bool {
	return a.StartsAt.Before(o.EndsAt) && o.StartsAt.Before(a.EndsAt)
}

// AvailabilityPatch carries optional fields for a partial update.
type AvailabilityPatch struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Timezone  *string
	Status    *AvailabilityStatus
}

// TouchesWindow reports whether the patch changes the time window.
func (p AvailabilityPatch) TouchesWindow() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil || p.Timezone != nil
}

// Apply copies the supplied fields onto a and re-resolves the window.
func (p AvailabilityPatch) Apply(a *Availability) error {
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.StartTime != nil {
		a.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = *p.EndTime
	}
	if p.Timezone != nil {
		a.Timezone = *p.Timezone
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.TouchesWindow() {
		return a.Resolve()
	}
	return nil
}
