package slots

import (
	"fmt"
	"time"

	"interviewhub/internal/models"
)

// Window is one generated slot as clock times on the schedule's date.
type Window struct {
	StartTime string `json:"startTime"` // "10:00"
	EndTime   string `json:"endTime"`   // "11:00"
}

// Schedule describes a working day to cut into slots.
type Schedule struct {
	DayStart    string // "09:00"
	DayEnd      string // "18:00"
	BreakStart  string // "13:00" (optional)
	BreakEnd    string // "14:00" (optional)
	SlotMinutes int
}

// Generate cuts the working day into back-to-back slots of SlotMinutes,
// skipping any slot that touches the break. A trailing remainder shorter than
// a slot is dropped.
func Generate(s Schedule) ([]Window, error) {
	if s.SlotMinutes <= 0 {
		return nil, fmt.Errorf("slot duration must be positive")
	}

	start, err := models.ParseClock(s.DayStart)
	if err != nil {
		return nil, fmt.Errorf("parse day start: %w", err)
	}
	end, err := models.ParseClock(s.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("parse day end: %w", err)
	}
	if end <= start {
		return nil, models.ErrInvalidWindow
	}

	var breakStart, breakEnd time.Duration
	hasBreak := s.BreakStart != "" && s.BreakEnd != ""
	if hasBreak {
		if breakStart, err = models.ParseClock(s.BreakStart); err != nil {
			return nil, fmt.Errorf("parse break start: %w", err)
		}
		if breakEnd, err = models.ParseClock(s.BreakEnd); err != nil {
			return nil, fmt.Errorf("parse break end: %w", err)
		}
		if breakEnd <= breakStart {
			return nil, fmt.Errorf("break: %w", models.ErrInvalidWindow)
		}
	}

	step := time.Duration(s.SlotMinutes) * time.Minute
	var out []Window
	for cursor := start; cursor+step <= end; cursor += step {
		slotEnd := cursor + step
		if hasBreak && cursor < breakEnd && breakStart < slotEnd {
			continue
		}
		out = append(out, Window{StartTime: clock(cursor), EndTime: clock(slotEnd)})
	}
	return out, nil
}

func clock(d time.Duration) string {
	mins := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
