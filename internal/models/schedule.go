package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// DefaultTimezone is used when a slot carries no timezone.
const DefaultTimezone = "UTC"

// LoadZone resolves an IANA zone name, empty meaning UTC.
func LoadZone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	return loc, nil
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseClock returns the offset from midnight of an HH:MM time.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q; expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// SlotInstant resolves date + clock in tz to an absolute instant.
func SlotInstant(date, clock, tz string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadZone(tz)
	if err != nil {
		return time.Time{}, err
	}
	mins := int(offset / time.Minute)
	return time.Date(d.Year(), d.Month(), d.Day(), mins/60, mins%60, 0, 0, loc), nil
}

// FormatClock renders an instant as HH:MM in tz.
func FormatClock(t time.Time, tz string) string {
	loc, err := LoadZone(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(ClockLayout)
}
