package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Date is a calendar date without zone, stored as YYYY-MM-DD.
// The textual form sorts in chronological order.
type Date string

// ParseDate validates and normalizes a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date(t.Format(dateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", string(d), err)
	}
	return t, nil
}

// AddDays shifts d by n calendar days.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool { return d < other }
func (d Date) After(other Date) bool  { return d > other }

func (d Date) String() string { return string(d) }

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time stored as HH:MM.
type TimeOfDay string

// ParseTimeOfDay validates and normalizes an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return TimeOfDay(t.Format(timeLayout)), nil
}

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %d", minute)
	}
	return TimeOfDay(fmt.Sprintf("%02d:%02d", hour, minute)), nil
}

// Clock returns the hour and minute. Malformed values yield 0, 0.
func (t TimeOfDay) Clock() (hour, minute int) {
	parsed, err := time.Parse(timeLayout, string(t))
	if err != nil {
		return 0, 0
	}
	return parsed.Hour(), parsed.Minute()
}

// On combines t with a calendar date in loc.
func (t TimeOfDay) On(d Date, loc *time.Location) (time.Time, error) {
	day, err := d.In(loc)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := ParseTimeOfDay(string(t)); err != nil {
		return time.Time{}, err
	}
	hour, minute := t.Clock()
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// Display renders t on a 12-hour clock, e.g. "2:05 PM".
func (t TimeOfDay) Display() string {
	hour, minute := t.Clock()
	amPm := "AM"
	if hour >= 12 {
		amPm = "PM"
	}
	displayHour := hour
	switch {
	case hour == 0:
		displayHour = 12
	case hour > 12:
		displayHour = hour - 12
	}
	return fmt.Sprintf("%d:%02d %s", displayHour, minute, amPm)
}

func (t TimeOfDay) String() string { return string(t) }

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
