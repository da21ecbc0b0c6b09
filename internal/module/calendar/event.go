package calendar

import (
	"fmt"
	"strings"
	"time"

	calendarapi "google.golang.org/api/calendar/v3"
)

// DefaultDurationMinutes is the event length when a task has no duration.
const DefaultDurationMinutes = 60

// untilLayout is the RFC 5545 UTC basic timestamp.
const untilLayout = "20060102T150405Z"

// Schedule is the part of a task mirrored into a calendar event.
type Schedule struct {
	Title             string
	Description       string
	DueDate           time.Time
	DurationMinutes   *int
	Recurrence        string
	RecurrenceEndDate *time.Time
}

// Window returns the event's start and end.
func (s *Schedule) Window() (time.Time, time.Time) {
	minutes := DefaultDurationMinutes
	if s.DurationMinutes != nil && *s.DurationMinutes > 0 {
		minutes = *s.DurationMinutes
	}
	return s.DueDate, s.DueDate.Add(time.Duration(minutes) * time.Minute)
}

// RecurrenceRule returns the RRULE lines for the schedule, or nil when the
// schedule does not repeat or has no end date.
func (s *Schedule) RecurrenceRule() []string {
	if s.RecurrenceEndDate == nil {
		return nil
	}
	var freq string
	switch strings.ToLower(s.Recurrence) {
	case "daily":
		freq = "DAILY"
	case "weekly":
		freq = "WEEKLY"
	case "monthly":
		freq = "MONTHLY"
	default:
		return nil
	}
	return []string{fmt.Sprintf("RRULE:FREQ=%s;UNTIL=%s", freq, s.RecurrenceEndDate.UTC().Format(untilLayout))}
}

// BuildEvent converts a schedule into an event in timeZone.
func BuildEvent(s *Schedule, timeZone string) *calendarapi.Event {
	start, end := s.Window()
	return &calendarapi.Event{
		Summary:     s.Title,
		Description: s.Description,
		Start: &calendarapi.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &calendarapi.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		Recurrence: s.RecurrenceRule(),
	}
}
