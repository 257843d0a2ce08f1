package models

import "time"

// CalendarEvent is a single occurrence of a calendar event covering the
// queried instant. Description is plain text with markup removed.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	AllDay      bool

	// Start / End of this occurrence. All-day events start and end at
	// midnight in the calendar timezone.
	Start time.Time
	End   time.Time
}

// Duration returns the length of the event
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DurationDays returns the number of whole days the event lasts
func (e CalendarEvent) DurationDays() int {
	if e.AllDay {
		// count calendar days so DST transitions do not shorten the event
		sy, sm, sd := e.Start.Date()
		ey, em, ed := e.End.Date()
		start := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
		end := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
		return int(end.Sub(start) / (24 * time.Hour))
	}
	return int(e.Duration() / (24 * time.Hour))
}
