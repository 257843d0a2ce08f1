package calendar

import (
	"fmt"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

// FormatEvent renders an event for logs and the CLI
func FormatEvent(ev models.CalendarEvent) string {
	if ev.DurationDays() >= 1 {
		return fmt.Sprintf("%s %s", ev.Summary, ev.Start.Format("2006-01-02"))
	}

	const full = "2006-01-02 15:04"
	tz := ev.Start.Format("MST")

	sy, sm, sd := ev.Start.Date()
	ey, em, ed := ev.End.Date()
	if sy == ey && sm == em && sd == ed {
		return fmt.Sprintf("%s %s-%s %s", ev.Summary, ev.Start.Format(full), ev.End.Format("15:04"), tz)
	}
	return fmt.Sprintf("%s %s-%s %s", ev.Summary, ev.Start.Format(full), ev.End.Format(full), tz)
}
