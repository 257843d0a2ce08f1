package calendar

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/opscart/node-placeholder-scaler/pkg/models"
	"github.com/teambition/rrule-go"
	"k8s.io/klog/v2"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
)

// GetEvents returns every event in progress at instant, ordered by start.
// A zero instant means now. The result is never nil.
func GetEvents(cal *Calendar, instant time.Time) []models.CalendarEvent {
	if instant.IsZero() {
		instant = time.Now()
	}

	zones := cal.zones()
	events := []models.CalendarEvent{}

	for _, vevent := range cal.events() {
		ev, err := occurrenceAt(vevent, instant, zones)
		if err != nil {
			klog.V(2).InfoS("Skipping calendar event", "uid", vevent.Id(), "err", err)
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

// occurrenceAt returns the occurrence of vevent covering instant, or nil
func occurrenceAt(vevent *ics.VEvent, instant time.Time, zones *zoneSet) (*models.CalendarEvent, error) {
	cb := &vevent.ComponentBase

	if status, ok := property(cb, "STATUS"); ok && strings.EqualFold(strings.TrimSpace(status.Value), "CANCELLED") {
		return nil, nil
	}

	startProp, ok := property(cb, "DTSTART")
	if !ok {
		return nil, fmt.Errorf("event has no DTSTART")
	}
	start, allDay, err := parseTime(startProp, zones)
	if err != nil {
		return nil, fmt.Errorf("invalid DTSTART: %w", err)
	}

	end, err := eventEnd(cb, start, allDay, zones)
	if err != nil {
		return nil, err
	}
	length := end.Sub(start)
	days := calendarDays(start, end)

	occStart := start
	if ruleProp, ok := property(cb, "RRULE"); ok {
		opt, err := rrule.StrToROption(strings.TrimSpace(ruleProp.Value))
		if err != nil {
			return nil, fmt.Errorf("invalid RRULE: %w", err)
		}
		opt.Dtstart = start
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("invalid RRULE: %w", err)
		}

		occStart = rule.Before(instant, true)
		if occStart.IsZero() {
			return nil, nil
		}
		if excluded(cb, occStart, zones) {
			return nil, nil
		}
	}

	occEnd := occStart.Add(length)
	if allDay {
		occEnd = occStart.AddDate(0, 0, days)
	}

	if instant.Before(occStart) || !instant.Before(occEnd) {
		return nil, nil
	}

	ev := &models.CalendarEvent{
		UID:    vevent.Id(),
		AllDay: allDay,
		Start:  occStart,
		End:    occEnd,
	}
	if summary, ok := property(cb, "SUMMARY"); ok {
		ev.Summary = unescapeText(summary.Value)
	}
	if description, ok := property(cb, "DESCRIPTION"); ok {
		ev.Description = StripHTML(unescapeText(description.Value))
	}
	return ev, nil
}

// eventEnd resolves DTEND, DURATION or the RFC 5545 default
func eventEnd(cb *ics.ComponentBase, start time.Time, allDay bool, zones *zoneSet) (time.Time, error) {
	if endProp, ok := property(cb, "DTEND"); ok {
		end, _, err := parseTime(endProp, zones)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid DTEND: %w", err)
		}
		return end, nil
	}

	if durationProp, ok := property(cb, "DURATION"); ok {
		d, err := parseDuration(durationProp.Value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid DURATION: %w", err)
		}
		return start.Add(d), nil
	}

	if allDay {
		return start.AddDate(0, 0, 1), nil
	}
	return start, nil
}

// parseTime parses a DATE or DATE-TIME property. Floating times and dates are
// read in the calendar timezone.
func parseTime(prop ics.IANAProperty, zones *zoneSet) (time.Time, bool, error) {
	value := strings.TrimSpace(prop.Value)

	if strings.EqualFold(param(prop, "VALUE"), "DATE") || len(value) == len(dateLayout) {
		t, err := time.ParseInLocation(dateLayout, value, zones.calendar)
		return t, true, err
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(utcLayout, value)
		return t, false, err
	}

	zone := zones.calendar
	if tzid := param(prop, "TZID"); tzid != "" {
		zone = zones.lookup(tzid)
	}
	t, err := time.ParseInLocation(dateTimeLayout, value, zone)
	return t, false, err
}

// excluded reports whether occurrence is listed in an EXDATE property
func excluded(cb *ics.ComponentBase, occurrence time.Time, zones *zoneSet) bool {
	for _, prop := range properties(cb, "EXDATE") {
		for _, value := range strings.Split(prop.Value, ",") {
			single := prop
			single.Value = value
			t, _, err := parseTime(single, zones)
			if err == nil && t.Equal(occurrence) {
				return true
			}
		}
	}
	return false
}

func calendarDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

var durationPattern = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseDuration parses an RFC 5545 DURATION value such as P1D or PT1H30M
func parseDuration(value string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil || value == "P" || strings.HasSuffix(value, "T") {
		return 0, fmt.Errorf("malformed duration %q", value)
	}

	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}
