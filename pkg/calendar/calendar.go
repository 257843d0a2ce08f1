// Package calendar loads ICS calendars and selects the events that are in
// progress at a given instant.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"
	_ "time/tzdata"

	ics "github.com/arran4/golang-ical"
)

// Calendar is a parsed ICS document
type Calendar struct {
	ics *ics.Calendar
}

// Parse reads an ICS document
func Parse(r io.Reader) (*Calendar, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	return &Calendar{ics: cal}, nil
}

// TimezoneIDs returns the TZID of every VTIMEZONE the calendar declares
func (c *Calendar) TimezoneIDs() []string {
	var ids []string
	for _, tz := range c.vtimezones() {
		if prop, ok := property(&tz.ComponentBase, "TZID"); ok {
			ids = append(ids, unquote(prop.Value))
		}
	}
	return ids
}

// ResolveTimezone returns the calendar's timezone when it declares exactly
// one. A TZID outside the tz database is built from the declaration's
// STANDARD and DAYLIGHT rules. No declaration, several declarations or an
// unusable one yield UTC.
func ResolveTimezone(cal *Calendar) *time.Location {
	return cal.zones().calendar
}

func (c *Calendar) vtimezones() []*ics.VTimezone {
	if c == nil || c.ics == nil {
		return nil
	}

	var timezones []*ics.VTimezone
	for _, component := range c.ics.Components {
		if tz, ok := component.(*ics.VTimezone); ok && tz != nil {
			timezones = append(timezones, tz)
		}
	}
	return timezones
}

func (c *Calendar) events() []*ics.VEvent {
	if c == nil || c.ics == nil {
		return nil
	}
	return c.ics.Events()
}

// property returns the first property named name
func property(cb *ics.ComponentBase, name string) (ics.IANAProperty, bool) {
	for _, prop := range cb.Properties {
		if strings.EqualFold(prop.IANAToken, name) {
			return prop, true
		}
	}
	return ics.IANAProperty{}, false
}

// properties returns every property named name
func properties(cb *ics.ComponentBase, name string) []ics.IANAProperty {
	var props []ics.IANAProperty
	for _, prop := range cb.Properties {
		if strings.EqualFold(prop.IANAToken, name) {
			props = append(props, prop)
		}
	}
	return props
}

func param(prop ics.IANAProperty, name string) string {
	for key, values := range prop.ICalParameters {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return unquote(values[0])
		}
	}
	return ""
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

var textUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

// unescapeText decodes RFC 5545 TEXT escapes
func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
