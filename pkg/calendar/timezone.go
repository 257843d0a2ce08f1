package calendar

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"k8s.io/klog/v2"
)

// zoneHorizon bounds the expansion of recurring observance onsets. The last
// observance stays in effect after it.
var zoneHorizon = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

// zoneSet maps the TZIDs declared by one calendar to locations
type zoneSet struct {
	calendar *time.Location
	declared map[string]*time.Location
}

// zones resolves every VTIMEZONE once. IANA names load from the tz
// database; other names, such as the Windows names Outlook writes, are built
// from their STANDARD and DAYLIGHT observances.
func (c *Calendar) zones() *zoneSet {
	z := &zoneSet{calendar: time.UTC, declared: map[string]*time.Location{}}

	timezones := c.vtimezones()
	for _, tz := range timezones {
		prop, ok := property(&tz.ComponentBase, "TZID")
		if !ok {
			continue
		}
		tzid := unquote(prop.Value)
		if loc := loadTimezone(tzid, tz); loc != nil {
			z.declared[tzid] = loc
		}
	}

	if len(timezones) == 1 {
		for _, loc := range z.declared {
			z.calendar = loc
		}
	}
	return z
}

// lookup returns the location for a TZID parameter, falling back to the
// calendar timezone
func (z *zoneSet) lookup(tzid string) *time.Location {
	if loc, ok := z.declared[tzid]; ok {
		return loc
	}
	if loc, err := time.LoadLocation(tzid); err == nil {
		return loc
	}
	klog.V(2).InfoS("Unknown event TZID, using calendar timezone", "tzid", tzid)
	return z.calendar
}

func loadTimezone(tzid string, tz *ics.VTimezone) *time.Location {
	loc, err := time.LoadLocation(tzid)
	if err == nil {
		return loc
	}

	built, buildErr := vtimezoneLocation(tzid, tz)
	if buildErr != nil {
		klog.V(2).InfoS("Unknown calendar timezone", "tzid", tzid, "err", err, "rulesErr", buildErr)
		return nil
	}
	return built
}

// observance is one STANDARD or DAYLIGHT block. Onsets are wall-clock times
// in the offset the observance replaces, labelled UTC.
type observance struct {
	name       string
	daylight   bool
	offsetFrom int
	offsetTo   int
	onsets     []time.Time
}

// vtimezoneLocation builds a location whose transitions are the onsets of
// the observances of tz
func vtimezoneLocation(tzid string, tz *ics.VTimezone) (*time.Location, error) {
	var observances []observance
	for _, component := range tz.Components {
		var (
			o   observance
			err error
		)
		switch c := component.(type) {
		case *ics.Standard:
			if c == nil {
				continue
			}
			o, err = parseObservance(&c.ComponentBase, false)
		case *ics.Daylight:
			if c == nil {
				continue
			}
			o, err = parseObservance(&c.ComponentBase, true)
		default:
			continue
		}
		if err != nil {
			klog.V(2).InfoS("Skipping timezone observance", "tzid", tzid, "err", err)
			continue
		}
		observances = append(observances, o)
	}

	if len(observances) == 0 {
		return nil, fmt.Errorf("timezone %q has no usable observances", tzid)
	}
	if len(observances) > 254 {
		return nil, fmt.Errorf("timezone %q has too many observances", tzid)
	}
	return time.LoadLocationFromTZData(tzid, tzif(observances))
}

func parseObservance(cb *ics.ComponentBase, daylight bool) (observance, error) {
	o := observance{daylight: daylight}

	to, ok := property(cb, "TZOFFSETTO")
	if !ok {
		return o, fmt.Errorf("observance has no TZOFFSETTO")
	}
	var err error
	if o.offsetTo, err = parseOffset(to.Value); err != nil {
		return o, fmt.Errorf("invalid TZOFFSETTO: %w", err)
	}
	o.offsetFrom = o.offsetTo
	if from, ok := property(cb, "TZOFFSETFROM"); ok {
		if o.offsetFrom, err = parseOffset(from.Value); err != nil {
			return o, fmt.Errorf("invalid TZOFFSETFROM: %w", err)
		}
	}

	o.name = formatOffset(o.offsetTo)
	if name, ok := property(cb, "TZNAME"); ok && strings.TrimSpace(name.Value) != "" {
		o.name = strings.TrimSpace(name.Value)
	}

	startProp, ok := property(cb, "DTSTART")
	if !ok {
		return o, fmt.Errorf("observance has no DTSTART")
	}
	start, err := parseWallTime(startProp.Value)
	if err != nil {
		return o, fmt.Errorf("invalid DTSTART: %w", err)
	}
	o.onsets = []time.Time{start}

	if ruleProp, ok := property(cb, "RRULE"); ok {
		opt, err := rrule.StrToROption(strings.TrimSpace(ruleProp.Value))
		if err != nil {
			return o, fmt.Errorf("invalid RRULE: %w", err)
		}
		opt.Dtstart = start
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return o, fmt.Errorf("invalid RRULE: %w", err)
		}
		o.onsets = append(o.onsets, rule.Between(start, zoneHorizon, true)...)
	}

	for _, prop := range properties(cb, "RDATE") {
		for _, value := range strings.Split(prop.Value, ",") {
			if t, err := parseWallTime(value); err == nil {
				o.onsets = append(o.onsets, t)
			}
		}
	}
	return o, nil
}

func parseWallTime(value string) (time.Time, error) {
	return time.Parse(dateTimeLayout, strings.TrimSuffix(strings.TrimSpace(value), "Z"))
}

// parseOffset parses a UTC-OFFSET value such as -0800 or +053000 into seconds
func parseOffset(value string) (int, error) {
	value = strings.TrimSpace(value)
	if len(value) != 5 && len(value) != 7 {
		return 0, fmt.Errorf("malformed offset %q", value)
	}

	sign := 1
	switch value[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("malformed offset %q", value)
	}

	seconds := 0
	for i, unit := range []int{3600, 60, 1} {
		if 1+2*i >= len(value) {
			break
		}
		n, err := strconv.Atoi(value[1+2*i : 3+2*i])
		if err != nil {
			return 0, fmt.Errorf("malformed offset %q", value)
		}
		seconds += n * unit
	}
	return sign * seconds, nil
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, seconds%3600/60)
}

type zoneType struct {
	offset   int
	daylight bool
	name     string
}

type transition struct {
	when  int64
	index uint8
}

// tzif encodes observances as version 2 TZif data. Type 0 holds the offset
// in effect before the first onset; observance i is type i+1.
func tzif(observances []observance) []byte {
	var transitions []transition
	for i, o := range observances {
		for _, onset := range o.onsets {
			transitions = append(transitions, transition{
				when:  onset.Unix() - int64(o.offsetFrom),
				index: uint8(i + 1),
			})
		}
	}
	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].when < transitions[j].when
	})

	unique := transitions[:0]
	for _, t := range transitions {
		if len(unique) > 0 && unique[len(unique)-1].when == t.when {
			unique[len(unique)-1] = t
			continue
		}
		unique = append(unique, t)
	}
	transitions = unique

	initial := observances[transitions[0].index-1].offsetFrom
	types := []zoneType{{offset: initial, name: formatOffset(initial)}}
	for _, o := range observances {
		types = append(types, zoneType{offset: o.offsetTo, daylight: o.daylight, name: o.name})
	}

	var abbrev []byte
	abbrevIndex := make([]byte, len(types))
	for i, zt := range types {
		if len(abbrev)+len(zt.name) >= 255 {
			continue
		}
		abbrevIndex[i] = byte(len(abbrev))
		abbrev = append(abbrev, zt.name...)
		abbrev = append(abbrev, 0)
	}

	header := func(b []byte, counts ...int) []byte {
		b = append(b, "TZif2"...)
		b = append(b, make([]byte, 15)...)
		for _, n := range counts {
			b = binary.BigEndian.AppendUint32(b, uint32(n))
		}
		return b
	}

	// empty version 1 block, then the 64-bit block readers use
	data := header(nil, 0, 0, 0, 0, 0, 0)
	data = header(data, 0, 0, 0, len(transitions), len(types), len(abbrev))
	for _, t := range transitions {
		data = binary.BigEndian.AppendUint64(data, uint64(t.when))
	}
	for _, t := range transitions {
		data = append(data, t.index)
	}
	for i, zt := range types {
		data = binary.BigEndian.AppendUint32(data, uint32(int32(zt.offset)))
		isDST := byte(0)
		if zt.daylight {
			isDST = 1
		}
		data = append(data, isDST, abbrevIndex[i])
	}
	return append(data, abbrev...)
}
