// Package timefmt turns server timestamps and slot strings into display labels.
//
// Server timestamps are naive UTC values ("2024-06-10T14:30:00.123456" or the
// space separated variant). Older rows may hold a bare "HH:MM" time of day,
// also UTC. All labels are rendered in the viewer's configured location.
package timefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/polyclinic/clinicdesk/internal/platform/clock"
)

const (
	timeLayout      = "3:04 PM"
	shortDateLayout = "1/2/2006"
)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var bareClock = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// Formatter renders timestamps in a fixed viewer location.
type Formatter struct {
	loc   *time.Location
	clock clock.Clock
}

// New returns a Formatter for loc. A nil loc means the host's local zone.
func New(loc *time.Location, c clock.Clock) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	if c == nil {
		c = clock.New()
	}
	return &Formatter{loc: loc, clock: c}
}

// Location returns the viewer location.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Today returns the viewer's current date as YYYY-MM-DD.
func (f *Formatter) Today() string {
	return f.clock.Now().In(f.loc).Format("2006-01-02")
}

// Parse interprets s as an instant. Bare clock values are placed on the
// viewer's current UTC date.
func (f *Formatter) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if m := bareClock.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		if h > 23 || mm > 59 || sec > 59 {
			return time.Time{}, false
		}
		now := f.clock.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), h, mm, sec, 0, time.UTC), true
	}
	return time.Time{}, false
}

// LocalTime renders s as "h:mm AM/PM". Unparseable input is returned as is.
func (f *Formatter) LocalTime(s string) string {
	if s == "" {
		return ""
	}
	t, ok := f.Parse(s)
	if !ok {
		return s
	}
	return t.In(f.loc).Format(timeLayout)
}

// SmartTime renders a time of day for instants on the viewer's current day
// and a short date otherwise. Bare clock values carry no date and always
// render as a time of day.
func (f *Formatter) SmartTime(s string) string {
	if s == "" {
		return ""
	}
	if bareClock.MatchString(strings.TrimSpace(s)) {
		return f.LocalTime(s)
	}
	t, ok := f.Parse(s)
	if !ok {
		return s
	}
	local := t.In(f.loc)
	now := f.clock.Now().In(f.loc)
	if sameDay(local, now) {
		return local.Format(timeLayout)
	}
	return local.Format(shortDateLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Clock trims a "HH:MM:SS" value to "HH:MM". Shorter values pass through.
func Clock(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// NormalizeSlot pads "HH:MM" to the "HH:MM:00" form the server expects.
func NormalizeSlot(s string) string {
	s = strings.TrimSpace(s)
	if strings.Count(s, ":") == 1 {
		return s + ":00"
	}
	return s
}

// HourOption is one hourly slot choice in staff forms.
type HourOption struct {
	Value string
	Label string
}

// HourOptions lists the hourly slots offered between 08:00 and 22:00.
func HourOptions() []HourOption {
	opts := make([]HourOption, 0, 14)
	for h := 8; h < 22; h++ {
		v := fmt.Sprintf("%02d:00:00", h)
		opts = append(opts, HourOption{Value: v, Label: SlotLabel(v)})
	}
	return opts
}

// SlotLabel renders the one-hour window that starts at s, e.g. "1 PM - 2 PM".
func SlotLabel(s string) string {
	m := bareClock.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	h, _ := strconv.Atoi(m[1])
	return hourLabel(h) + " - " + hourLabel((h+1)%24)
}

func hourLabel(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	d := h % 12
	if d == 0 {
		d = 12
	}
	return fmt.Sprintf("%d %s", d, suffix)
}
