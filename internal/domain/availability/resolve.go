package availability

import (
	"strings"
	"time"

	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
)

// DayKind classifies a resolved day.
type DayKind string

const (
	DayOff       DayKind = "off"
	DayException DayKind = "exception"
	DayOpen      DayKind = "open"
)

// DayStatus is the resolved availability of one date.
type DayStatus struct {
	Kind  DayKind
	Label string
}

// Weekday maps t to a Monday-first index (Monday=0, Sunday=6).
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Resolve applies the precedence exception, then weekly rule, then the
// default window to date. The first matching exception and rule win.
func Resolve(date time.Time, weekly []WeeklyRule, exceptions []Exception) DayStatus {
	key := date.Format("2006-01-02")
	for _, ex := range exceptions {
		if ex.ExceptionDate != key {
			continue
		}
		if ex.Status == StatusCancelled {
			return DayStatus{Kind: DayOff, Label: "OFF"}
		}
		start, end := deref(ex.StartTime), deref(ex.EndTime)
		if start == "" {
			return DayStatus{Kind: DayException, Label: string(ex.Status)}
		}
		return DayStatus{Kind: DayException, Label: timefmt.Clock(start) + "-" + timefmt.Clock(end)}
	}

	day := Weekday(date)
	for _, r := range weekly {
		if r.DayOfWeek == day {
			return DayStatus{Kind: DayOpen, Label: timefmt.Clock(r.StartTime) + " - " + timefmt.Clock(r.EndTime)}
		}
	}
	return DayStatus{Kind: DayOpen, Label: DefaultStart + " - " + DefaultEnd}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// NormalizeTime converts "09:00" to the "09:00:00" form the backend expects.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 5 && s[2] == ':' {
		return s + ":00"
	}
	return s
}
