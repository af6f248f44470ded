package availability

import (
	"strings"

	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
)

// DaySummary lists one weekday's windows.
type DaySummary struct {
	Day   int
	Name  string
	Rules []WeeklyRule
}

// Label is "Fully Available (08:00 - 22:00)" for a day without rules,
// otherwise its windows.
func (d DaySummary) Label() string {
	if len(d.Rules) == 0 {
		return "Fully Available (" + DefaultStart + " - " + DefaultEnd + ")"
	}
	parts := make([]string, 0, len(d.Rules))
	for _, r := range d.Rules {
		parts = append(parts, timefmt.Clock(r.StartTime)+" - "+timefmt.Clock(r.EndTime))
	}
	return strings.Join(parts, ", ")
}

// WeeklySummary groups rules into seven Monday-first rows.
func WeeklySummary(rules []WeeklyRule) [7]DaySummary {
	var out [7]DaySummary
	for i := range out {
		out[i] = DaySummary{Day: i, Name: dayNames[i]}
	}
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			continue
		}
		out[r.DayOfWeek].Rules = append(out[r.DayOfWeek].Rules, r)
	}
	return out
}

// StrictMode reports whether any custom window is set. Without one the
// doctor is bookable all day, every day.
func StrictMode(rules []WeeklyRule) bool {
	return len(rules) > 0
}
