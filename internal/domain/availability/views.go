package availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// ErrNoDoctor is returned when the calendar has no doctor selected.
var ErrNoDoctor = errors.New("availability: no doctor selected")

// Calendar is the check-availability state: the selected doctor, the month
// cursor and that doctor's rule set, fetched once per selection.
type Calendar struct {
	mu       sync.Mutex
	svc      *Service
	tf       *timefmt.Formatter
	doctorID int
	cursor   Cursor
	data     *Availability
}

func NewCalendar(svc *Service, tf *timefmt.Formatter) *Calendar {
	cur, _ := ParseCursor(tf.Today()[:7])
	return &Calendar{svc: svc, tf: tf, cursor: cur}
}

// Select switches to doctorID, fetching its rules unless already cached.
func (c *Calendar) Select(ctx context.Context, doctorID int) error {
	c.mu.Lock()
	cached := c.doctorID == doctorID && c.data != nil
	c.mu.Unlock()
	if cached {
		return nil
	}

	data, err := c.svc.Availability(ctx, doctorID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.doctorID = doctorID
	c.data = data
	c.mu.Unlock()
	return nil
}

// Clear drops the selection.
func (c *Calendar) Clear() {
	c.mu.Lock()
	c.doctorID = 0
	c.data = nil
	c.mu.Unlock()
}

func (c *Calendar) Doctor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doctorID
}

func (c *Calendar) Cursor() Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Shift moves the month cursor without touching the network.
func (c *Calendar) Shift(n int) Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = c.cursor.Shift(n)
	return c.cursor
}

func (c *Calendar) SetCursor(cur Cursor) {
	c.mu.Lock()
	c.cursor = cur
	c.mu.Unlock()
}

// Grid lays out the current month from the cached rules.
func (c *Calendar) Grid() (Grid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return Grid{}, ErrNoDoctor
	}
	return BuildMonth(c.cursor, c.data.Weekly, c.data.Exceptions, c.tf.Today()), nil
}

// calendarErrorText maps a fetch failure to the text shown in the grid area.
func calendarErrorText(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return "Error loading availability"
	}
	return "System Error"
}

// CalendarView is the staff month calendar.
type CalendarView struct {
	svc *Service
	cal *Calendar
}

func NewCalendarView(svc *Service, cal *Calendar) *CalendarView {
	return &CalendarView{svc: svc, cal: cal}
}

func (v *CalendarView) Name() string { return router.ViewCheckAvailability }

func (v *CalendarView) Calendar() *Calendar { return v.cal }

func (v *CalendarView) Load(ctx context.Context, scr *ui.Screen) error {
	docs, err := v.svc.Doctors(ctx)
	if err != nil {
		return router.Failed("Error loading doctors", err)
	}

	var b strings.Builder
	b.WriteString("Check Doctor Availability\n\nSelect Doctor:\n")
	selected := v.cal.Doctor()
	for _, d := range docs {
		mark := " "
		if d.ID == selected {
			mark = ">"
		}
		fmt.Fprintf(&b, " %s %3d  %s\n", mark, d.ID, d.Label())
	}
	if len(docs) == 0 {
		b.WriteString("   No doctors available\n")
	}

	if g, err := v.cal.Grid(); err == nil {
		b.WriteString("\n< Prev   ")
		b.WriteString(g.Title)
		b.WriteString("   Next >\n\n")
		b.WriteString(g.Render())
	}
	scr.SetContent(b.String())
	return nil
}

// Select picks a doctor and redraws. doctorID 0 hides the calendar.
func (v *CalendarView) Select(ctx context.Context, scr *ui.Screen, doctorID int) error {
	if doctorID == 0 {
		v.cal.Clear()
		return v.Load(ctx, scr)
	}
	scr.SetLoading()
	if err := v.cal.Select(ctx, doctorID); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return err
		}
		scr.SetContent(calendarErrorText(err))
		return err
	}
	return v.Load(ctx, scr)
}

// Shift changes month and redraws from the cached rules.
func (v *CalendarView) Shift(ctx context.Context, scr *ui.Screen, n int) error {
	v.cal.Shift(n)
	return v.Load(ctx, scr)
}

// DoctorAvailabilityView is the doctor's own weekly schedule editor.
type DoctorAvailabilityView struct {
	svc *Service
	r   *router.Router
}

func NewDoctorAvailabilityView(svc *Service, r *router.Router) *DoctorAvailabilityView {
	return &DoctorAvailabilityView{svc: svc, r: r}
}

func (v *DoctorAvailabilityView) Name() string { return router.ViewDoctorAvailability }

func (v *DoctorAvailabilityView) Load(ctx context.Context, scr *ui.Screen) error {
	rules, err := v.svc.MyRules(ctx)
	if err != nil {
		return router.Failed("Error loading availability.", err)
	}

	intro := "You have no custom usage set. You are available all day (8 AM - 10 PM)."
	if StrictMode(rules) {
		intro = "You are in Strict Mode. You are only available during the times listed below."
	}

	rows := make([][]string, 0, 7)
	for _, d := range WeeklySummary(rules) {
		ids := make([]string, 0, len(d.Rules))
		for _, r := range d.Rules {
			ids = append(ids, strconv.Itoa(r.ID))
		}
		rows = append(rows, []string{d.Name, d.Label(), strings.Join(ids, ",")})
	}
	scr.SetContent(ui.Section("Manage Availability",
		intro+"\n",
		ui.Table([]string{"Day", "Hours", "Slot IDs"}, rows, ""),
	))
	return nil
}

// AddWindow adds a weekly slot. day is Monday-first.
func (v *DoctorAvailabilityView) AddWindow(ctx context.Context, day int, start, end string) error {
	return v.r.Mutate(ctx, "Availability Added!", func(ctx context.Context) error {
		return v.svc.AddMyWindow(ctx, day, start, end)
	})
}

func (v *DoctorAvailabilityView) RemoveWindow(ctx context.Context, id int) (bool, error) {
	return v.r.Destroy(ctx, "Remove this availability slot?", "Slot Removed", func(ctx context.Context) error {
		return v.svc.RemoveMyWindow(ctx, id)
	})
}

func (v *DoctorAvailabilityView) DayOff(ctx context.Context, date string) error {
	return v.r.Mutate(ctx, "Day marked as off!", func(ctx context.Context) error {
		return v.svc.MarkDayOff(ctx, date)
	})
}
