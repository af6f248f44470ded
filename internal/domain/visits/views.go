package visits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

const cancelQuestion = "Are you sure you want to cancel this appointment?"

var errPastDate = validation.Invalid("Date cannot be in the past")

// BookingForm holds the fields of the booking form besides doctor and date,
// which live in the slot picker.
type BookingForm struct {
	TimeSlot  string
	Gender    Gender
	VisitType VisitType
	Force     bool
}

// BookView is the staff and customer booking form.
type BookView struct {
	svc    *Service
	r      *router.Router
	tf     *timefmt.Formatter
	picker *SlotPicker

	mu      sync.Mutex
	doctors []admin.Doctor
}

func NewBookView(svc *Service, r *router.Router, tf *timefmt.Formatter) *BookView {
	return &BookView{svc: svc, r: r, tf: tf, picker: NewSlotPicker(svc)}
}

func (v *BookView) Name() string { return router.ViewBook }

func (v *BookView) Picker() *SlotPicker { return v.picker }

func (v *BookView) Load(ctx context.Context, scr *ui.Screen) error {
	docs, err := v.svc.Doctors(ctx)
	if err != nil {
		return router.Failed("Error loading doctors", err)
	}
	v.mu.Lock()
	v.doctors = docs
	v.mu.Unlock()
	v.render(scr)
	return nil
}

// Unmount drops the half-filled form.
func (v *BookView) Unmount() {
	v.picker.Reset()
}

func (v *BookView) render(scr *ui.Screen) {
	v.mu.Lock()
	docs := v.doctors
	v.mu.Unlock()
	doctorID, date := v.picker.Selection()
	slots, status := v.picker.Options()

	var b strings.Builder
	b.WriteString("Doctor:\n")
	for _, d := range docs {
		mark := " "
		if d.ID == doctorID {
			mark = ">"
		}
		fmt.Fprintf(&b, " %s %3d  %s\n", mark, d.ID, d.Label())
	}
	if len(docs) == 0 {
		b.WriteString("   No doctors found\n")
	}
	fmt.Fprintf(&b, "Date: %s\n", ui.OrDefault(date, "(not set)"))
	if len(slots) == 0 {
		fmt.Fprintf(&b, "Time Slot: %s\n", status)
	} else {
		labels := make([]string, len(slots))
		for i, s := range slots {
			labels[i] = timefmt.Clock(s)
		}
		fmt.Fprintf(&b, "Time Slot: %s\n", strings.Join(labels, ", "))
	}

	genders := make([]string, len(Genders))
	for i, g := range Genders {
		genders[i] = string(g)
	}
	types := make([]string, len(VisitTypes))
	for i, t := range VisitTypes {
		types[i] = t.Label()
	}
	fmt.Fprintf(&b, "Gender: %s\n", strings.Join(genders, " | "))
	fmt.Fprintf(&b, "Type: %s\n", strings.Join(types, " | "))
	b.WriteString("\nCheck & Book: clinicdesk book --doctor --date --time --gender --type\n")

	scr.SetContent(ui.Section("Book Appointment", b.String()))
}

// SelectDoctor picks the doctor and refreshes the slot list.
func (v *BookView) SelectDoctor(ctx context.Context, doctorID int) error {
	err := v.picker.SetDoctor(ctx, doctorID)
	v.render(v.r.Screen())
	return err
}

// SetDate picks the visit date and refreshes the slot list. Past dates are
// refused.
func (v *BookView) SetDate(ctx context.Context, date string) error {
	if date != "" && date < v.tf.Today() {
		v.r.Screen().SetNotice(ui.KindWarning, errPastDate.Error())
		return errPastDate
	}
	err := v.picker.SetDate(ctx, date)
	v.render(v.r.Screen())
	return err
}

// Submit books the selected doctor and date. The outcome is shown inline: a
// crowded slot as a warning carrying the suggested times.
func (v *BookView) Submit(ctx context.Context, f BookingForm) (*BookingResult, error) {
	scr := v.r.Screen()
	doctorID, date := v.picker.Selection()
	slot := timefmt.NormalizeSlot(f.TimeSlot)
	if doctorID != 0 && date != "" && slot != "" && !v.picker.Offers(slot) {
		err := validation.Invalid("Please pick one of the offered time slots")
		scr.SetNotice(ui.KindWarning, err.Error())
		return nil, err
	}

	res, err := v.svc.Book(ctx, BookingInput{
		DoctorID:  doctorID,
		VisitDate: date,
		TimeSlot:  slot,
		Gender:    f.Gender,
		VisitType: f.VisitType,
		Force:     f.Force,
	})
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return nil, err
	case errors.Is(err, validation.ErrInvalid):
		scr.SetNotice(ui.KindWarning, err.Error())
		return nil, err
	case err != nil:
		scr.SetNotice(ui.KindError, bookErrorText(err))
		return nil, err
	}

	if res.Crowded() {
		scr.SetNotice(ui.KindWarning, res.Message)
		return res, nil
	}
	scr.SetNotice(ui.KindSuccess, "Success: "+res.Message)
	return res, nil
}

func bookErrorText(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return ui.OrDefault(apiErr.Detail, "Error")
	}
	return apiclient.Message(err)
}

// NotesAction edits the medical notes of a visit through a text prompt.
type NotesAction struct {
	svc      *Service
	r        *router.Router
	sessions router.SessionSource
}

func NewNotesAction(svc *Service, r *router.Router, sessions router.SessionSource) *NotesAction {
	return &NotesAction{svc: svc, r: r, sessions: sessions}
}

// Edit prompts for notes and saves them. An empty or dismissed prompt does
// nothing.
func (n *NotesAction) Edit(ctx context.Context, visitID int) error {
	scr := n.r.Screen()
	role := n.sessions.Current().Role
	if !CanEditNotes(role) {
		scr.Toast(ui.KindWarning, "Authorized personnel only")
		return ErrNotAuthorized
	}

	text, err := n.r.Prompter().Prompt(ctx, "Enter Medical Notes:")
	if errors.Is(err, ui.ErrCancelled) || (err == nil && strings.TrimSpace(text) == "") {
		return nil
	}
	if err != nil {
		return err
	}

	if err := n.svc.SaveNotes(ctx, role, visitID, text); err != nil {
		if !errors.Is(err, apiclient.ErrUnauthorized) {
			scr.Toast(ui.KindError, "Failed to save notes")
		}
		return err
	}
	scr.Toast(ui.KindSuccess, "Notes Saved")
	return nil
}

// MyScheduleView lists the caller's own visits. Doctors see their patients
// and can write notes; customers see their bookings and can cancel them.
type MyScheduleView struct {
	svc      *Service
	r        *router.Router
	sessions router.SessionSource
	notes    *NotesAction
}

func NewMyScheduleView(svc *Service, r *router.Router, sessions router.SessionSource, notes *NotesAction) *MyScheduleView {
	return &MyScheduleView{svc: svc, r: r, sessions: sessions, notes: notes}
}

func (v *MyScheduleView) Name() string { return router.ViewMySchedule }

func (v *MyScheduleView) Load(ctx context.Context, scr *ui.Screen) error {
	role := v.sessions.Current().Role
	visits, err := v.svc.MySchedule(ctx, role)
	if err != nil {
		return router.Failed("Error loading schedule. (Feature only for Doctors/Patients)", err)
	}

	rows := make([][]string, 0, len(visits))
	if role == session.RoleDoctor {
		for _, vis := range visits {
			rows = append(rows, []string{
				vis.VisitDate,
				vis.TimeSlot,
				ui.OrDefault(vis.PatientName, "N/A"),
				string(vis.VisitType),
				"notes " + strconv.Itoa(vis.VisitID),
			})
		}
		scr.SetContent(ui.Section("My Appointments",
			"Upcoming Appointments\n",
			ui.Table([]string{"Date", "Time", "Patient", "Type", "Actions"}, rows, "No upcoming appointments"),
		))
		return nil
	}

	for _, vis := range visits {
		rows = append(rows, []string{
			vis.VisitDate,
			vis.TimeSlot,
			doctorName(vis),
			string(vis.VisitType),
			"cancel " + strconv.Itoa(vis.VisitID),
		})
	}
	scr.SetContent(ui.Section("My Appointments",
		ui.Table([]string{"Date", "Time", "Doctor", "Type", "Action"}, rows, "No upcoming appointments"),
	))
	return nil
}

// Cancel cancels one of the caller's bookings after confirmation.
func (v *MyScheduleView) Cancel(ctx context.Context, visitID int) (bool, error) {
	return v.r.Destroy(ctx, cancelQuestion, "Appointment Cancelled", func(ctx context.Context) error {
		if err := v.svc.Cancel(ctx, visitID); err != nil {
			return router.Failed(myCancelErrorText(err), err)
		}
		return nil
	})
}

func (v *MyScheduleView) Notes(ctx context.Context, visitID int) error {
	return v.notes.Edit(ctx, visitID)
}

func myCancelErrorText(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return "Error: " + apiErr.Detail
	}
	return "Failed to cancel"
}

func doctorName(vis Visit) string {
	if vis.DoctorName != "" {
		return vis.DoctorName
	}
	return "Dr. " + strconv.Itoa(vis.DoctorID)
}

// MasterScheduleView lists every visit on one date for the front desk.
type MasterScheduleView struct {
	svc   *Service
	r     *router.Router
	tf    *timefmt.Formatter
	notes *NotesAction

	mu   sync.Mutex
	date string
}

func NewMasterScheduleView(svc *Service, r *router.Router, tf *timefmt.Formatter, notes *NotesAction) *MasterScheduleView {
	return &MasterScheduleView{svc: svc, r: r, tf: tf, notes: notes}
}

func (v *MasterScheduleView) Name() string { return router.ViewAllSchedule }

// Date returns the selected date, today until one is picked.
func (v *MasterScheduleView) Date() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.date == "" {
		return v.tf.Today()
	}
	return v.date
}

// SetDate switches the listed date and reloads the view.
func (v *MasterScheduleView) SetDate(ctx context.Context, date string) error {
	if date < v.tf.Today() {
		v.r.Screen().SetNotice(ui.KindWarning, errPastDate.Error())
		return errPastDate
	}
	v.mu.Lock()
	v.date = date
	v.mu.Unlock()
	return v.r.LoadView(ctx, router.ViewAllSchedule)
}

func (v *MasterScheduleView) Load(ctx context.Context, scr *ui.Screen) error {
	date := v.Date()
	visits, err := v.svc.Schedule(ctx, date)
	if err != nil {
		return router.Failed("Error loading schedule", err)
	}

	rows := make([][]string, 0, len(visits))
	for _, vis := range visits {
		id := strconv.Itoa(vis.VisitID)
		rows = append(rows, []string{
			vis.TimeSlot,
			ui.OrDefault(vis.PatientName, "Walk-in"),
			doctorName(vis),
			string(vis.VisitType),
			StatusConfirmed,
			"cancel " + id,
			"notes " + id,
		})
	}
	scr.SetContent(ui.Section("Master Schedule",
		"Select Date: "+date+"\n",
		ui.Table([]string{"Time", "Patient", "Doctor", "Type", "Status", "Action", "Notes"}, rows, "No appointments for this date."),
	))
	return nil
}

// Cancel cancels any visit after confirmation.
func (v *MasterScheduleView) Cancel(ctx context.Context, visitID int) (bool, error) {
	return v.r.Destroy(ctx, cancelQuestion, "Appointment Cancelled", func(ctx context.Context) error {
		if err := v.svc.Cancel(ctx, visitID); err != nil {
			return router.Failed("Error cancelling", err)
		}
		return nil
	})
}

func (v *MasterScheduleView) Notes(ctx context.Context, visitID int) error {
	return v.notes.Edit(ctx, visitID)
}
