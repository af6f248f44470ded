package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// Lander shows the signed-out landing screen.
type Lander interface {
	Landing()
}

// Config tunes the guest flows.
type Config struct {
	Cooldown      time.Duration
	DoctorTimeout time.Duration
}

// Flow drives the guest booking wizard against the backend and renders each
// step on the screen.
type Flow struct {
	repo     Repository
	dir      *Directory
	picker   *visits.SlotPicker
	cooldown *Cooldown
	scr      *ui.Screen
	tf       *timefmt.Formatter
	lander   Lander
	logger   zerolog.Logger

	mu      sync.Mutex
	wiz     Wizard
	doctors []admin.Doctor
	notice  string
}

func NewFlow(repo Repository, slots visits.SlotFetcher, scr *ui.Screen, tf *timefmt.Formatter, c clock.Clock, lander Lander, cfg Config, logger zerolog.Logger) *Flow {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Flow{
		repo:     repo,
		dir:      NewDirectory(repo, cfg.DoctorTimeout),
		picker:   visits.NewSlotPicker(slots),
		cooldown: NewCooldown(c, cfg.Cooldown),
		scr:      scr,
		tf:       tf,
		lander:   lander,
		logger:   logger.With().Str("component", "guest-booking").Logger(),
		wiz:      Abandon(),
	}
}

// Wizard returns the current wizard value.
func (f *Flow) Wizard() Wizard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wiz
}

func (f *Flow) Cooldown() *Cooldown { return f.cooldown }

func (f *Flow) Picker() *visits.SlotPicker { return f.picker }

// Open starts a new booking: it loads the doctor list and shows the slot
// step. A failed doctor fetch still shows the form with the notice in place
// of the list.
func (f *Flow) Open(ctx context.Context) error {
	f.scr.SetContent(ui.LoadingText)
	f.picker.Reset()
	f.cooldown.Reset()

	docs, notice, err := f.dir.Load(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("public doctor list failed")
	}

	f.mu.Lock()
	f.wiz = Start()
	f.doctors = docs
	f.notice = notice
	f.mu.Unlock()
	f.render()
	return err
}

func (f *Flow) inState(s State) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wiz.State == s
}

// SelectDoctor picks the doctor and refreshes the slots.
func (f *Flow) SelectDoctor(ctx context.Context, doctorID int) error {
	if !f.inState(StateSelectingSlot) {
		return ErrWrongStep
	}
	err := f.picker.SetDoctor(ctx, doctorID)
	f.render()
	return err
}

// SetDate picks the date and refreshes the slots. Past dates are refused.
func (f *Flow) SetDate(ctx context.Context, date string) error {
	if !f.inState(StateSelectingSlot) {
		return ErrWrongStep
	}
	if date != "" && date < f.tf.Today() {
		err := validation.Invalid("Date cannot be in the past")
		f.scr.Toast(ui.KindWarning, err.Error())
		return err
	}
	err := f.picker.SetDate(ctx, date)
	f.render()
	return err
}

// Continue leaves the slot step. Without doctor, date and an offered slot it
// warns and stays put; nothing is sent.
func (f *Flow) Continue(slot string, gender visits.Gender, typ visits.VisitType) error {
	doctorID, date := f.picker.Selection()
	slot = timefmt.NormalizeSlot(slot)
	if slot != "" && !f.picker.Offers(slot) {
		slot = ""
	}

	f.mu.Lock()
	next, err := f.wiz.Continue(SlotChoice{DoctorID: doctorID, VisitDate: date, TimeSlot: slot, Gender: gender, VisitType: typ})
	if err == nil {
		f.wiz = next
	}
	f.mu.Unlock()

	if err != nil {
		f.warn(err)
		return err
	}
	f.render()
	return nil
}

// Back returns to a fresh slot step.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	_, err := f.wiz.Back()
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Open(ctx)
}

// SendCode records the contact details and emails a code. While the
// cooldown runs a second send is refused with ErrCooldownActive.
func (f *Flow) SendCode(ctx context.Context, name, email string) error {
	f.mu.Lock()
	next, err := f.wiz.Contact(name, email)
	resend := f.wiz.State == StateAwaitingOTP
	f.mu.Unlock()
	if err != nil {
		f.warn(err)
		return err
	}
	if resend && !f.cooldown.Ready() {
		return ErrCooldownActive
	}

	if err := f.repo.SendOTP(ctx, next.Draft.GuestEmail); err != nil {
		f.scr.Toast(ui.KindError, "Error: "+detailOr(err, ""))
		return err
	}

	next, err = next.CodeSent()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.wiz = next
	f.mu.Unlock()
	f.cooldown.Start()
	f.render()
	f.scr.Toast(ui.KindSuccess, "Code sent! Check your inbox.")
	return nil
}

// Resend emails a fresh code to the recorded address.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	w := f.wiz
	f.mu.Unlock()
	if w.State != StateAwaitingOTP {
		return ErrWrongStep
	}
	if !f.cooldown.Ready() {
		return ErrCooldownActive
	}
	return f.SendCode(ctx, w.Draft.GuestName, w.Draft.GuestEmail)
}

// Confirm submits the draft with otp. On success the visit id is toasted and
// the flow returns to the landing screen; on failure the guest stays on the
// code step with the error shown.
func (f *Flow) Confirm(ctx context.Context, otp string) (*Confirmation, error) {
	f.mu.Lock()
	next, err := f.wiz.WithCode(otp)
	f.mu.Unlock()
	if err != nil {
		f.warn(err)
		return nil, err
	}

	conf, err := f.repo.BookGuest(ctx, next.Draft)
	if err != nil {
		msg := "Error: " + detailOr(err, "")
		f.scr.SetNotice(ui.KindError, msg)
		f.scr.Toast(ui.KindError, msg)
		return nil, err
	}

	f.mu.Lock()
	f.wiz, _ = next.Confirm()
	f.mu.Unlock()
	f.logger.Info().Int("visit_id", conf.VisitID).Msg("guest booking confirmed")

	f.reset()
	f.scr.Toast(ui.KindSuccess, fmt.Sprintf("Booking Confirmed! ID: %d", conf.VisitID))
	return conf, nil
}

// Abandon discards the draft and shows the landing screen.
func (f *Flow) Abandon() {
	f.reset()
}

func (f *Flow) reset() {
	f.mu.Lock()
	f.wiz = Abandon()
	f.doctors = nil
	f.notice = ""
	f.mu.Unlock()
	f.picker.Reset()
	f.cooldown.Reset()
	f.lander.Landing()
}

func (f *Flow) warn(err error) {
	if errors.Is(err, validation.ErrInvalid) {
		f.scr.Toast(ui.KindWarning, err.Error())
	}
}

// detailOr renders a failed public call: the backend detail, else fallback,
// else the status or transport message.
func detailOr(err error, fallback string) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if fallback != "" {
			return fallback
		}
		return fmt.Sprintf("HTTP %d", apiErr.Status)
	}
	if fallback != "" {
		return fallback
	}
	return apiclient.Message(err)
}

// Render returns the current step as text.
func (f *Flow) Render() string {
	f.mu.Lock()
	w := f.wiz
	docs := f.doctors
	notice := f.notice
	f.mu.Unlock()

	var b strings.Builder
	switch w.State {
	case StateSelectingSlot:
		doctorID, date := f.picker.Selection()
		slots, status := f.picker.Options()
		b.WriteString("Select Doctor:\n")
		if notice != "" {
			fmt.Fprintf(&b, "   %s\n", notice)
		}
		for _, d := range docs {
			mark := " "
			if d.ID == doctorID {
				mark = ">"
			}
			fmt.Fprintf(&b, " %s %3d  %s\n", mark, d.ID, d.Label())
		}
		fmt.Fprintf(&b, "Date: %s\n", ui.OrDefault(date, "(not set)"))
		if len(slots) == 0 {
			fmt.Fprintf(&b, "Available Times: %s\n", status)
		} else {
			labels := make([]string, len(slots))
			for i, s := range slots {
				labels[i] = timefmt.Clock(s)
			}
			fmt.Fprintf(&b, "Available Times: %s\n", strings.Join(labels, ", "))
		}
		b.WriteString("\nNext: Your Details\n")
	case StateEnteringContact:
		fmt.Fprintf(&b, "%s at %s\n\n", w.Draft.VisitDate, timefmt.Clock(w.Draft.TimeSlot))
		b.WriteString("Full Name:\nEmail Address:\n\nSend Verification Code\n")
	case StateAwaitingOTP:
		fmt.Fprintf(&b, "%s at %s for %s\n\n", w.Draft.VisitDate, timefmt.Clock(w.Draft.TimeSlot), w.Draft.GuestName)
		b.WriteString("Code sent! Check your email.\n")
		b.WriteString("Enter Verification Code:\n\nConfirm Booking\n")
		b.WriteString(f.cooldown.Label())
		b.WriteString("\n")
	default:
		return ""
	}
	return ui.Section("Book an Appointment", b.String())
}

func (f *Flow) render() {
	if out := f.Render(); out != "" {
		f.scr.SetContent(out)
	}
}
