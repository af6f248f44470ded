package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/domain/booking"
	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// maxCodeAttempts bounds the verification code loop of the guest wizards.
const maxCodeAttempts = 5

type bookFlags struct {
	doctor    int
	date      string
	time      string
	gender    string
	visitType string
	force     bool
	name      string
	email     string
}

func parseGender(s string) (visits.Gender, error) {
	if s == "" {
		return "", nil
	}
	for _, g := range visits.Genders {
		if strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", validation.Invalid("Gender must be Male or Female")
}

func parseVisitType(s string) (visits.VisitType, error) {
	if s == "" {
		return "", nil
	}
	norm := strings.NewReplacer("-", "_", " ", "_").Replace(s)
	for _, t := range visits.VisitTypes {
		if strings.EqualFold(norm, string(t)) {
			return t, nil
		}
	}
	return "", validation.Invalid("Type must be Consultation, Follow_up or Emergency")
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, validation.Invalid(what + " must be a positive number")
	}
	return id, nil
}

func bookCmd() *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment (signed in, or as a guest with email verification)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, sess session.Session) error {
				if sess.Authenticated() {
					return staffBook(ctx, a, f)
				}
				return guestBook(ctx, cmd.ErrOrStderr(), a, f)
			})
		},
	}
	cmd.Flags().IntVar(&f.doctor, "doctor", 0, "doctor id")
	cmd.Flags().StringVar(&f.date, "date", "", "visit date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.time, "time", "", "time slot (HH:MM)")
	cmd.Flags().StringVar(&f.gender, "gender", "", "Male or Female")
	cmd.Flags().StringVar(&f.visitType, "type", "", "Consultation, Follow_up or Emergency")
	cmd.Flags().BoolVar(&f.force, "force", false, "book a crowded slot anyway")
	cmd.Flags().StringVar(&f.name, "name", "", "guest full name")
	cmd.Flags().StringVar(&f.email, "email", "", "guest email address")
	return cmd
}

// staffBook submits the signed-in booking form. A crowded slot asks before
// booking it anyway.
func staffBook(ctx context.Context, a *app.App, f bookFlags) error {
	gender, err := parseGender(f.gender)
	if err != nil {
		return err
	}
	typ, err := parseVisitType(f.visitType)
	if err != nil {
		return err
	}
	if err := a.Router.LoadView(ctx, router.ViewBook); err != nil {
		return err
	}
	if f.doctor == 0 || f.date == "" {
		// Show the form with whatever was picked so far.
		if f.doctor != 0 {
			return a.Book.SelectDoctor(ctx, f.doctor)
		}
		return nil
	}
	if err := a.Book.SelectDoctor(ctx, f.doctor); err != nil {
		return err
	}
	if err := a.Book.SetDate(ctx, f.date); err != nil {
		return err
	}
	if f.time == "" {
		return nil
	}

	form := visits.BookingForm{TimeSlot: f.time, Gender: gender, VisitType: typ, Force: f.force}
	res, err := a.Book.Submit(ctx, form)
	if err != nil || !res.Crowded() || f.force {
		return err
	}
	ok, err := a.Router.Prompter().Confirm(ctx, res.Message+" Book anyway?")
	if err != nil || !ok {
		return err
	}
	form.Force = true
	_, err = a.Book.Submit(ctx, form)
	return err
}

// guestBook walks the guest wizard: slot, contact details, emailed code.
func guestBook(ctx context.Context, out io.Writer, a *app.App, f bookFlags) error {
	flow := a.GuestBooking
	p := a.Router.Prompter()
	show := func() { fmt.Fprint(out, flow.Render()) }

	gender, err := parseGender(f.gender)
	if err != nil {
		return err
	}
	typ, err := parseVisitType(f.visitType)
	if err != nil {
		return err
	}

	// A failed doctor list still leaves the form usable with a notice.
	_ = flow.Open(ctx)
	show()

	doctorID := f.doctor
	if doctorID == 0 {
		s, err := p.Prompt(ctx, "Doctor ID:")
		if err != nil {
			flow.Abandon()
			return booking.ErrIncompleteSlot
		}
		if doctorID, err = parseID(s, "Doctor ID"); err != nil {
			flow.Abandon()
			return err
		}
	}
	if err := flow.SelectDoctor(ctx, doctorID); err != nil {
		flow.Abandon()
		return err
	}
	date, err := ask(ctx, p, f.date, "Date (YYYY-MM-DD):")
	if err != nil {
		flow.Abandon()
		return booking.ErrIncompleteSlot
	}
	if err := flow.SetDate(ctx, date); err != nil {
		flow.Abandon()
		return err
	}
	show()

	slot, _ := ask(ctx, p, f.time, "Time (HH:MM):")
	if err := flow.Continue(slot, gender, typ); err != nil {
		flow.Abandon()
		return err
	}
	show()

	name, _ := ask(ctx, p, f.name, "Full Name:")
	email, _ := ask(ctx, p, f.email, "Email Address:")
	if err := flow.SendCode(ctx, name, email); err != nil {
		flow.Abandon()
		return err
	}
	show()

	for i := 0; i < maxCodeAttempts; i++ {
		code, err := p.Prompt(ctx, "Verification code (blank to resend):")
		if errors.Is(err, ui.ErrCancelled) {
			if err := flow.Resend(ctx); errors.Is(err, booking.ErrCooldownActive) {
				fmt.Fprintln(out, flow.Cooldown().Label())
			} else if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			flow.Abandon()
			return err
		}
		conf, err := flow.Confirm(ctx, code)
		if err == nil {
			fmt.Fprintf(out, "Booking Confirmed! ID: %d\n", conf.VisitID)
			return nil
		}
		if ctx.Err() != nil {
			flow.Abandon()
			return ctx.Err()
		}
	}
	flow.Abandon()
	return errors.New("too many verification attempts")
}

func cancelBookingCmd() *cobra.Command {
	var visitID int
	var email string
	cmd := &cobra.Command{
		Use:   "cancel-booking",
		Short: "Cancel a guest booking with an emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, _ session.Session) error {
				return guestCancel(ctx, cmd.ErrOrStderr(), a, visitID, email)
			})
		},
	}
	cmd.Flags().IntVar(&visitID, "id", 0, "booking id")
	cmd.Flags().StringVar(&email, "email", "", "email used for the booking")
	return cmd
}

func guestCancel(ctx context.Context, out io.Writer, a *app.App, visitID int, email string) error {
	flow := a.GuestCancellation
	p := a.Router.Prompter()
	flow.Open()
	fmt.Fprint(out, flow.Render())

	if visitID == 0 {
		if s, err := p.Prompt(ctx, "Booking ID:"); err == nil {
			visitID, _ = strconv.Atoi(strings.TrimSpace(s))
		}
	}
	email, _ = ask(ctx, p, email, "Email:")
	if err := flow.SendCode(ctx, visitID, email); err != nil {
		flow.Abandon()
		return err
	}
	fmt.Fprint(out, flow.Render())

	for i := 0; i < maxCodeAttempts; i++ {
		code, err := p.Prompt(ctx, "OTP (blank to resend):")
		if errors.Is(err, ui.ErrCancelled) {
			if err := flow.Resend(ctx); errors.Is(err, booking.ErrCooldownActive) {
				fmt.Fprintln(out, flow.Cooldown().Label())
			} else if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			flow.Abandon()
			return err
		}
		msg, err := flow.Confirm(ctx, code)
		if err == nil {
			fmt.Fprintln(out, msg)
			return nil
		}
	}
	flow.Abandon()
	return errors.New("too many verification attempts")
}

// scheduleView picks the schedule a role acts on: its own list, or the
// master schedule for the front desk.
func scheduleView(role session.Role) string {
	if role.In(session.RoleDoctor, session.RoleCustomer) {
		return router.ViewMySchedule
	}
	return router.ViewAllSchedule
}

func cancelCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "cancel <visit-id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "Visit ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, sess session.Session) error {
				if scheduleView(sess.Role) == router.ViewMySchedule {
					if err := a.Router.LoadView(ctx, router.ViewMySchedule); err != nil {
						return err
					}
					_, err := a.MySchedule.Cancel(ctx, id)
					return err
				}
				if err := openMasterSchedule(ctx, a, date); err != nil {
					return err
				}
				_, err := a.MasterSchedule.Cancel(ctx, id)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "schedule date the visit is listed on (YYYY-MM-DD)")
	return cmd
}

func openMasterSchedule(ctx context.Context, a *app.App, date string) error {
	if date != "" {
		return a.MasterSchedule.SetDate(ctx, date)
	}
	return a.Router.LoadView(ctx, router.ViewAllSchedule)
}

func notesCmd() *cobra.Command {
	var text, date string
	cmd := &cobra.Command{
		Use:   "notes <visit-id>",
		Short: "Write the medical notes of a visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "Visit ID")
			if err != nil {
				return err
			}
			var prompter ui.Prompter
			if text != "" {
				prompter = &ui.ScriptedPrompter{Answer: true, Values: []string{text}}
			}
			return withAppPrompter(cmd, true, prompter, func(ctx context.Context, a *app.App, sess session.Session) error {
				if scheduleView(sess.Role) == router.ViewMySchedule {
					if err := a.Router.LoadView(ctx, router.ViewMySchedule); err != nil {
						return err
					}
					return a.MySchedule.Notes(ctx, id)
				}
				if err := openMasterSchedule(ctx, a, date); err != nil {
					return err
				}
				return a.MasterSchedule.Notes(ctx, id)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "notes text (prompted when omitted)")
	cmd.Flags().StringVar(&date, "date", "", "schedule date the visit is listed on (YYYY-MM-DD)")
	return cmd
}
