package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/domain/availability"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

func viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [name]",
		Short: "Open a dashboard view (home, doctors, staff, book, my-schedule, doctor-availability, all-schedule, check-availability, msgs)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := router.ViewHome
			if len(args) == 1 {
				name = args[0]
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if name == router.ViewHome {
					return a.Router.Dashboard(ctx)
				}
				return a.Router.LoadView(ctx, name)
			})
		},
	}
}

func calendarCmd() *cobra.Command {
	var month string
	var shift int
	cmd := &cobra.Command{
		Use:   "calendar [doctor-id]",
		Short: "Show a doctor's monthly availability",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doctorID int
			if len(args) == 1 {
				id, err := parseID(args[0], "Doctor ID")
				if err != nil {
					return err
				}
				doctorID = id
			}
			var cursor availability.Cursor
			if month != "" {
				c, err := availability.ParseCursor(month)
				if err != nil {
					return err
				}
				cursor = c
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewCheckAvailability); err != nil {
					return err
				}
				cal := a.Calendar.Calendar()
				if month != "" {
					cal.SetCursor(cursor)
				}
				if shift != 0 {
					cal.Shift(shift)
				}
				return a.Calendar.Select(ctx, a.Screen, doctorID)
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to show (YYYY-MM), default current")
	cmd.Flags().IntVar(&shift, "shift", 0, "move the month by n (negative for earlier)")
	return cmd
}

func scheduleCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show the schedule: your own, or the master schedule for the front desk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, sess session.Session) error {
				if scheduleView(sess.Role) == router.ViewMySchedule {
					return a.Router.LoadView(ctx, router.ViewMySchedule)
				}
				return openMasterSchedule(ctx, a, date)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD), default today")
	return cmd
}

func exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the bookings CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, sess session.Session) error {
				if sess.Role != session.RoleSeniorAdmin {
					a.Screen.SetContent(ui.AccessDeniedText)
					return router.ErrAccessDenied
				}
				if err := a.Router.Dashboard(ctx); err != nil {
					return err
				}
				_, err := a.Home.Export(ctx, a.Screen, dir)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to save the file in")
	return cmd
}

func doctorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "List and manage doctors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				return a.Router.LoadView(ctx, router.ViewDoctors)
			})
		},
	}

	var d admin.DoctorCreate
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a doctor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewDoctors); err != nil {
					return err
				}
				return a.Doctors.Create(ctx, d)
			})
		},
	}
	add.Flags().StringVar(&d.Name, "name", "", "display name")
	add.Flags().StringVar(&d.Username, "username", "", "login username")
	add.Flags().StringVar(&d.Password, "password", "", "initial password")
	add.Flags().StringVar(&d.Specialization, "specialization", "", "specialization")

	remove := &cobra.Command{
		Use:   "remove <doctor-id>",
		Short: "Remove a doctor and cancel their appointments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "Doctor ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewDoctors); err != nil {
					return err
				}
				_, err := a.Doctors.Remove(ctx, id)
				return err
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "List and manage receptionists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				return a.Router.LoadView(ctx, router.ViewStaff)
			})
		},
	}

	var username, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a receptionist account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewStaff); err != nil {
					return err
				}
				return a.Staff.Create(ctx, username, password)
			})
		},
	}
	add.Flags().StringVar(&username, "username", "", "login username")
	add.Flags().StringVar(&password, "password", "", "initial password")

	remove := &cobra.Command{
		Use:   "remove <staff-id>",
		Short: "Remove a receptionist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "Staff ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewStaff); err != nil {
					return err
				}
				_, err := a.Staff.Remove(ctx, id)
				return err
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func availabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Manage weekly availability and days off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				return a.Router.LoadView(ctx, router.ViewDoctorAvailability)
			})
		},
	}

	var day, maxPatients int
	var start, end string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add one of your weekly windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewDoctorAvailability); err != nil {
					return err
				}
				return a.MyAvailability.AddWindow(ctx, day, start, end)
			})
		},
	}
	add.Flags().IntVar(&day, "day", 0, "weekday, 0=Monday .. 6=Sunday")
	add.Flags().StringVar(&start, "start", "", "start time (HH:MM)")
	add.Flags().StringVar(&end, "end", "", "end time (HH:MM)")

	remove := &cobra.Command{
		Use:   "remove <rule-id>",
		Short: "Remove one of your weekly windows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "Rule ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewDoctorAvailability); err != nil {
					return err
				}
				_, err := a.MyAvailability.RemoveWindow(ctx, id)
				return err
			})
		},
	}

	dayOff := &cobra.Command{
		Use:   "dayoff <date>",
		Short: "Take a day off (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewDoctorAvailability); err != nil {
					return err
				}
				return a.MyAvailability.DayOff(ctx, args[0])
			})
		},
	}

	assign := &cobra.Command{
		Use:   "assign <doctor-id>",
		Short: "Append a weekly window to a doctor's schedule (front desk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, err := parseID(args[0], "Doctor ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewCheckAvailability); err != nil {
					return err
				}
				rules := []availability.RuleInput{{DayOfWeek: day, StartTime: start, EndTime: end, MaxPatientsPerSlot: maxPatients}}
				return a.Router.Mutate(ctx, "Availability updated", func(ctx context.Context) error {
					return a.Availability.AssignWeekly(ctx, doctorID, rules)
				})
			})
		},
	}
	assign.Flags().IntVar(&day, "day", 0, "weekday, 0=Monday .. 6=Sunday")
	assign.Flags().StringVar(&start, "start", "", "start time (HH:MM)")
	assign.Flags().StringVar(&end, "end", "", "end time (HH:MM)")
	assign.Flags().IntVar(&maxPatients, "max", 1, "patients per slot")

	var exDate, exStatus, exStart, exEnd string
	exception := &cobra.Command{
		Use:   "exception <doctor-id>",
		Short: "Override a doctor's availability for one date (front desk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, err := parseID(args[0], "Doctor ID")
			if err != nil {
				return err
			}
			ex := availability.ExceptionInput{ExceptionDate: exDate, Status: availability.ExceptionStatus(exStatus)}
			if exStart != "" {
				ex.StartTime = &exStart
			}
			if exEnd != "" {
				ex.EndTime = &exEnd
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewCheckAvailability); err != nil {
					return err
				}
				return a.Router.Mutate(ctx, "Exception saved", func(ctx context.Context) error {
					return a.Availability.AddException(ctx, doctorID, ex)
				})
			})
		},
	}
	exception.Flags().StringVar(&exDate, "date", "", "date (YYYY-MM-DD)")
	exception.Flags().StringVar(&exStatus, "status", string(availability.StatusCancelled), "Cancelled, Added or Updated")
	exception.Flags().StringVar(&exStart, "start", "", "custom window start (HH:MM)")
	exception.Flags().StringVar(&exEnd, "end", "", "custom window end (HH:MM)")

	cmd.AddCommand(add, remove, dayOff, assign, exception)
	return cmd
}
