// Package app wires the client together: configuration, the session, the
// backend gateway, the screen and router, every view and the pollers. It owns
// the lifecycle of a run (Init, Login, Logout, TeardownView, Close).
package app

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/config"
	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/domain/availability"
	"github.com/polyclinic/clinicdesk/internal/domain/booking"
	"github.com/polyclinic/clinicdesk/internal/domain/messaging"
	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/platform/websocket"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

var ErrMissingCredentials = validation.Invalid("Username and password are required")

// Options overrides the collaborators New would otherwise build.
type Options struct {
	Clock    clock.Clock
	Store    session.Store
	Prompter ui.Prompter
	// APIOptions are passed to the backend client, e.g. a custom transport.
	APIOptions []apiclient.Option
}

// App is one running client.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Clock     clock.Clock
	Formatter *timefmt.Formatter
	Sessions  *session.Manager
	API       *apiclient.Client
	Screen    *ui.Screen
	Router    *router.Router
	Hub       *websocket.Hub

	Admin        *admin.Service
	Visits       *visits.Service
	Availability *availability.Service

	Home              *admin.HomeView
	Doctors           *admin.DoctorsView
	Staff             *admin.StaffView
	Book              *visits.BookView
	Notes             *visits.NotesAction
	MySchedule        *visits.MyScheduleView
	MasterSchedule    *visits.MasterScheduleView
	Calendar          *availability.CalendarView
	MyAvailability    *availability.DoctorAvailabilityView
	Messages          *messaging.MessagesView
	Badge             *messaging.Badge
	GuestBooking      *booking.Flow
	GuestCancellation *booking.CancelFlow

	closers []func()
}

// New builds the client from cfg. The session is not loaded until Init.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Clock: opts.Clock}
	if a.Clock == nil {
		a.Clock = clock.New()
	}
	a.Formatter = timefmt.New(loc, a.Clock)

	store := opts.Store
	if store == nil {
		var closeStore func()
		if store, closeStore, err = OpenStore(ctx, cfg, logger); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeStore)
	}
	a.Sessions = session.NewManager(store, a.Clock, logger)

	apiOpts := append([]apiclient.Option{apiclient.WithTimeout(cfg.HTTPTimeout)}, opts.APIOptions...)
	a.API = apiclient.New(cfg.APIURL, a.Sessions, logger, apiOpts...)

	prompter := opts.Prompter
	if prompter == nil {
		prompter = ui.NewTerminalPrompter(os.Stdin, os.Stderr)
	}
	a.Screen = ui.NewScreen(a.Clock, cfg.ToastDuration)
	a.Router = router.New(a.Screen, a.Sessions, prompter, logger)
	a.Hub = websocket.NewHub(logger)

	a.wire()
	return a, nil
}

func (a *App) wire() {
	cfg := a.Config
	adminRepo := admin.NewHTTPRepo(a.API)
	visitsRepo := visits.NewHTTPRepo(a.API)
	availRepo := availability.NewHTTPRepo(a.API)
	bookingRepo := booking.NewHTTPRepo(a.API)
	msgRepo := messaging.NewHTTPRepo(a.API)

	a.Admin = admin.NewService(adminRepo, a.Formatter)
	a.Visits = visits.NewService(visitsRepo, adminRepo)
	a.Availability = availability.NewService(availRepo, adminRepo)

	a.Home = admin.NewHomeView(a.Admin, a.Sessions)
	a.Doctors = admin.NewDoctorsView(a.Admin, a.Router)
	a.Staff = admin.NewStaffView(a.Admin, a.Router)
	a.Book = visits.NewBookView(a.Visits, a.Router, a.Formatter)
	a.Notes = visits.NewNotesAction(a.Visits, a.Router, a.Sessions)
	a.MySchedule = visits.NewMyScheduleView(a.Visits, a.Router, a.Sessions, a.Notes)
	a.MasterSchedule = visits.NewMasterScheduleView(a.Visits, a.Router, a.Formatter, a.Notes)
	a.Calendar = availability.NewCalendarView(a.Availability, availability.NewCalendar(a.Availability, a.Formatter))
	a.MyAvailability = availability.NewDoctorAvailabilityView(a.Availability, a.Router)
	a.Messages = messaging.NewMessagesView(msgRepo, a.Router, a.Formatter, a.Clock, cfg.ChatPollInterval, a.Hub, a.Logger)
	a.Router.Register(a.Home, a.Doctors, a.Staff, a.Book, a.MySchedule, a.MasterSchedule, a.Calendar, a.MyAvailability, a.Messages)

	a.Badge = messaging.NewBadge(msgRepo, a.Screen, a.Hub, a.Clock, cfg.UnreadPollInterval, a.Logger)

	guestCfg := booking.Config{Cooldown: cfg.OTPResendCooldown, DoctorTimeout: cfg.DoctorListTimeout}
	a.GuestBooking = booking.NewFlow(bookingRepo, visitsRepo, a.Screen, a.Formatter, a.Clock, a.Router, guestCfg, a.Logger)
	a.GuestCancellation = booking.NewCancelFlow(bookingRepo, a.Screen, a.Clock, a.Router, guestCfg, a.Logger)

	// A rejected token clears the session; clearing stops the pollers and
	// shows the landing screen.
	a.API.OnUnauthorized(func(ctx context.Context) {
		if err := a.Sessions.Clear(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("clear session after 401")
		}
	})
	a.Sessions.OnClear(func() {
		a.Badge.Stop()
		a.Router.Landing()
	})
}

// Init restores a persisted session. Signed in, it opens the dashboard and
// starts the unread poll; otherwise it shows the landing screen.
func (a *App) Init(ctx context.Context) (session.Session, error) {
	sess, err := a.Sessions.Init(ctx)
	if err != nil {
		a.Router.Landing()
		return session.Session{}, err
	}
	if !sess.Authenticated() {
		a.Router.Landing()
		return sess, nil
	}
	a.start(ctx, sess)
	return sess, nil
}

// Login signs in with the given credentials and opens the dashboard.
func (a *App) Login(ctx context.Context, username, password string) (session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.Session{}, ErrMissingCredentials
	}
	token, err := a.API.Login(ctx, username, password)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := a.Sessions.Establish(ctx, token)
	if err != nil {
		return session.Session{}, err
	}
	a.start(ctx, sess)
	return sess, nil
}

func (a *App) start(ctx context.Context, sess session.Session) {
	if err := a.Router.Dashboard(ctx); err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
		a.Logger.Warn().Err(err).Msg("dashboard failed to load")
	}
	if a.Sessions.Current().Authenticated() {
		a.Badge.Start(ctx, sess.Role)
	}
}

// Logout forgets the session. The clear hook tears the dashboard down.
func (a *App) Logout(ctx context.Context) error {
	return a.Sessions.Clear(ctx)
}

// TeardownView unmounts the current view, stopping its pollers.
func (a *App) TeardownView() {
	a.Router.Teardown()
}

// Close stops every poller and releases the session store.
func (a *App) Close() {
	a.Badge.Stop()
	a.Router.Teardown()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
