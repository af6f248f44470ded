package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/config"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

var errNotSignedIn = errors.New("not signed in: run clinicdesk login")

var (
	verbose   bool
	assumeYes bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicdesk",
		Short:         "Polyclinic front desk client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, sess session.Session) error {
				return nil
			})
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")

	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd(), signupCmd(), forgotPasswordCmd())
	rootCmd.AddCommand(viewCmd(), calendarCmd(), scheduleCmd(), exportCmd())
	rootCmd.AddCommand(bookCmd(), cancelCmd(), cancelBookingCmd(), notesCmd())
	rootCmd.AddCommand(doctorsCmd(), staffCmd(), availabilityCmd())
	rootCmd.AddCommand(chatCmd(), serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// newLogger writes to stderr so rendered screens on stdout stay clean.
func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

type appFunc func(ctx context.Context, a *app.App, sess session.Session) error

// withApp loads config, restores the session and runs fn. The screen is
// printed afterwards whether fn failed or not, since views render their own
// failures. With needSession, fn only runs when signed in.
func withApp(cmd *cobra.Command, needSession bool, fn appFunc) error {
	return withAppPrompter(cmd, needSession, nil, fn)
}

// withAppPrompter is withApp with the prompter replaced, e.g. by scripted
// answers taken from flags.
func withAppPrompter(cmd *cobra.Command, needSession bool, prompter ui.Prompter, fn appFunc) error {
	if prompter == nil {
		prompter = ui.NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		if assumeYes {
			prompter = &ui.ScriptedPrompter{Answer: true}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{
		Prompter: prompter,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.Init(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("restore session")
	}
	if needSession && !sess.Authenticated() {
		printScreen(cmd.OutOrStdout(), a)
		return errNotSignedIn
	}

	runErr := fn(ctx, a, sess)
	printScreen(cmd.OutOrStdout(), a)
	return runErr
}

func printScreen(w io.Writer, a *app.App) {
	fmt.Fprint(w, a.Screen.Render())
}

// describe turns err into the line printed on exit.
func describe(err error) string {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return "session expired: run clinicdesk login"
	}
	if msg := apiclient.Message(err); msg != "" {
		return msg
	}
	return err.Error()
}
