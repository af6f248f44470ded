package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// ask returns value, or prompts for it when empty.
func ask(ctx context.Context, p ui.Prompter, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.Prompt(ctx, label)
}

// askSecret is ask without echo.
func askSecret(ctx context.Context, p ui.Prompter, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.PromptSecret(ctx, label)
}

func loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as staff or customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, _ session.Session) error {
				p := a.Router.Prompter()
				u, err := ask(ctx, p, username, "Username:")
				if err != nil {
					return app.ErrMissingCredentials
				}
				pw, err := askSecret(ctx, p, password, "Password:")
				if err != nil {
					return app.ErrMissingCredentials
				}
				sess, err := a.Login(ctx, u, pw)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Signed in as %s (%s)\n", sess.Username, sess.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, _ session.Session) error {
				return a.Logout(ctx)
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, sess session.Session) error {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s (%s)\n", sess.Username, sess.Role)
				return nil
			})
		},
	}
}

func signupCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a customer account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, _ session.Session) error {
				p := a.Router.Prompter()
				u, err := ask(ctx, p, username, "Username:")
				if err != nil {
					return app.ErrMissingCredentials
				}
				pw, err := askSecret(ctx, p, password, "Password:")
				if err != nil {
					return app.ErrMissingCredentials
				}
				res, err := a.API.Signup(ctx, u, pw)
				if err != nil {
					return err
				}
				a.Screen.Toast(ui.KindSuccess, "Account created for "+res.Username+". Please log in.")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func forgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password [username]",
		Short: "Ask an administrator to reset a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App, _ session.Session) error {
				var username string
				if len(args) == 1 {
					username = args[0]
				}
				u, err := ask(ctx, a.Router.Prompter(), username, "Enter your username to alert the admin:")
				if err != nil {
					return validation.Invalid("Username is required")
				}
				msg, err := a.API.ForgotPassword(ctx, u)
				if err != nil {
					return err
				}
				a.Screen.Toast(ui.KindInfo, msg)
				return nil
			})
		},
	}
}
