package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/domain/messaging"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/router"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Staff messaging: list conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				return a.Router.LoadView(ctx, router.ViewMessages)
			})
		},
	}

	var name string
	open := &cobra.Command{
		Use:   "open <user-id>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "User ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				return openChat(ctx, a, id, name)
			})
		},
	}
	open.Flags().StringVar(&name, "name", "", "name shown in the chat title")

	send := &cobra.Command{
		Use:   "send <user-id> <message...>",
		Short: "Send a message in a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "User ID")
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := openChat(ctx, a, id, ""); err != nil {
					return err
				}
				return a.Messages.Send(ctx, text)
			})
		},
	}

	var form messaging.ComposeForm
	compose := &cobra.Command{
		Use:   "compose",
		Short: "Start a new conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				return a.Messages.Compose(ctx, form)
			})
		},
	}
	compose.Flags().IntVar(&form.Picked, "to", 0, "recipient user id from the user list")
	compose.Flags().StringVar(&form.Manual, "manual", "", "recipient user id typed by hand (wins over --to)")
	compose.Flags().StringVar(&form.Text, "text", "", "first message")

	users := &cobra.Command{
		Use:   "users",
		Short: "List the people you can message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewMessages); err != nil {
					return err
				}
				list, err := a.Messages.Users(ctx)
				if err != nil {
					return err
				}
				for _, u := range list {
					fmt.Fprintf(cmd.ErrOrStderr(), "%4d  %s\n", u.ID, u.Name)
				}
				return nil
			})
		},
	}

	read := &cobra.Command{
		Use:   "read <message-id>",
		Short: "Mark a message as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "Message ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := a.Router.LoadView(ctx, router.ViewMessages); err != nil {
					return err
				}
				return a.Messages.MarkRead(ctx, id)
			})
		},
	}

	watch := &cobra.Command{
		Use:   "watch <user-id>",
		Short: "Follow a conversation live; each line typed is sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "User ID")
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app.App, _ session.Session) error {
				if err := openChat(ctx, a, id, name); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				a.Screen.OnChange(func() { fmt.Fprint(out, "\n"+a.Screen.Render()) })
				printScreen(out, a)

				lines := make(chan string)
				go func() {
					defer close(lines)
					sc := bufio.NewScanner(cmd.InOrStdin())
					for sc.Scan() {
						select {
						case lines <- sc.Text():
						case <-ctx.Done():
							return
						}
					}
				}()

				for {
					select {
					case <-ctx.Done():
						a.Screen.OnChange(nil)
						return nil
					case line, ok := <-lines:
						if !ok {
							lines = nil
							continue
						}
						if strings.TrimSpace(line) == "" {
							continue
						}
						// Failures are toasted on the screen.
						_ = a.Messages.Send(ctx, line)
					}
				}
			})
		},
	}
	watch.Flags().StringVar(&name, "name", "", "name shown in the chat title")

	cmd.AddCommand(open, send, compose, users, read, watch)
	return cmd
}

func openChat(ctx context.Context, a *app.App, userID int, name string) error {
	if err := a.Router.LoadView(ctx, router.ViewMessages); err != nil {
		return err
	}
	return a.Messages.Open(ctx, userID, name)
}
