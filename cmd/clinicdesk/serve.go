package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/webshell"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the screen to a local browser tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, runServer)
		},
	}
}

func runServer(ctx context.Context, a *app.App, _ session.Session) error {
	logger := a.Logger
	e := webshell.NewServer(a, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.Config.Port
		logger.Info().Str("addr", addr).Msg("starting shell")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info().Msg("shutting down shell")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("shell stopped")
	return nil
}
