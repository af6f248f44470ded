package webshell

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/platform/middleware"
	"github.com/polyclinic/clinicdesk/internal/platform/websocket"
)

// NewServer builds the echo instance for the local shell.
func NewServer(a *app.App, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("64K"))
	// A view load may chain a few backend calls.
	e.Use(middleware.RequestTimeout(2 * a.Config.HTTPTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.Config.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	root := e.Group("")
	NewHandler(a).RegisterRoutes(root)
	websocket.NewHandler(a.Hub, a.Config.CORSOrigins).RegisterRoutes(root)

	return e
}
