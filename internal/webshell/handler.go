// Package webshell serves the client's screen over HTTP for a local browser
// tab: rendered views as plain text, the sign-in endpoints and the websocket
// that pushes badge and chat refreshes.
package webshell

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/polyclinic/clinicdesk/internal/app"
	"github.com/polyclinic/clinicdesk/internal/domain/availability"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/router"
)

type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/screen", h.Screen)
	g.GET("/views/:name", h.LoadView)
	g.GET("/calendar/:doctorID", h.Calendar)
	g.GET("/session", h.Session)
	g.POST("/session/login", h.Login)
	g.POST("/session/logout", h.Logout)
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type sessionResponse struct {
	SignedIn bool   `json:"signed_in"`
	Role     string `json:"role,omitempty"`
	Username string `json:"username,omitempty"`
	View     string `json:"view,omitempty"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"signed_in": h.app.Sessions.Current().Authenticated(),
		"clients":   h.app.Hub.ClientCount(),
	})
}

func (h *Handler) Screen(c echo.Context) error {
	return c.String(http.StatusOK, h.app.Screen.Render())
}

func (h *Handler) LoadView(c echo.Context) error {
	ctx := h.requestContext(c)
	if err := h.app.Router.LoadView(ctx, c.Param("name")); err != nil {
		if errors.Is(err, router.ErrUnknownView) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown view")
		}
		return h.loadFailure(c, err)
	}
	return c.String(http.StatusOK, h.app.Screen.Render())
}

// Calendar opens the availability calendar for a doctor, optionally at
// ?month=YYYY-MM.
func (h *Handler) Calendar(c echo.Context) error {
	doctorID, err := strconv.Atoi(c.Param("doctorID"))
	if err != nil || doctorID < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	month := c.QueryParam("month")
	var cursor availability.Cursor
	if month != "" {
		if cursor, err = availability.ParseCursor(month); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
		}
	}

	ctx := h.requestContext(c)
	if err := h.app.Router.LoadView(ctx, router.ViewCheckAvailability); err != nil {
		return h.loadFailure(c, err)
	}
	if month != "" {
		h.app.Calendar.Calendar().SetCursor(cursor)
	}
	if err := h.app.Calendar.Select(ctx, h.app.Screen, doctorID); errors.Is(err, apiclient.ErrUnauthorized) {
		return c.String(http.StatusUnauthorized, h.app.Screen.Render())
	}
	return c.String(http.StatusOK, h.app.Screen.Render())
}

func (h *Handler) loadFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, router.ErrNotSignedIn), errors.Is(err, apiclient.ErrUnauthorized):
		return c.String(http.StatusUnauthorized, h.app.Screen.Render())
	case errors.Is(err, router.ErrAccessDenied):
		return c.String(http.StatusForbidden, h.app.Screen.Render())
	}
	// Other load failures are already rendered into the content region.
	return c.String(http.StatusOK, h.app.Screen.Render())
}

func (h *Handler) Session(c echo.Context) error {
	sess := h.app.Sessions.Current()
	return c.JSON(http.StatusOK, sessionResponse{
		SignedIn: sess.Authenticated(),
		Role:     string(sess.Role),
		Username: sess.Username,
		View:     h.app.Router.Current(),
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.app.Login(h.requestContext(c), req.Username, req.Password)
	if err != nil {
		var apiErr *apiclient.APIError
		switch {
		case errors.Is(err, validation.ErrInvalid):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
			return echo.NewHTTPError(http.StatusUnauthorized, apiclient.Message(err))
		}
		return echo.NewHTTPError(http.StatusBadGateway, apiclient.Message(err))
	}
	return c.JSON(http.StatusOK, sessionResponse{
		SignedIn: true,
		Role:     string(sess.Role),
		Username: sess.Username,
		View:     h.app.Router.Current(),
	})
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.app.Logout(h.requestContext(c)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// requestContext carries the shell's request id into backend calls.
func (h *Handler) requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if rid, ok := c.Get("request_id").(string); ok && rid != "" {
		ctx = apiclient.WithRequestID(ctx, rid)
	}
	return ctx
}
