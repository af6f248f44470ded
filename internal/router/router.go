// Package router switches the content region between views. It owns the
// teardown of the previous view, the role gate, the loading placeholder and
// the conversion of view failures into inline errors or toasts.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

var (
	ErrUnknownView  = errors.New("router: unknown view")
	ErrAccessDenied = errors.New("router: access denied")
	ErrNotSignedIn  = errors.New("router: not signed in")
)

// unexpectedText is the toast shown when a view panics.
const unexpectedText = "Something went wrong. Please try again."

// View renders one named screen into the content region.
type View interface {
	Name() string
	Load(ctx context.Context, scr *ui.Screen) error
}

// Unmounter is implemented by views holding resources (pollers) that must
// stop when the user navigates away.
type Unmounter interface {
	Unmount()
}

// SessionSource yields the current identity.
type SessionSource interface {
	Current() session.Session
}

// LoadError carries the text a view wants shown in place of its content when
// loading fails.
type LoadError struct {
	Text string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return e.Text
	}
	return fmt.Sprintf("%s: %v", e.Text, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Failed wraps err so the router renders text instead of the raw error.
func Failed(text string, err error) error {
	return &LoadError{Text: text, Err: err}
}

type Router struct {
	mu       sync.Mutex
	screen   *ui.Screen
	sessions SessionSource
	prompter ui.Prompter
	logger   zerolog.Logger

	views   map[string]View
	current View
}

func New(screen *ui.Screen, sessions SessionSource, prompter ui.Prompter, logger zerolog.Logger) *Router {
	return &Router{
		screen:   screen,
		sessions: sessions,
		prompter: prompter,
		logger:   logger.With().Str("component", "router").Logger(),
		views:    make(map[string]View),
	}
}

func (r *Router) Screen() *ui.Screen { return r.screen }

func (r *Router) Prompter() ui.Prompter { return r.prompter }

// Register adds views, replacing any registered under the same name.
func (r *Router) Register(views ...View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range views {
		r.views[v.Name()] = v
	}
}

// View returns the registered view called name.
func (r *Router) View(name string) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[name]
	return v, ok
}

// Current returns the name of the mounted view, or "".
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.Name()
}

// Teardown unmounts the current view.
func (r *Router) Teardown() {
	r.mu.Lock()
	prev := r.current
	r.current = nil
	r.mu.Unlock()
	if u, ok := prev.(Unmounter); ok {
		u.Unmount()
	}
}

// Dashboard draws the signed-in chrome for sess and opens the home view.
func (r *Router) Dashboard(ctx context.Context) error {
	sess := r.sessions.Current()
	if !sess.Authenticated() {
		r.Landing()
		return ErrNotSignedIn
	}
	r.screen.SetHeader(Header(sess))
	r.screen.SetNav(NavFor(sess.Role))
	return r.LoadView(ctx, ViewHome)
}

// Landing tears down any view and shows the signed-out screen.
func (r *Router) Landing() {
	r.Teardown()
	r.screen.Reset()
	r.screen.SetContent(LandingText)
}

// LoadView mounts the view called name.
func (r *Router) LoadView(ctx context.Context, name string) (err error) {
	r.mu.Lock()
	v, ok := r.views[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownView, name)
	}

	r.Teardown()
	r.screen.SetActive(name)
	r.screen.SetLoading()

	sess := r.sessions.Current()
	if !sess.Authenticated() {
		r.Landing()
		return ErrNotSignedIn
	}
	if !Allowed(name, sess.Role) {
		r.screen.SetContent(ui.AccessDeniedText)
		return ErrAccessDenied
	}

	r.mu.Lock()
	r.current = v
	r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("view", name).Interface("panic", rec).Msg("view panicked")
			r.screen.SetContent("")
			r.screen.Toast(ui.KindError, unexpectedText)
			err = fmt.Errorf("view %s: panic: %v", name, rec)
		}
	}()

	if err := v.Load(ctx, r.screen); err != nil {
		return r.fail(name, err)
	}
	return nil
}

// fail renders a load failure. Unauthorized errors render nothing since the
// logout hook has already replaced the screen.
func (r *Router) fail(name string, err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return err
	}
	r.logger.Warn().Err(err).Str("view", name).Msg("view failed to load")

	var le *LoadError
	if errors.As(err, &le) {
		r.screen.SetContent(le.Text)
		return err
	}
	r.screen.SetContent("")
	r.screen.SetNotice(ui.KindError, apiclient.Message(err))
	return err
}

// Reload re-mounts the current view.
func (r *Router) Reload(ctx context.Context) error {
	name := r.Current()
	if name == "" {
		return nil
	}
	return r.LoadView(ctx, name)
}

// Mutate runs fn. On success it toasts success and reloads the current view.
// On failure the view is left as it was: a LoadError is toasted with its
// text, validation failures become an inline warning and anything else an
// inline error.
func (r *Router) Mutate(ctx context.Context, success string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		var le *LoadError
		switch {
		case errors.Is(err, apiclient.ErrUnauthorized):
		case errors.As(err, &le):
			r.screen.Toast(ui.KindError, le.Text)
		case errors.Is(err, validation.ErrInvalid):
			r.screen.SetNotice(ui.KindWarning, err.Error())
		default:
			r.screen.SetNotice(ui.KindError, apiclient.Message(err))
		}
		return err
	}
	if success != "" {
		r.screen.Toast(ui.KindSuccess, success)
	}
	return r.Reload(ctx)
}

// Destroy asks question and runs fn through Mutate only when confirmed. The
// returned bool reports whether the user confirmed.
func (r *Router) Destroy(ctx context.Context, question, success string, fn func(ctx context.Context) error) (bool, error) {
	ok, err := r.prompter.Confirm(ctx, question)
	if err != nil || !ok {
		return false, err
	}
	return true, r.Mutate(ctx, success, fn)
}
