package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// CancelFlow drives the guest cancellation wizard.
type CancelFlow struct {
	repo     Repository
	cooldown *Cooldown
	scr      *ui.Screen
	lander   Lander
	logger   zerolog.Logger

	mu  sync.Mutex
	wiz CancelWizard
}

func NewCancelFlow(repo Repository, scr *ui.Screen, c clock.Clock, lander Lander, cfg Config, logger zerolog.Logger) *CancelFlow {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &CancelFlow{
		repo:     repo,
		cooldown: NewCooldown(c, cfg.Cooldown),
		scr:      scr,
		lander:   lander,
		logger:   logger.With().Str("component", "guest-cancel").Logger(),
		wiz:      CancelWizard{State: StateLanding},
	}
}

func (f *CancelFlow) Wizard() CancelWizard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wiz
}

func (f *CancelFlow) Cooldown() *Cooldown { return f.cooldown }

// Open shows the booking id step.
func (f *CancelFlow) Open() {
	f.mu.Lock()
	f.wiz = StartCancel()
	f.mu.Unlock()
	f.cooldown.Reset()
	f.render()
}

// SendCode asks the backend to email a cancellation code for the booking.
func (f *CancelFlow) SendCode(ctx context.Context, visitID int, email string) error {
	f.mu.Lock()
	next, err := f.wiz.Identify(visitID, email)
	resend := f.wiz.State == StateAwaitingOTP
	f.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrMissingBooking) {
			f.scr.Toast(ui.KindWarning, err.Error())
		}
		return err
	}
	if resend && !f.cooldown.Ready() {
		return ErrCooldownActive
	}

	if err := f.repo.SendCancelOTP(ctx, next.VisitID, next.Email); err != nil {
		f.scr.Toast(ui.KindError, cancelErrorText(err, "Failed to find booking"))
		return err
	}

	next, err = next.CodeSent()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.wiz = next
	f.mu.Unlock()
	f.cooldown.Start()
	f.render()
	f.scr.Toast(ui.KindSuccess, "OTP Sent! Check email.")
	return nil
}

// Resend emails a fresh code for the recorded booking.
func (f *CancelFlow) Resend(ctx context.Context) error {
	w := f.Wizard()
	if w.State != StateAwaitingOTP {
		return ErrWrongStep
	}
	if !f.cooldown.Ready() {
		return ErrCooldownActive
	}
	return f.SendCode(ctx, w.VisitID, w.Email)
}

// Confirm cancels the booking with otp and returns to the landing screen.
func (f *CancelFlow) Confirm(ctx context.Context, otp string) (string, error) {
	req, err := f.Wizard().Request(otp)
	if err != nil {
		if errors.Is(err, ErrMissingCancel) {
			f.scr.Toast(ui.KindWarning, err.Error())
		}
		return "", err
	}

	msg, err := f.repo.CancelGuest(ctx, req)
	if err != nil {
		f.scr.Toast(ui.KindError, cancelErrorText(err, ""))
		return "", err
	}
	f.logger.Info().Int("visit_id", req.VisitID).Msg("guest booking cancelled")

	f.mu.Lock()
	f.wiz, _ = f.wiz.Cancel()
	f.mu.Unlock()
	f.Abandon()
	f.scr.Toast(ui.KindSuccess, "Success: "+msg)
	return msg, nil
}

// Abandon drops the wizard and shows the landing screen.
func (f *CancelFlow) Abandon() {
	f.mu.Lock()
	f.wiz = CancelWizard{State: StateLanding}
	f.mu.Unlock()
	f.cooldown.Reset()
	f.lander.Landing()
}

func cancelErrorText(err error, fallback string) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return "Error: " + detailOr(err, fallback)
	}
	return "System Error"
}

// Render returns the current step as text.
func (f *CancelFlow) Render() string {
	w := f.Wizard()
	var b strings.Builder
	switch w.State {
	case StateIdentifyBooking:
		b.WriteString("Booking ID:\nEmail Address:\n\nSend Verification Code\n")
	case StateAwaitingOTP:
		fmt.Fprintf(&b, "Booking #%d\n\nCode sent! Check your email.\n", w.VisitID)
		b.WriteString("Enter Verification Code:\n\nConfirm Cancellation\n")
		b.WriteString(f.cooldown.Label())
		b.WriteString("\n")
	default:
		return ""
	}
	return ui.Section("Cancel My Booking", b.String())
}

func (f *CancelFlow) render() {
	if out := f.Render(); out != "" {
		f.scr.SetContent(out)
	}
}
