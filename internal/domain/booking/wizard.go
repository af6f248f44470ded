package booking

import (
	"errors"
	"strings"

	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

// ErrWrongStep is returned by a transition that does not start from the
// wizard's current state.
var ErrWrongStep = errors.New("booking: action not available at this step")

// Warnings shown for incomplete steps. They match validation.ErrInvalid.
var (
	ErrIncompleteSlot = validation.Invalid("Please fill required fields")
	ErrMissingEmail   = validation.Invalid("Enter Email Address")
	ErrMissingName    = validation.Invalid("Enter Name")
	ErrInvalidEmail   = validation.Invalid("Invalid email address")
	ErrMissingOTP     = validation.Invalid("Please enter the OTP code")
	ErrMissingBooking = validation.Invalid("Please enter Booking ID and Email")
	ErrMissingCancel  = validation.Invalid("Enter OTP")
)

// Wizard is the guest booking state machine. Transitions are pure: they
// return the next value and never touch the network.
type Wizard struct {
	State State
	Draft Draft
}

// Start opens a fresh wizard on the slot step.
func Start() Wizard {
	return Wizard{
		State: StateSelectingSlot,
		Draft: Draft{Gender: visits.GenderMale, VisitType: visits.TypeConsultation},
	}
}

// Abandon discards the draft and returns to the landing screen.
func Abandon() Wizard {
	return Wizard{State: StateLanding}
}

// SlotChoice is what the first step collects.
type SlotChoice struct {
	DoctorID  int
	VisitDate string
	TimeSlot  string
	Gender    visits.Gender
	VisitType visits.VisitType
}

// Continue moves from the slot step to the contact step. Doctor, date and
// slot are all required.
func (w Wizard) Continue(c SlotChoice) (Wizard, error) {
	if w.State != StateSelectingSlot {
		return w, ErrWrongStep
	}
	if c.DoctorID == 0 || c.VisitDate == "" || strings.TrimSpace(c.TimeSlot) == "" {
		return w, ErrIncompleteSlot
	}
	w.Draft.DoctorID = c.DoctorID
	w.Draft.VisitDate = c.VisitDate
	w.Draft.TimeSlot = timefmt.NormalizeSlot(c.TimeSlot)
	if c.Gender != "" {
		w.Draft.Gender = c.Gender
	}
	if c.VisitType != "" {
		w.Draft.VisitType = c.VisitType
	}
	w.State = StateEnteringContact
	return w, nil
}

// Back returns from the contact step to a fresh slot step.
func (w Wizard) Back() (Wizard, error) {
	if w.State != StateEnteringContact && w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	return Start(), nil
}

// Contact records the guest's name and email. It is allowed again while
// awaiting the code so the guest can correct the address and resend.
func (w Wizard) Contact(name, email string) (Wizard, error) {
	if w.State != StateEnteringContact && w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	switch {
	case email == "":
		return w, ErrMissingEmail
	case name == "":
		return w, ErrMissingName
	case !validation.Email(email):
		return w, ErrInvalidEmail
	}
	w.Draft.GuestName = name
	w.Draft.GuestEmail = email
	return w, nil
}

// CodeSent records that a code went out.
func (w Wizard) CodeSent() (Wizard, error) {
	if w.State != StateEnteringContact && w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	if w.Draft.GuestEmail == "" {
		return w, ErrMissingEmail
	}
	w.State = StateAwaitingOTP
	return w, nil
}

// WithCode attaches the code. Only a wizard holding a complete draft and a
// non-empty code may be submitted.
func (w Wizard) WithCode(otp string) (Wizard, error) {
	if w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return w, ErrMissingOTP
	}
	w.Draft.OTPCode = otp
	if err := validation.Check(w.Draft); err != nil {
		return w, err
	}
	return w, nil
}

// Confirm marks the booking as accepted.
func (w Wizard) Confirm() (Wizard, error) {
	if w.State != StateAwaitingOTP || w.Draft.OTPCode == "" {
		return w, ErrWrongStep
	}
	w.State = StateConfirmed
	return w, nil
}

// CancelWizard is the guest cancellation state machine.
type CancelWizard struct {
	State   State
	VisitID int
	Email   string
}

func StartCancel() CancelWizard {
	return CancelWizard{State: StateIdentifyBooking}
}

// Identify records the booking id and email. Allowed again while awaiting
// the code, for resends.
func (w CancelWizard) Identify(visitID int, email string) (CancelWizard, error) {
	if w.State != StateIdentifyBooking && w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	email = strings.TrimSpace(email)
	if visitID <= 0 || email == "" {
		return w, ErrMissingBooking
	}
	w.VisitID = visitID
	w.Email = email
	return w, nil
}

func (w CancelWizard) CodeSent() (CancelWizard, error) {
	if w.State != StateIdentifyBooking && w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	if w.VisitID == 0 {
		return w, ErrMissingBooking
	}
	w.State = StateAwaitingOTP
	return w, nil
}

// Request builds the cancellation for otp.
func (w CancelWizard) Request(otp string) (CancelRequest, error) {
	if w.State != StateAwaitingOTP {
		return CancelRequest{}, ErrWrongStep
	}
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return CancelRequest{}, ErrMissingCancel
	}
	return CancelRequest{VisitID: w.VisitID, Email: w.Email, OTPCode: otp}, nil
}

func (w CancelWizard) Cancel() (CancelWizard, error) {
	if w.State != StateAwaitingOTP {
		return w, ErrWrongStep
	}
	w.State = StateCancelled
	return w, nil
}
