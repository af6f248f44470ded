package booking

import (
	"errors"
	"testing"

	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

func readyForCode(t *testing.T) Wizard {
	t.Helper()
	w, err := Start().Continue(SlotChoice{DoctorID: 2, VisitDate: "2024-06-12", TimeSlot: "10:30"})
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if w, err = w.Contact("Ann Guest", "ann@example.com"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	if w, err = w.CodeSent(); err != nil {
		t.Fatalf("code sent: %v", err)
	}
	return w
}

func TestWizard_ContinueRequiresSelection(t *testing.T) {
	tests := []struct {
		name string
		c    SlotChoice
	}{
		{"nothing", SlotChoice{}},
		{"no date", SlotChoice{DoctorID: 1, TimeSlot: "09:00"}},
		{"no slot", SlotChoice{DoctorID: 1, VisitDate: "2024-06-12"}},
		{"no doctor", SlotChoice{VisitDate: "2024-06-12", TimeSlot: "09:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Start().Continue(tt.c)
			if !errors.Is(err, ErrIncompleteSlot) || !errors.Is(err, validation.ErrInvalid) {
				t.Fatalf("expected incomplete slot warning, got %v", err)
			}
			if w.State != StateSelectingSlot {
				t.Errorf("expected to stay on slot step, got %s", w.State)
			}
		})
	}
}

func TestWizard_HappyPath(t *testing.T) {
	w := readyForCode(t)
	if w.State != StateAwaitingOTP {
		t.Fatalf("expected awaiting otp, got %s", w.State)
	}
	if w.Draft.TimeSlot != "10:30:00" || w.Draft.Gender != visits.GenderMale || w.Draft.VisitType != visits.TypeConsultation {
		t.Errorf("unexpected draft %+v", w.Draft)
	}

	w, err := w.WithCode(" 123456 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Draft.OTPCode != "123456" {
		t.Errorf("expected trimmed code, got %q", w.Draft.OTPCode)
	}
	if w, err = w.Confirm(); err != nil || w.State != StateConfirmed {
		t.Errorf("expected confirmed, got %s err=%v", w.State, err)
	}
}

func TestWizard_CodeRequired(t *testing.T) {
	w := readyForCode(t)
	if _, err := w.WithCode("  "); !errors.Is(err, ErrMissingOTP) {
		t.Errorf("expected ErrMissingOTP, got %v", err)
	}
	if _, err := w.Confirm(); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected confirm without code to fail, got %v", err)
	}
	if _, err := Start().WithCode("123456"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected code on slot step to fail, got %v", err)
	}
}

func TestWizard_Contact(t *testing.T) {
	w, _ := Start().Continue(SlotChoice{DoctorID: 2, VisitDate: "2024-06-12", TimeSlot: "10:30:00"})
	tests := []struct {
		name, email string
		want        error
	}{
		{"Ann", "", ErrMissingEmail},
		{"", "ann@example.com", ErrMissingName},
		{"Ann", "not-an-email", ErrInvalidEmail},
	}
	for _, tt := range tests {
		if _, err := w.Contact(tt.name, tt.email); !errors.Is(err, tt.want) {
			t.Errorf("Contact(%q, %q): expected %v, got %v", tt.name, tt.email, tt.want, err)
		}
	}
	if _, err := Start().Contact("Ann", "ann@example.com"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected contact on slot step to fail, got %v", err)
	}
}

func TestWizard_BackAndAbandon(t *testing.T) {
	w := readyForCode(t)
	back, err := w.Back()
	if err != nil || back.State != StateSelectingSlot || back.Draft.DoctorID != 0 {
		t.Errorf("expected fresh slot step, got %+v err=%v", back, err)
	}
	if a := Abandon(); a.State != StateLanding || a.Draft != (Draft{}) {
		t.Errorf("expected empty landing wizard, got %+v", a)
	}
}

func TestCancelWizard(t *testing.T) {
	w := StartCancel()
	if _, err := w.Identify(0, "ann@example.com"); !errors.Is(err, ErrMissingBooking) {
		t.Errorf("expected ErrMissingBooking, got %v", err)
	}
	if _, err := w.Request("1234"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected request before code to fail, got %v", err)
	}

	w, _ = w.Identify(12, "ann@example.com")
	w, _ = w.CodeSent()
	if _, err := w.Request(""); !errors.Is(err, ErrMissingCancel) {
		t.Errorf("expected ErrMissingCancel, got %v", err)
	}
	req, err := w.Request("4321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != (CancelRequest{VisitID: 12, Email: "ann@example.com", OTPCode: "4321"}) {
		t.Errorf("unexpected request %+v", req)
	}
	if w, _ = w.Cancel(); w.State != StateCancelled {
		t.Errorf("expected cancelled, got %s", w.State)
	}
}
