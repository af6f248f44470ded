package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

func TestParseVisitType(t *testing.T) {
	tests := []struct {
		in   string
		want visits.VisitType
		ok   bool
	}{
		{"", "", true},
		{"consultation", visits.TypeConsultation, true},
		{"Follow_up", visits.TypeFollowUp, true},
		{"follow-up", visits.TypeFollowUp, true},
		{"Follow Up", visits.TypeFollowUp, true},
		{"EMERGENCY", visits.TypeEmergency, true},
		{"checkup", "", false},
	}
	for _, tt := range tests {
		got, err := parseVisitType(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseVisitType(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, validation.ErrInvalid) {
			t.Errorf("parseVisitType(%q): expected a validation error, got %v", tt.in, err)
		}
	}
}

func TestParseGender(t *testing.T) {
	if g, err := parseGender("female"); err != nil || g != visits.GenderFemale {
		t.Errorf("parseGender(female) = %q, %v", g, err)
	}
	if _, err := parseGender("x"); !errors.Is(err, validation.ErrInvalid) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 12 ", "Visit ID"); err != nil || id != 12 {
		t.Errorf("parseID = %d, %v", id, err)
	}
	for _, in := range []string{"0", "-3", "abc", ""} {
		if _, err := parseID(in, "Visit ID"); err == nil {
			t.Errorf("parseID(%q): expected error", in)
		}
	}
}

func TestScheduleView(t *testing.T) {
	tests := map[session.Role]string{
		session.RoleDoctor:       router.ViewMySchedule,
		session.RoleCustomer:     router.ViewMySchedule,
		session.RoleReceptionist: router.ViewAllSchedule,
		session.RoleSeniorAdmin:  router.ViewAllSchedule,
	}
	for role, want := range tests {
		if got := scheduleView(role); got != want {
			t.Errorf("scheduleView(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("admin: stats: %w", apiclient.ErrUnauthorized), "session expired: run clinicdesk login"},
		{&apiclient.APIError{Status: 400, Detail: "Slot taken"}, (&apiclient.APIError{Status: 400, Detail: "Slot taken"}).Error()},
		{errNotSignedIn, errNotSignedIn.Error()},
	}
	for _, tt := range tests {
		if got := describe(tt.err); got != tt.want {
			t.Errorf("describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// secretOnly fails the test if a password is read through the echoing prompt.
type secretOnly struct {
	ui.ScriptedPrompter
	t *testing.T
}

func (s *secretOnly) Prompt(ctx context.Context, label string) (string, error) {
	s.t.Errorf("%q was read with echo on", label)
	return s.ScriptedPrompter.Prompt(ctx, label)
}

func TestAskSecret_UsesNoEchoPrompt(t *testing.T) {
	p := &secretOnly{ScriptedPrompter: ui.ScriptedPrompter{Values: []string{"s3cret"}}, t: t}
	ctx := context.Background()

	got, err := askSecret(ctx, p, "", "Password:")
	if err != nil || got != "s3cret" {
		t.Fatalf("askSecret = %q, %v", got, err)
	}
	if got, _ := askSecret(ctx, p, "from-flag", "Password:"); got != "from-flag" {
		t.Errorf("a flag value should skip the prompt, got %q", got)
	}
	if len(p.Asked) != 1 || p.Asked[0] != "Password:" {
		t.Errorf("Asked = %v", p.Asked)
	}
}
