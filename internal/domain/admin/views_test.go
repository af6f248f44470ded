package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

type fixedSession session.Session

func (f fixedSession) Current() session.Session { return session.Session(f) }

func newViewRouter(role session.Role, prompter ui.Prompter) (*router.Router, *ui.Screen) {
	c := clock.NewManaged(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	scr := ui.NewScreen(c, 3*time.Second)
	return router.New(scr, fixedSession{Token: "t", Role: role, Username: "root"}, prompter, zerolog.Nop()), scr
}

func TestHomeView_Welcome(t *testing.T) {
	repo := &mockRepo{stats: Stats{TodayTotalVisits: 4}}
	r, scr := newViewRouter(session.RoleReceptionist, &ui.ScriptedPrompter{})
	r.Register(NewHomeView(newTestService(repo), fixedSession{Token: "t", Role: session.RoleReceptionist}))

	if err := r.LoadView(context.Background(), router.ViewHome); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := scr.Content()
	if !strings.Contains(content, "Welcome, Receptionist") {
		t.Errorf("expected role fallback in welcome, got %q", content)
	}
	if !strings.Contains(content, "Today's Visits") {
		t.Errorf("expected receptionist cards, got %q", content)
	}
}

func TestDoctorsView_RemoveConfirmed(t *testing.T) {
	repo := &mockRepo{doctors: []Doctor{{ID: 7, Name: "Dr. Adams", Specialization: "ENT"}}}
	prompter := &ui.ScriptedPrompter{Answer: true}
	r, scr := newViewRouter(session.RoleSeniorAdmin, prompter)
	v := NewDoctorsView(newTestService(repo), r)
	r.Register(v)
	r.LoadView(context.Background(), router.ViewDoctors)

	ok, err := v.Remove(context.Background(), 7)
	if !ok || err != nil {
		t.Fatalf("expected removal, ok=%v err=%v", ok, err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 7 {
		t.Errorf("expected doctor 7 deleted, got %v", repo.deleted)
	}
	if !strings.Contains(prompter.Asked[0], "cancel all their appointments") {
		t.Errorf("unexpected confirmation %q", prompter.Asked[0])
	}
	if ts := scr.Toasts(); len(ts) != 1 || ts[0].Message != "Doctor Removed" {
		t.Errorf("unexpected toasts %+v", ts)
	}
}

func TestDoctorsView_RemoveFailure(t *testing.T) {
	repo := &mockRepo{}
	r, scr := newViewRouter(session.RoleSeniorAdmin, &ui.ScriptedPrompter{Answer: true})
	v := NewDoctorsView(newTestService(repo), r)
	r.Register(v)
	r.LoadView(context.Background(), router.ViewDoctors)

	repo.err = &apiclient.APIError{Status: 404, Detail: "Doctor not found"}
	if _, err := v.Remove(context.Background(), 9); err == nil {
		t.Fatal("expected error")
	}
	ts := scr.Toasts()
	if len(ts) != 1 || ts[0].Kind != ui.KindError || ts[0].Message != "Error removing doctor" {
		t.Errorf("unexpected toasts %+v", ts)
	}
}

func TestStaffView_EmptyAndCreate(t *testing.T) {
	repo := &mockRepo{}
	r, scr := newViewRouter(session.RoleSeniorAdmin, &ui.ScriptedPrompter{})
	v := NewStaffView(newTestService(repo), r)
	r.Register(v)

	if err := r.LoadView(context.Background(), router.ViewStaff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(scr.Content(), "No receptionists found") {
		t.Errorf("expected empty state, got %q", scr.Content())
	}

	if err := v.Create(context.Background(), "", "pw"); err == nil {
		t.Fatal("expected validation error")
	}
	if n, ok := scr.Notice(); !ok || n.Kind != ui.KindWarning {
		t.Errorf("expected inline warning, got %+v", n)
	}

	if err := v.Create(context.Background(), "frontdesk", "pw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts := scr.Toasts(); len(ts) != 1 || ts[0].Message != "Receptionist Created!" {
		t.Errorf("unexpected toasts %+v", ts)
	}
}

func TestHomeView_ExportFailureToast(t *testing.T) {
	repo := &mockRepo{err: errors.New("disk full")}
	_, scr := newViewRouter(session.RoleSeniorAdmin, &ui.ScriptedPrompter{})
	v := NewHomeView(newTestService(repo), fixedSession{})

	if _, err := v.Export(context.Background(), scr, t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
	if ts := scr.Toasts(); len(ts) != 1 || ts[0].Message != "Export Failed" {
		t.Errorf("unexpected toasts %+v", ts)
	}
}
