package booking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/domain/admin"
	"github.com/polyclinic/clinicdesk/internal/domain/visits"
	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// -- Mock Repository --

type mockRepo struct {
	mu        sync.Mutex
	doctors   []admin.Doctor
	listErr   error
	otpSends  []string
	otpErr    error
	booked    []Draft
	bookErr   error
	cancelOTP []CancelRequest
	cancelled []CancelRequest
	cancelErr error
}

func (m *mockRepo) ListDoctors(context.Context) ([]admin.Doctor, error) {
	return m.doctors, m.listErr
}

func (m *mockRepo) SendOTP(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.otpErr != nil {
		return m.otpErr
	}
	m.otpSends = append(m.otpSends, email)
	return nil
}

func (m *mockRepo) BookGuest(_ context.Context, d Draft) (*Confirmation, error) {
	if m.bookErr != nil {
		return nil, m.bookErr
	}
	m.booked = append(m.booked, d)
	return &Confirmation{Message: "Appointment Confirmed", VisitID: 41}, nil
}

func (m *mockRepo) SendCancelOTP(_ context.Context, visitID int, email string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelOTP = append(m.cancelOTP, CancelRequest{VisitID: visitID, Email: email})
	return nil
}

func (m *mockRepo) CancelGuest(_ context.Context, req CancelRequest) (string, error) {
	if m.cancelErr != nil {
		return "", m.cancelErr
	}
	m.cancelled = append(m.cancelled, req)
	return "Booking Cancelled Successfully", nil
}

type countingSlots struct {
	calls int
	slots []string
}

func (c *countingSlots) Slots(context.Context, int, string) ([]string, error) {
	c.calls++
	return c.slots, nil
}

type landing struct {
	scr   *ui.Screen
	count int
}

func (l *landing) Landing() {
	l.count++
	l.scr.Reset()
	l.scr.SetContent("Polyclinic Center")
}

type flowFixture struct {
	repo  *mockRepo
	slots *countingSlots
	clock *clock.ManagedClock
	scr   *ui.Screen
	land  *landing
	flow  *Flow
}

func newFlowFixture() *flowFixture {
	c := clock.NewManaged(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	scr := ui.NewScreen(c, 3*time.Second)
	fx := &flowFixture{
		repo:  &mockRepo{doctors: []admin.Doctor{{ID: 2, Name: "Dr. Rao", Specialization: "Cardiology"}}},
		slots: &countingSlots{slots: []string{"10:00:00", "10:30:00"}},
		clock: c,
		scr:   scr,
		land:  &landing{scr: scr},
	}
	fx.flow = NewFlow(fx.repo, fx.slots, scr, timefmt.New(time.UTC, c), c, fx.land, Config{Cooldown: 15 * time.Second}, zerolog.Nop())
	return fx
}

func (fx *flowFixture) toSlotChosen(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := fx.flow.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	fx.flow.SelectDoctor(ctx, 2)
	fx.flow.SetDate(ctx, "2024-06-12")
	if err := fx.flow.Continue("10:30", visits.GenderFemale, visits.TypeFollowUp); err != nil {
		t.Fatalf("continue: %v", err)
	}
}

func lastToast(t *testing.T, scr *ui.Screen) ui.Toast {
	t.Helper()
	ts := scr.Toasts()
	if len(ts) == 0 {
		t.Fatal("expected a toast")
	}
	return ts[len(ts)-1]
}

func TestFlow_ContinueWithoutSelectionWarns(t *testing.T) {
	fx := newFlowFixture()
	fx.flow.Open(context.Background())
	if !strings.Contains(fx.scr.Content(), visits.SlotsPlaceholder) {
		t.Errorf("expected slot placeholder, got %q", fx.scr.Content())
	}

	err := fx.flow.Continue("", visits.GenderMale, visits.TypeConsultation)
	if !errors.Is(err, ErrIncompleteSlot) {
		t.Fatalf("expected ErrIncompleteSlot, got %v", err)
	}
	if toast := lastToast(t, fx.scr); toast.Kind != ui.KindWarning {
		t.Errorf("expected warning toast, got %+v", toast)
	}
	if fx.flow.Wizard().State != StateSelectingSlot {
		t.Errorf("expected slot step, got %s", fx.flow.Wizard().State)
	}
	if fx.slots.calls != 0 || len(fx.repo.otpSends) != 0 || len(fx.repo.booked) != 0 {
		t.Errorf("expected no network calls, slots=%d otp=%d booked=%d", fx.slots.calls, len(fx.repo.otpSends), len(fx.repo.booked))
	}
}

func TestFlow_SlotMustBeOffered(t *testing.T) {
	fx := newFlowFixture()
	ctx := context.Background()
	fx.flow.Open(ctx)
	fx.flow.SelectDoctor(ctx, 2)
	fx.flow.SetDate(ctx, "2024-06-12")
	if err := fx.flow.Continue("13:00", visits.GenderMale, visits.TypeConsultation); !errors.Is(err, ErrIncompleteSlot) {
		t.Errorf("expected unoffered slot to be refused, got %v", err)
	}
}

func TestFlow_ResendCooldown(t *testing.T) {
	fx := newFlowFixture()
	fx.toSlotChosen(t)
	ctx := context.Background()

	if err := fx.flow.SendCode(ctx, "Ann Guest", "ann@example.com"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if fx.flow.Wizard().State != StateAwaitingOTP {
		t.Fatalf("expected awaiting otp, got %s", fx.flow.Wizard().State)
	}
	if !strings.Contains(fx.scr.Content(), "Resend OTP (15s)") {
		t.Errorf("expected disabled resend, got %q", fx.scr.Content())
	}

	fx.clock.WarpForward(10 * time.Second)
	if err := fx.flow.Resend(ctx); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if got := fx.flow.Cooldown().Label(); got != "Resend OTP (5s)" {
		t.Errorf("unexpected label %q", got)
	}
	if len(fx.repo.otpSends) != 1 {
		t.Errorf("expected one send, got %d", len(fx.repo.otpSends))
	}

	fx.clock.WarpForward(5 * time.Second)
	if !fx.flow.Cooldown().Ready() || fx.flow.Cooldown().Label() != "Resend OTP" {
		t.Errorf("expected resend enabled, label %q", fx.flow.Cooldown().Label())
	}
	if err := fx.flow.Resend(ctx); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(fx.repo.otpSends) != 2 || fx.repo.otpSends[1] != "ann@example.com" {
		t.Errorf("expected second send, got %v", fx.repo.otpSends)
	}
	if fx.flow.Cooldown().Ready() {
		t.Error("expected cooldown restarted")
	}
}

func TestFlow_ConfirmWithoutCodeIsBlocked(t *testing.T) {
	fx := newFlowFixture()
	fx.toSlotChosen(t)
	ctx := context.Background()

	if _, err := fx.flow.Confirm(ctx, "123456"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("expected confirm before sending a code to fail, got %v", err)
	}
	fx.flow.SendCode(ctx, "Ann Guest", "ann@example.com")
	if _, err := fx.flow.Confirm(ctx, ""); !errors.Is(err, ErrMissingOTP) {
		t.Errorf("expected ErrMissingOTP, got %v", err)
	}
	if len(fx.repo.booked) != 0 {
		t.Errorf("expected no booking, got %v", fx.repo.booked)
	}
}

func TestFlow_ConfirmFailureStaysOnCodeStep(t *testing.T) {
	fx := newFlowFixture()
	fx.toSlotChosen(t)
	ctx := context.Background()
	fx.flow.SendCode(ctx, "Ann Guest", "ann@example.com")

	fx.repo.bookErr = &apiclient.APIError{Status: 400, Detail: "Invalid or expired OTP"}
	if _, err := fx.flow.Confirm(ctx, "000000"); err == nil {
		t.Fatal("expected error")
	}
	if fx.flow.Wizard().State != StateAwaitingOTP {
		t.Errorf("expected to stay on code step, got %s", fx.flow.Wizard().State)
	}
	if n, ok := fx.scr.Notice(); !ok || n.Message != "Error: Invalid or expired OTP" {
		t.Errorf("unexpected notice %+v", n)
	}

	fx.repo.bookErr = nil
	conf, err := fx.flow.Confirm(ctx, "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.VisitID != 41 || fx.repo.booked[0].OTPCode != "123456" || fx.repo.booked[0].VisitType != visits.TypeFollowUp {
		t.Errorf("unexpected booking %+v / %+v", conf, fx.repo.booked)
	}
	if fx.flow.Wizard().State != StateLanding || fx.land.count != 1 {
		t.Errorf("expected reset to landing, state=%s landings=%d", fx.flow.Wizard().State, fx.land.count)
	}
	if toast := lastToast(t, fx.scr); toast.Message != "Booking Confirmed! ID: 41" {
		t.Errorf("unexpected toast %+v", toast)
	}
}

func TestFlow_NoPublicBookingWithoutCode(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/doctors/public":
			w.Write([]byte(`[{"id": 2, "name": "Dr. Rao", "specialization": "Cardiology"}]`))
		case "/doctors/2/public-slots":
			w.Write([]byte(`{"slots": ["10:00", "10:30"]}`))
		default:
			w.Write([]byte(`{"message": "ok"}`))
		}
	}))
	defer srv.Close()

	api := apiclient.New(srv.URL, tokenless{}, zerolog.Nop())
	c := clock.NewManaged(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	scr := ui.NewScreen(c, 3*time.Second)
	flow := NewFlow(NewHTTPRepo(api), visits.NewHTTPRepo(api), scr, timefmt.New(time.UTC, c), c, &landing{scr: scr}, Config{}, zerolog.Nop())
	ctx := context.Background()

	flow.Open(ctx)
	flow.SelectDoctor(ctx, 2)
	flow.SetDate(ctx, "2024-06-12")
	flow.Continue("10:00", visits.GenderMale, visits.TypeConsultation)
	flow.Confirm(ctx, "123456")
	flow.SendCode(ctx, "Ann", "ann@example.com")
	flow.Confirm(ctx, "")

	mu.Lock()
	defer mu.Unlock()
	for _, p := range paths {
		if p == "POST /visits/public" {
			t.Fatalf("unexpected guest booking request, saw %v", paths)
		}
	}
	if len(paths) != 3 || paths[2] != "POST /auth/otp/send" {
		t.Errorf("unexpected requests %v", paths)
	}
}

type tokenless struct{}

func (tokenless) Token() string { return "" }

func TestDirectory_Notices(t *testing.T) {
	tests := []struct {
		name string
		src  *mockRepo
		want string
	}{
		{"empty", &mockRepo{}, NoticeNoDoctors},
		{"server error", &mockRepo{listErr: &apiclient.APIError{Status: 503}}, NoticeServerError},
		{"timeout", &mockRepo{listErr: &apiclient.TransportError{Method: "GET", Path: "/doctors/public", Err: context.DeadlineExceeded}}, NoticeTimeout},
		{"other", &mockRepo{listErr: errors.New("boom")}, "System Error: boom"},
		{"ok", &mockRepo{doctors: []admin.Doctor{{ID: 1}}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, notice, _ := NewDirectory(tt.src, time.Second).Load(context.Background())
			if notice != tt.want {
				t.Errorf("expected %q, got %q", tt.want, notice)
			}
		})
	}
}

type blockingSource struct{}

func (blockingSource) ListDoctors(ctx context.Context) ([]admin.Doctor, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDirectory_EnforcesTimeout(t *testing.T) {
	start := time.Now()
	_, notice, err := NewDirectory(blockingSource{}, 20*time.Millisecond).Load(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) || notice != NoticeTimeout {
		t.Fatalf("expected timeout notice, got %q err=%v", notice, err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("load did not honour its deadline")
	}
}

func TestFlow_OpenShowsNoticeInsteadOfLoading(t *testing.T) {
	fx := newFlowFixture()
	fx.repo.listErr = &apiclient.APIError{Status: 500}
	fx.flow.Open(context.Background())
	content := fx.scr.Content()
	if content == ui.LoadingText || !strings.Contains(content, NoticeServerError) {
		t.Errorf("expected server error notice, got %q", content)
	}
}
