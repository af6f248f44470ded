package messaging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

type fixedSession session.Session

func (f fixedSession) Current() session.Session { return session.Session(f) }

type stubView string

func (s stubView) Name() string { return string(s) }

func (s stubView) Load(_ context.Context, scr *ui.Screen) error {
	scr.SetContent("home")
	return nil
}

type fixture struct {
	repo  *mockRepo
	clock *clock.ManagedClock
	scr   *ui.Screen
	r     *router.Router
	view  *MessagesView
}

func newFixture(role session.Role) *fixture {
	c := clock.NewManaged(epoch)
	f := &fixture{repo: newMockRepo(), clock: c, scr: ui.NewScreen(c, 3*time.Second)}
	f.r = router.New(f.scr, fixedSession{Token: "t", Role: role, Username: "u"}, &ui.ScriptedPrompter{Answer: true}, zerolog.Nop())
	f.view = NewMessagesView(f.repo, f.r, timefmt.New(time.UTC, c), c, 3*time.Second, nil, zerolog.Nop())
	f.r.Register(f.view, stubView(router.ViewHome))
	return f
}

func (f *fixture) waitCall(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case call := <-f.repo.polled:
			if call == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q, calls %v", want, f.repo.Calls())
		}
	}
}

func (f *fixture) drain() {
	for {
		select {
		case <-f.repo.polled:
		default:
			return
		}
	}
}

func TestMessagesView_LoadListsConversations(t *testing.T) {
	f := newFixture(session.RoleDoctor)
	f.repo.convs = []Conversation{
		{UserID: 7, Name: "Reception", LastMessage: "Room 2 is free", TimeStr: "2024-06-10T08:15:00", Unread: 2},
		{UserID: 8, TimeStr: "2024-06-01T08:15:00"},
	}

	if err := f.r.LoadView(context.Background(), router.ViewMessages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.view.Unmount()

	out := f.scr.Content()
	for _, want := range []string{"Reception", "Room 2 is free", "(2)", "User 8", startChatText, pickChatText} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if !f.view.Polling() {
		t.Error("expected chat poll running while mounted")
	}
}

func TestMessagesView_EmptyAndDenied(t *testing.T) {
	f := newFixture(session.RoleReceptionist)
	f.r.LoadView(context.Background(), router.ViewMessages)
	if !strings.Contains(f.scr.Content(), noChatsText) {
		t.Errorf("expected empty list text, got %q", f.scr.Content())
	}
	f.view.Unmount()

	c := newFixture(session.RoleCustomer)
	if err := c.r.LoadView(context.Background(), router.ViewMessages); !errors.Is(err, router.ErrAccessDenied) {
		t.Errorf("expected access denied for customers, got %v", err)
	}
	if c.view.Polling() {
		t.Error("expected no chat poll for customers")
	}
}

func TestMessagesView_ListFailureIsVisible(t *testing.T) {
	f := newFixture(session.RoleDoctor)
	f.repo.listErr = &apiclient.APIError{Status: 500}
	if err := f.r.LoadView(context.Background(), router.ViewMessages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.view.Unmount()

	if f.scr.Content() == loadingChatsText {
		t.Error("expected the view to leave the loading state")
	}
	if n, ok := f.scr.Notice(); !ok || n.Kind != ui.KindError {
		t.Errorf("expected an error notice, got %+v", n)
	}
}

func TestMessagesView_PollRefreshesAndStopsOnLeave(t *testing.T) {
	f := newFixture(session.RoleDoctor)
	f.repo.convs = []Conversation{{UserID: 7, Name: "Reception"}}
	f.repo.history[7] = []Message{{ID: 1, SenderID: 7, Content: "hello", Timestamp: "2024-06-10T08:00:00"}}
	ctx := context.Background()

	f.r.LoadView(ctx, router.ViewMessages)
	f.view.Open(ctx, 7, "Reception")
	if !strings.Contains(f.scr.Content(), "Reception: hello") {
		t.Fatalf("expected history, got %q", f.scr.Content())
	}
	f.drain()

	f.repo.mu.Lock()
	f.repo.history[7] = append(f.repo.history[7], Message{ID: 2, SenderID: 7, Content: "are you there?"})
	f.repo.mu.Unlock()

	f.clock.WarpForward(3 * time.Second)
	f.waitCall(t, "conversations")
	f.waitCall(t, "history 7")

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(f.scr.Content(), "are you there?") {
		if time.Now().After(deadline) {
			t.Fatalf("expected polled history rendered, got %q", f.scr.Content())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := f.r.LoadView(ctx, router.ViewHome); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.view.Polling() || f.clock.ActiveTickers() != 0 {
		t.Fatalf("expected chat poll stopped, tickers=%d", f.clock.ActiveTickers())
	}
	if f.view.Chat().Active() != 0 {
		t.Error("expected the open conversation dropped on leave")
	}
}

func TestMessagesView_SendFailureToasts(t *testing.T) {
	f := newFixture(session.RoleDoctor)
	ctx := context.Background()
	f.r.LoadView(ctx, router.ViewMessages)
	defer f.view.Unmount()

	if err := f.view.Send(ctx, "hi"); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}
	f.view.Open(ctx, 7, "Reception")
	f.repo.sendErr = errors.New("boom")
	f.view.Send(ctx, "hi")

	toasts := f.scr.Toasts()
	if len(toasts) != 1 || toasts[0].Message != sendFailedText || toasts[0].Kind != ui.KindError {
		t.Errorf("expected send failure toast, got %+v", toasts)
	}
}

func TestMessagesView_ComposeNavigatesIntoConversation(t *testing.T) {
	f := newFixture(session.RoleSeniorAdmin)
	f.repo.users = []User{{ID: 3, Name: "Dr. Lee (Doctor)"}}
	ctx := context.Background()
	f.r.LoadView(ctx, router.ViewHome)

	if err := f.view.Compose(ctx, ComposeForm{Text: "hi"}); !errors.Is(err, ErrMissingCompose) {
		t.Fatalf("expected ErrMissingCompose, got %v", err)
	}
	if toasts := f.scr.Toasts(); len(toasts) != 1 || toasts[0].Kind != ui.KindWarning {
		t.Errorf("expected warning toast, got %+v", toasts)
	}

	if err := f.view.Compose(ctx, ComposeForm{Picked: 3, Text: "Can you cover room 4?"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.view.Unmount()

	if f.r.Current() != router.ViewMessages || f.view.Chat().Active() != 3 {
		t.Fatalf("expected conversation 3 open on msgs, got %q %d", f.r.Current(), f.view.Chat().Active())
	}
	if !strings.Contains(f.scr.Content(), "Chat: Dr. Lee (Doctor)") || !strings.Contains(f.scr.Content(), "You: Can you cover room 4?") {
		t.Errorf("unexpected content %q", f.scr.Content())
	}
}

func TestMessagesView_ScrollKeepsPositionOnPoll(t *testing.T) {
	f := newFixture(session.RoleDoctor)
	f.repo.history[7] = lines(200, 7)
	ctx := context.Background()
	f.r.LoadView(ctx, router.ViewMessages)
	defer f.view.Unmount()
	f.view.Open(ctx, 7, "Reception")

	if !strings.Contains(f.scr.Content(), "line 200") {
		t.Fatalf("expected to open at the bottom, got %q", f.scr.Content())
	}
	f.view.Scroll(-150)
	f.repo.mu.Lock()
	f.repo.history[7] = lines(210, 7)
	f.repo.mu.Unlock()
	f.view.Refresh(ctx)

	snap := f.view.Chat().Snapshot()
	if snap.Viewport.Top != 30 || snap.Viewport.Total != 210 {
		t.Errorf("expected manual position kept, got %+v", snap.Viewport)
	}
	if strings.Contains(f.scr.Content(), "line 210") {
		t.Error("expected newest lines out of view")
	}
}

func TestMessagesView_OpenLogsListFailure(t *testing.T) {
	f := newFixture(session.RoleDoctor)
	var buf bytes.Buffer
	f.view = NewMessagesView(f.repo, f.r, timefmt.New(time.UTC, f.clock), f.clock, 3*time.Second, nil, zerolog.New(&buf).Level(zerolog.DebugLevel))
	f.repo.history[7] = lines(3, 7)
	f.repo.listErr = &apiclient.APIError{Status: 500}
	ctx := context.Background()

	if err := f.view.Open(ctx, 7, "Reception"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "conversation list refresh failed") || !strings.Contains(out, `"user_id":7`) {
		t.Errorf("expected the list failure to be logged, got %q", out)
	}
	if got := len(f.view.Chat().Snapshot().History); got != 3 {
		t.Errorf("history should still load, got %d messages", got)
	}
}
