package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	calls   []string
	convs   []Conversation
	history map[int][]Message
	sent    []Outgoing
	unread  int
	users   []User
	sendErr error
	listErr error

	// gates blocks History for a user id until the channel is closed.
	gates   map[int]chan struct{}
	started chan int
	polled  chan string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		history: make(map[int][]Message),
		gates:   make(map[int]chan struct{}),
		started: make(chan int, 8),
		polled:  make(chan string, 64),
	}
}

func (m *mockRepo) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	select {
	case m.polled <- call:
	default:
	}
}

func (m *mockRepo) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepo) Conversations(_ context.Context) ([]Conversation, error) {
	m.record("conversations")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]Conversation(nil), m.convs...), nil
}

func (m *mockRepo) History(ctx context.Context, userID int) ([]Message, error) {
	m.mu.Lock()
	gate := m.gates[userID]
	m.mu.Unlock()
	if gate != nil {
		m.started <- userID
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.record(fmt.Sprintf("history %d", userID))
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.history[userID]...), nil
}

func (m *mockRepo) Send(_ context.Context, msg Outgoing) (*Message, error) {
	m.record(fmt.Sprintf("send %d", msg.RecipientID))
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, msg)
	out := Message{ID: len(m.sent), RecipientID: msg.RecipientID, Content: msg.Content, IsMe: true}
	m.history[msg.RecipientID] = append(m.history[msg.RecipientID], out)
	return &out, nil
}

func (m *mockRepo) Unread(_ context.Context) (int, error) {
	m.record("unread")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread, nil
}

func (m *mockRepo) Users(_ context.Context) ([]User, error) {
	m.record("users")
	return m.users, nil
}

func (m *mockRepo) MarkRead(_ context.Context, id int) error {
	m.record(fmt.Sprintf("read %d", id))
	return nil
}

func lines(n int, from int) []Message {
	out := make([]Message, n)
	for i := range out {
		out[i] = Message{ID: i + 1, SenderID: from, Content: fmt.Sprintf("line %d", i+1)}
	}
	return out
}

func TestViewport_FollowsOnlyNearBottom(t *testing.T) {
	v := Viewport{Height: 10}
	v.Replace(100)
	if v.Top != 90 {
		t.Fatalf("expected first load pinned to bottom, got top %d", v.Top)
	}

	v.Replace(120)
	if v.Top != 110 {
		t.Errorf("expected to follow new rows, got top %d", v.Top)
	}

	v.ScrollTo(108) // 2 rows short of the bottom
	v.Replace(125)
	if v.Top != 115 {
		t.Errorf("expected to follow within threshold, got top %d", v.Top)
	}

	v.ScrollTo(110) // 5 rows short of the bottom
	v.Replace(130)
	if v.Top != 110 {
		t.Errorf("expected manual position kept outside threshold, got top %d", v.Top)
	}

	v.ScrollTo(0)
	v.Replace(135)
	if v.Top != 0 {
		t.Errorf("expected manual position kept, got top %d", v.Top)
	}

	v.ScrollTo(500)
	if v.Top != 125 {
		t.Errorf("expected clamp to last page, got top %d", v.Top)
	}
}

func TestViewport_ShortContentStaysPinned(t *testing.T) {
	v := Viewport{Height: 20}
	v.Replace(5)
	v.Replace(8)
	if v.Top != 0 {
		t.Errorf("content shorter than the window has nowhere to scroll, got top %d", v.Top)
	}
	v.Replace(21)
	if v.Top != 1 {
		t.Errorf("expected to follow once content overflows, got top %d", v.Top)
	}
}

func TestChat_RefreshKeepsScrollInShortConversation(t *testing.T) {
	repo := newMockRepo()
	repo.history[7] = lines(30, 7)
	chat := NewChat(repo, 20)
	ctx := context.Background()

	if err := chat.Open(ctx, 7, "Dr. Rao"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if top := chat.Snapshot().Viewport.Top; top != 10 {
		t.Fatalf("expected first load pinned to bottom, got top %d", top)
	}

	chat.Scroll(-1000)
	repo.mu.Lock()
	repo.history[7] = lines(31, 7)
	repo.mu.Unlock()
	if err := chat.RefreshHistory(ctx); err != nil {
		t.Fatalf("RefreshHistory: %v", err)
	}

	vp := chat.Snapshot().Viewport
	if vp.Top != 0 || vp.Total != 31 {
		t.Errorf("expected scroll position kept at top, got %+v", vp)
	}
}

func TestChat_StaleHistoryDiscarded(t *testing.T) {
	repo := newMockRepo()
	repo.history[1] = []Message{{ID: 1, SenderID: 1, Content: "from A"}}
	repo.history[2] = []Message{{ID: 2, SenderID: 2, Content: "from B"}}
	gateA := make(chan struct{})
	repo.gates[1] = gateA
	chat := NewChat(repo, 10)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- chat.Open(ctx, 1, "A") }()

	select {
	case <-repo.started:
	case <-time.After(time.Second):
		t.Fatal("history for A never requested")
	}

	if err := chat.Open(ctx, 2, "B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(gateA)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error from A: %v", err)
	}

	snap := chat.Snapshot()
	if snap.Active != 2 || snap.Title() != "B" {
		t.Errorf("expected B active, got %d %q", snap.Active, snap.Title())
	}
	if len(snap.History) != 1 || snap.History[0].Content != "from B" {
		t.Errorf("expected B's history only, got %+v", snap.History)
	}
}

func TestChat_CloseDiscardsInFlight(t *testing.T) {
	repo := newMockRepo()
	repo.history[1] = lines(3, 1)
	gate := make(chan struct{})
	repo.gates[1] = gate
	chat := NewChat(repo, 10)

	done := make(chan error, 1)
	go func() { done <- chat.Open(context.Background(), 1, "A") }()
	<-repo.started
	chat.Close()
	close(gate)
	<-done

	if snap := chat.Snapshot(); snap.Active != 0 || len(snap.History) != 0 {
		t.Errorf("expected closed chat to stay empty, got %+v", snap)
	}
}

func TestChat_SendClearsDraftThenRefreshes(t *testing.T) {
	repo := newMockRepo()
	chat := NewChat(repo, 10)
	ctx := context.Background()
	chat.Open(ctx, 4, "Dr. Lee")

	chat.SetDraft("  hello  ")
	if err := chat.Send(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := chat.Snapshot()
	if snap.Draft != "" {
		t.Errorf("expected draft cleared, got %q", snap.Draft)
	}
	if len(snap.History) != 1 || snap.History[0].Content != "hello" {
		t.Errorf("expected refreshed history with the sent line, got %+v", snap.History)
	}

	calls := repo.Calls()
	want := []string{"history 4", "send 4", "history 4", "conversations"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("expected calls %v, got %v", want, calls)
	}
}

func TestChat_SendFailureStillClearsDraft(t *testing.T) {
	repo := newMockRepo()
	repo.sendErr = &apiclient.APIError{Status: 404, Detail: "Recipient not found"}
	chat := NewChat(repo, 10)
	chat.Open(context.Background(), 4, "X")

	chat.SetDraft("hi")
	if err := chat.Send(context.Background()); err == nil {
		t.Fatal("expected send error")
	}
	if d := chat.Snapshot().Draft; d != "" {
		t.Errorf("expected draft cleared before the request, got %q", d)
	}
}

func TestChat_SendGuards(t *testing.T) {
	repo := newMockRepo()
	chat := NewChat(repo, 10)

	chat.SetDraft("   ")
	if err := chat.Send(context.Background()); err != nil {
		t.Errorf("expected blank draft ignored, got %v", err)
	}
	chat.SetDraft("hi")
	if err := chat.Send(context.Background()); !errors.Is(err, ErrNoConversation) {
		t.Errorf("expected ErrNoConversation, got %v", err)
	}
	if len(repo.Calls()) != 0 {
		t.Errorf("expected no calls, got %v", repo.Calls())
	}
}

func TestChat_Compose(t *testing.T) {
	tests := []struct {
		name     string
		form     ComposeForm
		wantTo   int
		wantName string
		wantErr  error
	}{
		{"picked", ComposeForm{Picked: 3, PickedName: "Dr. Lee (Doctor)", Text: "hi"}, 3, "Dr. Lee (Doctor)", nil},
		{"manual wins", ComposeForm{Picked: 3, PickedName: "Dr. Lee", Manual: " 9 ", Text: "hi"}, 9, "", nil},
		{"no recipient", ComposeForm{Text: "hi"}, 0, "", ErrMissingCompose},
		{"no text", ComposeForm{Picked: 3, Text: "  "}, 0, "", ErrMissingCompose},
		{"bad manual id", ComposeForm{Manual: "abc", Text: "hi"}, 0, "", ErrBadRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			to, name, err := NewChat(repo, 10).Compose(context.Background(), tt.form)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, validation.ErrInvalid) {
					t.Errorf("expected a validation error, got %v", err)
				}
				if len(repo.sent) != 0 {
					t.Errorf("expected nothing sent, got %+v", repo.sent)
				}
				return
			}
			if to != tt.wantTo || name != tt.wantName {
				t.Errorf("expected %d %q, got %d %q", tt.wantTo, tt.wantName, to, name)
			}
			if len(repo.sent) != 1 || repo.sent[0].Content != "hi" {
				t.Errorf("expected first message sent, got %+v", repo.sent)
			}
		})
	}
}

func TestSnapshot_Title(t *testing.T) {
	snap := Snapshot{Active: 5, Conversations: []Conversation{{UserID: 5}}}
	if got := snap.Title(); got != "User 5" {
		t.Errorf("expected list fallback, got %q", got)
	}
	snap.Conversations = nil
	if got := snap.Title(); got != "New Chat" {
		t.Errorf("expected New Chat, got %q", got)
	}
}
