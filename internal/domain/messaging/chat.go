package messaging

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/polyclinic/clinicdesk/internal/platform/validation"
)

var (
	ErrNoConversation = errors.New("messaging: no conversation open")
	ErrMissingCompose = validation.Invalid("Recipient and Message required")
	ErrBadRecipient   = validation.Invalid("User ID must be a number")
)

// FollowThreshold is how close to the bottom, in rows, the history viewport
// must be for a refresh to keep it pinned there. Two rows is about the 50px
// slack a browser chat pane allows.
const FollowThreshold = 2

// DefaultViewportHeight is the number of history rows shown at once.
const DefaultViewportHeight = 20

// Viewport is the visible window over the history rows.
type Viewport struct {
	Height int
	Top    int
	Total  int
}

// AtBottom reports whether the window is at most FollowThreshold rows above
// the last row.
func (v Viewport) AtBottom() bool {
	return v.Total-v.Top <= v.Height+FollowThreshold
}

// ScrollTo moves the window to top, clamped to the content.
func (v *Viewport) ScrollTo(top int) {
	maxTop := v.Total - v.Height
	if maxTop < 0 {
		maxTop = 0
	}
	switch {
	case top < 0:
		top = 0
	case top > maxTop:
		top = maxTop
	}
	v.Top = top
}

func (v *Viewport) ScrollToBottom() { v.ScrollTo(v.Total) }

// Replace swaps in content of total rows. The window follows the bottom
// only if it was near it before; otherwise the position is kept.
func (v *Viewport) Replace(total int) {
	follow := v.AtBottom()
	v.Total = total
	if follow {
		v.ScrollToBottom()
		return
	}
	v.ScrollTo(v.Top)
}

// Visible returns the [from, to) row range in view.
func (v Viewport) Visible() (int, int) {
	to := v.Top + v.Height
	if to > v.Total {
		to = v.Total
	}
	return v.Top, to
}

// ComposeForm starts a conversation. A manual id wins over the picked user.
type ComposeForm struct {
	Picked     int
	PickedName string
	Manual     string
	Text       string
}

// Chat holds the conversation list and the open conversation. Opening a
// conversation bumps a generation; history fetched under an older
// generation is dropped when it lands.
type Chat struct {
	repo Repository

	mu      sync.Mutex
	gen     uint64
	active  int
	name    string
	convs   []Conversation
	history []Message
	view    Viewport
	draft   string
	listErr error
}

func NewChat(repo Repository, height int) *Chat {
	if height <= 0 {
		height = DefaultViewportHeight
	}
	return &Chat{repo: repo, view: Viewport{Height: height}}
}

// Snapshot is a consistent copy of the chat state for rendering.
type Snapshot struct {
	Conversations []Conversation
	Active        int
	Name          string
	History       []Message
	Viewport      Viewport
	Draft         string
	ListErr       error
}

// Title names the open conversation: the name it was opened with, else its
// list entry, else "New Chat".
func (s Snapshot) Title() string {
	if s.Name != "" {
		return s.Name
	}
	for _, c := range s.Conversations {
		if c.UserID == s.Active {
			return c.Label()
		}
	}
	return "New Chat"
}

func (c *Chat) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Conversations: append([]Conversation(nil), c.convs...),
		Active:        c.active,
		Name:          c.name,
		History:       append([]Message(nil), c.history...),
		Viewport:      c.view,
		Draft:         c.draft,
		ListErr:       c.listErr,
	}
}

// Active returns the open conversation's user id, or 0.
func (c *Chat) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetDraft replaces the message being typed.
func (c *Chat) SetDraft(s string) {
	c.mu.Lock()
	c.draft = s
	c.mu.Unlock()
}

// Scroll moves the history window by delta rows.
func (c *Chat) Scroll(delta int) {
	c.mu.Lock()
	c.view.ScrollTo(c.view.Top + delta)
	c.mu.Unlock()
}

// Open makes userID the active conversation and loads its history. The
// viewport starts empty, so the first load lands pinned to the bottom. A
// fetch still running for the previous conversation is discarded when it
// returns.
func (c *Chat) Open(ctx context.Context, userID int, name string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.active = userID
	c.name = name
	c.history = nil
	c.view = Viewport{Height: c.view.Height}
	c.mu.Unlock()

	_, err := c.loadHistory(ctx, gen, userID)
	return err
}

// Close forgets the open conversation and invalidates in-flight fetches.
func (c *Chat) Close() {
	c.mu.Lock()
	c.gen++
	c.active = 0
	c.name = ""
	c.history = nil
	c.draft = ""
	c.view = Viewport{Height: c.view.Height}
	c.mu.Unlock()
}

// loadHistory fetches userID's history and applies it if gen is still
// current. It reports whether the result was applied.
func (c *Chat) loadHistory(ctx context.Context, gen uint64, userID int) (bool, error) {
	msgs, err := c.repo.History(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || userID != c.active {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.history = msgs
	c.view.Replace(len(msgs))
	return true, nil
}

// RefreshHistory re-fetches the open conversation, if any.
func (c *Chat) RefreshHistory(ctx context.Context) error {
	c.mu.Lock()
	gen, userID := c.gen, c.active
	c.mu.Unlock()
	if userID == 0 {
		return nil
	}
	_, err := c.loadHistory(ctx, gen, userID)
	return err
}

// RefreshList re-fetches the conversation list. On failure the previous
// list is kept.
func (c *Chat) RefreshList(ctx context.Context) error {
	convs, err := c.repo.Conversations(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
	if err != nil {
		return err
	}
	c.convs = convs
	return nil
}

// Refresh is one poll tick: the list, then the open conversation.
func (c *Chat) Refresh(ctx context.Context) error {
	listErr := c.RefreshList(ctx)
	if err := c.RefreshHistory(ctx); err != nil {
		return err
	}
	return listErr
}

// Send posts the draft to the open conversation. The draft is cleared
// before the request; once it returns the history and then the list are
// re-fetched. An empty draft is ignored.
func (c *Chat) Send(ctx context.Context) error {
	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	to := c.active
	if text != "" {
		c.draft = ""
	}
	c.mu.Unlock()

	if text == "" {
		return nil
	}
	if to == 0 {
		return ErrNoConversation
	}
	if _, err := c.repo.Send(ctx, Outgoing{RecipientID: to, Content: text}); err != nil {
		return err
	}
	if err := c.RefreshHistory(ctx); err != nil {
		return err
	}
	return c.RefreshList(ctx)
}

// Compose sends the first message of a new conversation and returns the
// recipient with the name to open it under. It does not open it.
func (c *Chat) Compose(ctx context.Context, form ComposeForm) (int, string, error) {
	to, name, err := form.recipient()
	if err != nil {
		return 0, "", err
	}
	text := strings.TrimSpace(form.Text)
	if to == 0 || text == "" {
		return 0, "", ErrMissingCompose
	}
	if _, err := c.repo.Send(ctx, Outgoing{RecipientID: to, Content: text}); err != nil {
		return 0, "", err
	}
	return to, name, nil
}

func (f ComposeForm) recipient() (int, string, error) {
	if m := strings.TrimSpace(f.Manual); m != "" {
		id, err := strconv.Atoi(m)
		if err != nil || id <= 0 {
			return 0, "", ErrBadRecipient
		}
		return id, "", nil
	}
	return f.Picked, f.PickedName, nil
}

// MarkRead marks one received message as read.
func (c *Chat) MarkRead(ctx context.Context, messageID int) error {
	return c.repo.MarkRead(ctx, messageID)
}
