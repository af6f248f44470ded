package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/apiclient"
	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/timefmt"
	"github.com/polyclinic/clinicdesk/internal/platform/validation"
	"github.com/polyclinic/clinicdesk/internal/platform/websocket"
	"github.com/polyclinic/clinicdesk/internal/router"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

const (
	loadingChatsText = "Loading Chats..."
	noChatsText      = "No conversations yet."
	pickChatText     = "Select a conversation to start chatting"
	startChatText    = "Start chatting..."
	sendFailedText   = "Failed to send"
	historyErrorText = "Error loading messages"
)

// chatUpdate is the payload pushed on the chat topic after each poll.
type chatUpdate struct {
	Conversations []Conversation `json:"conversations"`
	Active        int            `json:"active,omitempty"`
	Messages      []Message      `json:"messages,omitempty"`
}

// MessagesView is the chat screen. While mounted it re-fetches the list and
// the open conversation on every chat poll tick.
type MessagesView struct {
	repo   Repository
	chat   *Chat
	r      *router.Router
	tf     *timefmt.Formatter
	pub    websocket.Publisher
	clock  clock.Clock
	poller *Poller
	logger zerolog.Logger

	mu      sync.Mutex
	mounted bool
}

// NewMessagesView polls every interval while mounted. pub may be nil.
func NewMessagesView(repo Repository, r *router.Router, tf *timefmt.Formatter, c clock.Clock, interval time.Duration, pub websocket.Publisher, logger zerolog.Logger) *MessagesView {
	if interval <= 0 {
		interval = DefaultChatInterval
	}
	v := &MessagesView{
		repo:   repo,
		chat:   NewChat(repo, DefaultViewportHeight),
		r:      r,
		tf:     tf,
		pub:    pub,
		clock:  c,
		logger: logger.With().Str("component", "messages").Logger(),
	}
	v.poller = NewPoller("chat", c, interval, v.tick, logger)
	return v
}

func (v *MessagesView) Name() string { return router.ViewMessages }

func (v *MessagesView) Chat() *Chat { return v.chat }

// Polling reports whether the chat poll is running.
func (v *MessagesView) Polling() bool { return v.poller.Running() }

func (v *MessagesView) Load(ctx context.Context, scr *ui.Screen) error {
	scr.SetContent(loadingChatsText)
	v.poller.Stop()

	err := v.chat.RefreshList(ctx)
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return err
	}
	if err != nil {
		v.logger.Warn().Err(err).Msg("conversation list failed")
	}

	v.mu.Lock()
	v.mounted = true
	v.mu.Unlock()

	v.render()
	if err != nil {
		scr.SetNotice(ui.KindError, apiclient.Message(err))
	}
	v.poller.Start(ctx)
	return nil
}

// Unmount stops the chat poll and drops the open conversation, so fetches
// still in flight are discarded.
func (v *MessagesView) Unmount() {
	v.mu.Lock()
	v.mounted = false
	v.mu.Unlock()
	v.poller.Stop()
	v.chat.Close()
}

func (v *MessagesView) isMounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Refresh runs one poll tick by hand.
func (v *MessagesView) Refresh(ctx context.Context) error {
	err := v.chat.Refresh(ctx)
	if v.isMounted() {
		v.render()
	}
	return err
}

func (v *MessagesView) tick(ctx context.Context) {
	if err := v.chat.Refresh(ctx); err != nil && ctx.Err() == nil {
		v.logger.Debug().Err(err).Msg("chat poll failed")
	}
	if ctx.Err() != nil || !v.isMounted() {
		return
	}
	v.render()

	snap := v.chat.Snapshot()
	publish(ctx, v.pub, websocket.TopicChat, "refresh", v.clock.Now(), chatUpdate{
		Conversations: snap.Conversations,
		Active:        snap.Active,
		Messages:      snap.History,
	}, v.logger)
}

// Open shows the conversation with userID.
func (v *MessagesView) Open(ctx context.Context, userID int, name string) error {
	err := v.chat.Open(ctx, userID, name)
	if err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
		v.logger.Warn().Err(err).Int("user_id", userID).Msg("history failed")
	}
	if listErr := v.chat.RefreshList(ctx); listErr != nil && ctx.Err() == nil {
		v.logger.Debug().Err(listErr).Int("user_id", userID).Msg("conversation list refresh failed")
	}
	v.render()
	if err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
		v.r.Screen().SetNotice(ui.KindError, historyErrorText)
	}
	return err
}

// Send sends text to the open conversation.
func (v *MessagesView) Send(ctx context.Context, text string) error {
	v.chat.SetDraft(text)
	err := v.chat.Send(ctx)
	v.render()
	switch {
	case err == nil, errors.Is(err, apiclient.ErrUnauthorized):
	case errors.Is(err, ErrNoConversation):
		v.r.Screen().Toast(ui.KindWarning, pickChatText)
	default:
		v.r.Screen().Toast(ui.KindError, sendFailedText)
	}
	return err
}

// Scroll moves the history window by delta rows.
func (v *MessagesView) Scroll(delta int) {
	v.chat.Scroll(delta)
	v.render()
}

// Users lists who can be messaged.
func (v *MessagesView) Users(ctx context.Context) ([]User, error) {
	return v.repo.Users(ctx)
}

// Compose sends the first message to a picked or typed recipient, then
// shows the messages screen with that conversation open.
func (v *MessagesView) Compose(ctx context.Context, form ComposeForm) error {
	if form.Picked > 0 && form.PickedName == "" && strings.TrimSpace(form.Manual) == "" {
		if users, err := v.repo.Users(ctx); err == nil {
			for _, u := range users {
				if u.ID == form.Picked {
					form.PickedName = u.Name
				}
			}
		}
	}

	to, name, err := v.chat.Compose(ctx, form)
	switch {
	case err == nil:
	case errors.Is(err, apiclient.ErrUnauthorized):
		return err
	case errors.Is(err, validation.ErrInvalid):
		v.r.Screen().Toast(ui.KindWarning, err.Error())
		return err
	default:
		v.r.Screen().Toast(ui.KindError, sendFailedText)
		return err
	}

	if v.r.Current() != router.ViewMessages {
		if err := v.r.LoadView(ctx, router.ViewMessages); err != nil {
			return err
		}
	}
	return v.Open(ctx, to, name)
}

// MarkRead marks one received message as read.
func (v *MessagesView) MarkRead(ctx context.Context, messageID int) error {
	return v.chat.MarkRead(ctx, messageID)
}

func (v *MessagesView) render() {
	if !v.isMounted() {
		return
	}
	v.r.Screen().SetContent(v.Render())
}

// Render draws the conversation list and the open conversation.
func (v *MessagesView) Render() string {
	snap := v.chat.Snapshot()

	var list strings.Builder
	list.WriteString("Conversations   [r] Refresh   [n] + New Chat\n")
	if len(snap.Conversations) == 0 {
		list.WriteString("  " + noChatsText + "\n")
	}
	for _, c := range snap.Conversations {
		mark := " "
		if c.UserID == snap.Active {
			mark = ">"
		}
		unread := ""
		if c.Unread > 0 {
			unread = fmt.Sprintf("  (%d)", c.Unread)
		}
		fmt.Fprintf(&list, "%s %4d  %-24s %s\n", mark, c.UserID, c.Label(), v.tf.SmartTime(c.TimeStr))
		fmt.Fprintf(&list, "        %s%s\n", ui.OrDefault(c.LastMessage, startChatText), unread)
	}

	var win strings.Builder
	if snap.Active == 0 {
		win.WriteString(pickChatText + "\n")
	} else {
		fmt.Fprintf(&win, "Chat: %s\n", snap.Title())
		from, to := snap.Viewport.Visible()
		if from > 0 {
			fmt.Fprintf(&win, "  ... %d earlier\n", from)
		}
		for _, m := range snap.History[from:to] {
			who := snap.Title()
			if m.IsMe {
				who = "You"
			}
			fmt.Fprintf(&win, "  [%s] %s: %s\n", v.tf.LocalTime(m.Timestamp), who, m.Content)
		}
		if to < len(snap.History) {
			fmt.Fprintf(&win, "  ... %d newer\n", len(snap.History)-to)
		}
		win.WriteString("> Type a message...\n")
	}

	return ui.Section("Messages", list.String(), "", win.String())
}
