// Package ui holds the text screen the views render into: a header, the
// role's navigation, a content region, an inline notice line, the unread
// badge and auto-dismissing toasts.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/polyclinic/clinicdesk/internal/platform/clock"
)

// Placeholders shared by every view.
const (
	LoadingText      = "Loading..."
	AccessDeniedText = "Access Denied"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Toast is a transient notice.
type Toast struct {
	Kind    Kind
	Message string
	Expires time.Time
}

// Notice is an inline message shown under the content, e.g. a form error.
type Notice struct {
	Kind    Kind
	Message string
}

// NavItem is one sidebar entry.
type NavItem struct {
	View  string
	Label string
}

// Screen is the single mutable display surface. All methods are safe for
// concurrent use since pollers update the badge from their own goroutines.
type Screen struct {
	mu       sync.Mutex
	clock    clock.Clock
	toastTTL time.Duration

	header  string
	nav     []NavItem
	active  string
	content string
	notice  *Notice
	badge   int
	toasts  []Toast

	onChange func()
}

func NewScreen(c clock.Clock, toastTTL time.Duration) *Screen {
	if c == nil {
		c = clock.New()
	}
	if toastTTL <= 0 {
		toastTTL = 3 * time.Second
	}
	return &Screen{clock: c, toastTTL: toastTTL}
}

// OnChange registers fn to run after every mutation, outside the lock.
func (s *Screen) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Screen) update(fn func()) {
	s.mu.Lock()
	fn()
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetHeader sets the dashboard header, or clears it on the landing screen.
func (s *Screen) SetHeader(h string) {
	s.update(func() { s.header = h })
}

func (s *Screen) SetNav(items []NavItem) {
	s.update(func() { s.nav = append([]NavItem(nil), items...) })
}

func (s *Screen) Nav() []NavItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NavItem(nil), s.nav...)
}

// SetActive marks the nav entry for view as active.
func (s *Screen) SetActive(view string) {
	s.update(func() { s.active = view })
}

func (s *Screen) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetContent replaces the content region and clears the inline notice.
func (s *Screen) SetContent(content string) {
	s.update(func() {
		s.content = content
		s.notice = nil
	})
}

func (s *Screen) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

// SetLoading shows the loading placeholder.
func (s *Screen) SetLoading() { s.SetContent(LoadingText) }

// SetNotice shows an inline notice under the current content.
func (s *Screen) SetNotice(kind Kind, msg string) {
	s.update(func() { s.notice = &Notice{Kind: kind, Message: msg} })
}

// Notice returns the inline notice, if any.
func (s *Screen) Notice() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return Notice{}, false
	}
	return *s.notice, true
}

// SetBadge updates the unread counter.
func (s *Screen) SetBadge(n int) {
	if n < 0 {
		n = 0
	}
	s.update(func() { s.badge = n })
}

func (s *Screen) Badge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badge
}

// BadgeLabel renders the badge, "" when hidden.
func (s *Screen) BadgeLabel() string {
	n := s.Badge()
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("(%d)", n)
}

// Toast shows msg until the toast duration elapses. A new toast replaces the
// visible one.
func (s *Screen) Toast(kind Kind, msg string) {
	s.update(func() {
		s.toasts = []Toast{{Kind: kind, Message: msg, Expires: s.clock.Now().Add(s.toastTTL)}}
	})
}

// Toasts returns the toasts that have not yet expired.
func (s *Screen) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	live := s.toasts[:0]
	for _, t := range s.toasts {
		if now.Before(t.Expires) {
			live = append(live, t)
		}
	}
	s.toasts = live
	return append([]Toast(nil), live...)
}

// Reset clears everything but the badge hook, as on logout.
func (s *Screen) Reset() {
	s.update(func() {
		s.header = ""
		s.nav = nil
		s.active = ""
		s.content = ""
		s.notice = nil
		s.badge = 0
		s.toasts = nil
	})
}

// Render draws the whole screen as text.
func (s *Screen) Render() string {
	toasts := s.Toasts()

	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if s.header != "" {
		b.WriteString(s.header)
		b.WriteString("\n")
	}
	if len(s.nav) > 0 {
		parts := make([]string, 0, len(s.nav))
		for _, item := range s.nav {
			label := item.Label
			if item.View == "msgs" && s.badge > 0 {
				label = fmt.Sprintf("%s (%d)", label, s.badge)
			}
			if item.View == s.active {
				label = "[" + label + "]"
			}
			parts = append(parts, label)
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", 60))
		b.WriteString("\n")
	}
	b.WriteString(s.content)
	if !strings.HasSuffix(s.content, "\n") {
		b.WriteString("\n")
	}
	if s.notice != nil {
		fmt.Fprintf(&b, "%s %s\n", noticePrefix(s.notice.Kind), s.notice.Message)
	}
	for _, t := range toasts {
		fmt.Fprintf(&b, "\n** %s %s **\n", noticePrefix(t.Kind), t.Message)
	}
	return b.String()
}

func noticePrefix(k Kind) string {
	switch k {
	case KindSuccess:
		return "[ok]"
	case KindError:
		return "[error]"
	case KindWarning:
		return "[warn]"
	}
	return "[info]"
}
