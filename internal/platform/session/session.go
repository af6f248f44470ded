// Package session holds the authenticated identity of the current user and
// persists it between runs.
//
// The identity is decoded from the access token's claims without verifying the
// signature. The backend verifies every request, so the claims are only used
// to pick the dashboard and the display name.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/clock"
)

// Persisted keys. They are always written and cleared together.
const (
	KeyToken    = "token"
	KeyRole     = "role"
	KeyUsername = "username"
)

var persistedKeys = []string{KeyToken, KeyRole, KeyUsername}

// Role is the backend role carried in the token's "role" claim.
type Role string

const (
	RoleSeniorAdmin  Role = "Senior Admin"
	RoleReceptionist Role = "Receptionist"
	RoleDoctor       Role = "Doctor"
	RoleCustomer     Role = "Customer"
)

// Known reports whether r is one of the four backend roles.
func (r Role) Known() bool {
	switch r {
	case RoleSeniorAdmin, RoleReceptionist, RoleDoctor, RoleCustomer:
		return true
	}
	return false
}

// Staff reports whether r is allowed into internal messaging.
func (r Role) Staff() bool {
	return r.Known() && r != RoleCustomer
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, x := range roles {
		if r == x {
			return true
		}
	}
	return false
}

var (
	ErrInvalidToken = errors.New("session: malformed access token")
	ErrMissingRole  = errors.New("session: access token carries no role")
)

// Session is a snapshot of the signed-in identity.
type Session struct {
	Token    string
	Role     Role
	Username string
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store persists the session keys.
type Store interface {
	// Get returns "" for a missing key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Manager owns the in-memory session and its persisted copy.
type Manager struct {
	mu     sync.RWMutex
	cur    Session
	store  Store
	clock  clock.Clock
	logger zerolog.Logger

	hookMu sync.Mutex
	hooks  []func()
}

func NewManager(store Store, c clock.Clock, logger zerolog.Logger) *Manager {
	if c == nil {
		c = clock.New()
	}
	return &Manager{store: store, clock: c, logger: logger}
}

// OnClear registers fn to run after every Clear.
func (m *Manager) OnClear(fn func()) {
	m.hookMu.Lock()
	m.hooks = append(m.hooks, fn)
	m.hookMu.Unlock()
}

// Init loads the persisted session. A partial or expired record is discarded.
func (m *Manager) Init(ctx context.Context) (Session, error) {
	var s Session
	var err error
	if s.Token, err = m.store.Get(ctx, KeyToken); err != nil {
		return Session{}, fmt.Errorf("load session token: %w", err)
	}
	role, err := m.store.Get(ctx, KeyRole)
	if err != nil {
		return Session{}, fmt.Errorf("load session role: %w", err)
	}
	s.Role = Role(role)
	if s.Username, err = m.store.Get(ctx, KeyUsername); err != nil {
		return Session{}, fmt.Errorf("load session username: %w", err)
	}

	if s.Token == "" {
		if s.Role != "" || s.Username != "" {
			_ = m.store.Delete(ctx, persistedKeys...)
		}
		return Session{}, nil
	}
	if s.Role == "" || m.expired(s.Token) {
		m.logger.Info().Msg("discarding stale session")
		if err := m.store.Delete(ctx, persistedKeys...); err != nil {
			return Session{}, fmt.Errorf("discard stale session: %w", err)
		}
		return Session{}, nil
	}

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) expired(token string) bool {
	if _, err := parseClaims(token); err != nil {
		return true
	}
	exp, ok := Expiry(token)
	return ok && !m.clock.Now().Before(exp)
}

// Establish decodes token and persists the resulting session.
func (m *Manager) Establish(ctx context.Context, token string) (Session, error) {
	s, err := FromToken(token)
	if err != nil {
		return Session{}, err
	}

	if err := m.store.Set(ctx, KeyToken, s.Token); err != nil {
		return Session{}, fmt.Errorf("persist session token: %w", err)
	}
	if err := m.store.Set(ctx, KeyRole, string(s.Role)); err != nil {
		return Session{}, fmt.Errorf("persist session role: %w", err)
	}
	if err := m.store.Set(ctx, KeyUsername, s.Username); err != nil {
		return Session{}, fmt.Errorf("persist session username: %w", err)
	}

	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()

	m.logger.Info().Str("role", string(s.Role)).Str("username", s.Username).Msg("session established")
	return s, nil
}

// Clear drops the session from memory and the store, then runs the OnClear
// hooks. The in-memory session is cleared even when the store fails.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.cur = Session{}
	m.mu.Unlock()

	err := m.store.Delete(ctx, persistedKeys...)

	m.hookMu.Lock()
	hooks := append([]func(){}, m.hooks...)
	m.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	if err != nil {
		return fmt.Errorf("clear session store: %w", err)
	}
	return nil
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Token returns the bearer token, or "" when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Token
}

// FromToken builds a Session from the token's role and display_name claims.
// display_name falls back to sub.
func FromToken(token string) (Session, error) {
	claims, err := parseClaims(token)
	if err != nil {
		return Session{}, err
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return Session{}, ErrMissingRole
	}
	name, _ := claims["display_name"].(string)
	if name == "" {
		name, _ = claims["sub"].(string)
	}
	return Session{Token: token, Role: Role(role), Username: name}, nil
}

func parseClaims(token string) (jwt.MapClaims, error) {
	parser := jwt.NewParser()
	unverified, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the token's exp claim, if any.
func Expiry(token string) (time.Time, bool) {
	claims, err := parseClaims(token)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
