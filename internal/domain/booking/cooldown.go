package booking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/polyclinic/clinicdesk/internal/platform/clock"
)

// ErrCooldownActive is returned by a resend attempted before the cooldown
// elapsed.
var ErrCooldownActive = errors.New("booking: resend cooldown active")

// DefaultCooldown is the wait between code sends.
const DefaultCooldown = 15 * time.Second

// Cooldown gates the resend button.
type Cooldown struct {
	clock  clock.Clock
	period time.Duration

	mu    sync.Mutex
	until time.Time
}

func NewCooldown(c clock.Clock, period time.Duration) *Cooldown {
	if c == nil {
		c = clock.New()
	}
	return &Cooldown{clock: c, period: period}
}

// Start begins a new wait.
func (c *Cooldown) Start() {
	c.mu.Lock()
	c.until = c.clock.Now().Add(c.period)
	c.mu.Unlock()
}

// Reset clears any wait.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	c.until = time.Time{}
	c.mu.Unlock()
}

// Remaining is the time left, 0 once ready.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	left := c.until.Sub(c.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

func (c *Cooldown) Ready() bool {
	return c.Remaining() == 0
}

// Label renders the resend button.
func (c *Cooldown) Label() string {
	left := c.Remaining()
	if left == 0 {
		return "Resend OTP"
	}
	secs := int((left + time.Second - 1) / time.Second)
	return fmt.Sprintf("Resend OTP (%ds)", secs)
}
