// Package clock wraps wall time and tickers so that cooldowns and poll loops
// can be driven by hand in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by timers, cooldowns and pollers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker mirrors the subset of *time.Ticker the client relies on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type clock struct{}

// New returns a Clock backed by the runtime.
func New() Clock {
	return clock{}
}

func (clock) Now() time.Time {
	return time.Now()
}

func (clock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManagedClock is a hand-driven Clock. Time only moves when WarpForward is
// called, and tickers fire for every period boundary crossed by the warp.
type ManagedClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*managedTicker
}

// NewManaged returns a ManagedClock frozen at start.
func NewManaged(start time.Time) *ManagedClock {
	return &ManagedClock{now: start}
}

// Now returns the managed time.
func (c *ManagedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTicker registers a ticker that fires on WarpForward.
func (c *ManagedClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &managedTicker{
		ch:     make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// WarpForward moves time forward by offset and returns the new time. Like a
// runtime ticker, a ticker whose channel is still full drops the tick.
func (c *ManagedClock) WarpForward(offset time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(offset)
	for _, t := range c.tickers {
		t.fire(c.now)
	}
	return c.now
}

// ActiveTickers reports how many tickers have not been stopped.
func (c *ManagedClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

type managedTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *managedTicker) C() <-chan time.Time { return t.ch }

func (t *managedTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *managedTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *managedTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	for !t.next.After(now) {
		select {
		case t.ch <- t.next:
		default:
		}
		t.next = t.next.Add(t.period)
	}
}
