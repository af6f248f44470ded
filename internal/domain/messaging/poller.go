package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/clock"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
	"github.com/polyclinic/clinicdesk/internal/platform/websocket"
	"github.com/polyclinic/clinicdesk/internal/ui"
)

// Default poll intervals.
const (
	DefaultUnreadInterval = 10 * time.Second
	DefaultChatInterval   = 3 * time.Second
)

// Poller runs fn on every tick of a clock ticker until stopped.
type Poller struct {
	clock    clock.Clock
	interval time.Duration
	fn       func(ctx context.Context)
	logger   zerolog.Logger

	mu     sync.Mutex
	ticker clock.Ticker
	cancel context.CancelFunc
}

func NewPoller(name string, c clock.Clock, interval time.Duration, fn func(ctx context.Context), logger zerolog.Logger) *Poller {
	return &Poller{
		clock:    c,
		interval: interval,
		fn:       fn,
		logger:   logger.With().Str("poller", name).Logger(),
	}
}

// Start begins ticking. The first run happens one interval from now. ctx
// only supplies values: the loop lives until Stop. Starting a running
// poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ticker := p.clock.NewTicker(p.interval)
	p.ticker = ticker
	p.cancel = cancel
	p.logger.Debug().Dur("interval", p.interval).Msg("poller started")

	go p.loop(runCtx, ticker)
}

func (p *Poller) loop(ctx context.Context, ticker clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			p.fn(ctx)
		}
	}
}

// Stop halts the ticker and cancels a run in progress. It does not wait for
// that run to return, so fn may itself call Stop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.ticker.Stop()
	p.cancel()
	p.ticker = nil
	p.cancel = nil
	p.logger.Debug().Msg("poller stopped")
}

// Running reports whether the poller has been started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// UnreadCounter reads the unread total.
type UnreadCounter interface {
	Unread(ctx context.Context) (int, error)
}

// Badge keeps the unread counter on the screen current for staff roles.
type Badge struct {
	src    UnreadCounter
	scr    *ui.Screen
	pub    websocket.Publisher
	clock  clock.Clock
	poller *Poller
	logger zerolog.Logger
}

// NewBadge polls src every interval. pub may be nil.
func NewBadge(src UnreadCounter, scr *ui.Screen, pub websocket.Publisher, c clock.Clock, interval time.Duration, logger zerolog.Logger) *Badge {
	if interval <= 0 {
		interval = DefaultUnreadInterval
	}
	b := &Badge{
		src:    src,
		scr:    scr,
		pub:    pub,
		clock:  c,
		logger: logger.With().Str("component", "unread-badge").Logger(),
	}
	b.poller = NewPoller("unread", c, interval, func(ctx context.Context) { b.Check(ctx) }, logger)
	return b
}

// Start begins polling for role. Customers have no inbox, so nothing runs
// for them.
func (b *Badge) Start(ctx context.Context, role session.Role) {
	if !role.Staff() {
		return
	}
	b.poller.Start(ctx)
}

func (b *Badge) Stop() { b.poller.Stop() }

func (b *Badge) Running() bool { return b.poller.Running() }

// Check fetches the count once. Failures leave the badge as it is.
func (b *Badge) Check(ctx context.Context) {
	n, err := b.src.Unread(ctx)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Debug().Err(err).Msg("unread poll failed")
		}
		return
	}
	b.scr.SetBadge(n)
	publish(ctx, b.pub, websocket.TopicBadge, "unread", b.clock.Now(), map[string]int{"count": n}, b.logger)
}

func publish(ctx context.Context, pub websocket.Publisher, topic, typ string, at time.Time, data interface{}, logger zerolog.Logger) {
	if pub == nil {
		return
	}
	ev, err := websocket.NewEvent(topic, typ, at, data)
	if err == nil {
		err = pub.Publish(ctx, ev)
	}
	if err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}
