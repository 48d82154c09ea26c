// Package poller keeps the live collection counters in sync with the server.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/AmentiAI/solmaker-sub001/launchpad/guard"
	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Source fetches one poll snapshot.
type Source interface {
	Poll(ctx context.Context, walletAddress string) (*models.PollResponse, error)
}

// Intervals drives the adaptive schedule.
type Intervals struct {
	InFlight   time.Duration // while a mint is in flight
	Active     time.Duration // after a recent mint or a supply change
	RecentMint time.Duration // how long a local mint counts as recent
	Idle       time.Duration // first idle interval
	IdleMax    time.Duration
	Backoff    float64
}

// DefaultIntervals is 2s in flight, 3s active, 5s idle growing 1.5x to 15s.
func DefaultIntervals() Intervals {
	return Intervals{
		InFlight:   2 * time.Second,
		Active:     3 * time.Second,
		RecentMint: 30 * time.Second,
		Idle:       5 * time.Second,
		IdleMax:    15 * time.Second,
		Backoff:    1.5,
	}
}

// Poller merges poll responses into a State and schedules itself.
type Poller struct {
	src      Source
	scope    *guard.Scope
	wallet   func() string
	clock    clock.Clock
	log      *zap.Logger
	iv       Intervals
	onChange func(State)

	mu           sync.Mutex
	issued       uint64
	applied      uint64
	state        State
	overlay      overlay
	lastMintAt   time.Time
	mintInFlight bool
	lastTotal    int
	sampled      bool
	totalChanged bool
	idle         time.Duration
	gen          uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// Option configures a Poller.
type Option func(*Poller)

// WithWallet supplies the connected wallet address at poll time.
func WithWallet(fn func() string) Option {
	return func(p *Poller) { p.wallet = fn }
}

// WithClock overrides the system clock.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithLogger sets the poller logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Poller) { p.log = log }
}

// WithIntervals overrides DefaultIntervals.
func WithIntervals(iv Intervals) Option {
	return func(p *Poller) { p.iv = iv }
}

// OnChange registers a listener called with the new view whenever it
// changes. Calls are serialised and a view superseded before delivery is
// skipped. Poll-driven calls run inside the scope guard and must not call
// back into the scope.
func OnChange(fn func(State)) Option {
	return func(p *Poller) { p.onChange = fn }
}

// New creates a Poller bound to scope.
func New(src Source, scope *guard.Scope, opts ...Option) *Poller {
	p := &Poller{
		src:    src,
		scope:  scope,
		wallet: func() string { return "" },
		clock:  clock.NewSystem(),
		log:    zap.NewNop(),
		iv:     DefaultIntervals(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns the authoritative state with the optimistic overlay
// applied.
func (p *Poller) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *Poller) viewLocked() State {
	return p.overlay.apply(p.state.clone())
}

// Poll issues one request and merges the response. It reports whether the
// visible state changed. Failures are logged and swallowed.
func (p *Poller) Poll(ctx context.Context) bool {
	if !p.scope.ShouldAllowUpdates() {
		return false
	}

	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	resp, err := p.src.Poll(ctx, p.wallet())
	if err != nil {
		p.log.Warn("poll failed", zap.Uint64("seq", seq), zap.Error(err))
		return false
	}
	if resp == nil || !resp.Success {
		p.log.Warn("poll returned unsuccessful response", zap.Uint64("seq", seq))
		return false
	}

	changed := false
	p.scope.Apply(func() {
		var (
			gen  uint64
			view State
		)
		changed, gen, view = p.merge(seq, resp)
		if changed {
			p.notify(gen, view)
		}
	})
	return changed
}

// notify delivers view unless a newer one already went out.
func (p *Poller) notify(gen uint64, view State) {
	if p.onChange == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if gen <= p.delivered {
		return
	}
	p.delivered = gen
	p.onChange(view)
}

func (p *Poller) merge(seq uint64, resp *models.PollResponse) (bool, uint64, State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.applied {
		p.log.Debug("discarding stale poll response", zap.Uint64("seq", seq), zap.Uint64("applied", p.applied))
		return false, 0, State{}
	}
	p.applied = seq

	changed := false
	if p.overlay.quantity != 0 && seq > p.overlay.afterSeq {
		p.overlay = overlay{}
		changed = true
	}

	if resp.Counts != nil {
		if p.sampled {
			p.totalChanged = resp.Counts.TotalMinted != p.lastTotal
		}
		p.lastTotal = resp.Counts.TotalMinted
		p.sampled = true

		if !p.state.HasCounts || p.state.Counts != *resp.Counts {
			p.state.Counts = *resp.Counts
			p.state.HasCounts = true
			changed = true
		}
	}
	if resp.ActivePhase != nil && !samePhase(p.state.ActivePhase, resp.ActivePhase) {
		ph := *resp.ActivePhase
		p.state.ActivePhase = &ph
		changed = true
	}
	if resp.UserWhitelistStatus != nil && !sameWhitelist(p.state.Whitelist, resp.UserWhitelistStatus) {
		ws := *resp.UserWhitelistStatus
		p.state.Whitelist = &ws
		changed = true
	}
	if resp.UserMintStatus != nil && !sameUserMint(p.state.UserMint, resp.UserMintStatus) {
		us := *resp.UserMintStatus
		p.state.UserMint = &us
		changed = true
	}

	if !changed {
		return false, 0, State{}
	}
	p.gen++
	view := p.viewLocked()
	if ce := p.log.Check(zapcore.DebugLevel, "live state merged"); ce != nil {
		ce.Write(zap.Uint64("seq", seq), zap.String("state", spew.Sdump(view)))
	}
	return true, p.gen, view
}

// ApplyOptimisticMint layers quantity minted ordinals over the current
// state until the next poll issued after this call lands. Callers gate it
// with the scope guard.
func (p *Poller) ApplyOptimisticMint(quantity int) State {
	p.mu.Lock()
	p.overlay.quantity += quantity
	p.overlay.afterSeq = p.issued
	p.lastMintAt = p.clock.Now()
	p.gen++
	gen := p.gen
	view := p.viewLocked()
	p.mu.Unlock()

	p.notify(gen, view)
	return view
}

// SetMintInFlight shortens the poll interval while a mint is running.
func (p *Poller) SetMintInFlight(inFlight bool) {
	p.mu.Lock()
	p.mintInFlight = inFlight
	p.mu.Unlock()
}

// ForgetWallet drops wallet-scoped sections after a disconnect or switch.
func (p *Poller) ForgetWallet() {
	p.mu.Lock()
	p.state.Whitelist = nil
	p.state.UserMint = nil
	p.mu.Unlock()
}

// NextInterval computes the delay before the next poll.
func (p *Poller) NextInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	recentMint := !p.lastMintAt.IsZero() && now.Sub(p.lastMintAt) < p.iv.RecentMint

	switch {
	case p.mintInFlight:
		p.idle = 0
		return p.iv.InFlight
	case recentMint || p.totalChanged:
		p.idle = 0
		return p.iv.Active
	case p.idle == 0:
		p.idle = p.iv.Idle
	default:
		p.idle = min(time.Duration(float64(p.idle)*p.iv.Backoff), p.iv.IdleMax)
	}
	return p.idle
}

// Run polls until ctx or the scope is done. The next poll is scheduled only
// after the previous one settled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("poller started", zap.String("path", p.scope.Path()))
	defer p.log.Info("poller stopped", zap.String("path", p.scope.Path()))

	for {
		if !p.scope.ShouldAllowUpdates() {
			return
		}
		p.Poll(ctx)

		timer := time.NewTimer(p.NextInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.scope.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
