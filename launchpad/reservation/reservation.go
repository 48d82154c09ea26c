// Package reservation lets one wallet hold time-boxed locks on specific
// ordinals. The server is the only arbiter; after every successful change
// the client reloads inventory instead of editing lock fields locally.
package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/AmentiAI/solmaker-sub001/launchpad/guard"
	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/launchpad/poller"
	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"go.uber.org/zap"
)

// API is the subset of the launchpad client used for locks.
type API interface {
	ListOrdinals(ctx context.Context, page, perPage int) (*models.OrdinalsPage, error)
	Reserve(ctx context.Context, req models.ReserveRequest) (*models.ReserveResponse, error)
	Release(ctx context.Context, walletAddress, itemID string) error
}

// Identity is the connected wallet as far as locking is concerned.
type Identity interface {
	Address() string
	Connected() bool
}

// LiveState exposes the polled phase and allowance.
type LiveState interface {
	Snapshot() poller.State
}

// Client is one wallet's view of the inventory lock table.
type Client struct {
	api      API
	scope    *guard.Scope
	identity Identity
	live     LiveState
	clock    clock.Clock
	log      *zap.Logger

	perPage     int
	expiryEvery time.Duration

	mu         sync.Mutex
	items      []models.InventoryItem
	pagination models.Pagination
	page       int
	message    string
	locking    bool
}

// Option configures a Client.
type Option func(*Client)

func WithClock(c clock.Clock) Option {
	return func(rc *Client) { rc.clock = c }
}

func WithLogger(log *zap.Logger) Option {
	return func(rc *Client) { rc.log = log }
}

// WithPerPage sets the inventory page size.
func WithPerPage(n int) Option {
	return func(rc *Client) { rc.perPage = n }
}

// WithExpiryScan sets how often WatchExpiry scans own locks.
func WithExpiryScan(d time.Duration) Option {
	return func(rc *Client) { rc.expiryEvery = d }
}

// New creates a reservation client.
func New(api API, scope *guard.Scope, identity Identity, live LiveState, opts ...Option) *Client {
	c := &Client{
		api:         api,
		scope:       scope,
		identity:    identity,
		live:        live,
		clock:       clock.NewSystem(),
		log:         zap.NewNop(),
		perPage:     100,
		expiryEvery: 2 * time.Second,
		page:        1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Items returns the last server snapshot of the current page.
func (c *Client) Items() []models.InventoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.InventoryItem(nil), c.items...)
}

// Pagination returns the current page metadata.
func (c *Client) Pagination() models.Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination
}

// Message returns the last user-facing reservation message.
func (c *Client) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Busy reports whether a lock or unlock is outstanding.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locking
}

// LockedByWallet returns the unexpired items locked by the connected wallet.
func (c *Client) LockedByWallet() []models.InventoryItem {
	addr := c.identity.Address()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.InventoryItem
	for _, it := range c.items {
		if it.LockedByWallet(addr) && it.LockActive(now) && !it.IsMinted {
			out = append(out, it)
		}
	}
	return out
}

// LockedIDs returns the ids of LockedByWallet.
func (c *Client) LockedIDs() []string {
	locked := c.LockedByWallet()
	ids := make([]string, 0, len(locked))
	for _, it := range locked {
		ids = append(ids, it.ID)
	}
	return ids
}

// SetPage moves to page and reloads it.
func (c *Client) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return c.Reload(ctx)
}

// Reload replaces the local snapshot with the server's current page.
func (c *Client) Reload(ctx context.Context) error {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()

	resp, err := c.api.ListOrdinals(ctx, page, c.perPage)
	if err != nil {
		c.log.Warn("inventory reload failed", zap.Int("page", page), zap.Error(err))
		return err
	}

	c.scope.Apply(func() {
		c.mu.Lock()
		c.items = resp.Ordinals
		c.pagination = resp.Pagination
		c.mu.Unlock()
	})
	return nil
}

// Lock claims itemID for the connected wallet.
func (c *Client) Lock(ctx context.Context, itemID string) error {
	addr := c.identity.Address()
	state := c.live.Snapshot()

	c.mu.Lock()
	if c.locking {
		c.mu.Unlock()
		return ErrBusy
	}
	phaseID, err := c.checkLockLocked(itemID, addr, state)
	if err != nil {
		c.message = UserMessage(err)
		c.mu.Unlock()
		return err
	}
	c.locking = true
	c.message = ""
	c.mu.Unlock()
	defer c.done()

	_, err = c.api.Reserve(ctx, models.ReserveRequest{
		WalletAddress: addr,
		PhaseID:       phaseID,
		Quantity:      1,
		ItemID:        itemID,
	})
	if err != nil {
		err = serverError(err)
		c.log.Info("lock refused", zap.String("item_id", itemID), zap.String("wallet", addr), zap.Error(err))
		c.setMessage(UserMessage(err))
		return err
	}

	c.log.Info("ordinal locked", zap.String("item_id", itemID), zap.String("wallet", addr))
	return c.Reload(ctx)
}

func (c *Client) checkLockLocked(itemID, addr string, state poller.State) (string, error) {
	if !c.identity.Connected() || addr == "" {
		return "", ErrNotConnected
	}
	if state.ActivePhase == nil {
		return "", ErrNoActivePhase
	}
	item, ok := c.findLocked(itemID)
	if !ok {
		return "", ErrItemNotFound
	}
	if item.IsMinted {
		return "", ErrItemMinted
	}
	now := c.clock.Now()
	if item.LockedByOther(addr, now) {
		return "", ErrLockedByOther
	}

	if limit, capped := lockCap(state); capped {
		held := 0
		for _, it := range c.items {
			if it.LockedByWallet(addr) && it.LockActive(now) && !it.IsMinted {
				held++
			}
		}
		if held >= limit {
			return "", capError{cap: limit}
		}
	}
	return state.ActivePhase.ID, nil
}

// lockCap is the phase maxPerWallet, reduced to what the wallet may still
// mint when the poll reported it.
func lockCap(state poller.State) (int, bool) {
	phase := state.ActivePhase
	limit, capped := 0, false
	if phase.MaxPerWallet != nil {
		limit, capped = *phase.MaxPerWallet, true
	}
	if phase.WhitelistOnly && state.Whitelist != nil {
		if !capped || state.Whitelist.RemainingAllocation < limit {
			limit, capped = state.Whitelist.RemainingAllocation, true
		}
	} else if state.UserMint != nil && state.UserMint.Remaining != nil {
		if !capped || *state.UserMint.Remaining < limit {
			limit, capped = *state.UserMint.Remaining, true
		}
	}
	return limit, capped
}

// Unlock releases the connected wallet's lock on itemID.
func (c *Client) Unlock(ctx context.Context, itemID string) error {
	addr := c.identity.Address()

	c.mu.Lock()
	if c.locking {
		c.mu.Unlock()
		return ErrBusy
	}
	err := c.checkUnlockLocked(itemID, addr)
	if err != nil {
		c.message = UserMessage(err)
		c.mu.Unlock()
		return err
	}
	c.locking = true
	c.message = ""
	c.mu.Unlock()
	defer c.done()

	if err := c.api.Release(ctx, addr, itemID); err != nil {
		err = serverError(err)
		c.log.Info("unlock refused", zap.String("item_id", itemID), zap.String("wallet", addr), zap.Error(err))
		c.setMessage(UserMessage(err))
		return err
	}

	c.log.Info("ordinal unlocked", zap.String("item_id", itemID), zap.String("wallet", addr))
	return c.Reload(ctx)
}

func (c *Client) checkUnlockLocked(itemID, addr string) error {
	if !c.identity.Connected() || addr == "" {
		return ErrNotConnected
	}
	item, ok := c.findLocked(itemID)
	if !ok {
		return ErrItemNotFound
	}
	if !item.LockedByWallet(addr) {
		return ErrNotOwner
	}
	return nil
}

// Toggle locks a free item or unlocks one of ours. Items locked by someone
// else are ignored, and an own lock that has lapsed is claimed again.
func (c *Client) Toggle(ctx context.Context, itemID string) error {
	addr := c.identity.Address()
	now := c.clock.Now()
	c.mu.Lock()
	item, ok := c.findLocked(itemID)
	c.mu.Unlock()

	switch {
	case ok && item.LockedByWallet(addr) && item.LockActive(now):
		return c.Unlock(ctx, itemID)
	case ok && item.LockedByOther(addr, now):
		return nil
	}
	return c.Lock(ctx, itemID)
}

// ExpiredOwnLocks counts items still shown as ours whose lockedUntil passed.
func (c *Client) ExpiredOwnLocks() int {
	addr := c.identity.Address()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		if it.LockedByWallet(addr) && it.LockExpired(now) {
			n++
		}
	}
	return n
}

// WatchExpiry reloads inventory whenever one of our locks has expired
// locally, until ctx or the scope is done.
func (c *Client) WatchExpiry(ctx context.Context) {
	ticker := time.NewTicker(c.expiryEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.scope.Done():
			return
		case <-ticker.C:
			if !c.scope.ShouldAllowUpdates() {
				return
			}
			if n := c.ExpiredOwnLocks(); n > 0 {
				c.log.Info("own locks expired, reloading", zap.Int("expired", n))
				_ = c.Reload(ctx)
			}
		}
	}
}

func (c *Client) findLocked(itemID string) (models.InventoryItem, bool) {
	for _, it := range c.items {
		if it.ID == itemID {
			return it, true
		}
	}
	return models.InventoryItem{}, false
}

func (c *Client) setMessage(msg string) {
	c.scope.Apply(func() {
		c.mu.Lock()
		c.message = msg
		c.mu.Unlock()
	})
}

// done clears the busy flag. Only the operation that set it calls this.
func (c *Client) done() {
	c.mu.Lock()
	c.locking = false
	c.mu.Unlock()
}
