// Package mint drives the reserve, build, sign, broadcast and confirm
// protocol for one wallet.
package mint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/AmentiAI/solmaker-sub001/common/errors"
	"github.com/AmentiAI/solmaker-sub001/launchpad/guard"
	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/launchpad/poller"
	"github.com/AmentiAI/solmaker-sub001/launchpad/wallet"
	"go.uber.org/zap"
)

// API is the subset of the launchpad client used for minting.
type API interface {
	Reserve(ctx context.Context, req models.ReserveRequest) (*models.ReserveResponse, error)
	BuildMint(ctx context.Context, req models.BuildMintRequest) (*models.BuildMintResponse, error)
	ConfirmMint(ctx context.Context, req models.ConfirmMintRequest) (*models.ConfirmMintResponse, error)
	ConfirmStatus(ctx context.Context, signature string) (*models.ConfirmMintResponse, error)
}

// Live is the poller surface the orchestrator reads and nudges.
type Live interface {
	Snapshot() poller.State
	ApplyOptimisticMint(quantity int) poller.State
	SetMintInFlight(inFlight bool)
}

// Inventory is reloaded after a choices mint.
type Inventory interface {
	Reload(ctx context.Context) error
}

// Orchestrator owns the mint state machine.
type Orchestrator struct {
	api         API
	scope       *guard.Scope
	wallet      wallet.Wallet
	broadcaster wallet.Broadcaster
	live        Live
	inventory   Inventory
	log         *zap.Logger
	onChange    func(State)

	maxPerTx        int
	confirmAttempts int
	confirmInterval time.Duration

	mu      sync.Mutex
	state   State
	minting bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithInventory reloads inv after every successful choices mint.
func WithInventory(inv Inventory) Option {
	return func(o *Orchestrator) { o.inventory = inv }
}

// WithMaxPerTransaction overrides DefaultMaxPerTransaction.
func WithMaxPerTransaction(n int) Option {
	return func(o *Orchestrator) { o.maxPerTx = n }
}

// WithConfirmBudget sets how many times, and how far apart, confirmation is
// polled after the initial confirm call.
func WithConfirmBudget(attempts int, interval time.Duration) Option {
	return func(o *Orchestrator) {
		o.confirmAttempts = attempts
		o.confirmInterval = interval
	}
}

// OnStateChange registers a listener for every applied transition.
func OnStateChange(fn func(State)) Option {
	return func(o *Orchestrator) { o.onChange = fn }
}

// New creates an Orchestrator.
func New(api API, scope *guard.Scope, w wallet.Wallet, b wallet.Broadcaster, live Live, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:             api,
		scope:           scope,
		wallet:          w,
		broadcaster:     b,
		live:            live,
		log:             zap.NewNop(),
		maxPerTx:        DefaultMaxPerTransaction,
		confirmAttempts: 10,
		confirmInterval: 3 * time.Second,
		state:           InitialState(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.state
	s.ItemIDs = append([]string(nil), o.state.ItemIDs...)
	return s
}

// Minting reports whether a mint attempt is running.
func (o *Orchestrator) Minting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.minting
}

// SetQuantity updates the quantity input between attempts.
func (o *Orchestrator) SetQuantity(q int) {
	o.dispatch(Event{Kind: EventSetQuantity, Quantity: q})
}

// Reset clears a finished attempt.
func (o *Orchestrator) Reset() {
	o.dispatch(Event{Kind: EventReset})
}

// Check evaluates the hidden-mint preconditions for quantity.
func (o *Orchestrator) Check(quantity int) (Plan, error) {
	return CheckMint(o.live.Snapshot(), o.wallet.Address(), o.wallet.Connected(), quantity, o.maxPerTx)
}

// MintRandom runs a hidden mint: the server picks quantity ordinals.
func (o *Orchestrator) MintRandom(ctx context.Context, quantity int) (State, error) {
	if !o.begin() {
		return o.State(), ErrBusy
	}
	defer o.end()

	plan, err := o.Check(quantity)
	if err != nil {
		return o.fail(err, UserMessage(err))
	}
	if plan.Quantity != quantity {
		o.log.Info("mint quantity clamped", zap.Int("requested", quantity), zap.Int("allowed", plan.Quantity))
	}

	o.live.SetMintInFlight(true)
	defer o.live.SetMintInFlight(false)

	addr := o.wallet.Address()
	if !o.dispatch(Event{Kind: EventReserve, Quantity: plan.Quantity}) {
		return o.State(), ErrStale
	}

	resp, err := o.api.Reserve(ctx, models.ReserveRequest{
		WalletAddress: addr,
		PhaseID:       plan.PhaseID,
		Quantity:      plan.Quantity,
	})
	if err != nil {
		return o.fail(err, apperrors.Message(err, "Failed to reserve ordinals"))
	}
	granted := resp.Granted()
	if len(granted) == 0 {
		return o.fail(errors.New("reserve granted nothing"), "No ordinals available to reserve")
	}
	ids := make([]string, 0, len(granted))
	for _, it := range granted {
		ids = append(ids, it.ID)
	}
	if !o.dispatch(Event{Kind: EventReserved, ItemIDs: ids}) {
		return o.State(), ErrStale
	}

	return o.complete(ctx, plan.PhaseID, ids)
}

// MintChoices mints ordinals the wallet already locked.
func (o *Orchestrator) MintChoices(ctx context.Context, itemIDs []string) (State, error) {
	if !o.begin() {
		return o.State(), ErrBusy
	}
	defer o.end()

	plan, err := CheckChoices(o.live.Snapshot(), o.wallet.Address(), o.wallet.Connected(), itemIDs, o.maxPerTx)
	if err != nil {
		return o.fail(err, UserMessage(err))
	}

	o.live.SetMintInFlight(true)
	defer o.live.SetMintInFlight(false)

	if !o.dispatch(Event{Kind: EventBuild, ItemIDs: itemIDs}) {
		return o.State(), ErrStale
	}
	st, err := o.complete(ctx, plan.PhaseID, itemIDs)
	if err == nil && o.inventory != nil {
		_ = o.inventory.Reload(ctx)
	}
	return st, err
}

// complete runs the shared tail from building to success.
func (o *Orchestrator) complete(ctx context.Context, phaseID string, ids []string) (State, error) {
	addr := o.wallet.Address()

	build, err := o.api.BuildMint(ctx, models.BuildMintRequest{
		WalletAddress: addr,
		PhaseID:       phaseID,
		Quantity:      len(ids),
		OrdinalIDs:    ids,
	})
	if err != nil {
		return o.fail(err, apperrors.Message(err, "Failed to build mint transaction"))
	}
	if build.Transaction == "" {
		return o.fail(ErrNoTransaction, UserMessage(ErrNoTransaction))
	}
	unsigned, err := base64.StdEncoding.DecodeString(build.Transaction)
	if err != nil {
		return o.fail(err, "Invalid transaction returned from server")
	}

	if !o.dispatch(Event{Kind: EventBuilt, NFTMint: build.NFTMint}) {
		return o.State(), ErrStale
	}

	// nothing may touch state until the wallet answers
	signed, err := o.wallet.SignTransaction(ctx, unsigned)
	if err != nil {
		if wallet.IsUserRejection(err) {
			return o.fail(fmt.Errorf("%w: %w", ErrCancelled, err), UserMessage(ErrCancelled))
		}
		return o.fail(err, "Failed to sign transaction: "+err.Error())
	}
	if signed.Empty() {
		return o.fail(wallet.ErrEmptySignResult, "Wallet did not return a signed transaction")
	}
	if !o.dispatch(Event{Kind: EventSigned}) {
		return o.State(), ErrStale
	}

	sig, err := o.broadcaster.Broadcast(ctx, signed)
	if err != nil {
		return o.fail(err, "Failed to send transaction: "+err.Error())
	}
	if !o.dispatch(Event{Kind: EventBroadcast, Signature: sig}) {
		return o.State(), ErrStale
	}
	o.log.Info("mint transaction sent", zap.String("signature", sig), zap.Int("quantity", len(ids)))

	confirmed, err := o.confirm(ctx, sig, build.NFTMint, addr)
	if err != nil {
		return o.fail(err, apperrors.Message(err, "Transaction failed on chain"))
	}

	kind := EventUnconfirmed
	if confirmed {
		kind = EventConfirmed
	}
	if !o.dispatch(Event{Kind: kind}) {
		return o.State(), ErrStale
	}
	o.scope.Apply(func() {
		o.live.ApplyOptimisticMint(len(ids))
	})
	return o.State(), nil
}

// confirm posts the signature, then polls the status endpoint within the
// configured budget. Only a definitive on-chain failure is an error.
func (o *Orchestrator) confirm(ctx context.Context, sig, nftMint, addr string) (bool, error) {
	resp, err := o.api.ConfirmMint(ctx, models.ConfirmMintRequest{
		Signature:      sig,
		NFTMintAddress: nftMint,
		WalletAddress:  addr,
	})
	if err == nil && resp.Confirmed {
		return true, nil
	}
	if failedOnChain(err) {
		return false, err
	}
	if err != nil {
		o.log.Warn("mint confirm call failed", zap.String("signature", sig), zap.Error(err))
	}

	for attempt := 1; attempt <= o.confirmAttempts; attempt++ {
		timer := time.NewTimer(o.confirmInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, nil
		case <-o.scope.Done():
			timer.Stop()
			return false, nil
		case <-timer.C:
		}

		resp, err := o.api.ConfirmStatus(ctx, sig)
		if err == nil && resp.Confirmed {
			return true, nil
		}
		if failedOnChain(err) {
			return false, err
		}
		o.log.Debug("mint not yet confirmed", zap.String("signature", sig), zap.Int("attempt", attempt), zap.Error(err))
	}

	o.log.Info("confirmation budget exhausted", zap.String("signature", sig), zap.Int("attempts", o.confirmAttempts))
	return false, nil
}

// failedOnChain reports the server telling us the transaction landed and
// failed, as opposed to not having landed yet.
func failedOnChain(err error) bool {
	return err != nil && apperrors.StatusCode(err) == http.StatusUnprocessableEntity
}

func (o *Orchestrator) fail(err error, msg string) (State, error) {
	o.log.Info("mint failed", zap.String("message", msg), zap.Error(err))
	o.dispatch(Event{Kind: EventFail, Message: msg})
	return o.State(), err
}

// dispatch applies ev if the view is still live and reports whether it did.
func (o *Orchestrator) dispatch(ev Event) bool {
	return o.scope.Apply(func() {
		o.mu.Lock()
		next := Transition(o.state, ev)
		o.state = next
		o.mu.Unlock()

		if o.onChange != nil {
			o.onChange(next)
		}
	})
}

// begin takes the single-writer minting flag.
func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.minting {
		return false
	}
	o.minting = true
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.minting = false
	o.mu.Unlock()
}
