package mint

import (
	"errors"
	"fmt"

	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/launchpad/poller"
)

// DefaultMaxPerTransaction caps a single hidden mint.
const DefaultMaxPerTransaction = 10

var (
	ErrNotConnected       = errors.New("wallet not connected")
	ErrSoldOut            = errors.New("collection sold out")
	ErrNoActivePhase      = errors.New("no active phase")
	ErrNotWhitelisted     = errors.New("wallet not whitelisted")
	ErrWhitelistExhausted = errors.New("whitelist allocation used")
	ErrWalletLimit        = errors.New("per-wallet limit reached")
	ErrPhaseExhausted     = errors.New("phase allocation minted out")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrTooMany            = errors.New("selection exceeds allowance")
	ErrNoSelection        = errors.New("no ordinals selected")
	ErrBusy               = errors.New("mint already in progress")
	ErrNoTransaction      = errors.New("no transaction returned")
	ErrCancelled          = errors.New("cancelled by user")
	ErrStale              = errors.New("view no longer active")
)

type whitelistError struct {
	address string
}

func (e whitelistError) Error() string { return "wallet " + e.address + " not whitelisted" }

func (e whitelistError) Is(target error) bool { return target == ErrNotWhitelisted }

type tooManyError struct {
	allowed int
}

func (e tooManyError) Error() string { return fmt.Sprintf("selection exceeds allowance of %d", e.allowed) }

func (e tooManyError) Is(target error) bool { return target == ErrTooMany }

// UserMessage maps a precondition error to the text shown by the mint
// button. Errors it does not know fall back to err.Error().
func UserMessage(err error) string {
	var (
		we whitelistError
		te tooManyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &we):
		return fmt.Sprintf("Wallet %s is not whitelisted for this phase", models.TruncateAddress(we.address))
	case errors.As(err, &te):
		return fmt.Sprintf("You can mint at most %d ordinal(s) right now", te.allowed)
	case errors.Is(err, ErrNotConnected):
		return "Please connect your wallet first"
	case errors.Is(err, ErrSoldOut):
		return "This collection is sold out"
	case errors.Is(err, ErrNoActivePhase):
		return "No active mint phase"
	case errors.Is(err, ErrWhitelistExhausted):
		return "You have used your whitelist allocation for this phase"
	case errors.Is(err, ErrWalletLimit):
		return "You have reached the mint limit for this phase"
	case errors.Is(err, ErrPhaseExhausted):
		return "This phase is fully minted"
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be at least 1"
	case errors.Is(err, ErrNoSelection):
		return "Select at least one ordinal to mint"
	case errors.Is(err, ErrBusy):
		return "A mint is already in progress"
	case errors.Is(err, ErrNoTransaction):
		return "No transaction returned from server"
	case errors.Is(err, ErrCancelled):
		return "Transaction cancelled by user"
	}
	return err.Error()
}

// Plan is a mint request that passed every local precondition.
type Plan struct {
	PhaseID  string
	Quantity int
	Allowed  int
}

// CheckMint evaluates the hidden-mint preconditions against the latest
// polled state without touching the network. A quantity above the allowance
// is clamped down to it.
func CheckMint(state poller.State, address string, connected bool, quantity, maxPerTx int) (Plan, error) {
	allowed, phaseID, err := allowance(state, address, connected, maxPerTx)
	if err != nil {
		return Plan{}, err
	}
	if quantity <= 0 {
		return Plan{}, ErrInvalidQuantity
	}
	return Plan{PhaseID: phaseID, Quantity: min(quantity, allowed), Allowed: allowed}, nil
}

// CheckChoices evaluates the same preconditions for a set of pre-locked
// ordinals. Chosen items cannot be clamped, so too many is rejected.
func CheckChoices(state poller.State, address string, connected bool, itemIDs []string, maxPerTx int) (Plan, error) {
	allowed, phaseID, err := allowance(state, address, connected, maxPerTx)
	if err != nil {
		return Plan{}, err
	}
	if len(itemIDs) == 0 {
		return Plan{}, ErrNoSelection
	}
	if len(itemIDs) > allowed {
		return Plan{}, tooManyError{allowed: allowed}
	}
	return Plan{PhaseID: phaseID, Quantity: len(itemIDs), Allowed: allowed}, nil
}

// allowance is min(maxPerTx, phase remaining, wallet remaining, supply left).
func allowance(state poller.State, address string, connected bool, maxPerTx int) (int, string, error) {
	if !connected || address == "" {
		return 0, "", ErrNotConnected
	}
	if state.SoldOut() {
		return 0, "", ErrSoldOut
	}
	phase := state.ActivePhase
	if phase == nil {
		return 0, "", ErrNoActivePhase
	}

	if maxPerTx <= 0 {
		maxPerTx = DefaultMaxPerTransaction
	}
	allowed := maxPerTx

	if remaining, capped := phase.Remaining(); capped {
		if remaining <= 0 {
			return 0, "", ErrPhaseExhausted
		}
		allowed = min(allowed, remaining)
	}

	if phase.WhitelistOnly {
		ws := state.Whitelist
		if ws == nil || !ws.IsWhitelisted {
			return 0, "", whitelistError{address: address}
		}
		if ws.RemainingAllocation <= 0 {
			return 0, "", ErrWhitelistExhausted
		}
		allowed = min(allowed, ws.RemainingAllocation)
	} else if us := state.UserMint; us != nil && us.Remaining != nil {
		if *us.Remaining <= 0 {
			return 0, "", ErrWalletLimit
		}
		allowed = min(allowed, *us.Remaining)
	} else if phase.MaxPerWallet != nil {
		// no per-wallet count polled yet; the phase cap still bounds the request
		if *phase.MaxPerWallet <= 0 {
			return 0, "", ErrWalletLimit
		}
		allowed = min(allowed, *phase.MaxPerWallet)
	}

	if state.HasCounts && state.Counts.TotalSupply > 0 {
		allowed = min(allowed, models.Remaining(state.Counts.TotalSupply, state.Counts.TotalMinted))
	}
	return allowed, phase.ID, nil
}
