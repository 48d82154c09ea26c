package reservation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/AmentiAI/solmaker-sub001/common/errors"
)

var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrNoActivePhase  = errors.New("no active phase")
	ErrItemNotFound   = errors.New("ordinal not found")
	ErrItemMinted     = errors.New("ordinal already minted")
	ErrLockedByOther  = errors.New("ordinal locked by another wallet")
	ErrLockCapReached = errors.New("lock cap reached")
	ErrBusy           = errors.New("lock request already in flight")
	ErrNotOwner       = errors.New("ordinal not locked by this wallet")
	ErrRejected       = errors.New("reservation rejected by server")
)

// capError carries the cap so the message can name it.
type capError struct {
	cap int
}

func (e capError) Error() string { return fmt.Sprintf("lock cap of %d reached", e.cap) }

func (e capError) Is(target error) bool { return target == ErrLockCapReached }

// UserMessage turns a reservation error into the text shown next to the
// inventory grid.
func UserMessage(err error) string {
	var ce capError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return fmt.Sprintf("You can lock at most %d ordinal(s) in this phase", ce.cap)
	case errors.Is(err, ErrNotConnected):
		return "Please connect your wallet first"
	case errors.Is(err, ErrNoActivePhase):
		return "No active mint phase"
	case errors.Is(err, ErrItemNotFound):
		return "Ordinal not found. Refresh and try again"
	case errors.Is(err, ErrItemMinted):
		return "This ordinal has already been minted"
	case errors.Is(err, ErrLockedByOther):
		return "This ordinal is locked by another wallet. Please choose another"
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish"
	case errors.Is(err, ErrNotOwner):
		return "You can only release ordinals locked by your wallet"
	case errors.Is(err, ErrRejected):
		return apperrors.Message(err, "Reservation failed")
	}
	return "Reservation failed. Please try again"
}

// serverError classifies a failed reserve or release call. Conflicts are
// never retried; the user has to choose again.
func serverError(err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return err
	}
	switch {
	case appErr.Code == http.StatusConflict && strings.Contains(strings.ToLower(appErr.Message), "minted"):
		return fmt.Errorf("%w: %w", ErrItemMinted, err)
	case appErr.Code == http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrLockedByOther, err)
	case appErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrNotOwner, err)
	case appErr.Code >= 400 && appErr.Code < 500:
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return err
}
