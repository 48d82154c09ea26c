package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SignatureChecker reads confirmation status for a signature.
type SignatureChecker struct {
	rpc RPC
}

func NewSignatureChecker(client RPC) *SignatureChecker {
	return &SignatureChecker{rpc: client}
}

// Confirmed reports whether signature reached confirmed or finalized. A
// transaction that landed with an error returns ErrTransactionFailed.
func (c *SignatureChecker) Confirmed(ctx context.Context, signature string) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}

	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, fmt.Errorf("get signature status: %w", err)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}

	status := out.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return true, nil
	}
	return false, nil
}

// OfflineChecker treats every well-formed signature as confirmed. The local
// launchpad server uses it when no RPC endpoint is configured.
type OfflineChecker struct{}

func (OfflineChecker) Confirmed(_ context.Context, signature string) (bool, error) {
	if _, err := solana.SignatureFromBase58(signature); err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}
	return true, nil
}
