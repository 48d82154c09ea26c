package chain

import (
	"context"
	"fmt"

	"github.com/AmentiAI/solmaker-sub001/launchpad/wallet"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Broadcaster submits signed transactions through our own RPC connection
// rather than the wallet's relay.
type Broadcaster struct {
	rpc RPC
	log *zap.Logger
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(client RPC, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{rpc: client, log: log}
}

// Broadcast sends signed and returns its signature. A provider that already
// broadcast hands back only a signature, which is returned as is.
func (b *Broadcaster) Broadcast(ctx context.Context, signed wallet.Signed) (string, error) {
	if len(signed.Transaction) == 0 {
		if signed.Signature != "" {
			return signed.Signature, nil
		}
		return "", ErrEmptyTransaction
	}

	sig, err := b.rpc.SendRawTransactionWithOpts(ctx, signed.Transaction, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}

	b.log.Info("transaction broadcast", zap.String("signature", sig.String()))
	return sig.String(), nil
}

// OfflineBroadcaster pairs with OfflineChecker: nothing is sent, the wallet's
// own signature is reported as the broadcast signature.
type OfflineBroadcaster struct{}

func (OfflineBroadcaster) Broadcast(_ context.Context, signed wallet.Signed) (string, error) {
	if signed.Signature == "" {
		return "", ErrEmptyTransaction
	}
	return signed.Signature, nil
}
