// Package chain holds the Solana RPC plumbing: keypair signing, broadcast,
// payment transaction building and signature status checks.
package chain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrTransactionFailed = errors.New("transaction failed on chain")
	ErrEmptyTransaction  = errors.New("no transaction to broadcast")
	ErrNotSigner         = errors.New("transaction does not require this wallet's signature")
)

// RPC is the subset of *rpc.Client used here.
type RPC interface {
	BlockhashSource
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// BlockhashSource supplies the recent blockhash a transaction binds to.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// NewRPC dials endpoint, e.g. rpc.DevNet_RPC.
func NewRPC(endpoint string) *rpc.Client {
	return rpc.New(endpoint)
}

// StaticBlockhash always returns the same blockhash. Used by the local
// launchpad server when no RPC endpoint is configured.
type StaticBlockhash solana.Hash

func (s StaticBlockhash) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash(s)},
	}, nil
}
