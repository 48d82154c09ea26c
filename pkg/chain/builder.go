package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransferBuilder builds the unsigned mint payment: a system transfer of
// the mint price from the buyer to the treasury, paid by the buyer.
type TransferBuilder struct {
	blockhash BlockhashSource
	treasury  solana.PublicKey
}

// NewTransferBuilder creates a builder paying into treasury.
func NewTransferBuilder(blockhash BlockhashSource, treasury string) (*TransferBuilder, error) {
	pub, err := solana.PublicKeyFromBase58(treasury)
	if err != nil {
		return nil, fmt.Errorf("parse treasury: %w", err)
	}
	return &TransferBuilder{blockhash: blockhash, treasury: pub}, nil
}

// Build returns the serialized transaction with empty signature slots.
func (b *TransferBuilder) Build(ctx context.Context, payer string, lamports uint64) ([]byte, error) {
	from, err := solana.PublicKeyFromBase58(payer)
	if err != nil {
		return nil, fmt.Errorf("parse payer: %w", err)
	}

	recent, err := b.blockhash.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, b.treasury).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	return tx.MarshalBinary()
}
