package chain

import (
	"context"
	"fmt"

	"github.com/AmentiAI/solmaker-sub001/launchpad/wallet"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// KeypairWallet signs with a local ed25519 key. It is the wallet of the
// headless mint agent.
type KeypairWallet struct {
	key solana.PrivateKey
}

// NewKeypairWallet parses a base58 secret key.
func NewKeypairWallet(secret string) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	return &KeypairWallet{key: key}, nil
}

// NewKeypairWalletFromKey wraps an existing key.
func NewKeypairWalletFromKey(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

func (w *KeypairWallet) Address() string { return w.key.PublicKey().String() }

func (w *KeypairWallet) Connected() bool { return len(w.key) > 0 }

// SignTransaction adds this key's signature to a serialized transaction.
// Signatures from other required signers are left as they are.
func (w *KeypairWallet) SignTransaction(_ context.Context, unsigned []byte) (wallet.Signed, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(unsigned))
	if err != nil {
		return wallet.Signed{}, fmt.Errorf("decode transaction: %w", err)
	}

	pub := w.key.PublicKey()
	idx := signerIndex(tx, pub)
	if idx < 0 {
		return wallet.Signed{}, fmt.Errorf("%w: %s", ErrNotSigner, pub)
	}

	if _, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.key
		}
		return nil
	}); err != nil {
		return wallet.Signed{}, fmt.Errorf("sign transaction: %w", err)
	}
	if idx >= len(tx.Signatures) || tx.Signatures[idx] == (solana.Signature{}) {
		return wallet.Signed{}, fmt.Errorf("%w: %s", ErrNotSigner, pub)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return wallet.Signed{}, err
	}
	return wallet.Signed{Transaction: raw, Signature: tx.Signatures[idx].String()}, nil
}

// signerIndex is pub's position among the required signers, or -1.
func signerIndex(tx *solana.Transaction, pub solana.PublicKey) int {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n > len(tx.Message.AccountKeys) {
		n = len(tx.Message.AccountKeys)
	}
	for i := 0; i < n; i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			return i
		}
	}
	return -1
}

// NewMintAddress returns the address of a fresh random account, used as the
// NFT mint handed to a buyer.
func NewMintAddress() string {
	return solana.NewWallet().PublicKey().String()
}
