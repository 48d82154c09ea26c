package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a collection, mint or whitelist row is missing.
	ErrNotFound = errors.New("record not found")
	// ErrMintSettled is returned when completing a mint that is no longer pending.
	ErrMintSettled = errors.New("mint already settled")
)

// CatalogRepository defines data-access operations for collections, ordinals,
// whitelists and mints.
type CatalogRepository interface {
	GetCollection(ctx context.Context, id string) (*models.CollectionRecord, error)
	ListOrdinals(ctx context.Context, collectionID string, page, perPage int) ([]models.OrdinalRecord, int64, error)
	GetOrdinals(ctx context.Context, collectionID string, ids []string) ([]models.OrdinalRecord, error)
	ListUnminted(ctx context.Context, collectionID string) ([]models.OrdinalRecord, error)
	WhitelistEntry(ctx context.Context, phaseID, wallet string) (*models.WhitelistEntry, error)
	WalletMinted(ctx context.Context, phaseID, wallet string) (int, error)
	CreatePendingMint(ctx context.Context, mint *models.MintRecord) error
	GetMintByNFT(ctx context.Context, nftMint string) (*models.MintRecord, error)
	GetMintBySignature(ctx context.Context, signature string) (*models.MintRecord, error)
	AttachSignature(ctx context.Context, id uuid.UUID, signature string) error
	CompleteMint(ctx context.Context, mint *models.MintRecord, at time.Time) error
	FailMint(ctx context.Context, id uuid.UUID) error
}
