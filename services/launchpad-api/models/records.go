package models

import (
	"time"

	wire "github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/google/uuid"
)

// CollectionRecord is the persisted collection.
type CollectionRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	ImageURL    string
	Twitter     string
	Discord     string
	Website     string
	TotalSupply int           `gorm:"not null"`
	TotalMinted int           `gorm:"not null;default:0"`
	MintType    wire.MintType `gorm:"not null;default:hidden"`
	Phases      []PhaseRecord `gorm:"foreignKey:CollectionID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CollectionRecord) TableName() string { return "collections" }

// PhaseRecord is one sales window of a collection.
type PhaseRecord struct {
	ID                string `gorm:"primaryKey"`
	CollectionID      string `gorm:"index;not null"`
	PhaseName         string
	StartTime         time.Time
	EndTime           *time.Time
	MintPriceLamports uint64
	MintPriceSats     uint64
	WhitelistOnly     bool
	PhaseAllocation   *int
	PhaseMinted       int `gorm:"not null;default:0"`
	IsActive          bool
	IsCompleted       bool
	MaxPerWallet      *int
	SortOrder         int
}

func (PhaseRecord) TableName() string { return "phases" }

// OrdinalRecord is one mintable item. Lock state lives in the lock store.
type OrdinalRecord struct {
	ID            string `gorm:"primaryKey"`
	CollectionID  string `gorm:"index;not null"`
	OrdinalNumber *int64
	ImageURL      string
	IsMinted      bool `gorm:"index;not null;default:false"`
	MintedBy      *string
	MintedAt      *time.Time
}

func (OrdinalRecord) TableName() string { return "ordinals" }

// WhitelistEntry grants a wallet an allocation in a whitelist phase.
type WhitelistEntry struct {
	PhaseID       string `gorm:"primaryKey"`
	WalletAddress string `gorm:"primaryKey"`
	Allocation    int    `gorm:"not null"`
}

func (WhitelistEntry) TableName() string { return "whitelist_entries" }

// MintStatus tracks a built mint transaction.
type MintStatus string

const (
	MintPending   MintStatus = "pending"
	MintConfirmed MintStatus = "confirmed"
	MintFailed    MintStatus = "failed"
)

// MintRecord is a built mint, keyed by the NFT mint address handed to the
// client, and later by the broadcast signature.
type MintRecord struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CollectionID  string     `gorm:"index;not null"`
	PhaseID       string     `gorm:"index;not null"`
	WalletAddress string     `gorm:"index;not null"`
	NFTMint       string     `gorm:"uniqueIndex;not null"`
	Signature     *string    `gorm:"uniqueIndex"`
	OrdinalIDs    []string   `gorm:"serializer:json"`
	Quantity      int        `gorm:"not null"`
	Lamports      uint64
	Status        MintStatus `gorm:"index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (MintRecord) TableName() string { return "mints" }

// Wire converts a phase row into the API shape.
func (p PhaseRecord) Wire() wire.Phase {
	return wire.Phase{
		ID:                p.ID,
		PhaseName:         p.PhaseName,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		MintPriceLamports: p.MintPriceLamports,
		MintPriceSats:     p.MintPriceSats,
		WhitelistOnly:     p.WhitelistOnly,
		PhaseAllocation:   p.PhaseAllocation,
		PhaseMinted:       p.PhaseMinted,
		IsActive:          p.IsActive,
		IsCompleted:       p.IsCompleted,
		MaxPerWallet:      p.MaxPerWallet,
	}
}

// Wire converts a collection row, with its phases, into the API shape.
func (c CollectionRecord) Wire() wire.Collection {
	out := wire.Collection{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		Twitter:     c.Twitter,
		Discord:     c.Discord,
		Website:     c.Website,
		TotalSupply: c.TotalSupply,
		TotalMinted: c.TotalMinted,
		MintType:    c.MintType,
		Phases:      make([]wire.Phase, 0, len(c.Phases)),
	}
	for _, p := range c.Phases {
		out.Phases = append(out.Phases, p.Wire())
	}
	return out
}

// Lock is a lock-table entry.
type Lock struct {
	ItemID string
	Wallet string
	Until  time.Time
}

// Wire combines an ordinal row with its lock, if any.
func (o OrdinalRecord) Wire(lock *Lock) wire.InventoryItem {
	item := wire.InventoryItem{
		ID:            o.ID,
		OrdinalNumber: o.OrdinalNumber,
		ImageURL:      o.ImageURL,
		IsMinted:      o.IsMinted,
	}
	if lock != nil && !o.IsMinted {
		wallet := lock.Wallet
		until := lock.Until
		item.IsLocked = true
		item.LockedBy = &wallet
		item.LockedUntil = &until
	}
	return item
}

// MintedEvent is published once a mint is confirmed.
type MintedEvent struct {
	CollectionID  string    `json:"collectionId"`
	PhaseID       string    `json:"phaseId"`
	WalletAddress string    `json:"walletAddress"`
	NFTMint       string    `json:"nftMint"`
	Signature     string    `json:"signature"`
	OrdinalIDs    []string  `json:"ordinalIds"`
	Quantity      int       `json:"quantity"`
	MintedAt      time.Time `json:"mintedAt"`
}
