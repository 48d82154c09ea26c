package repository

import (
	"context"
	"fmt"
	"time"

	wire "github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoCatalog describes a seeded collection for local runs.
type DemoCatalog struct {
	Collection models.CollectionRecord
	Ordinals   []models.OrdinalRecord
	Whitelist  []models.WhitelistEntry
}

// NewDemoCatalog builds a collection of supply ordinals with one open public
// phase starting at start.
func NewDemoCatalog(collectionID string, supply int, mintType wire.MintType, priceLamports uint64, maxPerWallet int, start time.Time) DemoCatalog {
	maxPer := maxPerWallet
	phase := models.PhaseRecord{
		ID:                uuid.NewString(),
		CollectionID:      collectionID,
		PhaseName:         "Public",
		StartTime:         start,
		MintPriceLamports: priceLamports,
		IsActive:          true,
		MaxPerWallet:      &maxPer,
	}

	ordinals := make([]models.OrdinalRecord, 0, supply)
	for i := 0; i < supply; i++ {
		n := int64(i + 1)
		ordinals = append(ordinals, models.OrdinalRecord{
			ID:            uuid.NewString(),
			CollectionID:  collectionID,
			OrdinalNumber: &n,
			ImageURL:      fmt.Sprintf("/images/%s/%d.png", collectionID, n),
		})
	}

	return DemoCatalog{
		Collection: models.CollectionRecord{
			ID:          collectionID,
			Name:        "Demo Collection",
			TotalSupply: supply,
			MintType:    mintType,
			Phases:      []models.PhaseRecord{phase},
		},
		Ordinals: ordinals,
	}
}

// Load seeds the in-memory catalog.
func (d DemoCatalog) Load(r *MemoryCatalogRepository) {
	r.Seed(d.Collection, d.Ordinals, d.Whitelist)
}

// Insert writes the catalog through GORM, skipping rows that already exist.
func (d DemoCatalog) Insert(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		col := d.Collection
		phases := col.Phases
		col.Phases = nil
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&col).Error; err != nil {
			return err
		}
		if len(phases) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&phases).Error; err != nil {
				return err
			}
		}
		if len(d.Ordinals) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(d.Ordinals, 500).Error; err != nil {
				return err
			}
		}
		if len(d.Whitelist) > 0 {
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&d.Whitelist).Error
		}
		return nil
	})
}
