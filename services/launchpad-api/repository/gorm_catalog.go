package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCatalogRepository implements CatalogRepository using GORM.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository.
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// AutoMigrate creates or updates the launchpad tables.
func (r *GormCatalogRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.CollectionRecord{},
		&models.PhaseRecord{},
		&models.OrdinalRecord{},
		&models.WhitelistEntry{},
		&models.MintRecord{},
	)
}

func (r *GormCatalogRepository) GetCollection(ctx context.Context, id string) (*models.CollectionRecord, error) {
	var c models.CollectionRecord
	err := r.db.WithContext(ctx).
		Preload("Phases", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, start_time ASC")
		}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *GormCatalogRepository) ListOrdinals(ctx context.Context, collectionID string, page, perPage int) ([]models.OrdinalRecord, int64, error) {
	var ordinals []models.OrdinalRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&models.OrdinalRecord{}).Where("collection_id = ?", collectionID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	if err := query.
		Offset(offset).Limit(perPage).
		Order("ordinal_number ASC, id ASC").
		Find(&ordinals).Error; err != nil {
		return nil, 0, err
	}

	return ordinals, total, nil
}

func (r *GormCatalogRepository) GetOrdinals(ctx context.Context, collectionID string, ids []string) ([]models.OrdinalRecord, error) {
	var ordinals []models.OrdinalRecord
	if err := r.db.WithContext(ctx).
		Where("collection_id = ? AND id IN ?", collectionID, ids).
		Find(&ordinals).Error; err != nil {
		return nil, err
	}
	return ordinals, nil
}

func (r *GormCatalogRepository) ListUnminted(ctx context.Context, collectionID string) ([]models.OrdinalRecord, error) {
	var ordinals []models.OrdinalRecord
	if err := r.db.WithContext(ctx).
		Where("collection_id = ? AND is_minted = ?", collectionID, false).
		Order("ordinal_number ASC, id ASC").
		Find(&ordinals).Error; err != nil {
		return nil, err
	}
	return ordinals, nil
}

func (r *GormCatalogRepository) WhitelistEntry(ctx context.Context, phaseID, wallet string) (*models.WhitelistEntry, error) {
	var e models.WhitelistEntry
	if err := r.db.WithContext(ctx).
		Where("phase_id = ? AND wallet_address = ?", phaseID, wallet).
		First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *GormCatalogRepository) WalletMinted(ctx context.Context, phaseID, wallet string) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.MintRecord{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("phase_id = ? AND wallet_address = ? AND status = ?", phaseID, wallet, models.MintConfirmed).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *GormCatalogRepository) CreatePendingMint(ctx context.Context, mint *models.MintRecord) error {
	if mint.ID == uuid.Nil {
		mint.ID = uuid.New()
	}
	mint.Status = models.MintPending
	return r.db.WithContext(ctx).Create(mint).Error
}

func (r *GormCatalogRepository) GetMintByNFT(ctx context.Context, nftMint string) (*models.MintRecord, error) {
	var m models.MintRecord
	if err := r.db.WithContext(ctx).Where("nft_mint = ?", nftMint).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *GormCatalogRepository) GetMintBySignature(ctx context.Context, signature string) (*models.MintRecord, error) {
	var m models.MintRecord
	if err := r.db.WithContext(ctx).Where("signature = ?", signature).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *GormCatalogRepository) AttachSignature(ctx context.Context, id uuid.UUID, signature string) error {
	res := r.db.WithContext(ctx).
		Model(&models.MintRecord{}).
		Where("id = ?", id).
		Update("signature", signature)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteMint marks the mint confirmed, flags its ordinals minted and bumps
// the phase and collection counters in one transaction.
func (r *GormCatalogRepository) CompleteMint(ctx context.Context, mint *models.MintRecord, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MintRecord{}).
			Where("id = ? AND status = ?", mint.ID, models.MintPending).
			Update("status", models.MintConfirmed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMintSettled
		}

		res = tx.Model(&models.OrdinalRecord{}).
			Where("collection_id = ? AND id IN ? AND is_minted = ?", mint.CollectionID, mint.OrdinalIDs, false).
			Updates(map[string]interface{}{
				"is_minted": true,
				"minted_by": mint.WalletAddress,
				"minted_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		minted := res.RowsAffected

		if err := tx.Model(&models.PhaseRecord{}).
			Where("id = ?", mint.PhaseID).
			Update("phase_minted", gorm.Expr("phase_minted + ?", minted)).Error; err != nil {
			return err
		}
		return tx.Model(&models.CollectionRecord{}).
			Where("id = ?", mint.CollectionID).
			Update("total_minted", gorm.Expr("total_minted + ?", minted)).Error
	})
}

func (r *GormCatalogRepository) FailMint(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.MintRecord{}).
		Where("id = ? AND status = ?", id, models.MintPending).
		Update("status", models.MintFailed).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
