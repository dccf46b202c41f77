package movements

import (
	"context"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists ledger entries. It has no update or delete paths.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.SerialMovement) error
	ListBySerialID(ctx context.Context, serialID uuid.UUID) ([]models.SerialMovement, error)
	Latest(ctx context.Context, serialID uuid.UUID) (*models.SerialMovement, error)
	SerialExists(ctx context.Context, serialID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.SerialMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListBySerialID(ctx context.Context, serialID uuid.UUID) ([]models.SerialMovement, error) {
	var out []models.SerialMovement
	if err := r.db.WithContext(ctx).
		Where("serial_id = ?", serialID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Latest(ctx context.Context, serialID uuid.UUID) (*models.SerialMovement, error) {
	var movement models.SerialMovement
	if err := r.db.WithContext(ctx).
		Where("serial_id = ?", serialID).
		Order("created_at DESC").
		First(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

func (r *repository) SerialExists(ctx context.Context, serialID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Where("id = ?", serialID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
