package suppliers

import (
	"context"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for suppliers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Conn() *gorm.DB
	Create(ctx context.Context, supplier *models.Supplier) error
	FindByName(ctx context.Context, name string) (*models.Supplier, error)
	List(ctx context.Context, query string, limit int) ([]models.Supplier, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Conn() *gorm.DB {
	return r.db
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) List(ctx context.Context, query string, limit int) ([]models.Supplier, error) {
	q := r.db.WithContext(ctx).Model(&models.Supplier{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+term+"%")
	}
	var out []models.Supplier
	if err := q.Order("name ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
