package parts

import (
	"context"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages persistence for parts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Conn() *gorm.DB
	Create(ctx context.Context, part *models.Part) error
	Update(ctx context.Context, part *models.Part) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error)
	FindByCode(ctx context.Context, code string) (*models.Part, error)
	FindByName(ctx context.Context, name string) (*models.Part, error)
	List(ctx context.Context, query string, params pagination.Params) ([]models.Part, int64, error)
	CountSerials(ctx context.Context, id uuid.UUID) (int64, error)
	RecomputeAveragePrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a parts repository bound to the provided database.
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

func (r *repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *repository) Update(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Save(part).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Part{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// FindByCode matches case-insensitively; codes are stored upper-cased.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("created_at ASC").
		First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) List(ctx context.Context, query string, params pagination.Params) ([]models.Part, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Part{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params = params.Normalize()
	var parts []models.Part
	if err := q.Order("code ASC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&parts).Error; err != nil {
		return nil, 0, err
	}
	return parts, total, nil
}

func (r *repository) CountSerials(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Where("part_id = ?", id).
		Count(&count).Error
	return count, err
}

// RecomputeAveragePrice stores the mean unit price of the part's serials.
// A part without serials keeps its last known average.
func (r *repository) RecomputeAveragePrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Count int64
		Avg   decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Select("COUNT(*) AS count, AVG(unit_price) AS avg").
		Where("part_id = ?", id).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}

	if row.Count == 0 || !row.Avg.Valid {
		part, err := r.FindByID(ctx, id)
		if err != nil {
			return decimal.Zero, err
		}
		return part.AvgUnitPrice, nil
	}

	avg := row.Avg.Decimal.Round(2)
	if err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", id).
		Update("avg_unit_price", avg).Error; err != nil {
		return decimal.Zero, err
	}
	return avg, nil
}
