package customers

import (
	"context"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for customers.
type Repository interface {
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindByName(ctx context.Context, name string) ([]models.Customer, error)
	List(ctx context.Context, query string, params pagination.Params) ([]models.Customer, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByName returns every customer whose name matches, ignoring case. Names
// are free text, so more than one row can match.
func (r *repository) FindByName(ctx context.Context, name string) ([]models.Customer, error) {
	var out []models.Customer
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, query string, params pagination.Params) ([]models.Customer, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Customer{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(contact, '')) LIKE ? OR LOWER(COALESCE(amc_number, '')) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	params = params.Normalize()
	var out []models.Customer
	if err := q.Order("name ASC").Offset(params.Offset()).Limit(params.Limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
