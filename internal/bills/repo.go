package bills

import (
	"context"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository manages persistence for bills.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bill *models.Bill) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	FindByVoucher(ctx context.Context, voucher string) (*models.Bill, error)
	ExistingVouchers(ctx context.Context, vouchers []string) ([]string, error)
	List(ctx context.Context, query string, params pagination.Params) ([]models.Bill, int64, error)
	CountSerials(ctx context.Context, id uuid.UUID) (int64, error)
	RecomputeTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bills repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Bill{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.WithContext(ctx).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) FindByVoucher(ctx context.Context, voucher string) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.WithContext(ctx).
		Where("voucher_number = ?", strings.TrimSpace(voucher)).
		First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// ExistingVouchers returns the subset of vouchers already stored.
func (r *repository) ExistingVouchers(ctx context.Context, vouchers []string) ([]string, error) {
	if len(vouchers) == 0 {
		return nil, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("voucher_number IN ?", vouchers).
		Pluck("voucher_number", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) List(ctx context.Context, query string, params pagination.Params) ([]models.Bill, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Bill{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := "%" + term + "%"
		q = q.Where(
			"LOWER(voucher_number) LIKE ? OR LOWER(supplier_name) LIKE ? OR LOWER(COALESCE(company_bill_number, '')) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	params = params.Normalize()
	var out []models.Bill
	if err := q.Order("bill_date DESC").Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) CountSerials(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Serial{}).Where("bill_id = ?", id).Count(&count).Error
	return count, err
}

// RecomputeTotal sets the bill total to the sum of its serials' unit prices.
func (r *repository) RecomputeTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Select("SUM(unit_price) AS total").
		Where("bill_id = ?", id).
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	if row.Total.Valid {
		total = row.Total.Decimal.Round(2)
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("id = ?", id).
		Update("total_amount", total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
