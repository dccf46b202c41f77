package serials

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategoryTotal is the number and summed unit price of serials in a category.
type CategoryTotal struct {
	Category   enums.Category  `json:"category"`
	Count      int64           `json:"count"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// SearchFilters narrows a serial search. Zero values are ignored.
type SearchFilters struct {
	Category     enums.Category `json:"category"`
	BillID       *uuid.UUID     `json:"billId"`
	PartID       *uuid.UUID     `json:"partId"`
	CustomerName string         `json:"customerName"`
	From         *time.Time     `json:"from"`
	To           *time.Time     `json:"to"`
}

// Repository manages persistence for serials.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Conn() *gorm.DB
	Create(ctx context.Context, serial *models.Serial) error
	Update(ctx context.Context, serial *models.Serial) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Serial, error)
	FindBySerialNumber(ctx context.Context, serialNumber string) (*models.Serial, error)
	ExistsBySerialNumber(ctx context.Context, serialNumber string) (bool, error)
	ExistingSerialNumbers(ctx context.Context, serialNumbers []string) ([]string, error)
	ListByBillID(ctx context.Context, billID uuid.UUID) ([]models.Serial, error)
	ListByCategory(ctx context.Context, category enums.Category, params pagination.Params) ([]models.Serial, int64, error)
	Search(ctx context.Context, query string, filters SearchFilters, params pagination.Params) ([]models.Serial, int64, error)
	CategoryTotals(ctx context.Context) ([]CategoryTotal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a serials repository bound to the provided database.
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

func (r *repository) Create(ctx context.Context, serial *models.Serial) error {
	return r.db.WithContext(ctx).Create(serial).Error
}

func (r *repository) Update(ctx context.Context, serial *models.Serial) error {
	return r.db.WithContext(ctx).Save(serial).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Serial{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Serial, error) {
	var serial models.Serial
	if err := r.db.WithContext(ctx).First(&serial, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &serial, nil
}

// FindBySerialNumber matches the serial number exactly, case included.
func (r *repository) FindBySerialNumber(ctx context.Context, serialNumber string) (*models.Serial, error) {
	var serial models.Serial
	if err := r.db.WithContext(ctx).
		Where("serial_number = ?", serialNumber).
		First(&serial).Error; err != nil {
		return nil, err
	}
	return &serial, nil
}

func (r *repository) ExistsBySerialNumber(ctx context.Context, serialNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Where("serial_number = ?", serialNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistingSerialNumbers returns the subset of serialNumbers already stored.
func (r *repository) ExistingSerialNumbers(ctx context.Context, serialNumbers []string) ([]string, error) {
	if len(serialNumbers) == 0 {
		return nil, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Where("serial_number IN ?", serialNumbers).
		Pluck("serial_number", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) ListByBillID(ctx context.Context, billID uuid.UUID) ([]models.Serial, error) {
	var out []models.Serial
	if err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("part_code ASC").Order("serial_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListByCategory(ctx context.Context, category enums.Category, params pagination.Params) ([]models.Serial, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Serial{}).Where("category = ?", category)
	return r.page(q, "updated_at DESC", params)
}

// Search matches query case-insensitively against serial number, part name,
// voucher number, SPU id and customer name.
func (r *repository) Search(ctx context.Context, query string, filters SearchFilters, params pagination.Params) ([]models.Serial, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Serial{})

	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		like := containsPattern(term)
		q = q.Where(
			`LOWER(serials.serial_number) LIKE ? ESCAPE '\' OR LOWER(serials.part_name) LIKE ? ESCAPE '\' OR serials.bill_id IN (SELECT id FROM bills WHERE LOWER(voucher_number) LIKE ? ESCAPE '\') OR LOWER(COALESCE(serials.spu_id, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(serials.customer_name, '')) LIKE ? ESCAPE '\'`,
			like, like, like, like, like,
		)
	}
	if filters.Category != "" {
		q = q.Where("serials.category = ?", filters.Category)
	}
	if filters.BillID != nil {
		q = q.Where("serials.bill_id = ?", *filters.BillID)
	}
	if filters.PartID != nil {
		q = q.Where("serials.part_id = ?", *filters.PartID)
	}
	if name := strings.ToLower(strings.TrimSpace(filters.CustomerName)); name != "" {
		q = q.Where(`LOWER(COALESCE(serials.customer_name, '')) LIKE ? ESCAPE '\'`, containsPattern(name))
	}
	if filters.From != nil {
		q = q.Where("serials.created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("serials.created_at < ?", *filters.To)
	}
	return r.page(q, "serials.created_at DESC", params)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term literally anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func (r *repository) page(q *gorm.DB, order string, params pagination.Params) ([]models.Serial, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	params = params.Normalize()
	var out []models.Serial
	if err := q.Order(order).
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CategoryTotals returns one row per known category, zero-filled, in
// enums.Categories order.
func (r *repository) CategoryTotals(ctx context.Context) ([]CategoryTotal, error) {
	var rows []struct {
		Category string
		Count    int64
		Total    decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Select("category, COUNT(*) AS count, SUM(unit_price) AS total").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	byCategory := make(map[enums.Category]CategoryTotal, len(rows))
	for _, row := range rows {
		total := decimal.Zero
		if row.Total.Valid {
			total = row.Total.Decimal.Round(2)
		}
		category := enums.Category(row.Category)
		byCategory[category] = CategoryTotal{Category: category, Count: row.Count, TotalValue: total}
	}

	out := make([]CategoryTotal, 0, len(enums.Categories()))
	for _, category := range enums.Categories() {
		total, ok := byCategory[category]
		if !ok {
			total = CategoryTotal{Category: category, TotalValue: decimal.Zero}
		}
		out = append(out, total)
	}
	return out, nil
}
