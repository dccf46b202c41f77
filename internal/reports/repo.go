package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DateRange bounds a report by bill date. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Repository runs the read-only aggregate queries behind the reports.
type Repository interface {
	InStockByBill(ctx context.Context, window DateRange) ([]BillStock, error)
	PartStock(ctx context.Context) ([]PartStock, error)
	SerialsInCategories(ctx context.Context, categories []enums.Category) ([]models.Serial, error)
	ChargeableSerials(ctx context.Context, exclude []enums.Category) ([]models.Serial, error)
	UncategorizedCounts(ctx context.Context) (AlertCount, error)
	BillsSince(ctx context.Context, since time.Time) (MonthStats, error)
	RecentMovements(ctx context.Context, limit int) ([]models.SerialMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InStockByBill(ctx context.Context, window DateRange) ([]BillStock, error) {
	var rows []struct {
		BillID uuid.UUID
		Count  int64
		Total  decimal.NullDecimal
	}
	q := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Select("bill_id AS bill_id, COUNT(*) AS count, SUM(unit_price) AS total").
		Where("category = ?", enums.CategoryInStock)
	if window.From != nil {
		q = q.Where("bill_id IN (SELECT id FROM bills WHERE bill_date >= ?)", *window.From)
	}
	if window.To != nil {
		q = q.Where("bill_id IN (SELECT id FROM bills WHERE bill_date <= ?)", *window.To)
	}
	if err := q.Group("bill_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []BillStock{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.BillID)
	}
	var bills []models.Bill
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("bill_date DESC, voucher_number ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}

	byBill := make(map[uuid.UUID]int, len(rows))
	for i, row := range rows {
		byBill[row.BillID] = i
	}
	out := make([]BillStock, 0, len(bills))
	for _, bill := range bills {
		row := rows[byBill[bill.ID]]
		out = append(out, BillStock{
			BillID:        bill.ID,
			VoucherNumber: bill.VoucherNumber,
			SupplierName:  bill.SupplierName,
			BillDate:      bill.BillDate,
			Count:         row.Count,
			TotalValue:    money(row.Total),
		})
	}
	return out, nil
}

// PartStock returns every part with its IN_STOCK count and value, parts with
// no stock included.
func (r *repository) PartStock(ctx context.Context) ([]PartStock, error) {
	var rows []struct {
		PartID       uuid.UUID
		Code         string
		Name         string
		AvgUnitPrice decimal.Decimal
		ReorderPoint int
		InStock      int64
		Total        decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Table("parts").
		Select("parts.id AS part_id, parts.code AS code, parts.name AS name, parts.avg_unit_price AS avg_unit_price, parts.reorder_point AS reorder_point, COUNT(serials.id) AS in_stock, SUM(serials.unit_price) AS total").
		Joins("LEFT JOIN serials ON serials.part_id = parts.id AND serials.category = ?", enums.CategoryInStock).
		Group("parts.id, parts.code, parts.name, parts.avg_unit_price, parts.reorder_point").
		Order("parts.code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]PartStock, 0, len(rows))
	for _, row := range rows {
		out = append(out, PartStock{
			PartID:       row.PartID,
			Code:         row.Code,
			Name:         row.Name,
			AvgUnitPrice: row.AvgUnitPrice,
			ReorderPoint: row.ReorderPoint,
			InStock:      row.InStock,
			TotalValue:   money(row.Total),
			BelowReorder: row.ReorderPoint > 0 && row.InStock < int64(row.ReorderPoint),
		})
	}
	return out, nil
}

func (r *repository) SerialsInCategories(ctx context.Context, categories []enums.Category) ([]models.Serial, error) {
	var serials []models.Serial
	if len(categories) == 0 {
		return serials, nil
	}
	err := r.db.WithContext(ctx).
		Where("category IN ?", categories).
		Order("created_at ASC").
		Find(&serials).Error
	return serials, err
}

// ChargeableSerials returns serials whose context has isChargeable=true.
func (r *repository) ChargeableSerials(ctx context.Context, exclude []enums.Category) ([]models.Serial, error) {
	q := r.db.WithContext(ctx).Model(&models.Serial{})
	if r.db.Dialector.Name() == "postgres" {
		q = q.Where("context @> ?::jsonb", `{"isChargeable": true}`)
	} else {
		q = q.Where("JSON_EXTRACT(context, '$.isChargeable') = 1")
	}
	if len(exclude) > 0 {
		q = q.Where("category NOT IN ?", exclude)
	}
	var serials []models.Serial
	err := q.Order("created_at ASC").Find(&serials).Error
	return serials, err
}

func (r *repository) UncategorizedCounts(ctx context.Context) (AlertCount, error) {
	var row struct {
		Count int64
		Bills int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Select("COUNT(*) AS count, COUNT(DISTINCT bill_id) AS bills").
		Where("category = ?", enums.CategoryUncategorized).
		Scan(&row).Error
	if err != nil {
		return AlertCount{}, err
	}
	return AlertCount{Count: row.Count, BillsCount: row.Bills}, nil
}

func (r *repository) BillsSince(ctx context.Context, since time.Time) (MonthStats, error) {
	var stats MonthStats
	err := r.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("bill_date >= ?", since).
		Count(&stats.Count).Error
	if err != nil {
		return MonthStats{}, err
	}
	err = r.db.WithContext(ctx).
		Model(&models.Serial{}).
		Where("bill_id IN (SELECT id FROM bills WHERE bill_date >= ?)", since).
		Count(&stats.TotalSerials).Error
	if err != nil {
		return MonthStats{}, err
	}
	return stats, nil
}

func (r *repository) RecentMovements(ctx context.Context, limit int) ([]models.SerialMovement, error) {
	var entries []models.SerialMovement
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func money(value decimal.NullDecimal) decimal.Decimal {
	if !value.Valid {
		return decimal.Zero
	}
	return value.Decimal.Round(2)
}
