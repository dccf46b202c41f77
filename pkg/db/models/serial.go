package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// Serial is one physical unit. Context holds the category specific payload;
// CustomerName and SPUID are projections of it kept for search and rollups.
type Serial struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SerialNumber  string            `gorm:"column:serial_number;not null;uniqueIndex:uq_serials_serial_number"`
	BillID        uuid.UUID         `gorm:"column:bill_id;type:uuid;not null;index:idx_serials_bill_id"`
	PartID        uuid.UUID         `gorm:"column:part_id;type:uuid;not null;index:idx_serials_part_id"`
	PartCode      string            `gorm:"column:part_code;not null"`
	PartName      string            `gorm:"column:part_name;not null"`
	UnitPrice     decimal.Decimal   `gorm:"column:unit_price;type:numeric(14,2);not null;default:0"`
	Category      enums.Category    `gorm:"column:category;not null;index:idx_serials_category"`
	Context       datatypes.JSONMap `gorm:"column:context"`
	CustomerName  *string           `gorm:"column:customer_name;index:idx_serials_customer_name"`
	SPUID         *string           `gorm:"column:spu_id;index:idx_serials_spu_id"`
	CategorizedAt *time.Time        `gorm:"column:categorized_at"`
	CreatedByID   string            `gorm:"column:created_by_id"`
	CreatedByName string            `gorm:"column:created_by_name"`
	UpdatedByID   string            `gorm:"column:updated_by_id"`
	UpdatedByName string            `gorm:"column:updated_by_name"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Serial) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
