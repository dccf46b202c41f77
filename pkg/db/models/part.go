package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a catalog entry. Code is stored upper-cased.
type Part struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code         string          `gorm:"column:code;not null;uniqueIndex:uq_parts_code"`
	Name         string          `gorm:"column:name;not null;index:idx_parts_name"`
	Category     *string         `gorm:"column:category"`
	Unit         string          `gorm:"column:unit;not null;default:PCS"`
	Description  *string         `gorm:"column:description"`
	ReorderPoint int             `gorm:"column:reorder_point;not null;default:0"`
	AvgUnitPrice decimal.Decimal `gorm:"column:avg_unit_price;type:numeric(14,2);not null;default:0"`
	AutoCreated  bool            `gorm:"column:auto_created;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Part) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
