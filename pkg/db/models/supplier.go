package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supplier is the vendor a bill was received from.
type Supplier struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:uq_suppliers_name"`
	Contact   *string   `gorm:"column:contact"`
	GSTNumber *string   `gorm:"column:gst_number"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
