package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// SerialMovement is an immutable ledger entry for one serial transition. It
// keeps the serial number so the row stays readable after the serial is gone.
type SerialMovement struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	SerialID     uuid.UUID          `gorm:"column:serial_id;type:uuid;not null;index:idx_serial_movements_serial_id"`
	SerialNumber string             `gorm:"column:serial_number;not null"`
	FromCategory *enums.Category    `gorm:"column:from_category"`
	ToCategory   enums.Category     `gorm:"column:to_category;not null"`
	Type         enums.MovementType `gorm:"column:type;not null"`
	ActorID      string             `gorm:"column:actor_id;not null"`
	ActorName    string             `gorm:"column:actor_name"`
	Reason       string             `gorm:"column:reason"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (SerialMovement) TableName() string {
	return "serial_movements"
}

func (m *SerialMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
