package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer holds contact and AMC contract metadata. Serial contexts refer to
// customers by name only.
type Customer struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null;index:idx_customers_name"`
	Contact     *string    `gorm:"column:contact"`
	Email       *string    `gorm:"column:email"`
	Address     *string    `gorm:"column:address"`
	AMCNumber   *string    `gorm:"column:amc_number"`
	AMCStart    *time.Time `gorm:"column:amc_start;type:date"`
	AMCEnd      *time.Time `gorm:"column:amc_end;type:date"`
	Notes       *string    `gorm:"column:notes"`
	CreatedByID string     `gorm:"column:created_by_id"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
