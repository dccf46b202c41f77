package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bill is a goods-receipt record. It owns its serials.
type Bill struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID        *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	SupplierName      string          `gorm:"column:supplier_name;not null;default:''"`
	VoucherNumber     string          `gorm:"column:voucher_number;not null;uniqueIndex:uq_bills_voucher_number"`
	CompanyBillNumber *string         `gorm:"column:company_bill_number"`
	BillDate          time.Time       `gorm:"column:bill_date;type:date;not null"`
	TotalAmount       decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Notes             *string         `gorm:"column:notes"`
	CreatedByID       string          `gorm:"column:created_by_id"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Bill) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}
