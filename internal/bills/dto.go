package bills

import (
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillDTO is the API view of a bill.
type BillDTO struct {
	ID                uuid.UUID       `json:"id"`
	VoucherNumber     string          `json:"voucherNumber"`
	CompanyBillNumber *string         `json:"companyBillNumber,omitempty"`
	SupplierID        *uuid.UUID      `json:"supplierId,omitempty"`
	SupplierName      string          `json:"supplierName"`
	BillDate          time.Time       `json:"billDate"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedBy         string          `json:"createdBy,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// FromModel maps a bill row to its API view.
func FromModel(m *models.Bill) *BillDTO {
	if m == nil {
		return nil
	}
	return &BillDTO{
		ID:                m.ID,
		VoucherNumber:     m.VoucherNumber,
		CompanyBillNumber: m.CompanyBillNumber,
		SupplierID:        m.SupplierID,
		SupplierName:      m.SupplierName,
		BillDate:          m.BillDate,
		TotalAmount:       m.TotalAmount,
		Notes:             m.Notes,
		CreatedBy:         m.CreatedByID,
		CreatedAt:         m.CreatedAt,
	}
}

func FromModels(rows []models.Bill) []BillDTO {
	out := make([]BillDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
