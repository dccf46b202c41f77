package serials

import (
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SerialDTO is the API view of a serial.
type SerialDTO struct {
	ID            uuid.UUID       `json:"id"`
	SerialNumber  string          `json:"serialNumber"`
	BillID        uuid.UUID       `json:"billId"`
	PartID        uuid.UUID       `json:"partId"`
	PartCode      string          `json:"partCode"`
	PartName      string          `json:"partName"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Category      enums.Category  `json:"currentCategory"`
	Context       map[string]any  `json:"context"`
	CategorizedAt *time.Time      `json:"categorizedDate,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	UpdatedBy     string          `json:"updatedBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// FromModel maps a serial row to its API view.
func FromModel(m *models.Serial) *SerialDTO {
	if m == nil {
		return nil
	}
	payload := map[string]any(m.Context)
	if payload == nil {
		payload = map[string]any{}
	}
	return &SerialDTO{
		ID:            m.ID,
		SerialNumber:  m.SerialNumber,
		BillID:        m.BillID,
		PartID:        m.PartID,
		PartCode:      m.PartCode,
		PartName:      m.PartName,
		UnitPrice:     m.UnitPrice,
		Category:      m.Category,
		Context:       payload,
		CategorizedAt: m.CategorizedAt,
		CreatedBy:     m.CreatedByID,
		UpdatedBy:     m.UpdatedByID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromModels maps a slice of serial rows.
func FromModels(rows []models.Serial) []SerialDTO {
	out := make([]SerialDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// BulkResultDTO is the API view of a bulk create.
type BulkResultDTO struct {
	Created []SerialDTO `json:"created"`
	Failed  []Failure   `json:"failed"`
}

// ToDTO maps the result for transport.
func (r BulkResult) ToDTO() BulkResultDTO {
	failed := r.Failed
	if failed == nil {
		failed = []Failure{}
	}
	return BulkResultDTO{Created: FromModels(r.Created), Failed: failed}
}
