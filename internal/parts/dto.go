package parts

import (
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartDTO is the API view of a catalog part.
type PartDTO struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Category     *string         `json:"category,omitempty"`
	Unit         string          `json:"unit"`
	Description  *string         `json:"description,omitempty"`
	ReorderPoint int             `json:"reorderPoint"`
	AvgUnitPrice decimal.Decimal `json:"avgUnitPrice"`
	AutoCreated  bool            `json:"autoCreated"`
}

func FromModel(m *models.Part) *PartDTO {
	if m == nil {
		return nil
	}
	return &PartDTO{
		ID:           m.ID,
		Code:         m.Code,
		Name:         m.Name,
		Category:     m.Category,
		Unit:         m.Unit,
		Description:  m.Description,
		ReorderPoint: m.ReorderPoint,
		AvgUnitPrice: m.AvgUnitPrice,
		AutoCreated:  m.AutoCreated,
	}
}

func FromModels(rows []models.Part) []PartDTO {
	out := make([]PartDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
