package suppliers

import (
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/google/uuid"
)

// SupplierDTO is the API view of a supplier.
type SupplierDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Contact   *string   `json:"contact,omitempty"`
	GSTNumber *string   `json:"gstNumber,omitempty"`
}

func FromModels(rows []models.Supplier) []SupplierDTO {
	out := make([]SupplierDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, SupplierDTO{ID: m.ID, Name: m.Name, Contact: m.Contact, GSTNumber: m.GSTNumber})
	}
	return out
}
