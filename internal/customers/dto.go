package customers

import (
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CustomerDTO is the API view of a customer.
type CustomerDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Contact   *string    `json:"contact,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Address   *string    `json:"address,omitempty"`
	AMCNumber *string    `json:"amcNumber,omitempty"`
	AMCStart  *time.Time `json:"amcStart,omitempty"`
	AMCEnd    *time.Time `json:"amcEnd,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

func FromModel(m *models.Customer) *CustomerDTO {
	if m == nil {
		return nil
	}
	return &CustomerDTO{
		ID:        m.ID,
		Name:      m.Name,
		Contact:   m.Contact,
		Email:     m.Email,
		Address:   m.Address,
		AMCNumber: m.AMCNumber,
		AMCStart:  m.AMCStart,
		AMCEnd:    m.AMCEnd,
		Notes:     m.Notes,
	}
}

func FromModels(rows []models.Customer) []CustomerDTO {
	out := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
