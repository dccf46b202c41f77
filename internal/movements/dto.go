package movements

import (
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/google/uuid"
)

// MovementDTO is the API view of a ledger entry.
type MovementDTO struct {
	ID           uuid.UUID          `json:"id"`
	SerialID     uuid.UUID          `json:"serialId"`
	SerialNumber string             `json:"serialNumber"`
	FromCategory *enums.Category    `json:"fromCategory"`
	ToCategory   enums.Category     `json:"toCategory"`
	Type         enums.MovementType `json:"movementType"`
	ActorID      string             `json:"performedBy"`
	ActorName    string             `json:"performedByName,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	CreatedAt    time.Time          `json:"timestamp"`
}

func FromModels(rows []models.SerialMovement) []MovementDTO {
	out := make([]MovementDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, MovementDTO{
			ID:           m.ID,
			SerialID:     m.SerialID,
			SerialNumber: m.SerialNumber,
			FromCategory: m.FromCategory,
			ToCategory:   m.ToCategory,
			Type:         m.Type,
			ActorID:      m.ActorID,
			ActorName:    m.ActorName,
			Reason:       m.Reason,
			CreatedAt:    m.CreatedAt,
		})
	}
	return out
}
