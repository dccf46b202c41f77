package movements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
)

// ErrSerialNotFound is returned when a serial id does not resolve.
var ErrSerialNotFound = errors.New("serial not found")

// Entry describes one transition to record.
type Entry struct {
	SerialID     uuid.UUID
	SerialNumber string
	From         *enums.Category
	To           enums.Category
	Type         enums.MovementType
	Reason       string
}

// Service exposes the serial movement ledger.
type Service interface {
	Append(ctx context.Context, entry Entry, actor types.Actor) (*models.SerialMovement, error)
	History(ctx context.Context, serialID uuid.UUID) ([]models.SerialMovement, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the ledger service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movements repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

// Append records entry after checking the serial exists. Content is not
// validated beyond that.
func (s *service) Append(ctx context.Context, entry Entry, actor types.Actor) (*models.SerialMovement, error) {
	exists, err := s.repo.SerialExists(ctx, entry.SerialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check serial")
	}
	if !exists {
		return nil, NotFoundError(entry.SerialID)
	}
	movement, err := Append(ctx, s.repo, entry, actor)
	if err != nil {
		s.logg.Error(s.logg.WithSerialID(ctx, entry.SerialID.String()), "append movement failed", err)
		return nil, err
	}
	return movement, nil
}

// History returns the ledger for a serial oldest first. Entries outlive the
// serial, so a deleted serial still has its history.
func (s *service) History(ctx context.Context, serialID uuid.UUID) ([]models.SerialMovement, error) {
	out, err := s.repo.ListBySerialID(ctx, serialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load serial history")
	}
	if len(out) > 0 {
		return out, nil
	}
	exists, err := s.repo.SerialExists(ctx, serialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check serial")
	}
	if !exists {
		return nil, NotFoundError(serialID)
	}
	return []models.SerialMovement{}, nil
}

// Append writes one ledger entry on repo without an existence check. Callers
// that just loaded or inserted the serial in the same transaction use it.
func Append(ctx context.Context, repo Repository, entry Entry, actor types.Actor) (*models.SerialMovement, error) {
	if entry.Type == "" {
		entry.Type = enums.MovementTypeCategoryChange
	}
	if !entry.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid movement type %q", entry.Type)
	}
	actor = actor.OrSystem()
	movement := &models.SerialMovement{
		SerialID:     entry.SerialID,
		SerialNumber: entry.SerialNumber,
		FromCategory: entry.From,
		ToCategory:   entry.To,
		Type:         entry.Type,
		ActorID:      actor.ID,
		ActorName:    actor.Name,
		Reason:       strings.TrimSpace(entry.Reason),
		CreatedAt:    clock.next(),
	}
	if err := repo.Create(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append movement")
	}
	return movement, nil
}

// NotFoundError wraps ErrSerialNotFound as a NOT_FOUND error for id.
func NotFoundError(id uuid.UUID) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrSerialNotFound, "serial not found").WithDetails(map[string]any{
		"serial_id": id,
	})
}
