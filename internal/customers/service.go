package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
)

// CreateCustomerInput describes a customer record.
type CreateCustomerInput struct {
	Name      string     `json:"name" validate:"required"`
	Contact   *string    `json:"contact"`
	Email     *string    `json:"email" validate:"omitempty,email"`
	Address   *string    `json:"address"`
	AMCNumber *string    `json:"amcNumber"`
	AMCStart  *time.Time `json:"amcStart"`
	AMCEnd    *time.Time `json:"amcEnd"`
	Notes     *string    `json:"notes"`
}

// Service exposes customer master data. Serial contexts reference customers
// by name only; these lookups help the UI suggest consistent names.
type Service interface {
	Create(ctx context.Context, input CreateCustomerInput, actor types.Actor) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindByName(ctx context.Context, name string) ([]models.Customer, error)
	List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Customer], error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateCustomerInput, actor types.Actor) (*models.Customer, error) {
	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if input.AMCStart != nil && input.AMCEnd != nil && input.AMCEnd.Before(*input.AMCStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amc end must not be before amc start").WithDetails(map[string]any{
			"field": "amcEnd",
		})
	}
	customer := &models.Customer{
		Name:        name,
		Contact:     input.Contact,
		Email:       input.Email,
		Address:     input.Address,
		AMCNumber:   input.AMCNumber,
		AMCStart:    input.AMCStart,
		AMCEnd:      input.AMCEnd,
		Notes:       input.Notes,
		CreatedByID: actor.OrSystem().ID,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
	}
	return customer, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}
	return customer, nil
}

func (s *service) FindByName(ctx context.Context, name string) ([]models.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return []models.Customer{}, nil
	}
	out, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customers by name")
	}
	return out, nil
}

func (s *service) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Customer], error) {
	items, total, err := s.repo.List(ctx, query, params)
	if err != nil {
		return pagination.Page[models.Customer]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customers")
	}
	return pagination.NewPage(items, total, params), nil
}
