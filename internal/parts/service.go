package parts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrPartReferenced is returned when deleting a part that serials still use.
var ErrPartReferenced = errors.New("part is referenced by serials")

var slugRe = regexp.MustCompile(`[^A-Z0-9]+`)

// NormalizeCode trims and upper-cases a part code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SlugCode derives a part code from a display name: upper-cased with runs of
// non alphanumerics collapsed to "-".
func SlugCode(name string) string {
	slug := slugRe.ReplaceAllString(strings.ToUpper(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// CreatePartInput describes a catalog entry.
type CreatePartInput struct {
	Code         string           `json:"code"`
	Name         string           `json:"name" validate:"required"`
	Category     *string          `json:"category"`
	Unit         string           `json:"unit"`
	Description  *string          `json:"description"`
	ReorderPoint int              `json:"reorderPoint" validate:"gte=0"`
	AvgUnitPrice *decimal.Decimal `json:"avgUnitPrice"`
}

// UpdatePartInput carries the mutable catalog fields. Nil fields are left alone.
type UpdatePartInput struct {
	Name         *string `json:"name"`
	Category     *string `json:"category"`
	Unit         *string `json:"unit"`
	Description  *string `json:"description"`
	ReorderPoint *int    `json:"reorderPoint" validate:"omitempty,gte=0"`
}

// Service exposes part catalog operations.
type Service interface {
	Create(ctx context.Context, input CreatePartInput) (*models.Part, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Part, error)
	List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Part], error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*models.Part, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindOrCreateByCode(ctx context.Context, code, name string) (*models.Part, bool, error)
	FindOrCreateByName(ctx context.Context, name, code string) (*models.Part, bool, error)
	RecomputeAveragePrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// NewService wires a parts service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreatePartInput) (*models.Part, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
	}
	code := NormalizeCode(input.Code)
	if code == "" {
		code = SlugCode(name)
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part code could not be derived from name")
	}
	if input.ReorderPoint < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder point must not be negative")
	}

	part := &models.Part{
		Code:         code,
		Name:         name,
		Category:     input.Category,
		Unit:         defaultUnit(input.Unit),
		Description:  input.Description,
		ReorderPoint: input.ReorderPoint,
	}
	if input.AvgUnitPrice != nil {
		part.AvgUnitPrice = *input.AvgUnitPrice
	}
	if err := s.repo.Create(ctx, part); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "part code already exists").WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create part")
	}
	return part, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return part, nil
}

func (s *service) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Part], error) {
	items, total, err := s.repo.List(ctx, query, params)
	if err != nil {
		return pagination.Page[models.Part]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list parts")
	}
	return pagination.NewPage(items, total, params), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*models.Part, error) {
	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name must not be empty")
		}
		part.Name = name
	}
	if input.Category != nil {
		part.Category = input.Category
	}
	if input.Unit != nil {
		part.Unit = defaultUnit(*input.Unit)
	}
	if input.Description != nil {
		part.Description = input.Description
	}
	if input.ReorderPoint != nil {
		if *input.ReorderPoint < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder point must not be negative")
		}
		part.ReorderPoint = *input.ReorderPoint
	}
	if err := s.repo.Update(ctx, part); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update part")
	}
	return part, nil
}

// Delete removes a part that no serial references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapLookupError(err)
	}
	count, err := s.repo.CountSerials(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count part serials")
	}
	if count > 0 {
		return referencedError(id, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		// serials.part_id is ON DELETE RESTRICT; a serial created since the count lands here
		if db.IsForeignKeyViolation(err) {
			return referencedError(id, count)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete part")
	}
	return nil
}

func (s *service) FindOrCreateByCode(ctx context.Context, code, name string) (*models.Part, bool, error) {
	return FindOrCreateByCode(ctx, s.repo, code, name)
}

func (s *service) FindOrCreateByName(ctx context.Context, name, code string) (*models.Part, bool, error) {
	return FindOrCreateByName(ctx, s.repo, name, code)
}

func (s *service) RecomputeAveragePrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	avg, err := s.repo.RecomputeAveragePrice(ctx, id)
	if err != nil {
		return decimal.Zero, mapLookupError(err)
	}
	return avg, nil
}

// FindOrCreateByCode resolves a part by code (case-insensitive) or creates it
// with the given name. The bool reports whether a part was created. Pass a
// repository bound to a transaction to resolve inside it.
func FindOrCreateByCode(ctx context.Context, repo Repository, code, name string) (*models.Part, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "part code is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}
	return findOrCreate(ctx, repo, func(r Repository) (*models.Part, error) {
		return r.FindByCode(ctx, code)
	}, &models.Part{Code: code, Name: name, Unit: defaultUnit(""), AutoCreated: true})
}

// FindOrCreateByName resolves a part by exact name (case-insensitive) or creates
// it. When code is empty the new part's code is the slugified name.
func FindOrCreateByName(ctx context.Context, repo Repository, name, code string) (*models.Part, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
	}
	if part, err := repo.FindByName(ctx, name); err == nil {
		return part, false, nil
	} else if !db.IsNotFound(err) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find part by name")
	}

	code = NormalizeCode(code)
	if code == "" {
		code = SlugCode(name)
	}
	if code == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "part code could not be derived from name")
	}
	return findOrCreate(ctx, repo, func(r Repository) (*models.Part, error) {
		return r.FindByCode(ctx, code)
	}, &models.Part{Code: code, Name: name, Unit: defaultUnit(""), AutoCreated: true})
}

// findOrCreate inserts candidate when lookup finds nothing. A concurrent
// insert of the same code loses on the unique constraint and re-reads.
func findOrCreate(ctx context.Context, repo Repository, lookup func(Repository) (*models.Part, error), candidate *models.Part) (*models.Part, bool, error) {
	part, err := lookup(repo)
	if err == nil {
		return part, false, nil
	}
	if !db.IsNotFound(err) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find part")
	}

	createErr := db.Savepoint(repo.Conn(), "part_find_or_create", func(tx *gorm.DB) error {
		return repo.WithTx(tx).Create(ctx, candidate)
	})
	if createErr == nil {
		return candidate, true, nil
	}
	if !db.IsUniqueViolation(createErr, "") {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "create part")
	}

	part, err = lookup(repo)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-read part after conflict")
	}
	return part, false, nil
}

func defaultUnit(unit string) string {
	unit = strings.ToUpper(strings.TrimSpace(unit))
	if unit == "" {
		return "PCS"
	}
	return unit
}

func referencedError(id uuid.UUID, count int64) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrPartReferenced, "part is referenced by serials").WithDetails(map[string]any{
		"part_id":      id,
		"serial_count": count,
	})
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "part not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load part")
}
