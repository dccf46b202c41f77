package suppliers

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes supplier lookups.
type Service interface {
	List(ctx context.Context, query string, limit int) ([]models.Supplier, error)
	FindOrCreateByName(ctx context.Context, name string) (*models.Supplier, bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, query string, limit int) ([]models.Supplier, error) {
	out, err := s.repo.List(ctx, query, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list suppliers")
	}
	return out, nil
}

func (s *service) FindOrCreateByName(ctx context.Context, name string) (*models.Supplier, bool, error) {
	return FindOrCreateByName(ctx, s.repo, name)
}

// FindOrCreateByName resolves a supplier by name, ignoring case, creating it
// when missing. Pass a transaction-bound repository to resolve inside it.
func FindOrCreateByName(ctx context.Context, repo Repository, name string) (*models.Supplier, bool, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}

	supplier, err := repo.FindByName(ctx, name)
	if err == nil {
		return supplier, false, nil
	}
	if !db.IsNotFound(err) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find supplier")
	}

	candidate := &models.Supplier{Name: name}
	createErr := db.Savepoint(repo.Conn(), "supplier_find_or_create", func(tx *gorm.DB) error {
		return repo.WithTx(tx).Create(ctx, candidate)
	})
	if createErr == nil {
		return candidate, true, nil
	}
	if !db.IsUniqueViolation(createErr, "") {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "create supplier")
	}
	supplier, err = repo.FindByName(ctx, name)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-read supplier after conflict")
	}
	return supplier, false, nil
}
