package bills

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/suppliers"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrBillReferenced is returned when deleting a bill that still owns serials.
var ErrBillReferenced = errors.New("bill still owns serials")

// ErrDuplicateVoucher is returned when a voucher number is already stored.
var ErrDuplicateVoucher = errors.New("voucher number already exists")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateBillInput describes a goods receipt.
type CreateBillInput struct {
	VoucherNumber     string           `json:"voucherNumber" validate:"required"`
	CompanyBillNumber *string          `json:"companyBillNumber"`
	SupplierName      string           `json:"supplierName"`
	BillDate          time.Time        `json:"billDate" validate:"required"`
	TotalAmount       *decimal.Decimal `json:"totalAmount"`
	Notes             *string          `json:"notes"`
}

// Service exposes bill operations.
type Service interface {
	Create(ctx context.Context, input CreateBillInput, actor types.Actor) (*models.Bill, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	GetByVoucher(ctx context.Context, voucher string) (*models.Bill, error)
	List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Bill], error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecomputeTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	suppliers suppliers.Repository
}

// NewService wires the bills service.
func NewService(tx txRunner, repo Repository, supplierRepo suppliers.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("bills repository required")
	}
	if supplierRepo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	return &service{tx: tx, repo: repo, suppliers: supplierRepo}, nil
}

func (s *service) Create(ctx context.Context, input CreateBillInput, actor types.Actor) (*models.Bill, error) {
	var created *models.Bill
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bill, err := CreateWithSupplier(ctx, s.repo.WithTx(tx), s.suppliers.WithTx(tx), input, actor)
		if err != nil {
			return err
		}
		created = bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateWithSupplier inserts a bill, resolving its supplier by name first.
// Repositories must share the caller's transaction.
func CreateWithSupplier(ctx context.Context, repo Repository, supplierRepo suppliers.Repository, input CreateBillInput, actor types.Actor) (*models.Bill, error) {
	voucher := strings.TrimSpace(input.VoucherNumber)
	if voucher == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher number is required")
	}
	if input.BillDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bill date is required")
	}

	bill := &models.Bill{
		VoucherNumber:     voucher,
		CompanyBillNumber: input.CompanyBillNumber,
		BillDate:          input.BillDate,
		Notes:             input.Notes,
		CreatedByID:       actor.OrSystem().ID,
	}
	if input.TotalAmount != nil {
		bill.TotalAmount = *input.TotalAmount
	}

	if name := strings.TrimSpace(input.SupplierName); name != "" {
		supplier, _, err := suppliers.FindOrCreateByName(ctx, supplierRepo, name)
		if err != nil {
			return nil, err
		}
		bill.SupplierID = &supplier.ID
		bill.SupplierName = supplier.Name
	}

	if err := repo.Create(ctx, bill); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateVoucher, "voucher number already exists").WithDetails(map[string]any{
				"voucherNumber": voucher,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bill")
	}
	return bill, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return bill, nil
}

func (s *service) GetByVoucher(ctx context.Context, voucher string) (*models.Bill, error) {
	bill, err := s.repo.FindByVoucher(ctx, voucher)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return bill, nil
}

func (s *service) List(ctx context.Context, query string, params pagination.Params) (pagination.Page[models.Bill], error) {
	items, total, err := s.repo.List(ctx, query, params)
	if err != nil {
		return pagination.Page[models.Bill]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bills")
	}
	return pagination.NewPage(items, total, params), nil
}

// Delete removes a bill with no serials. Bills that still own serials fail
// with a STATE_CONFLICT wrapping ErrBillReferenced.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return mapLookupError(err)
		}
		count, err := repo.CountSerials(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count bill serials")
		}
		if count > 0 {
			return referencedError(id, count)
		}
		if err := repo.Delete(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return referencedError(id, count)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bill")
		}
		return nil
	})
}

func (s *service) RecomputeTotal(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return decimal.Zero, mapLookupError(err)
	}
	total, err := s.repo.RecomputeTotal(ctx, id)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute bill total")
	}
	return total, nil
}

func referencedError(id uuid.UUID, count int64) error {
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrBillReferenced, "bill still owns serials").WithDetails(map[string]any{
		"bill_id":      id,
		"serial_count": count,
	})
}

func mapLookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "bill not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bill")
}
