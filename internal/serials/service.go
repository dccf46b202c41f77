package serials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/bills"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxGenerateCount caps how many serials one Generate call may produce.
const MaxGenerateCount = 100

const (
	SourceManual   = "manual"
	SourceBulk     = "bulk"
	SourceGenerate = "generate"
	SourceImport   = "import"
)

var (
	// ErrDuplicateSerialNumber is returned when the serial number is already stored.
	ErrDuplicateSerialNumber = errors.New("duplicate serial number")
	// ErrSerialNotFound is returned when a serial id or number does not resolve.
	ErrSerialNotFound = movements.ErrSerialNotFound
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateSerialInput describes one unit to register. The part is resolved by
// PartID, else by PartName (created when missing), else by PartCode.
type CreateSerialInput struct {
	SerialNumber string          `json:"serialNumber" validate:"required"`
	BillID       uuid.UUID       `json:"billId" validate:"required"`
	PartID       *uuid.UUID      `json:"partId"`
	PartName     string          `json:"partName"`
	PartCode     string          `json:"partCode"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Category     enums.Category  `json:"category"`
	Context      map[string]any  `json:"context"`
}

// GenerateInput produces Count serials numbered Prefix + 4-digit sequence.
type GenerateInput struct {
	BillID      uuid.UUID       `json:"billId" validate:"required"`
	Prefix      string          `json:"prefix"`
	StartNumber int             `json:"startNumber" validate:"gte=0"`
	Count       int             `json:"count" validate:"required,min=1,max=100"`
	PartID      *uuid.UUID      `json:"partId"`
	PartName    string          `json:"partName"`
	PartCode    string          `json:"partCode"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Category    enums.Category  `json:"category"`
	Context     map[string]any  `json:"context"`
}

// Failure reports one item of a bulk call that was not written.
type Failure struct {
	SerialNumber string         `json:"serialNumber"`
	Code         pkgerrors.Code `json:"code"`
	Reason       string         `json:"reason"`
}

// BulkResult lists the serials written and the items that failed.
type BulkResult struct {
	Created []models.Serial `json:"created"`
	Failed  []Failure       `json:"failed"`
}

// Service exposes the serial record store.
type Service interface {
	Create(ctx context.Context, input CreateSerialInput, actor types.Actor) (*models.Serial, error)
	BulkCreate(ctx context.Context, inputs []CreateSerialInput, actor types.Actor) BulkResult
	Generate(ctx context.Context, input GenerateInput, actor types.Actor) (BulkResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Serial, error)
	GetBySerialNumber(ctx context.Context, serialNumber string) (*models.Serial, error)
	Exists(ctx context.Context, serialNumber string) (bool, error)
	GetByBillID(ctx context.Context, billID uuid.UUID) ([]models.Serial, error)
	ListByCategory(ctx context.Context, category enums.Category, params pagination.Params) (pagination.Page[models.Serial], error)
	Search(ctx context.Context, query string, filters SearchFilters, params pagination.Params) (pagination.Page[models.Serial], error)
}

type service struct {
	tx      txRunner
	repo    Repository
	ledger  movements.Repository
	parts   parts.Repository
	bills   bills.Repository
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
}

// NewService wires the serial store. metrics and logg may be nil.
func NewService(
	tx txRunner,
	repo Repository,
	ledger movements.Repository,
	partRepo parts.Repository,
	billRepo bills.Repository,
	m *metrics.InventoryMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("serials repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("movements repository required")
	}
	if partRepo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	if billRepo == nil {
		return nil, fmt.Errorf("bills repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:      tx,
		repo:    repo,
		ledger:  ledger,
		parts:   partRepo,
		bills:   billRepo,
		metrics: m,
		logg:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateSerialInput, actor types.Actor) (*models.Serial, error) {
	return s.create(ctx, input, actor, SourceManual)
}

func (s *service) create(ctx context.Context, input CreateSerialInput, actor types.Actor, source string) (*models.Serial, error) {
	var created *models.Serial
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		partRepo := s.parts.WithTx(tx)

		if _, err := s.bills.WithTx(tx).FindByID(ctx, input.BillID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "bill not found").WithDetails(map[string]any{"bill_id": input.BillID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bill")
		}
		part, err := resolvePart(ctx, partRepo, input)
		if err != nil {
			return err
		}
		serial, err := Build(input.SerialNumber, input.BillID, part, input.UnitPrice, input.Category, input.Context, actor)
		if err != nil {
			return err
		}
		if err := Insert(ctx, s.repo.WithTx(tx), s.ledger.WithTx(tx), serial, actor); err != nil {
			return err
		}
		if _, err := partRepo.RecomputeAveragePrice(ctx, part.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute part average price")
		}
		created = serial
		return nil
	})
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, ErrDuplicateSerialNumber) {
			outcome = metrics.OutcomeDuplicate
		}
		s.metrics.ObserveSerialCreated(source, outcome)
		return nil, err
	}
	s.metrics.ObserveSerialCreated(source, metrics.OutcomeSuccess)
	return created, nil
}

// BulkCreate writes each input in its own transaction. One failure does not
// stop the others; every failure is reported with its serial number.
func (s *service) BulkCreate(ctx context.Context, inputs []CreateSerialInput, actor types.Actor) BulkResult {
	return s.bulk(ctx, inputs, actor, SourceBulk)
}

func (s *service) bulk(ctx context.Context, inputs []CreateSerialInput, actor types.Actor, source string) BulkResult {
	result := BulkResult{Created: []models.Serial{}, Failed: []Failure{}}
	for _, input := range inputs {
		serial, err := s.create(ctx, input, actor, source)
		if err != nil {
			result.Failed = append(result.Failed, failureFor(input.SerialNumber, err))
			continue
		}
		result.Created = append(result.Created, *serial)
	}

	ctx = s.logg.WithActorID(ctx, actor.OrSystem().ID)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"source":  source,
		"created": len(result.Created),
		"failed":  len(result.Failed),
	})
	s.logg.Info(ctx, "bulk serial create finished")
	return result
}

func (s *service) Generate(ctx context.Context, input GenerateInput, actor types.Actor) (BulkResult, error) {
	numbers, err := GenerateNumbers(input.Prefix, input.StartNumber, input.Count)
	if err != nil {
		return BulkResult{}, err
	}
	inputs := make([]CreateSerialInput, 0, len(numbers))
	for _, number := range numbers {
		inputs = append(inputs, CreateSerialInput{
			SerialNumber: number,
			BillID:       input.BillID,
			PartID:       input.PartID,
			PartName:     input.PartName,
			PartCode:     input.PartCode,
			UnitPrice:    input.UnitPrice,
			Category:     input.Category,
			Context:      input.Context,
		})
	}
	return s.bulk(ctx, inputs, actor, SourceGenerate), nil
}

// GenerateNumbers returns count serial numbers of the form prefix + n,
// zero-padded to four digits, starting at start (1 when zero).
func GenerateNumbers(prefix string, start, count int) ([]string, error) {
	if count < 1 || count > MaxGenerateCount {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "count must be between 1 and %d", MaxGenerateCount)
	}
	if start < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start number must not be negative")
	}
	if start == 0 {
		start = 1
	}
	prefix = strings.TrimSpace(prefix)
	out := make([]string, 0, count)
	for n := start; n < start+count; n++ {
		out = append(out, fmt.Sprintf("%s%04d", prefix, n))
	}
	return out, nil
}

// Delete hard-deletes a serial. Its ledger entries are kept.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		serial, err := repo.FindByID(ctx, id)
		if err != nil {
			return mapLookupError(err, id)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete serial")
		}
		if _, err := s.parts.WithTx(tx).RecomputeAveragePrice(ctx, serial.PartID); err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute part average price")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Serial, error) {
	serial, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return serial, nil
}

func (s *service) GetBySerialNumber(ctx context.Context, serialNumber string) (*models.Serial, error) {
	serial, err := s.repo.FindBySerialNumber(ctx, strings.TrimSpace(serialNumber))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrSerialNotFound, "serial not found").WithDetails(map[string]any{
				"serial_number": serialNumber,
			})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load serial")
	}
	return serial, nil
}

func (s *service) Exists(ctx context.Context, serialNumber string) (bool, error) {
	exists, err := s.repo.ExistsBySerialNumber(ctx, strings.TrimSpace(serialNumber))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check serial number")
	}
	return exists, nil
}

func (s *service) GetByBillID(ctx context.Context, billID uuid.UUID) ([]models.Serial, error) {
	out, err := s.repo.ListByBillID(ctx, billID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bill serials")
	}
	return out, nil
}

func (s *service) ListByCategory(ctx context.Context, category enums.Category, params pagination.Params) (pagination.Page[models.Serial], error) {
	if !category.IsValid() {
		return pagination.Page[models.Serial]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown category %q", category)
	}
	items, total, err := s.repo.ListByCategory(ctx, category, params)
	if err != nil {
		return pagination.Page[models.Serial]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list serials by category")
	}
	return pagination.NewPage(items, total, params), nil
}

func (s *service) Search(ctx context.Context, query string, filters SearchFilters, params pagination.Params) (pagination.Page[models.Serial], error) {
	if filters.Category != "" && !filters.Category.IsValid() {
		return pagination.Page[models.Serial]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown category %q", filters.Category)
	}
	items, total, err := s.repo.Search(ctx, query, filters, params)
	if err != nil {
		return pagination.Page[models.Serial]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search serials")
	}
	return pagination.NewPage(items, total, params), nil
}

// Build assembles a serial for part with its context normalized for category.
// Required category fields are not enforced here; categorization enforces them.
func Build(serialNumber string, billID uuid.UUID, part *models.Part, unitPrice decimal.Decimal, category enums.Category, raw map[string]any, actor types.Actor) (*models.Serial, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number is required")
	}
	if unitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	if category == "" {
		category = enums.CategoryUncategorized
	}
	normalized, err := categories.Normalize(category, raw)
	if err != nil {
		return nil, err
	}

	actor = actor.OrSystem()
	serial := &models.Serial{
		SerialNumber:  serialNumber,
		BillID:        billID,
		PartID:        part.ID,
		PartCode:      part.Code,
		PartName:      part.Name,
		UnitPrice:     unitPrice.Round(2),
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
		UpdatedByID:   actor.ID,
		UpdatedByName: actor.Name,
	}
	var categorizedAt *time.Time
	if category != enums.CategoryUncategorized {
		now := time.Now().UTC()
		categorizedAt = &now
	}
	ApplyCategory(serial, category, normalized, categorizedAt)
	return serial, nil
}

// ApplyCategory sets the category and context on serial and refreshes the
// customer and SPU projections. A nil at leaves CategorizedAt unchanged.
func ApplyCategory(serial *models.Serial, category enums.Category, c categories.Context, at *time.Time) {
	serial.Category = category
	serial.Context = datatypes.JSONMap(c)
	serial.CustomerName = optional(c.String(categories.FieldCustomerName))
	serial.SPUID = optional(c.String(categories.FieldSPUID))
	if at != nil {
		serial.CategorizedAt = at
	}
}

// Insert writes serial and its INITIAL_ENTRY movement under one savepoint.
// A taken serial number fails with ErrDuplicateSerialNumber and leaves the
// enclosing transaction usable.
func Insert(ctx context.Context, repo Repository, ledger movements.Repository, serial *models.Serial, actor types.Actor) error {
	err := db.Savepoint(repo.Conn(), "serial_insert", func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Create(ctx, serial); err != nil {
			return err
		}
		_, err := movements.Append(ctx, ledger.WithTx(tx), movements.Entry{
			SerialID:     serial.ID,
			SerialNumber: serial.SerialNumber,
			To:           serial.Category,
			Type:         enums.MovementTypeInitialEntry,
			Reason:       "created",
		}, actor)
		return err
	})
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "serial_number") {
		return DuplicateError(serial.SerialNumber)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create serial")
}

// DuplicateError wraps ErrDuplicateSerialNumber as a CONFLICT for serialNumber.
func DuplicateError(serialNumber string) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateSerialNumber, "serial number already exists").WithDetails(map[string]any{
		"serial_number": serialNumber,
	})
}

func resolvePart(ctx context.Context, repo parts.Repository, input CreateSerialInput) (*models.Part, error) {
	switch {
	case input.PartID != nil && *input.PartID != uuid.Nil:
		part, err := repo.FindByID(ctx, *input.PartID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "part not found").WithDetails(map[string]any{"part_id": *input.PartID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load part")
		}
		return part, nil
	case strings.TrimSpace(input.PartName) != "":
		part, _, err := parts.FindOrCreateByName(ctx, repo, input.PartName, input.PartCode)
		return part, err
	case strings.TrimSpace(input.PartCode) != "":
		part, _, err := parts.FindOrCreateByCode(ctx, repo, input.PartCode, "")
		return part, err
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partId, partName or partCode is required")
	}
}

func failureFor(serialNumber string, err error) Failure {
	failure := Failure{SerialNumber: serialNumber, Code: pkgerrors.CodeOf(err), Reason: err.Error()}
	if typed := pkgerrors.As(err); typed != nil {
		failure.Reason = typed.Message()
	}
	return failure
}

func mapLookupError(err error, id uuid.UUID) error {
	if db.IsNotFound(err) {
		return movements.NotFoundError(id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load serial")
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
