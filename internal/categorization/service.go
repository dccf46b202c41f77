package categorization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxBulkSerials caps the ids accepted by one BulkCategorize call.
const MaxBulkSerials = 500

// ErrNotChargeable is returned when payment details are sent for a serial
// whose current context carries no charge.
var ErrNotChargeable = errors.New("serial is not chargeable")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CategorizeInput moves one serial to Category with Context.
type CategorizeInput struct {
	SerialID uuid.UUID      `json:"serialId" validate:"required"`
	Category enums.Category `json:"category" validate:"required"`
	Context  map[string]any `json:"context"`
	Reason   string         `json:"reason"`
}

// BulkCategorizeInput applies the same category and context to many serials.
type BulkCategorizeInput struct {
	SerialIDs []uuid.UUID    `json:"serialIds" validate:"required,min=1,max=500"`
	Category  enums.Category `json:"category" validate:"required"`
	Context   map[string]any `json:"context"`
	Reason    string         `json:"reason"`
}

// PaymentInput updates the payment fields of a chargeable serial.
type PaymentInput struct {
	PaymentStatus enums.PaymentStatus `json:"paymentStatus" validate:"required"`
	PaymentDate   *string             `json:"paymentDate"`
	PaymentMode   *enums.PaymentMode  `json:"paymentMode"`
	Reason        string              `json:"reason"`
}

// Failure reports one serial of a bulk call that was not moved.
type Failure struct {
	SerialID   uuid.UUID              `json:"serialId"`
	Code       pkgerrors.Code         `json:"code"`
	Reason     string                 `json:"reason"`
	Violations []categories.Violation `json:"violations,omitempty"`
}

// BulkResult lists moved serials and per-serial failures.
type BulkResult struct {
	Updated []models.Serial `json:"updated"`
	Failed  []Failure       `json:"failed"`
}

// Service is the only path that changes a serial's category or context.
type Service interface {
	Categorize(ctx context.Context, input CategorizeInput, actor types.Actor) (*models.Serial, error)
	BulkCategorize(ctx context.Context, input BulkCategorizeInput, actor types.Actor) (BulkResult, error)
	UpdatePayment(ctx context.Context, serialID uuid.UUID, input PaymentInput, actor types.Actor) (*models.Serial, error)
	UpdateContext(ctx context.Context, serialID uuid.UUID, raw map[string]any, reason string, actor types.Actor) (*models.Serial, error)
	Summary(ctx context.Context) ([]serials.CategoryTotal, error)
}

type service struct {
	tx      txRunner
	serials serials.Repository
	ledger  movements.Repository
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the categorization engine. metrics and logg may be nil.
func NewService(tx txRunner, serialRepo serials.Repository, ledger movements.Repository, m *metrics.InventoryMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if serialRepo == nil {
		return nil, fmt.Errorf("serials repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("movements repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:      tx,
		serials: serialRepo,
		ledger:  ledger,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Categorize loads the serial, validates the context against the target
// category, then updates the serial and appends its ledger entry in one
// transaction.
func (s *service) Categorize(ctx context.Context, input CategorizeInput, actor types.Actor) (*models.Serial, error) {
	return s.move(ctx, input.SerialID, input.Category, input.Context, input.Reason, actor)
}

// BulkCategorize moves each serial independently; one serial failing does
// not affect the others. The shared context is validated once, and when it
// is invalid every serial is reported failed with its violations and none
// is touched.
func (s *service) BulkCategorize(ctx context.Context, input BulkCategorizeInput, actor types.Actor) (BulkResult, error) {
	if len(input.SerialIDs) == 0 {
		return BulkResult{}, pkgerrors.New(pkgerrors.CodeValidation, "serialIds must not be empty")
	}
	if len(input.SerialIDs) > MaxBulkSerials {
		return BulkResult{}, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d serials per call", MaxBulkSerials)
	}
	if !input.Category.IsValid() {
		return BulkResult{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown category").
			WithDetail("category", input.Category)
	}

	result := BulkResult{Updated: []models.Serial{}, Failed: []Failure{}}
	_, contextErr := categories.Validate(input.Category, input.Context)
	for _, id := range input.SerialIDs {
		if contextErr != nil {
			result.Failed = append(result.Failed, failureFor(id, contextErr))
			continue
		}
		serial, err := s.move(ctx, id, input.Category, input.Context, input.Reason, actor)
		if err != nil {
			result.Failed = append(result.Failed, failureFor(id, err))
			continue
		}
		result.Updated = append(result.Updated, *serial)
	}

	logCtx := s.logg.WithActorID(ctx, actor.OrSystem().ID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"category": input.Category,
		"updated":  len(result.Updated),
		"failed":   len(result.Failed),
	})
	s.logg.Info(logCtx, "bulk categorize finished")
	return result, nil
}

func (s *service) move(ctx context.Context, serialID uuid.UUID, to enums.Category, raw map[string]any, reason string, actor types.Actor) (*models.Serial, error) {
	var (
		updated      *models.Serial
		movementType enums.MovementType
		from         enums.Category
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.serials.WithTx(tx)
		serial, err := loadSerial(ctx, repo, serialID)
		if err != nil {
			return err
		}
		from = serial.Category
		movementType = enums.TransitionMovementType(from)

		normalized, err := categories.Validate(to, raw)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		serials.ApplyCategory(serial, to, normalized, &now)
		if err := s.write(ctx, tx, serial, from, movementType, reason, actor); err != nil {
			return err
		}
		updated = serial
		return nil
	})
	if err != nil {
		s.metrics.ObserveTransition(string(movementType), string(to), metrics.OutcomeFailure)
		return nil, err
	}
	s.metrics.ObserveTransition(string(movementType), string(to), metrics.OutcomeSuccess)

	logCtx := s.logg.WithSerialID(ctx, serialID.String())
	logCtx = s.logg.WithActorID(logCtx, actor.OrSystem().ID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{"from": from, "to": to})
	s.logg.Debug(logCtx, "serial categorized")
	return updated, nil
}

// UpdatePayment merges payment fields into the current context and records
// a PAYMENT_UPDATE. The category does not change.
func (s *service) UpdatePayment(ctx context.Context, serialID uuid.UUID, input PaymentInput, actor types.Actor) (*models.Serial, error) {
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", input.PaymentStatus)
	}

	var updated *models.Serial
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.serials.WithTx(tx)
		serial, err := loadSerial(ctx, repo, serialID)
		if err != nil {
			return err
		}
		schema, ok := categories.SchemaFor(serial.Category)
		if !ok || !schema.Allows(categories.FieldPaymentStatus) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "category %s does not carry payment details", serial.Category)
		}
		current := categories.Context(serial.Context)
		if serial.Category != enums.CategoryOG && !current.Bool(categories.FieldIsChargeable) {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotChargeable, "serial is not chargeable").WithDetails(map[string]any{
				"serial_id": serialID,
			})
		}

		merged := cloneContext(current)
		merged[categories.FieldPaymentStatus] = string(input.PaymentStatus)
		if input.PaymentDate != nil {
			merged[categories.FieldPaymentDate] = *input.PaymentDate
		}
		if input.PaymentMode != nil {
			merged[categories.FieldPaymentMode] = string(*input.PaymentMode)
		}
		normalized, err := categories.Validate(serial.Category, merged)
		if err != nil {
			return err
		}

		serials.ApplyCategory(serial, serial.Category, normalized, nil)
		if err := s.write(ctx, tx, serial, serial.Category, enums.MovementTypePaymentUpdate, reasonOr(input.Reason, "payment updated"), actor); err != nil {
			return err
		}
		updated = serial
		return nil
	})
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ObserveTransition(string(enums.MovementTypePaymentUpdate), "", outcome)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateContext replaces the context for the serial's current category and
// records a CONTEXT_UPDATE.
func (s *service) UpdateContext(ctx context.Context, serialID uuid.UUID, raw map[string]any, reason string, actor types.Actor) (*models.Serial, error) {
	var updated *models.Serial
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.serials.WithTx(tx)
		serial, err := loadSerial(ctx, repo, serialID)
		if err != nil {
			return err
		}
		normalized, err := categories.Validate(serial.Category, raw)
		if err != nil {
			return err
		}
		serials.ApplyCategory(serial, serial.Category, normalized, nil)
		if err := s.write(ctx, tx, serial, serial.Category, enums.MovementTypeContextUpdate, reasonOr(reason, "context updated"), actor); err != nil {
			return err
		}
		updated = serial
		return nil
	})
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ObserveTransition(string(enums.MovementTypeContextUpdate), "", outcome)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Summary(ctx context.Context) ([]serials.CategoryTotal, error) {
	out, err := s.serials.CategoryTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize categories")
	}
	return out, nil
}

// write saves serial and appends its ledger entry on tx.
func (s *service) write(ctx context.Context, tx *gorm.DB, serial *models.Serial, from enums.Category, movementType enums.MovementType, reason string, actor types.Actor) error {
	actor = actor.OrSystem()
	serial.UpdatedByID = actor.ID
	serial.UpdatedByName = actor.Name
	if err := s.serials.WithTx(tx).Update(ctx, serial); err != nil {
		s.logg.Error(s.logg.WithSerialID(ctx, serial.ID.String()), "update serial failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update serial")
	}
	fromCategory := from
	_, err := movements.Append(ctx, s.ledger.WithTx(tx), movements.Entry{
		SerialID:     serial.ID,
		SerialNumber: serial.SerialNumber,
		From:         &fromCategory,
		To:           serial.Category,
		Type:         movementType,
		Reason:       reason,
	}, actor)
	return err
}

func loadSerial(ctx context.Context, repo serials.Repository, id uuid.UUID) (*models.Serial, error) {
	serial, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, movements.NotFoundError(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load serial")
	}
	return serial, nil
}

func cloneContext(in map[string]any) categories.Context {
	out := make(categories.Context, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func reasonOr(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}
	return reason
}

func failureFor(id uuid.UUID, err error) Failure {
	failure := Failure{
		SerialID:   id,
		Code:       pkgerrors.CodeOf(err),
		Reason:     err.Error(),
		Violations: categories.ViolationsOf(err),
	}
	if typed := pkgerrors.As(err); typed != nil {
		failure.Reason = typed.Message()
	}
	return failure
}
