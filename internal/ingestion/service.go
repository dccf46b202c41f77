package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/bills"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/internal/suppliers"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/redis"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	lockName       = "import"
	lookupChunk    = 500
	defaultLockTTL = 2 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ValidationReport previews what an import would do.
type ValidationReport struct {
	TotalBills       int      `json:"totalBills"`
	NewBills         int      `json:"newBills"`
	DuplicateBills   []string `json:"duplicateBills"`
	TotalParts       int      `json:"totalParts"`
	TotalSerials     int      `json:"totalSerials"`
	DuplicateSerials []string `json:"duplicateSerials"`
}

// ImportError reports a bill or serial that was not written.
type ImportError struct {
	VoucherNumber string `json:"voucherNumber"`
	SerialNumber  string `json:"serialNumber,omitempty"`
	Reason        string `json:"reason"`
}

// ImportResult summarizes an import run.
type ImportResult struct {
	BillsCreated   int           `json:"billsCreated"`
	SerialsCreated int           `json:"serialsCreated"`
	PartsCreated   int           `json:"partsCreated"`
	Duplicates     int           `json:"duplicates"`
	SkippedBills   []string      `json:"skippedBills"`
	Errors         []ImportError `json:"errors"`
}

// Service exposes the spreadsheet ingestion pipeline.
type Service interface {
	Parse(ctx context.Context, r io.Reader) ([]Bill, error)
	Validate(ctx context.Context, bills []Bill) (ValidationReport, error)
	Import(ctx context.Context, bills []Bill, actor types.Actor) (ImportResult, error)
}

// Deps are the collaborators of the ingestion service.
type Deps struct {
	Tx        txRunner
	Bills     bills.Repository
	Suppliers suppliers.Repository
	Parts     parts.Repository
	Serials   serials.Repository
	Movements movements.Repository
	Locker    redis.Locker
	LockTTL   time.Duration
	Parser    Parser
	Metrics   *metrics.InventoryMetrics
	Logger    *logger.Logger
}

type service struct {
	Deps
}

// NewService wires the ingestion pipeline. Locker, Metrics and Logger are
// optional.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Bills == nil {
		return nil, fmt.Errorf("bills repository required")
	}
	if deps.Suppliers == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if deps.Parts == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	if deps.Serials == nil {
		return nil, fmt.Errorf("serials repository required")
	}
	if deps.Movements == nil {
		return nil, fmt.Errorf("movements repository required")
	}
	if deps.Locker == nil {
		deps.Locker = redis.NopLocker{}
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = defaultLockTTL
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &service{Deps: deps}, nil
}

func (s *service) Parse(ctx context.Context, r io.Reader) ([]Bill, error) {
	start := time.Now()
	out, err := s.Parser.Parse(r)
	s.Metrics.ObserveImportStage("parse", time.Since(start))
	if err != nil {
		s.Logger.Warn(ctx, err.Error())
		return nil, err
	}
	return out, nil
}

// Validate flags bills whose voucher number is already stored or repeats an
// earlier bill in the same batch. Flagged bills are skipped by Import.
func (s *service) Validate(ctx context.Context, input []Bill) (ValidationReport, error) {
	start := time.Now()
	defer func() { s.Metrics.ObserveImportStage("validate", time.Since(start)) }()

	report := ValidationReport{TotalBills: len(input), DuplicateBills: []string{}, DuplicateSerials: []string{}}
	report.TotalParts, report.TotalSerials = Counts(input)

	vouchers := make([]string, 0, len(input))
	var serialNumbers []string
	for _, bill := range input {
		vouchers = append(vouchers, strings.TrimSpace(bill.VoucherNumber))
		for _, item := range bill.Items {
			for _, entry := range item.SerialNumbers {
				serialNumbers = append(serialNumbers, strings.TrimSpace(entry.SerialNumber))
			}
		}
	}

	stored, err := inChunks(ctx, vouchers, s.Bills.ExistingVouchers)
	if err != nil {
		return ValidationReport{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing vouchers")
	}
	seen := make(map[string]bool, len(vouchers))
	for _, voucher := range vouchers {
		if stored[voucher] || seen[voucher] {
			report.DuplicateBills = append(report.DuplicateBills, voucher)
		}
		seen[voucher] = true
	}
	report.NewBills = report.TotalBills - len(report.DuplicateBills)

	storedSerials, err := inChunks(ctx, serialNumbers, s.Serials.ExistingSerialNumbers)
	if err != nil {
		return ValidationReport{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing serial numbers")
	}
	seenSerials := make(map[string]bool, len(serialNumbers))
	for _, number := range serialNumbers {
		if storedSerials[number] || seenSerials[number] {
			report.DuplicateSerials = append(report.DuplicateSerials, number)
		}
		seenSerials[number] = true
	}
	return report, nil
}

// Import writes each bill not already stored. A bill is one transaction and
// each serial runs under its own savepoint, so a duplicate serial is counted
// and skipped while the rest of the bill commits. Re-running the same input
// creates nothing new.
func (s *service) Import(ctx context.Context, input []Bill, actor types.Actor) (ImportResult, error) {
	actor = actor.OrSystem()
	ctx = s.Logger.WithActorID(ctx, actor.ID)

	lease, err := s.Locker.Obtain(ctx, lockName, s.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotObtained) {
			return ImportResult{}, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "another import is in progress")
		}
		return ImportResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtain import lock")
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Warn(ctx, "release import lock: "+err.Error())
		}
	}()

	start := time.Now()
	result := ImportResult{SkippedBills: []string{}, Errors: []ImportError{}}
	for _, bill := range input {
		var outcome billOutcome
		err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			// reset on retry
			outcome = billOutcome{}
			return s.importBill(ctx, tx, bill, actor, &outcome)
		})
		voucher := strings.TrimSpace(bill.VoucherNumber)
		if err != nil {
			s.Logger.Error(s.Logger.WithVoucher(ctx, voucher), "import bill failed", err)
			result.Errors = append(result.Errors, ImportError{VoucherNumber: voucher, Reason: reasonOf(err)})
			s.Metrics.AddImportItems("bill", metrics.OutcomeFailure, 1)
			continue
		}
		if outcome.skipped {
			result.SkippedBills = append(result.SkippedBills, voucher)
			s.Metrics.AddImportItems("bill", metrics.OutcomeDuplicate, 1)
			continue
		}
		result.BillsCreated++
		result.PartsCreated += outcome.partsCreated
		result.SerialsCreated += outcome.serialsCreated
		result.Duplicates += outcome.duplicates
		result.Errors = append(result.Errors, outcome.errors...)

		s.Metrics.AddImportItems("bill", metrics.OutcomeSuccess, 1)
		s.Metrics.AddImportItems("part", metrics.OutcomeSuccess, outcome.partsCreated)
		s.Metrics.AddImportItems("serial", metrics.OutcomeSuccess, outcome.serialsCreated)
		s.Metrics.AddImportItems("serial", metrics.OutcomeDuplicate, outcome.duplicates)
		s.Metrics.AddImportItems("serial", metrics.OutcomeFailure, len(outcome.errors)-outcome.duplicates)
	}
	s.Metrics.ObserveImportStage("apply", time.Since(start))

	s.Logger.Info(s.Logger.WithFields(ctx, map[string]any{
		"bills_created":   result.BillsCreated,
		"bills_skipped":   len(result.SkippedBills),
		"parts_created":   result.PartsCreated,
		"serials_created": result.SerialsCreated,
		"duplicates":      result.Duplicates,
		"errors":          len(result.Errors),
	}), "import finished")
	return result, nil
}

type billOutcome struct {
	skipped        bool
	partsCreated   int
	serialsCreated int
	duplicates     int
	errors         []ImportError
}

func (s *service) importBill(ctx context.Context, tx *gorm.DB, bill Bill, actor types.Actor, outcome *billOutcome) error {
	billRepo := s.Bills.WithTx(tx)
	partRepo := s.Parts.WithTx(tx)
	serialRepo := s.Serials.WithTx(tx)
	ledger := s.Movements.WithTx(tx)

	voucher := strings.TrimSpace(bill.VoucherNumber)
	if voucher == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "voucher number is required")
	}
	if _, err := billRepo.FindByVoucher(ctx, voucher); err == nil {
		outcome.skipped = true
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check voucher")
	}

	created, err := bills.CreateWithSupplier(ctx, billRepo, s.Suppliers.WithTx(tx), bills.CreateBillInput{
		VoucherNumber: voucher,
		SupplierName:  bill.SupplierName,
		BillDate:      bill.BillDate,
	}, actor)
	if err != nil {
		return err
	}

	touched := map[uuid.UUID]bool{}
	for _, item := range bill.Items {
		part, partCreated, err := parts.FindOrCreateByCode(ctx, partRepo, item.PartCode, item.PartName)
		if err != nil {
			return err
		}
		if partCreated {
			outcome.partsCreated++
		}

		for _, entry := range item.SerialNumbers {
			raw := map[string]any{}
			if notes := strings.TrimSpace(entry.Notes); notes != "" {
				raw[categories.FieldRemarks] = notes
			}
			serial, err := serials.Build(entry.SerialNumber, created.ID, part, entry.UnitPrice, entry.Category, raw, actor)
			if err == nil {
				err = serials.Insert(ctx, serialRepo, ledger, serial, actor)
			}
			if err != nil {
				if errors.Is(err, serials.ErrDuplicateSerialNumber) {
					outcome.duplicates++
				}
				outcome.errors = append(outcome.errors, ImportError{
					VoucherNumber: voucher,
					SerialNumber:  entry.SerialNumber,
					Reason:        reasonOf(err),
				})
				continue
			}
			outcome.serialsCreated++
			touched[part.ID] = true
		}
	}

	for partID := range touched {
		if _, err := partRepo.RecomputeAveragePrice(ctx, partID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute part average price")
		}
	}
	if _, err := billRepo.RecomputeTotal(ctx, created.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute bill total")
	}
	return nil
}

func inChunks(ctx context.Context, values []string, lookup func(context.Context, []string) ([]string, error)) (map[string]bool, error) {
	found := map[string]bool{}
	for start := 0; start < len(values); start += lookupChunk {
		end := start + lookupChunk
		if end > len(values) {
			end = len(values)
		}
		hits, err := lookup(ctx, values[start:end])
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			found[hit] = true
		}
	}
	return found, nil
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
