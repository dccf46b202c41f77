package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const recentActivityLimit = 10

// Service exposes the read-only inventory rollups.
type Service interface {
	CategorySummary(ctx context.Context) (*CategorySummary, error)
	InStockByBill(ctx context.Context, window DateRange) (*InStockReport, error)
	SPUReport(ctx context.Context, status enums.SPUStatus) (*SPUReport, error)
	StockValuation(ctx context.Context) (*Valuation, error)
	Alerts(ctx context.Context, now time.Time) (*Alerts, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	Dashboard(ctx context.Context, now time.Time) (*Dashboard, error)
}

type service struct {
	repo       Repository
	serialRepo serials.Repository
	thresholds config.AlertsConfig
	logg       *logger.Logger
}

// NewService builds the reports service. Zero thresholds fall back to the
// configured defaults.
func NewService(repo Repository, serialRepo serials.Repository, thresholds config.AlertsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if serialRepo == nil {
		return nil, fmt.Errorf("serials repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:       repo,
		serialRepo: serialRepo,
		thresholds: withDefaults(thresholds),
		logg:       logg,
	}, nil
}

func withDefaults(t config.AlertsConfig) config.AlertsConfig {
	if t.SPUPendingAge <= 0 {
		t.SPUPendingAge = 30 * 24 * time.Hour
	}
	if t.PaymentPendingAge <= 0 {
		t.PaymentPendingAge = 15 * 24 * time.Hour
	}
	if t.ReturnPendingAge <= 0 {
		t.ReturnPendingAge = 7 * 24 * time.Hour
	}
	if t.DetailLimit <= 0 {
		t.DetailLimit = 10
	}
	return t
}

func (s *service) CategorySummary(ctx context.Context) (*CategorySummary, error) {
	totals, err := s.serialRepo.CategoryTotals(ctx)
	if err != nil {
		return nil, queryError(err, "category totals")
	}
	og, err := s.repo.SerialsInCategories(ctx, []enums.Category{enums.CategoryOG})
	if err != nil {
		return nil, queryError(err, "og serials")
	}

	summary := &CategorySummary{
		Categories: make(map[enums.Category]serials.CategoryTotal, len(totals)),
		Ordered:    totals,
		Totals:     serials.CategoryTotal{TotalValue: decimal.Zero},
		OGPayments: ogPayments(og),
	}
	for _, total := range totals {
		summary.Categories[total.Category] = total
		summary.Totals.Count += total.Count
		summary.Totals.TotalValue = summary.Totals.TotalValue.Add(total.TotalValue)
	}
	return summary, nil
}

func ogPayments(og []models.Serial) OGPaymentSummary {
	out := OGPaymentSummary{
		Paid:    Amount{Amount: decimal.Zero},
		Pending: Amount{Amount: decimal.Zero},
		Total:   Amount{Amount: decimal.Zero},
	}
	for _, serial := range og {
		sc := categories.Context(serial.Context)
		amount := contextAmount(sc, categories.FieldCashAmount)
		out.Total.Count++
		out.Total.Amount = out.Total.Amount.Add(amount)
		switch enums.PaymentStatus(sc.String(categories.FieldPaymentStatus)) {
		case enums.PaymentStatusPaid, enums.PaymentStatusWaived:
			out.Paid.Count++
			out.Paid.Amount = out.Paid.Amount.Add(amount)
		default:
			out.Pending.Count++
			out.Pending.Amount = out.Pending.Amount.Add(amount)
		}
	}
	return out
}

func (s *service) InStockByBill(ctx context.Context, window DateRange) (*InStockReport, error) {
	if window.From != nil && window.To != nil && window.To.Before(*window.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	rows, err := s.repo.InStockByBill(ctx, window)
	if err != nil {
		return nil, queryError(err, "in stock by bill")
	}
	report := &InStockReport{Bills: rows, TotalBills: len(rows), TotalValue: decimal.Zero}
	for _, row := range rows {
		report.TotalItems += row.Count
		report.TotalValue = report.TotalValue.Add(row.TotalValue)
	}
	return report, nil
}

// SPUReport groups SPU serials by SPU id. An empty status includes both
// pending and cleared serials; serials without an SPU id share one group.
func (s *service) SPUReport(ctx context.Context, status enums.SPUStatus) (*SPUReport, error) {
	cats, err := spuCategories(status)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.SerialsInCategories(ctx, cats)
	if err != nil {
		return nil, queryError(err, "spu serials")
	}

	groups := map[string]*SPUGroup{}
	order := []string{}
	for _, serial := range rows {
		sc := categories.Context(serial.Context)
		spuID := sc.String(categories.FieldSPUID)
		group, ok := groups[spuID]
		if !ok {
			group = &SPUGroup{
				SPUID:            spuID,
				Status:           enums.SPUStatusFor(serial.Category),
				CustomerName:     sc.String(categories.FieldCustomerName),
				SPUDate:          sc.String(categories.FieldSPUDate),
				SerialNumbers:    []string{},
				TotalValue:       decimal.Zero,
				ChargeableAmount: decimal.Zero,
			}
			groups[spuID] = group
			order = append(order, spuID)
		}
		group.SerialNumbers = append(group.SerialNumbers, serial.SerialNumber)
		group.Count++
		group.TotalValue = group.TotalValue.Add(serial.UnitPrice)
		if sc.Bool(categories.FieldIsChargeable) {
			group.ChargeableAmount = group.ChargeableAmount.Add(contextAmount(sc, categories.FieldChargeAmount))
		}
	}

	report := &SPUReport{
		SPUs:            make([]SPUGroup, 0, len(order)),
		TotalValue:      decimal.Zero,
		TotalChargeable: decimal.Zero,
	}
	for _, id := range order {
		group := groups[id]
		report.SPUs = append(report.SPUs, *group)
		report.TotalItems += group.Count
		report.TotalValue = report.TotalValue.Add(group.TotalValue)
		report.TotalChargeable = report.TotalChargeable.Add(group.ChargeableAmount)
	}
	report.TotalSPUs = len(report.SPUs)
	return report, nil
}

func spuCategories(status enums.SPUStatus) ([]enums.Category, error) {
	switch status {
	case "":
		return []enums.Category{enums.CategorySPUPending, enums.CategorySPUCleared}, nil
	case enums.SPUStatusPending:
		return []enums.Category{enums.CategorySPUPending}, nil
	case enums.SPUStatusCleared:
		return []enums.Category{enums.CategorySPUCleared}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid spu status").
			WithDetails(map[string]any{"status": status})
	}
}

func (s *service) StockValuation(ctx context.Context) (*Valuation, error) {
	rows, err := s.repo.PartStock(ctx)
	if err != nil {
		return nil, queryError(err, "part stock")
	}
	valuation := &Valuation{Parts: rows, TotalValue: decimal.Zero}
	for _, row := range rows {
		valuation.TotalItems += row.InStock
		valuation.TotalValue = valuation.TotalValue.Add(row.TotalValue)
	}
	return valuation, nil
}

func (s *service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	month, err := s.repo.BillsSince(ctx, monthStart)
	if err != nil {
		return nil, queryError(err, "bills this month")
	}
	recent, err := s.repo.RecentMovements(ctx, recentActivityLimit)
	if err != nil {
		return nil, queryError(err, "recent movements")
	}
	return &Stats{ThisMonth: month, RecentActivity: movements.FromModels(recent)}, nil
}

// Dashboard loads the summary, alert and stats panels concurrently.
func (s *service) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	var out Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.CategorySummary(gctx)
		if err != nil {
			return err
		}
		out.Summary = *summary
		return nil
	})
	g.Go(func() error {
		alerts, err := s.Alerts(gctx, now)
		if err != nil {
			return err
		}
		out.Alerts = *alerts
		return nil
	})
	g.Go(func() error {
		stats, err := s.Stats(gctx, now)
		if err != nil {
			return err
		}
		out.Stats = *stats
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logg.Error(ctx, "dashboard load failed", err)
		return nil, err
	}
	return &out, nil
}

func contextAmount(sc categories.Context, field string) decimal.Decimal {
	value, ok := sc.Number(field)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(value).Round(2)
}

func sortLines(lines []SerialLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Since.Before(lines[j].Since)
	})
}

func queryError(err error, what string) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "report query failed").
		WithDetails(map[string]any{"query": what})
}
