package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// Alerts evaluates every alert bucket as of now.
func (s *service) Alerts(ctx context.Context, now time.Time) (*Alerts, error) {
	watched, err := s.repo.SerialsInCategories(ctx, []enums.Category{
		enums.CategorySPUPending, enums.CategoryOG, enums.CategoryReturn, enums.CategoryReturnPending,
	})
	if err != nil {
		return nil, queryError(err, "alert serials")
	}
	chargeable, err := s.repo.ChargeableSerials(ctx, []enums.Category{enums.CategoryOG})
	if err != nil {
		return nil, queryError(err, "chargeable serials")
	}
	uncategorized, err := s.repo.UncategorizedCounts(ctx)
	if err != nil {
		return nil, queryError(err, "uncategorized counts")
	}
	stock, err := s.repo.PartStock(ctx)
	if err != nil {
		return nil, queryError(err, "part stock")
	}

	spuCutoff := now.Add(-s.thresholds.SPUPendingAge)
	paymentCutoff := now.Add(-s.thresholds.PaymentPendingAge)
	returnCutoff := now.Add(-s.thresholds.ReturnPendingAge)

	out := &Alerts{Details: AlertDetails{
		SPUPendingOld:  []SerialLine{},
		PaymentPending: []SerialLine{},
		LowStock:       []PartStock{},
	}}
	out.Alerts.Uncategorized = uncategorized

	for _, serial := range watched {
		sc := categories.Context(serial.Context)
		switch serial.Category {
		case enums.CategorySPUPending:
			since := spuSince(serial, sc)
			if since.Before(spuCutoff) {
				out.Alerts.SPUPendingOld.Count++
				out.Details.SPUPendingOld = append(out.Details.SPUPendingOld, lineFor(serial, sc, since, categories.FieldChargeAmount))
			}
		case enums.CategoryOG:
			since := categorizedSince(serial)
			if paymentOutstanding(sc) && since.Before(paymentCutoff) {
				out.Alerts.PaymentPending.Count++
				out.Details.PaymentPending = append(out.Details.PaymentPending, lineFor(serial, sc, since, categories.FieldCashAmount))
			}
		case enums.CategoryReturn, enums.CategoryReturnPending:
			if categorizedSince(serial).Before(returnCutoff) {
				out.Alerts.ReturnPending.Count++
			}
		}
	}
	for _, serial := range chargeable {
		if paymentOutstanding(categories.Context(serial.Context)) {
			out.Alerts.ChargeablePending.Count++
		}
	}

	for _, part := range stock {
		if part.BelowReorder {
			out.Alerts.LowStock.Count++
			out.Details.LowStock = append(out.Details.LowStock, part)
		}
	}

	sortLines(out.Details.SPUPendingOld)
	sortLines(out.Details.PaymentPending)
	limit := s.thresholds.DetailLimit
	out.Details.SPUPendingOld = truncate(out.Details.SPUPendingOld, limit)
	out.Details.PaymentPending = truncate(out.Details.PaymentPending, limit)
	out.Details.LowStock = truncate(out.Details.LowStock, limit)

	a := out.Alerts
	out.TotalAlerts = a.SPUPendingOld.Count + a.PaymentPending.Count + a.ReturnPending.Count +
		a.Uncategorized.Count + a.ChargeablePending.Count + a.LowStock.Count
	return out, nil
}

// paymentOutstanding treats a missing status as pending.
func paymentOutstanding(sc categories.Context) bool {
	status := enums.PaymentStatus(sc.String(categories.FieldPaymentStatus))
	return status == "" || status.IsOutstanding()
}

func spuSince(serial models.Serial, sc categories.Context) time.Time {
	if raw := sc.String(categories.FieldSPUDate); raw != "" {
		if parsed, err := categories.ParseDate(raw); err == nil {
			return parsed
		}
	}
	return categorizedSince(serial)
}

func categorizedSince(serial models.Serial) time.Time {
	if serial.CategorizedAt != nil {
		return serial.CategorizedAt.UTC()
	}
	return serial.CreatedAt.UTC()
}

func lineFor(serial models.Serial, sc categories.Context, since time.Time, amountField string) SerialLine {
	return SerialLine{
		ID:           serial.ID,
		SerialNumber: serial.SerialNumber,
		PartName:     serial.PartName,
		Category:     serial.Category,
		CustomerName: sc.String(categories.FieldCustomerName),
		Amount:       contextAmount(sc, amountField),
		Since:        since,
	}
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
