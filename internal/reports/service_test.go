package reports

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

type seed struct {
	conn  *gorm.DB
	svc   Service
	bills map[string]*models.Bill
	parts map[string]*models.Part
}

func newSeed(t *testing.T) *seed {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn), serials.NewRepository(conn), config.AlertsConfig{}, nil)
	require.NoError(t, err)
	return &seed{conn: conn, svc: svc, bills: map[string]*models.Bill{}, parts: map[string]*models.Part{}}
}

func (s *seed) bill(t *testing.T, voucher string, date time.Time) *models.Bill {
	t.Helper()
	bill := &models.Bill{VoucherNumber: voucher, SupplierName: "Acme Supplies", BillDate: date}
	require.NoError(t, s.conn.Create(bill).Error)
	s.bills[voucher] = bill
	return bill
}

func (s *seed) part(t *testing.T, code string, reorder int) *models.Part {
	t.Helper()
	part := &models.Part{Code: code, Name: code + " part", ReorderPoint: reorder}
	require.NoError(t, s.conn.Create(part).Error)
	s.parts[code] = part
	return part
}

func (s *seed) serial(t *testing.T, number, voucher, code string, price int64, category enums.Category, sc map[string]any, categorizedAt *time.Time) {
	t.Helper()
	part := s.parts[code]
	serial := &models.Serial{
		SerialNumber:  number,
		BillID:        s.bills[voucher].ID,
		PartID:        part.ID,
		PartCode:      part.Code,
		PartName:      part.Name,
		UnitPrice:     decimal.NewFromInt(price),
		Category:      category,
		Context:       datatypes.JSONMap(sc),
		CategorizedAt: categorizedAt,
	}
	require.NoError(t, s.conn.Create(serial).Error)
}

func daysAgo(n int) *time.Time {
	at := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &at
}

func TestNewServiceRequiresRepositories(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewService(nil, serials.NewRepository(client.DB()), config.AlertsConfig{}, nil)
	require.Error(t, err)
	_, err = NewService(NewRepository(client.DB()), nil, config.AlertsConfig{}, nil)
	require.Error(t, err)
}

func TestCategorySummaryCountsAndOGPayments(t *testing.T) {
	s := newSeed(t)
	s.bill(t, "VCH-1", time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 0)
	s.serial(t, "SN-1", "VCH-1", "CAP-100", 100, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-2", "VCH-1", "CAP-100", 150, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-3", "VCH-1", "CAP-100", 200, enums.CategoryOG, map[string]any{
		"customerName": "Acme", "cashAmount": 500.0, "paymentStatus": "PAID",
	}, daysAgo(1))
	s.serial(t, "SN-4", "VCH-1", "CAP-100", 50, enums.CategoryOG, map[string]any{
		"customerName": "Beta", "cashAmount": 300.0, "paymentStatus": "PENDING",
	}, daysAgo(1))

	summary, err := s.svc.CategorySummary(context.Background())
	require.NoError(t, err)

	assert.Len(t, summary.Ordered, len(enums.Categories()))
	assert.Equal(t, int64(2), summary.Categories[enums.CategoryInStock].Count)
	assert.True(t, decimal.NewFromInt(250).Equal(summary.Categories[enums.CategoryInStock].TotalValue))
	assert.Equal(t, int64(0), summary.Categories[enums.CategoryAMC].Count)
	assert.Equal(t, int64(4), summary.Totals.Count)
	assert.True(t, decimal.NewFromInt(500).Equal(summary.Totals.TotalValue))

	assert.Equal(t, int64(1), summary.OGPayments.Paid.Count)
	assert.True(t, decimal.NewFromInt(500).Equal(summary.OGPayments.Paid.Amount))
	assert.Equal(t, int64(1), summary.OGPayments.Pending.Count)
	assert.True(t, decimal.NewFromInt(800).Equal(summary.OGPayments.Total.Amount))
}

func TestInStockByBillGroupsPerBill(t *testing.T) {
	s := newSeed(t)
	s.bill(t, "VCH-1", time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC))
	s.bill(t, "VCH-2", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	s.bill(t, "VCH-3", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 0)
	s.serial(t, "SN-1", "VCH-1", "CAP-100", 100, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-2", "VCH-1", "CAP-100", 150, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-3", "VCH-2", "CAP-100", 80, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-4", "VCH-3", "CAP-100", 80, enums.CategoryAMC, nil, nil)

	report, err := s.svc.InStockByBill(context.Background(), DateRange{})
	require.NoError(t, err)

	require.Len(t, report.Bills, 2)
	assert.Equal(t, "VCH-2", report.Bills[0].VoucherNumber)
	assert.Equal(t, "VCH-1", report.Bills[1].VoucherNumber)
	assert.Equal(t, int64(2), report.Bills[1].Count)
	assert.True(t, decimal.NewFromInt(250).Equal(report.Bills[1].TotalValue))
	assert.Equal(t, int64(3), report.TotalItems)
	assert.True(t, decimal.NewFromInt(330).Equal(report.TotalValue))
}

func TestInStockByBillRejectsInvertedWindow(t *testing.T) {
	s := newSeed(t)
	from := now
	to := now.Add(-time.Hour)

	_, err := s.svc.InStockByBill(context.Background(), DateRange{From: &from, To: &to})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSPUReportGroupsBySPUID(t *testing.T) {
	s := newSeed(t)
	s.bill(t, "VCH-1", time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 0)
	s.serial(t, "SN-1", "VCH-1", "CAP-100", 100, enums.CategorySPUPending, map[string]any{
		"spuId": "SPU-7", "spuDate": "2026-02-10", "customerName": "Acme",
		"isChargeable": true, "chargeAmount": 40.0,
	}, daysAgo(10))
	s.serial(t, "SN-2", "VCH-1", "CAP-100", 150, enums.CategorySPUPending, map[string]any{
		"spuId": "SPU-7", "spuDate": "2026-02-10", "customerName": "Acme", "isChargeable": false,
	}, daysAgo(10))
	s.serial(t, "SN-3", "VCH-1", "CAP-100", 90, enums.CategorySPUCleared, map[string]any{
		"spuId": "SPU-8", "spuDate": "2026-01-10", "customerName": "Beta",
	}, daysAgo(5))

	report, err := s.svc.SPUReport(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalSPUs)
	assert.Equal(t, int64(3), report.TotalItems)
	assert.True(t, decimal.NewFromInt(40).Equal(report.TotalChargeable))

	first := report.SPUs[0]
	assert.Equal(t, "SPU-7", first.SPUID)
	assert.Equal(t, enums.SPUStatusPending, first.Status)
	assert.Equal(t, []string{"SN-1", "SN-2"}, first.SerialNumbers)
	assert.True(t, decimal.NewFromInt(250).Equal(first.TotalValue))

	cleared, err := s.svc.SPUReport(context.Background(), enums.SPUStatusCleared)
	require.NoError(t, err)
	require.Len(t, cleared.SPUs, 1)
	assert.Equal(t, "SPU-8", cleared.SPUs[0].SPUID)

	_, err = s.svc.SPUReport(context.Background(), enums.SPUStatus("LOST"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStockValuationFlagsReorder(t *testing.T) {
	s := newSeed(t)
	s.bill(t, "VCH-1", time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 3)
	s.part(t, "FAN-200", 0)
	s.serial(t, "SN-1", "VCH-1", "CAP-100", 100, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-2", "VCH-1", "CAP-100", 120, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-3", "VCH-1", "CAP-100", 120, enums.CategoryOG, nil, nil)

	valuation, err := s.svc.StockValuation(context.Background())
	require.NoError(t, err)
	require.Len(t, valuation.Parts, 2)

	capRow := valuation.Parts[0]
	assert.Equal(t, "CAP-100", capRow.Code)
	assert.Equal(t, int64(2), capRow.InStock)
	assert.True(t, decimal.NewFromInt(220).Equal(capRow.TotalValue))
	assert.True(t, capRow.BelowReorder)

	fanRow := valuation.Parts[1]
	assert.Equal(t, int64(0), fanRow.InStock)
	assert.True(t, fanRow.TotalValue.IsZero())
	assert.False(t, fanRow.BelowReorder)

	assert.Equal(t, int64(2), valuation.TotalItems)
}

func TestAlertsBuckets(t *testing.T) {
	s := newSeed(t)
	s.bill(t, "VCH-1", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC))
	s.bill(t, "VCH-2", time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 5)

	// SPU: one older than 30 days by spuDate, one recent.
	s.serial(t, "SPU-OLD", "VCH-1", "CAP-100", 100, enums.CategorySPUPending, map[string]any{
		"spuId": "SPU-1", "spuDate": "2026-01-01",
	}, daysAgo(2))
	s.serial(t, "SPU-NEW", "VCH-1", "CAP-100", 100, enums.CategorySPUPending, map[string]any{
		"spuId": "SPU-2", "spuDate": "2026-03-15",
	}, daysAgo(2))
	// OG: pending for 20 days, pending for 3 days, paid long ago.
	s.serial(t, "OG-OLD", "VCH-1", "CAP-100", 100, enums.CategoryOG, map[string]any{
		"customerName": "Acme", "cashAmount": 500.0, "isChargeable": true, "paymentStatus": "PENDING",
	}, daysAgo(20))
	s.serial(t, "OG-NEW", "VCH-1", "CAP-100", 100, enums.CategoryOG, map[string]any{
		"cashAmount": 100.0, "isChargeable": true, "paymentStatus": "PENDING",
	}, daysAgo(3))
	s.serial(t, "OG-PAID", "VCH-1", "CAP-100", 100, enums.CategoryOG, map[string]any{
		"cashAmount": 100.0, "isChargeable": true, "paymentStatus": "PAID",
	}, daysAgo(40))
	// Returns: one past 7 days.
	s.serial(t, "RET-OLD", "VCH-1", "CAP-100", 100, enums.CategoryReturn, nil, daysAgo(9))
	s.serial(t, "RET-NEW", "VCH-1", "CAP-100", 100, enums.CategoryReturnPending, nil, daysAgo(1))
	// Chargeable AMC with pending payment.
	s.serial(t, "AMC-1", "VCH-1", "CAP-100", 100, enums.CategoryAMC, map[string]any{
		"isChargeable": true, "chargeAmount": 60.0, "paymentStatus": "PARTIAL",
	}, daysAgo(1))
	// Uncategorized across two bills; IN_STOCK below the reorder point of 5.
	s.serial(t, "U-1", "VCH-1", "CAP-100", 100, enums.CategoryUncategorized, nil, nil)
	s.serial(t, "U-2", "VCH-2", "CAP-100", 100, enums.CategoryUncategorized, nil, nil)
	s.serial(t, "U-3", "VCH-2", "CAP-100", 100, enums.CategoryUncategorized, nil, nil)
	s.serial(t, "IS-1", "VCH-2", "CAP-100", 100, enums.CategoryInStock, nil, nil)

	alerts, err := s.svc.Alerts(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), alerts.Alerts.SPUPendingOld.Count)
	assert.Equal(t, int64(1), alerts.Alerts.PaymentPending.Count)
	assert.Equal(t, int64(1), alerts.Alerts.ReturnPending.Count)
	assert.Equal(t, int64(3), alerts.Alerts.Uncategorized.Count)
	assert.Equal(t, int64(2), alerts.Alerts.Uncategorized.BillsCount)
	assert.Equal(t, int64(1), alerts.Alerts.ChargeablePending.Count)
	assert.Equal(t, int64(1), alerts.Alerts.LowStock.Count)
	assert.Equal(t, int64(8), alerts.TotalAlerts)

	require.Len(t, alerts.Details.PaymentPending, 1)
	line := alerts.Details.PaymentPending[0]
	assert.Equal(t, "OG-OLD", line.SerialNumber)
	assert.Equal(t, "Acme", line.CustomerName)
	assert.True(t, decimal.NewFromInt(500).Equal(line.Amount))
	require.Len(t, alerts.Details.SPUPendingOld, 1)
	assert.Equal(t, "SPU-OLD", alerts.Details.SPUPendingOld[0].SerialNumber)
}

func TestAlertsDetailLimit(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn), serials.NewRepository(conn), config.AlertsConfig{DetailLimit: 2}, nil)
	require.NoError(t, err)
	s := &seed{conn: conn, svc: svc, bills: map[string]*models.Bill{}, parts: map[string]*models.Part{}}
	s.bill(t, "VCH-1", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 0)
	for i := 0; i < 4; i++ {
		s.serial(t, "OG-"+uuid.NewString()[:8], "VCH-1", "CAP-100", 100, enums.CategoryOG, map[string]any{
			"cashAmount": 10.0, "isChargeable": true, "paymentStatus": "PENDING",
		}, daysAgo(30+i))
	}

	alerts, err := s.svc.Alerts(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), alerts.Alerts.PaymentPending.Count)
	require.Len(t, alerts.Details.PaymentPending, 2)
	assert.True(t, alerts.Details.PaymentPending[0].Since.Before(alerts.Details.PaymentPending[1].Since))
}

func TestDashboardCombinesPanels(t *testing.T) {
	s := newSeed(t)
	s.bill(t, "VCH-1", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	s.bill(t, "VCH-0", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	s.part(t, "CAP-100", 0)
	s.serial(t, "SN-1", "VCH-1", "CAP-100", 100, enums.CategoryInStock, nil, nil)
	s.serial(t, "SN-2", "VCH-1", "CAP-100", 100, enums.CategoryUncategorized, nil, nil)
	s.serial(t, "SN-3", "VCH-0", "CAP-100", 100, enums.CategoryInStock, nil, nil)
	require.NoError(t, s.conn.Create(&models.SerialMovement{
		SerialID:     uuid.New(),
		SerialNumber: "SN-1",
		ToCategory:   enums.CategoryInStock,
		Type:         enums.MovementTypeInitialEntry,
		ActorID:      "system",
	}).Error)

	dash, err := s.svc.Dashboard(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(3), dash.Summary.Totals.Count)
	assert.Equal(t, int64(1), dash.Alerts.Alerts.Uncategorized.Count)
	assert.Equal(t, int64(1), dash.Stats.ThisMonth.Count)
	assert.Equal(t, int64(2), dash.Stats.ThisMonth.TotalSerials)
	require.Len(t, dash.Stats.RecentActivity, 1)
	assert.Equal(t, "SN-1", dash.Stats.RecentActivity[0].SerialNumber)
}
