package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/bills"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/internal/suppliers"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/redis"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocker struct {
	err      error
	obtained int
	released int
}

func (l *fakeLocker) Obtain(context.Context, string, time.Duration) (redis.Lease, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.obtained++
	return fakeLease{l}, nil
}

type fakeLease struct {
	l *fakeLocker
}

func (f fakeLease) Release(context.Context) error {
	f.l.released++
	return nil
}

func newTestService(t *testing.T, locker redis.Locker) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(Deps{
		Tx:        client,
		Bills:     bills.NewRepository(conn),
		Suppliers: suppliers.NewRepository(conn),
		Parts:     parts.NewRepository(conn),
		Serials:   serials.NewRepository(conn),
		Movements: movements.NewRepository(conn),
		Locker:    locker,
		Metrics:   metrics.NewInventoryMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc, client
}

func parseRegister(t *testing.T, svc Service) []Bill {
	t.Helper()
	out, err := svc.Parse(context.Background(), buildWorkbook(t, registerRows()))
	require.NoError(t, err)
	return out
}

func TestNewServiceRequiresRepositories(t *testing.T) {
	_, err := NewService(Deps{})
	require.Error(t, err)
}

func TestImportRoundTrip(t *testing.T) {
	locker := &fakeLocker{}
	svc, client := newTestService(t, locker)
	ctx := context.Background()
	parsed := parseRegister(t, svc)

	report, err := svc.Validate(ctx, parsed)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalBills)
	assert.Equal(t, 2, report.NewBills)
	assert.Empty(t, report.DuplicateBills)
	assert.Equal(t, 5, report.TotalSerials)

	result, err := svc.Import(ctx, parsed, types.NewActor("user1", "User One"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.BillsCreated)
	assert.Equal(t, 3, result.PartsCreated)
	assert.Equal(t, 5, result.SerialsCreated)
	assert.Zero(t, result.Duplicates)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, locker.obtained)
	assert.Equal(t, 1, locker.released)

	conn := client.DB()
	var serial models.Serial
	require.NoError(t, conn.First(&serial, "serial_number = ?", "1962").Error)
	assert.True(t, serial.UnitPrice.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, enums.CategoryInStock, serial.Category)
	assert.Equal(t, "CAP-100", serial.PartCode)

	var bill models.Bill
	require.NoError(t, conn.First(&bill, "id = ?", serial.BillID).Error)
	assert.Equal(t, "VCH-1", bill.VoucherNumber)
	assert.Equal(t, "2026-02-06", bill.BillDate.Format("2006-01-02"))
	assert.Equal(t, "Acme", bill.SupplierName)
	assert.True(t, bill.TotalAmount.Equal(decimal.NewFromInt(380)))

	var relay models.Serial
	require.NoError(t, conn.First(&relay, "serial_number = ?", "RL-001").Error)
	assert.Equal(t, "shelf B", relay.Context["remarks"])

	var movementCount int64
	require.NoError(t, conn.Model(&models.SerialMovement{}).Where("type = ?", enums.MovementTypeInitialEntry).Count(&movementCount).Error)
	assert.EqualValues(t, 5, movementCount)
}

func TestImportIsIdempotent(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	parsed := parseRegister(t, svc)

	_, err := svc.Import(ctx, parsed, types.Actor{})
	require.NoError(t, err)

	report, err := svc.Validate(ctx, parsed)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"VCH-1", "VCH-2"}, report.DuplicateBills)
	assert.Len(t, report.DuplicateSerials, 5)
	assert.Zero(t, report.NewBills)

	again, err := svc.Import(ctx, parsed, types.Actor{})
	require.NoError(t, err)
	assert.Zero(t, again.BillsCreated)
	assert.Zero(t, again.SerialsCreated)
	assert.Zero(t, again.PartsCreated)
	assert.ElementsMatch(t, []string{"VCH-1", "VCH-2"}, again.SkippedBills)

	var billCount, serialCount int64
	require.NoError(t, client.DB().Model(&models.Bill{}).Count(&billCount).Error)
	require.NoError(t, client.DB().Model(&models.Serial{}).Count(&serialCount).Error)
	assert.EqualValues(t, 2, billCount)
	assert.EqualValues(t, 5, serialCount)
}

func TestImportCountsDuplicateSerialsWithoutAbortingBill(t *testing.T) {
	svc, client := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Import(ctx, parseRegister(t, svc), types.Actor{})
	require.NoError(t, err)

	result, err := svc.Import(ctx, []Bill{{
		VoucherNumber: "VCH-9",
		SupplierName:  "acme",
		BillDate:      time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		Items: []PartLine{{
			PartCode: "cap-100",
			PartName: "Capacitor",
			SerialNumbers: []SerialEntry{
				{SerialNumber: "1962", UnitPrice: decimal.NewFromInt(150), Category: enums.CategoryInStock},
				{SerialNumber: "1999", UnitPrice: decimal.NewFromInt(90), Category: enums.CategoryInStock},
			},
		}},
	}}, types.Actor{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.BillsCreated)
	assert.Equal(t, 1, result.SerialsCreated)
	assert.Equal(t, 0, result.PartsCreated)
	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "VCH-9", result.Errors[0].VoucherNumber)
	assert.Equal(t, "1962", result.Errors[0].SerialNumber)

	var supplierCount int64
	require.NoError(t, client.DB().Model(&models.Supplier{}).Count(&supplierCount).Error)
	assert.EqualValues(t, 2, supplierCount)

	var part models.Part
	require.NoError(t, client.DB().First(&part, "code = ?", "CAP-100").Error)
	assert.True(t, part.AvgUnitPrice.Equal(decimal.NewFromInt(130)))
}

func TestImportRejectedWhileLocked(t *testing.T) {
	svc, _ := newTestService(t, &fakeLocker{err: redis.ErrLockNotObtained})
	_, err := svc.Import(context.Background(), nil, types.Actor{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	svc, _ = newTestService(t, &fakeLocker{err: errors.New("redis down")})
	_, err = svc.Import(context.Background(), nil, types.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestImportReportsBillWithoutVoucher(t *testing.T) {
	svc, _ := newTestService(t, nil)
	result, err := svc.Import(context.Background(), []Bill{{SupplierName: "x", BillDate: time.Now()}}, types.Actor{})
	require.NoError(t, err)
	assert.Zero(t, result.BillsCreated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "voucher number is required", result.Errors[0].Reason)
}
