package serials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/bills"
	"github.com/angelmondragon/partstrack-backend/internal/categories"
	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/parts"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/angelmondragon/partstrack-backend/pkg/metrics"
	"github.com/angelmondragon/partstrack-backend/pkg/pagination"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    Service
	client *db.Client
	bill   *models.Bill
	ledger movements.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	bill := &models.Bill{VoucherNumber: "VCH-1", BillDate: time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, conn.Create(bill).Error)

	ledger := movements.NewRepository(conn)
	svc, err := NewService(
		client,
		NewRepository(conn),
		ledger,
		parts.NewRepository(conn),
		bills.NewRepository(conn),
		metrics.NewInventoryMetrics(prometheus.NewRegistry()),
		nil,
	)
	require.NoError(t, err)
	return fixture{svc: svc, client: client, bill: bill, ledger: ledger}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	_, err := NewService(nil, NewRepository(conn), movements.NewRepository(conn), parts.NewRepository(conn), bills.NewRepository(conn), nil, nil)
	require.Error(t, err)
	_, err = NewService(client, NewRepository(conn), nil, parts.NewRepository(conn), bills.NewRepository(conn), nil, nil)
	require.Error(t, err)
}

func TestCreateAutoCreatesPartAndLogsInitialEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	serial, err := f.svc.Create(ctx, CreateSerialInput{
		SerialNumber: "SN-001",
		BillID:       f.bill.ID,
		PartName:     "Capacitor 100uF",
		UnitPrice:    decimal.RequireFromString("150.00"),
	}, types.NewActor("user1", "User One"))
	require.NoError(t, err)
	assert.Equal(t, enums.CategoryUncategorized, serial.Category)
	assert.Equal(t, "CAPACITOR-100UF", serial.PartCode)
	assert.Nil(t, serial.CategorizedAt)
	assert.Equal(t, "user1", serial.CreatedByID)

	history, err := f.ledger.ListBySerialID(ctx, serial.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromCategory)
	assert.Equal(t, enums.CategoryUncategorized, history[0].ToCategory)
	assert.Equal(t, enums.MovementTypeInitialEntry, history[0].Type)

	var part models.Part
	require.NoError(t, f.client.DB().First(&part, "id = ?", serial.PartID).Error)
	assert.True(t, part.AvgUnitPrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, part.AutoCreated)
}

func TestCreateDuplicateSerialNumberFailsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := CreateSerialInput{SerialNumber: "SN-001", BillID: f.bill.ID, PartCode: "cap-100"}

	_, err := f.svc.Create(ctx, input, types.Actor{})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, input, types.Actor{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSerialNumber))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	input.SerialNumber = "sn-001"
	_, err = f.svc.Create(ctx, input, types.Actor{})
	require.NoError(t, err, "serial numbers are case-sensitive")

	var count int64
	require.NoError(t, f.client.DB().Model(&models.SerialMovement{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateWithStartingCategoryNormalizesContext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	serial, err := f.svc.Create(ctx, CreateSerialInput{
		SerialNumber: "SN-OG",
		BillID:       f.bill.ID,
		PartCode:     "CAP-100",
		Category:     enums.CategoryOG,
		Context: map[string]any{
			"customerName": "Acme",
			"cashAmount":   "500",
			"unknownKey":   "dropped",
		},
	}, types.Actor{})
	require.NoError(t, err)
	assert.Equal(t, enums.CategoryOG, serial.Category)
	require.NotNil(t, serial.CustomerName)
	assert.Equal(t, "Acme", *serial.CustomerName)
	assert.NotNil(t, serial.CategorizedAt)
	assert.Equal(t, true, serial.Context[categories.FieldIsChargeable])
	assert.Equal(t, 500.0, serial.Context[categories.FieldChargeAmount])
	assert.NotContains(t, serial.Context, "unknownKey")
}

func TestCreateRejectsUnknownBillAndCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateSerialInput{SerialNumber: "SN-1", BillID: uuid.New(), PartCode: "X"}, types.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, CreateSerialInput{SerialNumber: "SN-1", BillID: f.bill.ID, PartCode: "X", Category: "BROKEN"}, types.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, CreateSerialInput{SerialNumber: "SN-1", BillID: f.bill.ID}, types.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBulkCreateReportsEachFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.svc.BulkCreate(ctx, []CreateSerialInput{
		{SerialNumber: "SN-1", BillID: f.bill.ID, PartCode: "CAP-100", UnitPrice: decimal.NewFromInt(100)},
		{SerialNumber: "SN-1", BillID: f.bill.ID, PartCode: "CAP-100", UnitPrice: decimal.NewFromInt(100)},
		{SerialNumber: "SN-2", BillID: f.bill.ID, PartCode: "CAP-100", UnitPrice: decimal.NewFromInt(200)},
		{SerialNumber: "", BillID: f.bill.ID, PartCode: "CAP-100"},
	}, types.NewActor("user1", ""))

	require.Len(t, result.Created, 2)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "SN-1", result.Failed[0].SerialNumber)
	assert.Equal(t, pkgerrors.CodeConflict, result.Failed[0].Code)
	assert.Equal(t, pkgerrors.CodeValidation, result.Failed[1].Code)

	var part models.Part
	require.NoError(t, f.client.DB().First(&part, "code = ?", "CAP-100").Error)
	assert.True(t, part.AvgUnitPrice.Equal(decimal.NewFromInt(150)))
}

func TestGenerate(t *testing.T) {
	numbers, err := GenerateNumbers(" CAP-", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"CAP-0001", "CAP-0002", "CAP-0003"}, numbers)

	_, err = GenerateNumbers("X", 1, MaxGenerateCount+1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	f := newFixture(t)
	result, err := f.svc.Generate(context.Background(), GenerateInput{
		BillID:      f.bill.ID,
		Prefix:      "REL",
		StartNumber: 98,
		Count:       3,
		PartCode:    "REL",
		Category:    enums.CategoryInStock,
	}, types.Actor{})
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	assert.Equal(t, "REL0100", result.Created[2].SerialNumber)
	assert.Equal(t, enums.CategoryInStock, result.Created[0].Category)
}

func TestDeleteKeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	serial, err := f.svc.Create(ctx, CreateSerialInput{SerialNumber: "SN-1", BillID: f.bill.ID, PartCode: "CAP-100"}, types.Actor{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, serial.ID))

	_, err = f.svc.Get(ctx, serial.ID)
	assert.True(t, errors.Is(err, ErrSerialNotFound))
	err = f.svc.Delete(ctx, serial.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	history, err := f.ledger.ListBySerialID(ctx, serial.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	exists, err := f.svc.Exists(ctx, "SN-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearchMatchesAcrossFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateSerialInput{SerialNumber: "ABC-1", BillID: f.bill.ID, PartName: "Relay"}, types.Actor{})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateSerialInput{
		SerialNumber: "XYZ-2",
		BillID:       f.bill.ID,
		PartName:     "Fuse",
		Category:     enums.CategorySPUPending,
		Context:      map[string]any{"spuId": "SPU-77", "customerName": "Globex"},
	}, types.Actor{})
	require.NoError(t, err)

	cases := map[string]int64{
		"abc":    1,
		"relay":  1,
		"vch-1":  2,
		"spu-77": 1,
		"GLOBEX": 1,
		"nope":   0,
	}
	for query, want := range cases {
		page, err := f.svc.Search(ctx, query, SearchFilters{}, pagination.Params{Page: 1, Limit: 10})
		require.NoError(t, err, query)
		assert.Equal(t, want, page.Total, query)
	}

	page, err := f.svc.Search(ctx, "", SearchFilters{Category: enums.CategorySPUPending}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "XYZ-2", page.Items[0].SerialNumber)

	_, err = f.svc.Search(ctx, "", SearchFilters{Category: "NOPE"}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	byBill, err := f.svc.GetByBillID(ctx, f.bill.ID)
	require.NoError(t, err)
	assert.Len(t, byBill, 2)

	listed, err := f.svc.ListByCategory(ctx, enums.CategoryUncategorized, pagination.Params{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, listed.Total)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, number := range []string{"AB1", "AB-1", "X9", "A_1", "Q%2"} {
		_, err := f.svc.Create(ctx, CreateSerialInput{SerialNumber: number, BillID: f.bill.ID, PartName: "Relay"}, types.Actor{})
		require.NoError(t, err, number)
	}

	cases := map[string]int64{
		"a_1": 1,
		"_":   1,
		"%":   1,
		`\`:   0,
		"ab":  2,
		"q%2": 1,
		"a%1": 0,
		"x9":  1,
	}
	for query, want := range cases {
		page, err := f.svc.Search(ctx, query, SearchFilters{}, pagination.Params{Page: 1, Limit: 10})
		require.NoError(t, err, query)
		assert.Equal(t, want, page.Total, query)
	}
}
