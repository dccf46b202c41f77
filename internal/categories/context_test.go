package categories

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/partstrack-backend/pkg/db/dbtest"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type storedContext struct {
	ID      uint              `gorm:"primaryKey"`
	Context datatypes.JSONMap `gorm:"column:context"`
}

func TestContextNumberSurvivesStorage(t *testing.T) {
	conn := dbtest.Open(t).DB()
	require.NoError(t, conn.AutoMigrate(&storedContext{}))

	normalized, err := Validate(enums.CategoryOG, map[string]any{
		FieldCustomerName:  "Acme",
		FieldCashAmount:    500,
		FieldPaymentStatus: "PENDING",
	})
	require.NoError(t, err)

	row := storedContext{Context: datatypes.JSONMap(normalized)}
	require.NoError(t, conn.Create(&row).Error)

	var loaded storedContext
	require.NoError(t, conn.First(&loaded, row.ID).Error)

	sc := Context(loaded.Context)
	assert.IsType(t, json.Number(""), sc[FieldCashAmount])
	amount, ok := sc.Number(FieldCashAmount)
	require.True(t, ok)
	assert.Equal(t, 500.0, amount)
	assert.Equal(t, "PENDING", sc.String(FieldPaymentStatus))
}

func TestContextNumberAcceptsNumericKinds(t *testing.T) {
	sc := Context{
		"float":   12.5,
		"int":     3,
		"int64":   int64(7),
		"json":    json.Number("4.25"),
		"decimal": decimal.RequireFromString("9.99"),
		"badJSON": json.Number("x"),
		"text":    "10",
	}
	cases := []struct {
		field string
		want  float64
		ok    bool
	}{
		{"float", 12.5, true},
		{"int", 3, true},
		{"int64", 7, true},
		{"json", 4.25, true},
		{"decimal", 9.99, true},
		{"badJSON", 0, false},
		{"text", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			got, ok := sc.Number(tc.field)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
