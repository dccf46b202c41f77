package categories

import (
	"testing"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSPUPendingReportsEveryMissingField(t *testing.T) {
	_, err := Validate(enums.CategorySPUPending, map[string]any{
		"ticketId": "T-1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	violations := ViolationsOf(err)
	fields := map[string]ViolationCode{}
	for _, v := range violations {
		fields[v.Field] = v.Code
	}
	assert.Equal(t, CodeMissingRequiredField, fields[FieldSPUID])
	assert.Equal(t, CodeMissingRequiredField, fields[FieldCustomerName])
	assert.Equal(t, CodeMissingRequiredField, fields[FieldSPUDate])
	assert.NotContains(t, fields, FieldTicketID)
	assert.Len(t, violations, 3)
}

func TestValidateCollectsEveryTypeViolation(t *testing.T) {
	_, err := Validate(enums.CategoryOG, map[string]any{
		"customerName":  "Acme",
		"cashAmount":    "lots",
		"paymentStatus": "SOMEDAY",
	})
	require.Error(t, err)

	violations := ViolationsOf(err)
	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, CodeInvalidFieldType, v.Code, v.Field)
	}
}

func TestValidateOGForcesChargeable(t *testing.T) {
	ctx, err := Validate(enums.CategoryOG, map[string]any{
		"customerName":  " Acme ",
		"cashAmount":    500,
		"paymentStatus": "pending",
		"isChargeable":  false,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme", ctx.String(FieldCustomerName))
	assert.Equal(t, true, ctx[FieldIsChargeable])
	assert.Equal(t, 500.0, ctx[FieldChargeAmount])
	assert.Equal(t, "PENDING", ctx[FieldPaymentStatus])
}

func TestValidateNullsChargeableDependentsWhenNotChargeable(t *testing.T) {
	ctx, err := Validate(enums.CategoryAMC, map[string]any{
		"customerName":  "Acme",
		"isChargeable":  false,
		"chargeAmount":  120,
		"paymentStatus": "PAID",
	})
	require.NoError(t, err)

	assert.Equal(t, false, ctx[FieldIsChargeable])
	for _, name := range chargeableDependents {
		value, present := ctx[name]
		assert.True(t, present, "expected %s to be present as null", name)
		assert.Nil(t, value, name)
	}
}

func TestValidateKeepsChargeableFieldsWhenChargeable(t *testing.T) {
	ctx, err := Validate(enums.CategoryInStock, map[string]any{
		"isChargeable": "true",
		"chargeAmount": "75.5",
		"paymentMode":  "upi",
		"paymentDate":  "06-02-2026",
	})
	require.NoError(t, err)

	assert.Equal(t, 75.5, ctx[FieldChargeAmount])
	assert.Equal(t, "UPI", ctx[FieldPaymentMode])
	assert.Equal(t, "2026-02-06", ctx[FieldPaymentDate])
}

func TestValidateDerivesSPUStatusAndDropsUnknownKeys(t *testing.T) {
	ctx, err := Validate(enums.CategorySPUCleared, map[string]any{
		"spuId":        "SPU-9",
		"ticketId":     "T-9",
		"customerName": "Acme",
		"spuDate":      "2026-01-10T08:00:00Z",
		"spuStatus":    "PENDING",
		"favourite":    "yes",
	})
	require.NoError(t, err)

	assert.Equal(t, "CLEARED", ctx[FieldSPUStatus])
	assert.Equal(t, "2026-01-10", ctx[FieldSPUDate])
	assert.NotContains(t, ctx, "favourite")
}

func TestValidateReceivedForOthersDefaultsTransferStatus(t *testing.T) {
	ctx, err := Validate(enums.CategoryReceivedForOthers, map[string]any{"receivedFor": "Branch 2"})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", ctx[FieldTransferStatus])

	_, err = Validate(enums.CategoryReceivedForOthers, map[string]any{
		"receivedFor":    "Branch 2",
		"transferStatus": "LOST",
	})
	require.Error(t, err)
}

func TestValidateRejectsUnknownCategory(t *testing.T) {
	_, err := Validate(enums.Category("SOLD"), nil)
	require.Error(t, err)
	violations := ViolationsOf(err)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeUnknownCategory, violations[0].Code)
}

func TestNormalizeSkipsRequiredButChecksTypes(t *testing.T) {
	ctx, err := Normalize(enums.CategorySPUPending, map[string]any{"remarks": "from sheet"})
	require.NoError(t, err)
	assert.Equal(t, "from sheet", ctx.String(FieldRemarks))
	assert.Equal(t, "PENDING", ctx[FieldSPUStatus])

	_, err = Normalize(enums.CategoryReturn, map[string]any{"expectedReturnDate": "soon"})
	require.Error(t, err)
}

func TestValidateBlankRequiredStringIsMissing(t *testing.T) {
	_, err := Validate(enums.CategoryReturn, map[string]any{"returnReason": "   "})
	require.Error(t, err)
	violations := ViolationsOf(err)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeMissingRequiredField, violations[0].Code)
}

func TestSchemasCoverEveryCategory(t *testing.T) {
	schemas := Schemas()
	require.Len(t, schemas, len(enums.Categories()))
	for _, schema := range schemas {
		assert.True(t, schema.Allows(FieldRemarks), "%s should accept remarks", schema.Category)
		for _, name := range schema.fields() {
			_, ok := Field(name)
			assert.True(t, ok, "field %s of %s has no spec", name, schema.Category)
		}
	}
}
