package categories

import (
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// FieldType is the value kind a context field holds once normalized.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldBool   FieldType = "bool"
	FieldEnum   FieldType = "enum"
)

// Context field names.
const (
	FieldRemarks             = "remarks"
	FieldLocation            = "location"
	FieldSPUID               = "spuId"
	FieldTicketID            = "ticketId"
	FieldSPUDate             = "spuDate"
	FieldSPUStatus           = "spuStatus"
	FieldCustomerName        = "customerName"
	FieldCustomerContact     = "customerContact"
	FieldProductModel        = "productModel"
	FieldProductSerialNumber = "productSerialNumber"
	FieldIsChargeable        = "isChargeable"
	FieldChargeAmount        = "chargeAmount"
	FieldChargeReason        = "chargeReason"
	FieldPaymentStatus       = "paymentStatus"
	FieldPaymentDate         = "paymentDate"
	FieldPaymentMode         = "paymentMode"
	FieldAMCNumber           = "amcNumber"
	FieldAMCServiceDate      = "amcServiceDate"
	FieldCashAmount          = "cashAmount"
	FieldReturnReason        = "returnReason"
	FieldExpectedReturnDate  = "expectedReturnDate"
	FieldReceivedFor         = "receivedFor"
	FieldTransferStatus      = "transferStatus"
)

// FieldSpec describes one context field.
type FieldSpec struct {
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Values []string  `json:"values,omitempty"`
}

// Schema is the context contract for one category.
type Schema struct {
	Category enums.Category `json:"category"`
	Required []string       `json:"required"`
	Optional []string       `json:"optional"`
}

// Allows reports whether name is part of the schema.
func (s Schema) Allows(name string) bool {
	for _, f := range s.Required {
		if f == name {
			return true
		}
	}
	for _, f := range s.Optional {
		if f == name {
			return true
		}
	}
	return false
}

func (s Schema) fields() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	return append(out, s.Optional...)
}

// chargeableDependents are cleared whenever isChargeable is false.
var chargeableDependents = []string{
	FieldChargeAmount,
	FieldChargeReason,
	FieldPaymentStatus,
	FieldPaymentDate,
	FieldPaymentMode,
}

// chargeableFields may be carried by any category.
var chargeableFields = append([]string{FieldIsChargeable}, chargeableDependents...)

var fieldSpecs = map[string]FieldSpec{
	FieldRemarks:             {Name: FieldRemarks, Type: FieldString},
	FieldLocation:            {Name: FieldLocation, Type: FieldString},
	FieldSPUID:               {Name: FieldSPUID, Type: FieldString},
	FieldTicketID:            {Name: FieldTicketID, Type: FieldString},
	FieldSPUDate:             {Name: FieldSPUDate, Type: FieldDate},
	FieldSPUStatus:           {Name: FieldSPUStatus, Type: FieldEnum, Values: []string{string(enums.SPUStatusPending), string(enums.SPUStatusCleared)}},
	FieldCustomerName:        {Name: FieldCustomerName, Type: FieldString},
	FieldCustomerContact:     {Name: FieldCustomerContact, Type: FieldString},
	FieldProductModel:        {Name: FieldProductModel, Type: FieldString},
	FieldProductSerialNumber: {Name: FieldProductSerialNumber, Type: FieldString},
	FieldIsChargeable:        {Name: FieldIsChargeable, Type: FieldBool},
	FieldChargeAmount:        {Name: FieldChargeAmount, Type: FieldNumber},
	FieldChargeReason:        {Name: FieldChargeReason, Type: FieldString},
	FieldPaymentStatus: {Name: FieldPaymentStatus, Type: FieldEnum, Values: []string{
		string(enums.PaymentStatusPaid), string(enums.PaymentStatusPending),
		string(enums.PaymentStatusPartial), string(enums.PaymentStatusWaived),
	}},
	FieldPaymentDate: {Name: FieldPaymentDate, Type: FieldDate},
	FieldPaymentMode: {Name: FieldPaymentMode, Type: FieldEnum, Values: []string{
		string(enums.PaymentModeCash), string(enums.PaymentModeCheque),
		string(enums.PaymentModeOnline), string(enums.PaymentModeUPI),
	}},
	FieldAMCNumber:          {Name: FieldAMCNumber, Type: FieldString},
	FieldAMCServiceDate:     {Name: FieldAMCServiceDate, Type: FieldDate},
	FieldCashAmount:         {Name: FieldCashAmount, Type: FieldNumber},
	FieldReturnReason:       {Name: FieldReturnReason, Type: FieldString},
	FieldExpectedReturnDate: {Name: FieldExpectedReturnDate, Type: FieldDate},
	FieldReceivedFor:        {Name: FieldReceivedFor, Type: FieldString},
	FieldTransferStatus: {Name: FieldTransferStatus, Type: FieldEnum, Values: []string{
		string(enums.TransferStatusPending), string(enums.TransferStatusTransferred),
	}},
}

func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

var spuSchema = Schema{
	Required: []string{FieldSPUID, FieldTicketID, FieldCustomerName, FieldSPUDate},
	Optional: with(chargeableFields,
		FieldRemarks, FieldSPUStatus, FieldCustomerContact, FieldProductModel, FieldProductSerialNumber),
}

var schemas = map[enums.Category]Schema{
	enums.CategoryUncategorized: {
		Optional: with(chargeableFields, FieldRemarks),
	},
	enums.CategoryInStock: {
		Optional: with(chargeableFields, FieldRemarks, FieldLocation),
	},
	enums.CategorySPUPending: spuSchema,
	enums.CategorySPUCleared: spuSchema,
	enums.CategoryAMC: {
		Required: []string{FieldCustomerName},
		Optional: with(chargeableFields, FieldRemarks, FieldAMCNumber, FieldAMCServiceDate, FieldTicketID),
	},
	enums.CategoryOG: {
		Required: []string{FieldCustomerName, FieldCashAmount, FieldPaymentStatus},
		Optional: []string{
			FieldRemarks, FieldTicketID, FieldPaymentDate, FieldPaymentMode, FieldProductModel,
			FieldProductSerialNumber, FieldIsChargeable, FieldChargeAmount, FieldChargeReason,
		},
	},
	enums.CategoryReturn: {
		Required: []string{FieldReturnReason},
		Optional: with(chargeableFields, FieldRemarks, FieldExpectedReturnDate),
	},
	enums.CategoryReturnPending: {
		Optional: with(chargeableFields, FieldRemarks, FieldReturnReason, FieldExpectedReturnDate),
	},
	enums.CategoryPendingToCheck: {
		Optional: with(chargeableFields, FieldRemarks),
	},
	enums.CategoryReceivedForOthers: {
		Required: []string{FieldReceivedFor},
		Optional: with(chargeableFields, FieldRemarks, FieldTransferStatus),
	},
}

// SchemaFor returns the context contract for category.
func SchemaFor(category enums.Category) (Schema, bool) {
	schema, ok := schemas[category]
	if !ok {
		return Schema{}, false
	}
	schema.Category = category
	return schema, true
}

// Schemas returns every category contract in category display order.
func Schemas() []Schema {
	out := make([]Schema, 0, len(schemas))
	for _, c := range enums.Categories() {
		if schema, ok := SchemaFor(c); ok {
			out = append(out, schema)
		}
	}
	return out
}

// Field returns the spec for a context field name.
func Field(name string) (FieldSpec, bool) {
	spec, ok := fieldSpecs[name]
	return spec, ok
}
