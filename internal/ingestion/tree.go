package ingestion

import (
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Bill is one parsed goods receipt awaiting import.
type Bill struct {
	VoucherNumber string     `json:"voucherNumber" validate:"required"`
	SupplierName  string     `json:"supplierName"`
	BillDate      time.Time  `json:"billDate" validate:"required"`
	Items         []PartLine `json:"items" validate:"required,min=1,dive"`
	Row           int        `json:"row,omitempty"`
}

// PartLine groups the serials of one part code within a bill.
type PartLine struct {
	PartCode      string        `json:"partCode" validate:"required"`
	PartName      string        `json:"partName"`
	SerialNumbers []SerialEntry `json:"serialNumbers" validate:"required,min=1,dive"`
	Row           int           `json:"row,omitempty"`
}

// SerialEntry is one positive amount row.
type SerialEntry struct {
	SerialNumber string          `json:"serialNumber" validate:"required"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Category     enums.Category  `json:"category"`
	Notes        string          `json:"notes,omitempty"`
	Row          int             `json:"row,omitempty"`
}

// Counts returns the number of part lines and serial entries across bills.
func Counts(bills []Bill) (partLines, serialEntries int) {
	for _, bill := range bills {
		partLines += len(bill.Items)
		for _, item := range bill.Items {
			serialEntries += len(item.SerialNumbers)
		}
	}
	return partLines, serialEntries
}
