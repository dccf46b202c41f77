package reports

import (
	"time"

	"github.com/angelmondragon/partstrack-backend/internal/movements"
	"github.com/angelmondragon/partstrack-backend/internal/serials"
	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amount pairs a row count with a money total.
type Amount struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// CategorySummary is the per-category rollup shown on the dashboard.
type CategorySummary struct {
	Categories map[enums.Category]serials.CategoryTotal `json:"categories"`
	Ordered    []serials.CategoryTotal                  `json:"ordered"`
	Totals     serials.CategoryTotal                    `json:"totals"`
	OGPayments OGPaymentSummary                         `json:"ogPaymentSummary"`
}

// OGPaymentSummary splits OG sales by payment state using the cash amount.
type OGPaymentSummary struct {
	Paid    Amount `json:"paid"`
	Pending Amount `json:"pending"`
	Total   Amount `json:"total"`
}

// BillStock is the IN_STOCK holding of one bill.
type BillStock struct {
	BillID        uuid.UUID       `json:"billId"`
	VoucherNumber string          `json:"voucherNumber"`
	SupplierName  string          `json:"supplierName"`
	BillDate      time.Time       `json:"billDate"`
	Count         int64           `json:"count"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}

// InStockReport lists IN_STOCK holdings per bill.
type InStockReport struct {
	Bills      []BillStock     `json:"bills"`
	TotalBills int             `json:"totalBills"`
	TotalItems int64           `json:"totalItems"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// SPUGroup aggregates the serials filed under one SPU id.
type SPUGroup struct {
	SPUID            string          `json:"spuId"`
	Status           enums.SPUStatus `json:"status"`
	CustomerName     string          `json:"customerName,omitempty"`
	SPUDate          string          `json:"spuDate,omitempty"`
	SerialNumbers    []string        `json:"serialNumbers"`
	Count            int64           `json:"count"`
	TotalValue       decimal.Decimal `json:"totalValue"`
	ChargeableAmount decimal.Decimal `json:"chargeableAmount"`
}

// SPUReport lists SPU groups with their grand totals.
type SPUReport struct {
	SPUs            []SPUGroup      `json:"spus"`
	TotalSPUs       int             `json:"totalSPUs"`
	TotalItems      int64           `json:"totalItems"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	TotalChargeable decimal.Decimal `json:"totalChargeable"`
}

// PartStock is the valuation line for one part.
type PartStock struct {
	PartID       uuid.UUID       `json:"partId"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	AvgUnitPrice decimal.Decimal `json:"avgUnitPrice"`
	ReorderPoint int             `json:"reorderPoint"`
	InStock      int64           `json:"inStock"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	BelowReorder bool            `json:"belowReorder"`
}

// Valuation is the stock valuation across parts.
type Valuation struct {
	Parts      []PartStock     `json:"parts"`
	TotalItems int64           `json:"totalItems"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// AlertCount is one alert bucket.
type AlertCount struct {
	Count      int64 `json:"count"`
	BillsCount int64 `json:"billsCount,omitempty"`
}

// AlertCounts holds every alert bucket.
type AlertCounts struct {
	SPUPendingOld     AlertCount `json:"spuPendingOld"`
	PaymentPending    AlertCount `json:"paymentPending"`
	ReturnPending     AlertCount `json:"returnPending"`
	Uncategorized     AlertCount `json:"uncategorized"`
	ChargeablePending AlertCount `json:"chargeablePending"`
	LowStock          AlertCount `json:"lowStock"`
}

// AlertDetails carries a bounded sample of the rows behind some buckets.
type AlertDetails struct {
	SPUPendingOld  []SerialLine `json:"spuPendingOld"`
	PaymentPending []SerialLine `json:"paymentPending"`
	LowStock       []PartStock  `json:"lowStock"`
}

// SerialLine is the slim serial row used in alert details.
type SerialLine struct {
	ID           uuid.UUID       `json:"id"`
	SerialNumber string          `json:"serialNumber"`
	PartName     string          `json:"partName"`
	Category     enums.Category  `json:"category"`
	CustomerName string          `json:"customerName,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Since        time.Time       `json:"since"`
}

// Alerts is the dashboard alert panel.
type Alerts struct {
	TotalAlerts int64        `json:"totalAlerts"`
	Alerts      AlertCounts  `json:"alerts"`
	Details     AlertDetails `json:"details"`
}

// MonthStats counts bills received in the current month.
type MonthStats struct {
	Count        int64 `json:"count"`
	TotalSerials int64 `json:"totalSerials"`
}

// Stats is the dashboard activity panel.
type Stats struct {
	ThisMonth      MonthStats              `json:"thisMonth"`
	RecentActivity []movements.MovementDTO `json:"recentActivity"`
}

// Dashboard bundles every dashboard panel.
type Dashboard struct {
	Summary CategorySummary `json:"summary"`
	Alerts  Alerts          `json:"alerts"`
	Stats   Stats           `json:"stats"`
}
