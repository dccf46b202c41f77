package ingestion

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partstrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column positions, 1-based as they appear in the sheet.
const (
	ColDate        = 1
	ColBillNumber  = 2
	ColSupplier    = 3
	ColPartCode    = 4
	ColAmount      = 5
	ColItemDetails = 6
	ColNotes       = 14
)

type categoryColumn struct {
	Column   int
	Category enums.Category
}

// categoryColumns is evaluated in order; the first positive cell wins.
var categoryColumns = []categoryColumn{
	{Column: 7, Category: enums.CategoryInStock},
	{Column: 8, Category: enums.CategorySPUCleared},
	{Column: 9, Category: enums.CategorySPUPending},
	{Column: 10, Category: enums.CategoryReturn},
	{Column: 11, Category: enums.CategoryReturnPending},
	{Column: 12, Category: enums.CategoryPendingToCheck},
	{Column: 13, Category: enums.CategoryOG},
}

var (
	leadingDotRe    = regexp.MustCompile(`^\s*\.\s*`)
	billDateLayouts = []string{"2-1-2006", "2/1/2006", "2006-01-02", time.RFC3339}
)

// ParseError aborts a parse. Row is 1-based and zero when the failure is not
// tied to a row.
type ParseError struct {
	Row    int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "failed to parse spreadsheet: " + e.Reason
	if e.Row > 0 {
		msg = fmt.Sprintf("%s (row %d)", msg, e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseFailure(row int, reason string, err error) error {
	perr := &ParseError{Row: row, Reason: reason, Err: err}
	details := map[string]any{"reason": reason}
	if row > 0 {
		details["row"] = row
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, perr, perr.Error()).WithDetails(details)
}

// Parser turns a bill register workbook into a bill tree. It has no side
// effects and never touches storage.
type Parser struct {
	// SheetIndex selects the worksheet, zero-based.
	SheetIndex int
}

// Parse reads the workbook from r. Any structural failure rejects the whole
// file; no partial tree is returned.
func (p Parser) Parse(r io.Reader) ([]Bill, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, parseFailure(0, "file is not a readable xlsx workbook", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(p.SheetIndex)
	if sheet == "" {
		return nil, parseFailure(0, fmt.Sprintf("no worksheet at index %d", p.SheetIndex), nil)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, parseFailure(0, fmt.Sprintf("unable to read sheet %q", sheet), err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	return ParseRows(rows, date1904), nil
}

// ParseRows applies the row rules to raw cell values. The first row is the
// header and is skipped.
func ParseRows(rows [][]string, date1904 bool) []Bill {
	var (
		bills       []*Bill
		currentBill *Bill
		currentPart *PartLine
	)

	for i, row := range rows {
		rowNumber := i + 1
		if rowNumber == 1 {
			continue
		}

		dateVal := cell(row, ColDate)
		billNo := cell(row, ColBillNumber)
		itemDetails := cell(row, ColItemDetails)

		if dateVal != "" && billNo != "" {
			if billDate, ok := parseBillDate(dateVal, date1904); ok {
				bills = append(bills, &Bill{
					VoucherNumber: billNo,
					SupplierName:  cell(row, ColSupplier),
					BillDate:      billDate,
					Row:           rowNumber,
				})
				currentBill = bills[len(bills)-1]
				currentPart = nil
			}
		}

		if isSubHeader(itemDetails) {
			continue
		}

		if code := cell(row, ColPartCode); code != "" && currentBill != nil {
			currentBill.Items = append(currentBill.Items, PartLine{
				PartCode: strings.ToUpper(code),
				PartName: cleanText(itemDetails),
				Row:      rowNumber,
			})
			currentPart = &currentBill.Items[len(currentBill.Items)-1]
		}

		amount, ok := parseAmount(cell(row, ColAmount))
		if !ok || currentPart == nil {
			continue
		}
		currentPart.SerialNumbers = append(currentPart.SerialNumbers, SerialEntry{
			SerialNumber: serialRef(itemDetails, currentPart.PartCode, len(currentPart.SerialNumbers)+1),
			UnitPrice:    amount,
			Category:     detectCategory(row),
			Notes:        cell(row, ColNotes),
			Row:          rowNumber,
		})
	}

	out := make([]Bill, 0, len(bills))
	for _, bill := range bills {
		items := bill.Items[:0]
		for _, item := range bill.Items {
			if len(item.SerialNumbers) > 0 {
				items = append(items, item)
			}
		}
		bill.Items = items
		if len(bill.Items) > 0 {
			out = append(out, *bill)
		}
	}
	return out
}

// detectCategory returns the category of the first positive category column.
func detectCategory(row []string) enums.Category {
	for _, col := range categoryColumns {
		if _, ok := parseAmount(cell(row, col.Column)); ok {
			return col.Category
		}
	}
	return enums.CategoryUncategorized
}

// serialRef derives the serial number from the item text: the segment after
// the first "/" when present, else the text, else partCode-n.
func serialRef(itemDetails, partCode string, n int) string {
	ref := cleanText(itemDetails)
	if strings.Contains(ref, "/") {
		ref = strings.TrimSpace(strings.Split(ref, "/")[1])
	}
	if ref == "" {
		return fmt.Sprintf("%s-%d", partCode, n)
	}
	return ref
}

func parseBillDate(value string, date1904 bool) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range billDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return dateOnly(t), true
		}
	}
	// native date cells arrive as an Excel serial day number
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

// parseAmount returns a strictly positive amount.
func parseAmount(value string) (decimal.Decimal, bool) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

func isSubHeader(itemDetails string) bool {
	lower := strings.ToLower(itemDetails)
	return strings.Contains(lower, "sr.no") || strings.Contains(lower, "sr. no")
}

func cleanText(value string) string {
	return strings.TrimSpace(leadingDotRe.ReplaceAllString(value, ""))
}

func cell(row []string, column int) string {
	if column < 1 || column > len(row) {
		return ""
	}
	return strings.TrimSpace(row[column-1])
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
