package invoice

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateLayout is the QuickBooks import date format (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// =============================================================================
// AMOUNTS
// =============================================================================

// nonAmountChars matches everything that cannot be part of an amount.
var nonAmountChars = regexp.MustCompile(`[^0-9.,]`)

// ParseAmount converts a price cell to a decimal.
//
// The cell is parsed as-is first. On failure every character other than
// digits, '.' and ',' is stripped, ',' becomes '.', and the result is parsed
// again. When both attempts fail the amount is zero and ok is false.
//
// EXAMPLES:
//   - "12.50"    -> 12.50, true
//   - "R$ 12,50" -> 12.50, true
//   - "abc"      -> 0, false
func ParseAmount(cell string) (amount decimal.Decimal, ok bool) {
	cell = strings.TrimSpace(cell)

	if d, err := decimal.NewFromString(cell); err == nil {
		return d, true
	}

	cleaned := strings.ReplaceAll(nonAmountChars.ReplaceAllString(cell, ""), ",", ".")
	if d, err := decimal.NewFromString(cleaned); err == nil {
		return d, true
	}

	return decimal.Zero, false
}

// =============================================================================
// DATES
// =============================================================================

// dateLayouts are tried in order. Day-first layouts precede the US layout so
// an ambiguous "03/04/2024" reads as 3 April.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	// excelize's default date and datetime number formats (mm-dd-yy,
	// m/d/yy hh:mm) render two-digit years, month first.
	"01-02-06",
	"01-02-06 15:04",
	"1/2/06 15:04",
	"1/2/06",
	"01/02/2006",
	"1/2/2006",
}

// Excel serial numbers outside this range are not treated as dates
// (roughly 1954 to 2119), so ids and prices never turn into dates.
const (
	minExcelSerial = 20000
	maxExcelSerial = 80000
)

// ParseDate reads a service date cell.
// Text dates are tried against dateLayouts; a bare number in the plausible
// range is read as an Excel serial date.
func ParseDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(cell, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// FormatDate renders a date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
