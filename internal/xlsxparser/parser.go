// =============================================================================
// QBO Invoice Converter - Spreadsheet Parser
// =============================================================================
//
// This module reads the laundry financial report from spreadsheet files:
//   - .xlsx (Office Open XML) through excelize
//   - .xls  (legacy BIFF8 workbooks) through xlsReader
//
// Only the first sheet is read. The first non-empty row is the header row;
// everything below it is data. Cells are read as their displayed text, so
// numbers and dates arrive as the report shows them (date cells stored with a
// numeric format may arrive as Excel serial numbers; the invoice builder
// understands both).
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX
// =============================================================================

// ParseXLSX reads the first sheet of an .xlsx workbook into a table.
//
// PARAMETERS:
//   - data:   The raw workbook bytes.
//   - source: The file name, used in error messages and on the table.
//
// RETURNS:
//   - The parsed table.
//   - An error if the bytes are not an .xlsx workbook or the sheet is empty.
func ParseXLSX(data []byte, source string) (*types.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open workbook: %w", source, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", source)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read rows from sheet %q: %w", source, sheets[0], err)
	}

	return types.TableFromRecords(rows, source)
}

// =============================================================================
// XLS
// =============================================================================

// oleMagic is the signature of an OLE2 compound document, the container of
// every BIFF8 workbook.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ParseXLS reads the first sheet of a legacy .xls workbook into a table.
func ParseXLS(data []byte, source string) (table *types.Table, err error) {
	if !bytes.HasPrefix(data, oleMagic) {
		return nil, fmt.Errorf("%s: not an OLE2 .xls workbook", source)
	}

	// xlsReader panics on some truncated records instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = fmt.Errorf("%s: corrupt .xls workbook: %v", source, r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open .xls workbook: %w", source, err)
	}

	if len(workbook.GetSheets()) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", source)
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read first sheet: %w", source, err)
	}

	var records [][]string
	for _, row := range sheet.GetRows() {
		var record []string
		for _, cell := range row.GetCols() {
			record = append(record, cell.GetString())
		}
		records = append(records, record)
	}

	return types.TableFromRecords(records, source)
}
