// =============================================================================
// QBO Invoice Converter - Shared Types
// =============================================================================
//
// This package contains the tabular type shared by the loaders and the
// transformation engine. Types defined here are used by:
//   - csvparser / xlsxparser (producers)
//   - loader (strategy results)
//   - resolver / invoice (consumers)
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// TABLE
// =============================================================================

// Table is a fully loaded input table with named columns.
// Row order is the order of the source file.
type Table struct {
	// Headers holds the cleaned column names in source order.
	Headers []string

	// Rows holds one map per data row, keyed by header.
	// Every header is present in every row; empty cells are "".
	Rows []map[string]string

	// SourceFile is the name of the file the table was loaded from.
	SourceFile string
}

// HasColumn reports whether the table has a column with exactly this name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// =============================================================================
// CONSTRUCTION FROM RAW RECORDS
// =============================================================================

// TableFromRecords builds a Table from raw records, as read by the CSV and
// spreadsheet readers. The first non-empty record is the header row.
//
// PARAMETERS:
//   - records: All records of the sheet or file, header included.
//   - source:  The source file name, kept for error messages.
//
// RETURNS:
//   - The table, with cleaned headers and trimmed cells.
//   - An error if there is no header row.
func TableFromRecords(records [][]string, source string) (*Table, error) {
	headerIndex := -1
	for i, rec := range records {
		if !isRowEmpty(rec) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return nil, fmt.Errorf("%s: no header row found", source)
	}

	headers := cleanHeaders(records[headerIndex])
	table := &Table{
		Headers:    headers,
		Rows:       make([]map[string]string, 0, len(records)-headerIndex-1),
		SourceFile: source,
	}

	for _, rec := range records[headerIndex+1:] {
		if isRowEmpty(rec) {
			continue
		}

		row := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(rec) {
				row[header] = strings.TrimSpace(rec[col])
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// cleanHeaders trims header names, names blank headers by position and
// suffixes duplicates so every column stays addressable. A header present in
// the source keeps its name; generated names skip any name already taken.
func cleanHeaders(raw []string) []string {
	names := make([]string, len(raw))
	reserved := make(map[string]bool, len(raw))
	for i, header := range raw {
		names[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if names[i] != "" {
			reserved[names[i]] = true
		}
	}

	cleaned := make([]string, len(raw))
	used := make(map[string]bool, len(raw))

	for i, header := range names {
		generated := header == ""
		if generated {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		if used[header] || (generated && reserved[header]) {
			base := header
			for n := 2; ; n++ {
				header = fmt.Sprintf("%s_%d", base, n)
				if !used[header] && !reserved[header] {
					break
				}
			}
		}

		used[header] = true
		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a record contains only blank cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
