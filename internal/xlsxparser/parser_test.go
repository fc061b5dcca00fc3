package xlsxparser

import (
	"bytes"
	"testing"
	"time"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows into the first sheet of a new workbook.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Id", "Name", "Price", "Status"},
		{1001, "Alice", 10, "Delivery"},
		{1002, "Bob", 5.5, "Production"},
	})

	table, err := ParseXLSX(data, "report.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "Name", "Price", "Status"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Alice", table.Rows[0]["Name"])
	assert.Equal(t, "1001", table.Rows[0]["Id"])
	assert.Equal(t, "5.5", table.Rows[1]["Price"])
	assert.Equal(t, "report.xlsx", table.SourceFile)
}

func TestParseXLSX_NotAWorkbook(t *testing.T) {
	_, err := ParseXLSX([]byte("Name,Price\nAlice,10\n"), "fake.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake.xlsx")
}

func TestParseXLS_NotAWorkbook(t *testing.T) {
	data := buildWorkbook(t, [][]any{{"Name"}, {"Alice"}})

	_, err := ParseXLS(data, "modern.xls")
	require.Error(t, err)

	_, err = ParseXLS(bytes.Repeat([]byte{0}, 16), "zeros.xls")
	require.Error(t, err)
}

func TestParseXLSX_DateCellsReadAsServiceDates(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Name", "Cleaning Date", "Price"},
		{"Alice", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), 10},
		{"Bob", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), 5},
	})

	table, err := ParseXLSX(data, "report.xlsx")
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	for i, want := range []string{"05/03/2024", "06/03/2024"} {
		cell := table.Rows[i]["Cleaning Date"]
		got, ok := invoice.ParseDate(cell)
		require.True(t, ok, "cell %q", cell)
		assert.Equal(t, want, invoice.FormatDate(got), "cell %q", cell)
	}
}
