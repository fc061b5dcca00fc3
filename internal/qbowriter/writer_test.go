package qbowriter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLines() []invoice.Line {
	return []invoice.Line{
		{
			InvoiceNumber: 100, Customer: "José, Lda", InvoiceDate: "10/03/2024", DueDate: "14/03/2024",
			ItemProductService: invoice.DefaultItemProductService, ItemDescription: "Casa, / order id: 1",
			ItemQuantity: 1, ItemAmount: decimal.RequireFromString("10"), ServiceDate: "05/03/2024",
		},
		{
			InvoiceNumber: 100, ItemProductService: invoice.DefaultItemProductService,
			ItemDescription: "/ order id: 2", ItemQuantity: 1,
			ItemAmount: decimal.RequireFromString("12.5"), ServiceDate: "06/03/2024",
		},
	}
}

func readBack(t *testing.T, data []byte) [][]string {
	t.Helper()

	require.True(t, bytes.HasPrefix(data, BOM))
	records, err := csv.NewReader(bytes.NewReader(data[len(BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWrite(t *testing.T) {
	data, err := Bytes(sampleLines())
	require.NoError(t, err)

	records := readBack(t, data)
	require.Len(t, records, 3)

	assert.Equal(t, invoice.Columns, records[0])
	assert.Equal(t, []string{
		"100", "José, Lda", "10/03/2024", "14/03/2024", invoice.DefaultItemProductService,
		"Casa, / order id: 1", "1", "10.00", "05/03/2024",
	}, records[1])
	assert.Equal(t, "", records[2][1])
	assert.Equal(t, "12.50", records[2][7])
}

func TestWrite_MatchesLineRecord(t *testing.T) {
	lines := sampleLines()

	data, err := Bytes(lines)
	require.NoError(t, err)

	records := readBack(t, data)
	for i, l := range lines {
		assert.Equal(t, l.Record(), records[i+1])
	}
}

func TestRecordFromFields(t *testing.T) {
	fields := []string{"7", "Alice", "10/03/2024", "14/03/2024", "Item", "edited", "1", "99.00", "05/03/2024"}

	r, err := RecordFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, "edited", r.ItemDescription)
	assert.Equal(t, "99.00", r.ItemAmount)

	data, err := RecordBytes([]Record{r})
	require.NoError(t, err)
	assert.Equal(t, fields, readBack(t, data)[1])

	_, err = RecordFromFields(fields[:8])
	require.ErrorIs(t, err, ErrRecordWidth)
}

func TestNewRecord_UsesLineRendering(t *testing.T) {
	l := sampleLines()[1]
	r := NewRecord(l)

	got := []string{r.InvoiceNo, r.Customer, r.InvoiceDate, r.DueDate, r.ItemProductService,
		r.ItemDescription, r.ItemQuantity, r.ItemAmount, r.ServiceDate}
	assert.Equal(t, l.Record(), got)
}

func TestWrite_Empty(t *testing.T) {
	data, err := Bytes(nil)
	require.NoError(t, err)

	records := readBack(t, data)
	require.Len(t, records, 1)
	assert.Equal(t, invoice.Columns, records[0])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, sampleLines()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readBack(t, data), 3)
}
