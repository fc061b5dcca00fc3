// =============================================================================
// QBO Invoice Converter - QuickBooks CSV Writer
// =============================================================================
//
// This module serializes invoice lines into the QuickBooks Online invoice
// import file:
//
//   *InvoiceNo,*Customer,*InvoiceDate,*DueDate,Item(Product/Service),...
//   100,Alice,10/03/2024,14/03/2024,Linhas de Lavanderia:Services,...
//   100,,,,Linhas de Lavanderia:Services,...
//
// The file is UTF-8 with a byte order mark (QuickBooks and Excel need it to
// read accented customer names), comma separated, with a header row.
//
// =============================================================================

package qbowriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/gocarina/gocsv"
)

// BOM is the UTF-8 byte order mark written before the header.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrRecordWidth is returned for a row that does not have one field per
// import column.
var ErrRecordWidth = errors.New("row does not match the import columns")

// =============================================================================
// RECORD
// =============================================================================

// Record is one output row. Field order is column order.
type Record struct {
	InvoiceNo          string `csv:"*InvoiceNo"`
	Customer           string `csv:"*Customer"`
	InvoiceDate        string `csv:"*InvoiceDate"`
	DueDate            string `csv:"*DueDate"`
	ItemProductService string `csv:"Item(Product/Service)"`
	ItemDescription    string `csv:"ItemDescription"`
	ItemQuantity       string `csv:"ItemQuantity"`
	ItemAmount         string `csv:"*ItemAmount"`
	ServiceDate        string `csv:"Service Date"`
}

// NewRecord converts an invoice line using the line's own rendering, so
// the file and the review table show the same values.
func NewRecord(l invoice.Line) Record {
	r, _ := RecordFromFields(l.Record())
	return r
}

// RecordFromFields builds a record from fields in invoice.Columns order.
func RecordFromFields(fields []string) (Record, error) {
	if len(fields) != len(invoice.Columns) {
		return Record{}, fmt.Errorf("%w: got %d fields, want %d", ErrRecordWidth, len(fields), len(invoice.Columns))
	}

	return Record{
		InvoiceNo:          fields[0],
		Customer:           fields[1],
		InvoiceDate:        fields[2],
		DueDate:            fields[3],
		ItemProductService: fields[4],
		ItemDescription:    fields[5],
		ItemQuantity:       fields[6],
		ItemAmount:         fields[7],
		ServiceDate:        fields[8],
	}, nil
}

// =============================================================================
// WRITING
// =============================================================================

// Write writes the BOM, the header row and one row per line to w.
//
// PARAMETERS:
//   - w:     The destination.
//   - lines: The invoice lines, in output order.
//
// RETURNS:
//   - An error if writing fails.
func Write(w io.Writer, lines []invoice.Line) error {
	records := make([]Record, len(lines))
	for i, l := range lines {
		records[i] = NewRecord(l)
	}
	return WriteRecords(w, records)
}

// WriteRecords writes the BOM, the header row and the records to w.
func WriteRecords(w io.Writer, records []Record) error {
	rows := make([]*Record, len(records))
	for i := range records {
		rows[i] = &records[i]
	}

	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("failed to write byte order mark: %w", err)
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write invoice lines: %w", err)
	}
	return nil
}

// Bytes renders the import file in memory.
func Bytes(lines []invoice.Line) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, lines); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RecordBytes renders already formatted records in memory.
func RecordBytes(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the import file to path, replacing any existing file.
func WriteFile(path string, lines []invoice.Line) error {
	data, err := Bytes(lines)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}
