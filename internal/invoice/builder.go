// =============================================================================
// QBO Invoice Converter - Invoice Builder
// =============================================================================
//
// The builder turns a loaded report into QuickBooks Online invoice lines:
//
//   1. Filter rows (customer present, status allowed)
//   2. Number customers in first-appearance order from the start number
//   3. Build one line per row (amount, description, dates)
//   4. Group lines by invoice number; only the first line of a group keeps
//      the customer, invoice date and due date
//   5. Apply customer display-name overrides to the header lines
//
// The builder does no I/O and keeps no state between calls.
//
// =============================================================================

package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"github.com/shopspring/decimal"
)

const (
	// DefaultItemProductService is the QuickBooks item every line is billed as.
	DefaultItemProductService = "Linhas de Lavanderia:Services"

	// DefaultDueDays is the payment term in days after the invoice date.
	DefaultDueDays = 4
)

// Columns is the QuickBooks invoice import header, in output order.
var Columns = []string{
	"*InvoiceNo",
	"*Customer",
	"*InvoiceDate",
	"*DueDate",
	"Item(Product/Service)",
	"ItemDescription",
	"ItemQuantity",
	"*ItemAmount",
	"Service Date",
}

// =============================================================================
// TYPES
// =============================================================================

// Line is one QuickBooks invoice line.
type Line struct {
	InvoiceNumber      int
	Customer           string
	InvoiceDate        string
	DueDate            string
	ItemProductService string
	ItemDescription    string
	ItemQuantity       int
	ItemAmount         decimal.Decimal
	ServiceDate        string

	// AmountParsed is false when the price cell was unreadable and the
	// amount defaulted to zero.
	AmountParsed bool

	// SourceRow is the 1-based index of the row among the filtered rows.
	SourceRow int
}

// IsHeader reports whether the line carries the invoice header fields.
func (l Line) IsHeader() bool {
	return l.Customer != "" || l.InvoiceDate != "" || l.DueDate != ""
}

// Record renders the line in Columns order. Amounts have two decimals.
func (l Line) Record() []string {
	return []string{
		strconv.Itoa(l.InvoiceNumber),
		l.Customer,
		l.InvoiceDate,
		l.DueDate,
		l.ItemProductService,
		l.ItemDescription,
		strconv.Itoa(l.ItemQuantity),
		l.ItemAmount.StringFixed(2),
		l.ServiceDate,
	}
}

// Records renders lines in Columns order.
func Records(lines []Line) [][]string {
	records := make([][]string, len(lines))
	for i, l := range lines {
		records[i] = l.Record()
	}
	return records
}

// BuildOptions carries the invoice parameters of one conversion.
type BuildOptions struct {
	// StartInvoiceNumber is the number of the first customer's invoice.
	StartInvoiceNumber int

	// InvoiceDate is the date printed on every invoice.
	InvoiceDate time.Time

	// CustomerOverrides maps extracted customer names to display names.
	CustomerOverrides map[string]string

	// ItemProductService defaults to DefaultItemProductService.
	ItemProductService string

	// DueDays defaults to DefaultDueDays when zero.
	DueDays int

	// AllowedStatuses defaults to DefaultAllowedStatuses.
	AllowedStatuses []string
}

func (o BuildOptions) validate() error {
	if o.StartInvoiceNumber <= 0 {
		return fmt.Errorf("%w: start invoice number must be positive, got %d", ErrInvalidOptions, o.StartInvoiceNumber)
	}
	if o.InvoiceDate.IsZero() {
		return fmt.Errorf("%w: invoice date is required", ErrInvalidOptions)
	}
	if o.DueDays < 0 {
		return fmt.Errorf("%w: due days cannot be negative, got %d", ErrInvalidOptions, o.DueDays)
	}
	return nil
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.ItemProductService == "" {
		o.ItemProductService = DefaultItemProductService
	}
	if o.DueDays == 0 {
		o.DueDays = DefaultDueDays
	}
	if len(o.AllowedStatuses) == 0 {
		o.AllowedStatuses = DefaultAllowedStatuses
	}
	return o
}

// =============================================================================
// BUILD
// =============================================================================

// Build converts a report into invoice lines.
//
// PARAMETERS:
//   - table: The loaded report.
//   - roles: The resolved column roles (customer and price required).
//   - opts:  Invoice parameters.
//
// RETURNS:
//   - The invoice lines, grouped by invoice number in ascending order.
//   - ErrInvalidOptions or ErrNoValidRows.
func Build(table *types.Table, roles resolver.ColumnRoleMap, opts BuildOptions) ([]Line, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	rows := filterRows(table, roles, opts.AllowedStatuses)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", table.SourceFile, ErrNoValidRows)
	}

	numbers := assignNumbers(distinctCustomers(rows), opts.StartInvoiceNumber)

	invoiceDate := FormatDate(opts.InvoiceDate)
	dueDate := FormatDate(opts.InvoiceDate.AddDate(0, 0, opts.DueDays))

	lines := make([]Line, len(rows))
	for i, r := range rows {
		number := numbers[r.customer]
		amount, parsed := ParseAmount(roles.Value(r.row, resolver.RolePrice))

		lines[i] = Line{
			InvoiceNumber:      number,
			Customer:           r.customer,
			InvoiceDate:        invoiceDate,
			DueDate:            dueDate,
			ItemProductService: opts.ItemProductService,
			ItemDescription:    describe(r.row, roles, number),
			ItemQuantity:       1,
			ItemAmount:         amount,
			ServiceDate:        serviceDate(r.row, roles, invoiceDate),
			AmountParsed:       parsed,
			SourceRow:          i + 1,
		}
	}

	lines = collapseGroups(lines)
	applyOverrides(lines, opts.CustomerOverrides)

	return lines, nil
}

// assignNumbers maps customers to start, start+1, ... in the given order.
func assignNumbers(customers []string, start int) map[string]int {
	numbers := make(map[string]int, len(customers))
	for i, c := range customers {
		numbers[c] = start + i
	}
	return numbers
}

// describe builds "{address}, / order id: {id} / Notes: {note}".
// The address part and the notes part are dropped when empty; the order id
// falls back to the invoice number.
func describe(row map[string]string, roles resolver.ColumnRoleMap, invoiceNumber int) string {
	var b strings.Builder

	if address := roles.Value(row, resolver.RoleAddress); address != "" {
		b.WriteString(address)
		b.WriteString(", ")
	}

	orderID := roles.Value(row, resolver.RoleOrderID)
	if orderID == "" {
		orderID = strconv.Itoa(invoiceNumber)
	}
	b.WriteString("/ order id: ")
	b.WriteString(orderID)

	if note := roles.Value(row, resolver.RoleNote); note != "" {
		b.WriteString(" / Notes: ")
		b.WriteString(note)
	}

	return b.String()
}

// serviceDate formats the row's service date, or returns the invoice date
// when the cell is missing or unreadable.
func serviceDate(row map[string]string, roles resolver.ColumnRoleMap, invoiceDate string) string {
	if t, ok := ParseDate(roles.Value(row, resolver.RoleServiceDate)); ok {
		return FormatDate(t)
	}
	return invoiceDate
}

// collapseGroups orders lines by group (first occurrence) keeping table
// order inside each group, then blanks the header fields of every line but
// the first of its group.
func collapseGroups(lines []Line) []Line {
	var order []int
	groups := make(map[int][]Line)

	for _, l := range lines {
		if _, ok := groups[l.InvoiceNumber]; !ok {
			order = append(order, l.InvoiceNumber)
		}
		groups[l.InvoiceNumber] = append(groups[l.InvoiceNumber], l)
	}

	out := make([]Line, 0, len(lines))
	for _, number := range order {
		for i, l := range groups[number] {
			if i > 0 {
				l.Customer = ""
				l.InvoiceDate = ""
				l.DueDate = ""
			}
			out = append(out, l)
		}
	}

	return out
}

// applyOverrides replaces header customer names by their display names.
// Empty display names are ignored so a header line never loses its customer.
func applyOverrides(lines []Line, overrides map[string]string) {
	if len(overrides) == 0 {
		return
	}
	for i := range lines {
		if lines[i].Customer == "" {
			continue
		}
		if name := strings.TrimSpace(overrides[lines[i].Customer]); name != "" {
			lines[i].Customer = name
		}
	}
}
