package invoice

import (
	"fmt"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
)

// StatusColumn is the report column the status filter reads.
const StatusColumn = "Status"

// DefaultAllowedStatuses are the report statuses that are billed.
var DefaultAllowedStatuses = []string{"Delivery", "Production", "Open"}

// keptRow is a row that passed the filters, with its extracted customer.
type keptRow struct {
	customer string
	row      map[string]string
}

// filterRows drops rows without a customer and, when the table has a Status
// column, rows whose status is not allowed. Table order is preserved.
func filterRows(table *types.Table, roles resolver.ColumnRoleMap, statuses []string) []keptRow {
	if len(statuses) == 0 {
		statuses = DefaultAllowedStatuses
	}
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	checkStatus := table.HasColumn(StatusColumn)

	kept := make([]keptRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		customer := roles.Value(row, resolver.RoleCustomer)
		if customer == "" {
			continue
		}
		if checkStatus && !allowed[row[StatusColumn]] {
			continue
		}
		kept = append(kept, keptRow{customer: customer, row: row})
	}

	return kept
}

// distinctCustomers returns customers in first-appearance order.
func distinctCustomers(rows []keptRow) []string {
	seen := make(map[string]bool)
	var customers []string

	for _, r := range rows {
		if !seen[r.customer] {
			seen[r.customer] = true
			customers = append(customers, r.customer)
		}
	}

	return customers
}

// ListUniqueCustomers returns the distinct customers of the billable rows in
// first-appearance order, the same order Build numbers invoices in.
//
// PARAMETERS:
//   - table:    The loaded report.
//   - roles:    The resolved column roles.
//   - statuses: Allowed statuses; none means DefaultAllowedStatuses.
//
// RETURNS:
//   - The customer names.
//   - ErrNoValidRows when no row passes the filters.
func ListUniqueCustomers(table *types.Table, roles resolver.ColumnRoleMap, statuses ...string) ([]string, error) {
	customers := distinctCustomers(filterRows(table, roles, statuses))
	if len(customers) == 0 {
		return nil, fmt.Errorf("%s: %w", table.SourceFile, ErrNoValidRows)
	}
	return customers, nil
}
