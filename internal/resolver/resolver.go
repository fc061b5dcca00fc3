// =============================================================================
// QBO Invoice Converter - Column Resolver
// =============================================================================
//
// Report exports do not share a fixed header layout. The resolver decides
// which column plays each semantic role by walking an ordered rule list:
//
//   1. Exact:      case-sensitive match against a prioritized canonical list
//   2. Keyword:    first column (table order) whose lowercased name contains
//                  one of the role keywords
//   3. Positional: customer -> second column (first if only one),
//                  orderId  -> first column
//
// The first rule that matches a role wins. The tier that matched is kept on
// the resolution so callers can warn about weak matches.
//
// =============================================================================

package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ROLES AND TIERS
// =============================================================================

// Role is a semantic column role.
type Role string

const (
	RoleCustomer    Role = "customer"
	RolePrice       Role = "price"
	RoleOrderID     Role = "orderId"
	RoleServiceDate Role = "serviceDate"
	RoleAddress     Role = "address"
	RoleNote        Role = "note"
)

// Roles lists every role in resolution order.
var Roles = []Role{RoleCustomer, RolePrice, RoleOrderID, RoleServiceDate, RoleAddress, RoleNote}

// RequiredRoles are the roles a table must resolve to be converted.
var RequiredRoles = []Role{RoleCustomer, RolePrice}

// Tier is the rule tier that resolved a role.
type Tier int

const (
	TierExact Tier = iota + 1
	TierKeyword
	TierPositional
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierKeyword:
		return "keyword"
	case TierPositional:
		return "positional"
	default:
		return "unresolved"
	}
}

// MarshalText renders the tier by name in JSON output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// Resolution is the column chosen for a role and the tier that chose it.
type Resolution struct {
	Column string `json:"column"`
	Tier   Tier   `json:"tier"`
}

// ColumnRoleMap maps each resolved role to its column.
// Unresolved optional roles are absent.
type ColumnRoleMap map[Role]Resolution

// Column returns the column for a role and whether the role is resolved.
func (m ColumnRoleMap) Column(role Role) (string, bool) {
	r, ok := m[role]
	return r.Column, ok
}

// Tier returns the tier that resolved a role, or zero when unresolved.
func (m ColumnRoleMap) Tier(role Role) Tier {
	return m[role].Tier
}

// Value returns the trimmed cell of a row for a role.
// Unresolved roles and missing cells yield "".
func (m ColumnRoleMap) Value(row map[string]string, role Role) string {
	col, ok := m.Column(role)
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnresolvedRequiredColumn is matched by every UnresolvedColumnError.
var ErrUnresolvedRequiredColumn = errors.New("required column could not be resolved")

// UnresolvedColumnError names the required role no column could fill.
type UnresolvedColumnError struct {
	Role    Role
	Columns []string
}

func (e *UnresolvedColumnError) Error() string {
	return fmt.Sprintf("could not identify the %s column among [%s]", e.Role, strings.Join(e.Columns, ", "))
}

// Is makes errors.Is(err, ErrUnresolvedRequiredColumn) hold.
func (e *UnresolvedColumnError) Is(target error) bool {
	return target == ErrUnresolvedRequiredColumn
}

// =============================================================================
// RULES
// =============================================================================

// matcher returns the matched column, or "" when the rule does not apply.
type matcher func(columns []string) string

type rule struct {
	role  Role
	tier  Tier
	match matcher
}

// exact matches the first canonical name present in the columns.
// Canonical order, not column order, decides.
func exact(names ...string) matcher {
	return func(columns []string) string {
		for _, name := range names {
			for _, col := range columns {
				if col == name {
					return col
				}
			}
		}
		return ""
	}
}

// keyword matches the first column containing any keyword, case-insensitively.
func keyword(words ...string) matcher {
	return func(columns []string) string {
		for _, col := range columns {
			lower := strings.ToLower(col)
			for _, w := range words {
				if strings.Contains(lower, w) {
					return col
				}
			}
		}
		return ""
	}
}

// position matches the column at index, or at fallback when the table is
// too narrow.
func position(index, fallback int) matcher {
	return func(columns []string) string {
		switch {
		case index < len(columns):
			return columns[index]
		case fallback >= 0 && fallback < len(columns):
			return columns[fallback]
		default:
			return ""
		}
	}
}

// rules is evaluated top to bottom; the first match per role wins.
var rules = []rule{
	{RoleCustomer, TierExact, exact("Name", "Customer", "Client", "Account")},
	{RolePrice, TierExact, exact("Price", "Amount", "Total", "Value", "Cost")},
	{RoleOrderID, TierExact, exact("ID", "Id", "Order", "Order ID", "Invoice", "Ref")},
	{RoleServiceDate, TierExact, exact("Date", "Service Date", "Cleaning Date", "Invoice Date")},
	{RoleAddress, TierExact, exact("House", "Address", "Location", "Property", "Apartment")},
	{RoleNote, TierExact, exact("Note", "Notes", "Comment", "Comments", "Description")},

	{RoleCustomer, TierKeyword, keyword("name", "customer")},
	{RolePrice, TierKeyword, keyword("price", "amount", "total", "value")},
	{RoleOrderID, TierKeyword, keyword("id", "order", "ref")},
	{RoleServiceDate, TierKeyword, keyword("date")},
	{RoleAddress, TierKeyword, keyword("house", "address", "location", "property")},
	{RoleNote, TierKeyword, keyword("note", "comment", "description")},

	{RoleCustomer, TierPositional, position(1, 0)},
	{RoleOrderID, TierPositional, position(0, -1)},
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolve assigns columns to roles.
//
// PARAMETERS:
//   - columns: The table's column names in table order.
//
// RETURNS:
//   - The role map. A column may serve more than one role.
//   - An *UnresolvedColumnError when customer or price is unresolved.
func Resolve(columns []string) (ColumnRoleMap, error) {
	roles := make(ColumnRoleMap, len(Roles))

	for _, r := range rules {
		if _, done := roles[r.role]; done {
			continue
		}
		if col := r.match(columns); col != "" {
			roles[r.role] = Resolution{Column: col, Tier: r.tier}
		}
	}

	for _, role := range RequiredRoles {
		if _, ok := roles[role]; !ok {
			return nil, &UnresolvedColumnError{Role: role, Columns: columns}
		}
	}

	return roles, nil
}
