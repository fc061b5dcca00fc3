// =============================================================================
// QBO Invoice Converter - Validation Engine
// =============================================================================
//
// This module checks built invoice lines before they are written. It works
// at three levels:
//   1. Resolution-level: how each column role was resolved
//   2. Line-level: per-line soft failures (unreadable amounts)
//   3. Invoice-level: header placement and invoice numbering
//
// ERROR HANDLING:
//   - Findings are collected, not returned at the first failure
//   - Each finding names the invoice, source row, field and value
//   - Findings are errors (the output is unsafe to import) or warnings
//     (the output is importable but deserves a look)
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Field is the output column or column role concerned.
	Field string `json:"field"`

	// Value is the offending value, if any.
	Value string `json:"value,omitempty"`

	// Rule is the check that produced the finding.
	Rule string `json:"rule"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// InvoiceNumber is the invoice the line belongs to (0 for resolution findings).
	InvoiceNumber int `json:"invoice_number,omitempty"`

	// RowNumber is the line's source row (0 for resolution findings).
	RowNumber int `json:"row,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var where string
	switch {
	case e.InvoiceNumber > 0 && e.RowNumber > 0:
		where = fmt.Sprintf("Invoice %d, Row %d, ", e.InvoiceNumber, e.RowNumber)
	case e.InvoiceNumber > 0:
		where = fmt.Sprintf("Invoice %d, ", e.InvoiceNumber)
	}

	msg := fmt.Sprintf("[%s] %sField '%s': %s", strings.ToUpper(e.Severity), where, e.Field, e.Message)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value: '%s')", e.Value)
	}
	return msg
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors (or, with TreatWarningsAsErrors,
	// no findings at all).
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// LinesValidated is the number of invoice lines checked.
	LinesValidated int

	// InvoicesValidated is the number of distinct invoices checked.
	InvoicesValidated int
}

// Warnings returns the warning findings only.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// Validator checks invoice lines.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate is a convenience function using default options.
func Validate(lines []invoice.Line, roles resolver.ColumnRoleMap, startInvoiceNumber int) *ValidationResult {
	return NewValidator().ValidateAll(lines, roles, startInvoiceNumber)
}

// ValidateAll runs every check.
//
// PARAMETERS:
//   - lines:              The built invoice lines, in output order.
//   - roles:              The column roles the lines were built from.
//   - startInvoiceNumber: The first invoice number of the run.
//
// RETURNS:
//   - The validation result.
func (v *Validator) ValidateAll(lines []invoice.Line, roles resolver.ColumnRoleMap, startInvoiceNumber int) *ValidationResult {
	result := &ValidationResult{
		IsValid:        true,
		Errors:         make([]*ValidationError, 0),
		LinesValidated: len(lines),
	}

	var findings []*ValidationError
	findings = append(findings, ValidateRoles(roles)...)
	findings = append(findings, ValidateGroups(lines, startInvoiceNumber)...)
	findings = append(findings, ValidateAmounts(lines)...)

	result.InvoicesValidated = countInvoices(lines)

	for _, f := range findings {
		result.Errors = append(result.Errors, f)

		if f.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false

			if v.options.StopOnFirstError {
				return result
			}
			continue
		}

		result.WarningCount++
		if v.options.TreatWarningsAsErrors {
			result.IsValid = false
		}
	}

	return result
}

// =============================================================================
// RESOLUTION CHECKS
// =============================================================================

// ValidateRoles warns about weak or missing column resolutions.
func ValidateRoles(roles resolver.ColumnRoleMap) []*ValidationError {
	var findings []*ValidationError

	for _, role := range []resolver.Role{resolver.RoleCustomer, resolver.RoleOrderID} {
		if roles.Tier(role) == resolver.TierPositional {
			col, _ := roles.Column(role)
			findings = append(findings, &ValidationError{
				Severity: SeverityWarning,
				Field:    string(role),
				Value:    col,
				Rule:     "positional_match",
				Message:  fmt.Sprintf("No column looks like the %s column; using column '%s' by position", role, col),
			})
		}
	}

	for _, role := range []resolver.Role{resolver.RoleServiceDate, resolver.RoleAddress, resolver.RoleNote} {
		if _, ok := roles.Column(role); !ok {
			findings = append(findings, &ValidationError{
				Severity: SeverityWarning,
				Field:    string(role),
				Rule:     "unresolved",
				Message:  unresolvedMessage(role),
			})
		}
	}

	return findings
}

func unresolvedMessage(role resolver.Role) string {
	switch role {
	case resolver.RoleServiceDate:
		return "No service date column found; the invoice date is used as service date"
	default:
		return fmt.Sprintf("No %s column found; descriptions omit it", role)
	}
}

// =============================================================================
// INVOICE CHECKS
// =============================================================================

// ValidateGroups checks that each invoice's lines are adjacent, that only the
// first line of each invoice carries the header fields, and that invoice
// numbers run contiguously from the start number.
func ValidateGroups(lines []invoice.Line, startInvoiceNumber int) []*ValidationError {
	var findings []*ValidationError

	seen := make(map[int]bool)
	expected := startInvoiceNumber

	for i, l := range lines {
		first := i == 0 || lines[i-1].InvoiceNumber != l.InvoiceNumber

		if first {
			if seen[l.InvoiceNumber] {
				findings = append(findings, lineError(l, "*InvoiceNo", fmt.Sprint(l.InvoiceNumber), "grouping",
					"Invoice lines are not adjacent"))
			} else {
				if l.InvoiceNumber != expected {
					findings = append(findings, lineError(l, "*InvoiceNo", fmt.Sprint(l.InvoiceNumber), "contiguous",
						fmt.Sprintf("Expected invoice number %d", expected)))
				}
				expected = l.InvoiceNumber + 1
			}
			seen[l.InvoiceNumber] = true

			headers := [][2]string{{"*Customer", l.Customer}, {"*InvoiceDate", l.InvoiceDate}, {"*DueDate", l.DueDate}}
			for _, h := range headers {
				if h[1] == "" {
					findings = append(findings, lineError(l, h[0], "", "header_line",
						"First line of the invoice is missing a header field"))
				}
			}
			continue
		}

		if l.IsHeader() {
			findings = append(findings, lineError(l, "*Customer", l.Customer, "header_line",
				"Only the first line of an invoice may carry the customer, invoice date and due date"))
		}
	}

	return findings
}

// ValidateAmounts warns about lines whose amount could not be read.
func ValidateAmounts(lines []invoice.Line) []*ValidationError {
	var findings []*ValidationError

	for _, l := range lines {
		if !l.AmountParsed {
			f := lineError(l, "*ItemAmount", l.ItemAmount.StringFixed(2), "amount",
				"Price could not be read; amount set to 0")
			f.Severity = SeverityWarning
			findings = append(findings, f)
		}
	}

	return findings
}

func lineError(l invoice.Line, field, value, rule, message string) *ValidationError {
	return &ValidationError{
		Severity:      SeverityError,
		Field:         field,
		Value:         value,
		Rule:          rule,
		Message:       message,
		InvoiceNumber: l.InvoiceNumber,
		RowNumber:     l.SourceRow,
	}
}

func countInvoices(lines []invoice.Line) int {
	seen := make(map[int]bool)
	for _, l := range lines {
		seen[l.InvoiceNumber] = true
	}
	return len(seen)
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation findings for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation findings to a log file, with a timestamped
// header naming the source file.
func WriteErrorLog(errors []*ValidationError, source, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Validation log for %s\n", source)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
