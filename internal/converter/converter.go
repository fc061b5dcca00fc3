// =============================================================================
// QBO Invoice Converter - Converter Module
// =============================================================================
//
// This module orchestrates one conversion, from uploaded bytes to validated
// invoice lines. Both the CLI and the HTTP API go through it.
//
// CONVERSION PIPELINE:
//   1. Load the report (filename policy + reader strategies)
//   2. Resolve column roles
//   3. Extract customers (confirmation step) or build invoice lines
//   4. Validate the lines
//
// Writing the import file is left to the caller: the CLI writes to disk,
// the API streams the bytes back.
//
// CONCURRENCY:
//   A Converter holds only read-only settings and may be shared between
//   goroutines.
//
// =============================================================================

package converter

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/config"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/csvparser"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/loader"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/validation"
	"go.uber.org/zap"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Result represents the outcome of converting one report.
type Result struct {
	// Source is the report file name.
	Source string

	// Roles are the resolved column roles.
	Roles resolver.ColumnRoleMap

	// Lines are the invoice lines in output order.
	Lines []invoice.Line

	// Validation holds the post-build findings.
	Validation *validation.ValidationResult

	// NextInvoiceNumber is the number the next report should start at.
	NextInvoiceNumber int

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of data rows in the report.
	RowsRead int

	// InvoicesCreated is the number of distinct invoices.
	InvoicesCreated int

	// LinesCreated is the number of invoice lines.
	LinesCreated int

	// Warnings is the number of validation warnings.
	Warnings int

	// ProcessingTime is the time taken by Convert.
	ProcessingTime time.Duration
}

// CustomerList is the outcome of the customer confirmation step.
type CustomerList struct {
	Source    string
	Customers []string
	Roles     resolver.ColumnRoleMap
	Warnings  []*validation.ValidationError
}

// Params are the per-run invoice parameters.
type Params struct {
	StartInvoiceNumber int
	InvoiceDate        time.Time
	CustomerOverrides  map[string]string
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the conversion pipeline with fixed settings.
type Converter struct {
	loaderOpts loader.Options
	invoiceCfg config.InvoiceConfig
	logger     *zap.Logger
}

// New creates a Converter from the main configuration.
// A nil logger discards log output.
func New(cfg *config.MainConfig, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		loaderOpts: loader.Options{
			StrictFilenames: cfg.StrictFilenames,
			CSV:             csvparser.Settings{Delimiter: cfg.CSV.Delimiter},
		},
		invoiceCfg: cfg.Invoice,
		logger:     logger,
	}
}

// =============================================================================
// PIPELINE STEPS
// =============================================================================

// Load reads an uploaded report.
func (c *Converter) Load(name string, data []byte) (*types.Table, error) {
	table, err := loader.Load(name, data, c.loaderOpts)
	if err != nil {
		return nil, err
	}
	c.logLoaded(table)
	return table, nil
}

// LoadFile reads a report from disk.
func (c *Converter) LoadFile(path string) (*types.Table, error) {
	table, err := loader.LoadFile(path, c.loaderOpts)
	if err != nil {
		return nil, err
	}
	c.logLoaded(table)
	return table, nil
}

func (c *Converter) logLoaded(table *types.Table) {
	c.logger.Debug("report loaded",
		zap.String("file", table.SourceFile),
		zap.Strings("columns", table.Headers),
		zap.Int("rows", table.Len()),
	)
}

// Customers resolves the columns of a report and lists its billable
// customers in invoice order.
func (c *Converter) Customers(table *types.Table) (*CustomerList, error) {
	roles, err := resolver.Resolve(table.Headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table.SourceFile, err)
	}

	customers, err := invoice.ListUniqueCustomers(table, roles, c.invoiceCfg.AllowedStatuses...)
	if err != nil {
		return nil, err
	}

	return &CustomerList{
		Source:    table.SourceFile,
		Customers: customers,
		Roles:     roles,
		Warnings:  validation.ValidateRoles(roles),
	}, nil
}

// Convert builds and validates the invoice lines of a report.
//
// PARAMETERS:
//   - table:  The loaded report.
//   - params: Start number, invoice date and name overrides.
//
// RETURNS:
//   - The conversion result; validation findings do not make it fail.
//   - An error if a required column is missing, no row is billable, or the
//     parameters are invalid.
func (c *Converter) Convert(table *types.Table, params Params) (*Result, error) {
	start := time.Now()

	roles, err := resolver.Resolve(table.Headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table.SourceFile, err)
	}
	for _, role := range resolver.Roles {
		if r, ok := roles[role]; ok {
			c.logger.Debug("column resolved",
				zap.String("file", table.SourceFile),
				zap.String("role", string(role)),
				zap.String("column", r.Column),
				zap.Stringer("tier", r.Tier),
			)
		}
	}

	lines, err := invoice.Build(table, roles, invoice.BuildOptions{
		StartInvoiceNumber: params.StartInvoiceNumber,
		InvoiceDate:        params.InvoiceDate,
		CustomerOverrides:  params.CustomerOverrides,
		ItemProductService: c.invoiceCfg.ItemProductService,
		DueDays:            c.invoiceCfg.DueDays,
		AllowedStatuses:    c.invoiceCfg.AllowedStatuses,
	})
	if err != nil {
		return nil, err
	}

	result := validation.Validate(lines, roles, params.StartInvoiceNumber)

	res := &Result{
		Source:            table.SourceFile,
		Roles:             roles,
		Lines:             lines,
		Validation:        result,
		NextInvoiceNumber: params.StartInvoiceNumber + result.InvoicesValidated,
		Stats: ProcessingStats{
			RowsRead:        table.Len(),
			InvoicesCreated: result.InvoicesValidated,
			LinesCreated:    len(lines),
			Warnings:        result.WarningCount,
			ProcessingTime:  time.Since(start),
		},
	}

	c.logger.Info("report converted",
		zap.String("file", res.Source),
		zap.Int("rows", res.Stats.RowsRead),
		zap.Int("invoices", res.Stats.InvoicesCreated),
		zap.Int("lines", res.Stats.LinesCreated),
		zap.Int("warnings", res.Stats.Warnings),
		zap.Duration("duration", res.Stats.ProcessingTime),
	)

	return res, nil
}
