// =============================================================================
// QBO Invoice Converter - Convert Command
// =============================================================================
//
// The 'convert' command produces the QuickBooks invoice import CSV.
//
// COMMAND USAGE:
//   qboconv convert --start N --date YYYY-MM-DD [flags]
//
// FLAGS:
//   --file     : Convert this report only. Without it every report in
//                input_dir is converted.
//   --start    : First invoice number
//   --date     : Invoice date (YYYY-MM-DD)
//   --names    : Customer names file (see 'qboconv customers')
//   --output   : Output path (single file only)
//   --dry-run  : Convert and report without writing anything
//
// BATCH PIPELINE:
//   1. Discover reports in input_dir
//   2. Load them concurrently (max_concurrency workers)
//   3. Convert them one by one in file name order; each report starts at the
//      number after the previous report's last invoice
//   4. Write each import file, copy it to the output archive and optionally
//      move the report to the input archive
//   5. Write the error log and the processing summary
//
// With continue_on_error a failing report is recorded and skipped; otherwise
// the run stops at the first failure.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/config"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/converter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/loader"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/qbowriter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/validation"
	"github.com/ginjaninja78/qbo-invoice-converter/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// convertOptions are the flags of one 'convert' run.
type convertOptions struct {
	File      string
	Start     int
	Date      string
	NamesPath string
	Output    string
	DryRun    bool
}

var convertFlags convertOptions

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert laundry reports to a QuickBooks invoice import CSV",
	Long: `Convert one report (--file) or every report in input_dir into QuickBooks
Online invoice import files.

On success:
  - The import CSV is written to output_dir (or --output) and copied to
    output_archive_dir
  - With archive_inputs the report is moved to input_archive_dir
  - Validation warnings are logged and written to the error log

On error:
  - The report stays in input_dir
  - The failure is recorded in the error log and the processing summary`,

	RunE: func(cmd *cobra.Command, args []string) error {
		conv := converter.New(mainConfig, log)
		return runConvert(cmd.Context(), cmd.OutOrStdout(), mainConfig, conv, convertFlags)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	f := convertCmd.Flags()
	f.StringVarP(&convertFlags.File, "file", "f", "", "Convert only this report")
	f.IntVar(&convertFlags.Start, "start", 0, "First invoice number")
	f.StringVar(&convertFlags.Date, "date", "", "Invoice date (YYYY-MM-DD)")
	f.StringVar(&convertFlags.NamesPath, "names", "", "Customer names file (YAML)")
	f.StringVarP(&convertFlags.Output, "output", "o", "", "Output path (single file only)")
	f.BoolVar(&convertFlags.DryRun, "dry-run", false, "Convert without writing any file")

	_ = convertCmd.MarkFlagRequired("start")
	_ = convertCmd.MarkFlagRequired("date")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(ctx context.Context, out io.Writer, cfg *config.MainConfig, conv *converter.Converter, opts convertOptions) error {
	params, err := buildParams(opts)
	if err != nil {
		return err
	}

	if opts.File != "" {
		return convertSingle(out, cfg, conv, opts, params)
	}

	if opts.Output != "" {
		return errors.New("--output needs --file")
	}

	_, err = convertBatch(ctx, out, cfg, conv, opts, params)
	return err
}

func buildParams(opts convertOptions) (converter.Params, error) {
	if opts.Start <= 0 {
		return converter.Params{}, fmt.Errorf("--start must be a positive invoice number, got %d", opts.Start)
	}

	date, err := time.Parse("2006-01-02", opts.Date)
	if err != nil {
		return converter.Params{}, fmt.Errorf("--date must be YYYY-MM-DD, got %q", opts.Date)
	}

	params := converter.Params{StartInvoiceNumber: opts.Start, InvoiceDate: date}

	if opts.NamesPath != "" {
		overrides, err := config.LoadOverrides(opts.NamesPath)
		if err != nil {
			return converter.Params{}, err
		}
		params.CustomerOverrides = overrides
	}

	return params, nil
}

// convertSingle converts one report to opts.Output, or to output_dir.
func convertSingle(out io.Writer, cfg *config.MainConfig, conv *converter.Converter, opts convertOptions, params converter.Params) error {
	table, err := conv.LoadFile(opts.File)
	if err != nil {
		return err
	}

	res, err := conv.Convert(table, params)
	if err != nil {
		return err
	}
	logFindings(res)

	if opts.DryRun {
		printResult(out, res, "(dry run, nothing written)")
		return nil
	}

	outPath := opts.Output
	if outPath == "" {
		outPath = filepath.Join(cfg.OutputDir, utils.GenerateOutputFileName(cfg.OutputNameFormat, opts.File))
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := qbowriter.WriteFile(outPath, res.Lines); err != nil {
		return err
	}

	if len(res.Validation.Errors) > 0 {
		logPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_validation.log"
		if err := validation.WriteErrorLog(res.Validation.Errors, res.Source, logPath); err != nil {
			return err
		}
		log.Info("validation log written", zap.String("path", logPath))
	}

	printResult(out, res, outPath)
	return nil
}

// convertBatch converts every report in the input directory.
func convertBatch(ctx context.Context, out io.Writer, cfg *config.MainConfig, conv *converter.Converter, opts convertOptions, params converter.Params) (utils.ProcessingSummary, error) {
	summary := utils.ProcessingSummary{StartTime: time.Now()}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	fm.UseTimestampSubdirs = true

	if !opts.DryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return summary, err
		}
	}

	// =========================================================================
	// STEP 1: DISCOVER INPUT FILES
	// =========================================================================

	files, err := fm.DiscoverInputFiles()
	if err != nil {
		return summary, err
	}
	summary.TotalFiles = len(files)

	if len(files) == 0 {
		log.Info("no reports found", zap.String("input_dir", cfg.InputDir))
		fmt.Fprintln(out, "No reports found in the input directory.")
		return summary, nil
	}

	log.Info("reports found", zap.Int("count", len(files)))

	// =========================================================================
	// STEP 2: LOAD CONCURRENTLY
	// =========================================================================

	tables, loadErrs, err := loadAll(ctx, conv, files, cfg.MaxConcurrency, cfg.ContinueOnError)
	if err != nil {
		return summary, err
	}

	// =========================================================================
	// STEP 3: CONVERT IN ORDER
	// =========================================================================

	var entries []utils.ErrorLogEntry
	usedNames := make(map[string]bool)
	next := params.StartInvoiceNumber

	for i, file := range files {
		fileStart := time.Now()

		err := loadErrs[i]
		var res *converter.Result
		if err == nil {
			p := params
			p.StartInvoiceNumber = next
			res, err = conv.Convert(tables[i], p)
		}

		if err != nil {
			log.Error("report failed", zap.String("file", file), zap.Error(err))
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    file,
				ErrorMessage: err.Error(),
				ErrorType:    failureType(err),
			})
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     filepath.Base(file),
				ErrorType:    failureType(err),
				ErrorMessage: err.Error(),
			})
			if !cfg.ContinueOnError {
				return summary, fmt.Errorf("%s: %w", filepath.Base(file), err)
			}
			continue
		}

		logFindings(res)
		entries = append(entries, findingEntries(res)...)

		info := utils.ProcessedFileInfo{
			InputFile:    file,
			Rows:         res.Stats.RowsRead,
			Invoices:     res.Stats.InvoicesCreated,
			Lines:        res.Stats.LinesCreated,
			FirstInvoice: next,
			LastInvoice:  res.NextInvoiceNumber - 1,
		}

		if opts.DryRun {
			printResult(out, res, "(dry run, nothing written)")
		} else {
			outPath := uniquePath(filepath.Join(cfg.OutputDir, utils.GenerateOutputFileName(cfg.OutputNameFormat, file)), usedNames)
			if err := writeOutput(fm, cfg, outPath, file, res, &info); err != nil {
				return summary, err
			}
			printResult(out, res, outPath)
		}

		info.ProcessTime = time.Since(fileStart)
		summary.SuccessfulFiles++
		summary.TotalRows += info.Rows
		summary.TotalInvoices += info.Invoices
		summary.TotalLines += info.Lines
		summary.Warnings += res.Stats.Warnings
		summary.ProcessedFiles = append(summary.ProcessedFiles, info)

		next = res.NextInvoiceNumber
	}

	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: RUN LOGS
	// =========================================================================

	if !opts.DryRun {
		if logPath, err := utils.WriteErrorLog(entries, cfg.OutputDir); err != nil {
			log.Error("failed to write error log", zap.Error(err))
		} else if logPath != "" {
			log.Info("error log written", zap.String("path", logPath))
		}

		if summaryPath, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
			log.Error("failed to write summary", zap.Error(err))
		} else {
			log.Info("summary written", zap.String("path", summaryPath))
		}
	}

	fmt.Fprintf(out, "\n%d of %d report(s) converted, %d invoice(s); next invoice number %d\n",
		summary.SuccessfulFiles, summary.TotalFiles, summary.TotalInvoices, next)

	if summary.FailedFiles > 0 {
		return summary, fmt.Errorf("%d report(s) failed, see the error log", summary.FailedFiles)
	}
	return summary, nil
}

// loadAll loads files with at most limit concurrent readers. With
// continueOnError a failure is kept at the file's index; otherwise the first
// failure cancels the rest and is returned.
func loadAll(ctx context.Context, conv *converter.Converter, files []string, limit int, continueOnError bool) ([]*types.Table, []error, error) {
	tables := make([]*types.Table, len(files))
	loadErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			table, err := conv.LoadFile(file)
			if err != nil {
				if !continueOnError {
					return fmt.Errorf("%s: %w", filepath.Base(file), err)
				}
				loadErrs[i] = err
				return nil
			}

			tables[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tables, loadErrs, nil
}

// writeOutput writes the import file and archives it, and the report when
// archive_inputs is set.
func writeOutput(fm *utils.FileManager, cfg *config.MainConfig, outPath, inputPath string, res *converter.Result, info *utils.ProcessedFileInfo) error {
	if err := qbowriter.WriteFile(outPath, res.Lines); err != nil {
		return err
	}
	info.OutputFile = outPath

	if _, err := fm.ArchiveOutputFile(outPath); err != nil {
		log.Warn("failed to archive output", zap.String("file", outPath), zap.Error(err))
	}

	if cfg.ArchiveInputs {
		archived, err := fm.ArchiveInputFile(inputPath)
		if err != nil {
			return err
		}
		info.ArchivePath = archived
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// uniquePath appends _2, _3, ... before the extension until the path is
// neither used in this run nor present on disk.
func uniquePath(path string, used map[string]bool) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	candidate := path
	for n := 2; used[candidate] || utils.FileExists(candidate); n++ {
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}

	used[candidate] = true
	return candidate
}

// failureType names the error class for the run logs.
func failureType(err error) string {
	switch {
	case errors.Is(err, loader.ErrInvalidFilename):
		return "invalid_filename"
	case errors.Is(err, loader.ErrUnreadableSource):
		return "unreadable_source"
	case errors.Is(err, resolver.ErrUnresolvedRequiredColumn):
		return "unresolved_column"
	case errors.Is(err, invoice.ErrNoValidRows):
		return "no_valid_rows"
	case errors.Is(err, invoice.ErrInvalidOptions):
		return "invalid_options"
	default:
		return "conversion"
	}
}

func findingEntries(res *converter.Result) []utils.ErrorLogEntry {
	entries := make([]utils.ErrorLogEntry, 0, len(res.Validation.Errors))
	for _, f := range res.Validation.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:     time.Now(),
			FileName:      res.Source,
			ErrorType:     f.Severity,
			ErrorMessage:  f.Message,
			RowNumber:     f.RowNumber,
			FieldName:     f.Field,
			FieldValue:    f.Value,
			InvoiceNumber: f.InvoiceNumber,
		})
	}
	return entries
}

func logFindings(res *converter.Result) {
	for _, f := range res.Validation.Errors {
		fields := []zap.Field{
			zap.String("file", res.Source),
			zap.String("rule", f.Rule),
		}
		if f.RowNumber > 0 {
			fields = append(fields, zap.Int("row", f.RowNumber))
		}
		if f.Severity == validation.SeverityError {
			log.Error(f.Message, fields...)
		} else {
			log.Warn(f.Message, fields...)
		}
	}
}

func printResult(out io.Writer, res *converter.Result, dest string) {
	fmt.Fprintf(out, "%s: %d invoice(s), %d line(s), %d warning(s) -> %s\n",
		res.Source, res.Stats.InvoicesCreated, res.Stats.LinesCreated, res.Stats.Warnings, dest)
}
