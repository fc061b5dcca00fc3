// =============================================================================
// QBO Invoice Converter - Source Loader
// =============================================================================
//
// The loader turns an uploaded report into a types.Table. Report files arrive
// with unreliable extensions (CSV exports saved as ".xlsx", legacy ".xls"
// workbooks renamed to ".xlsx", Latin-1 CSVs), so loading is an ordered list
// of strategies tried in sequence:
//
//   .csv   -> csv-utf8, csv-latin1
//   .xlsx  -> xlsx, xls, csv-utf8, csv-latin1
//   .xls   -> xls, xlsx, csv-utf8, csv-latin1
//
// When the content sniff says "this is CSV text", the CSV strategies move to
// the front. The first strategy that returns a table wins; if all of them
// fail the loader returns ErrUnreadableSource wrapping every failure.
//
// =============================================================================

package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/csvparser"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"go.uber.org/multierr"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnreadableSource is returned when no strategy could read the file.
	ErrUnreadableSource = errors.New("unreadable source file")

	// ErrInvalidFilename is returned when the file name fails the filename policy.
	ErrInvalidFilename = errors.New("invalid file name")
)

// strictNamePattern is the naming convention of the laundry system's
// financial report export.
var strictNamePattern = regexp.MustCompile(`^Laundry Service - Financial Report - \d{4}-\d{2}-\d{2}.*\.(xlsx|xls)$`)

// relaxedExtensions are the extensions accepted when strict naming is off.
var relaxedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls how a file is accepted and read.
type Options struct {
	// StrictFilenames enforces the report export naming convention
	// (Excel files only).
	StrictFilenames bool

	// CSV holds the CSV parsing settings used by the CSV strategies.
	CSV csvparser.Settings
}

// =============================================================================
// FILENAME POLICY
// =============================================================================

// CheckFilename validates a file name against the strict or relaxed policy.
//
// PARAMETERS:
//   - name:   The file name (a path is reduced to its base name).
//   - strict: Enforce "Laundry Service - Financial Report - YYYY-MM-DD*.xlsx|xls".
//
// RETURNS:
//   - An error wrapping ErrInvalidFilename when the name is not accepted.
func CheckFilename(name string, strict bool) error {
	base := filepath.Base(name)

	if strict {
		if !strictNamePattern.MatchString(base) {
			return fmt.Errorf("%w: %q does not match 'Laundry Service - Financial Report - yyyy-mm-dd...' (.xlsx or .xls)", ErrInvalidFilename, base)
		}
		return nil
	}

	if !relaxedExtensions[strings.ToLower(filepath.Ext(base))] {
		return fmt.Errorf("%w: %q must be an Excel (.xlsx, .xls) or CSV (.csv) file", ErrInvalidFilename, base)
	}
	return nil
}

// =============================================================================
// CONTENT SNIFFING
// =============================================================================

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// minSniffCommas is the number of commas the first line needs before the
// content is treated as CSV text.
const minSniffCommas = 2

// SniffCSV reports whether data looks like CSV text rather than a workbook:
// it is not a ZIP or OLE2 container, its first line has no NUL bytes, and the
// first line contains at least two commas.
func SniffCSV(data []byte) bool {
	if bytes.HasPrefix(data, zipMagic) || bytes.HasPrefix(data, oleMagic) {
		return false
	}

	line := data
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.IndexByte(line, 0) >= 0 {
		return false
	}

	return bytes.Count(line, []byte(",")) >= minSniffCommas
}

// =============================================================================
// LOADING
// =============================================================================

// LoadFile reads a file from disk and loads it.
func LoadFile(path string, opts Options) (*types.Table, error) {
	if err := CheckFilename(path, opts.StrictFilenames); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return load(filepath.Base(path), data, opts)
}

// Load validates the file name and loads the content with the first
// strategy that succeeds.
//
// PARAMETERS:
//   - name: The original file name (used for the policy and strategy order).
//   - data: The full file content.
//   - opts: Loader options.
//
// RETURNS:
//   - The loaded table.
//   - ErrInvalidFilename, or ErrUnreadableSource wrapping each strategy failure.
func Load(name string, data []byte, opts Options) (*types.Table, error) {
	if err := CheckFilename(name, opts.StrictFilenames); err != nil {
		return nil, err
	}
	return load(filepath.Base(name), data, opts)
}

func load(name string, data []byte, opts Options) (*types.Table, error) {
	var failures error

	for _, strategy := range StrategiesFor(name, data, opts.CSV) {
		table, err := strategy.Load(name, data)
		if err == nil {
			return table, nil
		}
		failures = multierr.Append(failures, fmt.Errorf("%s: %w", strategy.Name(), err))
	}

	if failures == nil {
		return nil, fmt.Errorf("%w: %s: no reading strategy for this file type", ErrUnreadableSource, name)
	}
	return nil, fmt.Errorf("%w: %s could not be read with any available reader: %w", ErrUnreadableSource, name, failures)
}
