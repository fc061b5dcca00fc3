// =============================================================================
// QBO Invoice Converter - CSV Parser Module
// =============================================================================
//
// This module parses CSV exports of the laundry financial report. It handles:
//   - A leading UTF-8 byte order mark (spreadsheet tools add one on export)
//   - Comma, semicolon and tab delimiters (detected from the header line)
//   - Quoted fields with lazy quoting and variable field counts
//   - UTF-8 input, with a Latin-1 decoder for legacy exports
//
// The parser only turns bytes into a types.Table. Choosing which parser to
// try for a given upload is the loader's job.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrInvalidUTF8 is returned by ParseUTF8 when the input is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("input is not valid UTF-8")

	// ErrBinaryContent is returned when the input contains NUL bytes and so
	// cannot be CSV text.
	ErrBinaryContent = errors.New("input is binary, not CSV text")
)

// utf8BOM is the byte order mark written by Excel's "CSV UTF-8" export.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings contains settings for parsing CSV content.
type Settings struct {
	// Delimiter is the field separator.
	// Accepted values: ",", ";", "\t" (or "tab"), "|" (or "pipe").
	// Empty means detect from the first line.
	Delimiter string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseUTF8 parses UTF-8 CSV content into a table.
//
// PARAMETERS:
//   - data:     The raw file content.
//   - source:   The file name, used in error messages and on the table.
//   - settings: Parsing settings.
//
// RETURNS:
//   - The parsed table.
//   - ErrInvalidUTF8 if the content is not UTF-8, or a parse error.
func ParseUTF8(data []byte, source string, settings Settings) (*types.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", source, ErrInvalidUTF8)
	}
	return Parse(bytes.NewReader(data), source, settings)
}

// ParseLatin1 parses ISO-8859-1 CSV content into a table.
// Every byte sequence is valid Latin-1; only binary content and CSV syntax fail.
func ParseLatin1(data []byte, source string, settings Settings) (*types.Table, error) {
	reader := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	return Parse(reader, source, settings)
}

// Parse reads CSV records from r and builds a table.
//
// PARSING PROCESS:
//   1. Buffer the content so the delimiter can be detected on the first line
//   2. Configure the CSV reader with the delimiter and quote settings
//   3. Read all records
//   4. Convert the records to a table (first non-empty record is the header)
func Parse(r io.Reader, source string, settings Settings) (*types.Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read CSV: %w", source, err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%s: CSV file is empty", source)
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrBinaryContent)
	}

	csvReader := csv.NewReader(bytes.NewReader(content))
	configureReader(csvReader, settings, firstLine(content))

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read CSV: %w", source, err)
	}

	return types.TableFromRecords(records, source)
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings Settings, header string) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	case ",", "comma":
		reader.Comma = ','
	default:
		reader.Comma = DetectDelimiter(header)
	}

	// Report exports are hand-edited; rows may be short and quotes sloppy.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// DetectDelimiter picks the most frequent of comma, semicolon and tab in the
// header line. Ties and lines without any of them fall back to comma.
func DetectDelimiter(header string) rune {
	best := ','
	bestCount := strings.Count(header, ",")

	for _, candidate := range []rune{';', '\t'} {
		if n := strings.Count(header, string(candidate)); n > bestCount {
			best = candidate
			bestCount = n
		}
	}

	return best
}

// firstLine returns the first line of content without its line terminator.
func firstLine(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	return strings.TrimRight(string(content), "\r")
}
