package loader

import (
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/csvparser"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/xlsxparser"
)

// Strategy is one way of reading a report file.
type Strategy interface {
	Name() string
	Load(name string, data []byte) (*types.Table, error)
}

// strategyFunc adapts a parse function to Strategy.
type strategyFunc struct {
	name string
	load func(name string, data []byte) (*types.Table, error)
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Load(name string, data []byte) (*types.Table, error) {
	return s.load(name, data)
}

// XLSXStrategy reads Office Open XML workbooks.
func XLSXStrategy() Strategy {
	return strategyFunc{name: "xlsx", load: func(name string, data []byte) (*types.Table, error) {
		return xlsxparser.ParseXLSX(data, name)
	}}
}

// XLSStrategy reads legacy BIFF8 workbooks.
func XLSStrategy() Strategy {
	return strategyFunc{name: "xls", load: func(name string, data []byte) (*types.Table, error) {
		return xlsxparser.ParseXLS(data, name)
	}}
}

// CSVUTF8Strategy reads UTF-8 CSV text.
func CSVUTF8Strategy(settings csvparser.Settings) Strategy {
	return strategyFunc{name: "csv-utf8", load: func(name string, data []byte) (*types.Table, error) {
		return csvparser.ParseUTF8(data, name, settings)
	}}
}

// CSVLatin1Strategy reads ISO-8859-1 CSV text.
func CSVLatin1Strategy(settings csvparser.Settings) Strategy {
	return strategyFunc{name: "csv-latin1", load: func(name string, data []byte) (*types.Table, error) {
		return csvparser.ParseLatin1(data, name, settings)
	}}
}

// StrategiesFor returns the ordered strategies for a file.
// The extension decides the base order; sniffed CSV content puts the CSV
// strategies first. Unknown extensions get no strategies.
func StrategiesFor(name string, data []byte, settings csvparser.Settings) []Strategy {
	csvStrategies := []Strategy{CSVUTF8Strategy(settings), CSVLatin1Strategy(settings)}

	var workbook []Strategy
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return csvStrategies
	case ".xlsx":
		workbook = []Strategy{XLSXStrategy(), XLSStrategy()}
	case ".xls":
		workbook = []Strategy{XLSStrategy(), XLSXStrategy()}
	default:
		return nil
	}

	if SniffCSV(data) {
		return append(csvStrategies, workbook...)
	}
	return append(workbook, csvStrategies...)
}
