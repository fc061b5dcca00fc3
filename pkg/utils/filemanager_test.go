package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *FileManager {
	t.Helper()

	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newManager(t)

	for _, name := range []string{"b.xlsx", "a.CSV", "c.xls", "notes.txt", ".hidden.csv", "~$lock.xlsx"} {
		touch(t, filepath.Join(fm.InputDir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "sub.csv"), 0o755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"a.CSV", "b.xlsx", "c.xls"}, names)

	files, err = fm.DiscoverInputFiles(".txt")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestArchive(t *testing.T) {
	fm := newManager(t)

	input := filepath.Join(fm.InputDir, "report.csv")
	touch(t, input)

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.False(t, FileExists(input))
	assert.True(t, FileExists(archived))

	output := filepath.Join(fm.OutputDir, "out.csv")
	touch(t, output)

	fm.UseTimestampSubdirs = true
	copied, err := fm.ArchiveOutputFile(output)
	require.NoError(t, err)
	assert.True(t, FileExists(output))
	assert.True(t, FileExists(copied))
	assert.Contains(t, copied, time.Now().Format("2006"))
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("quickbooks_import_{timestamp}.csv", "")
	assert.True(t, strings.HasPrefix(name, "quickbooks_import_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))

	name = GenerateOutputFileName("{original}_{date}", "/in/Report 1.xlsx")
	assert.Equal(t, "Report 1_"+time.Now().Format("2006-01-02")+".csv", name)

	a := GenerateOutputFileName("{uuid}.csv", "")
	b := GenerateOutputFileName("{uuid}.csv", "")
	assert.NotEqual(t, a, b)
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp: time.Now(), FileName: "report.csv", ErrorType: "warning",
		ErrorMessage: "Price could not be read", RowNumber: 3, FieldName: "*ItemAmount", InvoiceNumber: 101,
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Entries: 1")
	assert.Contains(t, string(data), "Invoice:        101")
	assert.Contains(t, string(data), "Row Number:     3")
}

func TestWriteSummaryLog(t *testing.T) {
	start := time.Now()
	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime: start, EndTime: start.Add(time.Second),
		TotalFiles: 2, SuccessfulFiles: 1, FailedFiles: 1, TotalInvoices: 3,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.csv", OutputFile: "a_out.csv", Invoices: 3, FirstInvoice: 100, LastInvoice: 102}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.csv", ErrorType: "unreadable", ErrorMessage: "boom"}},
	}, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Invoices:     3 (100-102)")
	assert.Contains(t, string(data), "Error: boom")
}
