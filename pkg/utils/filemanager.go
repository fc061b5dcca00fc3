// =============================================================================
// QBO Invoice Converter - File Manager Utility
// =============================================================================
//
// This module provides file management for batch conversions:
//   - Report discovery in the input directory
//   - Archival of converted reports and generated import files
//   - Import file naming
//   - Error log and processing summary files
//
// ARCHIVAL STRATEGY:
//   - Reports are moved to input_archive after successful conversion
//   - Import files are copied to output_archive for long-term storage
//   - Failed reports remain in their original location
//   - Error logs and summaries are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportExtensions are the file types the converter reads.
var ReportExtensions = []string{".xlsx", ".xls", ".csv"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch conversions.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// UseTimestampSubdirs files archives under YYYY/MM/DD.
	UseTimestampSubdirs bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
		fm.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the files in the input directory whose extension
// is one of extensions (case-insensitive), sorted by name. No extensions
// means ReportExtensions. Subdirectories and hidden files are skipped.
func (fm *FileManager) DiscoverInputFiles(extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = ReportExtensions
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if wanted[strings.ToLower(filepath.Ext(name))] {
			files = append(files, filepath.Join(fm.InputDir, name))
		}
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a converted report to the input archive.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an import file to the output archive. The
// original stays in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.OutputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(archiveDir, now.Format("2006"), now.Format("01"), now.Format("02"), fileName)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds an import file name from a format.
//
// PARAMETERS:
//   - format: The name format. Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYY-MM-DD)
//               {original}  - Report file name without extension
//   - original: The report file name (may be empty).
//
// RETURNS:
//   - The file name, always ending in ".csv".
//
// EXAMPLE:
//   format:   "{original}_{date}.csv"
//   original: "Laundry Service - Financial Report - 2024-03-01.xlsx"
//   output:   "Laundry Service - Financial Report - 2024-03-01_2024-03-10.csv"
func GenerateOutputFileName(format, original string) string {
	now := time.Now()
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if original == "" {
		base = "report"
	}

	result := strings.NewReplacer(
		"{uuid}", uuid.NewString(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("2006-01-02"),
		"{original}", base,
	).Replace(format)

	if !strings.HasSuffix(strings.ToLower(result), ".csv") {
		result += ".csv"
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp     time.Time
	FileName      string
	ErrorType     string
	ErrorMessage  string
	RowNumber     int
	FieldName     string
	FieldValue    string
	InvoiceNumber int
}

// WriteErrorLog writes error entries to error_log_<timestamp>.txt in
// outputDir. Nothing is written when there are no entries.
//
// RETURNS:
//   - The path to the error log file ("" when nothing was written).
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "QBO Invoice Converter - Error Log\n"+
		"Generated: %s\n"+
		"Total Entries: %d\n"+
		"%s\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries),
		rule)

	for i, entry := range entries {
		fmt.Fprintf(w, "Entry #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.InvoiceNumber > 0 {
			fmt.Fprintf(w, "  Invoice:        %d\n", entry.InvoiceNumber)
		}
		if entry.RowNumber > 0 {
			fmt.Fprintf(w, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(w, "  Field:          %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(w, "  Value:          %s\n", entry.FieldValue)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s\nEnd of Error Log\n", rule)

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRows       int
	TotalInvoices   int
	TotalLines      int
	Warnings        int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a converted report.
type ProcessedFileInfo struct {
	InputFile    string
	OutputFile   string
	ArchivePath  string
	Rows         int
	Invoices     int
	Lines        int
	FirstInvoice int
	LastInvoice  int
	ProcessTime  time.Duration
}

// FailedFileInfo describes a report that could not be converted.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

const rule = "================================================================================"

// WriteSummaryLog writes processing_summary_<timestamp>.txt in outputDir.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "QBO Invoice Converter - Processing Summary\n"+
		"%s\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Rows:     %d\n"+
		"  Total Invoices: %d\n"+
		"  Total Lines:    %d\n"+
		"  Warnings:       %d\n\n",
		rule,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.TotalInvoices,
		summary.TotalLines,
		summary.Warnings)

	if len(summary.ProcessedFiles) > 0 {
		fmt.Fprintf(w, "Successful Files:\n%s\n", strings.Repeat("-", len(rule)))
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(w, "  Output:       %s\n", pf.OutputFile)
			if pf.ArchivePath != "" {
				fmt.Fprintf(w, "  Archived To:  %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(w, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(w, "  Invoices:     %d (%d-%d)\n", pf.Invoices, pf.FirstInvoice, pf.LastInvoice)
			fmt.Fprintf(w, "  Lines:        %d\n", pf.Lines)
			fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		fmt.Fprintf(w, "Failed Files:\n%s\n", strings.Repeat("-", len(rule)))
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(w, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	fmt.Fprintf(w, "%s\nEnd of Summary\n", rule)

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
