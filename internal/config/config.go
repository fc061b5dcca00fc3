// =============================================================================
// QBO Invoice Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration:
//
//   1. Built-in defaults
//   2. The YAML config file (optional; a missing file means defaults)
//   3. Environment variables, read after loading a .env file if present
//
// Later sources win. The customer name overrides file is handled separately
// (see overrides.go) because it changes per run.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvLogLevel        = "QBOCONV_LOG_LEVEL"
	EnvListenAddr      = "QBOCONV_LISTEN_ADDR"
	EnvStrictFilenames = "QBOCONV_STRICT_FILENAMES"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for reports in batch mode.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives import files and logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives converted reports when ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir is the long-term store for import files.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat names import files. Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYY-MM-DD)
	//   {original}  - Input file name without extension
	// Default: "quickbooks_import_{timestamp}.csv"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds how many files are loaded at once in batch mode.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a batch going when one file fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// ArchiveInputs moves converted reports to InputArchiveDir.
	// Default: false
	ArchiveInputs bool `yaml:"archive_inputs"`

	// StrictFilenames only accepts "Laundry Service - Financial Report -
	// YYYY-MM-DD*.xlsx|xls" files.
	// Default: false
	StrictFilenames bool `yaml:"strict_filenames"`

	CSV     CSVSettings   `yaml:"csv"`
	Invoice InvoiceConfig `yaml:"invoice"`
	Server  ServerConfig  `yaml:"server"`
}

// CSVSettings contains settings for parsing CSV reports.
type CSVSettings struct {
	// Delimiter is the field separator; empty means detect.
	Delimiter string `yaml:"delimiter"`
}

// InvoiceConfig holds the QuickBooks invoice parameters.
type InvoiceConfig struct {
	// ItemProductService is the QuickBooks item every line is billed as.
	// Default: "Linhas de Lavanderia:Services"
	ItemProductService string `yaml:"item_product_service"`

	// DueDays is the payment term after the invoice date.
	// Default: 4
	DueDays int `yaml:"due_days"`

	// AllowedStatuses are the report statuses that are billed.
	// Default: Delivery, Production, Open
	AllowedStatuses []string `yaml:"allowed_statuses"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// ListenAddr is the address the API listens on.
	// Default: ":5000"
	ListenAddr string `yaml:"listen_addr"`

	// MaxUploadBytes caps the size of an uploaded report.
	// Default: 16 MiB
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the built-in configuration.
func Default() *MainConfig {
	cfg := &MainConfig{ContinueOnError: true}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the configuration.
//
// PARAMETERS:
//   - configPath: The YAML file. Empty or missing means defaults only.
//
// RETURNS:
//   - The configuration with defaults and environment overrides applied.
//   - An error if the file cannot be parsed or a value is invalid.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// A .env file is optional.
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Defaults apply.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyMainConfigDefaults(config)

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "quickbooks_import_{timestamp}.csv"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Invoice.ItemProductService == "" {
		config.Invoice.ItemProductService = "Linhas de Lavanderia:Services"
	}
	if config.Invoice.DueDays == 0 {
		config.Invoice.DueDays = 4
	}
	if len(config.Invoice.AllowedStatuses) == 0 {
		config.Invoice.AllowedStatuses = []string{"Delivery", "Production", "Open"}
	}
	if config.Server.ListenAddr == "" {
		config.Server.ListenAddr = ":5000"
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = 16 << 20
	}
}

func applyEnvOverrides(config *MainConfig) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		config.Server.ListenAddr = v
	}
	if v := os.Getenv(EnvStrictFilenames); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvStrictFilenames, v, err)
		}
		config.StrictFilenames = strict
	}
	return nil
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", config.LogFormat)
	}

	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.Invoice.DueDays < 0 {
		return fmt.Errorf("invoice.due_days cannot be negative, got %d", config.Invoice.DueDays)
	}
	if config.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes cannot be negative, got %d", config.Server.MaxUploadBytes)
	}

	return nil
}
