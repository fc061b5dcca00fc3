// =============================================================================
// QBO Invoice Converter - Root Command
// =============================================================================
//
// The root command holds the global flags and prepares the shared state every
// subcommand needs: the main configuration and the logger.
//
// COBRA CLI STRUCTURE:
//   rootCmd (qboconv)
//   ├── customersCmd (qboconv customers)
//   ├── convertCmd   (qboconv convert)
//   ├── serveCmd     (qboconv serve)
//   └── versionCmd   (qboconv version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/config"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig and log are set by the root command before any subcommand runs.
var (
	mainConfig *config.MainConfig
	log        = zap.NewNop()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "qboconv",
	Short: "Laundry report to QuickBooks Online invoice import converter",
	Long: `qboconv turns the laundry service financial report (.xlsx, .xls or .csv)
into a QuickBooks Online invoice import CSV: one invoice per customer, one
line per billable service row.

Example Usage:
  qboconv customers --file report.xlsx --overrides-template names.yaml
  qboconv convert --file report.xlsx --start 1001 --date 2024-03-10 --names names.yaml
  qboconv convert --start 1001 --date 2024-03-10   # every report in input_dir
  qboconv serve`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initRuntime loads the configuration and builds the logger.
func initRuntime() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	l, err := logger.New(level, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	mainConfig = cfg
	log = l
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (defaults apply when it is missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
