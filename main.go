// =============================================================================
// QBO Invoice Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   qboconv customers  - List the customers of a report before converting
//   qboconv convert    - Convert one report, or every report in input_dir
//   qboconv serve      - Run the upload API
//   qboconv version    - Display the application version
//
// LAYOUT:
//   - cmd/       : CLI commands (Cobra)
//   - internal/  : loading, column resolution, invoice building, validation,
//                  CSV output and the HTTP API
//   - pkg/utils  : input discovery, archiving and run logs
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/qbo-invoice-converter/cmd"
)

func main() {
	cmd.Execute()
}
