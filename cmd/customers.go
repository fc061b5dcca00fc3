// =============================================================================
// QBO Invoice Converter - Customers Command
// =============================================================================
//
// The confirmation step before converting: shows which column was taken for
// each role and the customers that will be invoiced, in invoice order.
// With --overrides-template it also writes a names file mapping every
// customer to itself, ready to edit and pass to 'convert --names'.
//
// COMMAND USAGE:
//   qboconv customers --file report.xlsx [--overrides-template names.yaml]
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/ginjaninja78/qbo-invoice-converter/internal/config"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/converter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	customersFile    string
	overridesOutPath string
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List the customers a report would be invoiced to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCustomers(cmd.OutOrStdout(), converter.New(mainConfig, log), customersFile, overridesOutPath)
	},
}

func init() {
	rootCmd.AddCommand(customersCmd)

	customersCmd.Flags().StringVarP(&customersFile, "file", "f", "", "Report file (.xlsx, .xls or .csv)")
	customersCmd.Flags().StringVar(&overridesOutPath, "overrides-template", "", "Write a customer names file to this path")
	_ = customersCmd.MarkFlagRequired("file")
}

func runCustomers(out io.Writer, conv *converter.Converter, file, templatePath string) error {
	table, err := conv.LoadFile(file)
	if err != nil {
		return err
	}

	list, err := conv.Customers(table)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Report: %s (%d rows)\n\n", list.Source, table.Len())
	printRoles(out, list.Roles)

	fmt.Fprintf(out, "\nCustomers (%d):\n", len(list.Customers))
	for i, c := range list.Customers {
		fmt.Fprintf(out, "  %3d. %s\n", i+1, c)
	}

	for _, w := range list.Warnings {
		log.Warn(w.Message, zap.String("file", list.Source), zap.String("rule", w.Rule))
	}

	if templatePath != "" {
		if err := config.WriteOverridesTemplate(templatePath, list.Customers); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nNames file written to %s\n", templatePath)
	}

	return nil
}

func printRoles(out io.Writer, roles resolver.ColumnRoleMap) {
	fmt.Fprintln(out, "Columns:")
	for _, role := range resolver.Roles {
		r, ok := roles[role]
		if !ok {
			fmt.Fprintf(out, "  %-12s (not found)\n", role)
			continue
		}
		fmt.Fprintf(out, "  %-12s %s [%s]\n", role, r.Column, r.Tier)
	}
}
