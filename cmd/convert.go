// =============================================================================
// X-Plane Airway Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which runs a single conversion
// job from command-line flags without needing a jobs section in the config.
//
// COMMAND USAGE:
//   airway convert --csv RTE_SEG.csv --fix earth_fix.dat --nav earth_nav.dat [flags]
//
// FLAGS:
//   --csv         : Route-segment file (.csv, .xlsx or .xlsm)
//   --fix         : earth_fix.dat reference table
//   --nav         : earth_nav.dat reference table
//   --output      : Output path (default: generated in output_dir)
//   --sheet       : Worksheet to read from a workbook input
//   --skip-report : Write <output>.skipped.txt listing skipped rows
//   --dry-run     : Run every stage except writing
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xplane-airway-converter/internal/converter"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	csvPath       string
	fixPath       string
	navPath       string
	outputPath    string
	sheetName     string
	skipReport    bool
	convertDryRun bool
)

// convertCmd represents the 'convert' command.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one route-segment file into X-Plane airway records",
	Long: `The convert command resolves every route segment in the input file against
earth_fix.dat and earth_nav.dat, formats two airway records per segment, sorts
them by designator and writes them to the output path.

Rows with an empty field, an unknown point type or an identifier missing from
both reference tables are skipped and counted. A missing input file, an empty
reference table or a failed write fails the command.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.StringVar(&csvPath, "csv", "", "Route-segment file (.csv, .xlsx or .xlsm)")
	flags.StringVar(&fixPath, "fix", "", "Path to earth_fix.dat")
	flags.StringVar(&navPath, "nav", "", "Path to earth_nav.dat")
	flags.StringVarP(&outputPath, "output", "o", "", "Output path (default: generated in output_dir)")
	flags.StringVar(&sheetName, "sheet", "", "Worksheet to read from a workbook input (default: first sheet)")
	flags.BoolVar(&skipReport, "skip-report", false, "Write a report of skipped rows next to the output")
	flags.BoolVar(&convertDryRun, "dry-run", false, "Run every stage except writing the output file")

	convertCmd.MarkFlagRequired("csv")
	convertCmd.MarkFlagRequired("fix")
	convertCmd.MarkFlagRequired("nav")
}

func runConvert(cmd *cobra.Command) error {
	cfg := *appConfig
	if cmd.Flags().Changed("sheet") {
		cfg.XLSX.Sheet = sheetName
	}
	if skipReport {
		cfg.SkipReport = true
	}

	conv := converter.New(&cfg,
		converter.WithLogger(appLogger),
		converter.WithDryRun(convertDryRun))

	out := converter.OutputPath(&cfg, csvPath, outputPath)
	r := conv.Convert(cmd.Context(), csvPath, fixPath, navPath, out)
	if !r.Success {
		return errors.New(r.Message)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, r.Message)
	fmt.Fprintf(w, "Rows read:     %d\n", r.Stats.RowsRead)
	fmt.Fprintf(w, "Rows skipped:  %d\n", r.SkippedRows)
	if r.SkipReport != "" {
		fmt.Fprintf(w, "Skip report:   %s\n", r.SkipReport)
	}
	return nil
}
