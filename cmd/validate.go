// =============================================================================
// X-Plane Airway Converter - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   airway validate [--job NAME]
//
// The configuration itself is validated while it loads. This command then
// checks every job's inputs: the three files exist, both reference tables
// hold at least one en-route point, and the route-segment header names
// every required column. No rows are converted and nothing is written.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xplane-airway-converter/internal/converter"
)

// validateJobNames filters validation to the named jobs.
var validateJobNames []string

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and every job's input files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringSliceVar(
		&validateJobNames,
		"job",
		nil,
		"Validate only the named job (repeatable)",
	)
}

func runValidate(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration OK (%d job(s))\n", len(appConfig.Jobs))

	jobs, err := selectJobs(appConfig, validateJobNames)
	if err != nil {
		return err
	}

	conv := converter.New(appConfig, converter.WithLogger(appLogger))

	failed := 0
	for _, jc := range jobs {
		r := conv.Preflight(jc.CSV, jc.EarthFix, jc.EarthNav)
		if r.Success {
			fmt.Fprintf(out, "  ✓ %s: %s\n", jc.Name, r.Message)
			continue
		}
		failed++
		fmt.Fprintf(out, "  ✗ %s [%s]: %s\n", jc.Name, r.FailedStage, r.Message)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) failed validation", failed, len(jobs))
	}
	return nil
}
