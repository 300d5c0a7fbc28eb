// =============================================================================
// X-Plane Airway Converter - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs every job listed in
// the main configuration file.
//
// COMMAND USAGE:
//   airway process [flags]
//
// FLAGS:
//   --dry-run : Run every stage except writing output files
//   --job     : Run only the named job (repeatable)
//
// PROCESSING PIPELINE:
//   1. Select the configured jobs
//   2. Run the jobs concurrently, at most max_concurrency at a time.
//      Each job:
//      a. Validates its three input files
//      b. Loads earth_fix.dat and earth_nav.dat
//      c. Resolves and formats every route segment
//      d. Sorts the records
//      e. Writes the airway file atomically
//   3. Print the results in job order
//   4. Write the summary report
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/xplane-airway-converter/internal/config"
	"github.com/ginjaninja78/xplane-airway-converter/internal/converter"
	"github.com/ginjaninja78/xplane-airway-converter/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// processDryRun runs the jobs without writing output files.
var processDryRun bool

// jobNames filters processing to the named jobs.
var jobNames []string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the conversion jobs listed in the configuration",
	Long: `The process command runs every job in the 'jobs' section of the
configuration file. Each job names a route-segment file, an earth_fix.dat, an
earth_nav.dat and optionally an output path.

Jobs run concurrently, bounded by max_concurrency. A failing job does not stop
the others.

On success:
  - Each airway file is written atomically to its output path
  - A summary report is written to the output directory

On error:
  - The failing job's previous output file is left unchanged
  - The command exits non-zero after all jobs have finished`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&processDryRun,
		"dry-run",
		false,
		"Run every stage except writing output files",
	)

	processCmd.Flags().StringSliceVar(
		&jobNames,
		"job",
		nil,
		"Run only the named job (repeatable)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	startTime := time.Now()

	// =========================================================================
	// STEP 1: SELECT JOBS
	// =========================================================================

	jobs, err := selectJobs(appConfig, jobNames)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs configured.")
		return nil
	}

	fmt.Fprintln(out, "=== X-Plane Airway Converter ===")
	fmt.Fprintf(out, "Running %d job(s), %d at a time\n", len(jobs), appConfig.MaxConcurrency)

	// =========================================================================
	// STEP 2: RUN JOBS CONCURRENTLY
	// =========================================================================
	// Each goroutine writes only its own slot of results. Job failures are
	// reported in the Result and never returned to the group.

	conv := converter.New(appConfig,
		converter.WithLogger(appLogger),
		converter.WithDryRun(processDryRun))

	results := make([]converter.Result, len(jobs))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(appConfig.MaxConcurrency)

	for i, jc := range jobs {
		i, jc := i, jc // per-iteration copy (go.mod targets Go 1.21 loop semantics)
		g.Go(func() error {
			appLogger.Debug("job.scheduled", "job", jc.Name)
			results[i] = conv.RunJob(ctx, jc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: COLLECT RESULTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime: startTime,
		TotalJobs: len(jobs),
	}

	for i, r := range results {
		jc := jobs[i]
		summary.TotalRows += r.Stats.RowsRead
		summary.SkippedRows += r.SkippedRows

		if r.Success {
			summary.SuccessfulJobs++
			summary.LinesWritten += r.LinesWritten
			summary.ProcessedJobs = append(summary.ProcessedJobs, utils.ProcessedJobInfo{
				Name:         jc.Name,
				InputFile:    jc.CSV,
				OutputFile:   r.OutputFile,
				Rows:         r.Stats.RowsRead,
				LinesWritten: r.LinesWritten,
				SkippedRows:  r.SkippedRows,
				ProcessTime:  r.Stats.ProcessingTime,
			})
			fmt.Fprintf(out, "  ✓ %s: %s\n", jc.Name, r.Message)
		} else {
			summary.FailedJobs++
			summary.FailedJobsList = append(summary.FailedJobsList, utils.FailedJobInfo{
				Name:         jc.Name,
				InputFile:    jc.CSV,
				Stage:        string(r.FailedStage),
				ErrorMessage: r.Message,
			})
			fmt.Fprintf(out, "  ✗ %s [%s]: %s\n", jc.Name, r.FailedStage, r.Message)
		}
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: PRINT AND WRITE SUMMARY
	// =========================================================================

	printSummary(out, summary)

	if !processDryRun {
		path, err := utils.WriteSummaryLog(summary, appConfig.OutputDir)
		if err != nil {
			appLogger.Error("summary.write_failed", "dir", appConfig.OutputDir, "err", err)
		} else {
			fmt.Fprintf(out, "Summary written to %s\n", path)
		}
	}

	if summary.FailedJobs > 0 {
		return fmt.Errorf("%d of %d job(s) failed", summary.FailedJobs, summary.TotalJobs)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// selectJobs returns the configured jobs, or only the named ones.
//
// RETURNS:
//   - The jobs in configuration order, or in the order they were named.
//   - An error if a name matches no configured job.
func selectJobs(cfg *config.MainConfig, names []string) ([]config.JobConfig, error) {
	if len(names) == 0 {
		return cfg.Jobs, nil
	}

	jobs := make([]config.JobConfig, 0, len(names))
	for _, name := range names {
		jc, ok := cfg.FindJob(name)
		if !ok {
			return nil, fmt.Errorf("no job named %q in configuration", name)
		}
		jobs = append(jobs, *jc)
	}
	return jobs, nil
}

func printSummary(w io.Writer, s utils.ProcessingSummary) {
	fmt.Fprintln(w, "\n=== Processing Complete ===")
	fmt.Fprintf(w, "Total jobs:      %d\n", s.TotalJobs)
	fmt.Fprintf(w, "Successful:      %d\n", s.SuccessfulJobs)
	fmt.Fprintf(w, "Failed:          %d\n", s.FailedJobs)
	fmt.Fprintf(w, "Rows read:       %d\n", s.TotalRows)
	fmt.Fprintf(w, "Lines written:   %d\n", s.LinesWritten)
	fmt.Fprintf(w, "Rows skipped:    %d\n", s.SkippedRows)
	fmt.Fprintf(w, "Time elapsed:    %s\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
}
