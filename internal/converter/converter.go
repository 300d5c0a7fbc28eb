// =============================================================================
// X-Plane Airway Converter - Converter Module
// =============================================================================
//
// This module contains the job orchestrator. It runs one conversion job end
// to end: a route-segment file plus earth_fix.dat and earth_nav.dat in, one
// sorted airway file out.
//
// CONVERSION PIPELINE (stages):
//   VALIDATING_INPUTS   - all three input files must exist
//   LOADING_REFERENCES  - load the fix and navaid tables; empty is fatal
//   PROCESSING_ROWS     - stream rows, resolve both endpoints, format records
//   SORTING             - order all records by designator
//   WRITING             - write atomically to the output path
//   DONE
//
// Any stage may end in FAILED. Per-row problems (empty field, unknown point
// type, unresolved identifier) skip the row and are counted; they never fail
// the job.
//
// SCALE:
//   Rows are streamed, but every output record is held in memory until the
//   sort completes. Memory grows with two records per converted row.
//
// CONCURRENCY:
//   A Converter holds no per-job state and may run several jobs at once.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/xplane-airway-converter/internal/airway"
	"github.com/ginjaninja78/xplane-airway-converter/internal/config"
	"github.com/ginjaninja78/xplane-airway-converter/internal/csvparser"
	"github.com/ginjaninja78/xplane-airway-converter/internal/logger"
	"github.com/ginjaninja78/xplane-airway-converter/internal/reftable"
	"github.com/ginjaninja78/xplane-airway-converter/internal/resolver"
	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
	"github.com/ginjaninja78/xplane-airway-converter/internal/validation"
	"github.com/ginjaninja78/xplane-airway-converter/internal/xlsxparser"
	"github.com/ginjaninja78/xplane-airway-converter/pkg/utils"
)

// OutputExtension is appended to generated output names.
const OutputExtension = ".dat"

// SkipReportSuffix is appended to the output path to name the skip report.
const SkipReportSuffix = ".skipped.txt"

// =============================================================================
// STAGES
// =============================================================================

// Stage is a step of the conversion pipeline.
type Stage string

const (
	StageValidatingInputs  Stage = "VALIDATING_INPUTS"
	StageLoadingReferences Stage = "LOADING_REFERENCES"
	StageProcessingRows    Stage = "PROCESSING_ROWS"
	StageSorting           Stage = "SORTING"
	StageWriting           Stage = "WRITING"
	StageDone              Stage = "DONE"
	StageFailed            Stage = "FAILED"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one conversion job.
type Result struct {
	// JobID tags every log line of the job.
	JobID string

	// Success is true only when the output file was written (or, in a dry
	// run, would have been).
	Success bool

	// Message is a human-readable outcome naming the cause of any failure.
	Message string

	// LinesWritten is the number of records in the output file. A dry run
	// reports the number it would have written.
	LinesWritten int

	// SkippedRows is the number of input rows that produced no records.
	SkippedRows int

	// OutputFile is the path to the generated file.
	OutputFile string

	// Stage is DONE on success and FAILED otherwise.
	Stage Stage

	// FailedStage is the stage that failed. Empty on success.
	FailedStage Stage

	// Err is the underlying error of a failed job.
	Err error

	// DryRun is set when nothing was written.
	DryRun bool

	// SkipReport is the path of the skip report, if one was written.
	SkipReport string

	// Skipped lists why each skipped row was dropped.
	Skipped []*validation.ValidationError

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of non-empty data rows read.
	RowsRead int

	// RowsConverted is the number of rows that produced two records.
	RowsConverted int

	// FixPoints and NavPoints are the reference table sizes.
	FixPoints int
	NavPoints int

	// ProcessingTime is the time taken to run the job.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs conversion jobs under one configuration.
type Converter struct {
	cfg    *config.MainConfig
	logger *slog.Logger
	dryRun bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the base logger. Each job adds its job_id.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDryRun runs every stage except writing.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// New creates a Converter. A nil cfg means config.Default().
func New(cfg *config.MainConfig, opts ...Option) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Converter{
		cfg:    cfg,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert runs one job with the default configuration.
func Convert(ctx context.Context, csvPath, fixPath, navPath, outputPath string) Result {
	return New(nil).Convert(ctx, csvPath, fixPath, navPath, outputPath)
}

// RunJob runs a configured job, deriving the output path when unset. Its
// logs carry the job name next to the job_id.
func (c *Converter) RunJob(ctx context.Context, jc config.JobConfig) Result {
	out := OutputPath(c.cfg, jc.CSV, jc.Output)
	return c.convert(ctx, jc.CSV, jc.EarthFix, jc.EarthNav, out, "job", jc.Name)
}

// OutputPath returns explicit when set, or a name generated from the
// configured output directory and name format.
func OutputPath(cfg *config.MainConfig, csvPath, explicit string) string {
	if explicit != "" {
		return explicit
	}
	name := utils.GenerateOutputFileName(cfg.OutputNameFormat, OutputExtension,
		map[string]string{"original": utils.BaseName(csvPath)})
	return filepath.Join(cfg.OutputDir, name)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// job carries the state of one Convert call.
type job struct {
	*Converter
	log    *slog.Logger
	result Result
}

// Convert executes the pipeline. It never panics on bad input and always
// returns a Result; failures are reported through Success, Message and Err.
//
// PARAMETERS:
//   - ctx: Cancels row processing between rows.
//   - csvPath: Route-segment table (.csv, or .xlsx/.xlsm).
//   - fixPath: earth_fix.dat.
//   - navPath: earth_nav.dat.
//   - outputPath: Destination airway file.
func (c *Converter) Convert(ctx context.Context, csvPath, fixPath, navPath, outputPath string) Result {
	return c.convert(ctx, csvPath, fixPath, navPath, outputPath)
}

// convert is Convert with extra attributes on every log record of the job.
func (c *Converter) convert(ctx context.Context, csvPath, fixPath, navPath, outputPath string, attrs ...any) Result {
	startTime := time.Now()

	j := c.newJob(attrs...)
	j.result.OutputFile = outputPath
	j.result.DryRun = c.dryRun

	j.log.Info("job.started", "csv", csvPath, "fix", fixPath, "nav", navPath, "output", outputPath)

	r := j.run(ctx, csvPath, fixPath, navPath, outputPath)
	r.Stats.ProcessingTime = time.Since(startTime)

	if r.Success {
		j.log.Info("job.done",
			"lines_written", r.LinesWritten,
			"skipped_rows", r.SkippedRows,
			"rows_read", r.Stats.RowsRead,
			"duration", r.Stats.ProcessingTime)
	} else {
		j.log.Error("job.failed", "stage", r.FailedStage, "message", r.Message, "err", r.Err)
	}
	return r
}

// Preflight runs the checks of a job without reading rows: inputs exist,
// both reference tables load non-empty, and the route-segment header names
// every required column.
func (c *Converter) Preflight(csvPath, fixPath, navPath string) Result {
	j := c.newJob()

	if r, ok := j.validateInputs(csvPath, fixPath, navPath); !ok {
		return r
	}
	if _, _, r, ok := j.loadTables(fixPath, navPath); !ok {
		return r
	}

	src, err := j.openChecked(csvPath)
	if err != nil {
		return j.fail(StageProcessingRows, fmt.Sprintf("failed to process %s: %v", csvPath, err), err)
	}
	src.Close()

	j.result.Message = fmt.Sprintf("inputs ok: %d fix points, %d navaid points",
		j.result.Stats.FixPoints, j.result.Stats.NavPoints)
	return j.done()
}

func (c *Converter) newJob(attrs ...any) *job {
	j := &job{Converter: c}
	j.result.JobID = uuid.NewString()
	j.log = c.logger.With(append([]any{"job_id", j.result.JobID}, attrs...)...)
	return j
}

func (j *job) run(ctx context.Context, csvPath, fixPath, navPath, outputPath string) Result {
	// =========================================================================
	// STEP 1: VALIDATE INPUTS
	// =========================================================================

	if r, ok := j.validateInputs(csvPath, fixPath, navPath); !ok {
		return r
	}
	if outputPath == "" {
		return j.fail(StageValidatingInputs, "no output path given",
			&types.OpError{Op: "convert.validate_inputs", Kind: types.KindInvalidInput, Err: errors.New("empty output path")})
	}

	// =========================================================================
	// STEP 2: LOAD REFERENCE TABLES
	// =========================================================================

	fix, nav, r, ok := j.loadTables(fixPath, navPath)
	if !ok {
		return r
	}

	// =========================================================================
	// STEP 3: PROCESS ROWS
	// =========================================================================

	lines, err := j.processRows(ctx, csvPath, resolver.New(fix, nav))
	if err != nil {
		return j.fail(StageProcessingRows, fmt.Sprintf("failed to process %s: %v", csvPath, err), err)
	}

	// =========================================================================
	// STEP 4: SORT
	// =========================================================================

	sorted, err := airway.SortLines(lines)
	if err != nil {
		return j.fail(StageSorting, fmt.Sprintf("failed to sort output records: %v", err), err)
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUT
	// =========================================================================

	j.result.LinesWritten = len(sorted)

	if j.dryRun {
		j.log.Info("output.dry_run", "lines", len(sorted), "output", outputPath)
		j.result.Message = fmt.Sprintf("dry run: %d lines from %d rows would be written to %s (%d rows skipped)",
			len(sorted), j.result.Stats.RowsConverted, outputPath, j.result.SkippedRows)
		return j.done()
	}

	if err := j.writeOutput(outputPath, sorted); err != nil {
		j.result.LinesWritten = 0
		return j.fail(StageWriting, err.Error(),
			&types.OpError{Op: "convert.write", Kind: types.KindWrite, Path: outputPath, Err: err})
	}

	if j.cfg.SkipReport && len(j.result.Skipped) > 0 {
		reportPath := outputPath + SkipReportSuffix
		if err := validation.WriteErrorLog(j.result.Skipped, csvPath, reportPath); err != nil {
			j.log.Warn("skip_report.failed", "path", reportPath, "err", err)
		} else {
			j.result.SkipReport = reportPath
		}
	}

	j.result.Message = fmt.Sprintf("wrote %d lines to %s (%d rows skipped)",
		len(sorted), outputPath, j.result.SkippedRows)
	return j.done()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// validateInputs checks that all three input files exist.
func (j *job) validateInputs(csvPath, fixPath, navPath string) (Result, bool) {
	inputs := []struct {
		label string
		path  string
	}{
		{"route-segment file", csvPath},
		{"fix reference file", fixPath},
		{"navaid reference file", navPath},
	}

	for _, in := range inputs {
		err := utils.CheckInputFile(in.path)
		if err == nil {
			continue
		}

		kind := types.KindInvalidInput
		msg := fmt.Sprintf("%s is not readable: %s", in.label, in.path)
		if utils.IsNotExist(err) {
			kind = types.KindNotFound
			err = fmt.Errorf("%w: %w", types.ErrInputFileNotFound, err)
			msg = fmt.Sprintf("%s not found: %s", in.label, in.path)
		}
		return j.fail(StageValidatingInputs, msg,
			&types.OpError{Op: "convert.validate_inputs", Kind: kind, Path: in.path, Err: err}), false
	}

	return Result{}, true
}

// loadTables loads the fix table, then the navaid table.
func (j *job) loadTables(fixPath, navPath string) (*reftable.Table, *reftable.Table, Result, bool) {
	fix, r, ok := j.loadTable("fix", fixPath, j.cfg.ReferenceTables.Fix)
	if !ok {
		return nil, nil, r, false
	}
	nav, r, ok := j.loadTable("navaid", navPath, j.cfg.ReferenceTables.Nav)
	if !ok {
		return nil, nil, r, false
	}

	j.result.Stats.FixPoints = fix.Len()
	j.result.Stats.NavPoints = nav.Len()
	return fix, nav, Result{}, true
}

// loadTable loads one reference table and rejects an empty one.
func (j *job) loadTable(name, path string, rules reftable.Rules) (*reftable.Table, Result, bool) {
	table, err := reftable.Load(path, rules)
	if err != nil {
		return nil, j.fail(StageLoadingReferences,
			fmt.Sprintf("%s reference table failed to load from %s: %v", name, path, err), err), false
	}

	stats := table.Stats()
	j.log.Info("reference.loaded",
		"table", name,
		"path", path,
		"entries", table.Len(),
		"lines", stats.Lines,
		"short_lines", stats.ShortLines,
		"filtered", stats.Filtered,
		"duplicates", stats.Duplicates)

	if table.Len() == 0 {
		err := &types.OpError{Op: "convert.load_references", Kind: types.KindReferenceTable, Path: path, Err: types.ErrEmptyTable}
		return nil, j.fail(StageLoadingReferences,
			fmt.Sprintf("%s reference table %s is empty: no qualifying %s rows", name, path, reftable.EnRouteUsage), err), false
	}

	return table, Result{}, true
}

// rowSource is satisfied by the CSV and XLSX streaming parsers.
type rowSource interface {
	Next() bool
	Row() map[string]string
	RowNumber() int
	Headers() []string
	Err() error
	Close() error
}

// openRows picks the parser by file extension.
func (j *job) openRows(path string) (rowSource, error) {
	if xlsxparser.IsWorkbook(path) {
		p, err := xlsxparser.NewStreamingParser(path, j.cfg.XLSX.Sheet)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	p, err := csvparser.NewStreamingParser(path, j.cfg.CSV)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// openChecked opens the row source and verifies its header.
func (j *job) openChecked(path string) (rowSource, error) {
	src, err := j.openRows(path)
	if err != nil {
		return nil, &types.OpError{Op: "convert.read_rows", Kind: types.KindInvalidInput, Path: path, Err: err}
	}

	if err := validation.ValidateHeaders(src.Headers(), j.cfg.CSV.Columns); err != nil {
		src.Close()
		return nil, &types.OpError{Op: "convert.read_rows", Kind: types.KindInvalidInput, Path: path, Err: err}
	}
	return src, nil
}

// processRows streams the route-segment rows and returns the unsorted
// records of every row that resolved.
func (j *job) processRows(ctx context.Context, path string, res *resolver.Resolver) ([]string, error) {
	src, err := j.openChecked(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	v := validation.NewValidator(j.cfg.CSV.Columns)
	var lines []string

	for src.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		j.result.Stats.RowsRead++
		rowNumber := src.RowNumber()

		segment, verrs := v.ValidateRow(rowNumber, src.Row())
		if len(verrs) > 0 {
			j.skip(verrs...)
			continue
		}

		start, err := res.Resolve(segment.StartIdentifier, segment.StartType)
		if err != nil {
			j.skip(j.resolutionError(segment, true, err))
			continue
		}
		end, err := res.Resolve(segment.EndIdentifier, segment.EndType)
		if err != nil {
			j.skip(j.resolutionError(segment, false, err))
			continue
		}

		records := airway.FormatRecords(start, end, segment.Direction, segment.Designator)
		lines = append(lines, records[0], records[1])
		j.result.Stats.RowsConverted++
	}

	if err := src.Err(); err != nil {
		return nil, &types.OpError{Op: "convert.read_rows", Kind: types.KindInvalidInput, Path: path,
			Err: fmt.Errorf("after %d rows: %w", j.result.Stats.RowsRead, err)}
	}

	return lines, nil
}

// resolutionError attributes a failed resolution to the identifier column,
// or to the type column when the declared type is unknown.
func (j *job) resolutionError(segment types.RouteSegment, isStart bool, err error) *validation.ValidationError {
	columns := j.cfg.CSV.Columns
	pointColumn, typeColumn := columns.EndPoint, columns.EndType
	identifier, declaredType := segment.EndIdentifier, segment.EndType
	if isStart {
		pointColumn, typeColumn = columns.StartPoint, columns.StartType
		identifier, declaredType = segment.StartIdentifier, segment.StartType
	}

	if errors.Is(err, types.ErrUnknownPointType) {
		return validation.ResolutionError(segment.RowNumber, typeColumn, declaredType, err)
	}
	return validation.ResolutionError(segment.RowNumber, pointColumn, identifier, err)
}

// skip records one skipped row. Several errors may describe the same row.
func (j *job) skip(errs ...*validation.ValidationError) {
	j.result.SkippedRows++
	j.result.Skipped = append(j.result.Skipped, errs...)

	for _, e := range errs {
		j.log.Warn("row.skipped",
			"row", e.RowNumber,
			"rule", e.Rule,
			"field", e.Field,
			"value", e.Value,
			"reason", e.Message)
	}
}

// writeOutput writes the sorted records atomically.
func (j *job) writeOutput(path string, lines []string) error {
	written := 0
	err := utils.WriteFileAtomic(path, func(w io.Writer) error {
		var err error
		written, err = utils.WriteLines(w, lines)
		return err
	})
	if err != nil {
		if written < len(lines) {
			return fmt.Errorf("failed to write %s at lines %d-%d of %d, previous file left unchanged: %w",
				path, written+1, len(lines), len(lines), err)
		}
		return fmt.Errorf("failed to write %s, previous file left unchanged: %w", path, err)
	}

	j.log.Info("output.written", "path", path, "lines", len(lines))
	return nil
}

func (j *job) fail(stage Stage, message string, err error) Result {
	j.result.Success = false
	j.result.Stage = StageFailed
	j.result.FailedStage = stage
	j.result.Message = message
	j.result.Err = err
	return j.result
}

func (j *job) done() Result {
	j.result.Success = true
	j.result.Stage = StageDone
	return j.result
}
