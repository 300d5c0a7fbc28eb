package converter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xplane-airway-converter/internal/config"
	"github.com/ginjaninja78/xplane-airway-converter/internal/logger"
	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
	"github.com/ginjaninja78/xplane-airway-converter/internal/validation"
)

const header = "CODE_POINT_START,CODE_TYPE_START,CODE_POINT_END,CODE_TYPE_END,CODE_DIR,TXT_DESIG\n"

const fixData = `I
1200 Version - data cycle 2503, build 20250301, metadata FixXP1200.
  50.000000    8.000000 ABCDE ENRT 12 2
  51.000000    9.000000 FGHIJ ENRT 12 2
  52.000000   10.000000 KLMNO ENRT 34 2
  53.000000   11.000000 TERMF LSZH LS 2
99
`

const navData = `I
1200 Version - data cycle 2503, build 20250301, metadata NavXP1200.
3  50.0 8.0 0 11430 130 0.0 XYZ ENRT 34 XYZ VOR/DME
2  51.0 9.0 0 350 50 0.0 NB ENRT ZS NB NDB
3  52.0 10.0 0 11500 130 0.0 APT KJFK K6 APT VOR/DME
99
`

type fixture struct {
	dir string
	csv string
	fix string
	nav string
	out string
}

func newFixture(t *testing.T, csvContent string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir: dir,
		csv: filepath.Join(dir, "RTE_SEG.csv"),
		fix: filepath.Join(dir, "earth_fix.dat"),
		nav: filepath.Join(dir, "earth_nav.dat"),
		out: filepath.Join(dir, "output", "earth_awy.dat"),
	}
	require.NoError(t, os.WriteFile(f.csv, []byte(csvContent), 0o644))
	require.NoError(t, os.WriteFile(f.fix, []byte(fixData), 0o644))
	require.NoError(t, os.WriteFile(f.nav, []byte(navData), 0o644))
	return f
}

func (f fixture) run(t *testing.T, c *Converter) Result {
	t.Helper()
	return c.Convert(context.Background(), f.csv, f.fix, f.nav, f.out)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(data) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func TestConvert_Scenario(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)

	assert.Equal(t, StageDone, r.Stage)
	assert.Empty(t, r.FailedStage)
	assert.Equal(t, 2, r.LinesWritten)
	assert.Equal(t, 0, r.SkippedRows)
	assert.Equal(t, f.out, r.OutputFile)
	assert.NotEmpty(t, r.JobID)
	assert.Equal(t, 3, r.Stats.FixPoints)
	assert.Equal(t, 2, r.Stats.NavPoints)

	data, err := os.ReadFile(f.out)
	require.NoError(t, err)
	assert.Equal(t,
		"ABCDE 12 11   XYZ 34  3 N 1   0 600 W123\n"+
			"ABCDE 12 11   XYZ 34  3 N 2   0 600 W123\n",
		string(data))
}

func TestConvert_PackageLevelConvert(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,NB,NDB,F,A1\n")

	r := Convert(context.Background(), f.csv, f.fix, f.nav, f.out)
	require.True(t, r.Success, r.Message)
	assert.Equal(t, []string{
		"ABCDE 12 11    NB ZS  2 F 1   0 600 A1\n",
		"ABCDE 12 11    NB ZS  2 F 2   0 600 A1\n",
	}, readLines(t, f.out))
}

func TestConvert_SkipsAndCounts(t *testing.T) {
	f := newFixture(t, header+
		"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W10\n"+ // ok
		"ABCDE,DESIGNATED_POINT,QQQQQ,VORDME,N,W2\n"+ // end unresolved
		"FGHIJ,DESIGNATED_POINT,NB,NDB,N,A1\n"+ // ok
		",DESIGNATED_POINT,NB,NDB,N,A1\n"+ // empty start
		"XYZ,TACAN,NB,NDB,N,A1\n"+ // unknown start type
		"\n"+ // blank, not a row
		"TERMF,DESIGNATED_POINT,NB,NDB,N,A1\n"+ // terminal fix filtered out
		"APT,VORDME,NB,NDB,N,A1\n"+ // terminal navaid filtered out
		"KLMNO,DESIGNATED_POINT,XYZ,VORDME,B,UL5\n") // ok

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)

	assert.Equal(t, 8, r.Stats.RowsRead)
	assert.Equal(t, 3, r.Stats.RowsConverted)
	assert.Equal(t, 5, r.SkippedRows)
	assert.Equal(t, r.Stats.RowsRead, r.Stats.RowsConverted+r.SkippedRows)
	assert.Equal(t, 2*r.Stats.RowsConverted, r.LinesWritten)

	lines := readLines(t, f.out)
	require.Len(t, lines, 6)
	// Sorted by designator: A1, UL5, W10.
	assert.True(t, strings.HasSuffix(lines[0], " A1\n"))
	assert.True(t, strings.HasSuffix(lines[1], " A1\n"))
	assert.True(t, strings.HasSuffix(lines[2], " UL5\n"))
	assert.True(t, strings.HasSuffix(lines[4], " W10\n"))
	assert.Contains(t, lines[0], "N 1")
	assert.Contains(t, lines[1], "N 2")

	rules := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		rules = append(rules, s.Rule)
	}
	assert.Equal(t, []string{
		validation.RuleUnresolved,
		validation.RuleRequired,
		validation.RuleUnknownType,
		validation.RuleUnresolved,
		validation.RuleUnresolved,
	}, rules)

	assert.Equal(t, "CODE_POINT_END", r.Skipped[0].Field)
	assert.Equal(t, "QQQQQ", r.Skipped[0].Value)
	assert.Equal(t, 3, r.Skipped[0].RowNumber)
	assert.Equal(t, "CODE_TYPE_START", r.Skipped[2].Field)
	assert.Equal(t, "TACAN", r.Skipped[2].Value)
}

func TestConvert_RowOfEmptyCellsIsCountedAsSkip(t *testing.T) {
	f := newFixture(t, header+
		"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W10\n"+
		",,,,,\n")

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)

	assert.Equal(t, 2, r.Stats.RowsRead)
	assert.Equal(t, 1, r.Stats.RowsConverted)
	assert.Equal(t, 1, r.SkippedRows)
	assert.Equal(t, 2, r.LinesWritten)

	require.NotEmpty(t, r.Skipped)
	for _, s := range r.Skipped {
		assert.Equal(t, validation.RuleRequired, s.Rule)
		assert.Equal(t, 3, s.RowNumber)
	}
}

func TestConvert_UnresolvedEndpointEmitsNothing(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,NOPE,VORDME,N,W1\n")

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)
	assert.Equal(t, 1, r.SkippedRows)
	assert.Equal(t, 0, r.LinesWritten)
	assert.Empty(t, readLines(t, f.out))
}

func TestConvert_MissingInputs(t *testing.T) {
	tests := []struct {
		name  string
		clear func(f *fixture)
		label string
	}{
		{"csv", func(f *fixture) { f.csv = filepath.Join(f.dir, "nope.csv") }, "route-segment file not found"},
		{"fix", func(f *fixture) { f.fix = filepath.Join(f.dir, "nope_fix.dat") }, "fix reference file not found"},
		{"nav", func(f *fixture) { f.nav = filepath.Join(f.dir, "nope_nav.dat") }, "navaid reference file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, header)
			tt.clear(&f)

			r := f.run(t, New(nil))
			assert.False(t, r.Success)
			assert.Equal(t, StageFailed, r.Stage)
			assert.Equal(t, StageValidatingInputs, r.FailedStage)
			assert.Contains(t, r.Message, tt.label)
			assert.Contains(t, r.Message, "nope")
			assert.ErrorIs(t, r.Err, types.ErrInputFileNotFound)
			assert.True(t, types.IsKind(r.Err, types.KindNotFound))
			assert.NoFileExists(t, f.out)
		})
	}
}

func TestConvert_InputIsDirectory(t *testing.T) {
	f := newFixture(t, header)
	f.fix = f.dir

	r := f.run(t, New(nil))
	assert.False(t, r.Success)
	assert.Equal(t, StageValidatingInputs, r.FailedStage)
	assert.True(t, types.IsKind(r.Err, types.KindInvalidInput))
}

func TestConvert_EmptyOutputPath(t *testing.T) {
	f := newFixture(t, header)
	f.out = ""

	r := f.run(t, New(nil))
	assert.False(t, r.Success)
	assert.Equal(t, StageValidatingInputs, r.FailedStage)
}

func TestConvert_EmptyReferenceTableIsFatal(t *testing.T) {
	for _, which := range []string{"fix", "navaid"} {
		t.Run(which, func(t *testing.T) {
			f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")
			path := f.fix
			if which == "navaid" {
				path = f.nav
			}
			// Only non-qualifying rows.
			require.NoError(t, os.WriteFile(path, []byte("I\n  50.0 8.0 TERMF LSZH LS 2\n99\n"), 0o644))

			r := f.run(t, New(nil))
			assert.False(t, r.Success)
			assert.Equal(t, StageLoadingReferences, r.FailedStage)
			assert.Contains(t, r.Message, which+" reference table")
			assert.Contains(t, r.Message, "is empty")
			assert.ErrorIs(t, r.Err, types.ErrEmptyTable)
			assert.True(t, types.IsKind(r.Err, types.KindReferenceTable))
			assert.NoFileExists(t, f.out)
		})
	}
}

func TestConvert_MissingHeaderColumns(t *testing.T) {
	f := newFixture(t, "CODE_POINT_START,CODE_TYPE_START,CODE_POINT_END\nABCDE,DESIGNATED_POINT,XYZ\n")

	r := f.run(t, New(nil))
	assert.False(t, r.Success)
	assert.Equal(t, StageProcessingRows, r.FailedStage)
	assert.ErrorIs(t, r.Err, types.ErrMissingColumns)
	assert.Contains(t, r.Message, "CODE_TYPE_END, CODE_DIR, TXT_DESIG")
	assert.NoFileExists(t, f.out)
}

func TestConvert_EmptyCSVFile(t *testing.T) {
	f := newFixture(t, "")

	r := f.run(t, New(nil))
	assert.False(t, r.Success)
	assert.Equal(t, StageProcessingRows, r.FailedStage)
	assert.Contains(t, r.Message, "no header row")
}

func TestConvert_HeaderOnlyWritesEmptyFile(t *testing.T) {
	f := newFixture(t, header)

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)
	assert.Equal(t, 0, r.LinesWritten)
	assert.FileExists(t, f.out)
	assert.Empty(t, readLines(t, f.out))
}

func TestConvert_WriteFailureIsFatalAndAtomic(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")
	// The output path is an existing non-empty directory, so the final
	// rename fails after all records were written to the temp file.
	require.NoError(t, os.MkdirAll(f.out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.out, "keep"), []byte("x"), 0o644))

	r := f.run(t, New(nil))
	assert.False(t, r.Success)
	assert.Equal(t, StageWriting, r.FailedStage)
	assert.Equal(t, 0, r.LinesWritten)
	assert.True(t, types.IsKind(r.Err, types.KindWrite))
	assert.Contains(t, r.Message, f.out)
	assert.Contains(t, r.Message, "previous file left unchanged")

	entries, err := os.ReadDir(filepath.Dir(f.out))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
	assert.Equal(t, "earth_awy.dat", entries[0].Name())
}

func TestConvert_OverwritesPreviousOutput(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")
	require.NoError(t, os.MkdirAll(filepath.Dir(f.out), 0o755))
	require.NoError(t, os.WriteFile(f.out, []byte("stale\nstale\nstale\n"), 0o644))

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)
	assert.Len(t, readLines(t, f.out), 2)
}

func TestConvert_DryRun(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")

	r := f.run(t, New(nil, WithDryRun(true)))
	require.True(t, r.Success, r.Message)
	assert.True(t, r.DryRun)
	assert.Equal(t, 2, r.LinesWritten)
	assert.Contains(t, r.Message, "dry run")
	assert.NoFileExists(t, f.out)
}

func TestConvert_SkipReport(t *testing.T) {
	f := newFixture(t, header+
		"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n"+
		"ABCDE,DESIGNATED_POINT,NOPE,VORDME,X,W123\n")

	cfg := config.Default()
	cfg.SkipReport = true

	r := f.run(t, New(cfg))
	require.True(t, r.Success, r.Message)
	require.Equal(t, f.out+SkipReportSuffix, r.SkipReport)

	data, err := os.ReadFile(r.SkipReport)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Row 3, Field 'CODE_POINT_END'")
	assert.Contains(t, string(data), "NOPE")
}

func TestConvert_NoSkipReportWithoutSkips(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")

	cfg := config.Default()
	cfg.SkipReport = true

	r := f.run(t, New(cfg))
	require.True(t, r.Success, r.Message)
	assert.Empty(t, r.SkipReport)
	assert.NoFileExists(t, f.out+SkipReportSuffix)
}

func TestConvert_CustomColumnsAndDelimiter(t *testing.T) {
	f := newFixture(t, "FROM;FROM_T;TO;TO_T;DIR;AWY\nABCDE;DESIGNATED_POINT;XYZ;VORDME;X;W123\n")

	cfg := config.Default()
	cfg.CSV.Delimiter = ";"
	cfg.CSV.Columns = config.ColumnNames{
		StartPoint: "FROM", StartType: "FROM_T",
		EndPoint: "TO", EndType: "TO_T",
		Direction: "DIR", Designator: "AWY",
	}

	r := f.run(t, New(cfg))
	require.True(t, r.Success, r.Message)
	assert.Equal(t, 2, r.LinesWritten)
}

func TestConvert_WorkbookInput(t *testing.T) {
	f := newFixture(t, header)

	wb := excelize.NewFile()
	defer wb.Close()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{
		"CODE_POINT_START", "CODE_TYPE_START", "CODE_POINT_END", "CODE_TYPE_END", "CODE_DIR", "TXT_DESIG",
	}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{
		"ABCDE", "DESIGNATED_POINT", "XYZ", "VORDME", "X", "W123",
	}))
	f.csv = filepath.Join(f.dir, "RTE_SEG.xlsx")
	require.NoError(t, wb.SaveAs(f.csv))

	r := f.run(t, New(nil))
	require.True(t, r.Success, r.Message)
	assert.Equal(t, []string{
		"ABCDE 12 11   XYZ 34  3 N 1   0 600 W123\n",
		"ABCDE 12 11   XYZ 34  3 N 2   0 600 W123\n",
	}, readLines(t, f.out))
}

func TestConvert_CanceledContext(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(nil).Convert(ctx, f.csv, f.fix, f.nav, f.out)
	assert.False(t, r.Success)
	assert.Equal(t, StageProcessingRows, r.FailedStage)
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.NoFileExists(t, f.out)
}

func TestConvert_LogsCarryJobID(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,NOPE,VORDME,X,W123\n")

	var buf bytes.Buffer
	l, err := logger.New(&buf, logger.Config{Level: "debug", Format: "text"})
	require.NoError(t, err)

	r := f.run(t, New(nil, WithLogger(l)))
	require.True(t, r.Success, r.Message)

	out := buf.String()
	assert.Contains(t, out, "job_id="+r.JobID)
	assert.Contains(t, out, "msg=row.skipped")
	assert.Contains(t, out, "msg=reference.loaded")
	assert.Contains(t, out, "msg=job.done")
}

func TestRunJob_LogsCarryJobName(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,NOPE,VORDME,X,W123\n")

	var buf bytes.Buffer
	l, err := logger.New(&buf, logger.Config{Level: "debug", Format: "text"})
	require.NoError(t, err)

	r := New(nil, WithLogger(l)).RunJob(context.Background(), config.JobConfig{
		Name: "cycle2503", CSV: f.csv, EarthFix: f.fix, EarthNav: f.nav, Output: f.out,
	})
	require.True(t, r.Success, r.Message)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Contains(t, line, "job_id="+r.JobID)
		assert.Contains(t, line, "job=cycle2503")
	}
}

func TestRunJob_DerivesOutputPath(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,XYZ,VORDME,X,W123\n")

	cfg := config.Default()
	cfg.OutputDir = filepath.Join(f.dir, "generated")

	r := New(cfg).RunJob(context.Background(), config.JobConfig{
		Name: "cycle", CSV: f.csv, EarthFix: f.fix, EarthNav: f.nav,
	})
	require.True(t, r.Success, r.Message)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "airway_output_RTE_SEG.dat"), r.OutputFile)
	assert.FileExists(t, r.OutputFile)
}

func TestOutputPath(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "/x/out.dat", OutputPath(cfg, "in.csv", "/x/out.dat"))
	assert.Equal(t, filepath.Join("./output", "airway_output_segments.dat"), OutputPath(cfg, "/data/segments.xlsx", ""))
}

func TestPreflight(t *testing.T) {
	f := newFixture(t, header+"ABCDE,DESIGNATED_POINT,NOPE,VORDME,X,W123\n")

	r := New(nil).Preflight(f.csv, f.fix, f.nav)
	require.True(t, r.Success, r.Message)
	assert.Equal(t, StageDone, r.Stage)
	assert.Equal(t, "inputs ok: 3 fix points, 2 navaid points", r.Message)
	assert.Zero(t, r.Stats.RowsRead)
	assert.NoFileExists(t, f.out)
}

func TestPreflight_Failures(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		f := newFixture(t, header)
		r := New(nil).Preflight(filepath.Join(f.dir, "nope.csv"), f.fix, f.nav)
		assert.False(t, r.Success)
		assert.Equal(t, StageValidatingInputs, r.FailedStage)
		assert.ErrorIs(t, r.Err, types.ErrInputFileNotFound)
	})

	t.Run("empty table", func(t *testing.T) {
		f := newFixture(t, header)
		require.NoError(t, os.WriteFile(f.nav, []byte("I\n99\n"), 0o644))
		r := New(nil).Preflight(f.csv, f.fix, f.nav)
		assert.False(t, r.Success)
		assert.Equal(t, StageLoadingReferences, r.FailedStage)
		assert.ErrorIs(t, r.Err, types.ErrEmptyTable)
	})

	t.Run("missing columns", func(t *testing.T) {
		f := newFixture(t, "CODE_POINT_START\nABCDE\n")
		r := New(nil).Preflight(f.csv, f.fix, f.nav)
		assert.False(t, r.Success)
		assert.Equal(t, StageProcessingRows, r.FailedStage)
		assert.ErrorIs(t, r.Err, types.ErrMissingColumns)
	})
}
