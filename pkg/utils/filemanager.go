// =============================================================================
// X-Plane Airway Converter - File Manager Utility
// =============================================================================
//
// This module provides file utilities for the converter, including:
//   - Input file checks
//   - Atomic file writes (temp file in the target directory, then rename)
//   - Output file naming
//   - Processing summary generation
//
// ATOMIC WRITES:
//   Output is written to a temporary file next to the target and renamed
//   over it only after every byte was written and synced. A failed write
//   leaves any previous target untouched and removes the temporary file.
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates dir and any parents if they don't exist.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// INPUT FILES
// =============================================================================

// FileExists checks if a regular file exists at path.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CheckInputFile returns nil if path names a readable regular file. A
// missing file yields an error wrapping fs.ErrNotExist.
func CheckInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// =============================================================================
// ATOMIC WRITES
// =============================================================================

// WriteFileAtomic creates path's directory if needed and writes the file
// through write. The target only changes if write, flush, sync and rename
// all succeed.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}

// WriteLines writes each line verbatim. Returns the number of lines written
// before any error, so callers can name the failing range.
func WriteLines(w io.Writer, lines []string) (int, error) {
	for i, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return i, err
		}
	}
	return len(lines), nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {original}  - Route-segment file name (without extension)
//   - ext: Extension appended when the result lacks it (e.g. ".dat").
//   - params: Extra placeholder values, keyed without braces.
//
// EXAMPLE:
//   format: "airway_{original}_{timestamp}.dat"
//   params: {"original": "RTE_SEG"}
//   output: "airway_RTE_SEG_20250115_143022.dat"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime      time.Time
	EndTime        time.Time
	TotalJobs      int
	SuccessfulJobs int
	FailedJobs     int
	TotalRows      int
	LinesWritten   int
	SkippedRows    int
	ProcessedJobs  []ProcessedJobInfo
	FailedJobsList []FailedJobInfo
}

// ProcessedJobInfo describes a successful job.
type ProcessedJobInfo struct {
	Name         string
	InputFile    string
	OutputFile   string
	Rows         int
	LinesWritten int
	SkippedRows  int
	ProcessTime  time.Duration
}

// FailedJobInfo describes a failed job.
type FailedJobInfo struct {
	Name         string
	InputFile    string
	Stage        string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary into outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	err := WriteFileAtomic(summaryPath, func(w io.Writer) error {
		return writeSummary(w, summary)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ProcessingSummary) error {
	const rule = "================================================================================\n"
	const thin = "--------------------------------------------------------------------------------\n"

	var b strings.Builder

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(&b, "X-Plane Airway Converter - Processing Summary\n"+
		rule+"\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Jobs:     %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Rows:     %d\n"+
		"  Lines Written:  %d\n"+
		"  Skipped Rows:   %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalJobs,
		summary.SuccessfulJobs,
		summary.FailedJobs,
		summary.TotalRows,
		summary.LinesWritten,
		summary.SkippedRows)

	if len(summary.ProcessedJobs) > 0 {
		b.WriteString("Successful Jobs:\n" + thin)
		for _, pj := range summary.ProcessedJobs {
			fmt.Fprintf(&b, "  Job:           %s\n", pj.Name)
			fmt.Fprintf(&b, "  Input:         %s\n", pj.InputFile)
			fmt.Fprintf(&b, "  Output:        %s\n", pj.OutputFile)
			fmt.Fprintf(&b, "  Rows:          %d\n", pj.Rows)
			fmt.Fprintf(&b, "  Lines Written: %d\n", pj.LinesWritten)
			fmt.Fprintf(&b, "  Skipped Rows:  %d\n", pj.SkippedRows)
			fmt.Fprintf(&b, "  Process Time:  %s\n\n", pj.ProcessTime.String())
		}
	}

	if len(summary.FailedJobsList) > 0 {
		b.WriteString("Failed Jobs:\n" + thin)
		for _, fj := range summary.FailedJobsList {
			fmt.Fprintf(&b, "  Job:   %s\n", fj.Name)
			fmt.Fprintf(&b, "  Input: %s\n", fj.InputFile)
			fmt.Fprintf(&b, "  Stage: %s\n", fj.Stage)
			fmt.Fprintf(&b, "  Error: %s\n\n", fj.ErrorMessage)
		}
	}

	b.WriteString(rule + "End of Summary\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// IsNotExist reports whether err means a file does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
