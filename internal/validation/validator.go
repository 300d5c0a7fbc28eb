// =============================================================================
// X-Plane Airway Converter - Validation Engine
// =============================================================================
//
// This module validates route-segment input before resolution:
//   1. Header-level: the header must name every required column.
//   2. Row-level: every required field must be non-empty.
//
// Rows that fail validation, or that later fail point resolution, are
// recorded as ValidationErrors with severity "warning". They are skipped
// and counted; they never abort the job. A missing header column is fatal.
//
// ERROR OUTPUT:
//   FormatErrors renders a numbered list; WriteErrorLog writes the same list
//   to a skip report file.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/xplane-airway-converter/internal/config"
	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
	"github.com/ginjaninja78/xplane-airway-converter/pkg/utils"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rules recorded on ValidationError.
const (
	RuleRequired    = "required"
	RuleUnknownType = "unknown_type"
	RuleUnresolved  = "unresolved"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation failure for one row.
type ValidationError struct {
	// Severity is "error" (fatal) or "warning" (row skipped).
	Severity string

	// Field is the column that failed validation.
	Field string

	// Value is the offending value.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the record number in the input file (header is 1).
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// HEADER VALIDATION
// =============================================================================

// ValidateHeaders checks that every required column is present.
//
// RETURNS:
//   - nil if all columns are present.
//   - An error wrapping types.ErrMissingColumns that lists the missing names.
func ValidateHeaders(headers []string, columns config.ColumnNames) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, name := range columns.Required() {
		if !present[name] {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", types.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// =============================================================================
// ROW VALIDATION
// =============================================================================

// Validator turns header-keyed rows into route segments.
type Validator struct {
	columns config.ColumnNames
}

// NewValidator creates a Validator for the given column names.
func NewValidator(columns config.ColumnNames) *Validator {
	return &Validator{columns: columns}
}

// ValidateRow checks that every required field of a row is non-empty.
//
// PARAMETERS:
//   - rowNumber: The record number, for error reporting.
//   - row: The row as header -> value.
//
// RETURNS:
//   - The route segment (valid only when no errors are returned).
//   - One ValidationError per empty field, in column order.
func (v *Validator) ValidateRow(rowNumber int, row map[string]string) (types.RouteSegment, []*ValidationError) {
	get := func(column string) string {
		return strings.TrimSpace(row[column])
	}

	segment := types.RouteSegment{
		RowNumber:       rowNumber,
		StartIdentifier: get(v.columns.StartPoint),
		StartType:       get(v.columns.StartType),
		EndIdentifier:   get(v.columns.EndPoint),
		EndType:         get(v.columns.EndType),
		Direction:       get(v.columns.Direction),
		Designator:      get(v.columns.Designator),
	}

	fields := []struct {
		column string
		value  string
	}{
		{v.columns.StartPoint, segment.StartIdentifier},
		{v.columns.StartType, segment.StartType},
		{v.columns.EndPoint, segment.EndIdentifier},
		{v.columns.EndType, segment.EndType},
		{v.columns.Direction, segment.Direction},
		{v.columns.Designator, segment.Designator},
	}

	var errs []*ValidationError
	for _, f := range fields {
		if f.value == "" {
			errs = append(errs, &ValidationError{
				Severity:  SeverityWarning,
				Field:     f.column,
				Rule:      RuleRequired,
				Message:   "required field is empty",
				RowNumber: rowNumber,
			})
		}
	}

	return segment, errs
}

// ResolutionError records a point that could not be resolved.
func ResolutionError(rowNumber int, column, identifier string, err error) *ValidationError {
	rule := RuleUnresolved
	if errors.Is(err, types.ErrUnknownPointType) {
		rule = RuleUnknownType
	}
	return &ValidationError{
		Severity:  SeverityWarning,
		Field:     column,
		Value:     identifier,
		Rule:      rule,
		Message:   err.Error(),
		RowNumber: rowNumber,
	}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	fmt.Fprintf(&builder, "Validation completed with %d error(s):\n\n", len(errs))

	for i, err := range errs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a report file atomically.
//
// PARAMETERS:
//   - errs: The validation errors to write.
//   - source: The input file the errors refer to.
//   - filePath: The path to the report file.
func WriteErrorLog(errs []*ValidationError, source, filePath string) error {
	return utils.WriteFileAtomic(filePath, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "Skip report for %s\nGenerated: %s\n\n",
			source, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		_, err := io.WriteString(w, FormatErrors(errs))
		return err
	})
}
