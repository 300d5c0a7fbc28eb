// =============================================================================
// X-Plane Airway Converter - Airway Record Formatter
// =============================================================================
//
// This module renders one resolved route segment as the two fixed-width
// records of the X-Plane airway format.
//
// RECORD LAYOUT (widths, right-justified, never truncated):
//
//   | start ident | start area | start type | end ident | end area | end type |
//   |      5      |     3      |     3      |     6     |    3     |    3     |
//
//   | direction | index | base | top | " " designator "\n" |
//   |     2     |   2   |  4   |  4  |   variable          |
//
// EXAMPLE:
//   ABCDE 12 11   XYZ 34  3 N 1   0 600 W123
//   ABCDE 12 11   XYZ 34  3 N 2   0 600 W123
//
// =============================================================================

package airway

import (
	"fmt"

	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
)

// Constant fields written into every record.
const (
	BaseLevel = "0"
	TopLevel  = "600"
)

// DirectionBoth is the declared code for a two-way airway; the target format
// spells it "N".
const DirectionBoth = "X"

// NormalizeDirection rewrites "X" to "N" and passes every other code through.
func NormalizeDirection(direction string) string {
	if direction == DirectionBoth {
		return "N"
	}
	return direction
}

// FormatRecord renders one record for the given direction index.
func FormatRecord(start, end types.NavigationPoint, direction, designator string, index int) string {
	return fmt.Sprintf("%5s%3s%3s%6s%3s%3s%2s%2d%4s%4s %s\n",
		start.Identifier,
		start.AreaCode,
		start.Type.TypeCode(),
		end.Identifier,
		end.AreaCode,
		end.Type.TypeCode(),
		NormalizeDirection(direction),
		index,
		BaseLevel,
		TopLevel,
		designator,
	)
}

// FormatRecords renders both records of a segment: index 1 first, then 2.
// The points must already be resolved.
func FormatRecords(start, end types.NavigationPoint, direction, designator string) [2]string {
	return [2]string{
		FormatRecord(start, end, direction, designator, types.DirectionForward),
		FormatRecord(start, end, direction, designator, types.DirectionReverse),
	}
}
