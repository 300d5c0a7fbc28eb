// =============================================================================
// X-Plane Airway Converter - Shared Types
// =============================================================================
//
// This package contains the domain types shared by the conversion engine.
// Types defined here are used by:
//   - resolver   (point-type mapping and resolved points)
//   - airway     (record formatting)
//   - converter  (orchestration and row bookkeeping)
//
// =============================================================================

package types

import "strings"

// =============================================================================
// NAVIGATION POINT TYPES
// =============================================================================

// PointType is one of the navigation point categories the target airway
// format knows about. Each category carries a fixed numeric type code.
type PointType int

const (
	// PointTypeUnknown is the zero value and never resolves.
	PointTypeUnknown PointType = iota

	// DesignatedPoint is a named fix, looked up in the fix reference table.
	DesignatedPoint

	// VORDME is a VOR/DME radio aid, looked up in the navaid reference table.
	VORDME

	// NDB is a non-directional beacon, looked up in the navaid reference table.
	NDB
)

// Declared type names as they appear in route-segment exports.
const (
	CodeTypeDesignatedPoint = "DESIGNATED_POINT"
	CodeTypeVORDME          = "VORDME"
	CodeTypeNDB             = "NDB"
)

// ParsePointType maps a declared type string to a PointType.
// The second return value is false when the string is not recognized.
func ParsePointType(codeType string) (PointType, bool) {
	switch strings.TrimSpace(codeType) {
	case CodeTypeDesignatedPoint:
		return DesignatedPoint, true
	case CodeTypeVORDME:
		return VORDME, true
	case CodeTypeNDB:
		return NDB, true
	default:
		return PointTypeUnknown, false
	}
}

// TypeCode returns the type code rendered into airway records.
func (t PointType) TypeCode() string {
	switch t {
	case DesignatedPoint:
		return "11"
	case VORDME:
		return "3"
	case NDB:
		return "2"
	default:
		return ""
	}
}

// UsesFixTable reports whether points of this type are resolved against the
// fix reference table rather than the navaid table.
func (t PointType) UsesFixTable() bool {
	return t == DesignatedPoint
}

// String returns the declared type name.
func (t PointType) String() string {
	switch t {
	case DesignatedPoint:
		return CodeTypeDesignatedPoint
	case VORDME:
		return CodeTypeVORDME
	case NDB:
		return CodeTypeNDB
	default:
		return "UNKNOWN"
	}
}

// =============================================================================
// RESOLVED POINTS AND INPUT ROWS
// =============================================================================

// NavigationPoint is a point whose area code has been found in a reference
// table. It only exists for the lifetime of one input row.
type NavigationPoint struct {
	// Identifier is the point name, e.g. "ABCDE" or "XYZ".
	Identifier string

	// Type is the resolved category.
	Type PointType

	// AreaCode is the region code from the reference table.
	AreaCode string
}

// RouteSegment is one row of the route-segment table.
type RouteSegment struct {
	// RowNumber is the 1-indexed record number in the source file, with the
	// header as row 1, so the first data row is 2.
	RowNumber int

	StartIdentifier string
	StartType       string
	EndIdentifier   string
	EndType         string

	// Direction is the declared direction code; "X" is rendered as "N".
	Direction string

	// Designator is the airway name, e.g. "W123" or "UL888".
	Designator string
}

// Direction indices of the two records emitted per segment.
const (
	DirectionForward = 1
	DirectionReverse = 2
)
