// Package resolver turns a declared point identifier and type into a
// NavigationPoint by looking up its area code in the matching reference table.
package resolver

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
)

// Lookup is satisfied by *reftable.Table.
type Lookup interface {
	Lookup(identifier string) (string, bool)
}

// Resolver holds the two reference tables of one conversion job.
type Resolver struct {
	fix Lookup
	nav Lookup
}

// New returns a Resolver over a fix table and a navaid table.
func New(fix, nav Lookup) *Resolver {
	return &Resolver{fix: fix, nav: nav}
}

// Resolve looks up one point.
//
// DESIGNATED_POINT identifiers are searched in the fix table; VORDME and NDB
// identifiers in the navaid table. The returned error wraps
// types.ErrEmptyIdentifier, types.ErrUnknownPointType or
// types.ErrAreaCodeNotFound; all three mean "skip this row".
func (r *Resolver) Resolve(identifier, declaredType string) (types.NavigationPoint, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return types.NavigationPoint{}, types.ErrEmptyIdentifier
	}

	pointType, ok := types.ParsePointType(declaredType)
	if !ok {
		return types.NavigationPoint{}, fmt.Errorf("%w: %q for point %s", types.ErrUnknownPointType, declaredType, identifier)
	}

	table := r.nav
	if pointType.UsesFixTable() {
		table = r.fix
	}

	var areaCode string
	if table != nil {
		areaCode, _ = table.Lookup(identifier)
	}
	if areaCode == "" {
		return types.NavigationPoint{}, fmt.Errorf("%w for %s point %s", types.ErrAreaCodeNotFound, pointType, identifier)
	}

	return types.NavigationPoint{
		Identifier: identifier,
		Type:       pointType,
		AreaCode:   areaCode,
	}, nil
}
