package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/xplane-airway-converter/internal/reftable"
	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
)

func newTestResolver() *Resolver {
	fix := reftable.FromMap(map[string]string{"ABCDE": "12", "SHARED": "F1"})
	nav := reftable.FromMap(map[string]string{"XYZ": "34", "NDBA": "56", "SHARED": "N1"})
	return New(fix, nav)
}

func TestResolve_DesignatedPointUsesFixTable(t *testing.T) {
	point, err := newTestResolver().Resolve("ABCDE", "DESIGNATED_POINT")
	require.NoError(t, err)

	assert.Equal(t, types.NavigationPoint{Identifier: "ABCDE", Type: types.DesignatedPoint, AreaCode: "12"}, point)
	assert.Equal(t, "11", point.Type.TypeCode())
}

func TestResolve_VORDMEUsesNavTable(t *testing.T) {
	point, err := newTestResolver().Resolve("XYZ", "VORDME")
	require.NoError(t, err)

	assert.Equal(t, "34", point.AreaCode)
	assert.Equal(t, "3", point.Type.TypeCode())
}

func TestResolve_NDBUsesNavTable(t *testing.T) {
	point, err := newTestResolver().Resolve("NDBA", "NDB")
	require.NoError(t, err)

	assert.Equal(t, "56", point.AreaCode)
	assert.Equal(t, "2", point.Type.TypeCode())
}

func TestResolve_TableSelectionByType(t *testing.T) {
	r := newTestResolver()

	fixPoint, err := r.Resolve("SHARED", "DESIGNATED_POINT")
	require.NoError(t, err)
	assert.Equal(t, "F1", fixPoint.AreaCode)

	navPoint, err := r.Resolve("SHARED", "VORDME")
	require.NoError(t, err)
	assert.Equal(t, "N1", navPoint.AreaCode)
}

func TestResolve_Failures(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name       string
		identifier string
		codeType   string
		want       error
	}{
		{"empty identifier", "", "DESIGNATED_POINT", types.ErrEmptyIdentifier},
		{"blank identifier", "   ", "VORDME", types.ErrEmptyIdentifier},
		{"unknown type", "XYZ", "TACAN", types.ErrUnknownPointType},
		{"empty type", "XYZ", "", types.ErrUnknownPointType},
		{"fix missing", "NOPE", "DESIGNATED_POINT", types.ErrAreaCodeNotFound},
		{"navaid in fix table only", "ABCDE", "VORDME", types.ErrAreaCodeNotFound},
		{"fix in nav table only", "XYZ", "DESIGNATED_POINT", types.ErrAreaCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, err := r.Resolve(tt.identifier, tt.codeType)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, types.NavigationPoint{}, point)
		})
	}
}

func TestResolve_NilTables(t *testing.T) {
	_, err := New(nil, nil).Resolve("ABCDE", "DESIGNATED_POINT")
	assert.ErrorIs(t, err, types.ErrAreaCodeNotFound)
}
