// =============================================================================
// X-Plane Airway Converter - Reference Table Loader
// =============================================================================
//
// This module loads the whitespace-delimited X-Plane reference files
// (earth_fix.dat, earth_nav.dat) into identifier -> area code lookup tables.
//
// FILE LAYOUT (earth_fix.dat, 0-indexed columns):
//   | 0        | 1         | 2     | 3    | 4    | 5 ...
//   | latitude | longitude | ident | ENRT | area | ...
//
// FILE LAYOUT (earth_nav.dat, 0-indexed columns):
//   | 0    | 1   | 2   | 3    | 4    | 5     | 6   | 7     | 8    | 9    | 10 ...
//   | type | lat | lon | elev | freq | range | var | ident | ENRT | area | name
//
// Header lines ("I", "1200 Version ...") and the "99" trailer have too few
// columns and are ignored.
//
// =============================================================================

package reftable

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
)

// EnRouteUsage is the usage value a reference row must carry to be eligible.
const EnRouteUsage = "ENRT"

// maxLineSize bounds a single reference line.
const maxLineSize = 1024 * 1024

// =============================================================================
// COLUMN RULES
// =============================================================================

// Rules selects the key and value columns of a reference file and the
// filters a line must pass to be included.
//
// The condition filter and the type filter are independent checks. The
// default rules point both at the same column with the same value; both are
// still evaluated.
type Rules struct {
	// KeyColumn holds the point identifier.
	KeyColumn int `yaml:"key_column" validate:"gte=0"`

	// ValueColumn holds the area code.
	ValueColumn int `yaml:"value_column" validate:"gte=0"`

	// ConditionColumn must hold one of ConditionValues.
	// The filter is disabled when ConditionValues is empty.
	ConditionColumn int      `yaml:"condition_column" validate:"gte=0"`
	ConditionValues []string `yaml:"condition_values"`

	// TypeColumn must hold exactly TypeValue.
	// The filter is disabled when TypeValue is empty.
	TypeColumn int    `yaml:"type_column" validate:"gte=0"`
	TypeValue  string `yaml:"type_value"`
}

// DefaultFixRules returns the rules for earth_fix.dat.
func DefaultFixRules() Rules {
	return Rules{
		KeyColumn:       2,
		ValueColumn:     4,
		ConditionColumn: 3,
		ConditionValues: []string{EnRouteUsage},
		TypeColumn:      3,
		TypeValue:       EnRouteUsage,
	}
}

// DefaultNavRules returns the rules for earth_nav.dat.
func DefaultNavRules() Rules {
	return Rules{
		KeyColumn:       7,
		ValueColumn:     9,
		ConditionColumn: 8,
		ConditionValues: []string{EnRouteUsage},
		TypeColumn:      8,
		TypeValue:       EnRouteUsage,
	}
}

// matches reports whether the tokenized line passes every configured filter.
// A filter column beyond the end of the line fails the filter.
func (r Rules) matches(parts []string) bool {
	if len(r.ConditionValues) > 0 {
		if r.ConditionColumn >= len(parts) {
			return false
		}
		accepted := false
		for _, v := range r.ConditionValues {
			if parts[r.ConditionColumn] == v {
				accepted = true
				break
			}
		}
		if !accepted {
			return false
		}
	}

	if r.TypeValue != "" {
		if r.TypeColumn >= len(parts) || parts[r.TypeColumn] != r.TypeValue {
			return false
		}
	}

	return true
}

// =============================================================================
// TABLE
// =============================================================================

// LoadStats counts what happened to the lines of a reference file.
type LoadStats struct {
	// Lines is the number of non-empty lines read.
	Lines int

	// ShortLines were ignored for lacking the key or value column.
	ShortLines int

	// Filtered lines failed the condition or type filter.
	Filtered int

	// Duplicates counts keys that overwrote an earlier entry.
	Duplicates int
}

// Table is a read-only identifier -> area code lookup.
type Table struct {
	path    string
	entries map[string]string
	stats   LoadStats
}

// Lookup returns the area code for an identifier.
func (t *Table) Lookup(identifier string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.entries[identifier]
	return v, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Path returns the file the table was loaded from.
func (t *Table) Path() string { return t.path }

// Stats returns line counters collected while loading.
func (t *Table) Stats() LoadStats { return t.stats }

// FromMap builds a table from an in-memory mapping.
func FromMap(entries map[string]string) *Table {
	copied := make(map[string]string, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Table{entries: copied}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads a reference file and returns the lines that pass the rules.
//
// A table that loads with zero entries is returned without error; callers
// decide whether an empty table is acceptable. A missing file or a read
// failure is returned as an *types.OpError.
func Load(path string, rules Rules) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		kind := types.KindReferenceTable
		if errors.Is(err, fs.ErrNotExist) {
			kind = types.KindNotFound
		}
		return nil, &types.OpError{Op: "reftable.open", Kind: kind, Path: path, Err: err}
	}
	defer file.Close()

	table, err := Read(file, rules)
	if err != nil {
		return nil, &types.OpError{Op: "reftable.read", Kind: types.KindReferenceTable, Path: path, Err: err}
	}
	table.path = path

	return table, nil
}

// Read builds a table from any reader using the given rules.
func Read(r io.Reader, rules Rules) (*Table, error) {
	if rules.KeyColumn < 0 || rules.ValueColumn < 0 {
		return nil, fmt.Errorf("invalid column rules: key=%d value=%d", rules.KeyColumn, rules.ValueColumn)
	}
	if rules.ConditionColumn < 0 || rules.TypeColumn < 0 {
		return nil, fmt.Errorf("invalid filter columns: condition=%d type=%d", rules.ConditionColumn, rules.TypeColumn)
	}

	table := &Table{entries: make(map[string]string)}
	required := max(rules.KeyColumn, rules.ValueColumn)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		table.stats.Lines++

		parts := strings.Fields(line)
		if len(parts) <= required {
			table.stats.ShortLines++
			continue
		}

		if !rules.matches(parts) {
			table.stats.Filtered++
			continue
		}

		key := parts[rules.KeyColumn]
		if _, exists := table.entries[key]; exists {
			table.stats.Duplicates++
		}
		table.entries[key] = parts[rules.ValueColumn]
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference data: %w", err)
	}

	return table, nil
}
