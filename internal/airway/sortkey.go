package airway

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ginjaninja78/xplane-airway-converter/internal/types"
)

// designatorPattern matches conforming designators such as "W", "A1" or
// "UL888".
var designatorPattern = regexp.MustCompile(`^([A-Z]+)([0-9]*)$`)

// SortKey orders airway records by the designator in their last token.
//
// Conforming designators sort by letters, then by the numeric suffix. A
// non-conforming designator keeps the whole token as Prefix and sorts after
// every conforming key with the same Prefix.
type SortKey struct {
	Prefix string

	// Digits is the numeric suffix in canonical decimal form: no leading
	// zeros, "0" when absent. Empty when Unbounded is set.
	Digits string

	// Unbounded marks a non-conforming designator (an infinite suffix).
	Unbounded bool
}

// ExtractSortKey derives the key from the last whitespace-delimited token of
// a line. An empty or blank line is rejected with types.ErrEmptyLine.
func ExtractSortKey(line string) (SortKey, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return SortKey{}, types.ErrEmptyLine
	}

	last := tokens[len(tokens)-1]
	m := designatorPattern.FindStringSubmatch(last)
	if m == nil {
		return SortKey{Prefix: last, Unbounded: true}, nil
	}

	digits := strings.TrimLeft(m[2], "0")
	if digits == "" {
		digits = "0"
	}
	return SortKey{Prefix: m[1], Digits: digits}, nil
}

// Compare returns -1, 0 or +1 ordering k before, equal to or after other.
func (k SortKey) Compare(other SortKey) int {
	if c := strings.Compare(k.Prefix, other.Prefix); c != 0 {
		return c
	}

	switch {
	case k.Unbounded && other.Unbounded:
		return 0
	case k.Unbounded:
		return 1
	case other.Unbounded:
		return -1
	}

	// Canonical digit strings: longer is larger, equal length compares
	// lexically.
	if len(k.Digits) != len(other.Digits) {
		if len(k.Digits) < len(other.Digits) {
			return -1
		}
		return 1
	}
	return strings.Compare(k.Digits, other.Digits)
}

// String renders the key for logs.
func (k SortKey) String() string {
	if k.Unbounded {
		return fmt.Sprintf("(%s, inf)", k.Prefix)
	}
	return fmt.Sprintf("(%s, %s)", k.Prefix, k.Digits)
}

// SortLines stable-sorts records by their sort key. Keys are extracted up
// front; the first line that yields no key aborts the sort and the input
// slice is left unchanged.
func SortLines(lines []string) ([]string, error) {
	type keyed struct {
		key  SortKey
		line string
	}

	items := make([]keyed, len(lines))
	for i, line := range lines {
		key, err := ExtractSortKey(line)
		if err != nil {
			return nil, fmt.Errorf("sort key for line %d: %w", i+1, err)
		}
		items[i] = keyed{key: key, line: line}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		return a.key.Compare(b.key)
	})

	sorted := make([]string, len(items))
	for i, it := range items {
		sorted[i] = it.line
	}
	return sorted, nil
}
