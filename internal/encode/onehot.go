// Package encode derives numeric feature columns from single table
// columns: one-hot category indicators and cumulative membership
// indicators for permanent level transitions (random-walk time steps).
package encode

import (
	"fmt"
	"sort"

	"bayesprep/internal/table"
)

// OneHotSpec configures one-hot expansion of a feature column.
type OneHotSpec struct {
	// Field is the source column; it is treated as categorical regardless
	// of its scalar types.
	Field string

	// Contrasts drops the reference (first sorted) level, leaving k-1
	// indicator columns; the reference is represented by all-zero rows.
	Contrasts bool

	// InPlace appends to the caller's table instead of a copy.
	InPlace bool
}

// OneHot expands spec.Field into one indicator column per observed level,
// named <field>_<level>, appended in sorted level order. When every
// derived column already exists the call is a no-op.
func OneHot(t *table.Table, spec OneHotSpec) (*table.Table, error) {
	values, err := t.Column(spec.Field)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	levels := sortedLevels(values)
	if spec.Contrasts && len(levels) > 0 {
		levels = levels[1:]
	}

	names := derivedNames(spec.Field, levels)
	if allPresent(t, names) {
		return t.Target(spec.InPlace), nil
	}

	out := t.Target(spec.InPlace)
	for li, level := range levels {
		col := make([]any, len(values))
		for i, v := range values {
			if table.CanonicalString(v) == level {
				col[i] = float64(1)
			} else {
				col[i] = float64(0)
			}
		}
		if err := out.AddColumn(names[li], col); err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
	}
	return out, nil
}

func sortedLevels(values []any) []string {
	seen := make(map[string]struct{})
	var levels []string
	for _, v := range values {
		s := table.CanonicalString(v)
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			levels = append(levels, s)
		}
	}
	sort.Strings(levels)
	return levels
}

func derivedNames(field string, levels []string) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = field + "_" + l
	}
	return out
}

func allPresent(t *table.Table, names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if !t.HasColumn(n) {
			return false
		}
	}
	return true
}
