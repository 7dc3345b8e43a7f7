package encode

import (
	"fmt"
	"sort"

	"bayesprep/internal/table"
)

// CumulativeSpec configures cumulative membership derivation.
type CumulativeSpec struct {
	// Field is the source column; it must be numeric.
	Field string

	// Group overrides the partitioning column; table.GroupColumn when
	// empty. A missing group column means one partition over all rows.
	Group string

	// InPlace appends to the caller's table instead of a copy.
	InPlace bool
}

// Cumulative derives permanent-transition indicators from a numeric
// feature: one channel per level above the reference (smallest) level,
// named <field>_<level>. Within each group, the channel for level v is 1
// from the first row where the feature has reached v onward and 0 before,
// so the first observation of an ascending sequence contributes all zeros
// and each later step accumulates every channel already crossed.
//
// The scan is an explicit partition-map-recombine: rows are partitioned by
// group key in original order, scanned independently, and written back by
// original row position. When every derived column already exists the call
// is a no-op.
func Cumulative(t *table.Table, spec CumulativeSpec) (*table.Table, error) {
	values, err := t.Column(spec.Field)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if !table.IsNumericColumn(values) {
		return nil, fmt.Errorf("encode: cumulative membership requires a numeric column, %q is not", spec.Field)
	}
	feature, _, _ := table.FloatColumn(values)

	levels := numericLevels(feature)
	if len(levels) > 0 {
		levels = levels[1:] // reference level carries no channel
	}

	names := make([]string, len(levels))
	for i, v := range levels {
		names[i] = spec.Field + "_" + table.CanonicalString(v)
	}
	if allPresent(t, names) {
		return t.Target(spec.InPlace), nil
	}

	groupCol := spec.Group
	if groupCol == "" {
		groupCol = table.GroupColumn
	}
	partitions := partitionRows(t, groupCol)

	channels := make([][]any, len(levels))
	for c := range channels {
		channels[c] = make([]any, len(feature))
	}

	for _, rows := range partitions {
		reached := 0 // channels crossed so far within this partition
		for _, ri := range rows {
			for reached < len(levels) && feature[ri] >= levels[reached] {
				reached++
			}
			for c := range levels {
				if c < reached {
					channels[c][ri] = float64(1)
				} else {
					channels[c][ri] = float64(0)
				}
			}
		}
	}

	out := t.Target(spec.InPlace)
	for c, name := range names {
		if out.HasColumn(name) {
			continue
		}
		if err := out.AddColumn(name, channels[c]); err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
	}
	return out, nil
}

// numericLevels returns the distinct feature values in ascending order.
func numericLevels(feature []float64) []float64 {
	seen := make(map[float64]struct{}, len(feature))
	var levels []float64
	for _, v := range feature {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			levels = append(levels, v)
		}
	}
	sort.Float64s(levels)
	return levels
}

// partitionRows splits row indices by group key, preserving original order
// within each partition. Without a group column there is one partition.
func partitionRows(t *table.Table, groupCol string) [][]int {
	gi := t.ColumnIndex(groupCol)
	if gi < 0 {
		all := make([]int, t.NumRows())
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}

	order := make([]string, 0)
	byKey := make(map[string][]int)
	for i, r := range t.Rows {
		k := table.CanonicalString(r[gi])
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], i)
	}

	out := make([][]int, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}
