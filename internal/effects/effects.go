// Package effects classifies design-matrix columns as fixed or pooled
// (random) effects and layers pooling-group tags onto the metadata table.
package effects

import (
	"fmt"

	"bayesprep/internal/design"
	"bayesprep/internal/table"
)

// Metadata column names.
const (
	EffectColumn = "effect"
	FixedColumn  = "fixed"

	// DefaultTag is the pooling tag column used when a PoolSpec names none.
	DefaultTag = "sd"
)

// Classify builds the effect metadata table for a design matrix's column
// names: one row per column, tagged fixed. The intercept column is dropped
// entirely and never classified.
func Classify(names []string) *table.Table {
	meta := table.New(EffectColumn, FixedColumn)
	for _, n := range names {
		if n == design.InterceptName {
			continue
		}
		// AppendRow never fails for a matching arity.
		_ = meta.AppendRow(n, float64(1))
	}
	return meta
}

// PoolSpec configures one pooling-tag pass.
type PoolSpec struct {
	// Tag is the boolean metadata column to set; DefaultTag when empty.
	Tag string

	// Match selects the pooled effects; PrefixMatch when nil.
	Match Predicate

	// Config is handed to the predicate.
	Config MatchConfig

	// InPlace updates the caller's metadata table instead of a copy.
	InPlace bool
}

// ApplyPooling marks predicate-matched effects as random (fixed flag
// cleared) and records membership in the tag column: 1 for matched rows,
// 0 otherwise. It only appends or updates columns, never reorders or drops
// rows, and applying the same spec twice is a no-op. Repeated calls with
// different tags layer independent pooling groups.
func ApplyPooling(meta *table.Table, spec PoolSpec) (*table.Table, error) {
	tag := spec.Tag
	if tag == "" {
		tag = DefaultTag
	}
	match := spec.Match
	if match == nil {
		match = PrefixMatch
	}

	effectIdx := meta.ColumnIndex(EffectColumn)
	fixedIdx := meta.ColumnIndex(FixedColumn)
	if effectIdx < 0 || fixedIdx < 0 {
		return nil, fmt.Errorf("effects: not an effect metadata table (missing %q/%q)", EffectColumn, FixedColumn)
	}

	out := meta.Target(spec.InPlace)

	names := make([]string, len(out.Rows))
	for i, r := range out.Rows {
		names[i] = table.CanonicalString(r[effectIdx])
	}
	matched := match(names, spec.Config)
	if len(matched) != len(names) {
		return nil, fmt.Errorf("effects: predicate returned %d flags for %d effects", len(matched), len(names))
	}

	tagIdx := out.ColumnIndex(tag)
	if tagIdx < 0 {
		if err := out.AddColumn(tag, make([]any, len(out.Rows))); err != nil {
			return nil, fmt.Errorf("effects: %w", err)
		}
		tagIdx = out.ColumnIndex(tag)
	}

	for i, r := range out.Rows {
		if matched[i] {
			r[fixedIdx] = float64(0)
			r[tagIdx] = float64(1)
		} else {
			r[tagIdx] = float64(0)
		}
	}
	return out, nil
}
