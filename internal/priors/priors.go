// Package priors merges default and user-override prior tables and
// flattens them into sampler payload fields.
package priors

import "strings"

// Prior is one independent normal prior over a model parameter.
type Prior struct {
	Variable string
	Mean     float64
	SD       float64
}

// Merge replaces defaults with overrides keyed by variable name.
//
// Override names are stripped of a single trailing bracketed vector-index
// suffix (x[3] matches the default x) to form match keys; defaults whose
// name equals an override key are removed. The result keeps unaffected
// defaults first in their original order, then the overrides in theirs,
// with every output row keeping its original (possibly suffixed) name.
//
// Nested or repeated bracket groups are out of scope upstream: only the
// one trailing group is stripped, anything else passes through untouched.
func Merge(defaults, overrides []Prior) []Prior {
	keys := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		keys[StripIndex(o.Variable)] = struct{}{}
	}

	out := make([]Prior, 0, len(defaults)+len(overrides))
	for _, d := range defaults {
		if _, replaced := keys[d.Variable]; replaced {
			continue
		}
		out = append(out, d)
	}
	return append(out, overrides...)
}

// StripIndex removes one trailing bracketed suffix: "beta[2]" -> "beta".
// Names without a trailing group are returned unchanged.
func StripIndex(name string) string {
	if !strings.HasSuffix(name, "]") {
		return name
	}
	open := strings.LastIndex(name, "[")
	if open <= 0 {
		return name
	}
	return name[:open]
}

// Flatten writes each prior as "<variable>_p" = [mean, sd] into data.
func Flatten(rows []Prior, data map[string]any) {
	for _, p := range rows {
		data[p.Variable+"_p"] = []float64{p.Mean, p.SD}
	}
}
