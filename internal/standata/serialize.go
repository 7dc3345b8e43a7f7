// Package standata flattens built design matrices and merged priors into
// the flat key-value payload the external sampler consumes.
package standata

import (
	"io"

	json "github.com/goccy/go-json"

	"bayesprep/internal/design"
)

// Record is the flat payload: prefixed scalar and array fields.
type Record map[string]any

// SerializeSpec configures one formula serialization.
type SerializeSpec struct {
	// Prefix is prepended to every field name as "<prefix>_<field>".
	Prefix string

	// ExcludeIntercept excludes one fixed column from the effective count
	// even when no intercept column is present. When an intercept column
	// exists the column is never subtracted twice.
	ExcludeIntercept bool
}

// Serialize flattens a fixed design matrix (with its reconstruction index)
// and a random design matrix into prefixed fields:
//
//	<p>_fintercept  1 when the fixed matrix has an intercept column
//	<p>_fmatrix     fixed matrix rows
//	<p>_fnrow       fixed matrix stored row count
//	<p>_findex      reconstruction index (1-based)
//	<p>_fnindex     index length
//	<p>_fncol       fixed effective column count
//	<p>_rmatrix     random matrix rows
//	<p>_rncol       random effective column count
//
// A nil matrix stands for an absent formula and yields the all-empty/zero
// default under the same field names, so downstream consumers never
// special-case a missing model component. The random matrix's reference
// column is always excluded from its effective count.
func Serialize(fixed, random *design.Matrix, spec SerializeSpec) Record {
	if fixed == nil {
		fixed = design.Empty()
	}
	if random == nil {
		random = design.Empty()
	}

	intercept := 0
	fncol := fixed.NumCols()
	if fixed.HasIntercept() {
		intercept = 1
		fncol--
	} else if spec.ExcludeIntercept && fncol > 0 {
		fncol--
	}

	rncol := random.NumCols() - 1
	if rncol < 0 {
		rncol = 0
	}

	index := fixed.Index
	if index == nil {
		index = []int{}
	}

	p := spec.Prefix
	return Record{
		p + "_fintercept": intercept,
		p + "_fmatrix":    fixed.RowSlices(),
		p + "_fnrow":      fixed.NumRows(),
		p + "_findex":     index,
		p + "_fnindex":    len(index),
		p + "_fncol":      fncol,
		p + "_rmatrix":    random.RowSlices(),
		p + "_rncol":      rncol,
	}
}

// MergeInto copies src fields into dst and returns dst.
func MergeInto(dst, src Record) Record {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WriteJSON encodes the record for the sampler collaborator.
func WriteJSON(w io.Writer, rec Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
