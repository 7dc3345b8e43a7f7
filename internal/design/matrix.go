// Package design expands model formulas against observation tables into
// numeric design matrices, optionally deduplicated to unique covariate
// patterns with a reconstruction index.
package design

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"bayesprep/internal/formula"
	"bayesprep/internal/table"
)

// InterceptName is the reserved column name of the intercept. No expanded
// effect column can collide with it because effect columns always contain
// the source column name.
const InterceptName = "Intercept"

// BuildSpec controls matrix construction.
type BuildSpec struct {
	// Dense disables row deduplication: the matrix keeps one row per
	// observation and the index is the identity.
	Dense bool

	// FullIndicators names categorical columns expanded without dropping a
	// reference level. Names not present in the formula are ignored.
	FullIndicators []string

	// AllFullIndicators applies full-indicator expansion to every
	// categorical column.
	AllFullIndicators bool

	// Verify re-applies the reconstruction index after a sparse build and
	// fails on any mismatch. A failure is an implementation bug, never a
	// data problem.
	Verify bool
}

// Matrix is a built design matrix.
//
// Data holds either the full expansion (dense mode) or the unique covariate
// patterns (sparse mode); it is nil when the formula contributes no
// columns. Index maps every original observation row to the 1-based stored
// row that reproduces it.
type Matrix struct {
	Names    []string
	Data     *mat.Dense
	Index    []int
	FullRows int
}

// Empty returns the zero-column matrix used wherever an absent formula
// must behave like a built one.
func Empty() *Matrix {
	return &Matrix{Index: []int{}}
}

// NumCols returns the stored column count.
func (m *Matrix) NumCols() int {
	if m == nil || m.Data == nil {
		return 0
	}
	_, c := m.Data.Dims()
	return c
}

// NumRows returns the stored row count (unique rows in sparse mode).
func (m *Matrix) NumRows() int {
	if m == nil || m.Data == nil {
		return 0
	}
	r, _ := m.Data.Dims()
	return r
}

// HasIntercept reports whether the intercept column is present.
func (m *Matrix) HasIntercept() bool {
	if m == nil {
		return false
	}
	for _, n := range m.Names {
		if n == InterceptName {
			return true
		}
	}
	return false
}

// RowSlices returns the stored rows as plain float64 slices. The result is
// never nil, so it serializes as an empty array for zero-column matrices.
func (m *Matrix) RowSlices() [][]float64 {
	rows := m.NumRows()
	cols := m.NumCols()
	out := make([][]float64, 0, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		mat.Row(row, i, m.Data)
		out = append(out, row)
	}
	return out
}

// Build expands f against t per spec.
//
// Errors:
//   - Schema: the formula references columns absent from the table; the
//     error names every missing column.
//   - Invariant violation: only with spec.Verify, when the reconstruction
//     index fails to reproduce the full expansion.
func Build(f *formula.Formula, t *table.Table, spec BuildSpec) (*Matrix, error) {
	if f.Empty() {
		return Empty(), nil
	}

	if missing := missingColumns(f, t); len(missing) > 0 {
		return nil, fmt.Errorf("design: formula references missing column(s): %s", strings.Join(missing, ", "))
	}

	cols, err := expandTerms(f, t, spec)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cols)+1)
	if f.Intercept {
		names = append(names, InterceptName)
	}
	for _, c := range cols {
		names = append(names, c.name)
	}

	n := t.NumRows()
	p := len(names)
	full := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p)
		j := 0
		if f.Intercept {
			row[j] = 1
			j++
		}
		for _, c := range cols {
			row[j] = c.values[i]
			j++
		}
		full[i] = row
	}

	if spec.Dense {
		m := &Matrix{Names: names, FullRows: n, Index: identityIndex(n)}
		if p > 0 && n > 0 {
			m.Data = mat.NewDense(n, p, flatten(full, p))
		}
		return m, nil
	}

	unique, index := dedupRows(full, p)
	m := &Matrix{Names: names, FullRows: n, Index: index}
	if p > 0 && len(unique) > 0 {
		m.Data = mat.NewDense(len(unique), p, flatten(unique, p))
	}

	if spec.Verify {
		if bad := verifyReconstruction(full, unique, index); bad >= 0 {
			return nil, fmt.Errorf("design: reconstruction index does not reproduce row %d (implementation bug)", bad+1)
		}
	}
	return m, nil
}

// termColumn is one expanded numeric column of a term.
type termColumn struct {
	name   string
	values []float64
}

func missingColumns(f *formula.Formula, t *table.Table) []string {
	var missing []string
	for _, name := range f.ColumnNames() {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// expandTerms turns every formula term into numeric columns using standard
// categorical-contrast expansion. The first categorical factor absorbs the
// intercept degree of freedom when the formula carries no intercept.
func expandTerms(f *formula.Formula, t *table.Table, spec BuildSpec) ([]termColumn, error) {
	suppressed := make(map[string]bool, len(spec.FullIndicators)+len(f.GroupFactors))
	for _, n := range spec.FullIndicators {
		suppressed[n] = true
	}
	for _, n := range f.GroupFactors {
		suppressed[n] = true
	}

	factors := make(map[string]*factorData)
	interceptConsumed := f.Intercept

	var out []termColumn
	for _, term := range f.Terms {
		expansions := make([][]termColumn, 0, len(term.Factors))
		for _, name := range term.Factors {
			fd, err := factorFor(factors, t, name)
			if err != nil {
				return nil, err
			}
			dropRef := false
			if fd.categorical {
				full := spec.AllFullIndicators || suppressed[name]
				dropRef = !full && interceptConsumed
				if !full && !interceptConsumed {
					interceptConsumed = true
				}
			}
			expansions = append(expansions, fd.expand(dropRef))
		}
		out = append(out, crossExpansions(expansions)...)
	}
	return out, nil
}

// factorData caches one referenced column's expansion inputs.
type factorData struct {
	name        string
	categorical bool
	numeric     []float64 // numeric columns
	codes       []int     // categorical: level index per row
	levels      []string  // categorical: sorted level names
}

func factorFor(cache map[string]*factorData, t *table.Table, name string) (*factorData, error) {
	if fd, ok := cache[name]; ok {
		return fd, nil
	}
	values, err := t.Column(name)
	if err != nil {
		return nil, fmt.Errorf("design: %w", err)
	}

	fd := &factorData{name: name}
	if table.IsNumericColumn(values) {
		nums, _, _ := table.FloatColumn(values)
		fd.numeric = nums
	} else {
		fd.categorical = true
		fd.levels, fd.codes = encodeLevels(values)
	}
	cache[name] = fd
	return fd, nil
}

// encodeLevels maps a categorical column to sorted observed levels and a
// per-row level index. Only levels present in the data get a code, so
// unused levels are dropped before expansion.
func encodeLevels(values []any) (levels []string, codes []int) {
	seen := make(map[string]struct{})
	for _, v := range values {
		s := table.CanonicalString(v)
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			levels = append(levels, s)
		}
	}
	sort.Strings(levels)

	pos := make(map[string]int, len(levels))
	for i, l := range levels {
		pos[l] = i
	}
	codes = make([]int, len(values))
	for i, v := range values {
		codes[i] = pos[table.CanonicalString(v)]
	}
	return levels, codes
}

func (fd *factorData) expand(dropRef bool) []termColumn {
	if !fd.categorical {
		return []termColumn{{name: fd.name, values: fd.numeric}}
	}
	start := 0
	if dropRef {
		start = 1
	}
	out := make([]termColumn, 0, len(fd.levels)-start)
	for li := start; li < len(fd.levels); li++ {
		vals := make([]float64, len(fd.codes))
		for i, c := range fd.codes {
			if c == li {
				vals[i] = 1
			}
		}
		out = append(out, termColumn{name: fd.name + "_" + fd.levels[li], values: vals})
	}
	return out
}

// crossExpansions builds the elementwise products across factor
// expansions: the columns of an interaction term.
func crossExpansions(expansions [][]termColumn) []termColumn {
	if len(expansions) == 0 {
		return nil
	}
	acc := expansions[0]
	for _, next := range expansions[1:] {
		merged := make([]termColumn, 0, len(acc)*len(next))
		for _, a := range acc {
			for _, b := range next {
				vals := make([]float64, len(a.values))
				for i := range vals {
					vals[i] = a.values[i] * b.values[i]
				}
				merged = append(merged, termColumn{name: a.name + ":" + b.name, values: vals})
			}
		}
		acc = merged
	}
	return acc
}

func identityIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i + 1
	}
	return idx
}

func flatten(rows [][]float64, p int) []float64 {
	out := make([]float64, 0, len(rows)*p)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
