package design

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"bayesprep/internal/formula"
	"bayesprep/internal/table"
)

func obsTable(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New("y", "x", "g")
	for _, r := range [][]any{
		{1.0, 1.0, "a"},
		{2.0, 2.0, "b"},
		{3.0, 1.0, "a"},
		{4.0, 2.0, "b"},
	} {
		require.NoError(t, tb.AppendRow(r...))
	}
	return tb
}

func mustParse(t *testing.T, src string) *formula.Formula {
	t.Helper()
	f, err := formula.Parse(src)
	require.NoError(t, err)
	return f
}

func TestBuildSparseDeduplicates(t *testing.T) {
	m, err := Build(mustParse(t, "y ~ x + g"), obsTable(t), BuildSpec{Verify: true})
	require.NoError(t, err)

	require.Equal(t, []string{InterceptName, "x", "g_b"}, m.Names)
	require.Equal(t, 2, m.NumRows(), "two unique covariate patterns")
	require.Equal(t, 4, m.FullRows)
	require.Equal(t, []int{1, 2, 1, 2}, m.Index)
	require.Equal(t, [][]float64{
		{1, 1, 0},
		{1, 2, 1},
	}, m.RowSlices())
}

func TestBuildDenseIdentityIndex(t *testing.T) {
	m, err := Build(mustParse(t, "y ~ x + g"), obsTable(t), BuildSpec{Dense: true})
	require.NoError(t, err)

	require.Equal(t, 4, m.NumRows())
	require.Equal(t, []int{1, 2, 3, 4}, m.Index)
	require.True(t, m.HasIntercept())
}

func TestBuildReconstruction(t *testing.T) {
	tb := obsTable(t)
	m, err := Build(mustParse(t, "y ~ x + g"), tb, BuildSpec{Verify: true})
	require.NoError(t, err)

	dense, err := Build(mustParse(t, "y ~ x + g"), tb, BuildSpec{Dense: true})
	require.NoError(t, err)

	unique := m.RowSlices()
	full := dense.RowSlices()
	require.Len(t, m.Index, len(full))
	for i, idx := range m.Index {
		require.Equal(t, full[i], unique[idx-1], "row %d", i)
	}
}

func TestBuildNoInterceptAbsorbsReference(t *testing.T) {
	m, err := Build(mustParse(t, "y ~ 0 + g"), obsTable(t), BuildSpec{})
	require.NoError(t, err)

	// The first categorical main effect keeps all its levels.
	require.Equal(t, []string{"g_a", "g_b"}, m.Names)
	require.False(t, m.HasIntercept())
}

func TestBuildSecondCategoricalStillContrasts(t *testing.T) {
	tb := obsTable(t)
	require.NoError(t, tb.AddColumn("h", []any{"u", "v", "u", "v"}))

	m, err := Build(mustParse(t, "y ~ 0 + g + h"), tb, BuildSpec{})
	require.NoError(t, err)
	require.Equal(t, []string{"g_a", "g_b", "h_v"}, m.Names)
}

func TestBuildFullIndicators(t *testing.T) {
	m, err := Build(mustParse(t, "y ~ g"), obsTable(t), BuildSpec{FullIndicators: []string{"g"}})
	require.NoError(t, err)
	require.Equal(t, []string{InterceptName, "g_a", "g_b"}, m.Names)

	m, err = Build(mustParse(t, "y ~ g"), obsTable(t), BuildSpec{AllFullIndicators: true})
	require.NoError(t, err)
	require.Equal(t, []string{InterceptName, "g_a", "g_b"}, m.Names)
}

func TestBuildInteraction(t *testing.T) {
	m, err := Build(mustParse(t, "y ~ x:g"), obsTable(t), BuildSpec{Dense: true})
	require.NoError(t, err)

	require.Equal(t, []string{InterceptName, "x:g_b"}, m.Names)
	require.Equal(t, [][]float64{
		{1, 0},
		{1, 2},
		{1, 0},
		{1, 2},
	}, m.RowSlices())
}

func TestBuildGroupFactorsExpandFully(t *testing.T) {
	pair, err := formula.Derive("y ~ x + (1|g)")
	require.NoError(t, err)

	m, err := Build(pair.Random, obsTable(t), BuildSpec{Verify: true})
	require.NoError(t, err)
	require.Equal(t, []string{InterceptName, "g_a", "g_b"}, m.Names)
}

func TestBuildMissingColumns(t *testing.T) {
	_, err := Build(mustParse(t, "y ~ a + x + b"), obsTable(t), BuildSpec{})
	require.ErrorContains(t, err, "missing column(s): a, b")
}

func TestBuildEmptyFormula(t *testing.T) {
	f, err := formula.Parse("y ~ 0")
	require.NoError(t, err)

	m, err := Build(f, obsTable(t), BuildSpec{})
	require.NoError(t, err)
	require.Equal(t, 0, m.NumCols())
	require.Equal(t, 0, m.NumRows())
	require.NotNil(t, m.Index)
	require.Empty(t, m.Index)
	require.NotNil(t, m.RowSlices())
	require.Empty(t, m.RowSlices())
}

func TestBuildInterceptOnly(t *testing.T) {
	m, err := Build(mustParse(t, "y ~ 1"), obsTable(t), BuildSpec{Verify: true})
	require.NoError(t, err)

	require.Equal(t, []string{InterceptName}, m.Names)
	require.Equal(t, 1, m.NumRows(), "all rows share the single pattern")
	require.Equal(t, []int{1, 1, 1, 1}, m.Index)
}

func TestDedupRowsFirstOccurrenceOrder(t *testing.T) {
	full := [][]float64{
		{1, 2},
		{3, 4},
		{1, 2},
		{5, 6},
		{3, 4},
	}
	unique, index := dedupRows(full, 2)

	require.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, unique)
	require.Equal(t, []int{1, 2, 1, 3, 2}, index)
}

func TestDedupRowsCanonicalFloats(t *testing.T) {
	negZero := math.Copysign(0, -1)
	unique, index := dedupRows([][]float64{
		{0},
		{negZero},
		{math.NaN()},
		{math.NaN()},
	}, 1)

	require.Len(t, unique, 2, "-0 folds into +0, NaN into NaN")
	require.Equal(t, []int{1, 1, 2, 2}, index)
}

func TestVerifyReconstruction(t *testing.T) {
	full := [][]float64{{1}, {2}, {1}}
	unique, index := dedupRows(full, 1)
	require.Equal(t, -1, verifyReconstruction(full, unique, index))

	// A corrupted index points the checker at the offending row.
	bad := []int{1, 2, 2}
	require.Equal(t, 2, verifyReconstruction(full, unique, bad))

	require.Equal(t, 0, verifyReconstruction(full, unique, []int{1, 2}), "length mismatch")
}
