package effects

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bayesprep/internal/design"
	"bayesprep/internal/table"
)

func TestClassifyDropsIntercept(t *testing.T) {
	meta := Classify([]string{design.InterceptName, "region_a", "region_b", "x"})

	require.Equal(t, []string{EffectColumn, FixedColumn}, meta.Columns)
	require.Equal(t, 3, meta.NumRows())
	for i, want := range []string{"region_a", "region_b", "x"} {
		require.Equal(t, want, meta.Rows[i][0])
		require.Equal(t, float64(1), meta.Rows[i][1], "every effect starts fixed")
	}
}

func TestApplyPoolingByPrefix(t *testing.T) {
	meta := Classify([]string{"region_a", "region_b", "x"})

	out, err := ApplyPooling(meta, PoolSpec{Config: MatchConfig{Prefix: "region_"}})
	require.NoError(t, err)

	require.Equal(t, []string{EffectColumn, FixedColumn, DefaultTag}, out.Columns)
	fixedIdx := out.ColumnIndex(FixedColumn)
	tagIdx := out.ColumnIndex(DefaultTag)
	require.Equal(t, float64(0), out.Rows[0][fixedIdx])
	require.Equal(t, float64(1), out.Rows[0][tagIdx])
	require.Equal(t, float64(0), out.Rows[1][fixedIdx])
	require.Equal(t, float64(1), out.Rows[1][tagIdx])
	require.Equal(t, float64(1), out.Rows[2][fixedIdx], "x stays fixed")
	require.Equal(t, float64(0), out.Rows[2][tagIdx])

	// The input was not mutated.
	require.Equal(t, []string{EffectColumn, FixedColumn}, meta.Columns)
}

func TestApplyPoolingIdempotent(t *testing.T) {
	meta := Classify([]string{"region_a", "x"})
	spec := PoolSpec{Config: MatchConfig{Prefix: "region_"}, InPlace: true}

	once, err := ApplyPooling(meta, spec)
	require.NoError(t, err)
	snapshot := once.Clone()

	twice, err := ApplyPooling(once, spec)
	require.NoError(t, err)
	require.Equal(t, snapshot.Columns, twice.Columns)
	require.Equal(t, snapshot.Rows, twice.Rows)
}

func TestApplyPoolingLayersTags(t *testing.T) {
	meta := Classify([]string{"region_a", "age_1", "x"})

	out, err := ApplyPooling(meta, PoolSpec{Tag: "sd_region", Config: MatchConfig{Prefix: "region_"}})
	require.NoError(t, err)
	out, err = ApplyPooling(out, PoolSpec{Tag: "sd_age", Config: MatchConfig{Prefix: "age_"}, InPlace: true})
	require.NoError(t, err)

	require.Equal(t, []string{EffectColumn, FixedColumn, "sd_region", "sd_age"}, out.Columns)
	ri := out.ColumnIndex("sd_region")
	ai := out.ColumnIndex("sd_age")
	require.Equal(t, float64(1), out.Rows[0][ri])
	require.Equal(t, float64(0), out.Rows[0][ai])
	require.Equal(t, float64(0), out.Rows[1][ri])
	require.Equal(t, float64(1), out.Rows[1][ai])
	require.Equal(t, float64(0), out.Rows[2][ri])
	require.Equal(t, float64(0), out.Rows[2][ai])
}

func TestApplyPoolingValidation(t *testing.T) {
	_, err := ApplyPooling(table.New("a", "b"), PoolSpec{})
	require.ErrorContains(t, err, "effect metadata")

	meta := Classify([]string{"x"})
	_, err = ApplyPooling(meta, PoolSpec{Match: func([]string, MatchConfig) []bool { return nil }})
	require.ErrorContains(t, err, "flags")
}

func TestPrefixMatch(t *testing.T) {
	names := []string{"region_a", "age_1"}
	require.Equal(t, []bool{false, false}, PrefixMatch(names, MatchConfig{}), "empty prefix is inert")
	require.Equal(t, []bool{true, false}, PrefixMatch(names, MatchConfig{Prefix: "region_"}))
}

func TestRegexMatch(t *testing.T) {
	names := []string{"region_a", "age_1"}
	require.Equal(t, []bool{true, false}, RegexMatch(names, MatchConfig{Pattern: `^region_`}))
	require.Equal(t, []bool{false, false}, RegexMatch(names, MatchConfig{Pattern: `([`}), "invalid pattern matches nothing")
	require.Equal(t, []bool{false, false}, RegexMatch(names, MatchConfig{}))
}

func TestSetMatch(t *testing.T) {
	names := []string{"region_a", "age_1"}
	require.Equal(t, []bool{false, true}, SetMatch(names, MatchConfig{Names: []string{"age_1", "nope"}}))
}
