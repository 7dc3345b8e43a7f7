package priors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeReplacesByStrippedKey(t *testing.T) {
	defaults := []Prior{
		{Variable: "alpha", Mean: 0, SD: 10},
		{Variable: "beta", Mean: 0, SD: 5},
		{Variable: "sigma", Mean: 0, SD: 2},
	}
	overrides := []Prior{
		{Variable: "beta[2]", Mean: 1, SD: 1},
		{Variable: "tau", Mean: 0, SD: 3},
	}

	got := Merge(defaults, overrides)

	require.Equal(t, []Prior{
		{Variable: "alpha", Mean: 0, SD: 10},
		{Variable: "sigma", Mean: 0, SD: 2},
		{Variable: "beta[2]", Mean: 1, SD: 1},
		{Variable: "tau", Mean: 0, SD: 3},
	}, got, "defaults keep order, overrides follow with original names")
}

func TestMergeEmptyInputs(t *testing.T) {
	defaults := []Prior{{Variable: "a", Mean: 0, SD: 1}}
	require.Equal(t, defaults, Merge(defaults, nil))
	require.Equal(t, []Prior{{Variable: "b", Mean: 1, SD: 1}}, Merge(nil, []Prior{{Variable: "b", Mean: 1, SD: 1}}))
	require.Empty(t, Merge(nil, nil))
}

func TestMergeDefaultNamesMatchedRaw(t *testing.T) {
	// A suffixed default is only replaced by an exact key match; the
	// stripping applies to override names, not default names.
	defaults := []Prior{{Variable: "beta[1]", Mean: 0, SD: 5}}
	got := Merge(defaults, []Prior{{Variable: "beta", Mean: 1, SD: 1}})
	require.Len(t, got, 2)
}

func TestStripIndex(t *testing.T) {
	cases := map[string]string{
		"beta[2]":   "beta",
		"beta":      "beta",
		"beta[a,b]": "beta",
		"a[1][2]":   "a[1]",
		"[2]":       "[2]",
		"x]":        "x]",
	}
	for in, want := range cases {
		require.Equal(t, want, StripIndex(in), "input %q", in)
	}
}

func TestFlatten(t *testing.T) {
	data := map[string]any{}
	Flatten([]Prior{
		{Variable: "alpha", Mean: 0, SD: 10},
		{Variable: "beta[2]", Mean: 1, SD: 1},
	}, data)

	require.Equal(t, []float64{0, 10}, data["alpha_p"])
	require.Equal(t, []float64{1, 1}, data["beta[2]_p"])
}
