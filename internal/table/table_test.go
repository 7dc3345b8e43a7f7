package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendRowArity(t *testing.T) {
	tb := New("a", "b")
	require.NoError(t, tb.AppendRow(1.0, "x"))
	require.Error(t, tb.AppendRow(1.0))
	require.Equal(t, 1, tb.NumRows())
}

func TestCloneDoesNotAliasRows(t *testing.T) {
	tb := New("a")
	require.NoError(t, tb.AppendRow(1.0))

	cp := tb.Clone()
	cp.Rows[0][0] = 2.0

	require.Equal(t, 1.0, tb.Rows[0][0])
	require.Equal(t, 2.0, cp.Rows[0][0])
}

func TestTargetHonorsInPlace(t *testing.T) {
	tb := New("a")
	require.NoError(t, tb.AppendRow(1.0))

	require.Same(t, tb, tb.Target(true))
	require.NotSame(t, tb, tb.Target(false))
}

func TestAddColumn(t *testing.T) {
	tb := New("a")
	require.NoError(t, tb.AppendRow(1.0))
	require.NoError(t, tb.AppendRow(2.0))

	require.NoError(t, tb.AddColumn("b", []any{"x", "y"}))
	require.Equal(t, []string{"a", "b"}, tb.Columns)

	col, err := tb.Column("b")
	require.NoError(t, err)
	require.Equal(t, []any{"x", "y"}, col)

	require.Error(t, tb.AddColumn("b", []any{"x", "y"}), "duplicate column")
	require.Error(t, tb.AddColumn("c", []any{"x"}), "wrong length")
}

func TestColumnMissing(t *testing.T) {
	tb := New("a")
	_, err := tb.Column("nope")
	require.ErrorContains(t, err, `"nope"`)
}

func TestAsFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{3.5, 3.5, true},
		{int(2), 2, true},
		{int64(-7), -7, true},
		{uint8(9), 9, true},
		{true, 1, true},
		{"  4.25 ", 4.25, true},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := AsFloat(c.in)
		require.Equal(t, c.ok, ok, "input %v", c.in)
		if ok {
			require.Equal(t, c.want, got, "input %v", c.in)
		}
	}
}

func TestCanonicalString(t *testing.T) {
	require.Equal(t, "", CanonicalString(nil))
	require.Equal(t, "x", CanonicalString(" x "))
	require.Equal(t, "3", CanonicalString(int64(3)))
	require.Equal(t, "2.5", CanonicalString(2.5))
	require.Equal(t, "true", CanonicalString(true))
	require.Equal(t, "b", CanonicalString([]byte("b")))
}

func TestIsNumericColumn(t *testing.T) {
	require.True(t, IsNumericColumn([]any{1.0, nil, int64(2)}))
	require.False(t, IsNumericColumn([]any{1.0, "2"}), "strings stay categorical")
	require.False(t, IsNumericColumn([]any{nil, nil}), "all-nil is not numeric")
}

func TestFloatColumn(t *testing.T) {
	vals, bad, ok := FloatColumn([]any{1.0, nil, int(3)})
	require.True(t, ok)
	require.Equal(t, -1, bad)
	require.Equal(t, []float64{1, 0, 3}, vals)

	_, bad, ok = FloatColumn([]any{1.0, "x"})
	require.False(t, ok)
	require.Equal(t, 1, bad)
}
