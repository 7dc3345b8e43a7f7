// Package table provides the ordered observation table that every
// preparation operation accepts: named columns over positional rows.
//
// Ownership contract:
//   - Operations copy the table by default.
//   - Every table-accepting spec carries an InPlace knob; when set, the
//     operation aliases the caller's table and may append columns to it.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupColumn is the conventional column partitioning rows for
// group-scoped feature derivation.
const GroupColumn = ".group"

// Table holds named scalar columns over positional rows.
// Rows are aligned to Columns: Rows[i][j] is the value of Columns[j].
type Table struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// AppendRow appends one positional row. The row length must match the
// column count.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table: row length %d != column count %d", len(values), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]any(nil), values...))
	return nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns the values of a named column, one per row.
func (t *Table) Column(name string) ([]any, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("table: column %q not found", name)
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// AddColumn appends a column with one value per existing row.
func (t *Table) AddColumn(name string, values []any) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("table: column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	if t.HasColumn(name) {
		return fmt.Errorf("table: column %q already exists", name)
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// Clone returns a deep copy of the table. Scalar values are shared, which
// is safe because operations never mutate values in place, only rows.
func (t *Table) Clone() *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// Target resolves the copy-by-default contract: it returns t itself when
// inPlace is set and a clone otherwise.
func (t *Table) Target(inPlace bool) *Table {
	if inPlace {
		return t
	}
	return t.Clone()
}

// AsFloat coerces a scalar to float64. It accepts the numeric types the
// sources produce plus numeric-looking strings.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// CanonicalString produces a stable string form of a scalar, used for
// categorical level names and grouping keys.
//
// Hot-path rules:
//   - Avoid fmt.Sprint for common primitive types.
//   - Trim edge whitespace on strings/[]byte.
//   - Treat nil as "".
func CanonicalString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if hasEdgeSpace(x) {
			return strings.TrimSpace(x)
		}
		return x
	case []byte:
		s := string(x)
		if hasEdgeSpace(s) {
			return strings.TrimSpace(s)
		}
		return s
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		s := fmt.Sprint(v)
		if hasEdgeSpace(s) {
			return strings.TrimSpace(s)
		}
		return s
	}
}

func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}
