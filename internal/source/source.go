// Package source provides observation-table readers: the input boundary
// that feeds the preparation pipeline from files, databases, and HTML.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"bayesprep/internal/table"
)

// Reader loads one observation table from an external source.
type Reader interface {
	ReadTable(ctx context.Context) (*table.Table, error)
}

// CoerceNumericColumns converts, in place, every string column whose
// non-empty values all parse as numbers into float64 values. Empty strings
// become nil. Mixed columns are left untouched and stay categorical.
func CoerceNumericColumns(t *table.Table) {
	for j := range t.Columns {
		if !columnIsNumericText(t, j) {
			continue
		}
		for i := range t.Rows {
			s, ok := t.Rows[i][j].(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				t.Rows[i][j] = nil
				continue
			}
			f, _ := strconv.ParseFloat(s, 64)
			t.Rows[i][j] = f
		}
	}
}

func columnIsNumericText(t *table.Table, j int) bool {
	sawValue := false
	for i := range t.Rows {
		v := t.Rows[i][j]
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		sawValue = true
	}
	return sawValue
}

// FromSQLRows drains a database/sql result set into a table. []byte values
// are converted to string so drivers with byte-slice text behave like the
// others.
func FromSQLRows(rows *sql.Rows) (*table.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("source: read columns: %w", err)
	}

	t := table.New(cols...)
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("source: scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: iterate rows: %w", err)
	}
	return t, nil
}
