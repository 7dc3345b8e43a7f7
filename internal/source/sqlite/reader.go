// Package sqlite reads observation tables from SQLite databases.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"bayesprep/internal/source"
	"bayesprep/internal/table"
)

// Config locates the data.
type Config struct {
	// DSN is the SQLite path or URI (":memory:" works).
	DSN string

	// Query selects the observation rows; column names become table
	// columns.
	Query string

	// Args are bound to the query placeholders.
	Args []any
}

// Reader implements source.Reader for SQLite.
type Reader struct {
	cfg Config
}

// New returns a SQLite reader.
func New(cfg Config) *Reader { return &Reader{cfg: cfg} }

// ReadTable opens the database, runs the query, and drains it into a
// table. The connection is closed before returning.
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	if r.cfg.Query == "" {
		return nil, fmt.Errorf("sqlite: query is required")
	}

	db, err := sql.Open("sqlite", r.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", r.cfg.DSN, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	rows, err := db.QueryContext(ctx, r.cfg.Query, r.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	return source.FromSQLRows(rows)
}
