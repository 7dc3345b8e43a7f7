// Package mssql reads observation tables from SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"bayesprep/internal/source"
	"bayesprep/internal/table"
)

// Config locates the data.
type Config struct {
	// DSN is a sqlserver:// connection string.
	DSN string

	// Query selects the observation rows.
	Query string

	// Args are bound to the query placeholders (@p1, @p2, ...).
	Args []any
}

// Reader implements source.Reader for SQL Server.
type Reader struct {
	cfg Config
}

// New returns a SQL Server reader.
func New(cfg Config) *Reader { return &Reader{cfg: cfg} }

// ReadTable connects, runs the query, and drains it into a table.
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	if r.cfg.Query == "" {
		return nil, fmt.Errorf("mssql: query is required")
	}

	db, err := sql.Open("sqlserver", r.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}

	rows, err := db.QueryContext(ctx, r.cfg.Query, r.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mssql: query: %w", err)
	}
	defer rows.Close()

	return source.FromSQLRows(rows)
}
