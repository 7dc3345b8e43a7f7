// Package postgres reads observation tables from PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bayesprep/internal/table"
)

// Config locates the data.
type Config struct {
	// DSN is a postgres:// connection string.
	DSN string

	// Query selects the observation rows.
	Query string

	// Args are bound to the query placeholders ($1, $2, ...).
	Args []any
}

// Reader implements source.Reader for PostgreSQL.
type Reader struct {
	cfg Config

	// connect is a test seam; pgx.Connect in production.
	connect func(ctx context.Context, dsn string) (conn, error)
}

// conn is the minimal pgx surface the reader needs.
type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// New returns a PostgreSQL reader.
func New(cfg Config) *Reader {
	return &Reader{
		cfg: cfg,
		connect: func(ctx context.Context, dsn string) (conn, error) {
			return pgx.Connect(ctx, dsn)
		},
	}
}

// ReadTable connects, runs the query, and drains it into a table. []byte
// cells are converted to string, matching the database/sql readers.
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	if r.cfg.Query == "" {
		return nil, fmt.Errorf("postgres: query is required")
	}

	c, err := r.connect(ctx, r.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	defer c.Close(ctx)

	rows, err := c.Query(ctx, r.cfg.Query, r.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f.Name)
	}

	t := table.New(cols...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: read row: %w", err)
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
		return nil, fmt.Errorf("postgres: iterate rows: %w", err)
	}
	return t, nil
}
