package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	cursor int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.cursor >= len(r.data) {
		return false
	}
	r.cursor++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return errors.New("not used") }

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.cursor-1], nil
}

type fakeConn struct {
	rows   pgx.Rows
	closed bool
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.rows, nil
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func TestReadTable(t *testing.T) {
	fc := &fakeConn{rows: &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "y"}, {Name: "region"}},
		data: [][]any{
			{1.0, []byte("east")},
			{2.0, "west"},
		},
	}}

	r := New(Config{DSN: "postgres://ignored", Query: "SELECT y, region FROM obs"})
	r.connect = func(ctx context.Context, dsn string) (conn, error) { return fc, nil }

	tb, err := r.ReadTable(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"y", "region"}, tb.Columns)
	require.Equal(t, 2, tb.NumRows())

	region, _ := tb.Column("region")
	require.Equal(t, []any{"east", "west"}, region, "[]byte cells converted to string")

	require.True(t, fc.closed)
}

func TestReadTableRequiresQuery(t *testing.T) {
	_, err := New(Config{DSN: "postgres://ignored"}).ReadTable(context.Background())
	require.ErrorContains(t, err, "query is required")
}

func TestReadTableConnectError(t *testing.T) {
	r := New(Config{DSN: "postgres://ignored", Query: "SELECT 1"})
	r.connect = func(ctx context.Context, dsn string) (conn, error) {
		return nil, errors.New("refused")
	}
	_, err := r.ReadTable(context.Background())
	require.ErrorContains(t, err, "connect")
}

func TestReadTableRowError(t *testing.T) {
	fc := &fakeConn{rows: &fakeRows{err: errors.New("broken stream")}}
	r := New(Config{DSN: "postgres://ignored", Query: "SELECT 1"})
	r.connect = func(ctx context.Context, dsn string) (conn, error) { return fc, nil }

	_, err := r.ReadTable(context.Background())
	require.ErrorContains(t, err, "iterate rows")
}
