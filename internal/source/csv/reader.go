// Package csv reads observation tables from delimited text.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"bayesprep/internal/source"
	"bayesprep/internal/table"
)

// Options control CSV parsing.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// NoHeader treats the first record as data; columns are then named
	// col1..colN.
	NoHeader bool

	// TrimSpace trims edge whitespace from every field.
	TrimSpace bool

	// LazyQuotes forwards encoding/csv's lenient quote handling.
	LazyQuotes bool

	// Charset names the source text encoding (e.g. "windows-1252",
	// "iso-8859-2"); input is decoded to UTF-8 before parsing. Empty means
	// the input already is UTF-8.
	Charset string

	// KeepText disables numeric coercion of all-numeric columns.
	KeepText bool
}

// Reader implements source.Reader over an io.Reader of delimited text.
type Reader struct {
	src io.Reader
	opt Options
}

// New returns a CSV reader over src.
func New(src io.Reader, opt Options) *Reader {
	return &Reader{src: src, opt: opt}
}

// ReadTable parses the whole input into an observation table. Short rows
// error with their 1-based record number.
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	src := r.src
	if r.opt.Charset != "" {
		enc, err := htmlindex.Get(r.opt.Charset)
		if err != nil {
			return nil, fmt.Errorf("csv: unknown charset %q: %w", r.opt.Charset, err)
		}
		src = transform.NewReader(src, enc.NewDecoder())
	}

	cr := csv.NewReader(src)
	if r.opt.Comma != 0 {
		cr.Comma = r.opt.Comma
	}
	cr.LazyQuotes = r.opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var t *table.Table
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: record %d: %w", line+1, err)
		}
		line++

		if r.opt.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}

		if t == nil {
			t = table.New(headerFor(rec, r.opt.NoHeader)...)
			if !r.opt.NoHeader {
				continue
			}
		}

		if len(rec) != len(t.Columns) {
			return nil, fmt.Errorf("csv: record %d has %d fields, want %d", line, len(rec), len(t.Columns))
		}
		values := make([]any, len(rec))
		for i, f := range rec {
			values[i] = f
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, err
		}
	}

	if t == nil {
		return nil, fmt.Errorf("csv: empty input")
	}
	if !r.opt.KeepText {
		source.CoerceNumericColumns(t)
	}
	return t, nil
}

func headerFor(rec []string, noHeader bool) []string {
	if !noHeader {
		return append([]string(nil), rec...)
	}
	cols := make([]string, len(rec))
	for i := range cols {
		cols[i] = "col" + strconv.Itoa(i+1)
	}
	return cols
}
