// Package json reads observation tables from JSON documents: a root array
// of objects, or an envelope object whose first array-of-objects field
// holds the records.
package json

import (
	"context"
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"

	"bayesprep/internal/table"
)

// Reader implements source.Reader over a JSON document.
type Reader struct {
	src io.Reader
}

// New returns a JSON reader over src.
func New(src io.Reader) *Reader {
	return &Reader{src: src}
}

// ReadTable decodes the document and aligns every record to the column
// union, in first-seen key order. Missing keys become nil; numbers decode
// as float64.
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var root any
	dec := json.NewDecoder(r.src)
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("json: decode document: %w", err)
	}

	records, err := recordsFrom(root)
	if err != nil {
		return nil, err
	}

	var columns []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		for _, k := range sortedKeysStable(rec) {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}

	t := table.New(columns...)
	for _, rec := range records {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = rec[c]
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func recordsFrom(root any) ([]map[string]any, error) {
	switch v := root.(type) {
	case []any:
		return objectSlice(v)
	case map[string]any:
		// Envelope pattern: the first array-of-objects field holds the
		// records; a plain object is a single record.
		for _, val := range v {
			if arr, ok := val.([]any); ok {
				if recs, err := objectSlice(arr); err == nil && len(recs) > 0 {
					return recs, nil
				}
			}
		}
		return []map[string]any{v}, nil
	default:
		return nil, fmt.Errorf("json: unsupported root %T (want object or array)", root)
	}
}

func objectSlice(arr []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(arr))
	for i, el := range arr {
		if el == nil {
			continue
		}
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("json: array element %d not an object (got %T)", i, el)
		}
		out = append(out, obj)
	}
	return out, nil
}

// sortedKeysStable returns object keys sorted for deterministic column
// order; decoded Go maps iterate randomly.
func sortedKeysStable(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
