// Command prepare reads an observation table from a source, runs the
// preparation pipeline, and writes the flat sampler payload as JSON. It is
// a thin harness over the internal packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"bayesprep/internal/metrics"
	"bayesprep/internal/metrics/datadog"
	"bayesprep/internal/pipeline"
	"bayesprep/internal/priors"
	"bayesprep/internal/source"
	csvsrc "bayesprep/internal/source/csv"
	htmlsrc "bayesprep/internal/source/htmltable"
	jsonsrc "bayesprep/internal/source/json"
	mssqlsrc "bayesprep/internal/source/mssql"
	pgsrc "bayesprep/internal/source/postgres"
	sqlitesrc "bayesprep/internal/source/sqlite"
	"bayesprep/internal/standata"
)

func main() {
	var (
		input      string
		format     string
		query      string
		model      string
		prefix     string
		dense      bool
		fullInd    string
		priorsPath string
		outPath    string
		ddMetrics  bool
	)

	flag.StringVar(&input, "input", "", "input path (csv/json/html) or DSN (sqlite/postgres/mssql)")
	flag.StringVar(&format, "format", "csv", "input format: csv, json, html, sqlite, postgres, mssql")
	flag.StringVar(&query, "query", "", "row query for database formats")
	flag.StringVar(&model, "model", "", "model formula, e.g. \"y ~ x + (1|region)\"")
	flag.StringVar(&prefix, "prefix", "m", "payload field prefix")
	flag.BoolVar(&dense, "dense", false, "disable row deduplication")
	flag.StringVar(&fullInd, "full-indicators", "", "comma-separated categorical columns expanded without a reference level")
	flag.StringVar(&priorsPath, "priors", "", "JSON file of prior overrides: [{\"variable\":..., \"mean\":..., \"sd\":...}]")
	flag.StringVar(&outPath, "out", "-", "payload output path; - for stdout")
	flag.BoolVar(&ddMetrics, "datadog", false, "submit run metrics to Datadog")
	flag.Parse()

	if model == "" {
		fatalf("-model is required")
	}

	ctx := context.Background()

	rdr, err := newReader(input, format, query)
	if err != nil {
		fatalf("source: %v", err)
	}

	t, err := rdr.ReadTable(ctx)
	if err != nil {
		fatalf("read table: %v", err)
	}

	overrides, err := loadPriors(priorsPath)
	if err != nil {
		fatalf("priors: %v", err)
	}

	var backend metrics.Backend = metrics.Nop{}
	if ddMetrics {
		dd, err := datadog.New(ctx, datadog.Options{JobName: "prepare"})
		if err != nil {
			fatalf("datadog: %v", err)
		}
		defer func() { _ = dd.Close(ctx) }()
		backend = dd
	}

	prep := &pipeline.Preparer{
		Logger:  log.New(os.Stderr, "", log.LstdFlags),
		Metrics: backend,
	}

	res, err := prep.Prepare(t, pipeline.Config{
		Model:          model,
		Prefix:         prefix,
		Dense:          dense,
		FullIndicators: splitList(fullInd),
		Overrides:      overrides,
	})
	if err != nil {
		fatalf("prepare: %v", err)
	}

	out := io.Writer(os.Stdout)
	if outPath != "-" && outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fatalf("open output: %v", err)
		}
		defer f.Close()
		out = f
	}
	if err := standata.WriteJSON(out, res.Data); err != nil {
		fatalf("write payload: %v", err)
	}
}

func newReader(input, format, query string) (source.Reader, error) {
	switch format {
	case "sqlite":
		return sqlitesrc.New(sqlitesrc.Config{DSN: input, Query: query}), nil
	case "postgres":
		return pgsrc.New(pgsrc.Config{DSN: input, Query: query}), nil
	case "mssql":
		return mssqlsrc.New(mssqlsrc.Config{DSN: input, Query: query}), nil
	case "csv", "json", "html":
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		// The process exits right after one read; the fd is released then.
		switch format {
		case "csv":
			return csvsrc.New(f, csvsrc.Options{TrimSpace: true}), nil
		case "json":
			return jsonsrc.New(f), nil
		default:
			return htmlsrc.New(f, htmlsrc.Options{}), nil
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func loadPriors(path string) ([]priors.Prior, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []struct {
		Variable string  `json:"variable"`
		Mean     float64 `json:"mean"`
		SD       float64 `json:"sd"`
	}
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]priors.Prior, len(raw))
	for i, p := range raw {
		out[i] = priors.Prior{Variable: p.Variable, Mean: p.Mean, SD: p.SD}
	}
	return out, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, "prepare: "+format+"\n", v...)
	os.Exit(1)
}
