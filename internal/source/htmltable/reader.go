// Package htmltable extracts an observation table from an HTML document.
package htmltable

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bayesprep/internal/source"
	"bayesprep/internal/table"
)

// Options control extraction.
type Options struct {
	// Selector picks the table element; the first "table" when empty.
	Selector string

	// KeepText disables numeric coercion of all-numeric columns.
	KeepText bool
}

// Reader implements source.Reader over an HTML document.
type Reader struct {
	src io.Reader
	opt Options
}

// New returns an HTML table reader over src.
func New(src io.Reader, opt Options) *Reader {
	return &Reader{src: src, opt: opt}
}

// ReadTable parses the document and converts the selected <table> into an
// observation table. Header cells come from thead (or the first row when
// it holds <th> cells); short body rows are padded with nil.
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(r.src)
	if err != nil {
		return nil, fmt.Errorf("htmltable: parse document: %w", err)
	}

	selector := r.opt.Selector
	if selector == "" {
		selector = "table"
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("htmltable: no element matches %q", selector)
	}

	headers, bodyRows := splitHeaderAndBody(sel)
	if len(headers) == 0 {
		return nil, fmt.Errorf("htmltable: table under %q has no header row", selector)
	}

	t := table.New(headers...)
	for _, cells := range bodyRows {
		values := make([]any, len(headers))
		for i := range values {
			if i < len(cells) {
				values[i] = cells[i]
			}
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, err
		}
	}

	if !r.opt.KeepText {
		source.CoerceNumericColumns(t)
	}
	return t, nil
}

func splitHeaderAndBody(tbl *goquery.Selection) (headers []string, body [][]string) {
	rows := tbl.Find("tr")
	rows.Each(func(i int, tr *goquery.Selection) {
		if headers == nil {
			ths := tr.Find("th")
			if ths.Length() > 0 {
				headers = cellTexts(ths)
				return
			}
			// Headerless table: synthesize names from the first data row.
			tds := tr.Find("td")
			headers = make([]string, tds.Length())
			for j := range headers {
				headers[j] = "col" + strconv.Itoa(j+1)
			}
		}
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		body = append(body, cellTexts(tds))
	})
	return headers, body
}

func cellTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(i int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
