package dataset

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
)

// DefaultBibFile is the bibliography file name used when a dataset with
// sources has none declared.
const DefaultBibFile = "sources.bib"

// Sink stores a dataset.
type Sink interface {
	// WriteTable stores a table. The first row is the header.
	WriteTable(t *metadata.Table, d metadata.Dialect, rows iter.Seq2[[]string, error]) error
	// WriteMetadata stores the metadata document.
	WriteMetadata(doc map[string]any) error
	// WriteBibliography stores bibliography entries under a file name.
	WriteBibliography(fname string, entries []*sources.Entry) error
}

// Record is a row to write. Keys are column names, property names or
// property URIs. Values are strings, numbers, booleans, nil for null, or
// slices for multi-valued columns.
type Record map[string]any

// Write stores the dataset. Tables with records in data are written from
// the records, other tables are copied from the current rows. Keys of data
// are component names or table URLs.
func (d *Dataset) Write(sink Sink, data map[string][]Record) error {
	res, err := d.Resolved()
	if err != nil {
		return err
	}
	byURL := make(map[string][]Record, len(data))
	for k, recs := range data {
		ti, err := res.Table(k)
		if err != nil {
			return err
		}
		byURL[ti.URL()] = recs
	}

	for _, ti := range res.Tables() {
		t := ti.Table
		var rows iter.Seq2[[]string, error]
		if recs, ok := byURL[t.URL]; ok {
			rows = recordRows(ti, recs)
		} else {
			rows = d.copyRows(t)
		}
		if err = sink.WriteTable(t, d.tg.DialectFor(t), rows); err != nil {
			return err
		}
	}

	entries, err := d.entries()
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		if d.tg.Source() == "" {
			d.tg.SetSource(DefaultBibFile)
		}
		if err = sink.WriteBibliography(d.tg.Source(), entries); err != nil {
			return err
		}
	}
	return sink.WriteMetadata(d.tg.Document())
}

func (d *Dataset) entries() ([]*sources.Entry, error) {
	bib, err := d.exp.Bibliography()
	if err != nil {
		return nil, err
	}
	keys := sources.Sorted(bib)
	res := make([]*sources.Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := bib.Entry(k); ok {
			res = append(res, e)
		}
	}
	return res, nil
}

func (d *Dataset) copyRows(t *metadata.Table) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		if !yield(t.ColumnNames(), nil) {
			return
		}
		rr, err := d.rows.Open(t, d.tg.DialectFor(t))
		if err != nil {
			yield(nil, err)
			return
		}
		defer rr.Close()
		for {
			cells, err := rr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(cells, err) || err != nil {
				return
			}
		}
	}
}

func recordRows(ti *resolver.TableInfo, recs []Record) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		t := ti.Table
		if !yield(t.ColumnNames(), nil) {
			return
		}
		for _, rec := range recs {
			row := make([]string, len(t.Columns))
			for i, c := range t.Columns {
				row[i] = nullCell(c)
			}
			for k, v := range rec {
				c, ok := ti.GetColumn(k)
				if !ok {
					yield(nil, metadata.LookupError(t.URL+":"+k))
					return
				}
				cell, err := formatCell(c, v)
				if err != nil {
					yield(nil, err)
					return
				}
				row[t.ColumnIndex(c.Name)] = cell
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

func nullCell(c *metadata.Column) string {
	if len(c.Null) > 0 {
		return c.Null[0]
	}
	return ""
}

// formatCell renders a value as the text of a cell.
func formatCell(c *metadata.Column, v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return nullCell(c), nil
	case []string:
		items := make([]any, len(val))
		for i := range val {
			items[i] = val[i]
		}
		return formatList(c, items)
	case []any:
		return formatList(c, val)
	}
	return formatScalar(c, v), nil
}

func formatList(c *metadata.Column, items []any) (string, error) {
	if !c.IsMultiValued() {
		return "", metadata.SchemaError(
			"Column <em>%s</em> has no separator for a list", c.Name,
		)
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatScalar(c, item)
	}
	return strings.Join(parts, c.Separator), nil
}

func formatScalar(c *metadata.Column, v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		t, f := "true", "false"
		if tok, fok, ok := strings.Cut(c.Datatype.Format, "|"); ok &&
			c.Datatype.BaseOrDefault() == "boolean" {
			t, f = tok, fok
		}
		if val {
			return t
		}
		return f
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
