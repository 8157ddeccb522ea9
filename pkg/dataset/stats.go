package dataset

import (
	"errors"
	"io"

	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/validate"
)

// TableStats describes one table.
type TableStats struct {
	URL       string `json:"url"`
	Component string `json:"component,omitempty"`
	Rows      int    `json:"rows"`
}

// Stats summarizes a dataset.
type Stats struct {
	Module  string           `json:"module"`
	Tables  []TableStats     `json:"tables"`
	Sources int              `json:"sources"`
	Schema  resolver.Summary `json:"schema"`
}

// Stats counts rows of every table and entries of the bibliography. Rows
// are counted without validation.
func (d *Dataset) Stats() (*Stats, error) {
	res, err := d.Resolved()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Module: res.Module.Name,
		Schema: res.Summary(),
	}
	for _, ti := range res.Tables() {
		n, err := d.countRows(ti)
		if err != nil {
			return nil, err
		}
		st.Tables = append(st.Tables, TableStats{
			URL:       ti.URL(),
			Component: ti.ComponentName(),
			Rows:      n,
		})
	}
	bib, err := d.exp.Bibliography()
	if err != nil {
		return nil, err
	}
	st.Sources = bib.Len()
	return st, nil
}

func (d *Dataset) countRows(ti *resolver.TableInfo) (int, error) {
	rr, err := d.rows.Open(ti.Table, d.tg.DialectFor(ti.Table))
	if err != nil {
		return 0, validate.RowReadError(ti.URL(), err)
	}
	defer rr.Close()
	var n int
	for {
		_, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, validate.RowReadError(ti.URL(), err)
		}
		n++
	}
}
