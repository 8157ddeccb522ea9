package iotesting

import (
	"fmt"
	"io"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/validate"
)

// MemTables keeps tables in memory and opens them for the validation
// engine. Keys are table URLs, the first row of a table is its header.
type MemTables map[string][][]string

// Open implements validate.Opener.
func (m MemTables) Open(t *metadata.Table, _ metadata.Dialect) (validate.RowReader, error) {
	rows, ok := m[t.URL]
	if !ok {
		return nil, fmt.Errorf("no table %s", t.URL)
	}
	return &memReader{rows: rows}, nil
}

type memReader struct {
	rows [][]string
	pos  int
}

func (r *memReader) Header() []string {
	if len(r.rows) == 0 {
		return nil
	}
	return r.rows[0]
}

func (r *memReader) Next() ([]string, error) {
	r.pos++
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	return r.rows[r.pos], nil
}

func (r *memReader) Close() error {
	return nil
}
