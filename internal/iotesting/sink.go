package iotesting

import (
	"iter"
	"slices"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/sources"
)

// MemSink keeps a written dataset in memory.
type MemSink struct {
	Tables  MemTables
	Doc     map[string]any
	BibFile string
	Entries []*sources.Entry
}

// NewMemSink creates an empty MemSink.
func NewMemSink() *MemSink {
	return &MemSink{Tables: make(MemTables)}
}

// WriteTable implements dataset.Sink.
func (s *MemSink) WriteTable(
	t *metadata.Table,
	_ metadata.Dialect,
	rows iter.Seq2[[]string, error],
) error {
	var res [][]string
	for row, err := range rows {
		if err != nil {
			return err
		}
		res = append(res, slices.Clone(row))
	}
	s.Tables[t.URL] = res
	return nil
}

// WriteMetadata implements dataset.Sink.
func (s *MemSink) WriteMetadata(doc map[string]any) error {
	s.Doc = doc
	return nil
}

// WriteBibliography implements dataset.Sink.
func (s *MemSink) WriteBibliography(fname string, entries []*sources.Entry) error {
	s.BibFile = fname
	s.Entries = entries
	return nil
}
