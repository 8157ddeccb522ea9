package iocsv

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gnames/gncldf/internal/iofs"
	"github.com/gnames/gncldf/internal/iometa"
	"github.com/gnames/gncldf/internal/iosources"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/sources"
)

// Sink writes a dataset into a directory. It implements dataset.Sink.
type Sink struct {
	dir       string
	zipTables bool
	metaName  string
	written   []string
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// OptZipTables stores tables and the bibliography as zip archives.
func OptZipTables(b bool) SinkOption {
	return func(s *Sink) {
		s.zipTables = b
	}
}

// OptMetadataName sets the file name of the metadata document. By default
// it is named after the module, for example "Wordlist-metadata.json".
func OptMetadataName(name string) SinkOption {
	return func(s *Sink) {
		s.metaName = name
	}
}

// NewSink creates a Sink writing into dir.
func NewSink(dir string, opts ...SinkOption) *Sink {
	res := &Sink{dir: dir}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Written returns paths of files written so far.
func (s *Sink) Written() []string {
	return s.written
}

// WriteTable implements dataset.Sink.
func (s *Sink) WriteTable(
	t *metadata.Table,
	d metadata.Dialect,
	rows iter.Seq2[[]string, error],
) error {
	rel := filepath.FromSlash(t.URL)
	if !filepath.IsLocal(rel) {
		return iofs.WriteFileError(t.URL, fmt.Errorf("table URL is outside of %s", s.dir))
	}
	p := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return iofs.CreateDirError(filepath.Dir(p), err)
	}

	var err error
	if s.zipTables {
		p += ".zip"
		err = s.writeZipped(p, path.Base(t.URL), d, rows)
	} else {
		err = writeFile(p, d, rows)
	}
	if err != nil {
		return iofs.WriteFileError(p, err)
	}
	s.written = append(s.written, p)
	return nil
}

// WriteMetadata implements dataset.Sink.
func (s *Sink) WriteMetadata(doc map[string]any) error {
	name := s.metaName
	if name == "" {
		name = MetadataName(doc)
	}
	p := filepath.Join(s.dir, name)
	if err := iometa.Write(p, doc); err != nil {
		return err
	}
	s.written = append(s.written, p)
	return nil
}

// WriteBibliography implements dataset.Sink.
func (s *Sink) WriteBibliography(fname string, entries []*sources.Entry) error {
	p := filepath.Join(s.dir, filepath.FromSlash(fname))
	if err := iosources.Write(p, entries, s.zipTables); err != nil {
		return err
	}
	if s.zipTables {
		p += ".zip"
	}
	s.written = append(s.written, p)
	return nil
}

// MetadataName returns the default metadata file name of a document,
// "<Module>-metadata.json".
func MetadataName(doc map[string]any) string {
	module := "Generic"
	if uri, ok := doc["dc:conformsTo"].(string); ok {
		if i := strings.LastIndex(uri, "#"); i >= 0 && i < len(uri)-1 {
			module = uri[i+1:]
		}
	}
	return module + "-metadata.json"
}

func writeFile(p string, d metadata.Dialect, rows iter.Seq2[[]string, error]) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err = writeRows(f, d, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Sink) writeZipped(
	p, member string,
	d metadata.Dialect,
	rows iter.Seq2[[]string, error],
) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: member, Method: zip.Deflate})
	if err == nil {
		err = writeRows(w, d, rows)
	}
	if err == nil {
		err = zw.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeRows(w io.Writer, d metadata.Dialect, rows iter.Seq2[[]string, error]) error {
	cw := csv.NewWriter(w)
	if delim, size := utf8.DecodeRuneInString(d.Delimiter); size > 0 {
		cw.Comma = delim
	}
	header := d.Header == nil || *d.Header
	first := true
	for row, err := range rows {
		if err != nil {
			return err
		}
		if first {
			first = false
			if !header {
				continue
			}
		}
		if err = cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
