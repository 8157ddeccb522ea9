// Package iocsv reads and writes dataset tables as CSV files. Tables are
// plain files or zip archives with a single CSV member named after the
// table.
package iocsv

import (
	"archive/zip"
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/validate"
	"golang.org/x/text/encoding/htmlindex"
)

const bom = "\ufeff"

// Opener opens tables of a dataset directory.
type Opener struct {
	dir string
}

// NewOpener creates an Opener for table URLs relative to dir.
func NewOpener(dir string) *Opener {
	return &Opener{dir: dir}
}

// Dir returns the directory of the dataset.
func (o *Opener) Dir() string {
	return o.dir
}

// Path returns the local path of a table file. If only a zipped table
// exists the path of the archive is returned.
func (o *Opener) Path(url string) (string, bool, error) {
	rel := filepath.FromSlash(url)
	if !filepath.IsLocal(rel) {
		return "", false, fmt.Errorf("table URL %q is outside of %s", url, o.dir)
	}
	p := filepath.Join(o.dir, rel)
	if _, err := os.Stat(p); err == nil {
		return p, false, nil
	}
	if _, err := os.Stat(p + ".zip"); err == nil {
		return p + ".zip", true, nil
	}
	return "", false, fmt.Errorf("table file %s does not exist", p)
}

// Open implements validate.Opener.
func (o *Opener) Open(t *metadata.Table, d metadata.Dialect) (validate.RowReader, error) {
	p, zipped, err := o.Path(t.URL)
	if err != nil {
		return nil, err
	}
	if zipped {
		return openZipped(p, path.Base(t.URL), d)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	rr, err := newReader(p, f, []io.Closer{f}, d)
	if err != nil {
		return nil, err
	}
	return rr, nil
}

// TableFiles reads headers of CSV files for a dataset without metadata.
func (o *Opener) TableFiles(names []string) ([]metadata.TableFile, error) {
	res := make([]metadata.TableFile, 0, len(names))
	var dialect metadata.Dialect
	d := dialect.Effective()
	for _, name := range names {
		url := strings.TrimSuffix(name, ".zip")
		rr, err := o.Open(&metadata.Table{URL: url}, d)
		if err != nil {
			return nil, err
		}
		res = append(res, metadata.TableFile{Name: name, Header: rr.Header()})
		rr.Close()
	}
	return res, nil
}

func openZipped(p, member string, d metadata.Dialect) (validate.RowReader, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	var file *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if path.Base(f.Name) == member {
			file = f
			break
		}
		if file == nil {
			file = f
		}
	}
	if file == nil {
		zr.Close()
		return nil, fmt.Errorf("archive %s has no table", p)
	}
	rc, err := file.Open()
	if err != nil {
		zr.Close()
		return nil, err
	}
	rr, err := newReader(p, rc, []io.Closer{rc, zr}, d)
	if err != nil {
		return nil, err
	}
	return rr, nil
}

type reader struct {
	path      string
	closers   []io.Closer
	csv       *csv.Reader
	header    []string
	comment   string
	trim      bool
	skipBlank bool
}

func newReader(
	p string,
	r io.Reader,
	closers []io.Closer,
	d metadata.Dialect,
) (*reader, error) {
	res := &reader{
		path:      p,
		closers:   closers,
		trim:      d.Trim != nil && *d.Trim,
		skipBlank: d.SkipBlankRows != nil && *d.SkipBlankRows,
	}

	if enc := strings.ToLower(d.Encoding); enc != "" && enc != "utf-8" && enc != "utf8" {
		e, err := htmlindex.Get(enc)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("%s: unsupported encoding %q: %w", p, d.Encoding, err)
		}
		r = e.NewDecoder().Reader(r)
	}
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && string(b) == bom {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	delim, size := utf8.DecodeRuneInString(d.Delimiter)
	if size == 0 || size != len(d.Delimiter) {
		res.Close()
		return nil, fmt.Errorf("%s: unsupported delimiter %q", p, d.Delimiter)
	}
	cr.Comma = delim
	if d.QuoteChar != "" && d.QuoteChar != `"` {
		slog.Warn("Only double quotes are supported as quote character",
			"path", p, "quote", d.QuoteChar)
	}
	if utf8.RuneCountInString(d.CommentPrefix) == 1 {
		cr.Comment, _ = utf8.DecodeRuneInString(d.CommentPrefix)
	} else {
		res.comment = d.CommentPrefix
	}
	res.csv = cr

	if d.Header == nil || *d.Header {
		h, err := res.Next()
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			res.Close()
			return nil, err
		default:
			res.header = h
		}
	}
	return res, nil
}

func (r *reader) Header() []string {
	return r.header
}

func (r *reader) Next() ([]string, error) {
	for {
		rec, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.path, err)
		}
		if r.comment != "" && len(rec) > 0 && strings.HasPrefix(rec[0], r.comment) {
			continue
		}
		if r.trim {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		if r.skipBlank && blank(rec) {
			continue
		}
		return rec, nil
	}
}

func (r *reader) Close() error {
	var res error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && res == nil {
			res = err
		}
	}
	return res
}

func blank(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}
