// Package iosources reads and writes BibTeX bibliographies of datasets.
package iosources

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gnames/gncldf/pkg/sources"
	"github.com/nickng/bibtex"
)

// Loader returns a loader of the bibliography at path, for use with
// dataset.OptBibliography.
func Loader(path string) sources.Loader {
	return func() (sources.Bibliography, error) {
		res, err := Load(path)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

// Load reads a BibTeX file. A zipped file "<path>.zip" is read when the
// plain file is absent. A missing bibliography is empty.
func Load(path string) (*sources.Collection, error) {
	data, err := read(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Bibliography file does not exist", "path", path)
		return sources.NewCollection(), nil
	}
	if err != nil {
		return nil, BibliographyReadError(path, err)
	}
	res, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, BibliographyReadError(path, err)
	}
	return res, nil
}

// Parse reads BibTeX entries. Field names are lower-cased, the author
// field is split into the list of authors.
func Parse(r io.Reader) (*sources.Collection, error) {
	bib, err := bibtex.Parse(r)
	if err != nil {
		return nil, err
	}
	res := sources.NewCollection()
	for _, be := range bib.Entries {
		e := &sources.Entry{
			Key:    be.CiteName,
			Type:   strings.ToLower(be.Type),
			Fields: make(map[string]string, len(be.Fields)),
		}
		for k, v := range be.Fields {
			k = strings.ToLower(k)
			if k == "author" {
				e.Authors = splitAuthors(v.String())
				continue
			}
			e.Fields[k] = v.String()
		}
		if !res.Add(e) {
			slog.Warn("Duplicate bibliography key", "key", e.Key)
		}
	}
	return res, nil
}

// Write stores entries as a BibTeX file. With zipped the file is stored
// as the single member of "<path>.zip".
func Write(path string, entries []*sources.Entry, zipped bool) error {
	data := Format(entries)
	var err error
	if zipped {
		err = writeZip(path+".zip", path, data)
	} else {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		return BibliographyWriteError(path, err)
	}
	return nil
}

// Format renders entries as BibTeX.
func Format(entries []*sources.Entry) []byte {
	bib := bibtex.NewBibTex()
	for _, e := range entries {
		typ := e.Type
		if typ == "" {
			typ = "misc"
		}
		be := bibtex.NewBibEntry(typ, e.Key)
		if len(e.Authors) > 0 {
			be.AddField("author", bibtex.NewBibConst(strings.Join(e.Authors, " and ")))
		}
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			be.AddField(k, bibtex.NewBibConst(e.Fields[k]))
		}
		bib.AddEntry(be)
	}
	return []byte(bib.PrettyString())
}

func splitAuthors(s string) []string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, " and ")
	res := make([]string, 0, len(parts))
	for _, v := range parts {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}

func read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return data, err
	}
	zr, zerr := zip.OpenReader(path + ".zip")
	if errors.Is(zerr, os.ErrNotExist) {
		return nil, err
	}
	if zerr != nil {
		return nil, zerr
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("archive %s.zip is empty", path)
}

func writeZip(archive, path string, data []byte) error {
	f, err := os.Create(archive)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.Base(path),
		Method: zip.Deflate,
	})
	if err == nil {
		_, err = w.Write(data)
	}
	if err == nil {
		err = zw.Close()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
