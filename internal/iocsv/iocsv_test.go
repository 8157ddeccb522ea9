package iocsv_test

import (
	"archive/zip"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gncldf/internal/iocsv"
	"github.com/gnames/gncldf/internal/iometa"
	"github.com/gnames/gncldf/internal/iosources"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func readAll(t *testing.T, rr validate.RowReader) [][]string {
	t.Helper()
	var res [][]string
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		res = append(res, row)
	}
	require.NoError(t, rr.Close())
	return res
}

func rowsOf(rows ...[]string) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for _, v := range rows {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func TestOpen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	var dflt metadata.Dialect

	tests := []struct {
		msg     string
		content string
		dialect metadata.Dialect
		header  []string
		rows    [][]string
	}{
		{
			msg:     "default",
			content: "ID,Form\n1,a\n2,\"b,c\"\n",
			dialect: dflt.Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "a"}, {"2", "b,c"}},
		},
		{
			msg:     "bom",
			content: "\ufeffID,Form\n1,a\n",
			dialect: dflt.Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "a"}},
		},
		{
			msg:     "tabs",
			content: "ID\tForm\n1\ta b\n",
			dialect: (&metadata.Dialect{Delimiter: "\t"}).Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "a b"}},
		},
		{
			msg:     "no header",
			content: "1,a\n2,b\n",
			dialect: (&metadata.Dialect{Header: ptr(false)}).Effective(),
			rows:    [][]string{{"1", "a"}, {"2", "b"}},
		},
		{
			msg:     "comments",
			content: "ID,Form\n# note\n1,a\n",
			dialect: (&metadata.Dialect{CommentPrefix: "#"}).Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "a"}},
		},
		{
			msg:     "long comment prefix",
			content: "ID,Form\n//note\n1,a\n",
			dialect: (&metadata.Dialect{CommentPrefix: "//"}).Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "a"}},
		},
		{
			msg:     "trim and blank rows",
			content: "ID, Form\n1 ,  a\n,\n2,b\n",
			dialect: (&metadata.Dialect{Trim: ptr(true), SkipBlankRows: ptr(true)}).Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "a"}, {"2", "b"}},
		},
		{
			msg:     "ragged rows",
			content: "ID,Form\n1\n2,b,c\n",
			dialect: dflt.Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1"}, {"2", "b", "c"}},
		},
		{
			msg:     "latin1",
			content: "ID,Form\n1,caf\xe9\n",
			dialect: (&metadata.Dialect{Encoding: "latin1"}).Effective(),
			header:  []string{"ID", "Form"},
			rows:    [][]string{{"1", "café"}},
		},
		{
			msg:     "empty",
			content: "",
			dialect: dflt.Effective(),
		},
	}

	dir := t.TempDir()
	op := iocsv.NewOpener(dir)
	assert.Equal(t, dir, op.Dir())
	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			name := filepath.Base(t.Name()) + ".csv"
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(v.content), 0644))
			rr, err := op.Open(&metadata.Table{URL: name}, v.dialect)
			require.NoError(t, err)
			assert.Equal(t, v.header, rr.Header())
			assert.Equal(t, v.rows, readAll(t, rr))
		})
	}
}

func TestOpenErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	var dflt metadata.Dialect
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("ID\n\"1\n"), 0644))
	op := iocsv.NewOpener(dir)

	_, err := op.Open(&metadata.Table{URL: "missing.csv"}, dflt.Effective())
	assert.Error(t, err)

	_, err = op.Open(&metadata.Table{URL: "../a.csv"}, dflt.Effective())
	assert.Error(t, err)

	_, err = op.Open(&metadata.Table{URL: "a.csv"}, (&metadata.Dialect{Delimiter: "||"}).Effective())
	assert.Error(t, err)

	_, err = op.Open(&metadata.Table{URL: "a.csv"}, (&metadata.Dialect{Encoding: "klingon"}).Effective())
	assert.Error(t, err)

	rr, err := op.Open(&metadata.Table{URL: "a.csv"}, dflt.Effective())
	require.NoError(t, err)
	_, err = rr.Next()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	rr.Close()
}

func TestOpenZipped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	var dflt metadata.Dialect
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "forms.csv.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("forms.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte("ID,Form\n1,a\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	op := iocsv.NewOpener(dir)
	p, zipped, err := op.Path("forms.csv")
	require.NoError(t, err)
	assert.True(t, zipped)
	assert.Equal(t, filepath.Join(dir, "forms.csv.zip"), p)

	rr, err := op.Open(&metadata.Table{URL: "forms.csv"}, dflt.Effective())
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Form"}, rr.Header())
	assert.Equal(t, [][]string{{"1", "a"}}, readAll(t, rr))

	files, err := op.TableFiles([]string{"forms.csv.zip"})
	require.NoError(t, err)
	assert.Equal(t, []metadata.TableFile{
		{Name: "forms.csv.zip", Header: []string{"ID", "Form"}},
	}, files)
}

func TestSink(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	var dflt metadata.Dialect
	tbl := &metadata.Table{URL: "forms.csv"}
	entries := []*sources.Entry{{Key: "Meier2005", Type: "book", Fields: map[string]string{"year": "2005"}}}
	doc := map[string]any{
		"dc:conformsTo": "http://cldf.clld.org/v1.0/terms.rdf#Wordlist",
		"tables":        []any{map[string]any{"url": "forms.csv"}},
	}

	for _, zipped := range []bool{false, true} {
		dir := t.TempDir()
		sink := iocsv.NewSink(dir, iocsv.OptZipTables(zipped))
		err := sink.WriteTable(tbl, dflt.Effective(), rowsOf(
			[]string{"ID", "Form"}, []string{"1", "a,b"},
		))
		require.NoError(t, err)
		require.NoError(t, sink.WriteBibliography("sources.bib", entries))
		require.NoError(t, sink.WriteMetadata(doc))
		assert.Len(t, sink.Written(), 3)

		rr, err := iocsv.NewOpener(dir).Open(tbl, dflt.Effective())
		require.NoError(t, err)
		assert.Equal(t, []string{"ID", "Form"}, rr.Header())
		assert.Equal(t, [][]string{{"1", "a,b"}}, readAll(t, rr))

		bib, err := iosources.Load(filepath.Join(dir, "sources.bib"))
		require.NoError(t, err)
		assert.True(t, bib.Has("Meier2005"))

		got, err := iometa.Read(filepath.Join(dir, "Wordlist-metadata.json"))
		require.NoError(t, err)
		assert.Equal(t, doc["dc:conformsTo"], got["dc:conformsTo"])

		if zipped {
			assert.NoFileExists(t, filepath.Join(dir, "forms.csv"))
			assert.FileExists(t, filepath.Join(dir, "forms.csv.zip"))
		}
	}
}

func TestSinkNoHeader(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	d := (&metadata.Dialect{Delimiter: "\t", Header: ptr(false)}).Effective()
	dir := t.TempDir()
	sink := iocsv.NewSink(dir, iocsv.OptMetadataName("cldf-metadata.json"))
	tbl := &metadata.Table{URL: "sub/values.tsv"}
	err := sink.WriteTable(tbl, d, rowsOf([]string{"ID", "Value"}, []string{"1", "x"}))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "sub", "values.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "1\tx\n", string(data))

	require.NoError(t, sink.WriteMetadata(map[string]any{"tables": []any{}}))
	assert.FileExists(t, filepath.Join(dir, "cldf-metadata.json"))

	err = sink.WriteTable(&metadata.Table{URL: "../x.csv"}, d, rowsOf())
	assert.Equal(t, errcode.WriteFileError, errcode.Code(err))
}

func TestMetadataName(t *testing.T) {
	tests := []struct {
		doc  map[string]any
		name string
	}{
		{map[string]any{"dc:conformsTo": "http://cldf.clld.org/v1.0/terms.rdf#StructureDataset"}, "StructureDataset-metadata.json"},
		{map[string]any{"dc:conformsTo": "http://example.org/x#"}, "Generic-metadata.json"},
		{map[string]any{}, "Generic-metadata.json"},
	}
	for _, v := range tests {
		assert.Equal(t, v.name, iocsv.MetadataName(v.doc))
	}
}
