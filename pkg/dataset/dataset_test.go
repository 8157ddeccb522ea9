package dataset_test

import (
	"testing"

	"github.com/gnames/gncldf/internal/iotesting"
	"github.com/gnames/gncldf/pkg/dataset"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "http://cldf.clld.org/v1.0/terms.rdf#"

func registry(t *testing.T) *terms.Registry {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	return reg
}

func TestAddComponentWrite(t *testing.T) {
	reg := registry(t)
	d := dataset.New(reg, metadata.New(""), nil)
	_, err := d.AddComponent("ParameterTable")
	require.NoError(t, err)

	sink := iotesting.NewMemSink()
	err = d.Write(sink, map[string][]dataset.Record{
		"ParameterTable": {{"ID": "1", "Name": "X"}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ID", "Name", "Description"},
		{"1", "X", ""},
	}, sink.Tables["parameters.csv"])
	assert.Empty(t, sink.Entries)

	d2, err := dataset.FromDocument(reg, sink.Doc, sink.Tables)
	require.NoError(t, err)
	res, err := d2.Resolved()
	require.NoError(t, err)
	ti, ok := res.ComponentTable("ParameterTable")
	require.True(t, ok)
	p, ok := ti.Property("ID")
	require.True(t, ok)
	assert.Equal(t, "id", p.Name)

	o, err := d2.GetObject("ParameterTable", "1")
	require.NoError(t, err)
	assert.Equal(t, "X", o.Name())

	rep, err := d2.Validate()
	require.NoError(t, err)
	assert.False(t, rep.HasErrors())
}

func TestWriteValues(t *testing.T) {
	reg := registry(t)
	d, err := dataset.NewModule(reg, "Wordlist", dataset.OptBibliography(
		func() (sources.Bibliography, error) {
			return sources.NewCollection(&sources.Entry{Key: "Meier2005"}), nil
		},
	))
	require.NoError(t, err)
	_, err = d.AddComponent("LanguageTable")
	require.NoError(t, err)

	sink := iotesting.NewMemSink()
	err = d.Write(sink, map[string][]dataset.Record{
		"languages.csv": {{"ID": "l1", "Latitude": 10.5, "longitude": nil}},
		"FormTable": {{
			"ID":          "f1",
			"Language_ID": "l1",
			"Form":        "ab",
			"segments":    []string{"a", "b"},
			ns + "source": []any{"Meier2005[1]", "Smith1999"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "", "", "10.5", "", "", ""}, sink.Tables["languages.csv"][1])
	assert.Equal(t,
		[]string{"f1", "l1", "", "ab", "a b", "", "Meier2005[1];Smith1999"},
		sink.Tables["forms.csv"][1],
	)
	assert.Equal(t, dataset.DefaultBibFile, sink.BibFile)
	require.Len(t, sink.Entries, 1)
	assert.Equal(t, dataset.DefaultBibFile, sink.Doc[metadata.KeySource])

	err = d.Write(sink, map[string][]dataset.Record{
		"FormTable": {{"Form": []string{"a", "b"}}},
	})
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	err = d.Write(sink, map[string][]dataset.Record{
		"FormTable": {{"Nope": "a"}},
	})
	assert.Equal(t, errcode.LookupError, errcode.Code(err))

	err = d.Write(sink, map[string][]dataset.Record{"ValueTable": nil})
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
}

func TestWriteCopiesRows(t *testing.T) {
	reg := registry(t)
	tg := metadata.New(ns + "Generic")
	_, err := tg.AddComponent(reg, "ParameterTable")
	require.NoError(t, err)
	data := iotesting.MemTables{"parameters.csv": {
		{"ID", "Name", "Description"},
		{"p1", "hand", ""},
	}}
	d := dataset.New(reg, tg, data)

	sink := iotesting.NewMemSink()
	require.NoError(t, d.Write(sink, nil))
	assert.Equal(t, data["parameters.csv"], sink.Tables["parameters.csv"])
}

func TestAddressing(t *testing.T) {
	reg := registry(t)
	d, err := dataset.NewModule(reg, "Generic")
	require.NoError(t, err)
	_, err = d.AddComponent("LanguageTable")
	require.NoError(t, err)

	_, err = d.Column("ValueTable", "Language_ID")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
	assert.Nil(t, d.GetColumn("ValueTable", "Language_ID"))
	assert.False(t, d.Contains("ValueTable"))
	assert.Nil(t, d.GetTable("ValueTable"))

	tests := []struct {
		msg    string
		table  string
		column string
	}{
		{"names", "LanguageTable", "Glottocode"},
		{"url and property", "languages.csv", "glottocode"},
		{"uris", ns + "LanguageTable", ns + "glottocode"},
	}
	for _, v := range tests {
		c, err := d.Column(v.table, v.column)
		require.NoError(t, err, v.msg)
		assert.Equal(t, "Glottocode", c.Name, v.msg)
		assert.True(t, d.Contains(v.table, v.column), v.msg)
	}

	require.NoError(t, d.Delete("LanguageTable", "glottocode"))
	assert.False(t, d.Contains("LanguageTable", "Glottocode"))
	err = d.Delete("LanguageTable", "ID")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	require.NoError(t, d.Delete("LanguageTable"))
	assert.False(t, d.Contains("LanguageTable"))
	err = d.Delete("LanguageTable")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
}

func TestMutations(t *testing.T) {
	reg := registry(t)
	d, err := dataset.NewModule(reg, "Generic")
	require.NoError(t, err)
	_, err = d.AddComponent("ParameterTable")
	require.NoError(t, err)
	require.NoError(t, d.AddTable(&metadata.Table{
		URL:     "concepts.csv",
		Columns: []*metadata.Column{{Name: "ID"}, {Name: "Concept_ID"}},
	}))
	require.NoError(t, d.AddForeignKey(
		"concepts.csv", []string{"Concept_ID"}, "ParameterTable", nil,
	))

	res, err := d.Resolved()
	require.NoError(t, err)
	fk, ok := res.ForeignKeyReference("concepts.csv", "Concept_ID")
	require.True(t, ok)
	assert.Equal(t, "parameters.csv", fk.Target.URL)

	require.NoError(t, d.RenameColumn("concepts.csv", "Concept_ID", "Parameter_ID"))
	res, err = d.Resolved()
	require.NoError(t, err)
	_, ok = res.ForeignKeyReference("concepts.csv", "Concept_ID")
	assert.False(t, ok)
	_, ok = res.ForeignKeyReference("concepts.csv", "Parameter_ID")
	assert.True(t, ok)

	require.NoError(t, d.AddColumns("concepts.csv", &metadata.Column{Name: "Gloss"}))
	assert.True(t, d.Contains("concepts.csv", "Gloss"))
	require.NoError(t, d.RemoveColumns("concepts.csv", "Gloss"))
	assert.False(t, d.Contains("concepts.csv", "Gloss"))

	err = d.RemoveColumns("ParameterTable", "ID")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	_, err = d.AddComponent("ParameterTable")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))
}

func TestModules(t *testing.T) {
	reg := registry(t)

	tests := []struct {
		msg        string
		module     string
		components []string
	}{
		{"generic", "Generic", nil},
		{"wordlist", "Wordlist", []string{"FormTable"}},
		{"dictionary", "Dictionary", []string{"EntryTable", "SenseTable"}},
		{"structure", "StructureDataset", []string{"ValueTable"}},
	}
	for _, v := range tests {
		d, err := dataset.NewModule(reg, v.module)
		require.NoError(t, err, v.msg)
		m, err := d.Module()
		require.NoError(t, err, v.msg)
		assert.Equal(t, v.module, m.Name, v.msg)
		for _, c := range v.components {
			assert.True(t, d.Contains(c), v.msg)
		}
		rep, err := d.Validate()
		require.NoError(t, err, v.msg)
		assert.False(t, rep.HasErrors(), v.msg)
	}

	d, err := dataset.NewModule(reg, "Dictionary")
	require.NoError(t, err)
	res, err := d.Resolved()
	require.NoError(t, err)
	fk, ok := res.ForeignKeyReference("senses.csv", "Entry_ID")
	require.True(t, ok)
	assert.Equal(t, "entries.csv", fk.Target.URL)

	_, err = dataset.NewModule(reg, "Atlas")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
}

func TestValidate(t *testing.T) {
	reg := registry(t)
	files := []metadata.TableFile{
		{Name: "languages.csv", Header: []string{"ID", "Name"}},
		{Name: "values.csv.zip", Header: []string{"ID", "Language_ID", "Parameter_ID", "Value"}},
	}
	data := iotesting.MemTables{
		"languages.csv": {{"ID", "Name"}, {"l1", "A"}},
		"values.csv": {
			{"ID", "Language_ID", "Parameter_ID", "Value"},
			{"v1", "l1", "p1", "1"},
			{"v2", "zzz", "p1", "2"},
		},
	}
	d, err := dataset.FromListing(reg, files, "", data)
	require.NoError(t, err)
	m, err := d.Module()
	require.NoError(t, err)
	assert.Equal(t, "StructureDataset", m.Name)

	rep, err := d.Validate()
	require.NoError(t, err)
	errs := rep.Filter(func(d validate.Diagnostic) bool {
		return d.Severity == validate.Error
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "ValueTable", errs[0].Component)
	assert.Equal(t, 2, errs[0].Row)
	assert.Equal(t, "Language_ID", errs[0].Column)

	_, err = d.Validate(validate.OptStrict(true))
	assert.Equal(t, errcode.RowValidationError, errcode.Code(err))

	var n int
	for row, err := range d.Rows("ValueTable") {
		require.NoError(t, err)
		assert.Equal(t, "values.csv", row.Table)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestStats(t *testing.T) {
	reg := registry(t)
	files := []metadata.TableFile{
		{Name: "languages.csv", Header: []string{"ID", "Name"}},
		{Name: "extra.csv", Header: []string{"Key"}},
	}
	data := iotesting.MemTables{
		"languages.csv": {{"ID", "Name"}, {"l1", "A"}, {"l2", "B"}},
		"extra.csv":     {{"Key"}},
	}
	d, err := dataset.FromListing(reg, files, "sources.bib", data,
		dataset.OptBibliography(func() (sources.Bibliography, error) {
			return sources.NewCollection(
				&sources.Entry{Key: "a"}, &sources.Entry{Key: "b"},
			), nil
		}),
	)
	require.NoError(t, err)

	st, err := d.Stats()
	require.NoError(t, err)
	assert.Equal(t, "Generic", st.Module)
	assert.Equal(t, 2, st.Sources)
	assert.Equal(t, []dataset.TableStats{
		{URL: "languages.csv", Component: "LanguageTable", Rows: 2},
		{URL: "extra.csv", Rows: 0},
	}, st.Tables)
	assert.Len(t, st.Schema.Tables, 2)
}

func TestIdentifier(t *testing.T) {
	reg := registry(t)
	tg := metadata.New("")
	tg.Extra[metadata.KeyTitle] = "WALS"
	d1 := dataset.New(reg, tg, nil)
	d2 := dataset.New(reg, tg.Clone(), nil)
	assert.Equal(t, d1.Identifier(), d2.Identifier())
	assert.NotEqual(t, uuid.Nil.String(), d1.Identifier())

	d3 := dataset.New(reg, metadata.New(""), nil, dataset.OptLocation("/data/wals"))
	assert.NotEqual(t, d1.Identifier(), d3.Identifier())
	assert.Equal(t, "/data/wals", d3.Location())

	d4 := dataset.New(reg, metadata.New(""), nil)
	assert.Equal(t, uuid.Nil.String(), d4.Identifier())
}

// countingTables counts how often every table is opened.
type countingTables struct {
	iotesting.MemTables
	opened map[string]int
}

func (c *countingTables) Open(t *metadata.Table, d metadata.Dialect) (validate.RowReader, error) {
	c.opened[t.URL]++
	return c.MemTables.Open(t, d)
}

func TestKeyIndexesKept(t *testing.T) {
	reg := registry(t)
	files := []metadata.TableFile{
		{Name: "languages.csv", Header: []string{"ID", "Name"}},
		{Name: "parameters.csv", Header: []string{"ID", "Name"}},
		{Name: "values.csv", Header: []string{"ID", "Language_ID", "Parameter_ID", "Value"}},
	}
	data := &countingTables{
		MemTables: iotesting.MemTables{
			"languages.csv":  {{"ID", "Name"}, {"l1", "A"}, {"l2", "B"}},
			"parameters.csv": {{"ID", "Name"}, {"p1", "P"}},
			"values.csv": {
				{"ID", "Language_ID", "Parameter_ID", "Value"},
				{"v1", "l1", "p1", "1"},
				{"v2", "l2", "p1", "2"},
			},
		},
		opened: make(map[string]int),
	}
	d, err := dataset.FromListing(reg, files, "", data)
	require.NoError(t, err)

	rep, err := d.Validate()
	require.NoError(t, err)
	assert.False(t, rep.HasErrors(), rep.Diagnostics)
	assert.Equal(t, map[string]int{
		"languages.csv": 1, "parameters.csv": 1, "values.csv": 1,
	}, data.opened)

	for range 2 {
		for _, err := range d.Rows("ValueTable") {
			require.NoError(t, err)
		}
	}
	s, err := d.Objects()
	require.NoError(t, err)
	vals, err := s.All("ValueTable")
	require.NoError(t, err)
	assert.Len(t, vals, 2)
	assert.Equal(t, map[string]int{
		"languages.csv": 1, "parameters.csv": 1, "values.csv": 4,
	}, data.opened)

	d.InvalidateRows("LanguageTable")
	for _, err := range d.Rows("ValueTable") {
		require.NoError(t, err)
	}
	assert.Equal(t, 2, data.opened["languages.csv"])
	assert.Equal(t, 1, data.opened["parameters.csv"])

	d.Invalidate()
	for _, err := range d.Rows("ValueTable") {
		require.NoError(t, err)
	}
	assert.Equal(t, 3, data.opened["languages.csv"])
	assert.Equal(t, 2, data.opened["parameters.csv"])
}
