package schema_test

import (
	"strings"
	"testing"

	"github.com/gnames/gncldf/internal/iotesting"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/schema"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "http://cldf.clld.org/v1.0/terms.rdf#"

func wordlist(t *testing.T) *resolver.Resolved {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	tg := metadata.New(ns + "Wordlist")
	for _, c := range []string{"LanguageTable", "ParameterTable", "FormTable"} {
		_, err = tg.AddComponent(reg, c)
		require.NoError(t, err)
	}
	require.NoError(t, tg.AddTable(&metadata.Table{
		URL: "samples.csv",
		Columns: []*metadata.Column{
			{Name: "ID"},
			{Name: "Language_IDs", Separator: ";"},
			{Name: "Size", Datatype: metadata.Datatype{Base: "integer"}},
		},
		PrimaryKey: []string{"ID"},
	}))
	require.NoError(t, tg.AddForeignKey(
		"samples.csv", []string{"Language_IDs"}, "languages.csv", nil,
	))
	res, err := resolver.Resolve(tg, reg)
	require.NoError(t, err)
	return res
}

func bibliography() sources.Bibliography {
	return sources.NewCollection(
		&sources.Entry{
			Key:     "Meier2005",
			Type:    "book",
			Authors: []string{"Meier, A.", "Smith, B."},
			Fields:  map[string]string{"year": "2005", "title": "Words"},
		},
		&sources.Entry{
			Key:    "123",
			Type:   "misc",
			Fields: map[string]string{"glottolog_ref_id": "123"},
		},
	)
}

func tableNames(s *schema.Schema) []string {
	res := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		res[i] = t.Name
	}
	return res
}

func TestBuild(t *testing.T) {
	s, err := schema.Build(wordlist(t), bibliography())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"LanguageTable", "ParameterTable", "FormTable", "samples.csv",
		"SourceTable", "samples.csv_LanguageTable", "FormTable_SourceTable",
	}, tableNames(s))

	forms, ok := s.ForURL("forms.csv")
	require.True(t, ok)
	assert.Equal(t, schema.DataTable, forms.Kind)
	assert.Equal(t, []string{"cldf_id"}, forms.PrimaryKey)
	var cols []string
	for _, c := range forms.Columns {
		cols = append(cols, c.Name)
	}
	assert.Contains(t, cols, "cldf_languageReference")
	assert.Contains(t, cols, "cldf_form")
	assert.NotContains(t, cols, "cldf_source")
	assert.Contains(t, forms.ForeignKeys, schema.ForeignKey{
		Columns:    []string{"cldf_languageReference"},
		Table:      "LanguageTable",
		RefColumns: []string{"cldf_id"},
	})

	samples, ok := s.Table("samples.csv")
	require.True(t, ok)
	cols = cols[:0]
	for _, c := range samples.Columns {
		cols = append(cols, c.Name)
	}
	assert.Equal(t, []string{"ID", "Size"}, cols)

	assoc, ok := s.Table("samples.csv_LanguageTable")
	require.True(t, ok)
	assert.Equal(t, schema.AssociationTable, assoc.Kind)
	assert.Equal(t, "samples.csv_ID", assoc.Columns[0].Name)
	assert.Equal(t, "LanguageTable_cldf_id", assoc.Columns[1].Name)
	assert.Equal(t, "context", assoc.Columns[2].Name)
	require.Len(t, assoc.Links, 1)
	assert.Equal(t, "Language_IDs", assoc.Links[0].Column)

	src, ok := s.Table("FormTable_SourceTable")
	require.True(t, ok)
	assert.Equal(t, "SourceTable_id", src.Columns[1].Name)
	assert.Len(t, src.ForeignKeys, 1)
	assert.Len(t, s.LinksFrom(forms), 1)

	st, ok := s.Table(schema.SourceTableName)
	require.True(t, ok)
	cols = cols[:0]
	for _, c := range st.Columns {
		cols = append(cols, c.Name)
	}
	assert.Equal(t,
		[]string{"id", "genre", "author", "glottolog_ref_id", "title", "year"},
		cols)
}

func TestBuildNoSources(t *testing.T) {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	tg := metadata.New(ns + "StructureDataset")
	_, err = tg.AddComponent(reg, "LanguageTable")
	require.NoError(t, err)
	res, err := resolver.Resolve(tg, reg)
	require.NoError(t, err)

	s, err := schema.Build(res, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"LanguageTable"}, tableNames(s))
}

func TestBuildNeedsPrimaryKey(t *testing.T) {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	tg := metadata.New(ns + "Generic")
	_, err = tg.AddComponent(reg, "LanguageTable")
	require.NoError(t, err)
	require.NoError(t, tg.AddTable(&metadata.Table{
		URL: "samples.csv",
		Columns: []*metadata.Column{
			{Name: "Name"},
			{Name: "Language_IDs", Separator: " "},
		},
	}))
	require.NoError(t, tg.AddForeignKey(
		"samples.csv", []string{"Language_IDs"}, "languages.csv", nil,
	))
	res, err := resolver.Resolve(tg, reg)
	require.NoError(t, err)

	_, err = schema.Build(res, nil)
	assert.Error(t, err)
}

func TestTableDDL(t *testing.T) {
	s, err := schema.Build(wordlist(t), bibliography())
	require.NoError(t, err)

	tests := []struct {
		name    string
		table   string
		dialect schema.Dialect
		has     []string
	}{
		{
			name:    "sqlite data table",
			table:   "LanguageTable",
			dialect: schema.SQLite,
			has: []string{
				`CREATE TABLE "LanguageTable" (`,
				`"cldf_id" TEXT NOT NULL`,
				`"cldf_latitude" REAL`,
				`PRIMARY KEY ("cldf_id")`,
			},
		},
		{
			name:    "postgres data table",
			table:   "LanguageTable",
			dialect: schema.Postgres,
			has:     []string{`"cldf_latitude" DOUBLE PRECISION`},
		},
		{
			name:    "foreign keys",
			table:   "FormTable",
			dialect: schema.Postgres,
			has: []string{
				`FOREIGN KEY ("cldf_parameterReference") REFERENCES ` +
					`"ParameterTable" ("cldf_id") DEFERRABLE INITIALLY DEFERRED`,
			},
		},
		{
			name:    "integer column",
			table:   "samples.csv",
			dialect: schema.SQLite,
			has:     []string{`"Size" INTEGER`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, ok := s.Table(tt.table)
			require.True(t, ok)
			ddl := tbl.TableDDL(tt.dialect)
			for _, h := range tt.has {
				assert.Contains(t, ddl, h)
			}
		})
	}

	assoc, _ := s.Table("samples.csv_LanguageTable")
	assert.Len(t, assoc.IndexDDL(), 2)
	lang, _ := s.Table("LanguageTable")
	assert.Empty(t, lang.IndexDDL())

	ddl := s.DDL(schema.SQLite)
	assert.Len(t, ddl, len(s.Tables)+4)
}

func TestInsertSQL(t *testing.T) {
	tbl := &schema.Table{
		Name:    "t",
		Columns: []*schema.Column{{Name: "a"}, {Name: "b"}},
	}
	assert.Equal(t,
		`INSERT INTO "t" ("a", "b") VALUES (?, ?), (?, ?)`,
		tbl.InsertSQL(schema.SQLite, 2))
	assert.Equal(t,
		`INSERT INTO "t" ("a", "b") VALUES ($1, $2), ($3, $4)`,
		tbl.InsertSQL(schema.Postgres, 2))
}

func TestValues(t *testing.T) {
	res := wordlist(t)
	s, err := schema.Build(res, bibliography())
	require.NoError(t, err)

	data := iotesting.MemTables{
		"languages.csv": {
			{"ID", "Name", "Macroarea", "Latitude", "Longitude", "Glottocode", "ISO639P3code"},
			{"stan1293", "English", "", "53.5", "-1", "stan1293", "eng"},
			{"stan1295", "German", "", "", "", "stan1295", "deu"},
		},
		"parameters.csv": {
			{"ID", "Name", "Description"},
			{"hand", "hand", ""},
		},
		"samples.csv": {
			{"ID", "Language_IDs", "Size"},
			{"s1", "stan1293;stan1295", "3"},
		},
		"forms.csv": {
			{"ID", "Language_ID", "Parameter_ID", "Form", "Segments", "Comment", "Source"},
			{"f1", "stan1293", "hand", "hand", "h a n d", "", "Meier2005[3-7];123"},
		},
	}
	eng := validate.New(res, data)

	langs, _ := s.ForURL("languages.csv")
	var rows [][]any
	for row, err := range eng.Rows("languages.csv") {
		require.NoError(t, err)
		rows = append(rows, langs.Values(row))
	}
	require.Len(t, rows, 2)
	assert.Equal(t, "stan1293", rows[0][0])
	assert.Equal(t, 53.5, rows[0][3])
	assert.Nil(t, rows[1][3])

	samples, _ := s.ForURL("samples.csv")
	for row, err := range eng.Rows("samples.csv") {
		require.NoError(t, err)
		assert.Equal(t, []any{"s1", int64(3)}, samples.Values(row))
		links := s.LinksFrom(samples)
		require.Len(t, links, 1)
		assert.Equal(t, [][]any{
			{"s1", "stan1293", "Language_IDs"},
			{"s1", "stan1295", "Language_IDs"},
		}, links[0].Rows(row))
	}

	forms, _ := s.ForURL("forms.csv")
	for row, err := range eng.Rows("forms.csv") {
		require.NoError(t, err)
		vals := forms.Values(row)
		assert.Equal(t, "h a n d", vals[4])
		links := s.LinksFrom(forms)
		require.Len(t, links, 1)
		assert.Equal(t, [][]any{
			{"f1", "Meier2005", "3-7"},
			{"f1", "123", nil},
		}, links[0].Rows(row))
	}

	st, _ := s.Table(schema.SourceTableName)
	e, _ := bibliography().Entry("Meier2005")
	vals := st.SourceValues(e)
	assert.Equal(t, "Meier2005", vals[0])
	assert.Equal(t, "book", vals[1])
	assert.Equal(t, "Meier, A. and Smith, B.", vals[2])
	assert.Nil(t, vals[3])
	assert.True(t, strings.HasPrefix(vals[4].(string), "Words"))
}
