package metadata_test

import (
	"testing"

	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "http://cldf.clld.org/v1.0/terms.rdf#"

func registry(t *testing.T) *terms.Registry {
	reg, err := terms.Load(terms.DefaultVersion)
	require.NoError(t, err)
	return reg
}

func structureDoc() map[string]any {
	return map[string]any{
		"@context":      "http://www.w3.org/ns/csvw",
		"dc:conformsTo": ns + "StructureDataset",
		"dc:title":      "Test",
		"dc:source":     "sources.bib",
		"dialect":       map[string]any{"delimiter": ",", "header": true},
		"tables": []any{
			map[string]any{
				"url":           "languages.csv",
				"dc:conformsTo": ns + "LanguageTable",
				"tableSchema": map[string]any{
					"columns": []any{
						map[string]any{"name": "ID", "propertyUrl": ns + "id"},
						map[string]any{"name": "Name", "propertyUrl": ns + "name"},
						map[string]any{
							"name":        "Latitude",
							"propertyUrl": ns + "latitude",
							"datatype": map[string]any{
								"base": "decimal", "minimum": -90.0, "maximum": 90.0,
							},
						},
					},
					"primaryKey": "ID",
				},
			},
			map[string]any{
				"url":           "values.csv",
				"dc:conformsTo": ns + "ValueTable",
				"tableSchema": map[string]any{
					"columns": []any{
						map[string]any{"name": "ID"},
						map[string]any{
							"name":        "Language_ID",
							"propertyUrl": ns + "languageReference",
							"required":    true,
						},
						map[string]any{"name": "Value", "null": []any{"?", ""}},
						map[string]any{
							"name":        "Source",
							"propertyUrl": ns + "source",
							"separator":   ";",
						},
					},
					"primaryKey": []any{"ID"},
					"foreignKeys": []any{
						map[string]any{
							"columnReference": "Language_ID",
							"reference": map[string]any{
								"resource":        "languages.csv",
								"columnReference": "ID",
							},
						},
					},
				},
			},
		},
	}
}

func TestFromDocument(t *testing.T) {
	tg, err := metadata.FromDocument(structureDoc())
	require.NoError(t, err)

	assert.Equal(t, ns+"StructureDataset", tg.ConformsTo)
	assert.Equal(t, "sources.bib", tg.Source())
	assert.Equal(t, "Test", tg.Title())
	require.Len(t, tg.Tables, 2)

	lt := tg.Table("languages.csv")
	require.NotNil(t, lt)
	assert.Equal(t, []string{"ID"}, lt.PrimaryKey)
	lat := lt.Column("Latitude")
	require.NotNil(t, lat)
	assert.Equal(t, "decimal", lat.Datatype.Base)
	assert.Equal(t, 90.0, *lat.Datatype.Maximum)

	vt := tg.Table("values.csv")
	require.NotNil(t, vt)
	require.Len(t, vt.ForeignKeys, 1)
	fk := vt.ForeignKeys[0]
	assert.Equal(t, []string{"Language_ID"}, fk.ColumnReference)
	assert.Equal(t, "languages.csv", fk.Resource)
	assert.Equal(t, []string{"ID"}, fk.ReferenceColumns)
	assert.True(t, vt.Column("Language_ID").Required)
	assert.True(t, vt.Column("Source").IsMultiValued())
	assert.True(t, vt.Column("Value").IsNull("?"))
	assert.Nil(t, vt.Column("Name"))

	d := tg.DialectFor(vt)
	assert.Equal(t, ",", d.Delimiter)
	assert.Equal(t, "utf-8", d.Encoding)
	assert.True(t, *d.Header)
}

func TestDocumentRoundTrip(t *testing.T) {
	tg, err := metadata.FromDocument(structureDoc())
	require.NoError(t, err)

	tg2, err := metadata.FromDocument(tg.Document())
	require.NoError(t, err)
	assert.Equal(t, tg, tg2)
}

func TestFromDocumentErrors(t *testing.T) {
	tests := []struct {
		msg    string
		modify func(map[string]any)
		code   any
	}{
		{
			msg:    "tables not a list",
			modify: func(d map[string]any) { d["tables"] = "x" },
			code:   errcode.MetadataShapeError,
		},
		{
			msg: "table without url",
			modify: func(d map[string]any) {
				d["tables"] = []any{map[string]any{"tableSchema": map[string]any{}}}
			},
			code: errcode.MetadataShapeError,
		},
		{
			msg: "dangling foreign key",
			modify: func(d map[string]any) {
				d["tables"] = d["tables"].([]any)[1:]
			},
			code: errcode.SchemaError,
		},
		{
			msg: "missing primary key column",
			modify: func(d map[string]any) {
				tbl := d["tables"].([]any)[0].(map[string]any)
				tbl["tableSchema"].(map[string]any)["primaryKey"] = "Code"
			},
			code: errcode.SchemaError,
		},
		{
			msg: "duplicate table",
			modify: func(d map[string]any) {
				tables := d["tables"].([]any)
				d["tables"] = append(tables, tables[0])
			},
			code: errcode.SchemaError,
		},
	}

	for _, v := range tests {
		doc := structureDoc()
		v.modify(doc)
		_, err := metadata.FromDocument(doc)
		require.Error(t, err, v.msg)
		assert.Equal(t, v.code, errcode.Code(err), v.msg)
	}
}

func TestAddComponent(t *testing.T) {
	reg := registry(t)
	tg := metadata.New(ns + "StructureDataset")

	vt, err := tg.AddComponent(reg, "ValueTable")
	require.NoError(t, err)
	assert.Equal(t, "values.csv", vt.URL)
	assert.Equal(t, []string{"ID"}, vt.PrimaryKey)
	assert.Empty(t, vt.ForeignKeys)

	lt, err := tg.AddComponent(reg, "LanguageTable",
		metadata.WithDescription("Languages"),
		metadata.WithColumns(&metadata.Column{Name: "Family"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "Languages", lt.Description)
	assert.NotNil(t, lt.Column("Family"))
	require.Len(t, vt.ForeignKeys, 1)
	assert.Equal(t, "languages.csv", vt.ForeignKeys[0].Resource)

	_, err = tg.AddComponent(reg, ns+"ValueTable")
	require.Error(t, err)
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	_, err = tg.AddComponent(reg, "BogusTable")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	assert.Same(t, lt, tg.ComponentTable(reg, "LanguageTable"))
	assert.Nil(t, tg.ComponentTable(reg, "FormTable"))
}

func TestRenameColumn(t *testing.T) {
	reg := registry(t)
	tg := metadata.New("")
	pt, err := tg.AddComponent(reg, "ParameterTable")
	require.NoError(t, err)

	ft := &metadata.Table{
		URL: "forms.csv",
		Columns: []*metadata.Column{
			{Name: "ID"},
			{Name: "Concept_ID"},
		},
		PrimaryKey: []string{"ID"},
	}
	require.NoError(t, tg.AddTable(ft))
	require.NoError(t, tg.AddForeignKey("forms.csv", []string{"Concept_ID"}, pt.URL, nil))

	require.NoError(t, tg.RenameColumn("forms.csv", "Concept_ID", "Parameter_ID"))
	assert.Nil(t, ft.Column("Concept_ID"))
	assert.NotNil(t, ft.Column("Parameter_ID"))
	assert.Equal(t, []string{"Parameter_ID"}, ft.ForeignKeys[0].ColumnReference)

	require.NoError(t, tg.RenameColumn(pt.URL, "ID", "PID"))
	assert.Equal(t, []string{"PID"}, pt.PrimaryKey)
	assert.Equal(t, []string{"PID"}, ft.ForeignKeys[0].ReferenceColumns)
	require.NoError(t, tg.Check())

	err = tg.RenameColumn("forms.csv", "ID", "Parameter_ID")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))
	err = tg.RenameColumn("forms.csv", "Nope", "X")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
}

func TestRenameColumnTemplates(t *testing.T) {
	tg := metadata.New("")
	ft := &metadata.Table{
		URL:      "forms.csv",
		AboutURL: "http://example.org/forms/{ID}",
		Columns: []*metadata.Column{
			{Name: "ID"},
			{Name: "Gloss", ValueURL: "http://example.org/{Gloss}{?ID,Gloss:3}"},
			{Name: "Glosses", AboutURL: "http://example.org/g{/Glosses*}"},
		},
		PrimaryKey: []string{"ID"},
	}
	require.NoError(t, tg.AddTable(ft))

	tests := []struct {
		msg, oldName, newName string
		about, value, list    string
	}{
		{
			"id", "ID", "Form_ID",
			"http://example.org/forms/{Form_ID}",
			"http://example.org/{Gloss}{?Form_ID,Gloss:3}",
			"http://example.org/g{/Glosses*}",
		},
		{
			"modifiers are kept", "Gloss", "Meaning",
			"http://example.org/forms/{Form_ID}",
			"http://example.org/{Meaning}{?Form_ID,Meaning:3}",
			"http://example.org/g{/Glosses*}",
		},
		{
			"explode", "Glosses", "Meanings",
			"http://example.org/forms/{Form_ID}",
			"http://example.org/{Meaning}{?Form_ID,Meaning:3}",
			"http://example.org/g{/Meanings*}",
		},
	}

	for _, v := range tests {
		require.NoError(t, tg.RenameColumn("forms.csv", v.oldName, v.newName), v.msg)
		assert.Equal(t, v.about, ft.AboutURL, v.msg)
		assert.Equal(t, v.value, ft.Columns[1].ValueURL, v.msg)
		assert.Equal(t, v.list, ft.Columns[2].AboutURL, v.msg)
	}

	err := tg.RenameColumn("forms.csv", "Form_ID", "Form ID")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))
	assert.Equal(t, "http://example.org/forms/{Form_ID}", ft.AboutURL)
	assert.NotNil(t, ft.Column("Form_ID"))
}

func TestRemoveColumnsAndTables(t *testing.T) {
	reg := registry(t)
	tg := metadata.New("")
	_, err := tg.AddComponent(reg, "LanguageTable")
	require.NoError(t, err)
	vt, err := tg.AddComponent(reg, "ValueTable")
	require.NoError(t, err)

	err = tg.RemoveColumns("values.csv", "ID")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err), "primary key")
	err = tg.RemoveColumns("languages.csv", "ID")
	assert.Equal(t, errcode.SchemaError, errcode.Code(err), "referenced")
	err = tg.RemoveColumns("values.csv", "Nope")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))

	require.NoError(t, tg.RemoveColumns("values.csv", "Comment", "Language_ID"))
	assert.Nil(t, vt.Column("Comment"))
	assert.Empty(t, vt.ForeignKeys)

	err = tg.AddColumns("values.csv", &metadata.Column{Name: "Value"})
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))
	require.NoError(t, tg.AddColumns("values.csv", &metadata.Column{Name: "Language_ID"}))
	require.NoError(t, tg.AutoConstraints(reg))
	assert.Empty(t, vt.ForeignKeys, "unbound column gets no foreign key")

	require.NoError(t, tg.RemoveTable("languages.csv"))
	assert.Len(t, tg.Tables, 1)
	err = tg.RemoveTable("languages.csv")
	assert.Equal(t, errcode.LookupError, errcode.Code(err))
}

func TestAddForeignKey(t *testing.T) {
	tg := metadata.New("")
	require.NoError(t, tg.AddTable(&metadata.Table{
		URL:        "a.csv",
		Columns:    []*metadata.Column{{Name: "ID"}, {Name: "B_ID"}},
		PrimaryKey: []string{"ID"},
	}))

	err := tg.AddForeignKey("a.csv", []string{"B_ID"}, "b.csv", nil)
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	require.NoError(t, tg.AddTable(&metadata.Table{
		URL:        "b.csv",
		Columns:    []*metadata.Column{{Name: "ID"}},
		PrimaryKey: []string{"ID"},
	}))
	require.NoError(t, tg.AddForeignKey("a.csv", []string{"B_ID"}, "b.csv", nil))
	require.NoError(t, tg.AddForeignKey("a.csv", []string{"B_ID"}, "b.csv", []string{"ID"}))
	assert.Len(t, tg.Table("a.csv").ForeignKeys, 1)

	err = tg.AddForeignKey("a.csv", []string{"C_ID"}, "b.csv", nil)
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))

	err = tg.AddTable(&metadata.Table{
		URL:         "c.csv",
		Columns:     []*metadata.Column{{Name: "X"}},
		ForeignKeys: []metadata.ForeignKey{{ColumnReference: []string{"X"}, Resource: "d.csv", ReferenceColumns: []string{"ID"}}},
	})
	assert.Equal(t, errcode.SchemaError, errcode.Code(err))
	assert.Nil(t, tg.Table("c.csv"))
}

func TestFromListing(t *testing.T) {
	reg := registry(t)
	files := []metadata.TableFile{
		{Name: "forms.csv.zip", Header: []string{"ID", "Language_ID", "Parameter_ID", "Form", "Segments", "Notes"}},
		{Name: "languages.csv", Header: []string{"ID", "Name", "Glottocode"}},
		{Name: "ParameterTable.csv", Header: []string{"ID", "Name"}},
		{Name: "extra.csv", Header: []string{"ID", "Stuff"}},
		{Name: "README.md"},
	}
	tg, err := metadata.FromListing(reg, files, "sources.bib")
	require.NoError(t, err)

	assert.Equal(t, ns+"Wordlist", tg.ConformsTo)
	assert.Equal(t, "sources.bib", tg.Source())
	require.Len(t, tg.Tables, 4)

	ft := tg.Table("forms.csv")
	require.NotNil(t, ft)
	assert.Equal(t, ns+"FormTable", ft.ConformsTo)
	assert.Equal(t, ns+"segments", ft.Column("Segments").PropertyURL)
	assert.Equal(t, " ", ft.Column("Segments").Separator)
	assert.Empty(t, ft.Column("Notes").PropertyURL)
	assert.Equal(t, []string{"ID"}, ft.PrimaryKey)
	assert.Len(t, ft.ForeignKeys, 2)

	ext := tg.Table("extra.csv")
	require.NotNil(t, ext)
	assert.Empty(t, ext.ConformsTo)
	assert.Empty(t, ext.PrimaryKey)

	tg, err = metadata.FromListing(reg, files[3:4], "")
	require.NoError(t, err)
	assert.Equal(t, ns+"Generic", tg.ConformsTo)
}
