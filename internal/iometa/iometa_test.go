package iometa_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/internal/iometa"
	"github.com/gnames/gncldf/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordlist = `{
  "@context": "http://www.w3.org/ns/csvw",
  "dc:conformsTo": "http://cldf.clld.org/v1.0/terms.rdf#Wordlist",
  "dc:title": "Test",
  "tables": [
    {
      "url": "forms.csv",
      "dc:conformsTo": "http://cldf.clld.org/v1.0/terms.rdf#FormTable",
      "tableSchema": {
        "columns": [
          {"name": "ID", "propertyUrl": "http://cldf.clld.org/v1.0/terms.rdf#id"},
          {"name": "Form", "required": true}
        ],
        "primaryKey": ["ID"]
      }
    }
  ]
}`

func TestDecode(t *testing.T) {
	doc, err := iometa.Decode("test", []byte(wordlist))
	require.NoError(t, err)
	assert.Equal(t, "Test", doc["dc:title"])
	tables, ok := doc["tables"].([]any)
	require.True(t, ok)
	assert.Len(t, tables, 1)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		msg  string
		data string
		code gn.ErrorCode
	}{
		{"not json", `{"tables": [`, errcode.MetadataDecodeError},
		{"no tables", `{"dc:title": "x"}`, errcode.MetadataShapeError},
		{"tables not array", `{"tables": {}}`, errcode.MetadataShapeError},
		{"table without url", `{"tables": [{"dc:title": "x"}]}`, errcode.MetadataShapeError},
		{"empty url", `{"tables": [{"url": ""}]}`, errcode.MetadataShapeError},
		{"table not object", `{"tables": ["forms.csv"]}`, errcode.MetadataShapeError},
		{"column without name", `{"tables": [{"url": "a.csv",
			"tableSchema": {"columns": [{"datatype": "string"}]}}]}`,
			errcode.MetadataShapeError},
		{"bad dialect", `{"dialect": "tsv", "tables": []}`, errcode.MetadataShapeError},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			_, err := iometa.Decode("test", []byte(v.data))
			require.Error(t, err)
			assert.Equal(t, v.code, errcode.Code(err))
		})
	}
}

func TestReadWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "Wordlist-metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(wordlist), 0644))

	doc, err := iometa.Read(path)
	require.NoError(t, err)

	doc["dc:title"] = "Changed"
	out := filepath.Join(dir, "out-metadata.json")
	require.NoError(t, iometa.Write(out, doc))

	doc2, err := iometa.Read(out)
	require.NoError(t, err)
	assert.Equal(t, "Changed", doc2["dc:title"])
	assert.Equal(t, doc["tables"], doc2["tables"])

	_, err = iometa.Read(filepath.Join(dir, "nonexistent.json"))
	assert.Equal(t, errcode.MetadataDecodeError, errcode.Code(err))

	err = iometa.Write(filepath.Join(dir, "no", "such", "dir.json"), doc)
	assert.Equal(t, errcode.MetadataEncodeError, errcode.Code(err))
}
