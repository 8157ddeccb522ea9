package iotesting

import (
	"path/filepath"
	"testing"

	"github.com/gnames/gncldf/internal/iocsv"
	"github.com/gnames/gncldf/pkg/dataset"
	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/terms"
)

// WordlistTitle is the title of the dataset written by WriteWordlist.
const WordlistTitle = "Test Wordlist"

// Bibliography returns entries of the test bibliography.
func Bibliography() *sources.Collection {
	return sources.NewCollection(
		&sources.Entry{
			Key:     "Meier2005",
			Type:    "book",
			Authors: []string{"Meier, Hans", "Smith, John"},
			Fields:  map[string]string{"title": "Words", "year": "2005"},
		},
	)
}

// WriteWordlist writes a valid Wordlist dataset with two languages, two
// parameters, three forms and a bibliography into dir. It returns the
// path of the metadata file.
func WriteWordlist(t *testing.T, dir string, opts ...iocsv.SinkOption) string {
	t.Helper()
	reg, err := terms.Load(terms.DefaultVersion)
	if err != nil {
		t.Fatalf("Cannot load terms: %v", err)
	}
	bib := func() (sources.Bibliography, error) {
		return Bibliography(), nil
	}
	d, err := dataset.NewModule(reg, "Wordlist", dataset.OptBibliography(bib))
	if err != nil {
		t.Fatalf("Cannot create dataset: %v", err)
	}
	d.Metadata().Extra[metadata.KeyTitle] = WordlistTitle
	for _, c := range []string{"LanguageTable", "ParameterTable"} {
		if _, err = d.AddComponent(c); err != nil {
			t.Fatalf("Cannot add %s: %v", c, err)
		}
	}

	data := map[string][]dataset.Record{
		"LanguageTable": {
			{"id": "stan1293", "name": "English", "glottocode": "stan1293",
				"latitude": 53.0, "longitude": -1.0},
			{"id": "stan1295", "name": "German", "glottocode": "stan1295"},
		},
		"ParameterTable": {
			{"id": "hand", "name": "hand"},
			{"id": "foot", "name": "foot"},
		},
		"FormTable": {
			{"id": "1", "languageReference": "stan1293",
				"parameterReference": "hand", "form": "hand",
				"segments": []any{"h", "a", "n", "d"},
				"source":   []any{"Meier2005[12]"}},
			{"id": "2", "languageReference": "stan1295",
				"parameterReference": "hand", "form": "Hand",
				"source": []any{"Meier2005", "4321"}},
			{"id": "3", "languageReference": "stan1293",
				"parameterReference": "foot", "form": "foot"},
		},
	}
	sink := iocsv.NewSink(dir, opts...)
	if err = d.Write(sink, data); err != nil {
		t.Fatalf("Cannot write dataset: %v", err)
	}
	return filepath.Join(dir, "Wordlist-metadata.json")
}
