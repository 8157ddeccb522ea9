package metadata

import (
	"path"
	"strings"

	"github.com/gnames/gncldf/pkg/terms"
)

// TableFile is a CSV file found while scanning a dataset directory.
type TableFile struct {
	// Name is the file name relative to the dataset directory, possibly
	// with a ".zip" suffix.
	Name string
	// Header holds the column names from the first row of the file.
	Header []string
}

// FromListing infers a table group from CSV files without metadata.
// Files named after a component ("languages.csv" or "LanguageTable.csv")
// are bound to it and their columns are bound to properties by default
// column names. Other CSV files become custom tables. The module is
// chosen by the primary component present, Generic otherwise.
//
// The bibliography file name, if any, is recorded as dc:source.
func FromListing(reg *terms.Registry, files []TableFile, bibFile string) (*TableGroup, error) {
	tg := New("")
	seen := make(map[string]bool)

	for _, f := range files {
		url := strings.TrimSuffix(f.Name, ".zip")
		if !strings.HasSuffix(url, ".csv") {
			continue
		}
		t := &Table{URL: url}
		term, ok := reg.ComponentByFilename(path.Base(url))
		var defaults map[string]terms.ColumnTemplate
		if ok && !seen[term.Name] {
			seen[term.Name] = true
			t.ConformsTo = term.URI
			defaults = make(map[string]terms.ColumnTemplate)
			for _, ct := range reg.DefaultColumns(term.Name) {
				defaults[ct.Name] = ct
			}
			extendDefaults(reg, defaults)
		}
		for _, h := range f.Header {
			c := &Column{Name: h}
			if ct, ok := defaults[h]; ok {
				c.PropertyURL = ct.PropertyURI
				c.Datatype = DatatypeFromTerm(ct.Datatype)
				c.Separator = ct.Separator
				c.Null = ct.Null
				c.Required = ct.Required
			}
			t.Columns = append(t.Columns, c)
		}
		if err := tg.AddTable(t); err != nil {
			return nil, err
		}
	}

	tg.ConformsTo = reg.URI("Generic")
	for _, m := range reg.Modules() {
		if m.Primary != "" && seen[m.Primary] {
			tg.ConformsTo = m.URI
			break
		}
	}
	if bibFile != "" {
		tg.SetSource(bibFile)
	}

	if err := tg.AutoConstraints(reg); err != nil {
		return nil, err
	}
	return tg, nil
}

// extendDefaults adds properties outside of the component template that
// still have a recognizable default column name.
func extendDefaults(reg *terms.Registry, defaults map[string]terms.ColumnTemplate) {
	for _, p := range reg.Properties() {
		if p.Column == "" {
			continue
		}
		if _, ok := defaults[p.Column]; ok {
			continue
		}
		defaults[p.Column] = terms.ColumnTemplate{
			Name:        p.Column,
			PropertyURI: p.URI,
			Datatype:    p.Datatype,
			Separator:   p.Separator,
			Null:        p.Null,
		}
	}
}
