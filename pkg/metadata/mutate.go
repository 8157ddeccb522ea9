package metadata

import (
	"regexp"
	"slices"
	"strings"

	"github.com/gnames/gncldf/pkg/terms"
)

// Check verifies consistency of the whole table group.
func (tg *TableGroup) Check() error {
	urls := make(map[string]struct{}, len(tg.Tables))
	for _, t := range tg.Tables {
		if _, ok := urls[t.URL]; ok {
			return SchemaError("Duplicate table <em>%s</em>", t.URL)
		}
		urls[t.URL] = struct{}{}
	}
	for _, t := range tg.Tables {
		if err := checkTable(t); err != nil {
			return err
		}
		for _, fk := range t.ForeignKeys {
			if err := tg.checkForeignKey(t, fk); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTable(t *Table) error {
	if t.URL == "" {
		return SchemaError("Table without url")
	}
	names := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return SchemaError("Column without name in <em>%s</em>", t.URL)
		}
		if _, ok := names[c.Name]; ok {
			return SchemaError("Duplicate column <em>%s</em> in <em>%s</em>",
				c.Name, t.URL)
		}
		names[c.Name] = struct{}{}
	}
	for _, pk := range t.PrimaryKey {
		if _, ok := names[pk]; !ok {
			return SchemaError("Primary key column <em>%s</em> is missing in <em>%s</em>",
				pk, t.URL)
		}
	}
	return nil
}

func (tg *TableGroup) checkForeignKey(t *Table, fk ForeignKey) error {
	for _, col := range fk.ColumnReference {
		if t.Column(col) == nil {
			return SchemaError(
				"Foreign key column <em>%s</em> is missing in <em>%s</em>", col, t.URL,
			)
		}
	}
	target := tg.Table(fk.Resource)
	if fk.Resource == t.URL {
		target = t
	}
	if target == nil {
		return SchemaError(
			"Foreign key of <em>%s</em> references unknown table <em>%s</em>",
			t.URL, fk.Resource,
		)
	}
	if len(fk.ReferenceColumns) != len(fk.ColumnReference) {
		return SchemaError(
			"Foreign key of <em>%s</em> to <em>%s</em> has mismatched columns",
			t.URL, fk.Resource,
		)
	}
	for _, col := range fk.ReferenceColumns {
		if target.Column(col) == nil {
			return SchemaError(
				"Foreign key of <em>%s</em> references missing column <em>%s.%s</em>",
				t.URL, fk.Resource, col,
			)
		}
	}
	return nil
}

func (tg *TableGroup) mustTable(url string) (*Table, error) {
	t := tg.Table(url)
	if t == nil {
		return nil, LookupError(url)
	}
	return t, nil
}

// AddTable adds a table to the group. Foreign keys of the table must point
// to tables already in the group or to the table itself.
func (tg *TableGroup) AddTable(t *Table) error {
	if tg.Table(t.URL) != nil {
		return SchemaError("Table <em>%s</em> already exists", t.URL)
	}
	if err := checkTable(t); err != nil {
		return err
	}
	tg.Tables = append(tg.Tables, t)
	for _, fk := range t.ForeignKeys {
		if err := tg.checkForeignKey(t, fk); err != nil {
			tg.Tables = tg.Tables[:len(tg.Tables)-1]
			return err
		}
	}
	return nil
}

// RemoveTable removes a table and the foreign keys of other tables that
// point to it.
func (tg *TableGroup) RemoveTable(url string) error {
	idx := slices.IndexFunc(tg.Tables, func(t *Table) bool { return t.URL == url })
	if idx == -1 {
		return LookupError(url)
	}
	tg.Tables = slices.Delete(tg.Tables, idx, idx+1)
	for _, t := range tg.Tables {
		t.ForeignKeys = slices.DeleteFunc(t.ForeignKeys, func(fk ForeignKey) bool {
			return fk.Resource == url
		})
	}
	return nil
}

// AddColumns appends columns to a table.
func (tg *TableGroup) AddColumns(url string, cols ...*Column) error {
	t, err := tg.mustTable(url)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if c.Name == "" {
			return SchemaError("Column without name in <em>%s</em>", url)
		}
		if _, ok := seen[c.Name]; ok || t.Column(c.Name) != nil {
			return SchemaError("Duplicate column <em>%s</em> in <em>%s</em>", c.Name, url)
		}
		seen[c.Name] = struct{}{}
	}
	t.Columns = append(t.Columns, cols...)
	return nil
}

// RemoveColumns removes columns from a table. A column that is part of the
// primary key or is referenced by a foreign key cannot be removed. Foreign
// keys of the table itself that use a removed column are dropped.
func (tg *TableGroup) RemoveColumns(url string, names ...string) error {
	t, err := tg.mustTable(url)
	if err != nil {
		return err
	}
	for _, name := range names {
		if t.Column(name) == nil {
			return LookupError(url + ":" + name)
		}
		if slices.Contains(t.PrimaryKey, name) {
			return SchemaError(
				"Cannot remove primary key column <em>%s</em> from <em>%s</em>", name, url,
			)
		}
		for _, other := range tg.Tables {
			for _, fk := range other.ForeignKeys {
				if fk.Resource == url && slices.Contains(fk.ReferenceColumns, name) {
					return SchemaError(
						"Cannot remove <em>%s.%s</em>, it is referenced by <em>%s</em>",
						url, name, other.URL,
					)
				}
			}
		}
	}
	t.Columns = slices.DeleteFunc(t.Columns, func(c *Column) bool {
		return slices.Contains(names, c.Name)
	})
	t.ForeignKeys = slices.DeleteFunc(t.ForeignKeys, func(fk ForeignKey) bool {
		for _, col := range fk.ColumnReference {
			if slices.Contains(names, col) {
				return true
			}
		}
		return false
	})
	return nil
}

var (
	templateExpr = regexp.MustCompile(`\{([+#./;?&]?)([^{}]*)\}`)
	templateVar  = regexp.MustCompile(`^(?:[A-Za-z0-9_.]|%[0-9A-Fa-f]{2})+$`)
)

// renameVar replaces a variable in all expressions of a URI template.
// Prefix and explode modifiers are kept.
func renameVar(tmpl, oldName, newName string) (string, bool) {
	var changed bool
	res := templateExpr.ReplaceAllStringFunc(tmpl, func(expr string) string {
		m := templateExpr.FindStringSubmatch(expr)
		specs := strings.Split(m[2], ",")
		for i, spec := range specs {
			name, mod := spec, ""
			if j := strings.IndexAny(spec, ":*"); j >= 0 {
				name, mod = spec[:j], spec[j:]
			}
			if name == oldName {
				specs[i] = newName + mod
				changed = true
			}
		}
		return "{" + m[1] + strings.Join(specs, ",") + "}"
	})
	return res, changed
}

// templates returns URI templates of a table that are expanded per row.
func (t *Table) templates() []*string {
	res := []*string{&t.AboutURL}
	for _, c := range t.Columns {
		res = append(res, &c.AboutURL, &c.ValueURL)
	}
	return res
}

// RenameColumn renames a column and rewrites every primary and foreign key
// that refers to it, including foreign keys of other tables. Variables of
// aboutUrl and valueUrl templates of the table are renamed as well, so the
// new name must be a valid template variable if a template uses it.
func (tg *TableGroup) RenameColumn(url, oldName, newName string) error {
	t, err := tg.mustTable(url)
	if err != nil {
		return err
	}
	c := t.Column(oldName)
	if c == nil {
		return LookupError(url + ":" + oldName)
	}
	if oldName == newName {
		return nil
	}
	if newName == "" || t.Column(newName) != nil {
		return SchemaError("Cannot rename <em>%s</em> to <em>%s</em> in <em>%s</em>",
			oldName, newName, url)
	}

	tmpls := t.templates()
	renamed := make([]string, len(tmpls))
	for i, tmpl := range tmpls {
		res, changed := renameVar(*tmpl, oldName, newName)
		if changed && !templateVar.MatchString(newName) {
			return SchemaError(
				"Cannot rename <em>%s</em> to <em>%s</em> in <em>%s</em>: used in template <em>%s</em>",
				oldName, newName, url, *tmpl,
			)
		}
		renamed[i] = res
	}
	for i, tmpl := range tmpls {
		*tmpl = renamed[i]
	}

	c.Name = newName
	if _, ok := c.Extra["titles"]; ok {
		c.Extra["titles"] = newName
	}
	rename := func(ss []string) {
		for i := range ss {
			if ss[i] == oldName {
				ss[i] = newName
			}
		}
	}
	rename(t.PrimaryKey)
	for i := range t.ForeignKeys {
		rename(t.ForeignKeys[i].ColumnReference)
	}
	for _, other := range tg.Tables {
		for i := range other.ForeignKeys {
			if other.ForeignKeys[i].Resource == url {
				rename(other.ForeignKeys[i].ReferenceColumns)
			}
		}
	}
	return nil
}

// AddForeignKey declares a foreign key from columns of a table to columns
// of a target table. Empty targetCols means the primary key of the target.
// Adding an existing foreign key again is a no-op.
func (tg *TableGroup) AddForeignKey(url string, cols []string, target string, targetCols []string) error {
	t, err := tg.mustTable(url)
	if err != nil {
		return err
	}
	tt := tg.Table(target)
	if tt == nil {
		return SchemaError(
			"Foreign key of <em>%s</em> references unknown table <em>%s</em>", url, target,
		)
	}
	if len(targetCols) == 0 {
		targetCols = tt.PrimaryKey
	}
	fk := ForeignKey{
		ColumnReference:  slices.Clone(cols),
		Resource:         target,
		ReferenceColumns: slices.Clone(targetCols),
	}
	if err := tg.checkForeignKey(t, fk); err != nil {
		return err
	}
	for _, old := range t.ForeignKeys {
		if slices.Equal(old.ColumnReference, fk.ColumnReference) &&
			old.Resource == fk.Resource &&
			slices.Equal(old.ReferenceColumns, fk.ReferenceColumns) {
			return nil
		}
	}
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return nil
}

// ComponentOption modifies a table created by AddComponent.
type ComponentOption func(*Table)

// WithColumns adds columns to a component table. A column with the name or
// the property of a default column replaces it.
func WithColumns(cols ...*Column) ComponentOption {
	return func(t *Table) {
		for _, c := range cols {
			idx := slices.IndexFunc(t.Columns, func(d *Column) bool {
				return d.Name == c.Name ||
					(c.PropertyURL != "" && d.PropertyURL == c.PropertyURL)
			})
			if idx == -1 {
				t.Columns = append(t.Columns, c)
				continue
			}
			t.Columns[idx] = c
		}
	}
}

// WithDescription sets dc:description of a component table.
func WithDescription(s string) ComponentOption {
	return func(t *Table) {
		t.Description = s
	}
}

// WithURL overrides the conventional file name of a component table.
func WithURL(url string) ComponentOption {
	return func(t *Table) {
		t.URL = url
	}
}

// NewComponentTable creates a table with default columns of a component.
func NewComponentTable(reg *terms.Registry, component string, opts ...ComponentOption) (*Table, error) {
	term, ok := reg.Component(component)
	if !ok {
		return nil, SchemaError("Unknown component <em>%s</em>", component)
	}
	t := &Table{
		URL:        term.Filename,
		ConformsTo: term.URI,
	}
	if t.URL == "" {
		t.URL = term.Name + ".csv"
	}
	for _, ct := range reg.DefaultColumns(term.Name) {
		t.Columns = append(t.Columns, &Column{
			Name:        ct.Name,
			PropertyURL: ct.PropertyURI,
			Datatype:    DatatypeFromTerm(ct.Datatype),
			Separator:   ct.Separator,
			Null:        ct.Null,
			Required:    ct.Required,
		})
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// AddComponent adds a table for a component pre-populated with its default
// columns, then adds implicit primary and foreign keys. A dataset can have
// only one table per component.
func (tg *TableGroup) AddComponent(reg *terms.Registry, component string, opts ...ComponentOption) (*Table, error) {
	t, err := NewComponentTable(reg, component, opts...)
	if err != nil {
		return nil, err
	}
	term, _ := reg.Component(component)
	if tg.ComponentTable(reg, term.Name) != nil {
		return nil, SchemaError("Dataset already has a <em>%s</em>", term.Name)
	}
	if err = tg.AddTable(t); err != nil {
		return nil, err
	}
	if err = tg.AutoConstraints(reg); err != nil {
		return nil, err
	}
	return t, nil
}

// ComponentTable returns the table bound to a component, or nil. A table
// annotated with the component is preferred over a file name match.
func (tg *TableGroup) ComponentTable(reg *terms.Registry, component string) *Table {
	term, ok := reg.Component(component)
	if !ok {
		return nil
	}
	var byName *Table
	for _, t := range tg.Tables {
		c, explicit, ok := t.Component(reg)
		if !ok || c.Name != term.Name {
			continue
		}
		if explicit {
			return t
		}
		if byName == nil {
			byName = t
		}
	}
	return byName
}

// AutoConstraints adds keys implied by the ontology. A table without a
// primary key gets one on its column bound to the id property. A column
// bound to a reference property gets a foreign key to the primary key of
// the referenced component table, when that table is in the group.
func (tg *TableGroup) AutoConstraints(reg *terms.Registry) error {
	idURI := reg.URI("id")
	for _, t := range tg.Tables {
		if _, _, ok := t.Component(reg); !ok {
			continue
		}
		if len(t.PrimaryKey) == 0 {
			if c := t.ColumnByProperty(idURI); c != nil {
				t.PrimaryKey = []string{c.Name}
			}
		}
	}

	for _, t := range tg.Tables {
		if _, _, ok := t.Component(reg); !ok {
			continue
		}
		for _, c := range t.Columns {
			p, ok := reg.Property(c.PropertyURL)
			if !ok || !p.IsReference() {
				continue
			}
			target := tg.ComponentTable(reg, p.References)
			if target == nil || len(target.PrimaryKey) != 1 {
				continue
			}
			if hasForeignKey(t, c.Name) {
				continue
			}
			err := tg.AddForeignKey(t.URL, []string{c.Name}, target.URL, target.PrimaryKey)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func hasForeignKey(t *Table, col string) bool {
	for _, fk := range t.ForeignKeys {
		if len(fk.ColumnReference) == 1 && fk.ColumnReference[0] == col {
			return true
		}
	}
	return false
}
