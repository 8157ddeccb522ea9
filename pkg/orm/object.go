package orm

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/yosida95/uritemplate/v3"
)

// Object is one row of a table with navigation to related rows.
type Object struct {
	store *Store
	info  *resolver.TableInfo
	row   *validate.Row
	id    string
}

// ID returns the primary key of the object. Composite keys are joined
// with a comma.
func (o *Object) ID() string {
	return o.id
}

// Table returns the URL of the table of the object.
func (o *Object) Table() string {
	return o.info.URL()
}

// Component returns the component name of the table, or an empty string
// for custom tables.
func (o *Object) Component() string {
	return o.info.ComponentName()
}

// Row returns the underlying row.
func (o *Object) Row() *validate.Row {
	return o.row
}

// Data returns the values of the object keyed by column name.
func (o *Object) Data() map[string]any {
	return o.row.Map()
}

func (o *Object) column(key string) (*metadata.Column, bool) {
	return o.info.GetColumn(key)
}

// Get returns a value by column name, property name or property URI.
func (o *Object) Get(key string) (any, bool) {
	c, ok := o.column(key)
	if !ok {
		return nil, false
	}
	return o.row.Get(c.Name)
}

// String returns the raw text of a cell, or an empty string for unknown
// columns.
func (o *Object) String(key string) string {
	c, ok := o.column(key)
	if !ok {
		return ""
	}
	return o.row.RawValue(c.Name)
}

// Name is the value of the column bound to the name property.
func (o *Object) Name() string {
	return o.String("name")
}

func (o *Object) reference(key string) (*metadata.Column, *resolver.ForeignKeyRef, error) {
	c, ok := o.column(key)
	if !ok {
		return nil, nil, metadata.LookupError(o.Table() + ":" + key)
	}
	fk, ok := o.store.res.ForeignKeyReference(o.Table(), c.Name)
	if !ok {
		return nil, nil, RelationError(o.Table(), c.Name, "not a foreign key")
	}
	return c, fk, nil
}

// foreignKeys returns keys the object refers to through a foreign key.
func (o *Object) foreignKeys(fk *resolver.ForeignKeyRef) []string {
	if len(fk.SourceColumns) == 1 {
		col := fk.SourceColumns[0]
		if v, _ := o.row.Get(col); v == nil {
			return nil
		}
		raw := o.row.RawValue(col)
		if !fk.ListValued {
			return []string{strings.TrimSpace(raw)}
		}
		var res []string
		sep := fk.Source.Column(col).Separator
		for _, p := range strings.Split(raw, sep) {
			if p = strings.TrimSpace(p); p != "" {
				res = append(res, p)
			}
		}
		return res
	}
	parts := make([]string, len(fk.SourceColumns))
	for i, col := range fk.SourceColumns {
		if v, _ := o.row.Get(col); v == nil {
			return nil
		}
		parts[i] = strings.TrimSpace(o.row.RawValue(col))
	}
	return []string{strings.Join(parts, ",")}
}

// Related returns the object a single-valued foreign key column points
// to, or nil if the cell is empty.
func (o *Object) Related(key string) (*Object, error) {
	c, fk, err := o.reference(key)
	if err != nil {
		return nil, err
	}
	if fk.ListValued {
		return nil, RelationError(o.Table(), c.Name, "list-valued, use AllRelated")
	}
	keys := o.foreignKeys(fk)
	if len(keys) == 0 {
		return nil, nil
	}
	return o.store.GetObject(fk.Target.URL, keys[0])
}

// RelatedSeq lazily yields objects a foreign key column points to, in the
// order of the keys in the cell.
func (o *Object) RelatedSeq(key string) iter.Seq2[*Object, error] {
	return func(yield func(*Object, error) bool) {
		_, fk, err := o.reference(key)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, k := range o.foreignKeys(fk) {
			obj, err := o.store.GetObject(fk.Target.URL, k)
			if !yield(obj, err) || err != nil {
				return
			}
		}
	}
}

// AllRelated returns all objects a foreign key column points to.
func (o *Object) AllRelated(key string) ([]*Object, error) {
	var res []*Object
	for obj, err := range o.RelatedSeq(key) {
		if err != nil {
			return nil, err
		}
		res = append(res, obj)
	}
	return res, nil
}

// Referrers returns objects of a table that refer to this object. The
// result is taken from a grouping index that is built once per foreign
// key.
func (o *Object) Referrers(table string) ([]*Object, error) {
	ti, err := o.store.res.Table(table)
	if err != nil {
		return nil, err
	}
	var res []*Object
	var found bool
	for _, fk := range ti.ForeignKeys {
		if fk.Target.URL != o.Table() {
			continue
		}
		found = true
		g, err := o.store.grouping(fk)
		if err != nil {
			return nil, err
		}
		for _, obj := range g[o.id] {
			if !slices.Contains(res, obj) {
				res = append(res, obj)
			}
		}
	}
	if !found {
		return nil, RelationError(ti.URL(), o.Table(), "no foreign key to the table")
	}
	return res, nil
}

// References returns source references of the object with their
// bibliography entries resolved if the store has an expander.
func (o *Object) References() ([]sources.Reference, error) {
	c := o.info.ColumnFor("source")
	if c == nil {
		return nil, nil
	}
	v, _ := o.row.Get(c.Name)
	var tokens []string
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		for _, t := range val {
			tokens = append(tokens, fmt.Sprint(t))
		}
	default:
		tokens = []string{fmt.Sprint(val)}
	}

	var res []sources.Reference
	if o.store.exp == nil {
		for _, t := range tokens {
			ref, err := sources.ParseReference(t)
			if err != nil {
				return nil, err
			}
			res = append(res, ref)
		}
		return res, nil
	}
	for ref, err := range o.store.exp.Expand(slices.Values(tokens), nil) {
		if err != nil {
			return nil, err
		}
		res = append(res, ref)
	}
	return res, nil
}

// AboutURL expands the aboutUrl template of a column, or of the table if
// the column has none, with the cells of the object. An empty key takes
// the table template.
func (o *Object) AboutURL(key string) (string, error) {
	tmpl := o.info.Table.AboutURL
	name := ""
	if key != "" {
		c, ok := o.column(key)
		if !ok {
			return "", metadata.LookupError(o.Table() + ":" + key)
		}
		name = c.Name
		if c.AboutURL != "" {
			tmpl = c.AboutURL
		}
	}
	return o.expand(tmpl, name)
}

// ValueURL expands the valueUrl template of a column with the cells of
// the object.
func (o *Object) ValueURL(key string) (string, error) {
	c, ok := o.column(key)
	if !ok {
		return "", metadata.LookupError(o.Table() + ":" + key)
	}
	return o.expand(c.ValueURL, c.Name)
}

func (o *Object) expand(tmpl, column string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	t, err := uritemplate.New(tmpl)
	if err != nil {
		return "", metadata.SchemaError("Invalid URI template <em>%s</em>", tmpl)
	}
	vals := uritemplate.Values{}
	for _, c := range o.info.Table.Columns {
		v, _ := o.row.Get(c.Name)
		switch val := v.(type) {
		case nil:
		case []any:
			items := make([]string, len(val))
			for i := range val {
				items[i] = fmt.Sprint(val[i])
			}
			vals.Set(c.Name, uritemplate.List(items...))
		default:
			vals.Set(c.Name, uritemplate.String(strings.TrimSpace(o.row.RawValue(c.Name))))
		}
	}
	vals.Set("_row", uritemplate.String(strconv.Itoa(o.row.Number)))
	if column != "" {
		vals.Set("_name", uritemplate.String(column))
	}
	return t.Expand(vals)
}
