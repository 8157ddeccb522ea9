package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/validate"
)

// Schema is the SQL schema of a dataset.
type Schema struct {
	// Tables are ordered so that referenced tables come first.
	Tables []*Table

	byName map[string]*Table
	byURL  map[string]*Table
}

// Build derives the SQL schema of a resolved dataset. Field names of
// bibliography entries become columns of SourceTable, bib can be nil.
func Build(res *resolver.Resolved, bib sources.Bibliography) (*Schema, error) {
	s := &Schema{
		byName: make(map[string]*Table),
		byURL:  make(map[string]*Table),
	}
	infos := res.Ordered()
	for _, ti := range infos {
		if err := s.addDataTable(ti); err != nil {
			return nil, err
		}
	}

	var withSources []*resolver.TableInfo
	for _, ti := range infos {
		if ti.ColumnFor("source") != nil {
			withSources = append(withSources, ti)
		}
	}
	if len(withSources) > 0 || (bib != nil && bib.Len() > 0) {
		if err := s.add(sourceTable(bib)); err != nil {
			return nil, err
		}
	}

	for _, ti := range infos {
		for _, fk := range ti.ForeignKeys {
			if !fk.ListValued {
				continue
			}
			if err := s.addLink(ti, fk.SourceColumns[0], s.byURL[fk.Target.URL], false); err != nil {
				return nil, err
			}
		}
	}
	for _, ti := range withSources {
		col := ti.ColumnFor("source")
		if err := s.addLink(ti, col.Name, s.byName[SourceTableName], true); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Table returns a table by its SQL name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// ForURL returns the SQL table of a CSV table.
func (s *Schema) ForURL(url string) (*Table, bool) {
	t, ok := s.byURL[url]
	return t, ok
}

// LinksFrom returns links filled from rows of a data table.
func (s *Schema) LinksFrom(t *Table) []*Link {
	var res []*Link
	for _, at := range s.Tables {
		for _, l := range at.Links {
			if l.From == t {
				res = append(res, l)
			}
		}
	}
	return res
}

func (s *Schema) add(t *Table) error {
	if _, ok := s.byName[t.Name]; ok {
		return metadata.SchemaError("Duplicate SQL table <em>%s</em>", t.Name)
	}
	s.Tables = append(s.Tables, t)
	s.byName[t.Name] = t
	if t.URL != "" {
		s.byURL[t.URL] = t
	}
	return nil
}

// ColumnName returns the SQL name of a CSV column.
func ColumnName(ti *resolver.TableInfo, column string) string {
	if p, ok := ti.Property(column); ok {
		return "cldf_" + p.Name
	}
	return column
}

// TableName returns the SQL name of a CSV table.
func TableName(ti *resolver.TableInfo) string {
	if n := ti.ComponentName(); n != "" {
		return n
	}
	return ti.URL()
}

func (s *Schema) addDataTable(ti *resolver.TableInfo) error {
	skip := make(map[string]bool)
	for _, fk := range ti.ForeignKeys {
		if fk.ListValued {
			skip[fk.SourceColumns[0]] = true
		}
	}
	if c := ti.ColumnFor("source"); c != nil {
		skip[c.Name] = true
	}

	t := &Table{Name: TableName(ti), Kind: DataTable, URL: ti.URL()}
	for _, c := range ti.Table.Columns {
		if skip[c.Name] {
			continue
		}
		t.Columns = append(t.Columns, &Column{
			Name:    ColumnName(ti, c.Name),
			Source:  c.Name,
			Base:    c.Datatype.BaseOrDefault(),
			List:    c.IsMultiValued(),
			NotNull: c.Required,
		})
	}
	for _, pk := range ti.Table.PrimaryKey {
		t.PrimaryKey = append(t.PrimaryKey, ColumnName(ti, pk))
	}
	for _, fk := range ti.ForeignKeys {
		if fk.ListValued {
			continue
		}
		target := t
		if fk.Target != fk.Source {
			var ok bool
			target, ok = s.byURL[fk.Target.URL]
			if !ok {
				return metadata.SchemaError(
					"Table <em>%s</em> references unknown table <em>%s</em>",
					ti.URL(), fk.Target.URL)
			}
		}
		sqlFK := ForeignKey{Table: target.Name}
		for _, c := range fk.SourceColumns {
			sqlFK.Columns = append(sqlFK.Columns, ColumnName(ti, c))
		}
		for _, c := range fk.TargetColumns {
			sqlFK.RefColumns = append(sqlFK.RefColumns, target.sqlName(c))
		}
		t.ForeignKeys = append(t.ForeignKeys, sqlFK)
	}
	return s.add(t)
}

// sqlName returns the SQL name of a CSV column of the table.
func (t *Table) sqlName(source string) string {
	for _, c := range t.Columns {
		if c.Source == source {
			return c.Name
		}
	}
	return source
}

func (s *Schema) addLink(
	ti *resolver.TableInfo,
	column string,
	to *Table,
	isSources bool,
) error {
	from := s.byURL[ti.URL()]
	if len(ti.Table.PrimaryKey) != 1 {
		return metadata.SchemaError(
			"Column <em>%s</em> of <em>%s</em> needs a table with "+
				"a single column primary key", column, ti.URL())
	}
	if to == nil || len(to.PrimaryKey) != 1 {
		return metadata.SchemaError(
			"Column <em>%s</em> of <em>%s</em> references a table without "+
				"a single column primary key", column, ti.URL())
	}

	name := from.Name + "_" + to.Name
	at, ok := s.byName[name]
	if !ok {
		fromCol := from.Name + "_" + from.PrimaryKey[0]
		toCol := to.Name + "_" + to.PrimaryKey[0]
		if toCol == fromCol {
			toCol += "_ref"
		}
		at = &Table{
			Name: name,
			Kind: AssociationTable,
			Columns: []*Column{
				{Name: fromCol, Base: "string", NotNull: true},
				{Name: toCol, Base: "string", NotNull: true},
				{Name: "context", Base: "string"},
			},
			ForeignKeys: []ForeignKey{
				{Columns: []string{fromCol}, Table: from.Name,
					RefColumns: []string{from.PrimaryKey[0]}},
			},
		}
		// missing sources are not errors, so they are not constrained
		if !isSources {
			at.ForeignKeys = append(at.ForeignKeys, ForeignKey{
				Columns: []string{toCol}, Table: to.Name,
				RefColumns: []string{to.PrimaryKey[0]},
			})
		}
		if err := s.add(at); err != nil {
			return err
		}
	}
	at.Links = append(at.Links, &Link{
		Table:   at,
		From:    from,
		To:      to,
		FromKey: ti.Table.PrimaryKey[0],
		Column:  column,
		Sources: isSources,
	})
	return nil
}

func sourceTable(bib sources.Bibliography) *Table {
	t := &Table{
		Name: SourceTableName,
		Kind: SourcesTable,
		Columns: []*Column{
			{Name: "id", Base: "string", NotNull: true},
			{Name: "genre", Base: "string"},
			{Name: "author", Base: "string"},
		},
		PrimaryKey: []string{"id"},
	}
	if bib == nil {
		return t
	}
	fields := make(map[string]struct{})
	for _, k := range bib.Keys() {
		e, _ := bib.Entry(k)
		for f := range e.Fields {
			fields[f] = struct{}{}
		}
	}
	delete(fields, "id")
	delete(fields, "genre")
	delete(fields, "author")
	for _, f := range sortedKeys(fields) {
		t.Columns = append(t.Columns, &Column{Name: f, Base: "string"})
	}
	return t
}

func sortedKeys(m map[string]struct{}) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}

// Values returns the SQL values of a validated row of a data table.
// Multi-valued cells and JSON cells are stored as their raw text.
func (t *Table) Values(row *validate.Row) []any {
	res := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		v, ok := row.Get(c.Source)
		if !ok || v == nil {
			continue
		}
		switch v.(type) {
		case string, int64, float64, bool:
			res[i] = v
		default:
			res[i] = row.RawValue(c.Source)
		}
		if c.List {
			res[i] = row.RawValue(c.Source)
		}
	}
	return res
}

// SourceValues returns the SQL values of a bibliography entry.
func (t *Table) SourceValues(e *sources.Entry) []any {
	res := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		switch c.Name {
		case "id":
			res[i] = e.Key
		case "genre":
			res[i] = e.Type
		case "author":
			if len(e.Authors) > 0 {
				res[i] = strings.Join(e.Authors, " and ")
			}
		default:
			if v, ok := e.Fields[c.Name]; ok {
				res[i] = v
			}
		}
	}
	return res
}

// Rows returns association rows of a validated row: the key of the row,
// the referenced key and the context. Unparsable references are skipped,
// the validation engine reports them.
func (l *Link) Rows(row *validate.Row) [][]any {
	id := row.RawValue(l.FromKey)
	v, _ := row.Get(l.Column)
	var res [][]any
	for _, item := range listItems(v) {
		if !l.Sources {
			res = append(res, []any{id, item, l.Column})
			continue
		}
		ref, err := sources.ParseReference(item)
		if err != nil {
			continue
		}
		var ctx any
		if ref.HasQualifier {
			ctx = ref.Qualifier
		}
		res = append(res, []any{id, ref.Key, ctx})
	}
	return res
}

func listItems(v any) []string {
	switch v := v.(type) {
	case nil:
		return nil
	case []any:
		res := make([]string, 0, len(v))
		for _, i := range v {
			res = append(res, fmt.Sprint(i))
		}
		return res
	case string:
		return []string{v}
	}
	return []string{fmt.Sprint(v)}
}
