// Package orm gives validated rows as interrelated objects.
//
// Objects are created on first access and cached by table and primary
// key, so repeated lookups return the same *Object. Navigation over
// foreign keys goes through the cache, reverse navigation uses grouping
// indexes built with one scan of the referencing table. Invalidate drops
// cached objects and indexes after the data of a table changed.
package orm

import (
	"iter"
	"strconv"
	"strings"

	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/validate"
)

type objectKey struct {
	table string
	id    string
}

// Store is the object cache of one dataset.
type Store struct {
	res  *resolver.Resolved
	open validate.Opener
	exp  *sources.Expander
	idx  *validate.Indexes
	eng  *validate.Engine

	objects map[objectKey]*Object
	// loaded keeps objects of tables that were read to the end.
	loaded  map[string][]*Object
	reverse map[string]map[string][]*Object
}

// New creates a Store. Rows are read through open in report mode with
// invalid cells retained. The expander may be nil. Key indexes are kept
// in idx, which may be shared with other engines of the dataset, or in a
// cache of the store if idx is nil.
func New(
	res *resolver.Resolved,
	open validate.Opener,
	exp *sources.Expander,
	idx *validate.Indexes,
) *Store {
	if idx == nil {
		idx = validate.NewIndexes()
	}
	s := &Store{
		res:  res,
		open: open,
		exp:  exp,
		idx:  idx,
	}
	s.reset()
	return s
}

func (s *Store) newEngine() *validate.Engine {
	return validate.New(s.res, s.open,
		validate.OptExpander(s.exp), validate.OptIndexes(s.idx))
}

func (s *Store) reset() {
	s.eng = s.newEngine()
	s.objects = make(map[objectKey]*Object)
	s.loaded = make(map[string][]*Object)
	s.reverse = make(map[string]map[string][]*Object)
}

// Resolved returns the schema the store works with.
func (s *Store) Resolved() *resolver.Resolved {
	return s.res
}

// Invalidate drops cached objects and indexes of a table given by a
// component or a URL, or of all tables if table is empty. Key indexes and
// reverse groupings are rebuilt on next use.
func (s *Store) Invalidate(table string) {
	if table == "" {
		s.idx.Drop("")
		s.reset()
		return
	}
	ti, ok := s.res.GetTable(table)
	if !ok {
		return
	}
	url := ti.URL()
	for k := range s.objects {
		if k.table == url {
			delete(s.objects, k)
		}
	}
	delete(s.loaded, url)
	clear(s.reverse)
	s.idx.Drop(url)
	s.eng = s.newEngine()
}

// Objects streams objects of a table given by a component or a URL. The
// first stream of a table reads its rows, later ones come from the cache.
// Rows with a primary key that was seen before are not yielded again.
func (s *Store) Objects(table string) iter.Seq2[*Object, error] {
	return func(yield func(*Object, error) bool) {
		ti, err := s.res.Table(table)
		if err != nil {
			yield(nil, err)
			return
		}
		url := ti.URL()
		if objs, ok := s.loaded[url]; ok {
			for _, o := range objs {
				if !yield(o, nil) {
					return
				}
			}
			return
		}

		var objs []*Object
		for row, err := range s.eng.Rows(url) {
			if err != nil {
				yield(nil, err)
				return
			}
			o, fresh := s.object(ti, row)
			if !fresh {
				continue
			}
			objs = append(objs, o)
			if !yield(o, nil) {
				return
			}
		}
		s.loaded[url] = objs
	}
}

// All returns all objects of a table.
func (s *Store) All(table string) ([]*Object, error) {
	var res []*Object
	for o, err := range s.Objects(table) {
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}

// GetObject returns the object of a table with the given id. It fails
// with errcode.NotFoundError if there is no such object.
func (s *Store) GetObject(table, id string) (*Object, error) {
	ti, err := s.res.Table(table)
	if err != nil {
		return nil, err
	}
	key := objectKey{table: ti.URL(), id: id}
	if o, ok := s.objects[key]; ok {
		return o, nil
	}
	if _, ok := s.loaded[ti.URL()]; !ok {
		for _, err := range s.Objects(ti.URL()) {
			if err != nil {
				return nil, err
			}
		}
	}
	if o, ok := s.objects[key]; ok {
		return o, nil
	}
	return nil, NotFoundError(ti.URL(), id)
}

// object returns the cached object of a row or creates one. The second
// value is false when the object existed before.
func (s *Store) object(ti *resolver.TableInfo, row *validate.Row) (*Object, bool) {
	id := objectID(ti, row)
	key := objectKey{table: ti.URL(), id: id}
	if o, ok := s.objects[key]; ok {
		return o, o.row.Number == row.Number
	}
	o := &Object{store: s, info: ti, row: row, id: id}
	s.objects[key] = o
	return o, true
}

// objectID is the primary key of a row, the value of the id column for
// tables without a primary key, or the row number.
func objectID(ti *resolver.TableInfo, row *validate.Row) string {
	cols := ti.Table.PrimaryKey
	if len(cols) == 0 {
		if c := ti.ColumnFor("id"); c != nil {
			cols = []string{c.Name}
		}
	}
	if len(cols) == 0 {
		return strconv.Itoa(row.Number)
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = strings.TrimSpace(row.RawValue(c))
	}
	return strings.Join(parts, ",")
}

// grouping returns objects of the source table of a foreign key grouped
// by the referenced key.
func (s *Store) grouping(fk *resolver.ForeignKeyRef) (map[string][]*Object, error) {
	name := fk.Source.URL + "\x00" + strings.Join(fk.SourceColumns, "\x00")
	if g, ok := s.reverse[name]; ok {
		return g, nil
	}
	g := make(map[string][]*Object)
	for o, err := range s.Objects(fk.Source.URL) {
		if err != nil {
			return nil, err
		}
		for _, k := range o.foreignKeys(fk) {
			g[k] = append(g[k], o)
		}
	}
	s.reverse[name] = g
	return g, nil
}
