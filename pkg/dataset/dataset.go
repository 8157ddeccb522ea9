// Package dataset provides the handle of one CLDF dataset. It owns the
// metadata model and memoizes the resolved schema, the validation engine
// and the object store built from it. Every mutation drops the memoized
// state.
//
// A Dataset is not safe for concurrent use.
package dataset

import (
	"iter"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/orm"
	"github.com/gnames/gncldf/pkg/resolver"
	"github.com/gnames/gncldf/pkg/sources"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/gnames/gncldf/pkg/validate"
	"github.com/gnames/gnuuid"
	"github.com/google/uuid"
)

// Option configures a Dataset.
type Option func(*Dataset)

// OptBibliography sets the loader of the bibliography.
func OptBibliography(load sources.Loader) Option {
	return func(d *Dataset) {
		d.loadBib = load
	}
}

// OptLocation sets the location the dataset was read from, a directory,
// a metadata file or a URL.
func OptLocation(loc string) Option {
	return func(d *Dataset) {
		d.location = loc
	}
}

// Dataset is a handle of one dataset.
type Dataset struct {
	reg      *terms.Registry
	tg       *metadata.TableGroup
	rows     validate.Opener
	loadBib  sources.Loader
	location string

	res   *resolver.Resolved
	store *orm.Store
	exp   *sources.Expander
	// idx keeps key indexes for all engines of the handle.
	idx *validate.Indexes
}

// New creates a handle for a table group. Rows are read with rows, which
// may be nil for a dataset that exists only in memory.
func New(
	reg *terms.Registry,
	tg *metadata.TableGroup,
	rows validate.Opener,
	opts ...Option,
) *Dataset {
	d := &Dataset{
		reg:  reg,
		tg:   tg,
		rows: rows,
		idx:  validate.NewIndexes(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rows == nil {
		d.rows = noRows{}
	}
	d.exp = sources.NewExpander(d.loadBib)
	return d
}

// FromDocument creates a handle from a decoded metadata document.
func FromDocument(
	reg *terms.Registry,
	doc map[string]any,
	rows validate.Opener,
	opts ...Option,
) (*Dataset, error) {
	tg, err := metadata.FromDocument(doc)
	if err != nil {
		return nil, err
	}
	return New(reg, tg, rows, opts...), nil
}

// FromListing creates a handle from CSV files of a directory without a
// metadata document.
func FromListing(
	reg *terms.Registry,
	files []metadata.TableFile,
	bibFile string,
	rows validate.Opener,
	opts ...Option,
) (*Dataset, error) {
	tg, err := metadata.FromListing(reg, files, bibFile)
	if err != nil {
		return nil, err
	}
	return New(reg, tg, rows, opts...), nil
}

// NewModule creates an empty dataset of a module variant. Components the
// module requires are added with their default columns.
func NewModule(reg *terms.Registry, module string, opts ...Option) (*Dataset, error) {
	m, ok := reg.Module(module)
	if !ok {
		return nil, metadata.LookupError(module)
	}
	tg := metadata.New(m.URI)
	for _, c := range m.Requires {
		if _, err := tg.AddComponent(reg, c); err != nil {
			return nil, err
		}
	}
	return New(reg, tg, nil, opts...), nil
}

// Registry returns the term registry of the dataset.
func (d *Dataset) Registry() *terms.Registry {
	return d.reg
}

// Metadata returns the table group. Changes made to it directly must be
// followed by Invalidate.
func (d *Dataset) Metadata() *metadata.TableGroup {
	return d.tg
}

// Location returns where the dataset came from.
func (d *Dataset) Location() string {
	return d.location
}

// Identifier is a stable UUID v5 of the dataset derived from its title,
// or from its location when there is no title. A dataset with neither
// gets the nil UUID.
func (d *Dataset) Identifier() string {
	s := d.tg.Title()
	if s == "" {
		s = d.location
	}
	if s == "" {
		return uuid.Nil.String()
	}
	return gnuuid.New(s).String()
}

// Module returns the module variant of the dataset.
func (d *Dataset) Module() (terms.Module, error) {
	res, err := d.Resolved()
	if err != nil {
		return terms.Module{}, err
	}
	return res.Module, nil
}

// Resolved returns the resolved schema, resolving it on first use.
func (d *Dataset) Resolved() (*resolver.Resolved, error) {
	if d.res != nil {
		return d.res, nil
	}
	res, err := resolver.Resolve(d.tg, d.reg)
	if err != nil {
		return nil, err
	}
	d.res = res
	return res, nil
}

// Invalidate drops the resolved schema, object cache and key indexes.
func (d *Dataset) Invalidate() {
	d.res = nil
	d.store = nil
	d.idx.Drop("")
}

// InvalidateRows drops cached objects and key indexes of one table after
// its rows changed.
func (d *Dataset) InvalidateRows(table string) {
	url, err := d.url(table)
	if err != nil {
		return
	}
	d.idx.Drop(url)
	if d.store != nil {
		d.store.Invalidate(url)
	}
}

// Bibliography returns the bibliography, loading it on first use, with
// entries added during reference expansion.
func (d *Dataset) Bibliography() (sources.Bibliography, error) {
	return d.exp.Bibliography()
}

// Expander returns the reference expander of the dataset.
func (d *Dataset) Expander() *sources.Expander {
	return d.exp
}

// Validate checks conformance of the schema and validates all rows.
func (d *Dataset) Validate(opts ...validate.Option) (*validate.Report, error) {
	res, err := d.Resolved()
	if err != nil {
		return nil, err
	}
	opts = append(d.engineOptions(), opts...)
	eng := validate.New(res, d.rows, opts...)
	return eng.Validate()
}

// Rows streams validated rows of a table in report mode with invalid
// cells retained.
func (d *Dataset) Rows(table string) iter.Seq2[*validate.Row, error] {
	return func(yield func(*validate.Row, error) bool) {
		res, err := d.Resolved()
		if err != nil {
			yield(nil, err)
			return
		}
		eng := validate.New(res, d.rows, d.engineOptions()...)
		for row, err := range eng.Rows(table) {
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// Objects returns the object store of the dataset.
func (d *Dataset) Objects() (*orm.Store, error) {
	if d.store != nil {
		return d.store, nil
	}
	res, err := d.Resolved()
	if err != nil {
		return nil, err
	}
	d.store = orm.New(res, d.rows, d.exp, d.idx)
	return d.store, nil
}

// GetObject returns an object of a table by its id.
func (d *Dataset) GetObject(table, id string) (*orm.Object, error) {
	s, err := d.Objects()
	if err != nil {
		return nil, err
	}
	return s.GetObject(table, id)
}

func (d *Dataset) engineOptions() []validate.Option {
	return []validate.Option{
		validate.OptExpander(d.exp),
		validate.OptIndexes(d.idx),
	}
}
