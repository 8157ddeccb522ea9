// Package resolver matches tables and columns of a metadata model against
// the Term Registry and builds the foreign key graph.
//
// A table is bound to a component by its dc:conformsTo annotation. Only
// tables without the annotation fall back to their file name. When both
// exist and disagree, the annotation wins and a warning is recorded.
// Annotated tables claim their components first; a file name match of a
// claimed component leaves the table custom with a warning.
//
// Tables and columns are addressed by string keys with ordered fallback:
// for a table the component URI, then the component name, then the table
// URL; for a column the property URI, then the column name, then the
// property name.
package resolver

import (
	"slices"
	"strings"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/terms"
	"github.com/yosida95/uritemplate/v3"
)

// Warning is a non-fatal finding of the resolution.
type Warning struct {
	Table   string
	Column  string
	Message string
}

// TableInfo is a table with its resolved bindings.
type TableInfo struct {
	Table *metadata.Table
	// Component is nil for custom tables.
	Component *terms.Term
	// Explicit is true when the component came from dc:conformsTo.
	Explicit bool
	// ForeignKeys are outgoing references of the table.
	ForeignKeys []*ForeignKeyRef

	properties map[string]terms.Term
}

// URL returns the table URL.
func (ti *TableInfo) URL() string {
	return ti.Table.URL
}

// ComponentName returns the component name or an empty string.
func (ti *TableInfo) ComponentName() string {
	if ti.Component == nil {
		return ""
	}
	return ti.Component.Name
}

// Property returns the property bound to a column.
func (ti *TableInfo) Property(column string) (terms.Term, bool) {
	p, ok := ti.properties[column]
	return p, ok
}

// ColumnFor returns the column bound to a property name or URI.
func (ti *TableInfo) ColumnFor(property string) *metadata.Column {
	for _, c := range ti.Table.Columns {
		p, ok := ti.properties[c.Name]
		if ok && (p.URI == property || p.Name == property) {
			return c
		}
	}
	return nil
}

// ForeignKeyRef is a resolved foreign key.
type ForeignKeyRef struct {
	Source        *metadata.Table
	SourceColumns []string
	Target        *metadata.Table
	TargetColumns []string
	// ListValued is true when one source cell holds several keys.
	ListValued bool
	// Implicit is true for keys implied by a reference property and not
	// declared in the metadata.
	Implicit bool
}

// Resolved is the resolved schema of a dataset.
type Resolved struct {
	Registry *terms.Registry
	Group    *metadata.TableGroup
	Module   terms.Module
	Warnings []Warning

	tables      []*TableInfo
	byURL       map[string]*TableInfo
	byComponent map[string]*TableInfo
	order       []*TableInfo
}

// Resolve binds tables and columns of a table group to terms and builds
// the foreign key graph. Inconsistencies are reported as errcode.SchemaError.
func Resolve(tg *metadata.TableGroup, reg *terms.Registry) (*Resolved, error) {
	if err := tg.Check(); err != nil {
		return nil, err
	}
	res := &Resolved{
		Registry:    reg,
		Group:       tg,
		byURL:       make(map[string]*TableInfo),
		byComponent: make(map[string]*TableInfo),
	}
	res.Module, _ = reg.Module("Generic")
	if m, ok := reg.Module(tg.ConformsTo); ok {
		res.Module = m
	} else if tg.ConformsTo != "" {
		res.Warnings = append(res.Warnings, Warning{
			Message: "unknown module " + tg.ConformsTo,
		})
	}

	for _, t := range tg.Tables {
		ti := &TableInfo{
			Table:      t,
			properties: make(map[string]terms.Term),
		}
		res.tables = append(res.tables, ti)
		res.byURL[t.URL] = ti
	}

	// annotated tables claim their components before file names are used
	for _, annotated := range []bool{true, false} {
		for _, ti := range res.tables {
			if (ti.Table.ConformsTo != "") != annotated {
				continue
			}
			if err := res.bindComponent(ti); err != nil {
				return nil, err
			}
		}
	}

	for _, ti := range res.tables {
		if err := res.resolveColumns(ti); err != nil {
			return nil, err
		}
	}

	for _, ti := range res.tables {
		if err := res.resolveForeignKeys(ti); err != nil {
			return nil, err
		}
	}
	res.order = res.sortTables()
	return res, nil
}

func (r *Resolved) bindComponent(ti *TableInfo) error {
	reg := r.Registry
	t := ti.Table

	term, explicit, ok := t.Component(reg)
	switch {
	case ok:
		if prev, dup := r.byComponent[term.Name]; dup {
			if !explicit {
				r.Warnings = append(r.Warnings, Warning{
					Table: t.URL,
					Message: "file name suggests " + term.Name + ", already bound to " +
						prev.URL() + ", kept as custom table",
				})
				return nil
			}
			return metadata.SchemaError(
				"Tables <em>%s</em> and <em>%s</em> are both <em>%s</em>",
				prev.URL(), t.URL, term.Name,
			)
		}
		ti.Component = &term
		ti.Explicit = explicit
		r.byComponent[term.Name] = ti
		if explicit {
			if h, hok := reg.ComponentByFilename(t.URL); hok && h.Name != term.Name {
				r.Warnings = append(r.Warnings, Warning{
					Table: t.URL,
					Message: "file name suggests " + h.Name + ", annotation says " +
						term.Name,
				})
			}
		}
	case explicit:
		r.Warnings = append(r.Warnings, Warning{
			Table:   t.URL,
			Message: "unknown component " + t.ConformsTo,
		})
	}
	return nil
}

func (r *Resolved) resolveColumns(ti *TableInfo) error {
	reg := r.Registry
	t := ti.Table

	if t.AboutURL != "" {
		if _, err := uritemplate.New(t.AboutURL); err != nil {
			return metadata.SchemaError(
				"Invalid aboutUrl template of <em>%s</em>", t.URL,
			)
		}
	}

	for _, c := range t.Columns {
		for _, tmpl := range []string{c.AboutURL, c.ValueURL} {
			if tmpl == "" {
				continue
			}
			if _, err := uritemplate.New(tmpl); err != nil {
				return metadata.SchemaError(
					"Invalid URI template <em>%s</em> in <em>%s.%s</em>",
					tmpl, t.URL, c.Name,
				)
			}
		}
		if c.PropertyURL == "" {
			continue
		}
		p, ok := reg.Property(c.PropertyURL)
		if !ok {
			continue
		}
		if p.SingleValued && c.IsMultiValued() {
			return metadata.SchemaError(
				"Column <em>%s.%s</em> is bound to single-valued <em>%s</em> but has a separator",
				t.URL, c.Name, p.Name,
			)
		}
		for name, other := range ti.properties {
			if other.URI == p.URI {
				return metadata.SchemaError(
					"Columns <em>%s</em> and <em>%s</em> of <em>%s</em> are both bound to <em>%s</em>",
					name, c.Name, t.URL, p.Name,
				)
			}
		}
		ti.properties[c.Name] = p
	}
	return nil
}

func (r *Resolved) resolveForeignKeys(ti *TableInfo) error {
	t := ti.Table
	declared := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		target := r.byURL[fk.Resource]
		if err := checkTargetKey(target, fk.ReferenceColumns); err != nil {
			return err
		}
		ref := &ForeignKeyRef{
			Source:        t,
			SourceColumns: fk.ColumnReference,
			Target:        target.Table,
			TargetColumns: fk.ReferenceColumns,
		}
		if len(fk.ColumnReference) == 1 {
			declared[fk.ColumnReference[0]] = true
			ref.ListValued = t.Column(fk.ColumnReference[0]).IsMultiValued()
		}
		ti.ForeignKeys = append(ti.ForeignKeys, ref)
	}

	if ti.Component == nil {
		return nil
	}
	for _, c := range t.Columns {
		p, ok := ti.properties[c.Name]
		if !ok || !p.IsReference() || declared[c.Name] {
			continue
		}
		target, ok := r.byComponent[p.References]
		if !ok || len(target.Table.PrimaryKey) != 1 {
			continue
		}
		ti.ForeignKeys = append(ti.ForeignKeys, &ForeignKeyRef{
			Source:        t,
			SourceColumns: []string{c.Name},
			Target:        target.Table,
			TargetColumns: slices.Clone(target.Table.PrimaryKey),
			ListValued:    c.IsMultiValued(),
			Implicit:      true,
		})
	}
	return nil
}

// checkTargetKey requires foreign keys to point to the primary key. A table
// without a declared primary key can still be referenced by its column
// bound to the id property.
func checkTargetKey(target *TableInfo, cols []string) error {
	if slices.Equal(target.Table.PrimaryKey, cols) {
		return nil
	}
	if len(target.Table.PrimaryKey) == 0 && len(cols) == 1 {
		if p, ok := target.properties[cols[0]]; ok && p.Name == "id" {
			return nil
		}
	}
	return metadata.SchemaError(
		"Foreign key target <em>%s</em> must be the primary key of <em>%s</em>",
		strings.Join(cols, ","), target.URL(),
	)
}

// sortTables orders tables so that referenced tables come before the
// tables that reference them. Cycles keep the declaration order.
func (r *Resolved) sortTables() []*TableInfo {
	res := make([]*TableInfo, 0, len(r.tables))
	state := make(map[*TableInfo]int)
	var visit func(ti *TableInfo)
	visit = func(ti *TableInfo) {
		if state[ti] != 0 {
			return
		}
		state[ti] = 1
		for _, fk := range ti.ForeignKeys {
			if fk.Target != fk.Source {
				visit(r.byURL[fk.Target.URL])
			}
		}
		state[ti] = 2
		res = append(res, ti)
	}
	for _, ti := range r.tables {
		visit(ti)
	}
	return res
}

// Tables returns resolved tables in declaration order.
func (r *Resolved) Tables() []*TableInfo {
	return slices.Clone(r.tables)
}

// Ordered returns resolved tables with referenced tables first.
func (r *Resolved) Ordered() []*TableInfo {
	return slices.Clone(r.order)
}

// ComponentTable returns the table bound to a component name or URI.
func (r *Resolved) ComponentTable(component string) (*TableInfo, bool) {
	c, ok := r.Registry.Component(component)
	if !ok {
		return nil, false
	}
	ti, ok := r.byComponent[c.Name]
	return ti, ok
}

// ComponentFor returns the component of a table given by its URL.
func (r *Resolved) ComponentFor(url string) (terms.Term, bool) {
	ti, ok := r.byURL[url]
	if !ok || ti.Component == nil {
		return terms.Term{}, false
	}
	return *ti.Component, true
}

// PropertyFor returns the property bound to a column of a table.
func (r *Resolved) PropertyFor(url, column string) (terms.Term, bool) {
	ti, ok := r.byURL[url]
	if !ok {
		return terms.Term{}, false
	}
	return ti.Property(column)
}

// ForeignKeyReference returns the foreign key that starts at a single
// column of a table.
func (r *Resolved) ForeignKeyReference(url, column string) (*ForeignKeyRef, bool) {
	ti, ok := r.byURL[url]
	if !ok {
		return nil, false
	}
	for _, fk := range ti.ForeignKeys {
		if len(fk.SourceColumns) == 1 && fk.SourceColumns[0] == column {
			return fk, true
		}
	}
	return nil, false
}

// ReverseReferences returns foreign keys that point to a table.
func (r *Resolved) ReverseReferences(url string) []*ForeignKeyRef {
	var res []*ForeignKeyRef
	for _, ti := range r.tables {
		for _, fk := range ti.ForeignKeys {
			if fk.Target.URL == url {
				res = append(res, fk)
			}
		}
	}
	return res
}
