package resolver

import (
	"github.com/gnames/gncldf/pkg/metadata"
)

// GetTable finds a table by component URI, component name or table URL,
// in that order.
func (r *Resolved) GetTable(key string) (*TableInfo, bool) {
	if c, ok := r.Registry.Component(key); ok {
		if ti, ok := r.byComponent[c.Name]; ok {
			return ti, true
		}
	}
	ti, ok := r.byURL[key]
	return ti, ok
}

// Table is GetTable that fails with errcode.LookupError.
func (r *Resolved) Table(key string) (*TableInfo, error) {
	ti, ok := r.GetTable(key)
	if !ok {
		return nil, metadata.LookupError(key)
	}
	return ti, nil
}

// GetColumn finds a column of a table by property URI, column name or
// property name, in that order.
func (r *Resolved) GetColumn(table, column string) (*metadata.Column, bool) {
	ti, ok := r.GetTable(table)
	if !ok {
		return nil, false
	}
	return ti.GetColumn(column)
}

// Column is GetColumn that fails with errcode.LookupError.
func (r *Resolved) Column(table, column string) (*metadata.Column, error) {
	ti, err := r.Table(table)
	if err != nil {
		return nil, err
	}
	c, ok := ti.GetColumn(column)
	if !ok {
		return nil, metadata.LookupError(table + ":" + column)
	}
	return c, nil
}

// Contains is true if the table, or the column of the table when given,
// can be addressed.
func (r *Resolved) Contains(table string, column ...string) bool {
	if len(column) == 0 {
		_, ok := r.GetTable(table)
		return ok
	}
	_, ok := r.GetColumn(table, column[0])
	return ok
}

// GetColumn finds a column of the table by property URI, column name or
// property name, in that order.
func (ti *TableInfo) GetColumn(key string) (*metadata.Column, bool) {
	for _, c := range ti.Table.Columns {
		if p, ok := ti.properties[c.Name]; ok && p.URI == key {
			return c, true
		}
	}
	if c := ti.Table.Column(key); c != nil {
		return c, true
	}
	for _, c := range ti.Table.Columns {
		if p, ok := ti.properties[c.Name]; ok && p.Name == key {
			return c, true
		}
	}
	return nil, false
}

// Summary is a comparable view of a resolved schema.
type Summary struct {
	Module string
	Tables []TableSummary
}

// TableSummary describes a resolved table.
type TableSummary struct {
	URL         string
	Component   string
	PrimaryKey  []string
	Columns     []ColumnSummary
	ForeignKeys []ForeignKeySummary
}

// ColumnSummary describes a column with its property binding.
type ColumnSummary struct {
	Name      string
	Property  string
	Datatype  string
	Separator string
	Required  bool
}

// ForeignKeySummary describes a resolved foreign key.
type ForeignKeySummary struct {
	Columns       []string
	Target        string
	TargetColumns []string
	ListValued    bool
}

// Summary returns a comparable view of the resolved schema.
func (r *Resolved) Summary() Summary {
	res := Summary{Module: r.Module.Name}
	for _, ti := range r.tables {
		ts := TableSummary{
			URL:        ti.URL(),
			Component:  ti.ComponentName(),
			PrimaryKey: ti.Table.PrimaryKey,
		}
		for _, c := range ti.Table.Columns {
			cs := ColumnSummary{
				Name:      c.Name,
				Datatype:  c.Datatype.BaseOrDefault(),
				Separator: c.Separator,
				Required:  c.Required,
			}
			if p, ok := ti.properties[c.Name]; ok {
				cs.Property = p.Name
			}
			ts.Columns = append(ts.Columns, cs)
		}
		for _, fk := range ti.ForeignKeys {
			ts.ForeignKeys = append(ts.ForeignKeys, ForeignKeySummary{
				Columns:       fk.SourceColumns,
				Target:        fk.Target.URL,
				TargetColumns: fk.TargetColumns,
				ListValued:    fk.ListValued,
			})
		}
		res.Tables = append(res.Tables, ts)
	}
	return res
}
