package dataset

import (
	"io"

	"github.com/gnames/gncldf/pkg/metadata"
	"github.com/gnames/gncldf/pkg/validate"
)

// noRows opens every table as an empty one.
type noRows struct{}

func (noRows) Open(*metadata.Table, metadata.Dialect) (validate.RowReader, error) {
	return emptyReader{}, nil
}

type emptyReader struct{}

func (emptyReader) Header() []string { return nil }

func (emptyReader) Next() ([]string, error) { return nil, io.EOF }

func (emptyReader) Close() error { return nil }

// url finds the URL of a table given by a component or a URL. The table
// group is searched directly if the schema does not resolve.
func (d *Dataset) url(table string) (string, error) {
	if res, err := d.Resolved(); err == nil {
		ti, err := res.Table(table)
		if err != nil {
			return "", err
		}
		return ti.URL(), nil
	}
	if t := d.tg.Table(table); t != nil {
		return t.URL, nil
	}
	if t := d.tg.ComponentTable(d.reg, table); t != nil {
		return t.URL, nil
	}
	return "", metadata.LookupError(table)
}

// Table returns a table by component name, component URI or URL. It
// fails with errcode.LookupError if there is no such table.
func (d *Dataset) Table(table string) (*metadata.Table, error) {
	res, err := d.Resolved()
	if err != nil {
		return nil, err
	}
	ti, err := res.Table(table)
	if err != nil {
		return nil, err
	}
	return ti.Table, nil
}

// GetTable is Table that returns nil for a missing table.
func (d *Dataset) GetTable(table string) *metadata.Table {
	t, err := d.Table(table)
	if err != nil {
		return nil
	}
	return t
}

// Column returns a column of a table by property URI, column name or
// property name. It fails with errcode.LookupError if the table or the
// column do not exist.
func (d *Dataset) Column(table, column string) (*metadata.Column, error) {
	res, err := d.Resolved()
	if err != nil {
		return nil, err
	}
	return res.Column(table, column)
}

// GetColumn is Column that returns nil for a missing table or column.
func (d *Dataset) GetColumn(table, column string) *metadata.Column {
	c, err := d.Column(table, column)
	if err != nil {
		return nil
	}
	return c
}

// Contains is true if the table, or the column of the table when given,
// exists.
func (d *Dataset) Contains(table string, column ...string) bool {
	res, err := d.Resolved()
	if err != nil {
		return false
	}
	return res.Contains(table, column...)
}

// Delete removes a table, or a column of the table when given.
func (d *Dataset) Delete(table string, column ...string) error {
	if len(column) == 0 {
		return d.RemoveTable(table)
	}
	c, err := d.Column(table, column[0])
	if err != nil {
		return err
	}
	return d.RemoveColumns(table, c.Name)
}

// AddTable adds a table.
func (d *Dataset) AddTable(t *metadata.Table) error {
	defer d.Invalidate()
	return d.tg.AddTable(t)
}

// AddComponent adds a table for a component with its default columns and
// adds primary and foreign keys implied by the columns.
func (d *Dataset) AddComponent(
	component string,
	opts ...metadata.ComponentOption,
) (*metadata.Table, error) {
	defer d.Invalidate()
	return d.tg.AddComponent(d.reg, component, opts...)
}

// RemoveTable removes a table and foreign keys that point to it.
func (d *Dataset) RemoveTable(table string) error {
	url, err := d.url(table)
	if err != nil {
		return err
	}
	defer d.Invalidate()
	return d.tg.RemoveTable(url)
}

// AddColumns adds columns to a table.
func (d *Dataset) AddColumns(table string, cols ...*metadata.Column) error {
	url, err := d.url(table)
	if err != nil {
		return err
	}
	defer d.Invalidate()
	if err = d.tg.AddColumns(url, cols...); err != nil {
		return err
	}
	return d.tg.AutoConstraints(d.reg)
}

// RemoveColumns removes columns of a table. Columns of the primary key
// and columns other tables refer to cannot be removed.
func (d *Dataset) RemoveColumns(table string, names ...string) error {
	url, err := d.url(table)
	if err != nil {
		return err
	}
	defer d.Invalidate()
	return d.tg.RemoveColumns(url, names...)
}

// RenameColumn renames a column and updates keys that use it.
func (d *Dataset) RenameColumn(table, oldName, newName string) error {
	url, err := d.url(table)
	if err != nil {
		return err
	}
	defer d.Invalidate()
	return d.tg.RenameColumn(url, oldName, newName)
}

// AddForeignKey adds a foreign key. Nil targetCols refer to the primary
// key of the target.
func (d *Dataset) AddForeignKey(
	table string,
	cols []string,
	target string,
	targetCols []string,
) error {
	url, err := d.url(table)
	if err != nil {
		return err
	}
	targetURL, err := d.url(target)
	if err != nil {
		return err
	}
	defer d.Invalidate()
	return d.tg.AddForeignKey(url, cols, targetURL, targetCols)
}
