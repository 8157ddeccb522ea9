// Package schema derives an SQL schema from a resolved CLDF dataset.
//
// Every table of a dataset becomes an SQL table named after its component,
// or after its URL when the table is not bound to a component. Columns
// bound to ontology properties are named "cldf_<property>", other columns
// keep their names. Single-valued foreign keys become SQL foreign keys.
// List-valued foreign keys and references to sources go to association
// tables "<A>_<B>" with the columns "<A>_<pk>", "<B>_<pk>" and "context".
// Bibliography entries are stored in SourceTable.
package schema

import (
	"time"
)

// Dialect is the SQL flavour of generated statements.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Kind tells how rows of a table are produced.
type Kind int

const (
	// DataTable rows are rows of a CSV table.
	DataTable Kind = iota
	// AssociationTable rows are list items of a CSV column.
	AssociationTable
	// SourcesTable rows are bibliography entries.
	SourcesTable
)

// SourceTableName is the name of the table with bibliography entries.
const SourceTableName = "SourceTable"

// DDLGenerator defines how Go models generate DDL.
type DDLGenerator interface {
	// TableDDL returns the CREATE TABLE statement for this model.
	TableDDL() string

	// IndexDDL returns CREATE INDEX statements for this model.
	// Returns empty slice if no indexes needed.
	IndexDDL() []string

	// TableName returns the SQL table name for this model.
	TableName() string
}

// Column is a column of an SQL table.
type Column struct {
	Name string
	// Source is the CSV column the values come from. It is empty for
	// columns of association tables and SourceTable.
	Source string
	// Base is the CSVW base datatype of the values.
	Base string
	// List is true for multi-valued CSV columns stored as joined text.
	List    bool
	NotNull bool
}

// ForeignKey is an SQL foreign key constraint.
type ForeignKey struct {
	Columns    []string
	Table      string
	RefColumns []string
}

// Table is an SQL table.
type Table struct {
	Name string
	Kind Kind
	// URL is the CSV table of a DataTable.
	URL         string
	Columns     []*Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	// Links fill an AssociationTable. Several list-valued columns
	// between the same two tables share one association table.
	Links []*Link
}

// Link describes how list items of a CSV column become rows of an
// association table.
type Link struct {
	Table *Table
	From  *Table
	To    *Table
	// FromKey is the CSV column with the primary key of From.
	FromKey string
	// Column is the CSV column with the list of keys.
	Column string
	// Sources is true for links to SourceTable. The context column then
	// holds the reference qualifier, otherwise the name of Column.
	Sources bool
}

// Dataset is the bookkeeping record of an imported dataset.
type Dataset struct {
	// ID is a UUID v5 derived from the title or the location of the
	// dataset.
	ID string `db:"id" ddl:"VARCHAR(36) PRIMARY KEY" gorm:"primaryKey;type:varchar(36)"`

	// Module is the CLDF module, for example "Wordlist".
	Module string `db:"module" ddl:"VARCHAR(50)" gorm:"type:varchar(50)"`

	// Title is dc:title of the metadata.
	Title string `db:"title" ddl:"TEXT" gorm:"type:text"`

	// Location is the metadata file, directory or URL of the dataset.
	Location string `db:"location" ddl:"TEXT" gorm:"type:text"`

	// TablesNum is the number of CSV tables.
	TablesNum int `db:"tables_num" ddl:"INTEGER" gorm:"type:integer"`

	// RecordsNum is the number of imported CSV rows.
	RecordsNum int `db:"records_num" ddl:"INTEGER" gorm:"type:integer"`

	// SourcesNum is the number of bibliography entries.
	SourcesNum int `db:"sources_num" ddl:"INTEGER" gorm:"type:integer"`

	// ImportedAt is the time the import finished.
	ImportedAt time.Time `db:"imported_at" ddl:"TIMESTAMP" gorm:"type:timestamp"`
}
