package db

import (
	"context"
	"database/sql"

	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/dataset"
	"github.com/gnames/gncldf/pkg/schema"
)

// Operator defines the interface for basic database management operations.
// It provides connection lifecycle management and exposes *sql.DB for
// SchemaManager and Populator to execute their statements.
type Operator interface {
	// Connect opens the database described by the config.
	Connect(context.Context, *config.DatabaseConfig) error

	// Close closes the database connection.
	Close() error

	// DB returns the connection used by high-level components.
	DB() *sql.DB

	// Dialect tells which SQL flavour the database speaks.
	Dialect() schema.Dialect

	// TableExists checks if a table exists in the database.
	TableExists(ctx context.Context, tableName string) (bool, error)

	// HasTables checks if the database has any tables.
	// Used to determine if schema creation needs --force.
	HasTables(ctx context.Context) (bool, error)

	// DropAllTables drops all tables of the database.
	DropAllTables(ctx context.Context) error
}

// SchemaManager creates the SQL schema of a dataset.
type SchemaManager interface {
	// Create creates tables of the schema and the bookkeeping tables.
	Create(ctx context.Context, s *schema.Schema) error
}

// Populator loads validated rows of a dataset into the database.
type Populator interface {
	// Populate inserts rows of all tables of the schema and records the
	// import in cldf_datasets.
	Populate(ctx context.Context, d *dataset.Dataset, s *schema.Schema) error
}
