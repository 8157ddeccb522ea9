// Package ioschema implements SchemaManager interface for
// database schema management. This is an impure I/O package
// that executes generated DDL and wraps GORM AutoMigrate for
// bookkeeping tables.
package ioschema

import (
	"context"
	"log/slog"

	"github.com/gnames/gncldf/pkg/db"
	"github.com/gnames/gncldf/pkg/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// manager implements the db.SchemaManager interface.
type manager struct {
	operator db.Operator
}

// NewManager creates a new SchemaManager.
func NewManager(op db.Operator) db.SchemaManager {
	return &manager{operator: op}
}

// Create creates tables of the dataset schema inside one transaction,
// referenced tables first, and then the cldf_datasets table.
func (m *manager) Create(ctx context.Context, s *schema.Schema) error {
	sdb := m.operator.DB()
	if sdb == nil {
		return NotConnectedError()
	}
	dialect := m.operator.Dialect()

	tx, err := sdb.BeginTx(ctx, nil)
	if err != nil {
		return CreateSchemaError("", err)
	}
	for _, q := range s.DDL(dialect) {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return CreateSchemaError(q, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return CreateSchemaError("", err)
	}
	slog.Info("Created dataset tables", "tables", len(s.Tables))

	return m.bookkeeping(ctx)
}

// bookkeeping creates cldf_datasets. PostgreSQL goes through GORM
// AutoMigrate, SQLite uses DDL generated from the model tags.
func (m *manager) bookkeeping(ctx context.Context) error {
	if m.operator.Dialect() != schema.Postgres {
		ds := schema.Dataset{}
		if _, err := m.operator.DB().ExecContext(ctx, ds.TableDDL()); err != nil {
			return CreateSchemaError(ds.TableDDL(), err)
		}
		return nil
	}

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: m.operator.DB()}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return GORMConnectionError(err)
	}
	if err = schema.Migrate(gormDB.WithContext(ctx)); err != nil {
		return CreateSchemaError("", err)
	}
	return nil
}
