package iodb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gncldf/pkg/db"
	"github.com/gnames/gncldf/pkg/schema"
	_ "modernc.org/sqlite"
)

// sqliteOperator implements db.Operator for a SQLite file.
type sqliteOperator struct {
	path string
	db   *sql.DB
}

// NewSQLiteOperator creates a new SQLite operator (without opening a file).
func NewSQLiteOperator() db.Operator {
	return &sqliteOperator{}
}

// Connect opens or creates the SQLite file. Foreign keys are not enforced
// by SQLite connections unless asked for, which lets association rows
// reference sources missing from the bibliography.
func (s *sqliteOperator) Connect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
) error {
	sdb, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return OpenError(cfg.Path, err)
	}
	// one writer is all SQLite can serve
	sdb.SetMaxOpenConns(1)
	if err = sdb.PingContext(ctx); err != nil {
		sdb.Close()
		return OpenError(cfg.Path, err)
	}
	s.path = cfg.Path
	s.db = sdb
	slog.Info("Opened SQLite database", "path", cfg.Path)
	return nil
}

// Close closes the SQLite file.
func (s *sqliteOperator) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the database handle.
func (s *sqliteOperator) DB() *sql.DB {
	return s.db
}

// Dialect returns schema.SQLite.
func (s *sqliteOperator) Dialect() schema.Dialect {
	return schema.SQLite
}

// TableExists checks if a table exists in the file.
func (s *sqliteOperator) TableExists(
	ctx context.Context,
	tableName string,
) (bool, error) {
	if s.db == nil {
		return false, NotConnectedError()
	}
	q := `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, q, tableName).Scan(&n); err != nil {
		return false, TableExistsCheckError(tableName, err)
	}
	return n > 0, nil
}

// HasTables checks if the file has any tables.
func (s *sqliteOperator) HasTables(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, NotConnectedError()
	}
	q := `SELECT count(*) FROM sqlite_master WHERE type = 'table'`
	var n int
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return false, TableCheckError(err)
	}
	return n > 0, nil
}

// DropAllTables drops all tables of the file.
func (s *sqliteOperator) DropAllTables(ctx context.Context) error {
	if s.db == nil {
		return NotConnectedError()
	}
	q := `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return TableCheckError(err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			rows.Close()
			return TableCheckError(err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return TableCheckError(err)
	}

	for _, table := range tables {
		dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", schema.Quote(table))
		if _, err = s.db.ExecContext(ctx, dropSQL); err != nil {
			return DropTableError(table, err)
		}
	}
	return nil
}
