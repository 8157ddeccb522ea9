// Package iotesting provides shared test utilities: in-memory tables,
// dataset fixtures and configuration of integration tests.
// This is an internal package for test infrastructure only.
package iotesting

import (
	"testing"

	"github.com/gnames/gncldf/internal/ioconfig"
	"github.com/gnames/gncldf/pkg/config"
)

const (
	// TestDatabaseName is the database name used for all PostgreSQL
	// integration tests. This ensures tests never accidentally run against
	// production databases.
	TestDatabaseName = "gncldf_test"
)

// GetTestConfig returns a configuration suitable for integration tests.
// It loads GNCLDF_* environment variables on top of defaults, with
// config files kept in a temporary home directory.
func GetTestConfig(t *testing.T) *config.Config {
	t.Helper()
	home := t.TempDir()
	cfg, err := ioconfig.Load(home)
	if err != nil {
		t.Fatalf("Failed to load test config: %v", err)
	}
	cfg.Update([]config.Option{config.OptHomeDir(home)})
	return cfg
}

// GetTestDatabaseConfig returns PostgreSQL settings for integration tests,
// or nil when GNCLDF_DATABASE_DRIVER is not "postgres".
//
// Usage in integration tests:
//
//	func TestSomething(t *testing.T) {
//	    cfg := iotesting.GetTestDatabaseConfig(t)
//	    if cfg == nil {
//	        t.Skip("PostgreSQL is not configured")
//	    }
//	    // ... use cfg for database operations
//	}
func GetTestDatabaseConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	cfg := GetTestConfig(t)
	if cfg.Database.Driver != "postgres" {
		return nil
	}
	// Always use test database for safety
	cfg.Update([]config.Option{config.OptDatabaseDatabase(TestDatabaseName)})
	return &cfg.Database
}

// SetupTempHome creates a temporary home directory and points HOME to
// it for the duration of a test. This prevents tests from touching
// ~/.config/gncldf and ~/.cache/gncldf.
func SetupTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}
