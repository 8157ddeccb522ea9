// Package config provides configuration management for GNcldf.
//
// This package has no I/O dependencies (no file operations, no network calls).
// Validation functions may write user-facing warnings via gn.Warn().
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Validate: strict, skip_invalid_rows, format
//   - Write: zip_tables
//   - Database: driver, path, host, port, user, password, database,
//     ssl_mode, batch_size
//   - Log: level, format, destination
//   - General: jobs_number
//
// Runtime-only fields (CLI flags only):
//   - HomeDir (set once at startup)
//   - CacheDir (overrides the default cache location)
//
// # Environment Variables
//
// Use GNCLDF_ prefix with underscores for nesting:
//
//	GNCLDF_VALIDATE_STRICT=true
//	GNCLDF_DATABASE_DRIVER=postgres
//	GNCLDF_LOG_LEVEL=info
//	GNCLDF_JOBS_NUMBER=8
package config

import (
	"runtime"
)

// Config represents the complete GNcldf configuration.
type Config struct {
	// Validate contains settings of dataset validation.
	Validate ValidateConfig `mapstructure:"validate" yaml:"validate"`

	// Write contains settings of writing datasets.
	Write WriteConfig `mapstructure:"write" yaml:"write"`

	// Database contains settings of the SQL export.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of datasets validated concurrently.
	// Default value is set accoring to the number of available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string `yaml:"-"`

	// CacheDir keeps downloaded datasets. Empty means the default
	// location under HomeDir.
	CacheDir string `yaml:"-"`
}

// ValidateConfig contains settings of the validation engine.
type ValidateConfig struct {
	// Strict stops validation at the first invalid row.
	Strict bool `mapstructure:"strict" yaml:"strict"`

	// SkipInvalidRows drops invalid rows from row streams in report mode.
	// By default they are passed through with invalid cells retained.
	SkipInvalidRows bool `mapstructure:"skip_invalid_rows" yaml:"skip_invalid_rows"`

	// Format of the validation report: "text" or "json" (JSON lines).
	Format string `mapstructure:"format" yaml:"format"`
}

// WriteConfig contains settings of writing datasets.
type WriteConfig struct {
	// ZipTables stores every table as a deflate-compressed zip member.
	ZipTables bool `mapstructure:"zip_tables" yaml:"zip_tables"`
}

// DatabaseConfig contains SQL connection parameters.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	// Host is the PostgreSQL server hostname or IP address.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the PostgreSQL server port number.
	Port int `mapstructure:"port" yaml:"port"`

	// User is the PostgreSQL database username.
	User string `mapstructure:"user" yaml:"user"`

	// Password is the PostgreSQL database password.
	Password string `mapstructure:"password" yaml:"password"`

	// Database is the PostgreSQL database name to connect to.
	Database string `mapstructure:"database" yaml:"database"`

	// SSLMode specifies the SSL connection mode.
	// Valid values: "disable", "require", "verify-ca", "verify-full"
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode"`

	// BatchSize is the largest number of rows sent in one INSERT statement.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Validate: ValidateConfig{
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver:    "sqlite",
			Path:      "cldf.sqlite",
			Host:      "localhost",
			Port:      5432,
			User:      "postgres",
			Password:  "postgres",
			Database:  "cldf",
			SSLMode:   "disable",
			BatchSize: 10_000,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(), // Default to number of CPU threads
	}

	return res
}
