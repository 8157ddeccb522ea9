// Package ioconfig loads configuration from config.yaml and environment
// variables. This is an impure package that handles file system
// operations.
package ioconfig

import (
	"os"
	"strings"

	"github.com/gnames/gncldf/internal/iofs"
	"github.com/gnames/gncldf/pkg/config"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables.
const EnvPrefix = "GNCLDF"

// Load reads config.yaml of homeDir, if it exists, and GNCLDF_*
// environment variables. Settings are applied on top of defaults,
// invalid ones are ignored with a warning.
// Precedence: env vars > config file > defaults.
func Load(homeDir string) (*config.Config, error) {
	cfgPath := config.ConfigFilePath(homeDir)
	v := viper.New()
	v.SetConfigType("yaml")
	initEnvVars(v)

	if _, err := os.Stat(cfgPath); err == nil {
		v.SetConfigFile(cfgPath)
		if err = v.ReadInConfig(); err != nil {
			return nil, iofs.ReadFileError(cfgPath, err)
		}
	}

	var fromViper config.Config
	if err := v.Unmarshal(&fromViper); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	res := config.New()
	res.Update(fromViper.ToOptions())
	return res, nil
}

// Generate writes the documented config template to homeDir. An existing
// config file is kept unless force is true. It returns the path of the
// config file.
func Generate(homeDir string, force bool) (string, error) {
	cfgPath := config.ConfigFilePath(homeDir)
	var err error
	if force {
		err = iofs.WriteConfigFile(homeDir)
	} else {
		err = iofs.EnsureConfigFile(homeDir)
	}
	if err != nil {
		return "", err
	}
	return cfgPath, nil
}

// Marshal renders persistent settings of a config as YAML.
func Marshal(cfg *config.Config) ([]byte, error) {
	persistent := config.New()
	persistent.Update(cfg.ToOptions())
	return yaml.Marshal(persistent)
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables are allowed.
	// These match the fields included in config.ToOptions() - i.e., persistent
	// configuration that can be stored in config.yaml.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Validation configuration
	_ = v.BindEnv("validate.strict", "GNCLDF_VALIDATE_STRICT")
	_ = v.BindEnv("validate.skip_invalid_rows", "GNCLDF_VALIDATE_SKIP_INVALID_ROWS")
	_ = v.BindEnv("validate.format", "GNCLDF_VALIDATE_FORMAT")

	// Write configuration
	_ = v.BindEnv("write.zip_tables", "GNCLDF_WRITE_ZIP_TABLES")

	// Database configuration
	_ = v.BindEnv("database.driver", "GNCLDF_DATABASE_DRIVER")
	_ = v.BindEnv("database.path", "GNCLDF_DATABASE_PATH")
	_ = v.BindEnv("database.host", "GNCLDF_DATABASE_HOST")
	_ = v.BindEnv("database.port", "GNCLDF_DATABASE_PORT")
	_ = v.BindEnv("database.user", "GNCLDF_DATABASE_USER")
	_ = v.BindEnv("database.password", "GNCLDF_DATABASE_PASSWORD")
	_ = v.BindEnv("database.database", "GNCLDF_DATABASE_DATABASE")
	_ = v.BindEnv("database.ssl_mode", "GNCLDF_DATABASE_SSL_MODE")
	_ = v.BindEnv("database.batch_size", "GNCLDF_DATABASE_BATCH_SIZE")

	// Log configuration
	_ = v.BindEnv("log.level", "GNCLDF_LOG_LEVEL")
	_ = v.BindEnv("log.format", "GNCLDF_LOG_FORMAT")
	_ = v.BindEnv("log.destination", "GNCLDF_LOG_DESTINATION")

	// General configuration
	_ = v.BindEnv("jobs_number", "GNCLDF_JOBS_NUMBER")

	v.AutomaticEnv()
}
