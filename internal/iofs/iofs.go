// Package iofs manages file system state of gncldf: its directories,
// the config file and the discovery of datasets on disk or on the web.
package iofs

import (
	_ "embed"
	"os"

	"github.com/gnames/gncldf/pkg/config"
	"github.com/gnames/gnsys"
)

//go:embed config.yaml
var ConfigYAML string

// EnsureDirs creates config, cache and log directories.
func EnsureDirs(homeDir string) error {
	dirs := []string{
		config.ConfigDir(homeDir),
		config.CacheDir(homeDir),
		config.LogDir(homeDir),
	}
	for _, v := range dirs {
		if err := touchDir(v); err != nil {
			return err
		}
	}
	return nil
}

func touchDir(dir string) error {
	if err := gnsys.MakeDir(dir); err != nil {
		return CreateDirError(dir, err)
	}
	return nil
}

// EnsureConfigFile writes the config template unless a config file
// exists already.
func EnsureConfigFile(homeDir string) error {
	configPath := config.ConfigFilePath(homeDir)

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	return WriteConfigFile(homeDir)
}

// WriteConfigFile writes the config template, replacing an existing
// config file.
func WriteConfigFile(homeDir string) error {
	if err := touchDir(config.ConfigDir(homeDir)); err != nil {
		return err
	}
	configPath := config.ConfigFilePath(homeDir)
	if err := os.WriteFile(configPath, []byte(ConfigYAML), 0644); err != nil {
		return CopyFileError(configPath, err)
	}
	return nil
}
