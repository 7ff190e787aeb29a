// Package paths resolves the configuration and data directories of the
// fieldbase CLI. Relative results are made absolute against the working
// directory.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative directory names used when nothing overrides them.
const (
	DefaultConfigDirName = ".fieldbase"
	DefaultDataDirName   = ".fieldbase-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "FIELDBASE_CONFIG_DIR"
	EnvDataDir   = "FIELDBASE_DATA_DIR"
)

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > FIELDBASE_CONFIG_DIR env > $(CWD)/.fieldbase.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDirName, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > FIELDBASE_DATA_DIR env > $(CWD)/.fieldbase-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	return firstAbs(DefaultDataDirName, flag, configYAMLValue, os.Getenv(EnvDataDir))
}

// firstAbs returns the first non-empty candidate as an absolute path, or
// def joined to the working directory.
func firstAbs(def string, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, def), nil
}
