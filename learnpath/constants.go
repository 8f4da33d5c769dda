// Package learnpath holds application-wide defaults shared by the config,
// storage and CLI layers.
package learnpath

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName      = "learnpath"
	DefaultDatabaseType = "libsql"
	// DefaultEmbeddingDim matches the role and course vectors published by the model registry.
	DefaultEmbeddingDim = 768
)

var (
	DefaultConfigPath  = filepath.Join(userConfigDir(), DefaultAppName)
	DefaultCacheDir    = filepath.Join(userCacheDir(), DefaultAppName)
	DefaultDatabaseDir = filepath.Join(DefaultCacheDir, "db")
	DefaultDatabaseDSN = filepath.Join(DefaultDatabaseDir, "catalog.db")
)

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
