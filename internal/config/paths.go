package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigDir returns the default termsnap config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultConfigDirName
	}
	return filepath.Join(home, DefaultConfigDirName)
}

// DefaultConfigPath returns the default termsnap config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), DefaultConfigFileName)
}
