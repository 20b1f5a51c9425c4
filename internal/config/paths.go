package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName = "fleetctl"
	settingsFile  = "settings.yaml"
	journalFile   = "journal.db"
)

// Dir returns the base config directory ($XDG_CONFIG_HOME/fleetctl or ~/.config/fleetctl).
func Dir() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		xdgConfig = filepath.Join(home, ".config")
	}

	return filepath.Join(xdgConfig, configDirName), nil
}

// EnsureDir creates the config directory if needed.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return dir, nil
}

// SettingsPath returns the default settings file location.
func SettingsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFile), nil
}

// ResolveJournalPath returns the configured journal path or the default one
// inside the config directory.
func (c *Config) ResolveJournalPath() (string, error) {
	if c.JournalPath != "" {
		return c.JournalPath, nil
	}
	dir, err := EnsureDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, journalFile), nil
}
