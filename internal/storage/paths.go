// Package storage persists slowchess data: the saved game file, user
// preferences, statistics and an archive of finished games.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "slowchess"

// SaveFileName is the name of the saved game inside the data directory.
const SaveFileName = "slowchess_save.json"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/slowchess/
// - Linux: ~/.local/share/slowchess/
// - Windows: %LOCALAPPDATA%/slowchess/
func GetDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Local")
		}

	default:
		// Check XDG_DATA_HOME first
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	return ensureDir(filepath.Join(baseDir, appName))
}

// ResolveDataDir returns override if set, otherwise the platform directory.
// The directory is created if missing.
func ResolveDataDir(override string) (string, error) {
	if override != "" {
		return ensureDir(override)
	}
	return GetDataDir()
}

// GetDatabaseDir returns the BadgerDB directory under dataDir.
func GetDatabaseDir(dataDir string) (string, error) {
	return ensureDir(filepath.Join(dataDir, "db"))
}

// SavePath returns the saved game path under dataDir.
func SavePath(dataDir string) string {
	return filepath.Join(dataDir, SaveFileName)
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
