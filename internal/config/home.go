package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the promptsync home directory.
const HomeEnvVar = "PROMPTSYNC_HOME"

// GetHome returns the promptsync home directory
// Priority order:
//  1. PROMPTSYNC_HOME environment variable (if set)
//  2. ~/.promptsync
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(HomeEnvVar)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get user home directory: %w", err)
		}
		home = filepath.Join(userHome, StateDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create promptsync home directory: %w", err)
	}
	return home, nil
}

// GetHistoryDBPath returns the default application history database path
// Always returns: $PROMPTSYNC_HOME/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
