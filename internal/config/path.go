// Package config provides configuration utilities for the categorizer.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultStorePath is where the document store lives when the config names
// no other location.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "categorizer.db"
	}
	return filepath.Join(home, ".local", "share", "categorizer", "store.db")
}

// ExpandPath expands ~ and $VAR style environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
