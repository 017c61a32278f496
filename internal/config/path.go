// Package config resolves the CLI's configuration surface: viper keys into
// domain and pipeline settings, and user-supplied paths into usable ones.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves ~ and $VAR references in a user-supplied path, such
// as the run-history database location. A failed home-directory lookup
// leaves the tilde in place rather than guessing.
func ExpandPath(path string) string {
	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}
