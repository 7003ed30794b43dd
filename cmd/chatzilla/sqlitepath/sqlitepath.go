// Package sqlitepath locates the SQLite conversation archive.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/chatzilla/pkg/dotdir"
)

// FileName is the archive file created inside .chatzilla/ when none exists.
const FileName = "chatzilla.db"

// ResolveSQLitePath returns override when set, otherwise the first existing
// candidate archive, otherwise FileName inside the resolved .chatzilla/
// directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	for _, candidate := range sqliteCandidates(configDir) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func sqliteCandidates(configDir string) []string {
	if configDir != "" {
		return []string{filepath.Join(configDir, FileName)}
	}

	candidates := []string{
		FileName,
		filepath.Join(".chatzilla", FileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".chatzilla", FileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{filepath.Join(xdgHome, "chatzilla", FileName)}, candidates...)
	}

	return candidates
}
