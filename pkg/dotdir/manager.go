// Package dotdir manages the .chatzilla/ and ~/.chatzilla directories.
//
// Besides config.toml, the directory holds the session state: the chat
// conversation a user can resume with "chatzilla chat --resume".
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".chatzilla"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .chatzilla/ directory to use,
// creating it when missing. An override wins; otherwise ./.chatzilla is
// used when it exists, and ~/.chatzilla when it does not.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		var err error
		if dir, err = m.defaultDir(); err != nil {
			return "", err
		}
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating chatzilla directory %s: %w", dir, err)
	}
	return dir, nil
}

func (m *Manager) defaultDir() (string, error) {
	if info, err := os.Stat(dirName); err == nil && info.IsDir() {
		return dirName, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
