// Package history writes conversation histories to timestamped JSON files
// laid out as <root>/<MM_DD_YYYY>/run_<HH-MM-SS>.json.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/logger"
)

const (
	// DefaultRoot is the results directory used when none is configured.
	DefaultRoot = "results"

	dayLayout  = "01_02_2006"
	fileLayout = "run_15-04-05"
)

// Saver writes histories under a results root.
type Saver struct {
	root   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Saver.
type Option func(*Saver)

// WithClock overrides time.Now, which names the day directory and file.
func WithClock(now func() time.Time) Option {
	return func(s *Saver) {
		s.now = now
	}
}

// WithLogger logs every saved path at INFO.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) {
		s.logger = l
	}
}

// NewSaver creates a Saver rooted at root, or DefaultRoot when root is empty.
func NewSaver(root string, opts ...Option) *Saver {
	if root == "" {
		root = DefaultRoot
	}

	s := &Saver{
		root:   root,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file a save at t would write.
func (s *Saver) Path(t time.Time) string {
	return filepath.Join(s.root, t.Format(dayLayout), t.Format(fileLayout)+".json")
}

// Save writes turns as an indented JSON array and returns the absolute path.
// The day directory is created with any missing parents. A second save within
// the same second overwrites the first.
func (s *Saver) Save(turns []llm.Turn) (string, error) {
	path, err := filepath.Abs(s.Path(s.now()))
	if err != nil {
		return "", fmt.Errorf("resolving history path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating history directory: %w", err)
	}

	data, err := Marshal(turns)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // results are meant to be readable
		return "", fmt.Errorf("writing history: %w", err)
	}

	s.logger.Info("saved conversation history", "path", path, "turns", len(turns))
	return path, nil
}

// Marshal encodes turns the way Save writes them: 2-space indented, with
// non-ASCII and HTML characters left unescaped.
func Marshal(turns []llm.Turn) ([]byte, error) {
	if turns == nil {
		turns = []llm.Turn{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(turns); err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads a history file written by Save.
func Load(path string) ([]llm.Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var turns []llm.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	return turns, nil
}

// Save writes turns under root using the current time.
func Save(root string, turns []llm.Turn) (string, error) {
	return NewSaver(root).Save(turns)
}
