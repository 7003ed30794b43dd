// Package logger builds the *slog.Logger that chatzilla commands inject into
// the client, conversation, and persistence layers.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level      slog.Level
	pretty     bool
	json       bool
	source     bool
	sourceRoot string
	w          io.Writer
}

// New creates a logger. Without options it writes INFO and above as text to
// stderr. Source locations, when enabled, are relative to the module root.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo, w: os.Stderr, sourceRoot: moduleRoot()}
	for _, opt := range opts {
		opt(c)
	}

	if c.pretty && !c.json {
		return slog.New(charmlog.NewWithOptions(c.w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
			ReportCaller:    c.source,
		}))
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       c.level,
		AddSource:   c.source,
		ReplaceAttr: c.replaceSource,
	}
	if c.json {
		return slog.New(slog.NewJSONHandler(c.w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(c.w, handlerOpts))
}

// moduleRoot is the root of the module this binary was built from.
func moduleRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	// pkg/logger/logger.go
	return filepath.Dir(filepath.Dir(filepath.Dir(file)))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// replaceSource flattens the source attribute to "file:line", with file
// relative to sourceRoot when it lies inside it and a bare base name otherwise.
func (c *config) replaceSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}

	src, ok := a.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return a
	}

	file := filepath.Base(src.File)
	if c.sourceRoot != "" {
		rel, err := filepath.Rel(c.sourceRoot, src.File)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			file = filepath.ToSlash(rel)
		}
	}

	return slog.String(slog.SourceKey, file+":"+strconv.Itoa(src.Line))
}
