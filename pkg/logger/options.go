package logger

import (
	"io"
	"log/slog"
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithPretty switches to charmbracelet/log output with timestamps and colors.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON writes one JSON object per record. It wins over WithPretty.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter overrides the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.w = w
	}
}

// WithSource adds the calling file and line to every record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithSourceRoot renders source locations relative to root instead of the
// module root. Files outside root are shown by base name.
func WithSourceRoot(root string) Option {
	return func(c *config) {
		c.sourceRoot = root
	}
}
