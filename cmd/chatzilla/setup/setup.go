// Package setup builds the client, logger, archive, and event publisher that
// chatzilla commands share, from the layered viper configuration.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/chatzilla/cmd/chatzilla/sqlitepath"
	"github.com/papercomputeco/chatzilla/pkg/config"
	"github.com/papercomputeco/chatzilla/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/chatzilla/pkg/eventstream/utils"
	"github.com/papercomputeco/chatzilla/pkg/history"
	"github.com/papercomputeco/chatzilla/pkg/logger"
	"github.com/papercomputeco/chatzilla/pkg/ollama"
	"github.com/papercomputeco/chatzilla/pkg/storage"
	"github.com/papercomputeco/chatzilla/pkg/storage/inmemory"
	"github.com/papercomputeco/chatzilla/pkg/storage/postgres"
	"github.com/papercomputeco/chatzilla/pkg/storage/sqlite"
)

// Runtime holds everything a command needs to talk to the server and record
// what happened.
type Runtime struct {
	Viper     *viper.Viper
	ConfigDir string
	Logger    *slog.Logger
	Client    *ollama.Client
	Saver     *history.Saver

	// Archive is nil when storage.driver is "none".
	Archive   storage.Driver
	Publisher eventstream.Publisher

	closeLog func() error
}

// LogFlags are the persistent log flags the root command registers.
var LogFlags = []string{config.FlagPretty, config.FlagJSON, config.FlagLogFile}

// LoadViper initializes viper for cmd and binds the registry flags it
// declares plus the inherited LogFlags.
func LoadViper(cmd *cobra.Command, flagKeys []string) (*viper.Viper, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, slices.Concat(flagKeys, LogFlags))
	return v, configDir, nil
}

// NewLogger builds the command logger from log.* settings and --debug. Every
// record carries its repo-relative source location. With log.file set, records also go to that file as JSON lines; the returned
// func closes it.
func NewLogger(v *viper.Viper, debug bool, w io.Writer) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(v.GetBool("log.pretty")),
		logger.WithJSON(v.GetBool("log.json")),
		logger.WithSource(true),
		logger.WithWriter(w),
	)

	path := v.GetString("log.file")
	if path == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithSource(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}

// New builds a Runtime. The archive and publisher are only opened when
// withArchive is set; commands that never converse skip them.
func New(ctx context.Context, cmd *cobra.Command, v *viper.Viper, configDir string, withArchive bool) (*Runtime, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	log, closeLog, err := NewLogger(v, debug, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Viper:     v,
		ConfigDir: configDir,
		Logger:    log,
		Client:    ollama.NewClient(ollama.WithLogger(log)),
		Saver:     history.NewSaver(v.GetString("history.results_dir"), history.WithLogger(log)),
		closeLog:  closeLog,
	}

	if !withArchive {
		return rt, nil
	}

	rt.Archive, err = NewStorageDriver(ctx, v, configDir, log)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	rt.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Provider: v.GetString("eventstream.provider"),
		Brokers:  v.GetString("eventstream.brokers"),
		Topic:    v.GetString("eventstream.topic"),
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	return rt, nil
}

// NewStorageDriver opens the archive selected by storage.driver, or returns
// nil for "none".
func NewStorageDriver(ctx context.Context, v *viper.Viper, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch driver := v.GetString("storage.driver"); driver {
	case "", config.StorageNone:
		return nil, nil

	case config.StorageMemory:
		log.Debug("using in-memory archive")
		return inmemory.NewDriver(), nil

	case config.StorageSQLite:
		path, err := sqlitepath.ResolveSQLitePath(v.GetString("storage.sqlite_path"), configDir)
		if err != nil {
			return nil, err
		}
		d, err := sqlite.NewSQLiteDriver(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite archive: %w", err)
		}
		log.Info("using SQLite archive", "path", path)
		return d, nil

	case config.StoragePostgres:
		dsn := v.GetString("storage.postgres_dsn")
		if dsn == "" {
			return nil, errors.New("storage.driver is postgres but storage.postgres_dsn is empty")
		}
		d, err := postgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres archive: %w", err)
		}
		log.Info("using PostgreSQL archive")
		return d, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}

// ConversationOptions wires the archive, publisher, logger, and configured
// model into a new conversation.
func (r *Runtime) ConversationOptions() []ollama.ConversationOption {
	opts := []ollama.ConversationOption{
		ollama.WithModel(r.Viper.GetString("client.model")),
		ollama.WithConversationLogger(r.Logger),
	}
	if r.Archive != nil {
		opts = append(opts, ollama.WithRecorder(r.Archive))
	}
	if r.Publisher != nil {
		opts = append(opts, ollama.WithPublisher(r.Publisher))
	}
	return opts
}

// Close releases the archive, the publisher, and the log file.
func (r *Runtime) Close() error {
	var errs []error
	if r.Publisher != nil {
		errs = append(errs, r.Publisher.Close())
	}
	if r.Archive != nil {
		errs = append(errs, r.Archive.Close())
	}
	if r.closeLog != nil {
		errs = append(errs, r.closeLog())
	}
	return errors.Join(errs...)
}
