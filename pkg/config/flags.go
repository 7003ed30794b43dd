package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --model
// on both "chatzilla prompt" and "chatzilla chat").
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagModel            = "model"
	FlagChatEndpoint     = "chat-endpoint"
	FlagGenerateEndpoint = "generate-endpoint"
	FlagBaseURL          = "url"
	FlagResultsDir       = "results-dir"
	FlagStorageDriver    = "storage"
	FlagSQLite           = "sqlite"
	FlagPostgres         = "postgres"
	FlagEventProvider    = "events"
	FlagKafkaBrokers     = "kafka-brokers"
	FlagKafkaTopic       = "kafka-topic"
	FlagPretty           = "pretty"
	FlagJSON             = "json"
	FlagLogFile          = "log-file"
)

// Flags is the registry shared by every chatzilla command.
var Flags = FlagSet{
	FlagModel:            {Name: "model", Shorthand: "m", ViperKey: "client.model", Description: "Model to send requests to"},
	FlagChatEndpoint:     {Name: "endpoint", Shorthand: "e", ViperKey: "client.chat_endpoint", Description: "Chat endpoint URL"},
	FlagGenerateEndpoint: {Name: "endpoint", Shorthand: "e", ViperKey: "client.generate_endpoint", Description: "Completion endpoint URL"},
	FlagBaseURL:          {Name: "url", Shorthand: "u", ViperKey: "client.base_url", Description: "Inference server base URL"},
	FlagResultsDir:       {Name: "results-dir", ViperKey: "history.results_dir", Description: "Directory saved histories are written under"},
	FlagStorageDriver:    {Name: "storage", ViperKey: "storage.driver", Description: "Conversation archive (none, memory, sqlite, postgres)"},
	FlagSQLite:           {Name: "sqlite", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite archive"},
	FlagPostgres:         {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the archive"},
	FlagEventProvider:    {Name: "events", ViperKey: "eventstream.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagKafkaBrokers:     {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma-separated Kafka brokers"},
	FlagKafkaTopic:       {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for turn events"},
	FlagPretty:           {Name: "pretty", ViperKey: "log.pretty", Description: "Colorized log output"},
	FlagJSON:             {Name: "json", ViperKey: "log.json", Description: "JSON log output"},
	FlagLogFile:          {Name: "log-file", ViperKey: "log.file", Description: "Also append JSON log lines to this file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	addString(cmd.Flags(), fs, key, target)
}

// AddPersistentStringFlag is AddStringFlag for a flag every subcommand inherits.
func AddPersistentStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	addString(cmd.PersistentFlags(), fs, key, target)
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	addBool(cmd.Flags(), fs, key, target)
}

// AddPersistentBoolFlag is AddBoolFlag for a flag every subcommand inherits.
func AddPersistentBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	addBool(cmd.PersistentFlags(), fs, key, target)
}

func addString(flags *pflag.FlagSet, fs FlagSet, key string, target *string) {
	if def, ok := fs[key]; ok {
		flags.StringVarP(target, def.Name, def.Shorthand, defaultString(def.ViperKey), def.Description)
	}
}

func addBool(flags *pflag.FlagSet, fs FlagSet, key string, target *bool) {
	if def, ok := fs[key]; ok {
		flags.BoolVarP(target, def.Name, def.Shorthand, defaultBool(def.ViperKey), def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
