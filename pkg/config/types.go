package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Config represents the persistent chatzilla configuration stored as
// config.toml in the .chatzilla/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	History     HistoryConfig     `toml:"history"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Log         LogConfig         `toml:"log"`
}

// ClientConfig holds the inference server endpoints and the default model.
// Endpoint values are full URLs (scheme + host + port + path).
type ClientConfig struct {
	BaseURL          string `toml:"base_url,omitempty"`
	ChatEndpoint     string `toml:"chat_endpoint,omitempty"`
	GenerateEndpoint string `toml:"generate_endpoint,omitempty"`
	Model            string `toml:"model,omitempty"`
}

type HistoryConfig struct {
	ResultsDir string `toml:"results_dir,omitempty"`
}

// StorageConfig selects the conversation archive.
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig selects where turn events are published.
// Brokers is a comma-separated list.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// LogConfig selects the console log format. File, when set, also receives
// every record as a JSON line.
type LogConfig struct {
	Pretty bool   `toml:"pretty,omitempty"`
	JSON   bool   `toml:"json,omitempty"`
	File   string `toml:"file,omitempty"`
}

// configKey is one user-facing dotted key and its accessors on *Config.
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

func stringKey(name string, field func(c *Config) *string) configKey {
	return configKey{
		name: name,
		get:  func(c *Config) string { return *field(c) },
		set:  func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// enumKey is a stringKey that only accepts one of allowed.
func enumKey(name string, field func(c *Config) *string, allowed ...string) configKey {
	k := stringKey(name, field)
	k.set = func(c *Config, v string) error {
		if !slices.Contains(allowed, v) {
			return fmt.Errorf("invalid value for %s: %q (expected one of %s)", name, v, strings.Join(allowed, ", "))
		}
		*field(c) = v
		return nil
	}
	return k
}

func boolKey(name string, field func(c *Config) *bool) configKey {
	return configKey{
		name: name,
		get:  func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys lists every supported key in TOML section order.
var configKeys = []configKey{
	stringKey("client.base_url", func(c *Config) *string { return &c.Client.BaseURL }),
	stringKey("client.chat_endpoint", func(c *Config) *string { return &c.Client.ChatEndpoint }),
	stringKey("client.generate_endpoint", func(c *Config) *string { return &c.Client.GenerateEndpoint }),
	stringKey("client.model", func(c *Config) *string { return &c.Client.Model }),
	stringKey("history.results_dir", func(c *Config) *string { return &c.History.ResultsDir }),
	enumKey("storage.driver", func(c *Config) *string { return &c.Storage.Driver },
		StorageNone, StorageMemory, StorageSQLite, StoragePostgres),
	stringKey("storage.sqlite_path", func(c *Config) *string { return &c.Storage.SQLitePath }),
	stringKey("storage.postgres_dsn", func(c *Config) *string { return &c.Storage.PostgresDSN }),
	enumKey("eventstream.provider", func(c *Config) *string { return &c.EventStream.Provider },
		EventsNop, EventsKafka),
	stringKey("eventstream.brokers", func(c *Config) *string { return &c.EventStream.Brokers }),
	stringKey("eventstream.topic", func(c *Config) *string { return &c.EventStream.Topic }),
	boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	stringKey("log.file", func(c *Config) *string { return &c.Log.File }),
}

func lookupKey(name string) (configKey, error) {
	i := slices.IndexFunc(configKeys, func(k configKey) bool { return k.name == name })
	if i < 0 {
		return configKey{}, fmt.Errorf("unknown config key: %q", name)
	}
	return configKeys[i], nil
}
