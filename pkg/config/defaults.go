package config

import (
	"github.com/papercomputeco/chatzilla/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatzilla/pkg/history"
	"github.com/papercomputeco/chatzilla/pkg/ollama"
)

// Storage drivers accepted by storage.driver.
const (
	StorageNone     = "none"
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Event publishers accepted by eventstream.provider.
const (
	EventsNop   = "nop"
	EventsKafka = "kafka"
)

// NewDefaultConfig returns the configuration used when config.toml is absent.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL:          ollama.DefaultBaseURL,
			ChatEndpoint:     ollama.Endpoint(ollama.DefaultBaseURL, ollama.ChatPath),
			GenerateEndpoint: ollama.Endpoint(ollama.DefaultBaseURL, ollama.GeneratePath),
			Model:            ollama.DefaultModel,
		},
		History: HistoryConfig{
			ResultsDir: history.DefaultRoot,
		},
		Storage: StorageConfig{
			Driver: StorageNone,
		},
		EventStream: EventStreamConfig{
			Provider: EventsNop,
			Topic:    kafka.DefaultTopic,
		},
	}
}
