package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/chatzilla/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// CurrentV is the config.toml layout this build reads and writes.
	CurrentV = 0
)

// Configer reads and writes config.toml inside a resolved .chatzilla/ directory.
type Configer struct {
	path string
}

// NewConfiger resolves the .chatzilla/ directory (override first) and
// points at the config.toml inside it. The file itself need not exist.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{path: path}, nil
}

// ValidConfigKeys returns every supported key in TOML section order.
func ValidConfigKeys() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

func IsValidConfigKey(key string) bool {
	_, err := lookupKey(key)
	return err == nil
}

// GetTarget returns the config.toml path, or "" when no directory was resolved.
func (c *Configer) GetTarget() string {
	return c.path
}

// LoadConfig reads config.toml. A missing file yields NewDefaultConfig; keys
// absent from the file take their default values.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.path == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewDefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults copies the default value of every empty string key into cfg.
// Booleans default to false, so they are left alone.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()
	for _, k := range configKeys {
		if k.get(cfg) == "" {
			_ = k.set(cfg, k.get(defaults))
		}
	}
}

// SaveConfig writes cfg to config.toml with owner-only permissions; the
// file may carry a Postgres DSN.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if c.path == "" {
		return errors.New("cannot save config: no .chatzilla directory resolved")
	}

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// SetConfigValue validates value for key and saves it.
func (c *Configer) SetConfigValue(key, value string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key, defaults included.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return k.get(cfg), nil
}

// ParseConfigTOML parses raw TOML bytes into a Config, rejecting versions
// other than CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}
