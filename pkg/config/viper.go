package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/chatzilla/pkg/dotdir"
)

// envPrefix namespaces every environment override, e.g. CHATZILLA_CLIENT_MODEL.
const envPrefix = "CHATZILLA"

// legacyEnv maps config keys to the unprefixed variables older .env files use.
// The prefixed variable wins when both are set.
var legacyEnv = map[string]string{
	"client.model":         "DEFAULT_MODEL",
	"client.chat_endpoint": "OLLAMA_CHAT",
}

// InitViper returns a viper instance layered, highest first, as:
//
//  1. CLI flags, once bound with BindRegisteredFlags
//  2. CHATZILLA_* environment variables, then the legacy names in legacyEnv
//  3. config.toml in the resolved .chatzilla/ directory
//  4. NewDefaultConfig
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", legacy, err)
		}
	}

	return v, nil
}

// setViperDefaults registers every key of NewDefaultConfig with viper.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, k := range configKeys {
		v.SetDefault(k.name, k.get(d))
	}
}
