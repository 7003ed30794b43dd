// Package configcmder provides the config command for managing persistent
// chatzilla configuration stored in the .chatzilla/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
)

const configLongDesc string = `Manage persistent chatzilla configuration.

Configuration is stored as config.toml in the .chatzilla/ directory and
provides default values for command flags. CLI flags and CHATZILLA_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.base_url, client.chat_endpoint, client.generate_endpoint, client.model,
  history.results_dir,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  log.pretty, log.json, log.file

Use subcommands to get, set, or list configuration values:
  chatzilla config set <key> <value>    Set a configuration value
  chatzilla config get <key>            Get a configuration value
  chatzilla config list                 List all configuration values

Examples:
  chatzilla config set client.model mistral
  chatzilla config set storage.driver sqlite
  chatzilla config get client.chat_endpoint
  chatzilla config list`

const configShortDesc string = "Manage persistent chatzilla configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

// openConfiger resolves the config directory and prints which file is used.
func openConfiger(out io.Writer, configDir string) (*config.Configer, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}

	return cfger, nil
}
