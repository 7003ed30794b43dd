package configcmder

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List every configuration key with its effective value from config.toml,
defaults included. Passwords in storage.postgres_dsn are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			cfger, err := openConfiger(out, configDir)
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()
			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}
			keyCol := cliui.KeyStyle.Width(width)

			for _, key := range keys {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s  %s\n", keyCol.Render(key), renderValue(key, value))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// renderValue styles value for display, masking a DSN password.
func renderValue(key, value string) string {
	if value == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	if key == "storage.postgres_dsn" {
		if u, err := url.Parse(value); err == nil && u.User != nil {
			value = u.Redacted()
		}
	}
	return cliui.ValueStyle.Render(value)
}
