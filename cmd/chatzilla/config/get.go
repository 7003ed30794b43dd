package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/pkg/cliui"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Print the effective value of one key, falling back to its default when
config.toml does not set it.

Examples:
  chatzilla config get client.model
  chatzilla config get history.results_dir`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := validateKey(key); err != nil {
				return err
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			cfger, err := openConfiger(out, configDir)
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(key)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), renderValue(key, value))
			return nil
		},
	}
}
