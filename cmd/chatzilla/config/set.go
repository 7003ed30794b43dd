package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/pkg/cliui"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Write one key to config.toml, creating the file when needed. Enumerated
keys (storage.driver, eventstream.provider) and booleans are validated.

Examples:
  chatzilla config set client.model mistral
  chatzilla config set client.chat_endpoint http://gpu-box:11434/api/chat
  chatzilla config set storage.driver sqlite
  chatzilla config set log.pretty true`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := validateKey(key); err != nil {
				return err
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			cfger, err := openConfiger(out, configDir)
			if err != nil {
				return err
			}
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			fmt.Fprintf(out, "  %s Set %s = %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), renderValue(key, value))
			return nil
		},
	}
}
