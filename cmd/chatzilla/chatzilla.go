// Package chatzillacmder assembles the chatzilla root command.
package chatzillacmder

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/chatzilla/cmd/chatzilla/chat"
	configcmder "github.com/papercomputeco/chatzilla/cmd/chatzilla/config"
	democmder "github.com/papercomputeco/chatzilla/cmd/chatzilla/demo"
	historycmder "github.com/papercomputeco/chatzilla/cmd/chatzilla/history"
	pingcmder "github.com/papercomputeco/chatzilla/cmd/chatzilla/ping"
	promptcmder "github.com/papercomputeco/chatzilla/cmd/chatzilla/prompt"
	versioncmder "github.com/papercomputeco/chatzilla/cmd/version"
	"github.com/papercomputeco/chatzilla/pkg/config"
)

const chatzillaLongDesc string = `Chatzilla is a small client for a local Ollama server.

Talk to a model using:
  chatzilla prompt "..."   One-shot prompt, no history
  chatzilla chat           Interactive conversation with accumulated history
  chatzilla ping           Check that the server is up
  chatzilla demo           Run a scripted three-turn conversation and save it

Settings come from flags, CHATZILLA_* environment variables (a .env file in
the working directory is loaded first), and .chatzilla/config.toml.`

const chatzillaShortDesc string = "Chatzilla - Ollama chat client"

func NewChatzillaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatzilla",
		Short:         chatzillaShortDesc,
		Long:          chatzillaLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(".env")
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .chatzilla/ config directory")
	config.AddPersistentBoolFlag(cmd, config.Flags, config.FlagPretty, new(bool))
	config.AddPersistentBoolFlag(cmd, config.Flags, config.FlagJSON, new(bool))
	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagLogFile, new(string))

	// Add subcommands
	cmd.AddCommand(promptcmder.NewPromptCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(pingcmder.NewPingCmd())
	cmd.AddCommand(democmder.NewDemoCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadDotEnv exports the variables in path without overriding ones that are
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
