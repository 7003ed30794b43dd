// Package promptcmder provides the prompt command: a single stateless
// completion with no conversation history.
package promptcmder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/cmd/chatzilla/setup"
	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
)

type promptCommander struct {
	model    string
	endpoint string
	full     bool
}

var promptFlags = []string{config.FlagModel, config.FlagGenerateEndpoint}

const promptLongDesc string = `Send a single prompt to the completion endpoint and print the reply.

No history is kept: every invocation is independent. With --full the whole
server payload (timings, token context, done reason) is printed as JSON
instead of just the reply text.

Examples:
  chatzilla prompt "What do you call a fake noodle?"
  chatzilla prompt --model mistral --full "Tell me a joke"`

const promptShortDesc string = "One-shot prompt with no history"

func NewPromptCmd() *cobra.Command {
	cmder := &promptCommander{}

	cmd := &cobra.Command{
		Use:   "prompt <text>",
		Short: promptShortDesc,
		Long:  promptLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagGenerateEndpoint, &cmder.endpoint)
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Print the full server payload as JSON")

	return cmd
}

func (c *promptCommander) run(cmd *cobra.Command, text string) error {
	v, configDir, err := setup.LoadViper(cmd, promptFlags)
	if err != nil {
		return err
	}

	rt, err := setup.New(cmd.Context(), cmd, v, configDir, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	reply, err := rt.Client.Prompt(cmd.Context(), text, v.GetString("client.model"), v.GetString("client.generate_endpoint"))
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if c.full {
		var buf bytes.Buffer
		if err := json.Indent(&buf, reply.Raw(), "", "  "); err != nil {
			return fmt.Errorf("formatting payload: %w", err)
		}
		fmt.Fprintln(out, buf.String())
		return nil
	}

	fmt.Fprintln(out, cliui.RenderReply(out, reply.Text()))
	return nil
}
