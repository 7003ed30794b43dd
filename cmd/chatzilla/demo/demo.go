// Package democmder provides the demo command: a scripted three-turn
// conversation whose history is saved at the end.
package democmder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/cmd/chatzilla/setup"
	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/ollama"
)

// Scripts are the canned conversations, keyed by set name. The first message
// opens the conversation and the rest follow it.
var Scripts = map[string][]string{
	"1": {
		"describe how to use llama3.1 to create an agentic workflow using a ReAct approach.",
		"if you do not know what llama3.1 is, can you search webpages to find out?",
		"do you know about ollama for self deployment of large language models?",
	},
	"2": {
		"what llm are you?",
		"if you do not know what llama3.1 is, can you search webpages to find out?",
		"describe in great detail how you search webpages: are you requesting data right now or just using pretrained data?",
	},
	"3": {
		"which large language model are you?",
		"does ollama search webpages or do you need to use a tool role?",
		"describe in great detail how you search webpages: are you requesting data right now or just using pretrained data?",
	},
}

type demoCommander struct {
	set string
}

var demoFlags = []string{
	config.FlagModel,
	config.FlagChatEndpoint,
	config.FlagResultsDir,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagEventProvider,
}

const demoLongDesc string = `Run a scripted three-turn conversation and save its history.

The first message opens the conversation, the next two follow up with the
whole history resent each time. The history is written to
<results-dir>/<MM_DD_YYYY>/run_<HH-MM-SS>.json when the script finishes.

Examples:
  chatzilla demo
  chatzilla demo --set 1 --model mistral`

const demoShortDesc string = "Run a scripted conversation and save it"

func NewDemoCmd() *cobra.Command {
	cmder := &demoCommander{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: demoShortDesc,
		Long:  demoLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if _, ok := Scripts[cmder.set]; !ok {
				return fmt.Errorf("unknown set %q (available: %s)", cmder.set, strings.Join(setNames(), ", "))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagChatEndpoint, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagResultsDir, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, new(string))
	cmd.Flags().StringVar(&cmder.set, "set", "3", "Which scripted conversation to run")

	return cmd
}

func setNames() []string {
	names := make([]string, 0, len(Scripts))
	for name := range Scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (c *demoCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	v, configDir, err := setup.LoadViper(cmd, demoFlags)
	if err != nil {
		return err
	}

	rt, err := setup.New(ctx, cmd, v, configDir, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Logger.Info("started", "set", c.set)

	conv := ollama.NewConversation(rt.Client, v.GetString("client.chat_endpoint"), rt.ConversationOptions()...)
	for i, msg := range Scripts[c.set] {
		var reply *llm.Reply
		err := cliui.Step(out, fmt.Sprintf("Turn %d", i+1), func() error {
			var err error
			if i == 0 {
				reply, err = conv.Begin(ctx, msg, llm.RoleUser)
			} else {
				reply, err = conv.Next(ctx, msg)
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}

		fmt.Fprintf(out, "\n%s%s\n", cliui.RoleLabel(llm.RoleUser), msg)
		fmt.Fprintf(out, "%s%s\n\n", cliui.RoleLabel(llm.RoleAssistant), cliui.RenderReply(out, reply.Text()))
	}

	rt.Logger.Info("finished", "turns", len(conv.History()))

	path, err := rt.Saver.Save(conv.History())
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}

	fmt.Fprintf(out, "  %s Saved %s\n", cliui.SuccessMark, cliui.DimStyle.Render(path))
	return nil
}
