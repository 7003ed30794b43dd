// Package chatcmder provides the chat command for an interactive
// conversation with accumulated history.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/cmd/chatzilla/setup"
	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
	"github.com/papercomputeco/chatzilla/pkg/dotdir"
	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/ollama"
)

type chatCommander struct {
	model      string
	endpoint   string
	resultsDir string
	role       string
	system     string
	window     int
	save       bool
	resume     bool

	rt        *setup.Runtime
	conv      *ollama.Conversation
	opts      []ollama.ConversationOption
	configDir string
	out       io.Writer
}

var chatFlags = []string{
	config.FlagModel,
	config.FlagChatEndpoint,
	config.FlagResultsDir,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventProvider,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const chatLongDesc string = `Start an interactive conversation.

The server keeps no session state, so every message is sent together with
the whole conversation so far. The first message opens the conversation
with the role given by --role; --system opens it with a system prompt
instead.

If a request fails, the message stays in the history unanswered; /retry
sends it again. The conversation is kept in .chatzilla/session.json so
"chatzilla chat --resume" continues where the last session stopped.

Commands:
  /history   Print the conversation so far
  /save      Save the history to the results directory
  /retry     Resend an unanswered message
  /new       Forget the saved session and start over
  /exit      Quit (Ctrl+D works too)

Examples:
  chatzilla chat
  chatzilla chat --system "Answer in one sentence." --save
  chatzilla chat --resume --model mistral`

const chatShortDesc string = "Interactive conversation with history"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if _, err := llm.ParseRole(cmder.role); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagChatEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagResultsDir, &cmder.resultsDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, new(string))
	cmd.Flags().StringVar(&cmder.role, "role", string(llm.RoleUser), "Role of the opening message (user, assistant, system, tool)")
	cmd.Flags().StringVar(&cmder.system, "system", "", "Open the conversation with this system prompt")
	cmd.Flags().IntVar(&cmder.window, "window", 0, "Send only the system prompt and the last N turns (0 sends everything)")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Save the history to the results directory on exit")
	cmd.Flags().BoolVar(&cmder.resume, "resume", false, "Continue the saved session")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	c.out = cmd.OutOrStdout()

	v, configDir, err := setup.LoadViper(cmd, chatFlags)
	if err != nil {
		return err
	}
	c.configDir = configDir

	c.rt, err = setup.New(ctx, cmd, v, configDir, true)
	if err != nil {
		return err
	}
	defer c.rt.Close()

	endpoint := v.GetString("client.chat_endpoint")
	c.opts = c.rt.ConversationOptions()
	if c.window > 0 {
		c.opts = append(c.opts, ollama.WithWindow(llm.LastN(c.window)))
	}
	opts := c.opts

	fmt.Fprintln(c.out)
	if c.resume {
		state, err := dotdir.NewManager().LoadSession(configDir)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		if state != nil {
			opts = append(slices.Clone(opts),
				ollama.WithHistory(state.Turns),
				ollama.WithPending(state.Pending),
				ollama.WithConversationID(state.ConversationID),
			)
			fmt.Fprintf(c.out, "  %s Resuming %s %s\n",
				cliui.SuccessMark,
				cliui.HashStyle.Render(state.ConversationID),
				cliui.DimStyle.Render(fmt.Sprintf("(%d turns)", len(state.Turns))),
			)
		}
	}

	c.conv = ollama.NewConversation(c.rt.Client, endpoint, opts...)
	if len(c.conv.History()) == 0 {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.conv.Model()),
	)

	if c.system != "" && len(c.conv.History()) == 0 {
		c.send(ctx, func() (*llm.Reply, error) {
			return c.conv.Begin(ctx, c.system, llm.RoleSystem)
		})
	}

	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	if err := c.loop(ctx, cmd.InOrStdin()); err != nil {
		return err
	}

	if c.save {
		return c.saveHistory()
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, cliui.RoleLabel(llm.RoleUser))
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			return nil
		case "/history":
			c.printHistory()
			continue
		case "/save":
			if err := c.saveHistory(); err != nil {
				fmt.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
			}
			continue
		case "/retry":
			c.send(ctx, func() (*llm.Reply, error) { return c.conv.Retry(ctx) })
			continue
		case "/new":
			if err := dotdir.NewManager().ClearSession(c.configDir); err != nil {
				return err
			}
			c.conv = ollama.NewConversation(c.rt.Client, c.conv.Endpoint(), c.opts...)
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		if len(c.conv.History()) == 0 {
			role := llm.Role(c.role)
			c.send(ctx, func() (*llm.Reply, error) { return c.conv.Begin(ctx, input, role) })
		} else {
			c.send(ctx, func() (*llm.Reply, error) { return c.conv.Next(ctx, input) })
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// send runs one exchange, prints its outcome, and persists the session
// whether or not the exchange succeeded.
func (c *chatCommander) send(ctx context.Context, exchange func() (*llm.Reply, error)) {
	reply, err := exchange()
	switch {
	case errors.Is(err, ollama.ErrNothingPending):
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Nothing to retry."))
		return
	case err != nil:
		fmt.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("The message is kept; /retry sends it again."))
	default:
		fmt.Fprintf(c.out, "%s%s\n\n", cliui.RoleLabel(llm.RoleAssistant), cliui.RenderReply(c.out, reply.Text()))
	}

	state := &dotdir.SessionState{
		ConversationID: c.conv.ID(),
		Model:          c.conv.Model(),
		Endpoint:       c.conv.Endpoint(),
		Turns:          c.conv.History(),
		Pending:        c.conv.Pending(),
	}
	if err := dotdir.NewManager().SaveSession(state, c.configDir); err != nil {
		c.rt.Logger.WarnContext(ctx, "failed to save session", "error", err)
	}
}

func (c *chatCommander) printHistory() {
	fmt.Fprintln(c.out)
	for i, turn := range c.conv.History() {
		fmt.Fprintf(c.out, "  %s %s%s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%3d", i)),
			cliui.RoleLabel(turn.Role),
			turn.Content,
		)
	}
	if c.conv.Pending() {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("(last message unanswered)"))
	}
	fmt.Fprintln(c.out)
}

func (c *chatCommander) saveHistory() error {
	path, err := c.rt.Saver.Save(c.conv.History())
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}

	fmt.Fprintf(c.out, "  %s Saved %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(path))
	return nil
}
