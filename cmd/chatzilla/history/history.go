// Package historycmder provides the history command for inspecting saved
// history files and the conversation archive.
package historycmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/cmd/chatzilla/setup"
	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
	"github.com/papercomputeco/chatzilla/pkg/history"
	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/storage"
	"github.com/papercomputeco/chatzilla/pkg/utils"
)

const historyLongDesc string = `Inspect conversation histories.

  chatzilla history show <file>   Print a history file written by "chat --save" or "demo"
  chatzilla history list          List archived conversations
  chatzilla history get <id>      Print an archived conversation

list and get read the archive selected by storage.driver (sqlite or postgres).`

const historyShortDesc string = "Inspect saved and archived conversations"

var archiveFlags = []string{config.FlagStorageDriver, config.FlagSQLite, config.FlagPostgres}

// errNoArchive is returned by list and get when storage.driver is "none".
var errNoArchive = errors.New("no conversation archive configured; set storage.driver to sqlite or postgres")

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newGetCmd())

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print a saved history file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := history.Load(args[0])
			if err != nil {
				return err
			}
			printTurns(cmd.OutOrStdout(), turns)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			archive, closeArchive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer closeArchive()

			convs, err := archive.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(convs) == 0 {
				fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("No archived conversations."))
				return nil
			}

			for _, conv := range convs {
				fmt.Fprintf(out, "  %s  %s  %s  %s\n",
					cliui.HashStyle.Render(conv.ID),
					cliui.DimStyle.Render(conv.CreatedAt.Local().Format("2006-01-02 15:04:05")),
					cliui.NameStyle.Render(conv.Model),
					cliui.DimStyle.Render(fmt.Sprintf("%d turns  %s", len(conv.Turns), preview(conv))),
				)
			}
			return nil
		},
	}
	addArchiveFlags(cmd)
	return cmd
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print an archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, closeArchive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer closeArchive()

			conv, err := archive.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s %s\n  %s %s\n",
				cliui.KeyStyle.Render("Model:"), cliui.NameStyle.Render(conv.Model),
				cliui.KeyStyle.Render("Endpoint:"), cliui.DimStyle.Render(conv.Endpoint),
			)
			printTurns(out, conv.Turns)
			return nil
		},
	}
	addArchiveFlags(cmd)
	return cmd
}

func addArchiveFlags(cmd *cobra.Command) {
	for _, key := range archiveFlags {
		config.AddStringFlag(cmd, config.Flags, key, new(string))
	}
}

// openArchive opens the configured archive. The returned func closes it
// along with the log file.
func openArchive(cmd *cobra.Command) (storage.Driver, func() error, error) {
	v, configDir, err := setup.LoadViper(cmd, archiveFlags)
	if err != nil {
		return nil, nil, err
	}

	debug, _ := cmd.Flags().GetBool("debug")
	log, closeLog, err := setup.NewLogger(v, debug, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	archive, err := setup.NewStorageDriver(cmd.Context(), v, configDir, log)
	if err == nil && archive == nil {
		err = errNoArchive
	}
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}

	return archive, func() error { return errors.Join(archive.Close(), closeLog()) }, nil
}

func preview(conv *storage.Conversation) string {
	for _, turn := range conv.Turns {
		if turn.Role == llm.RoleUser {
			return utils.Truncate(turn.Content, 48)
		}
	}
	return ""
}

func printTurns(out io.Writer, turns []llm.Turn) {
	fmt.Fprintln(out)
	for _, turn := range turns {
		fmt.Fprintf(out, "%s%s\n\n", cliui.RoleLabel(turn.Role), turn.Content)
	}
}
