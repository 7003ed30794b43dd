// Package pingcmder provides the ping command, a liveness check against the
// inference server.
package pingcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatzilla/cmd/chatzilla/setup"
	"github.com/papercomputeco/chatzilla/pkg/cliui"
	"github.com/papercomputeco/chatzilla/pkg/config"
)

type pingCommander struct {
	url string
}

var pingFlags = []string{config.FlagBaseURL}

// ErrUnreachable is returned when no HTTP exchange with the server completed.
var ErrUnreachable = errors.New("server is not reachable")

const pingLongDesc string = `Check that the inference server answers.

Issues a GET against the base URL with a 5 second timeout and prints the
server's reply, whatever its status. A status other than 200 is logged as a
warning. Transport failures are logged with their category (connection,
timeout, or request) and the command exits non-zero.

Examples:
  chatzilla ping
  chatzilla ping --url http://gpu-box:11434`

const pingShortDesc string = "Check that the server is up"

func NewPingCmd() *cobra.Command {
	cmder := &pingCommander{}

	cmd := &cobra.Command{
		Use:   "ping",
		Short: pingShortDesc,
		Long:  pingLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.url)

	return cmd
}

func (c *pingCommander) run(cmd *cobra.Command) error {
	v, configDir, err := setup.LoadViper(cmd, pingFlags)
	if err != nil {
		return err
	}

	rt, err := setup.New(cmd.Context(), cmd, v, configDir, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	url := v.GetString("client.base_url")
	out := cmd.OutOrStdout()

	var body string
	err = cliui.Step(out, "Pinging "+url, func() error {
		var ok bool
		body, ok = rt.Client.Ping(cmd.Context(), url)
		if !ok {
			return ErrUnreachable
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(body))
	return nil
}
