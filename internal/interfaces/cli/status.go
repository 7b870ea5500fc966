package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/keggminer/pkg/client"
	"github.com/turtacn/keggminer/pkg/errors"
)

// NewStatusCommand queries the status server of a running miner.
func NewStatusCommand() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show progress and health of a running keggminer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("server") {
				server = cliCtx.Config.Server.Addr
			}
			if server == "" {
				return errors.InvalidParam("no status server address; pass --server or set server.addr")
			}

			c, err := client.NewClient(server, client.WithTimeout(timeout))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			p, err := c.Progress(ctx)
			var apiErr *client.APIError
			switch {
			case errors.As(err, &apiErr) && apiErr.IsNotFound():
				fmt.Fprintln(out, "Pipeline:  none started")
			case err != nil:
				return err
			default:
				state := "finished"
				if p.Running {
					state = "running"
				}
				fmt.Fprintf(out, "Pipeline:  %s (%s)\n", p.Pipeline, state)
				fmt.Fprintf(out, "Progress:  %d/%d\n", p.Done, p.Total)
			}

			r, err := c.Readiness(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Readiness: %s\n", r.Status)
			names := make([]string, 0, len(r.Components))
			for name := range r.Components {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				comp := r.Components[name]
				line := fmt.Sprintf("  %-8s %s", name, comp.Status)
				if comp.Error != "" {
					line += ": " + comp.Error
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "status server address (default: server.addr from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
