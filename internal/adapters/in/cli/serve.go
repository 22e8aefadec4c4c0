package cli

import (
	"github.com/spf13/cobra"

	"github.com/bnema/spaceport/internal/app"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return newRunCmd(app.ModeServe,
		"Run the router and supervise every backend",
		`Bind the public port, start every configured process in order, wait for
each one to accept connections and route requests to them.

The command exits with the primary process' exit code when that process
terminates, 0 after SIGTERM or SIGINT, and 1 when startup fails.`)
}

// newRouteCmd creates the route command.
func newRouteCmd() *cobra.Command {
	return newRunCmd(app.ModeRoute,
		"Run the router only",
		`Bind the public port and route requests to backends managed elsewhere.`)
}

// newSuperviseCmd creates the supervise command.
func newSuperviseCmd() *cobra.Command {
	return newRunCmd(app.ModeSupervise,
		"Supervise the backends without routing",
		`Start every configured process in order and keep them running. No port is
bound by spaceport itself; a router may be one of the supervised processes.`)
}

func newRunCmd(mode app.Mode, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := app.Run(cmd.Context(), configPath, mode, Version)
			if code != 0 || err != nil {
				return &ExitError{Code: max(code, 1), Err: err}
			}
			return nil
		},
	}
}
