// Package cli implements the CLI adapter for spaceport.
// This package provides Cobra commands that delegate to the app layer.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/styles"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// configPath for every command. If empty, $SPACEPORT_CONFIG is used, then
// the first spaceport.toml in ., ~/.config/spaceport and /etc/spaceport.
var configPath string

// NewRootCmd creates the root command for the spaceport CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spaceport",
		Short: "spaceport - single-port router and process supervisor",
		Long: `spaceport exposes several local web backends on one public port.

Requests under /preview/ go to the preview backend with the prefix stripped,
everything else goes to the main backend. spaceport also starts the backends,
waits until they accept connections, restarts crashed ones and stops them all
on SIGTERM.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRouteCmd())
	rootCmd.AddCommand(newSuperviseCmd())
	rootCmd.AddCommand(newRoutesCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the CLI and returns the exit code of the program.
func Execute() int {
	return exitCode(os.Stderr, NewRootCmd().Execute())
}

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			_, _ = fmt.Fprintln(stderr, styles.RenderError(exitErr.Err.Error()))
		}
		return exitErr.Code
	}

	_, _ = fmt.Fprintln(stderr, styles.RenderError(err.Error()))
	return 1
}

// ExitError carries the exit code a command wants the program to end with.
// Err may be nil when the code alone is the outcome.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("spaceport %s\n", Version)
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Build Date: %s\n", BuildDate)
		},
	}
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		Commit = commit
	}
	if date != "" {
		BuildDate = date
	}
}
