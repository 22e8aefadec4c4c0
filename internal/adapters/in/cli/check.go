package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/spaceport/internal/app"
	"github.com/bnema/spaceport/internal/domain"
)

// newCheckCmd creates the check command.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Long: `Load the configuration the way serve does and report every problem at
once. Exits non-zero when the configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kernel, err := app.NewKernel(configPath)
			if err != nil {
				writeProblems(cmd.ErrOrStderr(), err)
				return &ExitError{Code: 1}
			}
			defer kernel.Close()

			return writeCheckSummary(cmd.OutOrStdout(), kernel)
		},
	}
}

// writeProblems prints one line per joined error.
func writeProblems(w io.Writer, err error) {
	var problems []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		problems = joined.Unwrap()
	} else {
		problems = []error{err}
	}

	title := "configuration is invalid"
	if !errors.Is(err, domain.ErrInvalidConfig) {
		title = "configuration could not be loaded"
	}
	_, _ = fmt.Fprintln(w, styles.RenderError(title))
	for _, p := range problems {
		_, _ = fmt.Fprintf(w, "  %s %s\n", styles.IconArrow, p)
	}
}

func writeCheckSummary(w io.Writer, kernel *app.Kernel) error {
	topology := kernel.Topology()

	source := kernel.ConfigFile()
	if source == "" {
		source = "defaults"
	}

	names := make([]string, 0, len(topology.Processes))
	for _, p := range topology.Processes {
		names = append(names, fmt.Sprintf("%s (%s)", p.Name, p.Address()))
	}

	_, err := fmt.Fprintf(w, "%s\n  source:    %s\n  listen:    %s\n  routes:    %d\n  upstreams: %d\n  processes: %s\n",
		styles.RenderSuccess("configuration is valid"),
		source,
		topology.Listen,
		len(topology.Routes),
		len(topology.Upstreams),
		strings.Join(names, ", "),
	)
	return err
}
