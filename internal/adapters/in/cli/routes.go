package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/spaceport/internal/adapters/dto"
	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/components"
	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/spaceport/internal/app"
	"github.com/bnema/spaceport/internal/domain"
)

// newRoutesCmd creates the routes command.
func newRoutesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the effective route table",
		Long: `Print the route table in match order (longest prefix first) after
defaults, the config file and SPACEPORT_ environment overrides are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kernel, err := app.NewKernel(configPath)
			if err != nil {
				return err
			}
			defer kernel.Close()

			routes := routeInfos(kernel.Topology(), kernel.Router().Routes())
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), routes)
			}
			return writeRoutes(cmd.OutOrStdout(), kernel.Topology().Listen, routes)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func routeInfos(topology domain.Topology, rules []domain.RouteRule) []dto.RouteInfo {
	infos := make([]dto.RouteInfo, 0, len(rules))
	for _, rule := range rules {
		info := dto.RouteInfo{
			Name:        rule.Name,
			Prefix:      rule.Prefix,
			StripPrefix: rule.StripPrefix,
			Upstream:    rule.Upstream,
			Attempts:    max(rule.Retry.Attempts, 1),
		}
		if u, ok := topology.Upstream(rule.Upstream); ok {
			info.Address = u.Address()
		}
		if rule.Retry.Enabled() {
			if rule.Retry.Budget > 0 {
				info.Budget = rule.Retry.Budget.String()
			}
			for _, c := range rule.Retry.On {
				info.RetryOn = append(info.RetryOn, string(c))
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func writeRoutes(w io.Writer, listen string, routes []dto.RouteInfo) error {
	if len(routes) == 0 {
		_, err := fmt.Fprintln(w, styles.Theme.Muted.Render("No routes configured"))
		return err
	}

	rows := make([][]string, 0, len(routes))
	for _, r := range routes {
		prefix := r.Prefix
		if r.StripPrefix {
			prefix += " (strip)"
		}
		rows = append(rows, []string{
			r.Name,
			prefix,
			r.Upstream + " " + r.Address,
			describeRetry(r),
		})
	}

	_, err := fmt.Fprintf(w, "%s\n\n%s\n",
		styles.Theme.Title.Render("Routes on "+listen),
		components.RouteTable(rows),
	)
	return err
}

func describeRetry(r dto.RouteInfo) string {
	if r.Attempts <= 1 {
		return "-"
	}
	parts := []string{fmt.Sprintf("%d attempts", r.Attempts)}
	if r.Budget != "" {
		parts = append(parts, "within "+r.Budget)
	}
	if len(r.RetryOn) > 0 {
		parts = append(parts, "on "+strings.Join(r.RetryOn, ","))
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
