package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/spaceport/internal/adapters/dto"
	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/components"
	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/spaceport/internal/app"
)

const statusTimeout = 5 * time.Second

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	var (
		jsonOutput bool
		url        string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of a running spaceport",
		Long: `Query the health endpoint of a running spaceport and print the supervisor
state, every managed process and the passive health of every upstream.

Exits non-zero unless the reported status is ok.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				kernel, err := app.NewKernel(configPath)
				if err != nil {
					return err
				}
				defer kernel.Close()

				if kernel.HealthPath() == "" {
					return fmt.Errorf("health endpoint is disabled (router.health_path is empty)")
				}
				url = healthURL(kernel.Topology().Listen, kernel.HealthPath())
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()

			report, err := fetchHealth(ctx, url)
			if err != nil {
				return err
			}

			if jsonOutput {
				err = writeJSON(cmd.OutOrStdout(), report)
			} else {
				err = writeStatus(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}
			if report.Status != "ok" {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&url, "url", "", "Health endpoint URL (default derived from router.listen)")

	return cmd
}

// healthURL builds a loopback URL for a listen address such as ":7860".
func healthURL(listen, path string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}

func fetchHealth(ctx context.Context, url string) (*dto.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spaceport is not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	// 503 still carries a report.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var report dto.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode health report: %w", err)
	}
	return &report, nil
}

func writeStatus(w io.Writer, report *dto.HealthResponse) error {
	header := styles.Theme.Title.Render("spaceport") + " " + components.StateBadge(report.Status)
	if report.Managed {
		header += " " + styles.Theme.Muted.Render("supervisor") + " " + components.StateBadge(report.State)
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", header); err != nil {
		return err
	}

	if len(report.Processes) > 0 {
		rows := make([][]string, 0, len(report.Processes))
		for _, p := range report.Processes {
			pid, exit := "-", "-"
			if p.PID > 0 {
				pid = strconv.Itoa(p.PID)
			}
			if p.ExitCode != nil {
				exit = strconv.Itoa(*p.ExitCode)
			}
			lastErr := p.LastError
			if lastErr == "" {
				lastErr = "-"
			}
			rows = append(rows, []string{p.Name, components.StateBadge(p.State), pid, strconv.Itoa(p.Restarts), exit, lastErr})
		}
		if _, err := fmt.Fprintf(w, "%s\n", components.ProcessTable(rows)); err != nil {
			return err
		}
	}

	if len(report.Upstreams) > 0 {
		rows := make([][]string, 0, len(report.Upstreams))
		for _, u := range report.Upstreams {
			state := "up"
			if u.Down {
				state = "down"
			}
			rows = append(rows, []string{u.Name, u.Address, components.StateBadge(state), strconv.Itoa(u.Fails)})
		}
		if _, err := fmt.Fprintf(w, "%s\n", components.UpstreamTable(rows)); err != nil {
			return err
		}
	}
	return nil
}
