package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/styles"
)

// Status represents a status type for rendering.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusWarning
	StatusInfo
	StatusPending
)

// ParseStatus maps health, supervisor and process states to a Status.
func ParseStatus(s string) Status {
	switch strings.ToLower(s) {
	case "ok", "ready", "running", "up", "healthy":
		return StatusSuccess
	case "failed", "down", "unhealthy":
		return StatusError
	case "backoff", "exited", "stopping", "shutting_down":
		return StatusWarning
	case "pending", "starting", "init", "router_starting", "router_up", "backend_starting":
		return StatusPending
	default:
		return StatusInfo
	}
}

// RenderStatusBadge renders a status as a badge with background.
func RenderStatusBadge(status Status, label string) string {
	var badgeStyle lipgloss.Style
	switch status {
	case StatusSuccess:
		badgeStyle = styles.Theme.BadgeSuccess
	case StatusError:
		badgeStyle = styles.Theme.BadgeError
	case StatusWarning:
		badgeStyle = styles.Theme.BadgeWarning
	case StatusPending:
		badgeStyle = styles.Theme.BadgePending
	default:
		badgeStyle = styles.Theme.BadgeInfo
	}
	return badgeStyle.Render(label)
}

// StateBadge renders a state string as a badge.
func StateBadge(state string) string {
	return RenderStatusBadge(ParseStatus(state), state)
}
