package styles

import "github.com/charmbracelet/lipgloss"

// Theme contains the composed styles of the CLI.
var Theme = struct {
	// Text styles
	Title lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style

	// Status styles
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style

	// Badge styles (compact status indicators)
	BadgeSuccess lipgloss.Style
	BadgeError   lipgloss.Style
	BadgeWarning lipgloss.Style
	BadgeInfo    lipgloss.Style
	BadgePending lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary),

	Muted: lipgloss.NewStyle().
		Foreground(ColorTextMuted),

	Bold: lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorText),

	Success: lipgloss.NewStyle().
		Foreground(ColorSuccess),

	Error: lipgloss.NewStyle().
		Foreground(ColorError),

	Warning: lipgloss.NewStyle().
		Foreground(ColorWarning),

	BadgeSuccess: lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorSuccess).
		Padding(0, 1),

	BadgeError: lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorError).
		Padding(0, 1),

	BadgeWarning: lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorWarning).
		Padding(0, 1),

	BadgeInfo: lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorInfo).
		Padding(0, 1),

	BadgePending: lipgloss.NewStyle().
		Foreground(ColorBg).
		Background(ColorTextMuted).
		Padding(0, 1),
}

// RenderError returns a styled error message.
func RenderError(msg string) string {
	return Theme.Error.Render(IconError + " " + msg)
}

// RenderSuccess returns a styled success message.
func RenderSuccess(msg string) string {
	return Theme.Success.Render(IconSuccess + " " + msg)
}

// RenderWarning returns a styled warning message.
func RenderWarning(msg string) string {
	return Theme.Warning.Render(IconWarning + " " + msg)
}
