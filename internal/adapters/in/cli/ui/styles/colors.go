// Package styles provides the terminal styling used by the spaceport CLI.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for terminal output.
var (
	Neutral200 = lipgloss.Color("#e5e5e5")
	Neutral500 = lipgloss.Color("#737373")
	Neutral700 = lipgloss.Color("#404040")

	// Terminal neon colors (for dark terminal backgrounds)
	NeonGreen  = lipgloss.Color("#00ff88")
	NeonCyan   = lipgloss.Color("#00ccff")
	NeonRed    = lipgloss.Color("#ff4444")
	NeonYellow = lipgloss.Color("#fbbf24")

	// Semantic colors
	ColorPrimary = NeonGreen
	ColorSuccess = NeonGreen
	ColorWarning = NeonYellow
	ColorError   = NeonRed
	ColorInfo    = NeonCyan

	// Text colors
	ColorText      = Neutral200
	ColorTextMuted = Neutral500

	ColorBg     = lipgloss.Color("#000000")
	ColorBorder = Neutral700
)
