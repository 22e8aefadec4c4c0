package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/bnema/spaceport/internal/adapters/in/cli/ui/styles"
)

const (
	cellPadding = 1
	ellipsis    = "..."
)

// column is a fixed-width table column. A zero width sizes the column to
// its content.
type column struct {
	title string
	width int
}

var (
	routeColumns = []column{
		{title: "Route", width: 14},
		{title: "Prefix", width: 24},
		{title: "Upstream", width: 36},
		{title: "Retry", width: 52},
	}
	processColumns = []column{
		{title: "Process", width: 14},
		{title: "State", width: 20},
		{title: "PID", width: 8},
		{title: "Restarts", width: 10},
		{title: "Exit", width: 6},
		{title: "Last error", width: 40},
	}
	upstreamColumns = []column{
		{title: "Upstream", width: 20},
		{title: "Address", width: 24},
		{title: "State", width: 10},
		{title: "Fails", width: 7},
	}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorPrimary).
			Padding(0, cellPadding)
	cellStyle = lipgloss.NewStyle().
			Foreground(styles.ColorText).
			Padding(0, cellPadding)
	borderStyle = lipgloss.NewStyle().Foreground(styles.ColorBorder)
)

// RouteTable renders routes as name, prefix, target and retry policy.
func RouteTable(rows [][]string) string {
	return renderTable(routeColumns, rows)
}

// ProcessTable renders one row per supervised process.
func ProcessTable(rows [][]string) string {
	return renderTable(processColumns, rows)
}

// UpstreamTable renders the passive health of each upstream.
func UpstreamTable(rows [][]string) string {
	return renderTable(upstreamColumns, rows)
}

func renderTable(columns []column, rows [][]string) string {
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = truncateCell(c.title, textWidth(c.width))
	}

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, value := range row {
			width := 0
			if j < len(columns) {
				width = columns[j].width
			}
			cells[i][j] = truncateCell(value, textWidth(width))
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := cellStyle
			if row == table.HeaderRow {
				style = headerStyle
			}
			if col >= 0 && col < len(columns) && columns[col].width > 0 {
				w := columns[col].width
				style = style.Width(w).MaxWidth(w)
			}
			return style
		}).
		String()
}

// textWidth is what a column of the given width leaves for text. lipgloss
// counts padding inside Width.
func textWidth(width int) int {
	if width <= 0 {
		return 0
	}
	return max(width-2*cellPadding, 1)
}

// truncateCell shortens value to maxWidth display cells, cutting on
// grapheme boundaries. Styled values are left alone since their escape
// sequences would be cut.
func truncateCell(value string, maxWidth int) string {
	if maxWidth <= 0 || strings.Contains(value, "\x1b[") {
		return value
	}
	if runewidth.StringWidth(value) <= maxWidth {
		return value
	}
	if maxWidth <= len(ellipsis) {
		return ellipsis[:maxWidth]
	}

	budget := maxWidth - len(ellipsis)
	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(value)
	for g.Next() {
		w := runewidth.StringWidth(g.Str())
		if used+w > budget {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	return b.String() + ellipsis
}
