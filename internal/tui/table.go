package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var tableColumns = []table.Column{
	{Title: "Severity", Width: 10},
	{Title: "Target", Width: 14},
	{Title: "ID", Width: 18},
	{Title: "Package", Width: 24},
	{Title: "Fixed In", Width: 14},
}

// buildRows converts finding rows to table rows.
func buildRows(rows []findingRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		fixed := row.Finding.FixedVersion
		if fixed == "" {
			fixed = "-"
		}
		out = append(out, table.Row{
			row.Finding.Severity,
			row.Target,
			truncate(row.Finding.ID, tableColumns[2].Width),
			truncate(row.Finding.PackageName, tableColumns[3].Width),
			truncate(fixed, tableColumns[4].Width),
		})
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return s[:maxLen]
	}
	return s[:maxLen-len(ellipsis)] + ellipsis
}

// newTable creates a bubbles table with standard columns and styling.
func newTable(rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)

	return t
}
