package tui

import (
	"fmt"
	"strings"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 5

// renderDetail produces the detail view for a selected finding.
func renderDetail(row *findingRow, width int) string {
	if row == nil {
		return styleDetailPanel.Width(width).Render("No finding selected")
	}

	var b strings.Builder

	finding := row.Finding
	sevStyled := severityStyle(finding.Severity).Render(finding.Severity)
	b.WriteString(fmt.Sprintf("%s  %s / %s\n", sevStyled, row.Target, finding.ID))
	b.WriteString(fmt.Sprintf("Package: %s %s", finding.PackageName, finding.InstalledVersion))
	if finding.FixedVersion != "" {
		b.WriteString(fmt.Sprintf(" (fixed in %s)", finding.FixedVersion))
	} else {
		b.WriteString(" (no fix available)")
	}
	b.WriteString("\n")

	if finding.Title != "" {
		b.WriteString(fmt.Sprintf("Title: %s\n", finding.Title))
	}
	if finding.Description != "" {
		b.WriteString(truncate(finding.Description, width*2))
	}

	return styleDetailPanel.Width(width).Render(b.String())
}
