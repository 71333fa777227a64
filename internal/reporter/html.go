package reporter

import (
	"html/template"
	"io"

	"github.com/dmelnik/buildgate/internal/models"
)

// HTMLReporter renders the combined scan report as a standalone HTML page.
type HTMLReporter struct {
	writer io.Writer
}

// NewHTMLReporter creates a new HTML reporter
func NewHTMLReporter(writer io.Writer) *HTMLReporter {
	return &HTMLReporter{
		writer: writer,
	}
}

// htmlReportData wraps the report with fields precomputed for the template.
type htmlReportData struct {
	*models.AggregateReport
	GeneratedAt string
	Severities  []string
	MaxTotal    int
	Clean       bool
}

// Generate renders the full HTML report
func (r *HTMLReporter) Generate(report *models.AggregateReport) error {
	maxTotal := 0
	for _, target := range report.Targets {
		if target.Total > maxTotal {
			maxTotal = target.Total
		}
	}

	data := htmlReportData{
		AggregateReport: report,
		GeneratedAt:     formatTimestamp(report.Timestamp),
		Severities:      severityColumns,
		MaxTotal:        maxTotal,
		Clean:           report.TotalFindings == 0,
	}

	return htmlTemplate.Execute(r.writer, data)
}

// severityColumns orders the table columns from most to least severe.
var severityColumns = []string{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
	models.SeverityUnknown,
}

var htmlFuncs = template.FuncMap{
	// barWidth scales a target's finding count against the largest
	// target so the widest bar always fills the column.
	"barWidth": func(total, max int) int {
		if max == 0 {
			return 0
		}
		return total * 100 / max
	},
	"severityClass": func(severity string) string {
		switch severity {
		case models.SeverityCritical:
			return "sev-critical"
		case models.SeverityHigh:
			return "sev-high"
		case models.SeverityMedium:
			return "sev-medium"
		case models.SeverityLow:
			return "sev-low"
		default:
			return "sev-unknown"
		}
	},
	"outcomeClass": func(label string) string {
		switch label {
		case "FAILED":
			return "outcome-failed"
		case "UNSTABLE":
			return "outcome-unstable"
		default:
			return "outcome-success"
		}
	},
	"count": func(bySeverity map[string]int, severity string) int {
		return bySeverity[severity]
	},
}

var htmlTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>BuildGate Scan Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem; color: #1f2328; }
h1 { font-size: 1.5rem; }
h2 { font-size: 1.2rem; margin-top: 2rem; }
table { border-collapse: collapse; width: 100%; margin-top: 0.5rem; }
th, td { border: 1px solid #d0d7de; padding: 0.4rem 0.7rem; text-align: left; font-size: 0.9rem; }
th { background: #f6f8fa; }
td.num { text-align: right; }
.outcome { display: inline-block; padding: 0.2rem 0.8rem; border-radius: 4px; color: #fff; font-weight: 600; }
.outcome-success { background: #1a7f37; }
.outcome-unstable { background: #bf8700; }
.outcome-failed { background: #cf222e; }
.sev-critical { color: #cf222e; font-weight: 600; }
.sev-high { color: #bc4c00; font-weight: 600; }
.sev-medium { color: #bf8700; }
.sev-low { color: #1a7f37; }
.sev-unknown { color: #656d76; }
.bar-track { background: #eef1f4; border-radius: 3px; width: 160px; height: 12px; }
.bar-fill { background: #cf222e; border-radius: 3px; height: 12px; }
.banner-clean { background: #dafbe1; border: 1px solid #1a7f37; border-radius: 6px; padding: 1rem; margin-top: 1rem; color: #1a7f37; font-weight: 600; }
.degraded { color: #bf8700; font-style: italic; font-size: 0.85rem; }
.meta { color: #656d76; font-size: 0.9rem; }
</style>
</head>
<body>
<h1>BuildGate Scan Report</h1>
<p class="meta">Generated {{.GeneratedAt}}{{if .Reference}} &middot; reference {{.Reference}} &middot; tag {{.Tag}}{{end}}</p>
<p>Outcome: <span class="outcome {{outcomeClass .OutcomeLabel}}">{{.OutcomeLabel}}</span></p>

{{if .Clean}}
<div class="banner-clean">No vulnerabilities found in any scanned image.</div>
{{end}}

<h2>Summary</h2>
<table>
<tr>
<th>Target</th>
<th>Image</th>
{{range .Severities}}<th>{{.}}</th>
{{end}}<th>Total</th>
<th>Reportable</th>
<th></th>
</tr>
{{range $target := .Targets}}
<tr>
<td>{{$target.Target}}{{if $target.Degraded}}<div class="degraded">scan output missing or unreadable</div>{{end}}</td>
<td>{{$target.ImageRef}}</td>
{{range $sev := $.Severities}}<td class="num {{severityClass $sev}}">{{count $target.BySeverity $sev}}</td>
{{end}}<td class="num">{{$target.Total}}</td>
<td class="num">{{$target.Reportable}}</td>
<td><div class="bar-track"><div class="bar-fill" style="width: {{barWidth $target.Total $.MaxTotal}}%"></div></div></td>
</tr>
{{end}}
</table>

{{range $result := .Findings}}
{{if $result.Findings}}
<h2>{{$result.Target}} ({{$result.ImageRef}})</h2>
<table>
<tr>
<th>Severity</th>
<th>ID</th>
<th>Package</th>
<th>Installed</th>
<th>Fixed In</th>
<th>Title</th>
</tr>
{{range $finding := $result.Findings}}
<tr>
<td class="{{severityClass $finding.Severity}}">{{$finding.Severity}}</td>
<td>{{$finding.ID}}</td>
<td>{{$finding.PackageName}}</td>
<td>{{$finding.InstalledVersion}}</td>
<td>{{if $finding.FixedVersion}}{{$finding.FixedVersion}}{{else}}&mdash;{{end}}</td>
<td>{{$finding.Title}}</td>
</tr>
{{end}}
</table>
{{end}}
{{end}}

{{if .Remediation}}
<h2>Recommended Actions</h2>
<table>
<tr>
<th>Severity</th>
<th>Target</th>
<th>Action</th>
<th>Impact</th>
</tr>
{{range $hint := .Remediation}}
<tr>
<td class="{{severityClass $hint.Severity}}">{{$hint.Severity}}</td>
<td>{{$hint.Target}}</td>
<td>{{$hint.Action}}</td>
<td>{{$hint.Impact}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))
