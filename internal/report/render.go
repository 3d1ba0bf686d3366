package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/reportmill/internal/models"
)

// htmlTemplate renders a full report document for email delivery.
var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"statusKeys": sortedKeys,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: Arial, sans-serif; line-height: 1.5; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
h1 { border-bottom: 2px solid #0052cc; padding-bottom: 8px; }
h2 { color: #0052cc; margin-top: 28px; }
table { border-collapse: collapse; width: 100%; margin: 10px 0; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; font-size: 13px; }
th { background-color: #f4f5f7; }
.metrics td { font-weight: bold; }
.summary { background-color: #f4f5f7; padding: 12px; border-left: 4px solid #0052cc; white-space: pre-line; }
.empty { color: #888; font-style: italic; }
.footer { color: #888; font-size: 11px; margin-top: 30px; border-top: 1px solid #eee; padding-top: 10px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>
{{if .Summary}}<div class="summary">{{.Summary}}</div>{{end}}
{{if .Metrics}}
<h2>Metrics</h2>
<table class="metrics">
<tr><td>Total issues</td><td>{{.Metrics.TotalIssues}}</td></tr>
<tr><td>Overdue</td><td>{{.Metrics.Overdue}}</td></tr>
<tr><td>Completed today</td><td>{{.Metrics.CompletedToday}}</td></tr>
<tr><td>Created today</td><td>{{.Metrics.CreatedToday}}</td></tr>
</table>
<table>
<tr><th>Status</th><th>Count</th></tr>
{{$m := .Metrics}}{{range statusKeys .Metrics.ByStatus}}<tr><td>{{.}}</td><td>{{index $m.ByStatus .}}</td></tr>
{{end}}</table>
{{end}}
{{range .Sections}}
<h2>{{.Name}} ({{len .Issues}})</h2>
{{if .Issues}}
<table>
<tr><th>Key</th><th>Summary</th><th>Status</th><th>Assignee</th><th>Priority</th></tr>
{{range .Issues}}<tr><td><a href="{{.URL}}">{{.Key}}</a></td><td>{{.Summary}}</td><td>{{.Status}}</td><td>{{if .Assignee}}{{.Assignee}}{{else}}Unassigned{{end}}</td><td>{{.Priority}}</td></tr>
{{end}}</table>
{{else}}<p class="empty">No issues matched.</p>{{end}}
{{end}}
<div class="footer">Automated report. Do not reply.</div>
</body>
</html>`))

// ToHTML renders the report as an HTML document. Pure function of the
// report, no I/O.
func ToHTML(report *models.ReportData) string {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, report); err != nil {
		// The template is compile-time constant; execution can only fail on
		// a broken writer, which bytes.Buffer is not.
		return fmt.Sprintf("failed to render report %s: %v", report.ID, err)
	}
	return buf.String()
}

// ToText renders the report as plain text. Pure function of the report.
func ToText(report *models.ReportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n%s\n", report.Title, strings.Repeat("=", len(report.Title)))
	if report.Description != "" {
		fmt.Fprintf(&b, "%s\n", report.Description)
	}
	fmt.Fprintf(&b, "Generated %s\n", report.GeneratedAt.Format("2006-01-02 15:04"))

	if report.Summary != "" {
		fmt.Fprintf(&b, "\nSummary\n-------\n%s", report.Summary)
	}

	if report.Metrics != nil {
		b.WriteString("\nMetrics\n-------\n")
		fmt.Fprintf(&b, "Total issues: %d\n", report.Metrics.TotalIssues)
		fmt.Fprintf(&b, "Overdue: %d\n", report.Metrics.Overdue)
		fmt.Fprintf(&b, "Completed today: %d\n", report.Metrics.CompletedToday)
		fmt.Fprintf(&b, "Created today: %d\n", report.Metrics.CreatedToday)
		for _, status := range sortedKeys(report.Metrics.ByStatus) {
			fmt.Fprintf(&b, "  %s: %d\n", status, report.Metrics.ByStatus[status])
		}
	}

	for _, section := range report.Sections {
		fmt.Fprintf(&b, "\n%s (%d)\n%s\n", section.Name, len(section.Issues), strings.Repeat("-", len(section.Name)))
		if len(section.Issues) == 0 {
			b.WriteString("No issues matched.\n")
			continue
		}
		for _, issue := range section.Issues {
			assignee := issue.Assignee
			if assignee == "" {
				assignee = "Unassigned"
			}
			fmt.Fprintf(&b, "%s  %s  [%s, %s, %s]\n  %s\n",
				issue.Key, issue.Summary, issue.Status, assignee, issue.Priority, issue.URL)
		}
	}

	return b.String()
}
