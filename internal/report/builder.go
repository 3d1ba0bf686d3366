package report

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reportmill/internal/models"
)

// IssueSearcher is the issue-tracker collaborator consumed by the builder.
type IssueSearcher interface {
	Search(jql string, limit int) ([]models.Issue, error)
}

// terminalStatuses are statuses treated as "done" for overdue and
// completed-today accounting.
var terminalStatuses = map[string]bool{
	"Done":      true,
	"Completed": true,
}

type Builder struct {
	tracker IssueSearcher
	now     func() time.Time
}

func NewBuilder(tracker IssueSearcher) *Builder {
	return &Builder{
		tracker: tracker,
		now:     time.Now,
	}
}

// Generate executes every configured query and assembles a report. A failed
// search degrades to an empty section rather than aborting the report; a
// partial report beats a fully failed one.
func (b *Builder) Generate(cfg models.ReportConfig) (*models.ReportData, error) {
	report := &models.ReportData{
		ID:          uuid.NewString(),
		Title:       cfg.Title,
		Description: cfg.Description,
		GeneratedAt: b.now(),
		Sections:    make([]models.ReportSection, 0, len(cfg.Queries)),
	}

	for _, q := range cfg.Queries {
		issues, err := b.tracker.Search(q.Query, q.Limit)
		if err != nil {
			log.Printf("Report section %q: search failed, continuing with empty section: %v", q.Name, err)
			issues = nil
		}
		if issues == nil {
			issues = []models.Issue{}
		}
		report.Sections = append(report.Sections, models.ReportSection{
			Name:   q.Name,
			Issues: issues,
		})
	}

	if cfg.IncludeMetrics || cfg.IncludeSummary {
		metrics := computeMetrics(flatten(report.Sections), b.now())
		if cfg.IncludeMetrics {
			report.Metrics = metrics
		}
		if cfg.IncludeSummary {
			report.Summary = buildSummary(report, metrics)
		}
	}

	return report, nil
}

func flatten(sections []models.ReportSection) []models.Issue {
	var all []models.Issue
	for _, s := range sections {
		all = append(all, s.Issues...)
	}
	return all
}

func computeMetrics(issues []models.Issue, now time.Time) *models.ReportMetrics {
	metrics := &models.ReportMetrics{
		TotalIssues: len(issues),
		ByStatus:    make(map[string]int),
		ByAssignee:  make(map[string]int),
		ByPriority:  make(map[string]int),
	}

	today := now.Format("2006-01-02")
	for _, issue := range issues {
		metrics.ByStatus[issue.Status]++

		assignee := issue.Assignee
		if assignee == "" {
			assignee = "Unassigned"
		}
		metrics.ByAssignee[assignee]++
		metrics.ByPriority[issue.Priority]++

		if issue.DueDate != nil && issue.DueDate.Before(now) && !terminalStatuses[issue.Status] {
			metrics.Overdue++
		}
		if terminalStatuses[issue.Status] && issue.Updated.Format("2006-01-02") == today {
			metrics.CompletedToday++
		}
		if issue.Created.Format("2006-01-02") == today {
			metrics.CreatedToday++
		}
	}

	return metrics
}

// buildSummary renders a deterministic plain-text digest of the report.
func buildSummary(report *models.ReportData, metrics *models.ReportMetrics) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total issues: %d\n", metrics.TotalIssues)

	if len(metrics.ByStatus) > 0 {
		b.WriteString("By status:\n")
		for _, status := range sortedKeys(metrics.ByStatus) {
			fmt.Fprintf(&b, "  %s: %d\n", status, metrics.ByStatus[status])
		}
	}

	fmt.Fprintf(&b, "Overdue: %d\n", metrics.Overdue)
	fmt.Fprintf(&b, "Completed today: %d\n", metrics.CompletedToday)
	fmt.Fprintf(&b, "Created today: %d\n", metrics.CreatedToday)

	b.WriteString("Sections:\n")
	for _, section := range report.Sections {
		fmt.Fprintf(&b, "  %s: %d issues\n", section.Name, len(section.Issues))
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
