package models

import (
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// JQLQuery names one section of a report and the Jira search that fills it.
type JQLQuery struct {
	Name  string `json:"name"`
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type ReportConfig struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Queries        []JQLQuery `json:"queries"`
	IncludeMetrics bool       `json:"include_metrics"`
	IncludeCharts  bool       `json:"include_charts"`
	IncludeSummary bool       `json:"include_summary"`
}

// ScheduleConfig is the recurrence rule for a scheduled report.
// Days holds weekday indices "0".."6" for weekly schedules and day-of-month
// numbers for monthly ones. Timezone is stored for display; the recurrence
// math runs in the process-local zone.
type ScheduleConfig struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"`
	Time      string    `json:"time"` // HH:MM, 24h
	Days      []string  `json:"days"`
	Timezone  string    `json:"timezone"`
}

type DeliveryConfig struct {
	Recipients  []string `json:"recipients"`
	CC          []string `json:"cc,omitempty"`
	BCC         []string `json:"bcc,omitempty"`
	IncludeHTML bool     `json:"include_html"`
	IncludeText bool     `json:"include_text"`
	Subject     string   `json:"subject,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// RunStatus is the outcome of the most recent run of a scheduled report.
type RunStatus struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// ScheduledReport is a named automation unit: what to report on, when to
// run, and where to deliver. Enabled mirrors Schedule.Enabled.
type ScheduledReport struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Report      ReportConfig   `json:"report_config"`
	Schedule    ScheduleConfig `json:"schedule_config"`
	Delivery    DeliveryConfig `json:"delivery_config"`
	Enabled     bool           `json:"enabled"`
	LastRun     *RunStatus     `json:"last_run,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ScheduledReportPatch is a partial update; nil fields are left unchanged.
type ScheduledReportPatch struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Report      *ReportConfig   `json:"report_config,omitempty"`
	Schedule    *ScheduleConfig `json:"schedule_config,omitempty"`
	Delivery    *DeliveryConfig `json:"delivery_config,omitempty"`
	Enabled     *bool           `json:"enabled,omitempty"`
}

// Issue is the projection of a tracker issue consumed by reports.
type Issue struct {
	Key      string     `json:"key"`
	Summary  string     `json:"summary"`
	Status   string     `json:"status"`
	Assignee string     `json:"assignee,omitempty"`
	Priority string     `json:"priority"`
	Created  time.Time  `json:"created"`
	Updated  time.Time  `json:"updated"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Labels   []string   `json:"labels,omitempty"`
	URL      string     `json:"url"`
}

type ReportSection struct {
	Name   string  `json:"name"`
	Issues []Issue `json:"issues"`
}

type ReportMetrics struct {
	TotalIssues    int            `json:"total_issues"`
	ByStatus       map[string]int `json:"by_status"`
	ByAssignee     map[string]int `json:"by_assignee"`
	ByPriority     map[string]int `json:"by_priority"`
	Overdue        int            `json:"overdue"`
	CompletedToday int            `json:"completed_today"`
	CreatedToday   int            `json:"created_today"`
}

// ReportData is the output of one report build.
type ReportData struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sections    []ReportSection `json:"sections"`
	Metrics     *ReportMetrics  `json:"metrics,omitempty"`
	Summary     string          `json:"summary,omitempty"`
}

// DeliveryResult reports the outcome of one delivery attempt. Recipients
// lists the primary recipients only; CC/BCC are not counted.
type DeliveryResult struct {
	Success    bool      `json:"success"`
	MessageID  string    `json:"message_id,omitempty"`
	Recipients []string  `json:"recipients"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReportRunResult is the immutable record of one run. ScheduledReportID is
// a lookup back-reference, not an ownership edge.
type ReportRunResult struct {
	ID                string         `json:"id"`
	ScheduledReportID string         `json:"scheduled_report_id"`
	Timestamp         time.Time      `json:"timestamp"`
	Report            *ReportData    `json:"report"`
	Delivery          DeliveryResult `json:"delivery"`
}
