package scheduler

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reportmill/internal/models"
)

var ErrNotFound = errors.New("scheduled report not found")

// ReportBuilder generates a report from a report configuration.
type ReportBuilder interface {
	Generate(cfg models.ReportConfig) (*models.ReportData, error)
}

// ReportMailer is the delivery gateway collaborator.
type ReportMailer interface {
	IsConfigured() error
	SendReport(rep *models.ReportData, delivery models.DeliveryConfig) models.DeliveryResult
}

// ConnectionTester reports whether the issue tracker is reachable.
type ConnectionTester interface {
	TestConnection() error
}

// RunNotifier is told about failed runs. Optional.
type RunNotifier interface {
	NotifyRunFailure(reportName string, run *models.ReportRunResult) error
}

// Store is the persistence collaborator: scheduled report configurations
// keyed by id plus a bounded run history.
type Store interface {
	LoadReports() ([]*models.ScheduledReport, error)
	SaveReport(report *models.ScheduledReport) error
	DeleteReport(id string) error
	SaveRun(run *models.ReportRunResult) error
	LoadHistory() ([]*models.ReportRunResult, error)
}

// Scheduler owns the scheduled report collection and one pending one-shot
// timer per enabled configuration. Timers are instance state; StopAll is
// the teardown. All collaborators are injected at construction.
type Scheduler struct {
	mu       sync.Mutex
	store    Store
	builder  ReportBuilder
	tracker  ConnectionTester
	mailer   ReportMailer
	notifier RunNotifier

	reports map[string]*models.ScheduledReport
	timers  map[string]*time.Timer
	history *runHistory

	now func() time.Time
}

func New(store Store, builder ReportBuilder, tracker ConnectionTester, mailer ReportMailer, notifier RunNotifier) (*Scheduler, error) {
	s := &Scheduler{
		store:    store,
		builder:  builder,
		tracker:  tracker,
		mailer:   mailer,
		notifier: notifier,
		reports:  make(map[string]*models.ScheduledReport),
		timers:   make(map[string]*time.Timer),
		history:  newRunHistory(historyCap),
		now:      time.Now,
	}

	reports, err := store.LoadReports()
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled reports: %v", err)
	}
	for _, rep := range reports {
		s.reports[rep.ID] = rep
	}

	runs, err := store.LoadHistory()
	if err != nil {
		return nil, fmt.Errorf("failed to load run history: %v", err)
	}
	s.history.preload(runs)

	return s, nil
}

// Add registers a new scheduled report, assigning an id when absent, and
// arms its timer when enabled.
func (s *Scheduler) Add(rep *models.ScheduledReport) error {
	if err := ValidateSchedule(rep.Schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	now := s.now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	rep.Enabled = rep.Schedule.Enabled

	s.reports[rep.ID] = rep
	if err := s.store.SaveReport(rep); err != nil {
		log.Printf("Warning: failed to persist scheduled report %s: %v", rep.ID, err)
	}

	if rep.Enabled {
		s.armLocked(rep)
	}
	return nil
}

// Update disarms any pending timer, merges the patch, persists, and
// re-arms when the merged configuration is enabled. The sequence is atomic
// per id: at no point do two timers exist for one configuration.
func (s *Scheduler) Update(id string, patch models.ScheduledReportPatch) (*models.ScheduledReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}

	merged := *rep
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Report != nil {
		merged.Report = *patch.Report
	}
	if patch.Schedule != nil {
		merged.Schedule = *patch.Schedule
	}
	if patch.Enabled != nil {
		merged.Schedule.Enabled = *patch.Enabled
	}
	if patch.Delivery != nil {
		merged.Delivery = *patch.Delivery
	}
	merged.Enabled = merged.Schedule.Enabled

	if err := ValidateSchedule(merged.Schedule); err != nil {
		return nil, err
	}

	s.disarmLocked(id)
	merged.UpdatedAt = s.now()
	*rep = merged
	if err := s.store.SaveReport(rep); err != nil {
		log.Printf("Warning: failed to persist scheduled report %s: %v", id, err)
	}

	if rep.Enabled {
		s.armLocked(rep)
	}

	out := *rep
	return &out, nil
}

// Delete disarms and removes a scheduled report. Returns false when the id
// is unknown; existing reports and timers are untouched in that case.
func (s *Scheduler) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return false
	}
	s.disarmLocked(id)
	delete(s.reports, id)
	if err := s.store.DeleteReport(id); err != nil {
		log.Printf("Warning: failed to delete scheduled report %s: %v", id, err)
	}
	return true
}

// Get returns a copy of one scheduled report.
func (s *Scheduler) Get(id string) (*models.ScheduledReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[id]
	if !ok {
		return nil, false
	}
	out := *rep
	return &out, true
}

// GetScheduledReports returns copies of all scheduled reports, oldest
// first.
func (s *Scheduler) GetScheduledReports() []*models.ScheduledReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.ScheduledReport, 0, len(s.reports))
	for _, rep := range s.reports {
		c := *rep
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetRunHistory returns run records newest-first, capped at 50.
func (s *Scheduler) GetRunHistory() []*models.ReportRunResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.list()
}

// RunReport executes one build-and-deliver cycle and records the outcome.
// Failures are recorded data, never control flow: a failed build or
// delivery yields a run record with Delivery.Success false. A run started
// for a report deleted or disabled in the meantime still completes and
// records its result; it just is not re-armed.
func (s *Scheduler) RunReport(rep *models.ScheduledReport) *models.ReportRunResult {
	log.Printf("Running scheduled report %q (%s)", rep.Name, rep.ID)

	data, err := s.builder.Generate(rep.Report)
	var delivery models.DeliveryResult
	if err != nil {
		delivery = models.DeliveryResult{
			Success:    false,
			Recipients: rep.Delivery.Recipients,
			Error:      fmt.Sprintf("report generation failed: %v", err),
			Timestamp:  s.now(),
		}
	} else {
		delivery = s.mailer.SendReport(data, rep.Delivery)
	}

	run := &models.ReportRunResult{
		ID:                uuid.NewString(),
		ScheduledReportID: rep.ID,
		Timestamp:         s.now(),
		Report:            data,
		Delivery:          delivery,
	}

	s.mu.Lock()
	s.history.record(run)
	if cur, ok := s.reports[rep.ID]; ok {
		cur.LastRun = &models.RunStatus{
			Timestamp: run.Timestamp,
			Success:   delivery.Success,
			Error:     delivery.Error,
		}
		cur.UpdatedAt = s.now()
		if err := s.store.SaveReport(cur); err != nil {
			log.Printf("Warning: failed to persist last run of %s: %v", rep.ID, err)
		}
	}
	s.mu.Unlock()

	if err := s.store.SaveRun(run); err != nil {
		log.Printf("Warning: failed to persist run %s: %v", run.ID, err)
	}

	if !delivery.Success {
		log.Printf("Scheduled report %q failed: %s", rep.Name, delivery.Error)
		if s.notifier != nil {
			if err := s.notifier.NotifyRunFailure(rep.Name, run); err != nil {
				log.Printf("Warning: failed to notify run failure: %v", err)
			}
		}
	}

	return run
}

// StartAll arms timers for every enabled report. It verifies the issue
// tracker and the delivery transport first and refuses to arm anything if
// either precondition fails; there is no partial arming.
func (s *Scheduler) StartAll() error {
	if err := s.tracker.TestConnection(); err != nil {
		return fmt.Errorf("issue tracker unavailable: %v", err)
	}
	if err := s.mailer.IsConfigured(); err != nil {
		return fmt.Errorf("email delivery not configured: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rep := range s.reports {
		if rep.Enabled {
			s.armLocked(rep)
		}
	}
	return nil
}

// StopAll disarms every pending timer. In-flight runs complete and record.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.disarmLocked(id)
	}
}

// CreateDefaultCEOReport adds a canned daily weekday 08:00 report with four
// standard sections, delivered to the CEO with the PM on CC.
func (s *Scheduler) CreateDefaultCEOReport(ceoEmail, ceoName, pmEmail, pmName string) (*models.ScheduledReport, error) {
	rep := &models.ScheduledReport{
		Name:        "Daily CEO Report",
		Description: fmt.Sprintf("Daily engineering status for %s, prepared with %s", ceoName, pmName),
		Report: models.ReportConfig{
			Title:          "Daily Engineering Status",
			Description:    "Critical, overdue, in-progress and recently completed work",
			IncludeMetrics: true,
			IncludeSummary: true,
			Queries: []models.JQLQuery{
				{Name: "Critical Issues", Query: `priority in (Highest, High) AND status != Done ORDER BY priority DESC, updated DESC`, Limit: 10},
				{Name: "Overdue Tasks", Query: `due < now() AND status not in (Done, Completed) ORDER BY due ASC`, Limit: 10},
				{Name: "In Progress", Query: `status = "In Progress" ORDER BY updated DESC`, Limit: 15},
				{Name: "Completed Yesterday", Query: `status changed to Done after -24h ORDER BY updated DESC`, Limit: 10},
			},
		},
		Schedule: models.ScheduleConfig{
			Enabled:   true,
			Frequency: models.FrequencyDaily,
			Time:      "08:00",
			Days:      []string{"1", "2", "3", "4", "5"},
			Timezone:  "America/New_York",
		},
		Delivery: models.DeliveryConfig{
			Recipients:  []string{ceoEmail},
			CC:          []string{pmEmail},
			IncludeHTML: true,
			IncludeText: true,
			Subject:     "Daily Engineering Status",
			Message:     fmt.Sprintf("Good morning %s, here is today's engineering status.", ceoName),
		},
	}

	if err := s.Add(rep); err != nil {
		return nil, err
	}

	out := *rep
	return &out, nil
}

// armLocked replaces any pending timer for the report with a fresh one-shot
// timer at the next fire time. Caller holds the lock.
func (s *Scheduler) armLocked(rep *models.ScheduledReport) {
	s.disarmLocked(rep.ID)

	now := s.now()
	next, err := NextFireTime(rep.Schedule, now)
	if err != nil {
		log.Printf("Not scheduling report %q (%s): %v", rep.Name, rep.ID, err)
		return
	}

	id := rep.ID
	s.timers[id] = time.AfterFunc(next.Sub(now), func() { s.fire(id) })
	log.Printf("Scheduled report %q (%s) for %s", rep.Name, id, next.Format(time.RFC3339))
}

func (s *Scheduler) disarmLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// fire is the due-timer callback: run, then re-arm unless the report was
// disabled or deleted while running.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	rep, ok := s.reports[id]
	if !ok || !rep.Enabled {
		s.mu.Unlock()
		return
	}
	snapshot := *rep
	s.mu.Unlock()

	s.RunReport(&snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.reports[id]; ok && cur.Enabled {
		s.armLocked(cur)
	}
}
