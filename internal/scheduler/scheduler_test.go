package scheduler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/report"
)

// memStore is an in-memory persistence collaborator.
type memStore struct {
	reports map[string]*models.ScheduledReport
	runs    []*models.ReportRunResult
}

func newMemStore() *memStore {
	return &memStore{reports: make(map[string]*models.ScheduledReport)}
}

func (m *memStore) LoadReports() ([]*models.ScheduledReport, error) {
	var out []*models.ScheduledReport
	for _, r := range m.reports {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) SaveReport(r *models.ScheduledReport) error {
	c := *r
	m.reports[r.ID] = &c
	return nil
}

func (m *memStore) DeleteReport(id string) error {
	delete(m.reports, id)
	return nil
}

func (m *memStore) SaveRun(r *models.ReportRunResult) error {
	m.runs = append(m.runs, r)
	return nil
}

func (m *memStore) LoadHistory() ([]*models.ReportRunResult, error) {
	return nil, nil
}

type stubBuilder struct {
	report *models.ReportData
	err    error
}

func (b *stubBuilder) Generate(cfg models.ReportConfig) (*models.ReportData, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.report != nil {
		return b.report, nil
	}
	return &models.ReportData{Title: cfg.Title}, nil
}

type stubMailer struct {
	configErr error
	sendErr   string
	sent      int
}

func (m *stubMailer) IsConfigured() error { return m.configErr }

func (m *stubMailer) SendReport(rep *models.ReportData, delivery models.DeliveryConfig) models.DeliveryResult {
	m.sent++
	if m.sendErr != "" {
		return models.DeliveryResult{
			Success:    false,
			Recipients: delivery.Recipients,
			Error:      m.sendErr,
			Timestamp:  time.Now(),
		}
	}
	return models.DeliveryResult{
		Success:    true,
		Recipients: delivery.Recipients,
		Timestamp:  time.Now(),
	}
}

type stubTracker struct {
	err error
}

func (s *stubTracker) TestConnection() error { return s.err }

// searchFunc adapts a function to the report.IssueSearcher interface.
type searchFunc func(jql string, limit int) ([]models.Issue, error)

func (f searchFunc) Search(jql string, limit int) ([]models.Issue, error) { return f(jql, limit) }

func newTestScheduler(t *testing.T) (*Scheduler, *stubMailer) {
	t.Helper()

	mailer := &stubMailer{}
	s, err := New(newMemStore(), &stubBuilder{}, &stubTracker{}, mailer, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	// Fixed clock well before the 08:00 fire time so armed timers never
	// fire inside a test.
	s.now = func() time.Time { return time.Date(2024, 1, 2, 7, 0, 0, 0, time.Local) }
	t.Cleanup(s.StopAll)
	return s, mailer
}

func dailyReport(enabled bool) *models.ScheduledReport {
	return &models.ScheduledReport{
		Name: "Daily Status",
		Report: models.ReportConfig{
			Title:   "Daily Status",
			Queries: []models.JQLQuery{{Name: "Open", Query: "status != Done", Limit: 10}},
		},
		Schedule: models.ScheduleConfig{
			Enabled:   enabled,
			Frequency: models.FrequencyDaily,
			Time:      "08:00",
		},
		Delivery: models.DeliveryConfig{
			Recipients:  []string{"team@example.com"},
			IncludeText: true,
		},
	}
}

func (s *Scheduler) timerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func TestAddArmsTimerWhenEnabled(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(true)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if rep.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if got := s.timerCount(); got != 1 {
		t.Errorf("expected 1 pending timer, got %d", got)
	}
}

func TestAddDisabledReportHasNoTimer(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	if err := s.Add(dailyReport(false)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if got := s.timerCount(); got != 0 {
		t.Errorf("disabled report must have no pending timer, got %d", got)
	}
}

func TestAddRejectsWeeklyWithoutDays(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(true)
	rep.Schedule.Frequency = models.FrequencyWeekly
	rep.Schedule.Days = nil
	if err := s.Add(rep); !errors.Is(err, ErrNoDays) {
		t.Errorf("expected ErrNoDays, got %v", err)
	}
	if got := s.timerCount(); got != 0 {
		t.Errorf("rejected report must not arm a timer, got %d", got)
	}
}

func TestUpdateNeverDuplicatesTimers(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(true)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	enabled := true
	for i := 0; i < 2; i++ {
		if _, err := s.Update(rep.ID, models.ScheduledReportPatch{Enabled: &enabled}); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}
	if got := s.timerCount(); got != 1 {
		t.Errorf("expected exactly 1 pending timer after repeated enables, got %d", got)
	}
}

func TestUpdateDisableClearsTimer(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(true)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	disabled := false
	updated, err := s.Update(rep.ID, models.ScheduledReportPatch{Enabled: &disabled})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Enabled || updated.Schedule.Enabled {
		t.Error("expected both enabled flags cleared")
	}
	if got := s.timerCount(); got != 0 {
		t.Errorf("disabled report must have no pending timer, got %d", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	if _, err := s.Update("missing", models.ScheduledReportPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(true)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if s.Delete("missing") {
		t.Error("deleting an unknown id must return false")
	}
	if got := s.timerCount(); got != 1 {
		t.Errorf("failed delete must leave timers unchanged, got %d", got)
	}

	if !s.Delete(rep.ID) {
		t.Error("expected delete of existing report to return true")
	}
	if got := s.timerCount(); got != 0 {
		t.Errorf("expected timer cleared after delete, got %d", got)
	}
	if s.Delete(rep.ID) {
		t.Error("second delete of the same id must return false")
	}
}

func TestRunHistoryCappedAtFifty(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(false)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	var lastID string
	for i := 0; i < 60; i++ {
		run := s.RunReport(rep)
		lastID = run.ID
	}

	history := s.GetRunHistory()
	if len(history) != 50 {
		t.Fatalf("expected exactly 50 history entries after 60 runs, got %d", len(history))
	}
	if history[0].ID != lastID {
		t.Errorf("expected most recent run first, got %s", history[0].ID)
	}
}

func TestRunUpdatesLastRunOnFailure(t *testing.T) {
	t.Parallel()

	s, mailer := newTestScheduler(t)
	mailer.sendErr = "smtp transport: connection refused"

	rep := dailyReport(false)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	run := s.RunReport(rep)
	if run.Delivery.Success {
		t.Fatal("expected failed delivery")
	}

	stored, ok := s.Get(rep.ID)
	if !ok {
		t.Fatal("report disappeared")
	}
	if stored.LastRun == nil || stored.LastRun.Success {
		t.Error("expected LastRun to record the failure")
	}
	if stored.LastRun != nil && stored.LastRun.Error != run.Delivery.Error {
		t.Errorf("expected LastRun error %q, got %q", run.Delivery.Error, stored.LastRun.Error)
	}
}

func TestRunOfDeletedReportStillRecords(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	rep := dailyReport(false)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	snapshot, _ := s.Get(rep.ID)
	s.Delete(rep.ID)

	run := s.RunReport(snapshot)
	if run == nil {
		t.Fatal("expected a run result")
	}
	history := s.GetRunHistory()
	if len(history) != 1 || history[0].ID != run.ID {
		t.Error("expected the in-flight run of a deleted report to record its result")
	}
}

func TestTimerFireReschedules(t *testing.T) {
	t.Parallel()

	s, mailer := newTestScheduler(t)
	rep := dailyReport(true)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Drive the due-timer callback directly rather than waiting for the
	// wall clock.
	s.fire(rep.ID)

	if mailer.sent != 1 {
		t.Fatalf("expected one delivery, got %d", mailer.sent)
	}
	if got := s.timerCount(); got != 1 {
		t.Errorf("expected the fired report to be re-armed, got %d timers", got)
	}
	if len(s.GetRunHistory()) != 1 {
		t.Error("expected the fired run in history")
	}
}

func TestTimerFireOfDisabledReportDoesNothing(t *testing.T) {
	t.Parallel()

	s, mailer := newTestScheduler(t)
	rep := dailyReport(false)
	if err := s.Add(rep); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	s.fire(rep.ID)
	if mailer.sent != 0 {
		t.Errorf("disabled report must not run on a stale fire, got %d sends", mailer.sent)
	}
	if got := s.timerCount(); got != 0 {
		t.Errorf("disabled report must not re-arm, got %d timers", got)
	}
}

func TestStartAllRefusesWhenTrackerDown(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{}
	s, err := New(newMemStore(), &stubBuilder{}, &stubTracker{err: errors.New("401 unauthorized")}, mailer, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	t.Cleanup(s.StopAll)
	s.now = func() time.Time { return time.Date(2024, 1, 2, 7, 0, 0, 0, time.Local) }

	if err := s.Add(dailyReport(true)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	s.StopAll()

	err = s.StartAll()
	if err == nil || !strings.Contains(err.Error(), "issue tracker") {
		t.Fatalf("expected a descriptive tracker failure, got %v", err)
	}
	if got := s.timerCount(); got != 0 {
		t.Errorf("failed preflight must not partially arm, got %d timers", got)
	}
}

func TestStartAllRefusesWhenMailerUnconfigured(t *testing.T) {
	t.Parallel()

	mailer := &stubMailer{configErr: errors.New("smtp transport requires credentials")}
	s, err := New(newMemStore(), &stubBuilder{}, &stubTracker{}, mailer, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	t.Cleanup(s.StopAll)

	err = s.StartAll()
	if err == nil || !strings.Contains(err.Error(), "email delivery") {
		t.Fatalf("expected a descriptive mailer failure, got %v", err)
	}
}

func TestStartAllAndStopAll(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t)
	for i := 0; i < 3; i++ {
		if err := s.Add(dailyReport(true)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if err := s.Add(dailyReport(false)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	s.StopAll()
	if got := s.timerCount(); got != 0 {
		t.Fatalf("expected no timers after StopAll, got %d", got)
	}

	if err := s.StartAll(); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if got := s.timerCount(); got != 3 {
		t.Errorf("expected 3 timers for the enabled reports, got %d", got)
	}
}

func TestDefaultCEOReportEndToEnd(t *testing.T) {
	t.Parallel()

	critical := []models.Issue{
		{Key: "OPS-1", Summary: "Checkout down", Status: "In Progress", Priority: "Highest"},
		{Key: "OPS-2", Summary: "Login flaky", Status: "To Do", Priority: "High"},
	}
	searcher := searchFunc(func(jql string, limit int) ([]models.Issue, error) {
		if strings.Contains(jql, "priority in") {
			return critical, nil
		}
		return nil, nil
	})

	mailer := &stubMailer{}
	s, err := New(newMemStore(), report.NewBuilder(searcher), &stubTracker{}, mailer, nil)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}
	s.now = func() time.Time { return time.Date(2024, 1, 2, 7, 0, 0, 0, time.Local) }
	t.Cleanup(s.StopAll)

	rep, err := s.CreateDefaultCEOReport("ceo@x.com", "CEO", "pm@x.com", "PM")
	if err != nil {
		t.Fatalf("failed to create default report: %v", err)
	}
	if rep.Schedule.Frequency != models.FrequencyDaily || rep.Schedule.Time != "08:00" {
		t.Errorf("expected daily 08:00 schedule, got %s %s", rep.Schedule.Frequency, rep.Schedule.Time)
	}
	if len(rep.Schedule.Days) != 5 {
		t.Errorf("expected weekday day set, got %v", rep.Schedule.Days)
	}

	run := s.RunReport(rep)
	if len(run.Report.Sections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(run.Report.Sections))
	}
	if got := len(run.Report.Sections[0].Issues); got != 2 {
		t.Errorf("expected 2 critical issues in the first section, got %d", got)
	}
	for _, section := range run.Report.Sections[1:] {
		if len(section.Issues) != 0 {
			t.Errorf("expected empty section %q, got %d issues", section.Name, len(section.Issues))
		}
	}
	if len(run.Delivery.Recipients) != 1 || run.Delivery.Recipients[0] != "ceo@x.com" {
		t.Errorf("expected recipients to list only the CEO, got %v", run.Delivery.Recipients)
	}
	if !run.Delivery.Success {
		t.Error("expected delivery success from the stub transport")
	}
}
