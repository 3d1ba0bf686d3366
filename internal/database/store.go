package database

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reportmill/internal/models"
)

// runHistoryCap bounds the number of persisted run records.
const runHistoryCap = 50

// ScheduledReportRow persists one scheduled report configuration. The full
// configuration is kept as a JSON payload; the indexed columns exist for
// listing and filtering.
type ScheduledReportRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	Enabled   bool
	Payload   string `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReportRunRow persists one immutable run record.
type ReportRunRow struct {
	ID                string    `gorm:"primaryKey"`
	ScheduledReportID string    `gorm:"index"`
	Timestamp         time.Time `gorm:"index"`
	Success           bool
	Payload           string    `gorm:"type:json"`
}

// Store is the persistence collaborator for the scheduler: scheduled report
// configurations keyed by id plus a bounded run history.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadReports() ([]*models.ScheduledReport, error) {
	var rows []ScheduledReportRow
	if err := s.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load scheduled reports: %v", err)
	}

	reports := make([]*models.ScheduledReport, 0, len(rows))
	for _, row := range rows {
		var report models.ScheduledReport
		if err := json.Unmarshal([]byte(row.Payload), &report); err != nil {
			return nil, fmt.Errorf("failed to decode scheduled report %s: %v", row.ID, err)
		}
		reports = append(reports, &report)
	}
	return reports, nil
}

func (s *Store) SaveReport(report *models.ScheduledReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode scheduled report %s: %v", report.ID, err)
	}

	row := ScheduledReportRow{
		ID:        report.ID,
		Name:      report.Name,
		Enabled:   report.Enabled,
		Payload:   string(payload),
		CreatedAt: report.CreatedAt,
		UpdatedAt: report.UpdatedAt,
	}
	return s.db.Save(&row).Error
}

func (s *Store) DeleteReport(id string) error {
	return s.db.Delete(&ScheduledReportRow{}, "id = ?", id).Error
}

// SaveRun appends a run record and prunes history beyond the cap, oldest
// first.
func (s *Store) SaveRun(run *models.ReportRunResult) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %v", run.ID, err)
	}

	row := ReportRunRow{
		ID:                run.ID,
		ScheduledReportID: run.ScheduledReportID,
		Timestamp:         run.Timestamp,
		Success:           run.Delivery.Success,
		Payload:           string(payload),
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var stale []ReportRunRow
		if err := tx.Order("timestamp desc").Offset(runHistoryCap).Find(&stale).Error; err != nil {
			return err
		}
		for _, old := range stale {
			if err := tx.Delete(&ReportRunRow{}, "id = ?", old.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadHistory returns run records newest-first, at most runHistoryCap.
func (s *Store) LoadHistory() ([]*models.ReportRunResult, error) {
	var rows []ReportRunRow
	if err := s.db.Order("timestamp desc").Limit(runHistoryCap).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load run history: %v", err)
	}

	runs := make([]*models.ReportRunResult, 0, len(rows))
	for _, row := range rows {
		var run models.ReportRunResult
		if err := json.Unmarshal([]byte(row.Payload), &run); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %v", row.ID, err)
		}
		runs = append(runs, &run)
	}
	return runs, nil
}
