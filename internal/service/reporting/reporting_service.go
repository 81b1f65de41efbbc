// Package reporting turns the cached record collections into weekly
// summaries and exports activity rows to a Google Sheet when one is
// configured.
package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	repo "github.com/bdiallo/farmtrack/internal/repository/sheets"
	"github.com/bdiallo/farmtrack/internal/store"
)

const (
	dateLayout          = "2006-01-02"
	activitiesDataRange = "Activities!A:G"
)

// Service exposes lightweight analytics over the record store snapshots.
type Service struct {
	records *store.RecordStore
	repo    repo.Repository
	logger  *zap.Logger
}

// NewService wires a new reporting service instance. repo may be nil, which
// disables sheet export.
func NewService(records *store.RecordStore, repository repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{records: records, repo: repository, logger: logger}
}

// GenerateWeeklyReport summarizes the week ending at now and exports the
// week's activities to the configured sheet. Export failures degrade to a
// summary-only report.
func (s *Service) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	start := now.AddDate(0, 0, -7)

	summary := s.WeeklySummary(start, now)

	if s.repo != nil {
		exported, err := s.ExportActivities(ctx, start, now)
		if err != nil {
			s.logger.Error("activity export failed", zap.Error(err))
		} else if exported > 0 {
			summary += fmt.Sprintf(" Exported %d activities to the farm sheet.", exported)
		}
	}

	return summary, nil
}

// WeeklySummary aggregates activity effort/cost and harvest outcomes for the
// period from the current store snapshots.
func (s *Service) WeeklySummary(start, end time.Time) string {
	var (
		activityCount int
		totalHours    float64
		totalCost     float64
	)
	for _, activity := range s.records.Activities() {
		if activity.Date.Before(start) || activity.Date.After(end) {
			continue
		}
		activityCount++
		if activity.DurationHours != nil {
			totalHours += *activity.DurationHours
		}
		if activity.Cost != nil {
			totalCost += *activity.Cost
		}
	}

	var harvested, failed int
	for _, crop := range s.records.Crops() {
		switch crop.Status {
		case models.CropHarvested:
			if crop.ActualHarvestDate != nil && !crop.ActualHarvestDate.Before(start) && !crop.ActualHarvestDate.After(end) {
				harvested++
			}
		case models.CropFailed:
			if !crop.UpdatedAt.Before(start) && !crop.UpdatedAt.After(end) {
				failed++
			}
		}
	}

	period := fmt.Sprintf("%s-%s", start.Format(dateLayout), end.Format(dateLayout))
	if activityCount == 0 && harvested == 0 && failed == 0 {
		return fmt.Sprintf("Farm week (%s): no records yet.", period)
	}

	parts := []string{
		fmt.Sprintf("Farm week (%s): %d activities, %.1f hours, %.2f spent.", period, activityCount, totalHours, totalCost),
	}
	if harvested > 0 {
		parts = append(parts, fmt.Sprintf("%d crops harvested.", harvested))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d crops marked failed.", failed))
	}

	return strings.Join(parts, " ")
}

// ExportActivities appends the period's activities to the sheet, skipping
// ids already present, and returns how many rows were written.
func (s *Service) ExportActivities(ctx context.Context, start, end time.Time) (int, error) {
	if s.repo == nil {
		return 0, nil
	}

	exported, err := s.exportedIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load exported activity ids: %w", err)
	}

	var rows [][]interface{}
	for _, activity := range s.records.Activities() {
		if activity.Date.Before(start) || activity.Date.After(end) {
			continue
		}
		if _, done := exported[activity.ID]; done {
			continue
		}
		rows = append(rows, activityRow(activity))
	}

	if len(rows) == 0 {
		return 0, nil
	}

	if err := s.repo.AppendRows(ctx, activitiesDataRange, rows); err != nil {
		return 0, err
	}

	s.logger.Info("activities exported", zap.Int("count", len(rows)))
	return len(rows), nil
}

// exportedIDs reads the id column of the activities sheet.
func (s *Service) exportedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.repo.ReadRange(ctx, activitiesDataRange)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		id := fmt.Sprint(row[0])
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func activityRow(activity models.FarmActivity) []interface{} {
	cropID := ""
	if activity.CropID != nil {
		cropID = *activity.CropID
	}
	duration := 0.0
	if activity.DurationHours != nil {
		duration = *activity.DurationHours
	}
	cost := 0.0
	if activity.Cost != nil {
		cost = *activity.Cost
	}

	return []interface{}{
		activity.ID,
		activity.Date.Format(dateLayout),
		string(activity.ActivityType),
		activity.Description,
		cropID,
		duration,
		cost,
	}
}
