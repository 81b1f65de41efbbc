package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/config"
	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/service/reporting"
	"github.com/bdiallo/farmtrack/internal/store"
	"github.com/bdiallo/farmtrack/pkg/clients/openweather"
)

// Scheduler manages the background jobs: periodic weather capture and the
// weekly report.
type Scheduler struct {
	cron         *cron.Cron
	sessions     *store.SessionStore
	records      *store.RecordStore
	weather      openweather.Client
	reportingSvc *reporting.Service
	cfg          config.Config
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance in the configured timezone.
func NewScheduler(cfg config.Config, sessions *store.SessionStore, records *store.RecordStore, weather openweather.Client, reportingSvc *reporting.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
		location = time.UTC
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(location)),
		sessions:     sessions,
		records:      records,
		weather:      weather,
		reportingSvc: reportingSvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.Weather.CronSchedule, s.captureWeather); err != nil {
		s.logger.Error("failed to schedule weather capture", zap.Error(err))
	}

	if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.runWeeklyReport); err != nil {
		s.logger.Error("failed to schedule weekly report", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

// captureWeather snapshots the current conditions into the signed-in user's
// weather collection. Anonymous sessions are skipped.
func (s *Scheduler) captureWeather() {
	identity := s.sessions.Identity()
	if identity == nil {
		s.logger.Debug("skipping weather capture, no signed-in user")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	obs, err := s.weather.Current(ctx, s.cfg.Weather.Latitude, s.cfg.Weather.Longitude)
	if err != nil {
		s.logger.Error("weather lookup failed", zap.Error(err))
		return
	}

	record := models.WeatherRecord{
		UserID:           identity.ID,
		Location:         obs.Location,
		Temperature:      obs.Temperature,
		Humidity:         obs.Humidity,
		Rainfall:         obs.Rainfall,
		WindSpeed:        obs.WindSpeed,
		WeatherCondition: obs.Condition,
		RecordedAt:       time.Now().UTC(),
	}

	if err := s.records.AddWeather(ctx, record); err != nil {
		s.logger.Error("failed to store weather record", zap.Error(err))
		return
	}

	s.logger.Info("weather captured",
		zap.String("location", obs.Location),
		zap.Float64("temperature", obs.Temperature),
		zap.String("condition", obs.Condition))
}

func (s *Scheduler) runWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reportingSvc.GenerateWeeklyReport(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
		return
	}

	s.logger.Info("weekly report ready", zap.String("summary", report))
}
