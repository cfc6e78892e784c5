/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/skillswap/skillswap-backend/internal/scheduling/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.MatchExpiryJobSchedule, s.jobs.ExpirePendingMatches); err != nil {
		s.logger.Error("failed to schedule match expiry job", "error", err)
	} else {
		s.logger.Info("scheduled match expiry job", "schedule", s.config.MatchExpiryJobSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.AppointmentSweepSchedule, s.jobs.CompletePastAppointments); err != nil {
		s.logger.Error("failed to schedule appointment sweep", "error", err)
	} else {
		s.logger.Info("scheduled appointment sweep", "schedule", s.config.AppointmentSweepSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
