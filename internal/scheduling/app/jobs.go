/**
 * @description
 * Scheduled job implementations for the scheduling-service. The pending
 * match sweep goes through matchmaking's internal HTTP API so the expiry
 * transition runs inside the aggregate that owns it; the appointment sweep
 * is a local status flip.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/skillswap/skillswap-backend/internal/scheduling/config"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
)

// MatchmakingClient defines the interface for the matchmaking internal API.
type MatchmakingClient interface {
	ExpireStaleMatches(ctx context.Context, maxAgeHours int) (int, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo        store.Repository
	matchClient MatchmakingClient
	logger      *slog.Logger
	config      config.Config
	now         func() time.Time
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo store.Repository, matchClient MatchmakingClient, logger *slog.Logger, cfg config.Config) *Jobs {
	return &Jobs{
		repo:        repo,
		matchClient: matchClient,
		logger:      logger,
		config:      cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ExpirePendingMatches asks matchmaking to expire stale pending matches.
func (j *Jobs) ExpirePendingMatches() {
	j.logger.Info("starting pending match expiry job", "max_age_hours", j.config.MatchExpiryMaxHours)
	ctx := context.Background()

	expired, err := j.matchClient.ExpireStaleMatches(ctx, j.config.MatchExpiryMaxHours)
	if err != nil {
		j.logger.Error("failed to expire pending matches", "error", err)
		return
	}

	j.logger.Info("pending match expiry job finished", "expired", expired)
}

// CompletePastAppointments marks scheduled appointments whose end time has
// passed as completed.
func (j *Jobs) CompletePastAppointments() {
	j.logger.Info("starting appointment completion sweep")
	ctx := context.Background()

	completed, err := j.repo.CompletePastAppointments(ctx, j.now())
	if err != nil {
		j.logger.Error("failed to complete past appointments", "error", err)
		return
	}

	j.logger.Info("appointment completion sweep finished", "completed", completed)
}
