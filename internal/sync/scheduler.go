package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/casaops/backend/internal/storage"
)

// Scheduler triggers periodic full-fleet sync runs and the daily exclusion
// cleanup.
type Scheduler struct {
	cron          *cron.Cron
	orchestrator  *Orchestrator
	exclusions    *storage.ExclusionRepository
	interval      time.Duration
	retentionDays int
}

// NewScheduler creates the sync scheduler.
func NewScheduler(
	orchestrator *Orchestrator,
	exclusions *storage.ExclusionRepository,
	interval time.Duration,
	retentionDays int,
) *Scheduler {
	if interval < time.Minute {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		cron:          cron.New(),
		orchestrator:  orchestrator,
		exclusions:    exclusions,
		interval:      interval,
		retentionDays: retentionDays,
	}
}

// Start registers the cron jobs and begins the schedule.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runFleetSync); err != nil {
		return fmt.Errorf("scheduling fleet sync: %w", err)
	}

	// Exclusions past the retention window reference long-gone dates.
	if _, err := s.cron.AddFunc("@daily", s.cleanupExclusions); err != nil {
		return fmt.Errorf("scheduling exclusion cleanup: %w", err)
	}

	s.cron.Start()
	log.Info().Dur("interval", s.interval).Msg("Sync scheduler started")
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Sync scheduler stopped")
}

func (s *Scheduler) runFleetSync() {
	if _, err := s.orchestrator.Run(context.Background(), Options{}); err != nil {
		log.Error().Err(err).Msg("Scheduled sync run failed")
	}
}

func (s *Scheduler) cleanupExclusions() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	removed, err := s.exclusions.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Exclusion cleanup failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Expired exclusions removed")
	}
}
