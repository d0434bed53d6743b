package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ludarr/ludarr/internal/enricher"
	"github.com/ludarr/ludarr/internal/models"
)

// Scheduler runs the periodic library refresh
type Scheduler struct {
	cron     *cron.Cron
	db       *models.Database
	enricher *enricher.Enricher
	spec     string
	running  atomic.Bool
	logger   *logrus.Logger
}

// NewScheduler creates a scheduler refreshing on the given cron spec
func NewScheduler(db *models.Database, e *enricher.Enricher, spec string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		db:       db,
		enricher: e,
		spec:     spec,
		logger:   logger,
	}
}

// Start registers the refresh job and kicks off an initial run
func (s *Scheduler) Start() error {
	s.logger.WithField("spec", s.spec).Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.spec, func() {
		s.runRefresh()
	})
	if err != nil {
		return fmt.Errorf("failed to add refresh job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	go s.runRefresh()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runRefresh enriches the whole stored library. A run still in progress
// when the next tick fires makes the tick a no-op.
func (s *Scheduler) runRefresh() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Refresh already in progress, skipping this run")
		return
	}
	defer s.running.Store(false)

	s.logger.Info("Running scheduled library refresh")
	ctx := context.Background()

	games, err := s.db.GetAllGames()
	if err != nil {
		s.logger.WithError(err).Error("Failed to load library")
		return
	}
	if len(games) == 0 {
		s.logger.Debug("Library is empty, nothing to refresh")
		return
	}

	enriched, err := s.enricher.EnrichGames(ctx, games)
	if err != nil {
		s.logger.WithError(err).Error("Refresh job failed")
		return
	}

	s.logger.WithField("count", len(enriched)).Info("Refresh job completed")
}
