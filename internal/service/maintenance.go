package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/lock"
	"github.com/sonartis/panelshop/internal/metrics"
	"github.com/sonartis/panelshop/internal/repository"
)

// MaintenanceConfig tunes the periodic ledger hygiene run.
type MaintenanceConfig struct {
	// Retention is how long used ledger rows are kept.
	Retention time.Duration

	// Interval between periodic runs. Zero disables the scheduler;
	// startup and operator-triggered runs still work.
	Interval time.Duration

	// LockTTL bounds how long the purge lock may be held.
	LockTTL time.Duration
}

// DefaultMaintenanceConfig returns the production defaults.
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		Retention: DefaultUsedRetention,
		Interval:  6 * time.Hour,
		LockTTL:   5 * time.Minute,
	}
}

// MaintenanceService runs the used-row retention purge: on startup, on
// operator command and optionally on a periodic ticker. The purge is
// bookkeeping only and idempotent, so running it arbitrarily often is
// safe; the distributed lock just keeps multiple nodes from doing the
// same work at once.
type MaintenanceService struct {
	ledger repository.UploadLedger
	locker lock.Locker
	cfg    MaintenanceConfig
	logger zerolog.Logger

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewMaintenanceService creates the maintenance service.
func NewMaintenanceService(
	ledger repository.UploadLedger,
	locker lock.Locker,
	cfg MaintenanceConfig,
	logger zerolog.Logger,
) *MaintenanceService {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultUsedRetention
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &MaintenanceService{
		ledger:   ledger,
		locker:   locker,
		cfg:      cfg,
		logger:   logger.With().Str("service", "maintenance").Logger(),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// RunPurge executes one retention purge pass. Returns the number of
// ledger rows removed; zero with no error when another node holds the
// purge lock.
func (s *MaintenanceService) RunPurge(ctx context.Context) (int64, error) {
	key := lock.Keys.MaintenancePurge()
	acquired, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		s.logger.Debug().Msg("purge lock held elsewhere, skipping run")
		return 0, nil
	}
	defer func() {
		if _, err := s.locker.Release(ctx, key); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release purge lock")
		}
	}()

	purged, err := s.ledger.PurgeUsedOlderThan(ctx, s.cfg.Retention)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		metrics.LedgerRowsPurged.Add(float64(purged))
	}
	s.logger.Info().Int64("purged", purged).Dur("retention", s.cfg.Retention).Msg("ledger purge completed")
	return purged, nil
}

// Start launches the periodic scheduler. No-op when Interval is zero.
func (s *MaintenanceService) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		close(s.doneChan)
		return
	}

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("maintenance scheduler started")

	go func() {
		defer close(s.doneChan)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.RunPurge(ctx); err != nil {
					s.logger.Error().Err(err).Msg("scheduled ledger purge failed")
				}
			case <-s.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the scheduler and waits for the current run to finish.
func (s *MaintenanceService) Stop() {
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info().Msg("maintenance scheduler stopped")
}
