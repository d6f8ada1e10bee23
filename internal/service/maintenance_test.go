package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/lock"
	"github.com/sonartis/panelshop/internal/repository"
)

func TestRunPurge(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addUsed("uploads/old.jpg", domain.EntityTypeProduct, 1, 8*24*time.Hour)
	ledger.addUsed("uploads/recent.jpg", domain.EntityTypeProduct, 2, time.Hour)
	ledger.addUnused("uploads/old-unused.jpg", 8*24*time.Hour)

	svc := NewMaintenanceService(ledger, lock.NewNoOpLocker(), DefaultMaintenanceConfig(), zerolog.Nop())

	purged, err := svc.RunPurge(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	_, err = ledger.Get(context.Background(), "uploads/old.jpg")
	require.ErrorIs(t, err, repository.ErrNotFound)

	// Recent used rows and unused rows of any age stay.
	_, err = ledger.Get(context.Background(), "uploads/recent.jpg")
	require.NoError(t, err)
	_, err = ledger.Get(context.Background(), "uploads/old-unused.jpg")
	require.NoError(t, err)
}

func TestRunPurgeIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addUsed("uploads/old.jpg", domain.EntityTypeProduct, 1, 8*24*time.Hour)

	svc := NewMaintenanceService(ledger, lock.NewNoOpLocker(), DefaultMaintenanceConfig(), zerolog.Nop())

	purged, err := svc.RunPurge(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)

	purged, err = svc.RunPurge(context.Background())
	require.NoError(t, err)
	require.Zero(t, purged)
}

func TestRunPurgeSkipsWhenLockHeld(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addUsed("uploads/old.jpg", domain.EntityTypeProduct, 1, 8*24*time.Hour)

	locker := lock.NewMemoryLocker()
	defer locker.Close()
	held, err := locker.Acquire(context.Background(), lock.Keys.MaintenancePurge(), time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	svc := NewMaintenanceService(ledger, locker, DefaultMaintenanceConfig(), zerolog.Nop())

	purged, err := svc.RunPurge(context.Background())
	require.NoError(t, err)
	require.Zero(t, purged)

	// Nothing was touched while the other node held the lock.
	_, err = ledger.Get(context.Background(), "uploads/old.jpg")
	require.NoError(t, err)

	// Once the lock is free the run proceeds.
	_, err = locker.Release(context.Background(), lock.Keys.MaintenancePurge())
	require.NoError(t, err)

	purged, err = svc.RunPurge(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

func TestMaintenanceSchedulerStartStop(t *testing.T) {
	ledger := newFakeLedger()
	cfg := MaintenanceConfig{Retention: time.Hour, Interval: time.Hour}
	svc := NewMaintenanceService(ledger, lock.NewNoOpLocker(), cfg, zerolog.Nop())

	svc.Start(context.Background())
	svc.Stop()
}

func TestMaintenanceSchedulerDisabled(t *testing.T) {
	ledger := newFakeLedger()
	cfg := MaintenanceConfig{Retention: time.Hour, Interval: 0}
	svc := NewMaintenanceService(ledger, lock.NewNoOpLocker(), cfg, zerolog.Nop())

	// With no interval Start is a no-op and Stop returns immediately.
	svc.Start(context.Background())
	svc.Stop()
}
