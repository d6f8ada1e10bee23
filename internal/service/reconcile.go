package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/htmlref"
	"github.com/sonartis/panelshop/internal/lock"
	"github.com/sonartis/panelshop/internal/metrics"
	"github.com/sonartis/panelshop/internal/repository"
	"github.com/sonartis/panelshop/internal/storage"
)

// Default reconciliation windows.
const (
	// DefaultGracePeriod is the minimum age an unused upload must reach
	// before the orphan sweep may delete it while it still appears in
	// the content currently being edited.
	DefaultGracePeriod = 5 * time.Minute

	// DefaultUsedRetention is how long used ledger rows are kept before
	// the bookkeeping purge removes them. Blobs are never touched.
	DefaultUsedRetention = 7 * 24 * time.Hour

	// claimLockTTL bounds how long a per-path claim lock may be held.
	claimLockTTL = 10 * time.Second
)

// ReconcilerConfig tunes the reconciliation windows.
type ReconcilerConfig struct {
	GracePeriod   time.Duration
	UsedRetention time.Duration
}

// DefaultReconcilerConfig returns the production defaults.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		GracePeriod:   DefaultGracePeriod,
		UsedRetention: DefaultUsedRetention,
	}
}

// Reconciler compares tracked uploads against actual content references
// and resolves discrepancies: claims paths that saved content uses,
// reclaims storage for uploads no saved content references. Invoked
// synchronously after every content save and delete.
//
// Saved HTML content is the durable source of truth; the ledger is an
// index over it. The reconciler therefore always re-derives the
// referenced-path set by scanning content, never by trusting the ledger.
type Reconciler struct {
	ledger  repository.UploadLedger
	backend storage.Backend
	sources []repository.ContentSource
	locker  lock.Locker
	cfg     ReconcilerConfig
	logger  zerolog.Logger
}

// NewReconciler creates a reconciler over the given content sources.
// Every content type whose rich text can reference uploads must be
// registered, otherwise its references are invisible to the sweep.
func NewReconciler(
	ledger repository.UploadLedger,
	backend storage.Backend,
	sources []repository.ContentSource,
	locker lock.Locker,
	cfg ReconcilerConfig,
	logger zerolog.Logger,
) *Reconciler {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.UsedRetention <= 0 {
		cfg.UsedRetention = DefaultUsedRetention
	}
	if locker == nil {
		locker = lock.NewNoOpLocker()
	}
	return &Reconciler{
		ledger:  ledger,
		backend: backend,
		sources: sources,
		locker:  locker,
		cfg:     cfg,
		logger:  logger.With().Str("service", "reconciler").Logger(),
	}
}

// SaveInput describes one committed content save.
type SaveInput struct {
	// Entity is the just-saved entity, with its current field values.
	Entity domain.ImageOwner

	// Previous is the entity as it was before this save, or nil on
	// create. Paths referenced by Previous but not by Entity are treated
	// as explicit removals.
	Previous domain.ImageOwner

	// IsNew marks the first save of a brand-new entity.
	IsNew bool

	// SessionUploads lists the paths uploaded during the editing
	// session, when known. nil degrades the new-entity sweep to a
	// full-ledger scan.
	SessionUploads []string
}

// EntitySaved reconciles the upload ledger and blob store after a
// content save. Per-path failures are logged and skipped; only a failure
// to derive the referenced-path set aborts, since sweeping without it
// could delete blobs still in use.
func (r *Reconciler) EntitySaved(ctx context.Context, input SaveInput) error {
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	}()

	entityType := input.Entity.EntityType()
	entityID := input.Entity.EntityID()
	logger := r.logger.With().Str("entity_type", entityType).Int64("entity_id", entityID).Logger()

	current := htmlref.ExtractFromFields(input.Entity.RichTextFields())

	global, err := r.globalReferenced(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to derive referenced paths: %w", err)
	}
	// Cover the not-yet-visible case during create: the current content
	// counts as referenced even if the scan raced the commit.
	for p := range current {
		global[p] = struct{}{}
	}

	// Claim before sweeping, so a path just referenced by this save is
	// never treated as orphaned within the same request.
	for path := range current {
		r.claim(ctx, logger, path, entityType, entityID)
	}

	if input.IsNew && input.SessionUploads != nil {
		// The only orphan candidates are this session's own uploads: a
		// path uploaded, then removed from the editor before the first
		// save was never referenced by anything.
		for _, path := range input.SessionUploads {
			if _, ok := current[path]; ok {
				continue
			}
			r.reclaim(ctx, logger, path, metrics.TriggerSave)
		}
	} else {
		r.sweepUnused(ctx, logger, global, current)
	}

	// Explicit removals: referenced by the previous version, gone from
	// the current one. The user took them out, no grace applies.
	if input.Previous != nil {
		previous := htmlref.ExtractFromFields(input.Previous.RichTextFields())
		for path := range previous {
			if _, ok := current[path]; ok {
				continue
			}
			if err := r.ledger.MarkUnused(ctx, path, entityType, entityID); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to release upload claim")
			}
			if _, stillUsed := global[path]; stillUsed {
				// Another entity still references the path.
				continue
			}
			r.reclaim(ctx, logger, path, metrics.TriggerSave)
		}
	}

	// Ledger hygiene, independent of orphan detection.
	if purged, err := r.ledger.PurgeUsedOlderThan(ctx, r.cfg.UsedRetention); err != nil {
		logger.Warn().Err(err).Msg("failed to purge aged used rows")
	} else if purged > 0 {
		metrics.LedgerRowsPurged.Add(float64(purged))
		logger.Debug().Int64("purged", purged).Msg("purged aged used ledger rows")
	}

	return nil
}

// EntityDeleted reclaims the media an entity owned after the entity is
// removed. Direct image fields (thumbnail, gallery, patterns) are
// single-owner and deleted unconditionally. Shared uploads referenced
// from rich text are re-verified against the remaining content first:
// a copy-pasted image another entity still shows must survive.
func (r *Reconciler) EntityDeleted(ctx context.Context, entity domain.ImageOwner) error {
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	}()

	logger := r.logger.With().
		Str("entity_type", entity.EntityType()).
		Int64("entity_id", entity.EntityID()).
		Logger()

	for _, path := range domain.OwnedImagePaths(entity) {
		r.reclaim(ctx, logger, path, metrics.TriggerDelete)
	}

	refs := htmlref.ExtractFromFields(entity.RichTextFields())
	if len(refs) == 0 {
		return nil
	}

	// Exclude the deleted entity itself so the result is the same
	// whether the hook runs before or after the row deletion commits.
	global, err := r.globalReferenced(ctx, entity)
	if err != nil {
		return fmt.Errorf("failed to derive referenced paths: %w", err)
	}

	for path := range refs {
		if _, ok := global[path]; ok {
			logger.Debug().Str("path", path).Msg("upload still referenced elsewhere, keeping")
			continue
		}
		r.reclaim(ctx, logger, path, metrics.TriggerDelete)
	}

	return nil
}

// globalReferenced scans every rich-text field of every record of every
// registered content source and returns the union of referenced paths.
// exclude, when non-nil, drops that one record from the scan.
func (r *Reconciler) globalReferenced(ctx context.Context, exclude domain.ImageOwner) (map[string]struct{}, error) {
	referenced := make(map[string]struct{})
	for _, source := range r.sources {
		owners, err := source.ListOwners(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s records: %w", source.EntityType(), err)
		}
		for _, owner := range owners {
			if exclude != nil &&
				owner.EntityType() == exclude.EntityType() &&
				owner.EntityID() == exclude.EntityID() {
				continue
			}
			for path := range htmlref.ExtractFromFields(owner.RichTextFields()) {
				referenced[path] = struct{}{}
			}
		}
	}
	return referenced, nil
}

// sweepUnused scans all unused ledger rows and reclaims those no saved
// content references. A row still present in the content being edited is
// spared until it outlives the grace window, which covers the re-add
// race during concurrent saves of the same entity.
func (r *Reconciler) sweepUnused(ctx context.Context, logger zerolog.Logger, global, current map[string]struct{}) {
	unused, err := r.ledger.ListUnused(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list unused uploads, skipping sweep")
		return
	}
	metrics.OrphanCandidates.Set(float64(len(unused)))

	for _, upload := range unused {
		if _, ok := global[upload.Path]; ok {
			continue
		}
		_, inCurrent := current[upload.Path]
		if inCurrent && !upload.OlderThan(r.cfg.GracePeriod) {
			continue
		}
		r.reclaim(ctx, logger, upload.Path, metrics.TriggerSweep)
	}
}

// claim marks a path as used by the entity under a per-path lock so a
// concurrent sweep of the same path serializes with the claim. The
// claim itself must not be lost: if the lock cannot be taken the atomic
// MarkUsed still runs.
func (r *Reconciler) claim(ctx context.Context, logger zerolog.Logger, path, entityType string, entityID int64) {
	key := lock.Keys.UploadClaim(path)
	acquired, err := r.locker.Acquire(ctx, key, claimLockTTL)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("claim lock failed, proceeding without it")
	}
	if acquired {
		defer func() {
			if _, err := r.locker.Release(ctx, key); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to release claim lock")
			}
		}()
	}

	if err := r.ledger.MarkUsed(ctx, path, entityType, entityID); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to mark upload used")
	}
}

// reclaim deletes a blob and its ledger row. All failures are logged and
// swallowed: the worst outcome is a leaked blob, never a failed save. A
// path whose claim lock is held by another request is skipped; it will
// be revisited by a later sweep.
func (r *Reconciler) reclaim(ctx context.Context, logger zerolog.Logger, path, trigger string) {
	key := lock.Keys.UploadClaim(path)
	acquired, err := r.locker.Acquire(ctx, key, claimLockTTL)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("claim lock failed, skipping reclaim")
		return
	}
	if !acquired {
		logger.Debug().Str("path", path).Msg("path claim in flight, skipping reclaim")
		return
	}
	defer func() {
		if _, err := r.locker.Release(ctx, key); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to release claim lock")
		}
	}()

	removed, err := r.backend.Delete(ctx, path)
	if err != nil {
		metrics.ReclaimErrors.Inc()
		logger.Warn().Err(err).Str("path", path).Msg("failed to delete blob")
		return
	}

	if err := r.ledger.Delete(ctx, path); err != nil {
		metrics.ReclaimErrors.Inc()
		logger.Warn().Err(err).Str("path", path).Msg("failed to delete ledger row")
		return
	}

	if removed {
		metrics.FilesReclaimed.WithLabelValues(trigger).Inc()
		logger.Info().Str("path", path).Str("trigger", trigger).Msg("orphaned upload reclaimed")
	}
}
