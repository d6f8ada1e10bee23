// Package metrics provides Prometheus instrumentation for the media
// tracking and cleanup pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTracked counts uploads recorded in the ledger.
	UploadsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panelshop",
		Subsystem: "uploads",
		Name:      "tracked_total",
		Help:      "Total number of uploads recorded in the tracking ledger.",
	})

	// FilesReclaimed counts orphaned files deleted from storage.
	FilesReclaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "panelshop",
		Subsystem: "cleanup",
		Name:      "files_reclaimed_total",
		Help:      "Total number of orphaned files deleted, by trigger.",
	}, []string{"trigger"})

	// ReclaimErrors counts failures while deleting orphaned files.
	ReclaimErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panelshop",
		Subsystem: "cleanup",
		Name:      "reclaim_errors_total",
		Help:      "Total number of errors encountered while deleting orphaned files.",
	})

	// LedgerRowsPurged counts used ledger rows removed by retention purge.
	LedgerRowsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "panelshop",
		Subsystem: "cleanup",
		Name:      "ledger_rows_purged_total",
		Help:      "Total number of used ledger rows removed by the retention purge.",
	})

	// OrphanCandidates tracks the unused rows seen by the last sweep.
	OrphanCandidates = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "panelshop",
		Subsystem: "cleanup",
		Name:      "orphan_candidates",
		Help:      "Number of unused ledger rows observed by the most recent sweep.",
	})

	// ReconcileDuration observes the duration of reconcile passes.
	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "panelshop",
		Subsystem: "cleanup",
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of media reconcile passes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// Triggers for FilesReclaimed.
const (
	TriggerSave   = "save"
	TriggerDelete = "delete"
	TriggerSweep  = "sweep"
)
