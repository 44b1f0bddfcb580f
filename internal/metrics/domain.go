package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters live on the default registry and are shared process-wide.
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sync_runs_total",
			Help: "Sync attempts by logged status",
		},
		[]string{"provider", "status"},
	)
	ActivitiesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_activities_ingested_total",
			Help: "Ingested activities by outcome (added, dupe, excluded)",
		},
		[]string{"outcome"},
	)
	CorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_corrections_total",
			Help: "Corrections appended to the ledger",
		},
	)
	UndoTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_undo_total",
			Help: "Undo requests by outcome",
		},
		[]string{"action_type", "outcome"},
	)
	OutboxDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_outbox_deliveries_total",
			Help: "Mirror deliveries by result (published, retry, dead)",
		},
		[]string{"result"},
	)
	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_outbox_pending",
			Help: "Outbox events waiting for delivery",
		},
	)
	ScheduledSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_scheduled_sync_duration_seconds",
			Help:    "Wall time of one scheduled sync sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)
