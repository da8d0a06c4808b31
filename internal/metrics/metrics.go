package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts bridge messages reaching each terminal or
	// intermediate status, by origin.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_messages_total",
			Help: "Total number of bridge messages by origin and status",
		},
		[]string{"origin", "status"},
	)

	// StageDuration tracks how long a single Stage.Handle call takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_stage_duration_seconds",
			Help:    "Stage handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"origin", "stage"},
	)

	// StageProgressTotal counts Handle calls that reported progress,
	// versus ones that found nothing to do.
	StageProgressTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_stage_progress_total",
			Help: "Total number of stage iterations, by whether they progressed",
		},
		[]string{"origin", "stage", "progressed"},
	)

	// BlocksProcessed counts blocks processed on each chain
	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
		[]string{"chain"},
	)

	// EventsDetected counts events detected on each chain
	EventsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_detected_total",
			Help: "Total number of bridge events detected",
		},
		[]string{"chain", "event_type"},
	)

	// TransactionsSent counts transactions sent to each chain
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_transactions_sent_total",
			Help: "Total number of transactions sent",
		},
		[]string{"chain", "status"},
	)

	// VaultTotalShares tracks the aggregated totalShares carried by the
	// most recently created vault controller batch, by vault address.
	VaultTotalShares = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_vault_total_shares",
			Help: "Total shares in the most recent vault controller batch, by vault",
		},
		[]string{"l1_vault_address"},
	)

	// PendingMessages tracks the number of bridge messages sitting in a
	// non-terminal status, by origin.
	PendingMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_pending_messages",
			Help: "Number of pending bridge messages by origin",
		},
		[]string{"origin"},
	)

	// PendingVaultBatches tracks vault controller batches awaiting
	// confirmation.
	PendingVaultBatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_pending_vault_batches",
			Help: "Number of pending vault controller batches",
		},
	)

	// ErrorsTotal counts errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// GasUsed tracks gas used for Ethereum transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_gas_used",
			Help:    "Gas used for Ethereum transactions",
			Buckets: []float64{21000, 50000, 100000, 200000, 300000, 500000},
		},
		[]string{"operation"},
	)

	// LastProcessedBlock tracks the last processed block number
	LastProcessedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_last_processed_block",
			Help: "Last processed block number by chain",
		},
		[]string{"chain"},
	)

	// WorkerReady tracks whether a given (origin, stage) worker has
	// completed its initial catch-up, for readiness reporting.
	WorkerReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_worker_ready",
			Help: "1 if the (origin, stage) worker has completed initial sync, else 0",
		},
		[]string{"origin", "stage"},
	)
)
