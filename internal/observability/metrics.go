package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tro_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tro_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tro_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tro_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tro_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	Finalizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tro_finalizations_total",
			Help: "Finalization runs by pathway and outcome",
		},
		[]string{"pathway", "outcome"},
	)

	FinalizationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tro_finalization_seconds",
			Help:    "Duration of finalization runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pathway"},
	)

	LedgerRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tro_ledger_registrations_total",
			Help: "Transaction ledger registrations by result",
		},
		[]string{"result"},
	)

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tro_notifications_enqueued_total",
			Help: "Notifications written to the outbox by kind",
		},
		[]string{"kind"},
	)

	CommandsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tro_commands_consumed_total",
			Help: "FinalizeReservation deliveries by result",
		},
		[]string{"result"},
	)
)
