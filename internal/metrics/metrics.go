package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Deposits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "potsync_deposits_total",
		Help: "Pot deposits issued",
	})

	Withdrawals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "potsync_withdrawals_total",
		Help: "Pot withdrawals issued",
	})

	DepositedPence = promauto.NewCounter(prometheus.CounterOpts{
		Name: "potsync_deposited_pence_total",
		Help: "Total amount deposited, in minor units",
	})

	WithdrawnPence = promauto.NewCounter(prometheus.CounterOpts{
		Name: "potsync_withdrawn_pence_total",
		Help: "Total amount withdrawn, in minor units",
	})

	CooldownsArmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "potsync_cooldowns_armed_total",
		Help: "Cooldowns armed on unexplained pot shortfalls",
	})

	CooldownsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "potsync_cooldowns_resolved_total",
		Help: "Cooldowns resolved at expiry",
	})

	SyncErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "potsync_sync_errors_total",
		Help: "Failed reconciliation passes by error kind",
	}, []string{"kind"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "potsync_sync_duration_seconds",
		Help:    "Duration of one reconciliation pass",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
)
