package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "expiring_cache"

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "hits_total",
		Help:      "Lookups served from the table",
	}, []string{"cache"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "misses_total",
		Help:      "Lookups that went to the populator",
	}, []string{"cache"})

	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "evictions_total",
		Help:      "Entries removed by their own eviction task",
	}, []string{"cache"})

	populateErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "populate_errors_total",
		Help:      "Populator calls that returned an error or panicked",
	}, []string{"cache"})

	epochBumps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "epoch_bumps_total",
		Help:      "Process-wide invalidations",
	})

	schedulerPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "scheduler_pending_tasks",
		Help:      "Eviction tasks scheduled but not yet run",
	})
)
