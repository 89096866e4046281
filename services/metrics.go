package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cngflow_queue_updates_accepted_total",
		Help: "Total number of queue reports stored, by source.",
	}, []string{"source"})
	updatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cngflow_queue_updates_rejected_total",
		Help: "Total number of queue reports rejected, by reason.",
	}, []string{"reason"})
	updatesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_queue_updates_published_total",
		Help: "Total number of queue_updated events published to Redis.",
	})
	estimatesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cngflow_estimates_computed_total",
		Help: "Total number of station queue estimates computed, by status.",
	}, []string{"status"})
	estimateErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cngflow_estimate_input_errors_total",
		Help: "Total number of estimates refused because of invalid stored data.",
	})
	snapshotCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cngflow_snapshot_cache_total",
		Help: "Station snapshot cache lookups, by result.",
	}, []string{"result"})
)
