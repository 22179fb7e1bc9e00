package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	partiesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padron_sync_parties_updated_total",
		Help: "Parties successfully updated from the registry",
	})
	partiesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padron_sync_parties_skipped_total",
		Help: "Parties skipped for lack of a usable tax identifier",
	})
	partiesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padron_sync_parties_failed_total",
		Help: "Parties whose sync attempt failed",
	})
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "padron_sync_batch_duration_seconds",
		Help:    "Wall time of full census import batches",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})
)
