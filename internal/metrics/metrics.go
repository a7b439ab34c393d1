// Package metrics registers the prometheus collectors the server exposes
// over /metrics, grounded on spec §9's observability notes and the pack's
// standard client_golang registration idiom (a struct of collectors built
// once and threaded explicitly, mirroring how internal/logging threads a
// *zerolog.Logger rather than relying on globals).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles every metric the storage and query layers touch.
type Collector struct {
	Puts    prometheus.Counter
	Gets    prometheus.Counter
	Deletes prometheus.Counter

	FlushCount      prometheus.Counter
	FlushDuration   prometheus.Histogram
	CompactCount    prometheus.Counter
	CompactDuration prometheus.Histogram

	WALAppendDuration prometheus.Histogram

	PoolWaitDuration  prometheus.Histogram
	PoolActiveConns   prometheus.Gauge

	QueryDuration prometheus.Histogram
}

// New constructs and registers every collector against reg. Passing a fresh
// prometheus.NewRegistry() (rather than the global DefaultRegisterer) keeps
// tests and multiple in-process databases from colliding on metric names.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Puts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tissdb_puts_total", Help: "Number of documents written.",
		}),
		Gets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tissdb_gets_total", Help: "Number of point lookups.",
		}),
		Deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tissdb_deletes_total", Help: "Number of documents deleted.",
		}),
		FlushCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tissdb_flush_total", Help: "Number of memtable flushes.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tissdb_flush_duration_seconds", Help: "Memtable flush duration.",
			Buckets: prometheus.DefBuckets,
		}),
		CompactCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tissdb_compact_total", Help: "Number of SSTable compactions.",
		}),
		CompactDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tissdb_compact_duration_seconds", Help: "Compaction duration.",
			Buckets: prometheus.DefBuckets,
		}),
		WALAppendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tissdb_wal_append_duration_seconds", Help: "WAL append latency.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		PoolWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tissdb_sinew_pool_wait_duration_seconds", Help: "Time a caller waited for a pooled connection.",
			Buckets: prometheus.DefBuckets,
		}),
		PoolActiveConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tissdb_sinew_pool_active_connections", Help: "Connections currently checked out of the pool.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "tissdb_query_duration_seconds", Help: "End-to-end TissQL execution duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.Puts, c.Gets, c.Deletes, c.FlushCount, c.FlushDuration,
		c.CompactCount, c.CompactDuration, c.WALAppendDuration,
		c.PoolWaitDuration, c.PoolActiveConns, c.QueryDuration)
	return c
}

// Timer returns a function that records the elapsed time on obs when called,
// used as `defer metrics.Timer(c.met.FlushDuration)()`.
func Timer(obs prometheus.Observer) func() {
	start := time.Now()
	return func() { obs.Observe(time.Since(start).Seconds()) }
}
