package wal

import "time"

// SyncPolicy selects the durability/throughput tradeoff for fsync timing,
// matching the teacher's pkg/wal/options.go three policies.
type SyncPolicy int

const (
	// SyncEveryWrite fsyncs after every append. Spec §4.3's default:
	// "append(entry) flushes and fsyncs before returning success".
	SyncEveryWrite SyncPolicy = iota
	// SyncInterval fsyncs on a background ticker.
	SyncInterval
	// SyncBatch fsyncs once accumulated bytes cross a threshold.
	SyncBatch
)

// Options configures a Writer.
type Options struct {
	DirPath              string
	BufferSize           int
	SyncPolicy           SyncPolicy
	SyncIntervalDuration time.Duration
	SyncBatchBytes       int64
}

// DefaultOptions returns spec §4.3's strict synchronous-append default.
func DefaultOptions() Options {
	return Options{
		DirPath:              "./wal_data",
		BufferSize:           64 * 1024,
		SyncPolicy:           SyncEveryWrite,
		SyncIntervalDuration: 200 * time.Millisecond,
		SyncBatchBytes:       1 * 1024 * 1024,
	}
}
