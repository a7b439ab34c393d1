// Package config loads the server's YAML configuration file, grounded on
// the rest of the pack's gopkg.in/yaml.v3 idiom (struct tags plus a single
// Load entry point, no global config singleton — Config is threaded
// explicitly through dbmanager/lsmtree/sinew the same way *zerolog.Logger is).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tissdb/tissdb/internal/collection"
	"github.com/tissdb/tissdb/internal/tisserr"
	"github.com/tissdb/tissdb/internal/wal"
)

// Config is the full set of tunables spec §9 calls out as configurable
// rather than hardcoded.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Storage StorageConfig `yaml:"storage"`
	Sinew   SinewConfig   `yaml:"sinew"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	FlushThresholdBytes int64         `yaml:"flush_threshold_bytes"`
	SparseIndexStride   int           `yaml:"sparse_index_stride"`
	CompactionTrigger   int           `yaml:"compaction_trigger"`
	CompactionInterval  time.Duration `yaml:"compaction_interval"`
	WALSyncPolicy       string        `yaml:"wal_sync_policy"` // "every_write" | "interval" | "batch"
	WALSyncInterval     time.Duration `yaml:"wal_sync_interval"`
	WALSyncBatchBytes   int64         `yaml:"wal_sync_batch_bytes"`
}

type SinewConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	Database          string        `yaml:"database"` // database name the Sinew listener serves queries against
	MaxPoolSize       int           `yaml:"max_pool_size"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	PoolWaitTimeout   time.Duration `yaml:"pool_wait_timeout"`
	FramePayloadLimit int           `yaml:"frame_payload_limit"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration a freshly initialized server runs with.
func Default() Config {
	return Config{
		DataDir: "./data",
		Storage: StorageConfig{
			FlushThresholdBytes: collection.DefaultOptions().FlushThreshold,
			SparseIndexStride:   16,
			CompactionTrigger:   4,
			CompactionInterval:  5 * time.Second,
			WALSyncPolicy:       "every_write",
			WALSyncInterval:     200 * time.Millisecond,
			WALSyncBatchBytes:   1 * 1024 * 1024,
		},
		Sinew: SinewConfig{
			ListenAddr:        "127.0.0.1:9090",
			Database:          "default",
			MaxPoolSize:       16,
			ConnectTimeout:    5 * time.Second,
			PoolWaitTimeout:   10 * time.Second,
			FramePayloadLimit: 64 * 1024 * 1024,
		},
		Metrics: MetricsConfig{Enabled: true, ListenAddr: "127.0.0.1:9091"},
		Logging: LoggingConfig{Level: "info", Pretty: false},
	}
}

// Load reads and parses a YAML config file, filling any field the file omits
// with Default()'s value.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, tisserr.NewDurability("config.Load", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, tisserr.NewDurability("config.Load.unmarshal", err)
	}
	return cfg, nil
}

// CollectionOptions translates the storage section into collection.Options.
func (c Config) CollectionOptions() collection.Options {
	return collection.Options{
		FlushThreshold:     c.Storage.FlushThresholdBytes,
		SparseIndexStride:  c.Storage.SparseIndexStride,
		CompactionTrigger:  c.Storage.CompactionTrigger,
		CompactionInterval: c.Storage.CompactionInterval,
	}
}

// WALOptions translates the storage section into wal.Options.
func (c Config) WALOptions(dirPath string) wal.Options {
	policy := wal.SyncEveryWrite
	switch c.Storage.WALSyncPolicy {
	case "interval":
		policy = wal.SyncInterval
	case "batch":
		policy = wal.SyncBatch
	}
	return wal.Options{
		DirPath:              dirPath,
		BufferSize:           64 * 1024,
		SyncPolicy:           policy,
		SyncIntervalDuration: c.Storage.WALSyncInterval,
		SyncBatchBytes:       c.Storage.WALSyncBatchBytes,
	}
}
