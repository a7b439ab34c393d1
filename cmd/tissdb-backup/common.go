package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tissdb/tissdb/internal/config"
	"github.com/tissdb/tissdb/internal/dbmanager"
	"github.com/tissdb/tissdb/internal/logging"
)

// openManager loads config (if configPath is set), applies a --data-dir
// override, and opens every existing database under it — the same startup
// path tissdb-server takes, so a backup/restore/verify run exercises exactly
// the recovery logic a live server would on restart.
func openManager() (*dbmanager.Manager, zerolog.Logger, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, zerolog.Logger{}, err
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)
	reg := prometheus.NewRegistry()

	mgr, err := dbmanager.New(cfg.DataDir, cfg.CollectionOptions(), &log, reg)
	if err != nil {
		return nil, log, err
	}
	return mgr, log, nil
}
