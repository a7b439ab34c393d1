// Command tissdb-server runs the Sinew listener (spec §4.13) in front of a
// single database managed by internal/dbmanager, following the teacher
// pack's cuemby-warren/cmd convention of a thin main() that loads config,
// builds a logger, wires the storage layer, and blocks on Serve.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/tissdb/tissdb/internal/config"
	"github.com/tissdb/tissdb/internal/dbmanager"
	"github.com/tissdb/tissdb/internal/logging"
	"github.com/tissdb/tissdb/internal/query"
	"github.com/tissdb/tissdb/internal/sinew"
)

func main() {
	configPath := flag.String("config", "", "path to a tissdb config YAML file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tissdb-server: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	registry := newMetricsRegistry(cfg)

	mgr, err := dbmanager.New(cfg.DataDir, cfg.CollectionOptions(), &log, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database manager")
	}
	defer mgr.Shutdown()

	dbName := cfg.Sinew.Database
	if dbName == "" {
		dbName = "default"
	}
	if !mgr.DatabaseExists(dbName) {
		if err := mgr.CreateDatabase(dbName); err != nil {
			log.Fatal().Err(err).Str("database", dbName).Msg("failed to create database")
		}
	}
	tree, err := mgr.GetDatabase(dbName)
	if err != nil {
		log.Fatal().Err(err).Str("database", dbName).Msg("failed to open database")
	}

	executor := query.NewExecutor(tree)
	handler := newQueryHandler(executor)

	ln, err := net.Listen("tcp", cfg.Sinew.ListenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Sinew.ListenAddr).Msg("failed to bind sinew listener")
	}
	log.Info().Str("addr", cfg.Sinew.ListenAddr).Str("database", dbName).Msg("sinew listening")

	server := sinew.NewServer(handler, log)
	go func() {
		if err := server.Serve(ln); err != nil {
			log.Error().Err(err).Msg("sinew server stopped")
		}
	}()

	waitForSignal()
	log.Info().Msg("shutting down")
	ln.Close()
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
