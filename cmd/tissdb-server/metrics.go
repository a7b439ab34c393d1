package main

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tissdb/tissdb/internal/config"
)

// newMetricsRegistry builds the process's prometheus registry and, when
// enabled, starts the /metrics HTTP listener in the background.
func newMetricsRegistry(cfg config.Config) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if !cfg.Metrics.Enabled {
		return reg
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	ln, err := net.Listen("tcp", cfg.Metrics.ListenAddr)
	if err != nil {
		return reg
	}
	go http.Serve(ln, mux)
	return reg
}
