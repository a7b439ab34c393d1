// Package logging constructs the single zerolog.Logger instance a process
// runs with. The logger is built once at startup and threaded explicitly
// into every component that logs (collection.Open, wal.NewWriter, sinew
// server/pool) rather than read from a package-level global, matching the
// pack's preference for explicit dependency passing over ambient state.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a logger at the given level ("debug","info","warn","error"),
// optionally with zerolog's human-readable console writer instead of raw
// JSON (pretty is for interactive/dev use; production deployments want JSON
// for log aggregation).
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
