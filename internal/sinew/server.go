package sinew

import (
	"io"
	"net"

	"github.com/rs/zerolog"

	"github.com/tissdb/tissdb/internal/document"
)

// Handler executes one decoded query and renders its result as the response
// body the client receives (spec §4.13: "body is the query result
// (free-form string, e.g. serialised rows or OK)"). Kept as a function type
// rather than importing internal/query directly, so this package's
// dependency graph stays server-agnostic of the query engine's own imports.
type Handler func(query string, params []document.Value) (string, error)

// Server accepts Sinew connections and serves them one request at a time per
// connection (spec §4.13: "a single connection handles one outstanding
// request at a time"), grounded on the contract-level description of the
// server side alongside original_source/quanta_tissu/tissu_sinew.cpp's
// recv_all/send framing helpers.
type Server struct {
	handler Handler
	log     zerolog.Logger
}

func NewServer(handler Handler, log zerolog.Logger) *Server {
	return &Server{handler: handler, log: log}
}

// Serve accepts connections on ln until it returns an error (typically from
// ln.Close during shutdown). Each accepted connection is served in its own
// goroutine; cancellation is a plain socket close (spec §5: "a session drop
// closes the socket; the server worker detects EOF on its next recv").
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	s.log.Info().Str("remote", remote).Msg("sinew connection accepted")

	for {
		req, err := DecodeRequest(conn)
		if err != nil {
			if err != io.EOF {
				s.log.Info().Str("remote", remote).Err(err).Msg("sinew connection closed on decode error")
			}
			return
		}

		body, err := s.handler(req.Query, req.Params)
		if err != nil {
			body = "ERROR: " + err.Error()
		}
		if _, err := conn.Write(EncodeResponse(body)); err != nil {
			s.log.Info().Str("remote", remote).Err(err).Msg("sinew connection write failed")
			return
		}
	}
}
