package sinew

import (
	"context"
	"net"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// Client is the pool-owning entry point applications construct (spec
// §4.13's TissuClient). It is safe for concurrent use; each Session borrows
// one pooled connection for its lifetime.
type Client struct {
	pool *Pool
}

// NewClient dials cfg.PoolSize connections and returns a ready Client, or a
// ConnectionInit error if any connection could not be established.
func NewClient(cfg Config) (*Client, error) {
	pool, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{pool: pool}, nil
}

// GetSession borrows one pooled connection, blocking up to the pool's
// connect timeout (spec §4.13's getSession()).
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, pool: c.pool}, nil
}

// Close closes every idle pooled connection.
func (c *Client) Close() error { return c.pool.Close() }

// Session runs queries over one borrowed connection. Not safe for concurrent
// use (original_source: "This class is not thread-safe").
type Session struct {
	conn net.Conn
	pool *Pool
	done bool
}

// Run sends query with no bound parameters and returns the server's response
// body (spec §4.14's run(query)).
func (s *Session) Run(query string) (string, error) {
	return s.RunParams(query, nil)
}

// RunParams sends query with bound positional parameters using the spec §3
// binary frame (spec §4.14's run(query, params)).
func (s *Session) RunParams(query string, params []document.Value) (string, error) {
	if s.done {
		return "", tisserr.NewQuery("session's connection has already been released or declared dead")
	}
	wireParams := make([]Param, len(params))
	for i, v := range params {
		p, err := ParamFromValue(v)
		if err != nil {
			return "", err
		}
		wireParams[i] = p
	}
	frame, err := EncodeParamRequestCompressed(query, wireParams)
	if err != nil {
		return "", err
	}
	return s.sendAndReceive(frame)
}

// RunWithClientSideSubstitution performs longest-key-first literal
// substitution of $name placeholders and routes through Run. Deprecated:
// spec §4.14 documents this as SQL-injection-prone, retained only for test
// fixtures that predate parameter binding.
func (s *Session) RunWithClientSideSubstitution(query string, named map[string]document.Value) (string, error) {
	final := substituteNamedParams(query, named)
	return s.Run(final)
}

func (s *Session) sendAndReceive(frame []byte) (string, error) {
	if _, err := s.conn.Write(frame); err != nil {
		s.declareDead()
		return "", tisserr.NewQuery("failed to send request: %v", err)
	}
	resp, err := DecodeResponse(s.conn)
	if err != nil {
		s.declareDead()
		return "", tisserr.NewQuery("failed to receive response: %v", err)
	}
	return resp, nil
}

func (s *Session) declareDead() {
	if s.done {
		return
	}
	s.pool.DeclareDead(s.conn)
	s.done = true
}

// BeginTransaction sends BEGIN and returns a handle over this session (spec
// §4.14's beginTransaction()).
func (s *Session) BeginTransaction() (*Transaction, error) {
	if _, err := s.Run("BEGIN"); err != nil {
		return nil, err
	}
	return &Transaction{session: s, active: true}, nil
}

// Release returns this session's connection to the pool. A session whose
// connection already failed (declared dead) is a no-op here; a dead
// connection is never re-added to the pool.
func (s *Session) Release() {
	if s.done {
		return
	}
	s.pool.Release(s.conn)
	s.done = true
}
