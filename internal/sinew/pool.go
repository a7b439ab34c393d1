package sinew

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/tissdb/tissdb/internal/tisserr"
)

// Config configures a client Pool, mirroring original_source's TissuConfig.
type Config struct {
	Host             string
	Port             int
	PoolSize         int
	ConnectTimeout   time.Duration // pool wait timeout (spec §4.13's connect_timeout_ms)
	DialTimeout      time.Duration // per-connection TCP dial timeout
	ReconnectBackoff backoff.BackOff
	Log              zerolog.Logger
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Pool owns a fixed-size set of TCP connections to a Sinew server (spec
// §4.13), grounded on original_source/quanta_tissu/tissu_sinew.cpp's
// TissuClientImpl: a mutex-guarded queue of available fds plus a wait with
// timeout, generalized here to a buffered channel (Go's idiomatic stand-in
// for the original's mutex+condition_variable pair).
type Pool struct {
	cfg       Config
	mu        sync.Mutex
	available chan net.Conn
	allCount  int
	closed    bool
}

// New dials cfg.PoolSize connections up front; any dial failure aborts
// construction with ConnectionInit (spec §4.13: "a failure at construction
// aborts with ConnectionInit"), closing whatever connections were already
// opened.
func New(cfg Config) (*Pool, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	p := &Pool{cfg: cfg, available: make(chan net.Conn, cfg.PoolSize)}
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	for i := 0; i < cfg.PoolSize; i++ {
		conn, err := dialer.Dial("tcp", cfg.addr())
		if err != nil {
			p.closeAll()
			return nil, tisserr.NewConnectionInit(cfg.addr(), err)
		}
		p.available <- conn
		p.allCount++
	}
	cfg.Log.Info().Str("addr", cfg.addr()).Int("pool_size", cfg.PoolSize).Msg("sinew pool initialized")
	return p, nil
}

func (p *Pool) closeAll() {
	close(p.available)
	for conn := range p.available {
		conn.Close()
	}
	p.available = make(chan net.Conn, p.cfg.PoolSize)
}

// Acquire blocks until a connection is available or ctx/ConnectTimeout
// elapses, whichever comes first, returning ConnectionTimeout on expiry
// (spec §4.13).
func (p *Pool) Acquire(ctx context.Context) (net.Conn, error) {
	start := time.Now()
	timer := time.NewTimer(p.cfg.ConnectTimeout)
	defer timer.Stop()

	select {
	case conn, ok := <-p.available:
		if !ok {
			return nil, tisserr.NewQuery("pool is closed")
		}
		return conn, nil
	case <-timer.C:
		return nil, tisserr.NewConnectionTimeout(time.Since(start).Milliseconds())
	case <-ctx.Done():
		return nil, tisserr.NewConnectionTimeout(time.Since(start).Milliseconds())
	}
}

// Release returns a healthy connection to the pool. Never call this for a
// connection that Declare Dead has already consumed.
func (p *Pool) Release(conn net.Conn) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		conn.Close()
		return
	}
	select {
	case p.available <- conn:
	default:
		// Pool is already at capacity (shouldn't happen with correct
		// acquire/release pairing); drop rather than block the releaser.
		conn.Close()
	}
}

// DeclareDead closes conn and, instead of returning it to the pool, dials a
// fresh replacement with cfg.ReconnectBackoff so the pool's advertised
// capacity is eventually restored (spec §4.13: "closed and dropped from the
// pool (not re-added)" describes the conservative synchronous behavior;
// reconnecting asynchronously here keeps later Acquire calls from starving
// permanently after a single transient I/O failure).
func (p *Pool) DeclareDead(conn net.Conn) {
	conn.Close()
	p.cfg.Log.Info().Msg("sinew connection declared dead, scheduling reconnect")
	go p.reconnect()
}

func (p *Pool) reconnect() {
	bo := p.cfg.ReconnectBackoff
	if bo == nil {
		bo = backoff.NewExponentialBackOff()
	}
	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}
	operation := func() error {
		conn, err := dialer.Dial("tcp", p.cfg.addr())
		if err != nil {
			return err
		}
		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			conn.Close()
			return nil
		}
		p.available <- conn
		return nil
	}
	if err := backoff.Retry(operation, bo); err != nil {
		p.cfg.Log.Error().Err(err).Msg("sinew pool failed to reconnect dropped connection")
	}
}

// Close closes every connection currently sitting idle in the pool. In-flight
// sessions release (or declare dead) their own connections on completion.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	close(p.available)
	for conn := range p.available {
		conn.Close()
	}
	return nil
}
