// Package server owns the demo's TCP listener and feeds accepted
// connections to the thread pool.
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	threadpool "github.com/azargarov/tpool"
)

const (
	acceptRetryInitial = 50 * time.Millisecond
	acceptRetryMax     = time.Second
)

// ConnHandler serves one accepted connection. Implementations must not
// close conn; the pool job owns it and closes it after ServeConn
// returns.
type ConnHandler interface {
	ServeConn(conn net.Conn)
}

// Config for a Server.
type Config struct {
	// Addr is the TCP listen address.
	Addr string

	// MaxConns caps connections accepted and not yet closed;
	// 0 means no cap.
	MaxConns int
}

// Server accepts TCP connections and dispatches each one as a job on
// the pool. One connection is one job: a pool of N workers serves at
// most N connections at a time and the rest wait their turn in arrival
// order.
type Server struct {
	cfg     Config
	pool    *threadpool.ThreadPool
	handler ConnHandler
	log     *zap.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

// New returns an unbound Server. A nil logger means no logging.
func New(cfg Config, pool *threadpool.ThreadPool, handler ConnHandler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, pool: pool, handler: handler, log: log}
}

// Listen binds the configured address. Call once, before Serve.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ln.Close()
		return errors.New("server: already closed")
	}
	s.ln = ln
	s.log.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_conns", s.cfg.MaxConns))
	return nil
}

// Addr returns the bound address, or nil before Listen. Useful with
// an ":0" listen address.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Close. Each accepted connection
// becomes one pool job that fully owns it. Serve returns nil once the
// listener has been closed; any other listener failure is returned.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server: Serve called before Listen")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			conn, err = s.retryAccept(ln, err)
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.log.Info("listener closed; no longer accepting")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.dispatch(conn)
	}
}

// retryAccept retries temporary accept failures with growing backoff
// and returns the first healthy connection, or the error once it stops
// being temporary.
func (s *Server) retryAccept(ln net.Listener, first error) (net.Conn, error) {
	bo := boff.New(acceptRetryInitial, acceptRetryMax, time.Now().UnixNano())
	err := first
	for {
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Temporary() {
			return nil, err
		}
		delay := bo.Next()
		s.log.Warn("accept failed; backing off",
			zap.Error(err), zap.Duration("sleep", delay))
		time.Sleep(delay)

		var conn net.Conn
		conn, err = ln.Accept()
		if err == nil {
			return conn, nil
		}
	}
}

// dispatch hands one connection to the pool. When the pool has already
// been stopped the connection is dropped instead of crashing the
// accept loop; shutdown normally closes the listener first, so this is
// a race window, not a steady state.
func (s *Server) dispatch(conn net.Conn) {
	id := uuid.NewString()
	clog := s.log.With(zap.String("conn", id))
	clog.Debug("connection accepted",
		zap.String("remote", conn.RemoteAddr().String()))

	ok := s.pool.TryExecute(func() {
		defer conn.Close()
		s.handler.ServeConn(conn)
		clog.Debug("connection served")
	})
	if !ok {
		clog.Warn("pool stopped; dropping connection")
		conn.Close()
	}
}

// Close shuts the listener down; Serve then returns nil. Safe to call
// repeatedly and before Listen.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln == nil {
		return nil
	}
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
