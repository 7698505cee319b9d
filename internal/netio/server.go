// Package netio implements the TCP acceptor, per-connection protocol
// state machine, and tick scheduler that sit between a game.Game and
// the outside world.
package netio

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"arena-server/internal/game"
	"arena-server/internal/metrics"
	"arena-server/internal/ratelimit"
	"arena-server/internal/userdb"
)

// Server owns the set of live games (keyed by field id) and the shared
// user directory every login is checked against.
type Server struct {
	mu      sync.RWMutex
	games   map[int]*game.Game
	users   *userdb.DB
	limiter *ratelimit.Limiter
	log     *logrus.Entry
}

// NewServer creates a Server. limiter may be nil to disable per-IP
// accept throttling.
func NewServer(users *userdb.DB, limiter *ratelimit.Limiter, log *logrus.Entry) *Server {
	return &Server{
		games:   make(map[int]*game.Game),
		users:   users,
		limiter: limiter,
		log:     log,
	}
}

// AddGame registers g under id. Registering the same id twice is a
// configuration error.
func (s *Server) AddGame(id int, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.games[id]; exists {
		return game.ErrFieldExists
	}
	s.games[id] = g
	return nil
}

// GetGame looks up a registered game by field id.
func (s *Server) GetGame(id int) (*game.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	return g, ok
}

// Serve listens on addr and accepts connections until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("netio: listen on %s: %w", addr, err)
	}
	s.log.WithField("addr", addr).Info("listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("netio: accept: %w", err)
		}

		host, _, splitErr := net.SplitHostPort(conn.RemoteAddr().String())
		if splitErr != nil {
			host = conn.RemoteAddr().String()
		}
		if s.limiter != nil && !s.limiter.Allow(host) {
			conn.Close()
			continue
		}

		metrics.ActiveConnections.Inc()
		c := newConnection(conn, s, s.log)
		go c.run()
	}
}
