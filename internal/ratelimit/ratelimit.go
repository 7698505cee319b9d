// Package ratelimit throttles TCP accepts per source IP, so a
// reconnect storm from one address can't starve legitimate logins
// before a single protocol byte is read.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures the per-IP limiter.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

// DefaultConfig is a conservative default: a handful of connection
// attempts per second per IP, tolerating short bursts.
var DefaultConfig = Config{
	RequestsPerSecond: 5,
	Burst:             10,
	CleanupInterval:   5 * time.Minute,
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-IP token bucket rate limiter, safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	cfg      Config
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter and starts its background cleanup goroutine.
func New(cfg Config) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a connection attempt from ip should proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.entries[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.entries[ip] = e
	}
	e.lastSeen = time.Now()
	limiter := e.limiter
	l.mu.Unlock()
	return limiter.Allow()
}

// Stop halts the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.cfg.CleanupInterval * 2)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, ip)
		}
	}
}
