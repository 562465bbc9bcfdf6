// Package ratelimit throttles requests per client IP with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = time.Minute
	idleTimeout   = 3 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands each client IP its own bucket refilled at rps up to burst.
// Buckets idle for a few minutes are dropped on the next sweep.
type Limiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

func New(rps float64, burst int) *Limiter {
	return &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow takes a token from ip's bucket.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// sweep must be called with mu held.
func (l *Limiter) sweep(now time.Time) {
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > idleTimeout {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

// Len is the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects requests over the limit with a 429.
func (l *Limiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !l.Allow(c.RealIP()) {
			return errcodes.TooManyRequests()
		}
		return next(c)
	}
}
