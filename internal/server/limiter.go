package server

import (
	"sync"
	"time"
)

const (
	defaultMaxFailures = 5
	defaultBlockTime   = time.Minute
)

// authLimiter blocks a client after repeated failed password attempts.
type authLimiter struct {
	mu          sync.Mutex
	maxFailures int
	blockTime   time.Duration
	clients     map[string]*authAttempts
	now         func() time.Time
}

type authAttempts struct {
	failures     int
	blockedUntil time.Time
}

func newAuthLimiter(maxFailures int, blockTime time.Duration) *authLimiter {
	return &authLimiter{
		maxFailures: maxFailures,
		blockTime:   blockTime,
		clients:     make(map[string]*authAttempts),
		now:         time.Now,
	}
}

// blockedFor returns how long ip must wait, or zero if it may try again.
func (l *authLimiter) blockedFor(ip string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.clients[ip]
	if !ok {
		return 0
	}
	if wait := a.blockedUntil.Sub(l.now()); wait > 0 {
		return wait
	}
	return 0
}

// fail records a failed attempt and starts a block once the limit is hit.
func (l *authLimiter) fail(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.clients[ip]
	if !ok {
		a = &authAttempts{}
		l.clients[ip] = a
	}
	a.failures++
	if a.failures >= l.maxFailures {
		a.blockedUntil = l.now().Add(l.blockTime)
		a.failures = 0
	}
}

// succeed forgets ip's failures.
func (l *authLimiter) succeed(ip string) {
	l.mu.Lock()
	delete(l.clients, ip)
	l.mu.Unlock()
}

// sweep drops clients that are not blocked and have no recent failures.
func (l *authLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, a := range l.clients {
		if a.failures == 0 && now.After(a.blockedUntil) {
			delete(l.clients, ip)
		}
	}
}
