package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter is a set of token buckets keyed by client.
type Limiter struct {
	mu      sync.Mutex
	m       map[string]*entry
	now     func() time.Time
	idleTTL time.Duration
	swept   time.Time
}

// New creates a limiter. Buckets idle longer than idleTTL are forgotten; 0 keeps them forever.
func New(idleTTL time.Duration) *Limiter {
	return &Limiter{m: make(map[string]*entry), now: time.Now, idleTTL: idleTTL}
}

// Allow takes one token from key's bucket. A new bucket starts full with
// capacity tokens and refills at refillPerSec.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	e, ok := l.m[key]
	if !ok {
		burst := int(math.Max(1, math.Floor(capacity)))
		e = &entry{lim: rate.NewLimiter(rate.Limit(refillPerSec), burst)}
		l.m[key] = e
	}
	e.last = now
	return e.lim.AllowN(now, 1)
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.swept) < l.idleTTL {
		return
	}
	for key, e := range l.m {
		if now.Sub(e.last) > l.idleTTL {
			delete(l.m, key)
		}
	}
	l.swept = now
}
