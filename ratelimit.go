package noteauth

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter gates login and OTP attempts. Keys are caller-chosen,
// typically "clientIP:email".
type RateLimiter interface {
	Allow(key string) bool
}

// KeyedLimiter is a token-bucket RateLimiter with an independent bucket per
// key. Buckets are created on first use and kept for the process lifetime;
// the key space (IP + email pairs actively attempting auth) stays small.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyedLimiter allows limit events per second with the given burst per key.
func NewKeyedLimiter(limit rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
