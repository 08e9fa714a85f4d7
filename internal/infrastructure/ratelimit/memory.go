// Package ratelimit provides the two RateLimiter backends: an in-memory
// token bucket for single-instance deployments and a Redis fixed window for
// fleets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Haleralex/walletledger/internal/application/ports"
)

var _ ports.RateLimiter = (*MemoryLimiter)(nil)

// MemoryLimiter is a per-key token bucket. Buckets refill continuously at
// rate/interval and idle buckets are swept so the map stays bounded.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity float64
	refill   float64 // tokens per second
	now      func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewMemoryLimiter allows `limit` requests per `window` per key.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		buckets:  make(map[string]*bucket),
		capacity: float64(limit),
		refill:   float64(limit) / window.Seconds(),
		now:      time.Now,
	}
	go l.sweep(window)
	return l
}

// Allow consumes one token for the key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, lastSeen: now}
		return true, nil
	}

	elapsed := now.Sub(b.lastSeen).Seconds()
	b.tokens += elapsed * l.refill
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

func (l *MemoryLimiter) sweep(window time.Duration) {
	ticker := time.NewTicker(window * 2)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := l.now().Add(-window * 2)
		for key, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
