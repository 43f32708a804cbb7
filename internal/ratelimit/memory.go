package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a fixed-window counter kept in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	per     time.Duration
	now     func() time.Time
}

type window struct {
	start time.Time
	hits  int
}

func NewMemoryLimiter(max int, per time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		max:     max,
		per:     per,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.per {
		w = &window{start: now}
		l.windows[key] = w
		l.sweep(now)
	}
	if w.hits >= l.max {
		return false, nil
	}
	w.hits++
	return true, nil
}

// sweep drops expired windows so disconnected keys do not pile up.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.per {
			delete(l.windows, k)
		}
	}
}
