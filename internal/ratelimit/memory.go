package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

type windowData struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// MemoryLimiter is a mutex-guarded fixed-window limiter. It is
// process-local: behind a horizontally scaled deployment each instance
// enforces its own ceiling, so multi-instance setups should use
// RedisLimiter instead.
type MemoryLimiter struct {
	maxRequests int
	window      time.Duration

	mutex   sync.Mutex
	entries map[string]*windowData

	allowed atomic.Int64
	denied  atomic.Int64
	swept   atomic.Int64

	now func() time.Time
}

func NewMemory(maxRequests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		maxRequests: maxRequests,
		window:      window,
		entries:     make(map[string]*windowData),
		now:         time.Now,
	}
}

func (l *MemoryLimiter) TryConsume(ctx context.Context, identity string) (Result, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	wd := l.entries[identity]

	// No record, or the window has fully elapsed: start a fresh window.
	if wd == nil || now.Sub(wd.windowStart) >= l.window {
		if l.maxRequests <= 0 {
			l.denied.Inc()
			return Result{ResetAt: now.Add(l.window)}, nil
		}
		l.entries[identity] = &windowData{count: 1, windowStart: now, lastSeen: now}
		l.allowed.Inc()
		return Result{Allowed: true, Remaining: l.maxRequests - 1, ResetAt: now.Add(l.window)}, nil
	}

	resetAt := wd.windowStart.Add(l.window)
	if wd.count >= l.maxRequests {
		l.denied.Inc()
		return Result{ResetAt: resetAt}, nil
	}

	wd.count++
	wd.lastSeen = now
	l.allowed.Inc()
	return Result{Allowed: true, Remaining: l.maxRequests - wd.count, ResetAt: resetAt}, nil
}

func (l *MemoryLimiter) Peek(ctx context.Context, identity string) (Result, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	wd := l.entries[identity]

	if wd == nil || now.Sub(wd.windowStart) >= l.window {
		if l.maxRequests <= 0 {
			return Result{}, nil
		}
		return Result{Allowed: true, Remaining: l.maxRequests - 1}, nil
	}

	resetAt := wd.windowStart.Add(l.window)
	if wd.count >= l.maxRequests {
		return Result{ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Remaining: l.maxRequests - wd.count - 1, ResetAt: resetAt}, nil
}

func (l *MemoryLimiter) SweepExpired(ctx context.Context) (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	removed := 0
	for identity, wd := range l.entries {
		if now.Sub(wd.windowStart) >= l.window {
			delete(l.entries, identity)
			removed++
		}
	}
	l.swept.Add(int64(removed))
	return removed, nil
}

// Stats returns cumulative decision counters since construction.
func (l *MemoryLimiter) Stats() (allowed, denied, swept int64) {
	return l.allowed.Load(), l.denied.Load(), l.swept.Load()
}
