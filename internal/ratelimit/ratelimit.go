package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a limiter decision. ResetAt is set whenever a
// live window exists for the identity; a denial is a normal decision, not
// an error.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter bounds consumptions per identity within a rolling window measured
// from the identity's first consumption.
//
// TryConsume is the single atomic check-and-increment: callers must not
// pair a Peek with a later TryConsume, as that reintroduces the
// check-then-act race that lets concurrent requests exceed the ceiling.
type Limiter interface {
	// TryConsume records a consumption if the identity is under its
	// ceiling, atomically.
	TryConsume(ctx context.Context, identity string) (Result, error)
	// Peek reports what TryConsume would decide, without consuming.
	Peek(ctx context.Context, identity string) (Result, error)
	// SweepExpired drops records whose window has fully elapsed and
	// returns how many were removed.
	SweepExpired(ctx context.Context) (int, error)
}

// DecisionCounter is implemented by limiters that keep cumulative decision
// counters; the sweeper reports them alongside each sweep.
type DecisionCounter interface {
	Stats() (allowed, denied, swept int64)
}
