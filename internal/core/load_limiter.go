package core

// load_limiter.go bounds how many source loads run at once.
//
// Reloads come from the refresh scheduler and from the admin endpoint and
// may overlap. Each load fetches and parses the whole source, so the limiter
// keeps at most maxConcurrent in flight; others wait up to maxWait and then
// fail with ErrTooManyLoads. Shutdown uses WaitForDrain so an in-flight load
// can finish publishing before the process exits.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyLoads is returned when no load slot frees up within the wait time.
var ErrTooManyLoads = errors.New("too many loads in progress, please try again later")

// DefaultMaxConcurrentLoads is the default number of parallel loads.
const DefaultMaxConcurrentLoads = 1

// DefaultLoadWait is how long a load waits for a slot before giving up.
const DefaultLoadWait = 30 * time.Second

// LoadLimiter is a counting semaphore for source loads.
type LoadLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewLoadLimiter allows at most maxConcurrent loads; non-positive values use the defaults.
func NewLoadLimiter(maxConcurrent int, maxWait time.Duration) *LoadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}
	if maxWait <= 0 {
		maxWait = DefaultLoadWait
	}
	return &LoadLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, ctx ends, or maxWait passes.
// Every successful Acquire must be paired with Release.
func (l *LoadLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyLoads
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *LoadLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *LoadLimiter) Release() {
	<-l.slots
	l.active.Add(-1)
}

// ActiveCount returns the number of loads currently holding a slot.
func (l *LoadLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *LoadLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no load holds a slot or ctx ends.
func (l *LoadLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LoadLimiterStatus is a snapshot of limiter usage for health output.
type LoadLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter usage.
func (l *LoadLimiter) Status() LoadLimiterStatus {
	return LoadLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
