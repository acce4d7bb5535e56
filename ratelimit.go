package go24so

import (
	"context"
	"sync"
	"time"
)

// rateLimitWindow is the fixed accounting interval for the limiter.
const rateLimitWindow = time.Minute

// RateLimiter bounds outbound calls to a fixed number per window. Acquire
// blocks until a slot is available; it never rejects. Callers are admitted
// in strict arrival order: each caller reserves the next slot and sleeps
// until the window containing that slot opens. Safe for concurrent use.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu          sync.Mutex
	windowStart time.Time
	// epoch counts window rolls so a waiter's reserved slot index can be
	// mapped onto the current window numbering when it is released.
	epoch int64
	// count is the number of slots handed out since windowStart's window;
	// values beyond limit are reservations in future windows.
	count int
	// free holds slot indices returned by cancelled waiters; new arrivals
	// consume these before extending count.
	free []int
	// penaltyUntil delays admission after a server Retry-After hint.
	penaltyUntil time.Time

	closed chan struct{}
}

// NewRateLimiter creates a limiter admitting limit calls per 60s window.
// A limit <= 0 disables limiting: Acquire becomes a no-op.
func NewRateLimiter(limit int) *RateLimiter {
	if limit <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:  limit,
		window: rateLimitWindow,
		closed: make(chan struct{}),
	}
}

// Acquire blocks until a slot is available, the context is cancelled, or
// the limiter is closed. A nil limiter admits immediately.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if rl == nil {
		return nil
	}

	rl.mu.Lock()
	now := time.Now()
	if rl.windowStart.IsZero() {
		rl.windowStart = now
	}
	rl.roll(now)

	slot := rl.takeSlot()
	epoch := rl.epoch

	admitAt := now
	if slot >= rl.limit {
		admitAt = rl.windowStart.Add(rl.window * time.Duration(slot/rl.limit))
	}
	if rl.penaltyUntil.After(admitAt) {
		admitAt = rl.penaltyUntil
	}
	rl.mu.Unlock()

	wait := time.Until(admitAt)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		rl.release(slot, epoch)
		return ctx.Err()
	case <-rl.closed:
		rl.release(slot, epoch)
		return ErrClientClosed
	}
}

// roll advances windowStart over fully elapsed windows, retiring their
// slots and renumbering freed reservations. Must be called with the lock
// held.
func (rl *RateLimiter) roll(now time.Time) {
	for now.Sub(rl.windowStart) >= rl.window {
		rl.windowStart = rl.windowStart.Add(rl.window)
		rl.epoch++
		rl.count -= rl.limit
		if rl.count < 0 {
			rl.count = 0
		}
		kept := rl.free[:0]
		for _, f := range rl.free {
			if f -= rl.limit; f >= 0 {
				kept = append(kept, f)
			}
		}
		rl.free = kept
	}
}

// takeSlot hands out the earliest freed slot when one exists, otherwise
// the next unreserved index. Must be called with the lock held.
func (rl *RateLimiter) takeSlot() int {
	if n := len(rl.free); n > 0 {
		min := 0
		for i, f := range rl.free {
			if f < rl.free[min] {
				min = i
			}
		}
		slot := rl.free[min]
		rl.free[min] = rl.free[n-1]
		rl.free = rl.free[:n-1]
		return slot
	}
	slot := rl.count
	rl.count++
	return slot
}

// release returns a waiter's own reserved slot after a cancelled wait so
// later callers can consume exactly that capacity. Releasing any other
// index would hand one slot to two waiters and breach the ceiling.
func (rl *RateLimiter) release(slot int, epoch int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Renumber onto the current window; a slot whose window already
	// elapsed carries no capacity worth returning.
	slot -= int(rl.epoch-epoch) * rl.limit
	if slot < 0 || slot >= rl.count {
		return
	}
	if slot == rl.count-1 {
		rl.count--
		return
	}
	rl.free = append(rl.free, slot)
}

// noteRetryAfter records a server-provided Retry-After hint. Future
// admissions are held back until the hint elapses, shrinking contention
// against a server that is already pushing back.
func (rl *RateLimiter) noteRetryAfter(d time.Duration) {
	if rl == nil || d <= 0 {
		return
	}
	until := time.Now().Add(d)
	rl.mu.Lock()
	if until.After(rl.penaltyUntil) {
		rl.penaltyUntil = until
	}
	rl.mu.Unlock()
}

// Close wakes all blocked waiters with ErrClientClosed.
func (rl *RateLimiter) Close() {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	select {
	case <-rl.closed:
	default:
		close(rl.closed)
	}
	rl.mu.Unlock()
}

// remaining reports how many slots the current window still has, for
// metrics and debug logging.
func (rl *RateLimiter) remaining() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.windowStart.IsZero() {
		return rl.limit
	}

	now := time.Now()
	count := rl.count
	windowStart := rl.windowStart
	shift := 0
	for now.Sub(windowStart) >= rl.window {
		windowStart = windowStart.Add(rl.window)
		count -= rl.limit
		if count < 0 {
			count = 0
		}
		shift += rl.limit
	}

	used := count
	if used > rl.limit {
		used = rl.limit
	}
	for _, f := range rl.free {
		if f -= shift; f >= 0 && f < used {
			used--
		}
	}

	left := rl.limit - used
	if left < 0 {
		left = 0
	}
	return left
}
