package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

const keyPrefix = "ratelimit:"

// Counter is a shared fixed-window counter, backed by Redis in production
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Decision is the outcome of one request against its client's window
type Decision struct {
	Count     int64
	Limit     int
	Remaining int
	Allowed   bool
	Delay     time.Duration
	Reset     time.Duration
}

// Limiter caps requests per client per window and slows clients down once
// they pass a softer threshold.
type Limiter struct {
	shared    Counter // Optional, can be nil
	local     *memoryCounter
	limit     int
	slowAfter int
	delay     time.Duration
	window    time.Duration
}

func NewLimiter(shared Counter, limit, slowAfter int, delay time.Duration) *Limiter {
	return &Limiter{
		shared:    shared,
		local:     newMemoryCounter(time.Now),
		limit:     limit,
		slowAfter: slowAfter,
		delay:     delay,
		window:    time.Minute,
	}
}

// Hit counts one request for client. Redis failures fall back to the
// in-process counter, so limits become per instance until Redis returns.
func (l *Limiter) Hit(ctx context.Context, client string) Decision {
	key := keyPrefix + client

	var count int64
	var reset time.Duration
	var err error
	if l.shared != nil {
		count, reset, err = l.shared.Incr(ctx, key, l.window)
		if err != nil {
			log.Printf("[RATELIMIT] Redis counter failed, using local window: %v", err)
		}
	}
	if l.shared == nil || err != nil {
		count, reset = l.local.Incr(key, l.window)
	}

	d := Decision{
		Count:   count,
		Limit:   l.limit,
		Allowed: l.limit <= 0 || count <= int64(l.limit),
		Reset:   reset,
	}
	if l.limit > 0 && count < int64(l.limit) {
		d.Remaining = l.limit - int(count)
	}
	if l.slowAfter > 0 && count > int64(l.slowAfter) {
		d.Delay = time.Duration(count-int64(l.slowAfter)) * l.delay
	}
	return d
}

// Prune drops expired local windows and returns how many were removed
func (l *Limiter) Prune() int {
	return l.local.Prune()
}

type window struct {
	count   int64
	resetAt time.Time
}

type memoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func newMemoryCounter(now func() time.Time) *memoryCounter {
	return &memoryCounter{windows: make(map[string]*window), now: now}
}

func (m *memoryCounter) Incr(key string, length time.Duration) (int64, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(length)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now)
}

func (m *memoryCounter) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}
