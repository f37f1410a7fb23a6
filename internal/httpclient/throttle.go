package httpclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between requests to the same host.
// One Throttle is shared by every client instance and worker that talks to
// a host, so the interval holds across goroutines.
type Throttle struct {
	mu        sync.Mutex
	fallback  time.Duration
	intervals map[string]time.Duration
	limiters  map[string]*rate.Limiter
}

// NewThrottle creates a Throttle applying interval to hosts without an
// explicit setting. A zero interval disables throttling for those hosts.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		fallback:  interval,
		intervals: make(map[string]time.Duration),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// SetInterval sets the minimum interval for host. It must be called before
// the first request to host to take effect.
func (t *Throttle) SetInterval(host string, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intervals[host] = interval
}

// Interval reports the interval applied to host.
func (t *Throttle) Interval(host string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.intervals[host]; ok {
		return d
	}
	return t.fallback
}

// Wait blocks until a request to host is allowed or ctx is done.
func (t *Throttle) Wait(ctx context.Context, host string) error {
	return t.limiter(host).Wait(ctx)
}

func (t *Throttle) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.limiters[host]; ok {
		return l
	}
	interval, ok := t.intervals[host]
	if !ok {
		interval = t.fallback
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	l := rate.NewLimiter(limit, 1)
	t.limiters[host] = l
	return l
}
