package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// Write-endpoint budget per client IP. The treasury UI issues at most a
// handful of POSTs per interaction, so 60 per minute is generous for a
// person and tight enough to blunt form-spam against the public
// request endpoint.
const (
	writeBudget = 60
	writeWindow = time.Minute
	staleAfter  = 10 * time.Minute
	sweepEvery  = 5 * time.Minute
)

// rateLimiter tracks a fixed-window request count per client IP.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*ipWindow

	stopSweep chan struct{}
	stopOnce  sync.Once
}

type ipWindow struct {
	seen  time.Time
	count int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows:   make(map[string]*ipWindow),
		stopSweep: make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// sweepLoop evicts IPs not seen within staleAfter so the map stays
// bounded by recent traffic, not lifetime traffic.
func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopSweep:
			return
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleAfter)
	for ip, w := range rl.windows {
		if w.seen.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopSweep)
	})
}

// allow reports whether another write from clientIP fits the current
// window, counting rejections into metrics when one is attached.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[clientIP]
	if !ok || now.Sub(w.seen) > writeWindow {
		rl.windows[clientIP] = &ipWindow{seen: now, count: 1}
		return true
	}

	w.count++
	w.seen = now
	if w.count > writeBudget {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
