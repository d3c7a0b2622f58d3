package crawler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter spaces consecutive fetches against the same host so the crawl
// does not hammer a single origin server.
type hostLimiter struct {
	mu       sync.Mutex
	delay    time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiter(delay time.Duration) *hostLimiter {
	return &hostLimiter{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a fetch against pageURL's host is allowed.
func (h *hostLimiter) Wait(ctx context.Context, pageURL string) error {
	if h.delay <= 0 {
		return nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return err
	}
	return h.limiterFor(u.Host).Wait(ctx)
}

func (h *hostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.delay), 1)
		h.limiters[host] = limiter
	}
	return limiter
}
