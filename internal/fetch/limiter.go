// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter keeps one token bucket per remote host so concurrent workers
// do not overwhelm a single server. A nil *HostLimiter never waits.
type HostLimiter struct {
	rps      float64
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns a limiter allowing rps requests per second to each
// host with a burst of one. It returns nil when rps is not positive.
func NewHostLimiter(rps float64) *HostLimiter {
	if rps <= 0 {
		return nil
	}
	return &HostLimiter{rps: rps, limiters: make(map[string]*rate.Limiter)}
}

// Wait blocks until a request to locator's host is allowed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, locator string) error {
	if h == nil {
		return nil
	}
	return h.limiter(hostOf(locator)).Wait(ctx)
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(h.rps), 1)
		h.limiters[host] = l
	}
	return l
}

func hostOf(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return locator
	}
	return strings.ToLower(u.Host)
}
