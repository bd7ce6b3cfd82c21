package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter enforces a minimum interval between requests per domain.
// Waiting on one domain never delays callers fetching other domains.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	delay    time.Duration
}

// NewDomainLimiter creates a limiter with the given default inter-request delay.
func NewDomainLimiter(defaultDelay time.Duration) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    defaultDelay,
	}
}

// Wait suspends the caller until a request to the given domain is permitted,
// then consumes the slot.
func (r *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return r.getLimiter(domain).Wait(ctx)
}

// SetDomainDelay sets a custom delay for a specific domain. The effective
// delay never drops below the configured default.
func (r *DomainLimiter) SetDomainDelay(domain string, delay time.Duration) {
	if delay < r.delay {
		delay = r.delay
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[domain] = rate.NewLimiter(rate.Every(delay), 1)
}

// getLimiter gets or creates a rate limiter for a domain.
func (r *DomainLimiter) getLimiter(domain string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[domain]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again in case another goroutine created it
	if limiter, exists := r.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(r.delay), 1)
	r.limiters[domain] = limiter

	return limiter
}
