package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Politeness owns per-domain crawler etiquette: a cached robots policy
// per domain and minimum-inter-request-delay enforcement. It is
// constructed once and passed to the scheduler; state is never
// process-global.
type Politeness struct {
	client       *http.Client
	userAgent    string
	defaultDelay time.Duration

	mu     sync.RWMutex
	groups map[string]*robotstxt.Group // nil entry means allow-all

	limiter *DomainLimiter
}

// NewPoliteness creates a politeness controller. The robots resource of
// each domain is fetched lazily on first use and cached for the lifetime
// of the controller.
func NewPoliteness(userAgent string, defaultDelay time.Duration) *Politeness {
	return &Politeness{
		client:       &http.Client{Timeout: 10 * time.Second},
		userAgent:    userAgent,
		defaultDelay: defaultDelay,
		groups:       make(map[string]*robotstxt.Group),
		limiter:      NewDomainLimiter(defaultDelay),
	}
}

// CanCrawl reports whether the URL is allowed by the domain's robots
// policy. Failure to fetch the robots resource defaults to allowed.
func (p *Politeness) CanCrawl(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	group := p.group(ctx, parsed.Host, parsed.Scheme)
	if group == nil {
		return true
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

// Wait suspends only the caller until the domain's effective delay has
// elapsed since the last request to it. The effective delay is the
// maximum of the robots-declared crawl-delay and the configured default.
func (p *Politeness) Wait(ctx context.Context, domain string) error {
	return p.limiter.Wait(ctx, domain)
}

// group returns the cached robots group for a domain, fetching and
// parsing the robots resource on first use.
func (p *Politeness) group(ctx context.Context, host, scheme string) *robotstxt.Group {
	p.mu.RLock()
	group, exists := p.groups[host]
	p.mu.RUnlock()

	if exists {
		return group
	}

	group = p.fetchGroup(ctx, host, scheme)

	p.mu.Lock()
	p.groups[host] = group
	p.mu.Unlock()

	if group != nil && group.CrawlDelay > p.defaultDelay {
		p.limiter.SetDomainDelay(host, group.CrawlDelay)
	}

	return group
}

func (p *Politeness) fetchGroup(ctx context.Context, host, scheme string) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("Robots fetch failed, assuming allowed", "host", host, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		slog.Debug("Robots parse failed, assuming allowed", "host", host, "error", err)
		return nil
	}

	return data.FindGroup(p.userAgent)
}
