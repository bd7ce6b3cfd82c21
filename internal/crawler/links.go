package crawler

import (
	"log/slog"
	"net/url"
	"strings"
)

// Page-rank deltas applied to a link target on discovery. Cross-domain
// in-links carry more authority weight than same-domain ones.
const (
	internalRankDelta = 0.01
	externalRankDelta = 0.05
)

// LinkExtractor records discovered links and images and enqueues newly
// discovered URLs subject to per-domain caps and an external-domain
// allow-list.
type LinkExtractor struct {
	storage           Storage
	allowedExternal   []string
	maxPagesPerDomain int
}

// NewLinkExtractor creates a link graph extractor.
func NewLinkExtractor(storage Storage, allowedExternal []string, maxPagesPerDomain int) *LinkExtractor {
	return &LinkExtractor{
		storage:           storage,
		allowedExternal:   allowedExternal,
		maxPagesPerDomain: maxPagesPerDomain,
	}
}

// ExtractAndEnqueue records the page's link and image rows, accumulates
// the target pages' authority weights, and enqueues crawl candidates.
// Enqueueing is always duplicate-safe.
func (e *LinkExtractor) ExtractAndEnqueue(pageID int64, links []Link, images []Image) error {
	if err := e.storage.RecordLinks(pageID, links); err != nil {
		return err
	}
	if err := e.storage.RecordImages(pageID, images); err != nil {
		return err
	}

	for _, link := range links {
		delta := internalRankDelta
		if link.LinkType == "external" {
			delta = externalRankDelta
		}
		if err := e.storage.BumpPageRank(link.ToURL, delta); err != nil {
			slog.Warn("Failed to update page rank", "url", link.ToURL, "error", err)
		}

		e.maybeEnqueue(link)
	}

	return nil
}

func (e *LinkExtractor) maybeEnqueue(link Link) {
	target, err := url.Parse(link.ToURL)
	if err != nil || target.Host == "" {
		return
	}
	domain := target.Host

	priority := PriorityInternal
	if link.LinkType == "external" {
		if !e.isAllowedExternal(domain) {
			return
		}
		priority = PriorityExternal
	}

	count, err := e.storage.CountPagesForDomain(domain)
	if err != nil {
		slog.Warn("Failed to count pages for domain", "domain", domain, "error", err)
		return
	}
	if count >= e.maxPagesPerDomain {
		slog.Debug("Domain at page cap, skipping", "domain", domain, "url", link.ToURL)
		return
	}

	if err := e.storage.Enqueue(link.ToURL, domain, priority); err != nil {
		slog.Warn("Failed to enqueue discovered URL", "url", link.ToURL, "error", err)
	}
}

// isAllowedExternal reports whether the domain matches the curated
// allow-list of high-value external domains, including subdomains.
func (e *LinkExtractor) isAllowedExternal(domain string) bool {
	for _, allowed := range e.allowedExternal {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}
	return false
}
