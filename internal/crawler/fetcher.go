package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher performs a single bounded HTTP GET with timeout, size and
// content-type validation.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// Fetched is the outcome of a successful fetch.
type Fetched struct {
	Body       []byte
	StatusCode int
	FinalURL   string // after following redirects
}

// NewFetcher creates a fetcher with the given identifying header,
// request timeout and body size cap.
func NewFetcher(userAgent string, timeout time.Duration, maxBytes int64) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch performs one GET. Non-2xx statuses, non-HTML content types and
// oversized bodies come back as typed errors so the scheduler can branch
// on outcome kind.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	if !isHTMLContentType(resp.Header.Get("Content-Type")) {
		return nil, &ContentError{URL: url, Reason: "unsupported content type: " + resp.Header.Get("Content-Type")}
	}

	// Read one byte past the cap so oversized bodies are detected
	// without buffering the whole response.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &ContentError{URL: url, Reason: "oversized body"}
	}

	return &Fetched{
		Body:       body,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// Close closes idle connections held by the fetcher.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func isHTMLContentType(ct string) bool {
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}
