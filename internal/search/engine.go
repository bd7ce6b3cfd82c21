// Package search implements the query side of the engine: it turns free
// text into full-text match expressions, runs them against the stored
// index and shapes the hits into presentable results.
package search

import (
	"log/slog"
	"strings"

	"github.com/webscout/websearch/internal/storage"
)

// Kind selects the search vertical.
type Kind string

const (
	KindWeb    Kind = "web"
	KindNews   Kind = "news"
	KindImages Kind = "images"
)

// DefaultLimit is used when the caller does not ask for a result count.
const DefaultLimit = 10

// newsDomains backs the news fallback for indexes where classification
// has not tagged any matching page as news yet.
var newsDomains = []string{"bbc", "reuters", "theguardian", "cnn", "news"}

// Result is a single search hit, shaped for presentation.
type Result struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Domain      string  `json:"domain,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Score       float64 `json:"score,omitempty"`
	PageURL     string  `json:"page_url,omitempty"`
	AltText     string  `json:"alt_text,omitempty"`
}

// Index is the slice of storage the engine queries.
type Index interface {
	SearchPages(match string, limit int) ([]storage.PageHit, error)
	SearchNews(match string, newsDomains []string, limit int) ([]storage.PageHit, error)
	SearchImages(query string, limit int) ([]storage.ImageHit, error)
	Statistics() (*storage.Statistics, error)
}

// Engine answers web, news and image queries against an index.
type Engine struct {
	index Index
}

// NewEngine creates a search engine over the given index.
func NewEngine(index Index) *Engine {
	return &Engine{index: index}
}

// Search runs a query in the given vertical. An index error is treated
// as "no results" rather than a user-facing failure; only an unusable
// query is an error.
func (e *Engine) Search(query string, kind Kind, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	switch kind {
	case KindImages:
		return e.searchImages(strings.Join(terms, " "), limit)
	case KindNews:
		return e.searchNews(matchExpr(terms), terms, limit)
	default:
		return e.searchWeb(matchExpr(terms), terms, limit)
	}
}

// Stats reports index and queue statistics.
func (e *Engine) Stats() (*storage.Statistics, error) {
	return e.index.Statistics()
}

func (e *Engine) searchWeb(match string, terms []string, limit int) ([]Result, error) {
	hits, err := e.index.SearchPages(match, limit)
	if err != nil {
		slog.Error("Page search failed", "match", match, "error", err)
		return []Result{}, nil
	}
	return pageResults(hits, terms), nil
}

func (e *Engine) searchNews(match string, terms []string, limit int) ([]Result, error) {
	hits, err := e.index.SearchNews(match, newsDomains, limit)
	if err != nil {
		slog.Error("News search failed", "match", match, "error", err)
		return []Result{}, nil
	}
	return pageResults(hits, terms), nil
}

func (e *Engine) searchImages(query string, limit int) ([]Result, error) {
	hits, err := e.index.SearchImages(query, limit)
	if err != nil {
		slog.Error("Image search failed", "query", query, "error", err)
		return []Result{}, nil
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			URL:     h.URL,
			Title:   h.Title,
			Snippet: h.AltText,
			AltText: h.AltText,
			PageURL: h.PageURL,
		})
	}
	return results, nil
}

func pageResults(hits []storage.PageHit, terms []string) []Result {
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			URL:         h.URL,
			Title:       h.Title,
			Snippet:     snippet(h.Content, terms),
			Domain:      h.Domain,
			ContentType: h.ContentType,
			Score:       h.Score,
		})
	}
	return results
}

// tokenize splits a query into searchable terms, dropping short tokens
// that add noise to the full-text match.
func tokenize(query string) []string {
	var terms []string
	for _, field := range strings.Fields(strings.ToLower(query)) {
		term := strings.Trim(field, `"'.,;:!?()[]`)
		if len(term) > 2 {
			terms = append(terms, term)
		}
	}
	return terms
}

// matchExpr builds an FTS5 match expression. Terms are quoted so that
// punctuation inside them cannot be parsed as query syntax, and joined
// with OR so any term can contribute to the ranking.
func matchExpr(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
