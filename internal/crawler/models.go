package crawler

import "time"

// Queue entry lifecycle states.
const (
	StatusPending   = "pending"
	StatusCrawling  = "crawling"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Enqueue priorities, higher is sooner.
const (
	PrioritySeed     = 10 // manually curated seed URLs
	PriorityInternal = 5  // links discovered on the same domain
	PriorityExternal = 3  // allow-listed external links
)

// Content type classifications.
const (
	TypeWeb       = "web"
	TypeNews      = "news"
	TypeAcademic  = "academic"
	TypeReference = "reference"
)

// Page represents processed page content ready for indexing.
type Page struct {
	URL           string
	Domain        string
	Title         string
	Content       string // stripped visible text, whitespace-collapsed
	HTML          string // raw markup, may be large
	ContentHash   string // hash of Content, for change detection across re-crawls
	ContentType   string // web, news, academic or reference
	Language      string // declared <html lang> value, if any
	QualityScore  float64
	PageRank      float64
	StatusCode    int
	ContentLength int
	CrawledAt     time.Time
}

// Link represents a discovered link relationship.
type Link struct {
	ToURL      string
	AnchorText string
	LinkType   string // 'internal' (same domain) or 'external'
}

// Image represents an image reference owned by a page.
type Image struct {
	URL     string
	AltText string
	Title   string
	Width   int
	Height  int
}

// QueueItem is a claimed crawl-queue entry.
type QueueItem struct {
	ID         int64
	URL        string
	Domain     string
	Priority   int
	RetryCount int
}

// QueueEntry is the full durable representation of a queue row,
// surfaced by statistics and export operations.
type QueueEntry struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Domain        string     `json:"domain"`
	Priority      int        `json:"priority"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	LastAttempt   *time.Time `json:"last_attempt,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// CrawlStats represents scheduler statistics.
type CrawlStats struct {
	PagesCrawled int
	ErrorCount   int
	StartTime    time.Time
	Duration     time.Duration
}
