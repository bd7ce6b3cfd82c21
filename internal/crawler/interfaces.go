package crawler

import "time"

// Storage handles durable persistence of pages, links, images and the
// crawl queue. All crawl-driven mutations funnel through it in short,
// independent transactions.
type Storage interface {
	// Queue management
	Enqueue(url, domain string, priority int) error
	ClaimNext(cooldown time.Duration) (*QueueItem, error)
	ResetStaleCrawling(olderThan time.Duration) (int64, error)
	MarkCompleted(url, note string) error
	MarkFailed(url, errMsg string) error

	// Page content and the full-text index, kept in sync transactionally
	UpsertPage(p *Page) (int64, error)

	// Link graph and image records, append-only and idempotent
	RecordLinks(fromPageID int64, links []Link) error
	RecordImages(pageID int64, images []Image) error
	BumpPageRank(url string, delta float64) error

	// Per-domain bookkeeping
	CountPagesForDomain(domain string) (int, error)

	// Queue status
	QueueCounts() (pending, crawling, completed, failed int, err error)
	HasQueuedItems() (bool, error)

	// Database lifecycle
	Close() error
}
