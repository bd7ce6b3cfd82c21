// Package storage provides data persistence for the search engine.
// It implements SQLite-based storage for pages, links, images and the
// crawl queue, plus an FTS5 full-text index kept transactionally
// consistent with page content.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/webscout/websearch/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Store implements the crawler.Storage interface using SQLite.
type Store struct {
	db            *sql.DB
	maxRetries    int
	retryCooldown time.Duration
}

// New creates a SQLite store. Failed queue entries are re-armed with
// retryCooldown until maxRetries is reached, after which they stay
// terminally failed.
func New(dbPath string, maxRetries int, retryCooldown time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts between the crawl
	// workers' short write transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &Store{db: db, maxRetries: maxRetries, retryCooldown: retryCooldown}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue inserts a pending queue entry. Already-queued URLs are a
// no-op regardless of their current status.
func (s *Store) Enqueue(url, domain string, priority int) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO crawl_queue (url, domain, priority, status, scheduled_time)
		VALUES (?, ?, ?, 'pending', ?)
	`, url, domain, priority, time.Now().UTC())

	if err != nil {
		return &crawler.StorageError{Op: "enqueue", Err: err}
	}
	return nil
}

// ClaimNext atomically selects the highest-priority eligible pending
// entry, marks it crawling and returns it. The select and mark are a
// single statement so two concurrent workers can never claim the same
// URL. Returns nil when no entry is eligible.
func (s *Store) ClaimNext(cooldown time.Duration) (*crawler.QueueItem, error) {
	now := time.Now().UTC()
	var item crawler.QueueItem

	err := s.db.QueryRow(`
		UPDATE crawl_queue
		SET status = 'crawling', last_attempt = ?
		WHERE id = (
			SELECT id FROM crawl_queue
			WHERE status = 'pending'
			  AND scheduled_time <= ?
			  AND (last_attempt IS NULL OR last_attempt <= ?)
			ORDER BY priority DESC, scheduled_time ASC
			LIMIT 1
		) AND status = 'pending'
		RETURNING id, url, domain, priority, retry_count
	`, now, now, now.Add(-cooldown)).Scan(&item.ID, &item.URL, &item.Domain, &item.Priority, &item.RetryCount)

	if err == sql.ErrNoRows {
		return nil, nil // No eligible entries
	}
	if err != nil {
		return nil, &crawler.StorageError{Op: "claim_next", Err: err}
	}

	return &item, nil
}

// ResetStaleCrawling re-arms crawling entries whose claim is older than
// olderThan back to pending. Entries claimed by a run that died between
/// claim and mark would otherwise be stuck: ClaimNext only selects
// pending. Zero olderThan resets every crawling entry. Returns the
// number of entries recovered.
func (s *Store) ResetStaleCrawling(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	res, err := s.db.Exec(`
		UPDATE crawl_queue
		SET status = 'pending', last_attempt = NULL
		WHERE status = 'crawling'
		  AND (last_attempt IS NULL OR last_attempt <= ?)
	`, cutoff)
	if err != nil {
		return 0, &crawler.StorageError{Op: "reset_stale_crawling", Err: err}
	}
	return res.RowsAffected()
}

// MarkCompleted terminally completes a queue entry; used both for
// successful crawls and policy skips.
func (s *Store) MarkCompleted(url, note string) error {
	_, err := s.db.Exec(`
		UPDATE crawl_queue SET status = 'completed', error_message = ? WHERE url = ?
	`, nullIfEmpty(note), url)

	if err != nil {
		return &crawler.StorageError{Op: "mark_completed", Err: err}
	}
	return nil
}

// MarkFailed records a failed attempt. Below the retry cap the entry is
// re-armed as pending with a cool-down scheduled_time; at the cap it
// stays terminally failed.
func (s *Store) MarkFailed(url, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &crawler.StorageError{Op: "mark_failed", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.Exec(`
		UPDATE crawl_queue
		SET status = 'failed', error_message = ?, retry_count = retry_count + 1, last_attempt = ?
		WHERE url = ?
	`, errMsg, now, url); err != nil {
		return &crawler.StorageError{Op: "mark_failed", Err: err}
	}

	if _, err := tx.Exec(`
		UPDATE crawl_queue
		SET status = 'pending', scheduled_time = ?
		WHERE url = ? AND retry_count < ?
	`, now.Add(s.retryCooldown), url, s.maxRetries); err != nil {
		return &crawler.StorageError{Op: "mark_failed", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &crawler.StorageError{Op: "mark_failed", Err: err}
	}
	return nil
}

// UpsertPage replaces any existing row for the page's URL and updates
// the full-text index entry in the same transaction: either both
// commit or neither does. The accumulated page_rank survives upserts.
func (s *Store) UpsertPage(p *crawler.Page) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, &crawler.StorageError{Op: "upsert_page", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	quality := clamp01(p.QualityScore)

	if _, err := tx.Exec(`
		INSERT INTO pages (
			url, domain, title, content, html, content_hash, content_type,
			language, crawl_timestamp, quality_score, status_code, content_length
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			domain = excluded.domain,
			title = excluded.title,
			content = excluded.content,
			html = excluded.html,
			content_hash = excluded.content_hash,
			content_type = excluded.content_type,
			language = excluded.language,
			crawl_timestamp = excluded.crawl_timestamp,
			quality_score = excluded.quality_score,
			status_code = excluded.status_code,
			content_length = excluded.content_length
	`, p.URL, p.Domain, p.Title, p.Content, p.HTML, p.ContentHash, p.ContentType,
		p.Language, p.CrawledAt, quality, p.StatusCode, p.ContentLength); err != nil {
		return 0, &crawler.StorageError{Op: "upsert_page", Err: err}
	}

	var id int64
	if err := tx.QueryRow("SELECT id FROM pages WHERE url = ?", p.URL).Scan(&id); err != nil {
		return 0, &crawler.StorageError{Op: "upsert_page", Err: err}
	}

	if _, err := tx.Exec("DELETE FROM pages_fts WHERE rowid = ?", id); err != nil {
		return 0, &crawler.StorageError{Op: "upsert_page", Err: err}
	}
	if _, err := tx.Exec(
		"INSERT INTO pages_fts (rowid, title, content) VALUES (?, ?, ?)",
		id, p.Title, p.Content,
	); err != nil {
		return 0, &crawler.StorageError{Op: "upsert_page", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &crawler.StorageError{Op: "upsert_page", Err: err}
	}
	return id, nil
}

// RecordLinks appends link rows for a page in one transaction,
// idempotent on (from_page_id, to_url). Targets already stored get
// their page id resolved; orphan links keep a NULL to_page_id.
func (s *Store) RecordLinks(fromPageID int64, links []crawler.Link) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &crawler.StorageError{Op: "record_links", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO links (
			from_page_id, to_page_id, to_url, anchor_text, link_type, discovered_timestamp
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &crawler.StorageError{Op: "record_links", Err: err}
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, link := range links {
		var toPageID any
		var id int64
		err := tx.QueryRow("SELECT id FROM pages WHERE url = ?", link.ToURL).Scan(&id)
		switch {
		case err == nil:
			toPageID = id
		case err == sql.ErrNoRows:
			toPageID = nil
		default:
			return &crawler.StorageError{Op: "record_links", Err: err}
		}

		if _, err := stmt.Exec(fromPageID, toPageID, link.ToURL, link.AnchorText, link.LinkType, now); err != nil {
			return &crawler.StorageError{Op: "record_links", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &crawler.StorageError{Op: "record_links", Err: err}
	}
	return nil
}

// RecordImages appends image rows for a page, idempotent on (page_id, url).
func (s *Store) RecordImages(pageID int64, images []crawler.Image) error {
	if len(images) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &crawler.StorageError{Op: "record_images", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO images (
			page_id, url, alt_text, title, width, height, discovered_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return &crawler.StorageError{Op: "record_images", Err: err}
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, img := range images {
		if _, err := stmt.Exec(pageID, img.URL, img.AltText, img.Title,
			nullIfZero(img.Width), nullIfZero(img.Height), now); err != nil {
			return &crawler.StorageError{Op: "record_images", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &crawler.StorageError{Op: "record_images", Err: err}
	}
	return nil
}

// BumpPageRank accumulates authority weight on a stored page. A no-op
// when the target page has not been stored yet.
func (s *Store) BumpPageRank(url string, delta float64) error {
	_, err := s.db.Exec(
		"UPDATE pages SET page_rank = page_rank + ? WHERE url = ?", delta, url)
	if err != nil {
		return &crawler.StorageError{Op: "bump_page_rank", Err: err}
	}
	return nil
}

// CountPagesForDomain returns the number of stored pages for a domain.
func (s *Store) CountPagesForDomain(domain string) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pages WHERE domain = ?", domain).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages for domain: %w", err)
	}
	return count, nil
}

// QueueCounts returns queue entry counts by status.
func (s *Store) QueueCounts() (pending, crawling, completed, failed int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'crawling' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM crawl_queue
	`).Scan(&pending, &crawling, &completed, &failed)

	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get queue counts: %w", err)
	}
	return pending, crawling, completed, failed, nil
}

// HasQueuedItems checks if any work items remain (pending or crawling).
func (s *Store) HasQueuedItems() (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM crawl_queue WHERE status IN ('pending', 'crawling')
	`).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check queued items: %w", err)
	}
	return count > 0, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
