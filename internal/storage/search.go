package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/webscout/websearch/internal/crawler"
)

// PageHit is a ranked full-text match against page title and content.
type PageHit struct {
	ID             int64
	URL            string
	Title          string
	Content        string
	Domain         string
	ContentType    string
	PageRank       float64
	QualityScore   float64
	Score          float64
	CrawlTimestamp time.Time
}

// ImageHit is an image match with its owning page's context.
type ImageHit struct {
	URL          string
	AltText      string
	Title        string
	PageURL      string
	PageTitle    string
	PageRank     float64
	QualityScore float64
}

// Statistics summarizes the state of the index and queue.
type Statistics struct {
	TotalPages    int            `json:"total_pages"`
	PagesByType   map[string]int `json:"pages_by_type"`
	DomainCount   int            `json:"domain_count"`
	QueueByStatus map[string]int `json:"queue_by_status"`
	ImageCount    int            `json:"image_count"`
}

// pageHitColumns is shared by the full-text search variants. bm25()
// returns more-negative values for better matches, so relevance is its
// negation; the combined score multiplies relevance by the authority
// and quality weights.
const pageHitColumns = `
	p.id, p.url, p.title, p.content, p.domain, p.content_type,
	p.page_rank, p.quality_score, p.crawl_timestamp,
	(-bm25(pages_fts)) * (1 + p.page_rank) * p.quality_score AS score
`

// SearchPages runs a full-text match ranked by
// relevance*(1+page_rank)*quality_score, ties broken by most recent
// crawl then ascending id for a deterministic total order.
func (s *Store) SearchPages(match string, limit int) ([]PageHit, error) {
	rows, err := s.db.Query(`
		SELECT `+pageHitColumns+`
		FROM pages_fts
		JOIN pages p ON pages_fts.rowid = p.id
		WHERE pages_fts MATCH ?
		ORDER BY score DESC, p.crawl_timestamp DESC, p.id ASC
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("page search failed: %w", err)
	}
	return scanPageHits(rows)
}

// SearchNews prefers pages classified as news, ranked primarily by
// recency. When none match, it falls back to matching pages whose
// domain contains a known news-site substring.
func (s *Store) SearchNews(match string, newsDomains []string, limit int) ([]PageHit, error) {
	rows, err := s.db.Query(`
		SELECT `+pageHitColumns+`
		FROM pages_fts
		JOIN pages p ON pages_fts.rowid = p.id
		WHERE pages_fts MATCH ? AND p.content_type = 'news'
		ORDER BY p.crawl_timestamp DESC, score DESC, p.id ASC
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("news search failed: %w", err)
	}

	hits, err := scanPageHits(rows)
	if err != nil || len(hits) > 0 || len(newsDomains) == 0 {
		return hits, err
	}

	// Fallback: recognizable news domains regardless of classification.
	preds := make([]string, len(newsDomains))
	args := []any{match}
	for i, d := range newsDomains {
		preds[i] = "p.domain LIKE ?"
		args = append(args, "%"+d+"%")
	}
	args = append(args, limit)

	rows, err = s.db.Query(`
		SELECT `+pageHitColumns+`
		FROM pages_fts
		JOIN pages p ON pages_fts.rowid = p.id
		WHERE pages_fts MATCH ? AND (`+strings.Join(preds, " OR ")+`)
		ORDER BY p.crawl_timestamp DESC, score DESC, p.id ASC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("news domain fallback failed: %w", err)
	}
	return scanPageHits(rows)
}

// SearchImages matches image alt text, image title or owning-page title
// by substring, ranked by the owning page's authority and quality.
func (s *Store) SearchImages(query string, limit int) ([]ImageHit, error) {
	pattern := "%" + query + "%"

	rows, err := s.db.Query(`
		SELECT i.url, COALESCE(i.alt_text, ''), COALESCE(i.title, ''),
		       p.url, COALESCE(p.title, ''), p.page_rank, p.quality_score
		FROM images i
		JOIN pages p ON i.page_id = p.id
		WHERE i.alt_text LIKE ? OR i.title LIKE ? OR p.title LIKE ?
		ORDER BY p.page_rank DESC, p.quality_score DESC, i.id ASC
		LIMIT ?
	`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("image search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []ImageHit
	for rows.Next() {
		var h ImageHit
		if err := rows.Scan(&h.URL, &h.AltText, &h.Title, &h.PageURL, &h.PageTitle,
			&h.PageRank, &h.QualityScore); err != nil {
			return nil, fmt.Errorf("failed to scan image hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Statistics returns index and queue counters.
func (s *Store) Statistics() (*Statistics, error) {
	stats := &Statistics{
		PagesByType:   make(map[string]int),
		QueueByStatus: make(map[string]int),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&stats.TotalPages); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(DISTINCT domain) FROM pages").Scan(&stats.DomainCount); err != nil {
		return nil, fmt.Errorf("failed to count domains: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&stats.ImageCount); err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	if err := s.scanGroupCounts("SELECT content_type, COUNT(*) FROM pages GROUP BY content_type", stats.PagesByType); err != nil {
		return nil, err
	}
	if err := s.scanGroupCounts("SELECT status, COUNT(*) FROM crawl_queue GROUP BY status", stats.QueueByStatus); err != nil {
		return nil, err
	}

	return stats, nil
}

// ResetFailed re-arms terminally failed queue entries as pending with a
// fresh retry budget, immediately claimable regardless of the cooldown.
// Returns the number of entries reset.
func (s *Store) ResetFailed() (int64, error) {
	res, err := s.db.Exec(`
		UPDATE crawl_queue
		SET status = 'pending', retry_count = 0, error_message = NULL,
		    last_attempt = NULL, scheduled_time = ?
		WHERE status = 'failed'
	`, time.Now().UTC())
	if err != nil {
		return 0, &crawler.StorageError{Op: "reset_failed", Err: err}
	}
	return res.RowsAffected()
}

// CleanupOlderThan deletes pages crawled more than the given number of
// days ago whose quality score is below the threshold, along with their
// images, links and full-text rows, then compacts the index. Returns
// the number of pages removed.
func (s *Store) CleanupOlderThan(days int, qualityThreshold float64) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	const doomed = "SELECT id FROM pages WHERE crawl_timestamp < ? AND quality_score < ?"

	if _, err := tx.Exec("DELETE FROM images WHERE page_id IN ("+doomed+")", cutoff, qualityThreshold); err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}
	if _, err := tx.Exec(
		"DELETE FROM links WHERE from_page_id IN ("+doomed+") OR to_page_id IN ("+doomed+")",
		cutoff, qualityThreshold, cutoff, qualityThreshold); err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}
	if _, err := tx.Exec("DELETE FROM pages_fts WHERE rowid IN ("+doomed+")", cutoff, qualityThreshold); err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}

	res, err := tx.Exec("DELETE FROM pages WHERE crawl_timestamp < ? AND quality_score < ?", cutoff, qualityThreshold)
	if err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}

	if _, err := tx.Exec("INSERT INTO pages_fts(pages_fts) VALUES('optimize')"); err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &crawler.StorageError{Op: "cleanup", Err: err}
	}
	return removed, nil
}

// ExportQueue returns queue entries, optionally filtered by status.
func (s *Store) ExportQueue(status string, limit int) ([]crawler.QueueEntry, error) {
	query := `
		SELECT id, url, domain, priority, status, retry_count,
		       scheduled_time, last_attempt, COALESCE(error_message, '')
		FROM crawl_queue
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY priority DESC, scheduled_time ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("queue export failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []crawler.QueueEntry
	for rows.Next() {
		var e crawler.QueueEntry
		var lastAttempt sql.NullTime
		if err := rows.Scan(&e.ID, &e.URL, &e.Domain, &e.Priority, &e.Status,
			&e.RetryCount, &e.ScheduledTime, &lastAttempt, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		if lastAttempt.Valid {
			t := lastAttempt.Time
			e.LastAttempt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) scanGroupCounts(query string, dest map[string]int) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		dest[key] = count
	}
	return rows.Err()
}

func scanPageHits(rows *sql.Rows) ([]PageHit, error) {
	defer func() { _ = rows.Close() }()

	var hits []PageHit
	for rows.Next() {
		var h PageHit
		var title, content sql.NullString
		if err := rows.Scan(&h.ID, &h.URL, &title, &content, &h.Domain, &h.ContentType,
			&h.PageRank, &h.QualityScore, &h.CrawlTimestamp, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan page hit: %w", err)
		}
		h.Title = title.String
		h.Content = content.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
