// Package crawler provides the core crawling functionality of the
// search engine: a concurrent, queue-based scheduler with per-domain
// politeness, bounded fetching, content processing and link discovery.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/webscout/websearch/internal/config"
)

const (
	iterationPause = 100 * time.Millisecond
	idlePause      = 10 * time.Second
)

// Scheduler drives the crawl: it dequeues eligible URLs by priority and
// runs them through politeness checks, fetching, content processing and
// link extraction, recording the outcome of every iteration.
type Scheduler struct {
	config     *config.Config
	storage    Storage
	fetcher    *Fetcher
	processor  *Processor
	politeness *Politeness
	extractor  *LinkExtractor

	// State
	stats         CrawlStats
	statsMutex    sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	wake          chan struct{}
	activeWorkers int
	workersMutex  sync.Mutex
}

// NewScheduler creates a scheduler with the provided configuration and
// storage. All components share the politeness controller so per-domain
// state stays in one place.
func NewScheduler(cfg *config.Config, storage Storage) *Scheduler {
	return &Scheduler{
		config:     cfg,
		storage:    storage,
		fetcher:    NewFetcher(cfg.UserAgent, cfg.RequestTimeout, cfg.MaxContentBytes),
		processor:  NewProcessor(cfg.MaxContentChars),
		politeness: NewPoliteness(cfg.UserAgent, cfg.CrawlDelay),
		extractor:  NewLinkExtractor(storage, cfg.AllowedExternalDomains, cfg.MaxPagesPerDomain),
		wake:       make(chan struct{}, 1),
		stats: CrawlStats{
			StartTime: time.Now(),
		},
	}
}

// Seed enqueues URLs at the given priority. Duplicate URLs are no-ops.
func (s *Scheduler) Seed(urls []string, priority int) error {
	for _, seed := range urls {
		parsed, err := url.Parse(seed)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("invalid seed URL %q", seed)
		}
		if err := s.storage.Enqueue(seed, parsed.Host, priority); err != nil {
			return fmt.Errorf("failed to enqueue seed %s: %w", seed, err)
		}
	}
	s.poke()
	return nil
}

// Start seeds the queue and runs the configured number of workers until
// the context is cancelled or the page limit is reached.
func (s *Scheduler) Start(ctx context.Context, seedURLs []string) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	// No worker of this run holds a claim yet, so any crawling entry
	// was stranded by a previous run dying between claim and mark.
	recovered, err := s.storage.ResetStaleCrawling(0)
	if err != nil {
		return fmt.Errorf("failed to recover stale queue entries: %w", err)
	}
	if recovered > 0 {
		slog.Info("Recovered stale queue entries", "count", recovered)
	}

	if len(seedURLs) > 0 {
		if err := s.Seed(seedURLs, PrioritySeed); err != nil {
			return err
		}
		slog.Info("Starting scheduler", "seed_urls", len(seedURLs))
	} else {
		slog.Info("Starting scheduler - resuming from existing queue")
	}

	s.activeWorkers = s.config.Concurrency
	for i := 0; i < s.config.Concurrency; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go s.statsReporter()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Crawling completed")
	case <-s.ctx.Done():
		slog.Info("Crawling cancelled")
		s.wg.Wait()
	}

	return nil
}

// Stop cancels the scheduler; in-flight fetches are cut off at their
// own timeout and no new work is claimed.
func (s *Scheduler) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.fetcher.Close()
	return nil
}

// GetStats returns current crawling statistics.
func (s *Scheduler) GetStats() CrawlStats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	stats := s.stats
	stats.Duration = time.Since(stats.StartTime)
	return stats
}

// worker claims and processes queue entries until cancelled or the
// configured page limit is reached.
func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	defer s.handleWorkerShutdown(id)

	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			if s.limitReached() {
				slog.Info("Worker reached page limit", "worker_id", id)
				return
			}

			item, err := s.storage.ClaimNext(s.config.RetryCooldown)
			if err != nil {
				slog.Error("Worker failed to claim from queue", "worker_id", id, "error", err)
				s.pause(iterationPause)
				continue
			}

			if item == nil {
				s.idle()
				continue
			}

			s.crawlOne(id, item)
			s.pause(iterationPause)
		}
	}
}

// crawlOne runs the full pipeline for a single claimed entry:
// politeness -> fetch -> process -> store -> extract -> record outcome.
func (s *Scheduler) crawlOne(id int, item *QueueItem) {
	if !s.politeness.CanCrawl(s.ctx, item.URL) {
		s.recordFailure(id, item, &PolicyViolation{URL: item.URL})
		return
	}

	if err := s.politeness.Wait(s.ctx, item.Domain); err != nil {
		// Only happens on shutdown; leave the entry for the next run.
		return
	}

	fetched, err := s.fetcher.Fetch(s.ctx, item.URL)
	if err != nil {
		s.recordFailure(id, item, err)
		return
	}

	processed, err := s.processor.Process(item.URL, fetched.Body, fetched.StatusCode)
	if err != nil {
		s.recordFailure(id, item, err)
		return
	}

	pageID, err := s.storage.UpsertPage(&processed.Page)
	if err != nil {
		// A storage failure aborts this iteration only; the loop continues.
		slog.Error("Failed to store page", "worker_id", id, "url", item.URL, "error", err)
		s.recordFailure(id, item, err)
		return
	}

	if err := s.extractor.ExtractAndEnqueue(pageID, processed.Links, processed.Images); err != nil {
		slog.Error("Failed to record discovered links", "worker_id", id, "url", item.URL, "error", err)
	}

	if err := s.storage.MarkCompleted(item.URL, ""); err != nil {
		slog.Error("Failed to mark entry completed", "worker_id", id, "url", item.URL, "error", err)
		return
	}

	s.incrementCrawledCount()
	s.poke()

	slog.Info("Worker processed URL", "worker_id", id, "url", item.URL,
		"status", processed.Page.StatusCode, "type", processed.Page.ContentType,
		"links", len(processed.Links), "quality", processed.Page.QualityScore)
}

// recordFailure terminates a policy-denied entry as completed; anything
// else is marked failed and storage re-arms it as pending with a
// cool-down until the retry cap is reached.
func (s *Scheduler) recordFailure(id int, item *QueueItem, err error) {
	var policyErr *PolicyViolation
	if errors.As(err, &policyErr) {
		slog.Info("URL disallowed by robots policy", "worker_id", id, "url", item.URL)
		if markErr := s.storage.MarkCompleted(item.URL, "robots_disallowed"); markErr != nil {
			slog.Error("Failed to record policy skip", "worker_id", id, "error", markErr)
		}
		return
	}

	slog.Warn("Worker failed to crawl URL", "worker_id", id, "url", item.URL, "error", err)
	if markErr := s.storage.MarkFailed(item.URL, err.Error()); markErr != nil {
		slog.Error("Failed to record crawl failure", "worker_id", id, "url", item.URL, "error", markErr)
	}
	s.incrementErrorCount()
}

// idle waits for new work: a wake signal from an enqueue, the idle
// timer, or cancellation, whichever comes first.
func (s *Scheduler) idle() {
	timer := time.NewTimer(idlePause)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
	case <-s.wake:
	case <-timer.C:
	}
}

func (s *Scheduler) pause(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
	case <-timer.C:
	}
}

// poke wakes one idle worker without blocking.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// handleWorkerShutdown handles worker cleanup when shutting down.
func (s *Scheduler) handleWorkerShutdown(id int) {
	s.workersMutex.Lock()
	s.activeWorkers--
	if s.activeWorkers == 0 {
		// All workers are done, cancel context to stop the stats reporter
		s.cancel()
	}
	s.workersMutex.Unlock()
	slog.Debug("Worker stopped", "worker_id", id)
}

// limitReached checks whether the configured page limit has been hit.
func (s *Scheduler) limitReached() bool {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	return s.config.MaxPages > 0 && s.stats.PagesCrawled >= s.config.MaxPages
}

// statsReporter periodically reports crawling statistics.
func (s *Scheduler) statsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			pending, crawling, completed, failed, err := s.storage.QueueCounts()
			if err != nil {
				slog.Error("Failed to get queue status", "error", err)
				continue
			}

			stats := s.GetStats()
			slog.Info("Crawling stats", "crawled", stats.PagesCrawled, "pending", pending,
				"crawling", crawling, "completed", completed, "failed", failed,
				"errors", stats.ErrorCount, "duration", stats.Duration)
		}
	}
}

func (s *Scheduler) incrementCrawledCount() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()
	s.stats.PagesCrawled++
}

func (s *Scheduler) incrementErrorCount() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()
	s.stats.ErrorCount++
}
