package storage

import (
	"testing"
	"time"

	"github.com/webscout/websearch/internal/crawler"
)

func storeTestPages(t *testing.T, store *Store, pages ...*crawler.Page) {
	t.Helper()
	for _, p := range pages {
		if _, err := store.UpsertPage(p); err != nil {
			t.Fatalf("Failed to store %s: %v", p.URL, err)
		}
	}
}

func TestSearchPages(t *testing.T) {
	store := newTestStore(t)

	good := testPage("https://good.example.com/go", "good.example.com")
	good.Title = "Go Tutorial"
	good.Content = "Learn the golang programming language step by step"
	good.QualityScore = 0.9

	poor := testPage("https://poor.example.com/go", "poor.example.com")
	poor.Title = "Go Tutorial"
	poor.Content = "Learn the golang programming language step by step"
	poor.QualityScore = 0.3

	storeTestPages(t, store, good, poor)

	t.Run("RankingWeighsQuality", func(t *testing.T) {
		hits, err := store.SearchPages(`"golang"`, 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("Got %d hits, want 2", len(hits))
		}
		if hits[0].URL != good.URL {
			t.Errorf("Top hit = %q, want the higher-quality page %q", hits[0].URL, good.URL)
		}
		if hits[0].Score <= hits[1].Score {
			t.Errorf("Scores not descending: %v then %v", hits[0].Score, hits[1].Score)
		}
		if hits[0].Score <= 0 {
			t.Errorf("Relevance score = %v, want positive for a matching page", hits[0].Score)
		}
	})

	t.Run("RankingWeighsAuthority", func(t *testing.T) {
		if err := store.BumpPageRank(poor.URL, 5.0); err != nil {
			t.Fatal(err)
		}

		hits, err := store.SearchPages(`"golang"`, 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		// 0.3 * (1+5) = 1.8 beats 0.9 * 1.0.
		if hits[0].URL != poor.URL {
			t.Errorf("Top hit = %q, want the high-authority page %q", hits[0].URL, poor.URL)
		}
	})

	t.Run("NoMatches", func(t *testing.T) {
		hits, err := store.SearchPages(`"quantumfoo"`, 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Got %d hits for nonsense term, want 0", len(hits))
		}
	})

	t.Run("LimitRespected", func(t *testing.T) {
		hits, err := store.SearchPages(`"golang"`, 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(hits) != 1 {
			t.Errorf("Got %d hits with limit 1", len(hits))
		}
	})
}

func TestSearchNews(t *testing.T) {
	store := newTestStore(t)

	article := testPage("https://www.bbc.com/news/election", "www.bbc.com")
	article.Title = "Election Results"
	article.Content = "Breaking news about the election results published today"
	article.ContentType = crawler.TypeNews
	article.QualityScore = 0.8
	article.CrawledAt = time.Now().UTC().Add(-1 * time.Hour)

	older := testPage("https://www.bbc.com/news/older", "www.bbc.com")
	older.Title = "Election Preview"
	older.Content = "An election preview article published last week"
	older.ContentType = crawler.TypeNews
	older.QualityScore = 0.8
	older.CrawledAt = time.Now().UTC().Add(-48 * time.Hour)

	blog := testPage("https://blog.example.com/election", "blog.example.com")
	blog.Title = "My election thoughts"
	blog.Content = "Personal musings on the election"
	blog.ContentType = crawler.TypeWeb
	blog.QualityScore = 0.8

	storeTestPages(t, store, article, older, blog)

	t.Run("NewsTypeFirstRecencyOrder", func(t *testing.T) {
		hits, err := store.SearchNews(`"election"`, []string{"bbc"}, 10)
		if err != nil {
			t.Fatalf("News search failed: %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("Got %d hits, want 2 news pages", len(hits))
		}
		if hits[0].URL != article.URL {
			t.Errorf("Top hit = %q, want the most recent article", hits[0].URL)
		}
		for _, h := range hits {
			if h.ContentType != crawler.TypeNews {
				t.Errorf("Hit %q has type %q, want news", h.URL, h.ContentType)
			}
		}
	})

	t.Run("DomainFallback", func(t *testing.T) {
		hits, err := store.SearchNews(`"musings"`, []string{"blog"}, 10)
		if err != nil {
			t.Fatalf("News search failed: %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Got %d fallback hits, want 1", len(hits))
		}
		if hits[0].URL != blog.URL {
			t.Errorf("Fallback hit = %q, want %q", hits[0].URL, blog.URL)
		}
	})

	t.Run("NoFallbackWithoutDomains", func(t *testing.T) {
		hits, err := store.SearchNews(`"musings"`, nil, 10)
		if err != nil {
			t.Fatalf("News search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("Got %d hits with no fallback domains, want 0", len(hits))
		}
	})
}

func TestSearchImages(t *testing.T) {
	store := newTestStore(t)

	page := testPage("https://example.com/gallery", "example.com")
	page.Title = "Animal Gallery"
	id, err := store.UpsertPage(page)
	if err != nil {
		t.Fatal(err)
	}

	images := []crawler.Image{
		{URL: "https://example.com/cat.jpg", AltText: "a sleeping cat", Width: 640, Height: 480},
		{URL: "https://example.com/dog.jpg", AltText: "a running dog"},
		{URL: "https://example.com/img42.jpg"},
	}
	if err := store.RecordImages(id, images); err != nil {
		t.Fatal(err)
	}

	t.Run("MatchesAltText", func(t *testing.T) {
		hits, err := store.SearchImages("cat", 10)
		if err != nil {
			t.Fatalf("Image search failed: %v", err)
		}
		if len(hits) != 1 {
			t.Fatalf("Got %d hits, want 1", len(hits))
		}
		if hits[0].URL != "https://example.com/cat.jpg" {
			t.Errorf("Hit URL = %q", hits[0].URL)
		}
		if hits[0].PageURL != page.URL {
			t.Errorf("Hit page URL = %q, want %q", hits[0].PageURL, page.URL)
		}
	})

	t.Run("MatchesPageTitle", func(t *testing.T) {
		hits, err := store.SearchImages("Gallery", 10)
		if err != nil {
			t.Fatalf("Image search failed: %v", err)
		}
		// Page title matches, so all images on the page qualify.
		if len(hits) != 3 {
			t.Errorf("Got %d hits via page title, want 3", len(hits))
		}
	})
}

func TestStatistics(t *testing.T) {
	store := newTestStore(t)

	web := testPage("https://a.example.com/", "a.example.com")
	news := testPage("https://b.example.com/", "b.example.com")
	news.ContentType = crawler.TypeNews
	storeTestPages(t, store, web, news)

	id, err := store.UpsertPage(testPage("https://a.example.com/two", "a.example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordImages(id, []crawler.Image{{URL: "https://a.example.com/pic.png"}}); err != nil {
		t.Fatal(err)
	}

	if err := store.Enqueue("https://a.example.com/next", "a.example.com", crawler.PriorityInternal); err != nil {
		t.Fatal(err)
	}

	stats, err := store.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}

	if stats.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", stats.TotalPages)
	}
	if stats.DomainCount != 2 {
		t.Errorf("DomainCount = %d, want 2", stats.DomainCount)
	}
	if stats.ImageCount != 1 {
		t.Errorf("ImageCount = %d, want 1", stats.ImageCount)
	}
	if stats.PagesByType[crawler.TypeWeb] != 2 || stats.PagesByType[crawler.TypeNews] != 1 {
		t.Errorf("PagesByType = %v", stats.PagesByType)
	}
	if stats.QueueByStatus[crawler.StatusPending] != 1 {
		t.Errorf("QueueByStatus = %v", stats.QueueByStatus)
	}
}

func TestResetFailed(t *testing.T) {
	dbFile := t.TempDir() + "/test_reset.db"
	store, err := New(dbFile, 1, 0) // single attempt, fails terminally at once
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Enqueue("https://dead.example.com/", "dead.example.com", crawler.PrioritySeed); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimNext(time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkFailed("https://dead.example.com/", "boom"); err != nil {
		t.Fatal(err)
	}

	n, err := store.ResetFailed()
	if err != nil {
		t.Fatalf("ResetFailed errored: %v", err)
	}
	if n != 1 {
		t.Errorf("ResetFailed reset %d entries, want 1", n)
	}

	// The reset must clear the attempt timestamp so the entry is
	// claimable right away, not after the retry cooldown elapses.
	item, err := store.ClaimNext(time.Hour)
	if err != nil {
		t.Fatalf("Claim after reset failed: %v", err)
	}
	if item == nil {
		t.Fatal("Reset entry was not claimable")
	}
	if item.RetryCount != 0 {
		t.Errorf("Reset entry retry_count = %d, want 0", item.RetryCount)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	store := newTestStore(t)

	oldPoor := testPage("https://old.example.com/poor", "old.example.com")
	oldPoor.QualityScore = 0.1
	oldPoor.Content = "stale thin content nobody wants"
	oldPoor.CrawledAt = time.Now().UTC().AddDate(0, 0, -60)

	oldGood := testPage("https://old.example.com/good", "old.example.com")
	oldGood.QualityScore = 0.8
	oldGood.CrawledAt = time.Now().UTC().AddDate(0, 0, -60)

	fresh := testPage("https://new.example.com/poor", "new.example.com")
	fresh.QualityScore = 0.1

	storeTestPages(t, store, oldPoor, oldGood, fresh)

	poorID, err := store.UpsertPage(oldPoor)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordImages(poorID, []crawler.Image{{URL: "https://old.example.com/pic.png"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordLinks(poorID, []crawler.Link{
		{ToURL: "https://old.example.com/good", LinkType: "internal"},
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.CleanupOlderThan(30, 0.3)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup removed %d pages, want 1", removed)
	}

	var pages, images, links int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM pages").Scan(&pages); err != nil {
		t.Fatal(err)
	}
	if err := store.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&images); err != nil {
		t.Fatal(err)
	}
	if err := store.db.QueryRow("SELECT COUNT(*) FROM links WHERE from_page_id = ?", poorID).Scan(&links); err != nil {
		t.Fatal(err)
	}
	if pages != 2 {
		t.Errorf("Remaining pages = %d, want 2", pages)
	}
	if images != 0 {
		t.Errorf("Remaining images = %d, want 0", images)
	}
	if links != 0 {
		t.Errorf("Remaining links from removed page = %d, want 0", links)
	}

	// Full-text rows for removed pages must be gone too.
	hits, err := store.SearchPages(`"stale"`, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("Removed page still matches full-text search: %d hits", len(hits))
	}
}

func TestExportQueue(t *testing.T) {
	store := newTestStore(t)

	if err := store.Enqueue("https://a.example.com/", "a.example.com", crawler.PrioritySeed); err != nil {
		t.Fatal(err)
	}
	if err := store.Enqueue("https://b.example.com/", "b.example.com", crawler.PriorityExternal); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ClaimNext(0); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkCompleted("https://a.example.com/", ""); err != nil {
		t.Fatal(err)
	}

	t.Run("All", func(t *testing.T) {
		entries, err := store.ExportQueue("", 100)
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("Exported %d entries, want 2", len(entries))
		}
	})

	t.Run("FilteredByStatus", func(t *testing.T) {
		entries, err := store.ExportQueue(crawler.StatusPending, 100)
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("Exported %d pending entries, want 1", len(entries))
		}
		if entries[0].URL != "https://b.example.com/" {
			t.Errorf("Pending entry = %q", entries[0].URL)
		}
		if entries[0].ScheduledTime.IsZero() {
			t.Error("ScheduledTime not populated")
		}
	})
}
