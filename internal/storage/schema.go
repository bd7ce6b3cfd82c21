package storage

const schemaSQL = `
-- Pages hold processed content; the crawl queue is tracked separately.
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    domain TEXT NOT NULL,
    title TEXT,
    content TEXT,
    html TEXT,
    content_hash TEXT,
    content_type TEXT NOT NULL DEFAULT 'web' CHECK (content_type IN ('web', 'news', 'academic', 'reference')),
    language TEXT,
    crawl_timestamp DATETIME NOT NULL,
    page_rank REAL NOT NULL DEFAULT 0.0,
    quality_score REAL NOT NULL DEFAULT 0.0,
    status_code INTEGER,
    content_length INTEGER
);

CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain);
CREATE INDEX IF NOT EXISTS idx_pages_content_type ON pages(content_type);
CREATE INDEX IF NOT EXISTS idx_pages_crawl_timestamp ON pages(crawl_timestamp);
CREATE INDEX IF NOT EXISTS idx_pages_page_rank ON pages(page_rank DESC);

-- Full-text index over (title, content), maintained in the same
-- transaction as every page upsert so it never diverges from pages.
CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(title, content);

-- Link graph: append-only, idempotent on (from_page_id, to_url).
-- to_page_id stays NULL until the target page is itself stored.
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_page_id INTEGER NOT NULL,
    to_page_id INTEGER,
    to_url TEXT NOT NULL,
    anchor_text TEXT,
    link_type TEXT NOT NULL DEFAULT 'internal' CHECK (link_type IN ('internal', 'external')),
    discovered_timestamp DATETIME NOT NULL,
    UNIQUE(from_page_id, to_url),
    FOREIGN KEY (from_page_id) REFERENCES pages(id)
);

CREATE INDEX IF NOT EXISTS idx_links_from_page ON links(from_page_id);
CREATE INDEX IF NOT EXISTS idx_links_to_page ON links(to_page_id);

-- Images are owned by their page and removed with it.
CREATE TABLE IF NOT EXISTS images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    url TEXT NOT NULL,
    alt_text TEXT,
    title TEXT,
    width INTEGER,
    height INTEGER,
    discovered_timestamp DATETIME NOT NULL,
    UNIQUE(page_id, url),
    FOREIGN KEY (page_id) REFERENCES pages(id)
);

CREATE INDEX IF NOT EXISTS idx_images_page_id ON images(page_id);

-- Durable crawl work list with priority and retry bookkeeping.
CREATE TABLE IF NOT EXISTS crawl_queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    domain TEXT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 5,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'crawling', 'completed', 'failed')),
    retry_count INTEGER NOT NULL DEFAULT 0,
    scheduled_time DATETIME NOT NULL,
    last_attempt DATETIME,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_queue_claim ON crawl_queue(status, priority DESC, scheduled_time);
CREATE INDEX IF NOT EXISTS idx_queue_domain ON crawl_queue(domain);
`
