package storage

const schemaSQL = `
-- One row per scrape or crawl invocation
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY NOT NULL,
    mode TEXT NOT NULL CHECK (mode IN ('single', 'crawl')),
    seeds TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'running' CHECK (state IN ('running', 'completed', 'interrupted', 'aborted')),
    started_at TEXT NOT NULL,
    finished_at TEXT,
    pages_fetched INTEGER NOT NULL DEFAULT 0,
    pages_failed INTEGER NOT NULL DEFAULT 0,
    links_discovered INTEGER NOT NULL DEFAULT 0
);

-- Pages table stores one record per fetched URL of a run
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    final_url TEXT,
    depth INTEGER NOT NULL DEFAULT 0,

    -- Result fields
    status_code INTEGER NOT NULL DEFAULT 0,
    title TEXT,
    meta_description TEXT,
    canonical_url TEXT,
    content_hash TEXT,
    content_type TEXT,
    ttfb_ms INTEGER,
    download_time_ms INTEGER,
    response_size_bytes INTEGER,
    crawled_at TEXT NOT NULL,

    -- Error tracking
    error_type TEXT,
    error_message TEXT,

    -- Full record as emitted by the formatter
    record_json TEXT NOT NULL,

    UNIQUE(run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
CREATE INDEX IF NOT EXISTS idx_pages_content_hash ON pages(content_hash) WHERE content_hash IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_pages_status_code ON pages(status_code);

-- View for successful pages only (for analysis/reporting)
CREATE VIEW IF NOT EXISTS completed_pages AS
SELECT
    id, run_id, url, depth, status_code, title, meta_description,
    canonical_url, content_hash, ttfb_ms, download_time_ms,
    response_size_bytes, content_type, crawled_at
FROM pages
WHERE status_code BETWEEN 200 AND 299 AND error_type IS NULL;

-- Links table stores link relationships
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
    target_url TEXT NOT NULL,
    anchor_text TEXT,
    link_type TEXT NOT NULL CHECK (link_type IN ('internal', 'external')),
    UNIQUE(page_id, target_url)
);

CREATE INDEX IF NOT EXISTS idx_links_page ON links(page_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_url);

-- Custom selector matches in document order
CREATE TABLE IF NOT EXISTS selector_matches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
    selector TEXT NOT NULL,
    position INTEGER NOT NULL,
    match_text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_selector_matches_page ON selector_matches(page_id, selector);

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
