// Package storage provides an optional SQLite archive of scrape runs.
// Every run gets a UUID; its page records, links and custom selector matches
// are stored as they are produced so that an interrupted run keeps what it
// already fetched.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/masahif/scrapeline/internal/crawler"
	"github.com/masahif/scrapeline/internal/frontier"
	"github.com/masahif/scrapeline/internal/model"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Run states stored in the runs table.
const (
	RunRunning     = "running"
	RunCompleted   = "completed"
	RunInterrupted = "interrupted"
	RunAborted     = "aborted"
)

// ErrNoActiveRun is returned by HandlePage before BeginRun.
var ErrNoActiveRun = errors.New("no active run")

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one archived invocation.
type Run struct {
	ID              string
	Mode            string
	Seeds           []string
	State           string
	StartedAt       time.Time
	FinishedAt      time.Time // Zero while running
	PagesFetched    int
	PagesFailed     int
	LinksDiscovered int
}

// SQLiteStorage archives runs in a SQLite database. It implements
// crawler.ResultHandler for the run started by BeginRun.
type SQLiteStorage struct {
	db    *sql.DB
	runID string
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
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

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginRun records a new run and makes it the target of HandlePage.
func (s *SQLiteStorage) BeginRun(ctx context.Context, mode string, seeds []string) (string, error) {
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal seeds: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, seeds, state, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, mode, string(seedsJSON), RunRunning, formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}

	if err := s.SetMeta(ctx, "last_run_id", id); err != nil {
		return "", err
	}

	s.runID = id
	return id, nil
}

// RunID returns the ID of the active run, or "".
func (s *SQLiteStorage) RunID() string {
	return s.runID
}

// FinishRun stores the final state and statistics of a run.
func (s *SQLiteStorage) FinishRun(ctx context.Context, runID, state string, stats crawler.CrawlStats) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			state = ?,
			finished_at = ?,
			pages_fetched = ?,
			pages_failed = ?,
			links_discovered = ?
		WHERE id = ?
	`, state, formatTime(time.Now()), stats.PagesFetched, stats.PagesFailed, stats.LinksDiscovered, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// HandlePage saves a page result under the active run.
func (s *SQLiteStorage) HandlePage(ctx context.Context, result *crawler.PageResult) error {
	if s.runID == "" {
		return ErrNoActiveRun
	}
	_, err := s.SavePage(ctx, s.runID, result)
	return err
}

// SavePage stores the page, its links and its selector matches in one
// transaction and returns the page ID.
func (s *SQLiteStorage) SavePage(ctx context.Context, runID string, result *crawler.PageResult) (int64, error) {
	rec := &result.Record

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var metaDesc, canonical *string
	if rec.Metadata != nil {
		metaDesc = rec.Metadata.Description
		canonical = rec.Metadata.CanonicalURL
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO pages (
			run_id, url, final_url, depth, status_code, title, meta_description,
			canonical_url, content_hash, content_type, ttfb_ms, download_time_ms,
			response_size_bytes, crawled_at, error_type, error_message, record_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		rec.URL,
		result.Fetch.FinalURL,
		rec.Depth,
		rec.StatusCode,
		rec.Title,
		metaDesc,
		canonical,
		nullString(rec.ContentHash),
		nullString(result.Fetch.ContentType),
		result.Fetch.TTFB.Milliseconds(),
		result.Fetch.DownloadTime.Milliseconds(),
		result.Fetch.ResponseSize,
		formatTime(fetchedAt(result)),
		nullString(errorType(result)),
		nullString(rec.Error),
		string(recordJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save page %s: %w", rec.URL, err)
	}

	pageID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if err := saveLinks(ctx, tx, pageID, rec); err != nil {
		return 0, err
	}
	if err := saveSelectorMatches(ctx, tx, pageID, rec.CustomSelectors); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit page %s: %w", rec.URL, err)
	}
	return pageID, nil
}

// saveLinks stores the page's links, classified against the page host.
func saveLinks(ctx context.Context, tx *sql.Tx, pageID int64, rec *model.PageRecord) error {
	if len(rec.Links) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO links (page_id, target_url, anchor_text, link_type)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	source, _ := url.Parse(rec.URL)
	for _, link := range rec.Links {
		linkType := "external"
		if target, err := url.Parse(link.URL); err == nil && frontier.SameHost(source, target) {
			linkType = "internal"
		}
		if _, err := stmt.ExecContext(ctx, pageID, link.URL, link.Text, linkType); err != nil {
			return fmt.Errorf("failed to insert link %s -> %s: %w", rec.URL, link.URL, err)
		}
	}
	return nil
}

func saveSelectorMatches(ctx context.Context, tx *sql.Tx, pageID int64, results []model.SelectorResult) error {
	if len(results) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO selector_matches (page_id, selector, position, match_text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, result := range results {
		for i, match := range result.Matches {
			if _, err := stmt.ExecContext(ctx, pageID, result.Selector, i, match); err != nil {
				return fmt.Errorf("failed to insert selector match for %q: %w", result.Selector, err)
			}
		}
	}
	return nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run        Run
		seedsJSON  string
		startedAt  string
		finishedAt sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, mode, seeds, state, started_at, finished_at,
			pages_fetched, pages_failed, links_discovered
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Mode, &seedsJSON, &run.State, &startedAt, &finishedAt,
		&run.PagesFetched, &run.PagesFailed, &run.LinksDiscovered)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal([]byte(seedsJSON), &run.Seeds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seeds: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	return &run, nil
}

// LoadRecords returns the page records of a run in fetch order.
func (s *SQLiteStorage) LoadRecords(ctx context.Context, runID string) ([]model.PageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_json FROM pages WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.PageRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		var rec model.PageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountLinks returns the number of stored links of a run by type.
func (s *SQLiteStorage) CountLinks(ctx context.Context, runID string) (internal, external int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN l.link_type = 'internal' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN l.link_type = 'external' THEN 1 ELSE 0 END), 0)
		FROM links l JOIN pages p ON p.id = l.page_id
		WHERE p.run_id = ?
	`, runID).Scan(&internal, &external)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count links: %w", err)
	}
	return internal, external, nil
}

// SelectorMatches returns the stored matches of selector on url in a run.
func (s *SQLiteStorage) SelectorMatches(ctx context.Context, runID, pageURL, selector string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.match_text
		FROM selector_matches m JOIN pages p ON p.id = m.page_id
		WHERE p.run_id = ? AND p.url = ? AND m.selector = ?
		ORDER BY m.position
	`, runID, pageURL, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query selector matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan selector match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

func errorType(result *crawler.PageResult) string {
	if result.Fetch.ErrorKind != "" {
		return string(result.Fetch.ErrorKind)
	}
	if result.Record.Error != "" {
		return "http_status"
	}
	return ""
}

func fetchedAt(result *crawler.PageResult) time.Time {
	if result.Fetch.FetchedAt.IsZero() {
		return time.Now()
	}
	return result.Fetch.FetchedAt
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
