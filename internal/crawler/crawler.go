// Package crawler provides the fetch-and-extract engine.
// It implements a sequential, rate-limited, breadth-first crawler bounded by
// depth and page budget and restricted to the seeds' hosts, plus the HTTP
// fetcher it uses by default.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/masahif/scrapeline/internal/frontier"
	"github.com/masahif/scrapeline/internal/model"
)

// Engine runs one scrape or crawl. It is single use: Run may be called once.
type Engine struct {
	config    EngineConfig
	processor *pageProcessor
	limiter   *RateLimiter
	handler   ResultHandler

	// State
	state      State
	stats      CrawlStats
	statsMutex sync.RWMutex
}

// NewEngine creates an engine that fetches pages through fetcher.
// In crawl mode a MaxPages below 1 is treated as 1 and a negative MaxDepth as 0.
func NewEngine(cfg EngineConfig, fetcher Fetcher) *Engine {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeHost
	}

	return &Engine{
		config:    cfg,
		processor: newPageProcessor(fetcher, cfg.Extract),
		limiter:   NewRateLimiter(cfg.Delay),
		state:     StateIdle,
	}
}

// SetResultHandler registers h to receive every page result. It must be
// called before Run.
func (e *Engine) SetResultHandler(h ResultHandler) {
	e.handler = h
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.statsMutex.RLock()
	defer e.statsMutex.RUnlock()
	return e.state
}

// Stats returns current crawling statistics
func (e *Engine) Stats() CrawlStats {
	e.statsMutex.RLock()
	defer e.statsMutex.RUnlock()

	stats := e.stats
	if e.state == StateRunning {
		stats.Duration = time.Since(stats.StartTime)
	}
	return stats
}

// Run fetches the seeds and, in crawl mode, the pages reachable from them.
// Records are returned in fetch order. Per-page failures are recorded on the
// records; the returned error is one of ErrNoValidSeeds, ErrAlreadyRun,
// ErrSeedUnreachable or an error wrapping ErrInterrupted. The last two come
// with the records collected so far.
func (e *Engine) Run(ctx context.Context, seeds []string) ([]model.PageRecord, error) {
	if err := e.start(); err != nil {
		return nil, err
	}

	seedURLs := prepareSeeds(seeds)
	if len(seedURLs) == 0 {
		e.finish(StateAborted)
		slog.Error("No valid seed URLs", "given", len(seeds))
		return nil, ErrNoValidSeeds
	}

	slog.Info("Starting run", "mode", e.config.Mode.String(), "seed_urls", len(seedURLs))

	var (
		records []model.PageRecord
		err     error
	)
	if e.config.Mode == ModeCrawl {
		records, err = e.crawl(ctx, seedURLs)
	} else {
		records, err = e.scrape(ctx, seedURLs)
	}

	e.finish(StateCompleted)

	stats := e.Stats()
	if errors.Is(err, ErrInterrupted) {
		slog.Info("Run interrupted", "pages", stats.PagesFetched, "failed", stats.PagesFailed, "duration", stats.Duration)
	} else {
		slog.Info("Run completed", "pages", stats.PagesFetched, "failed", stats.PagesFailed,
			"links_discovered", stats.LinksDiscovered, "links_queued", stats.LinksQueued, "duration", stats.Duration)
	}

	return records, err
}

func (e *Engine) start() error {
	e.statsMutex.Lock()
	defer e.statsMutex.Unlock()

	if e.state != StateIdle {
		return ErrAlreadyRun
	}
	e.state = StateRunning
	e.stats.StartTime = time.Now()
	return nil
}

func (e *Engine) finish(state State) {
	e.statsMutex.Lock()
	defer e.statsMutex.Unlock()

	e.state = state
	e.stats.Duration = time.Since(e.stats.StartTime)
}

// prepareSeeds canonicalizes seeds, dropping invalid ones and duplicates.
func prepareSeeds(seeds []string) []*url.URL {
	seen := frontier.NewVisitedSet()
	urls := make([]*url.URL, 0, len(seeds))
	for _, seed := range seeds {
		u, err := frontier.Canonicalize(nil, seed)
		if err != nil {
			slog.Warn("Skipping invalid seed URL", "url", seed, "error", err)
			continue
		}
		if !seen.Add(u.String()) {
			slog.Warn("Skipping duplicate seed URL", "url", seed)
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

// scrape fetches each seed once, in order, at depth 0.
func (e *Engine) scrape(ctx context.Context, seeds []*url.URL) ([]model.PageRecord, error) {
	records := make([]model.PageRecord, 0, len(seeds))
	for _, seed := range seeds {
		result, err := e.fetchEntry(ctx, frontier.Entry{URL: seed.String(), Depth: 0})
		if err != nil {
			return records, err
		}
		records = append(records, result.Record)
	}

	if len(seeds) == 1 && records[0].StatusCode == 0 {
		return records, fmt.Errorf("%w: %s", ErrSeedUnreachable, records[0].Error)
	}
	return records, nil
}

// crawl performs the breadth-first traversal from seeds.
func (e *Engine) crawl(ctx context.Context, seeds []*url.URL) ([]model.PageRecord, error) {
	queue := frontier.NewQueue()
	visited := frontier.NewVisitedSet()
	for _, seed := range seeds {
		visited.Add(seed.String())
		queue.Push(frontier.Entry{URL: seed.String(), Depth: 0})
	}

	var records []model.PageRecord
	for queue.Len() > 0 && len(records) < e.config.MaxPages {
		entry, _ := queue.Pop()

		result, err := e.fetchEntry(ctx, entry)
		if err != nil {
			return records, err
		}
		records = append(records, result.Record)

		e.enqueueLinks(&result.Record, seeds, queue, visited, len(records))
	}

	if queue.Len() > 0 {
		slog.Info("Page limit reached", "max_pages", e.config.MaxPages, "pending", queue.Len())
	}
	return records, nil
}

// fetchEntry waits for the rate limiter and processes one entry. It returns
// an error wrapping ErrInterrupted when ctx is done; a fetch cut short by
// cancellation yields no record.
func (e *Engine) fetchEntry(ctx context.Context, entry frontier.Entry) (*PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, interrupted(err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, interrupted(err)
	}

	result := e.processor.Process(ctx, entry)
	if result.Fetch.ErrorKind != "" && ctx.Err() != nil {
		return nil, interrupted(ctx.Err())
	}

	e.recordPage(&result.Record)
	slog.Info("Processed URL", "url", entry.URL, "status", result.Record.StatusCode,
		"depth", entry.Depth, "links", len(result.Record.Links))

	if e.handler != nil {
		if err := e.handler.HandlePage(context.WithoutCancel(ctx), result); err != nil {
			slog.Error("Failed to handle page result", "url", entry.URL, "error", err)
		}
	}
	return result, nil
}

// enqueueLinks admits in-scope, unseen links of rec to the frontier while
// depth and page budget allow.
func (e *Engine) enqueueLinks(rec *model.PageRecord, seeds []*url.URL, queue *frontier.Queue, visited *frontier.VisitedSet, emitted int) {
	e.addDiscovered(len(rec.Links))

	if rec.Depth+1 > e.config.MaxDepth || emitted >= e.config.MaxPages {
		return
	}

	queued := 0
	for _, link := range rec.Links {
		target, err := frontier.Canonicalize(nil, link.URL)
		if err != nil {
			continue
		}
		if !e.inScope(target, seeds) {
			slog.Debug("Skipping out of scope link", "url", link.URL)
			continue
		}
		if !visited.Add(target.String()) {
			continue
		}
		queue.Push(frontier.Entry{URL: target.String(), Depth: rec.Depth + 1})
		queued++
	}

	if queued > 0 {
		e.addQueued(queued)
		slog.Debug("Queued links", "source", rec.URL, "count", queued, "depth", rec.Depth+1)
	}
}

func (e *Engine) inScope(target *url.URL, seeds []*url.URL) bool {
	for _, seed := range seeds {
		if e.config.Scope == ScopeSite {
			if frontier.SameSite(seed, target) {
				return true
			}
		} else if frontier.SameHost(seed, target) {
			return true
		}
	}
	return false
}

func interrupted(err error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, err)
}

func (e *Engine) recordPage(rec *model.PageRecord) {
	e.statsMutex.Lock()
	defer e.statsMutex.Unlock()
	e.stats.PagesFetched++
	if rec.Failed() {
		e.stats.PagesFailed++
	}
}

func (e *Engine) addDiscovered(n int) {
	e.statsMutex.Lock()
	defer e.statsMutex.Unlock()
	e.stats.LinksDiscovered += n
}

func (e *Engine) addQueued(n int) {
	e.statsMutex.Lock()
	defer e.statsMutex.Unlock()
	e.stats.LinksQueued += n
}
