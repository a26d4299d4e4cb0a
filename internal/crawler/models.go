package crawler

import (
	"time"

	"github.com/masahif/scrapeline/internal/model"
	"github.com/masahif/scrapeline/internal/parser"
)

// Mode selects between scraping the seeds only and following links.
type Mode int

const (
	// ModeSingle fetches each seed once at depth 0 and follows nothing.
	ModeSingle Mode = iota
	// ModeCrawl performs a breadth-first crawl bounded by depth and page budget.
	ModeCrawl
)

func (m Mode) String() string {
	if m == ModeCrawl {
		return "crawl"
	}
	return "single"
}

// Scope decides which discovered links are candidates for the frontier.
type Scope string

const (
	ScopeHost Scope = "host" // exact hostname of a seed
	ScopeSite Scope = "site" // registrable domain (eTLD+1) of a seed
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// EngineConfig holds the immutable settings of one run.
type EngineConfig struct {
	Mode     Mode
	MaxDepth int           // Crawl mode: deepest admitted link distance
	MaxPages int           // Crawl mode: maximum number of records
	Delay    time.Duration // Minimum gap between fetches
	Scope    Scope         // Defaults to ScopeHost
	Extract  parser.Options
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	PagesFetched    int // Records produced, failed ones included
	PagesFailed     int // Records with an error
	LinksDiscovered int // Links extracted across all pages
	LinksQueued     int // Links admitted to the frontier
	StartTime       time.Time
	Duration        time.Duration
}

// FetchInfo carries transport details of one page that are not part of the
// record itself.
type FetchInfo struct {
	FinalURL     string // After following redirects
	ContentType  string
	ResponseSize int64
	TTFB         time.Duration
	DownloadTime time.Duration
	ErrorKind    ErrorKind // Set for transport failures
	FetchedAt    time.Time
}

// PageResult represents the result of processing a single page
type PageResult struct {
	Record model.PageRecord
	Fetch  FetchInfo
}
