// Package model defines the page record produced by a scrape or crawl run.
// It is the data contract shared by the extractor, the engine, the
// formatters and the storage layer.
package model

// PageRecord is the structured extraction result for one fetched page.
type PageRecord struct {
	URL             string           `json:"url"`                         // Canonical, absolute URL
	StatusCode      int              `json:"status_code"`                 // HTTP status (0 when no response was received)
	Title           *string          `json:"title"`                       // <title> text, nil when absent
	Headings        []string         `json:"headings"`                    // h1..h6 in document order
	Paragraphs      []string         `json:"paragraphs"`                  // <p> text in document order
	Links           []Link           `json:"links"`                       // a[href], canonicalized
	Images          []Image          `json:"images"`                      // img[src], canonicalized
	Tables          []Table          `json:"tables,omitempty"`            // <table> headers and rows
	CodeBlocks      []CodeBlock      `json:"code_blocks,omitempty"`       // <pre>/<code> contents
	Metadata        *Metadata        `json:"metadata,omitempty"`          // Only when metadata extraction is enabled
	CustomSelectors []SelectorResult `json:"custom_selectors,omitempty"`  // One entry per requested selector, in request order
	ContentHash     string           `json:"content_hash,omitempty"`      // sha256 of the response body
	Depth           int              `json:"depth"`                       // Crawl distance from the seed
	Error           string           `json:"error,omitempty"`             // Fetch or HTTP status failure, if any
	Warnings        []string         `json:"warnings,omitempty"`          // Recoverable problems (bad selector, bot wall)
}

// Link is an anchor found on a page.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Image is an <img> element found on a page.
type Image struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
}

// Table is a <table> with its header cells and data rows.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// CodeBlock is the content of a <pre> or <code> element.
type CodeBlock struct {
	Content  string  `json:"content"`
	Language *string `json:"language,omitempty"`
}

// Metadata holds meta tag and link relation values. Every field is optional.
type Metadata struct {
	Description   *string `json:"description"`
	Keywords      *string `json:"keywords"`
	Author        *string `json:"author"`
	OGTitle       *string `json:"og_title"`
	OGDescription *string `json:"og_description"`
	OGImage       *string `json:"og_image"`
	OGURL         *string `json:"og_url"`
	CanonicalURL  *string `json:"canonical_url"`
	Favicon       *string `json:"favicon"`
}

// SelectorResult holds the matches of one user-supplied CSS selector.
type SelectorResult struct {
	Selector string   `json:"selector"`
	Matches  []string `json:"matches"`
}

// NewPageRecord returns a record with empty (non-nil) content lists, the
// shape used for pages whose body could not be extracted.
func NewPageRecord(url string, depth int) PageRecord {
	return PageRecord{
		URL:        url,
		Headings:   []string{},
		Paragraphs: []string{},
		Links:      []Link{},
		Images:     []Image{},
		Depth:      depth,
	}
}

// Failed reports whether the page could not be fetched or returned a
// non-2xx status.
func (p *PageRecord) Failed() bool {
	return p.Error != "" || p.StatusCode < 200 || p.StatusCode > 299
}

// TitleOrEmpty returns the title, or "" when the page has none.
func (p *PageRecord) TitleOrEmpty() string {
	if p.Title == nil {
		return ""
	}
	return *p.Title
}

// AddWarning appends a recoverable problem to the record.
func (p *PageRecord) AddWarning(msg string) {
	p.Warnings = append(p.Warnings, msg)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
