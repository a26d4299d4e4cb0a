// Package parser provides HTML parsing and content extraction capabilities.
// It turns a fetched HTML document into a model.PageRecord: title, headings,
// paragraphs, links, images, tables, code blocks, optional metadata and the
// matches of user-supplied CSS selectors.
package parser

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/masahif/scrapeline/internal/frontier"
	"github.com/masahif/scrapeline/internal/model"
)

// Options controls which optional sections are extracted.
type Options struct {
	WantMetadata bool     // Extract meta tags, canonical URL and favicon
	Selectors    []string // Custom CSS selectors, reported in this order
}

// InvalidSelectorError is reported for a custom selector that does not compile.
type InvalidSelectorError struct {
	Selector string
	Err      error
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid CSS selector %q: %v", e.Selector, e.Err)
}

func (e *InvalidSelectorError) Unwrap() error {
	return e.Err
}

// HTMLParser extracts page records from HTML
type HTMLParser struct {
	baseURL *url.URL
}

// NewHTMLParser creates a parser that resolves relative URLs against pageURL.
func NewHTMLParser(pageURL string) (*HTMLParser, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !parsedURL.IsAbs() {
		return nil, fmt.Errorf("invalid base URL: %q is not absolute", pageURL)
	}

	return &HTMLParser{baseURL: parsedURL}, nil
}

// Parse extracts a page record from htmlContent.
// Invalid custom selectors do not stop extraction: each one is reported with
// an empty match list, and the returned error joins one *InvalidSelectorError
// per bad selector. The record is non-nil whenever only selector errors occurred.
func (p *HTMLParser) Parse(htmlContent []byte, opts Options) (*model.PageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base := p.documentBase(doc)

	record := &model.PageRecord{
		URL:         p.baseURL.String(),
		Title:       extractTitle(doc),
		Headings:    collectText(doc.Find("h1, h2, h3, h4, h5, h6")),
		Paragraphs:  collectText(doc.Find("p")),
		Links:       extractLinks(doc, base),
		Images:      extractImages(doc, base),
		Tables:      extractTables(doc),
		CodeBlocks:  extractCodeBlocks(doc),
		ContentHash: fmt.Sprintf("%x", sha256.Sum256(htmlContent)),
	}

	if opts.WantMetadata {
		record.Metadata = extractMetadata(doc, base)
	}

	var selectorErrs []error
	record.CustomSelectors, selectorErrs = applySelectors(doc, opts.Selectors)

	return record, errors.Join(selectorErrs...)
}

// documentBase honours <base href> when it resolves to a crawlable URL.
func (p *HTMLParser) documentBase(doc *goquery.Document) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return p.baseURL
	}
	resolved, err := frontier.Canonicalize(p.baseURL, href)
	if err != nil {
		return p.baseURL
	}
	return resolved
}

func extractTitle(doc *goquery.Document) *string {
	title := doc.Find("title").First()
	if title.Length() == 0 {
		return nil
	}
	return model.StringPtr(strings.TrimSpace(title.Text()))
}

// collectText returns the trimmed, non-empty text of each selected element.
func collectText(sel *goquery.Selection) []string {
	texts := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

func extractLinks(doc *goquery.Document, base *url.URL) []model.Link {
	links := []model.Link{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target, err := frontier.Canonicalize(base, href)
		if err != nil {
			slog.Debug("Skipping link", "href", href, "error", err)
			return
		}
		links = append(links, model.Link{
			Text: strings.TrimSpace(s.Text()),
			URL:  target.String(),
		})
	})
	return links
}

func extractImages(doc *goquery.Document, base *url.URL) []model.Image {
	images := []model.Image{}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		target, err := frontier.Canonicalize(base, src)
		if err != nil {
			slog.Debug("Skipping image", "src", src, "error", err)
			return
		}
		images = append(images, model.Image{
			Alt: s.AttrOr("alt", ""),
			Src: target.String(),
		})
	})
	return images
}

// applySelectors evaluates each custom selector in order.
func applySelectors(doc *goquery.Document, selectors []string) ([]model.SelectorResult, []error) {
	if len(selectors) == 0 {
		return nil, nil
	}

	results := make([]model.SelectorResult, 0, len(selectors))
	var errs []error
	for _, selector := range selectors {
		result := model.SelectorResult{Selector: selector, Matches: []string{}}

		compiled, err := cascadia.Compile(selector)
		if err != nil {
			errs = append(errs, &InvalidSelectorError{Selector: selector, Err: err})
			results = append(results, result)
			continue
		}

		result.Matches = collectText(doc.FindMatcher(compiled))
		slog.Debug("Custom selector matched", "selector", selector, "matches", len(result.Matches))
		results = append(results, result)
	}
	return results, errs
}
