package crawler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/masahif/scrapeline/internal/frontier"
	"github.com/masahif/scrapeline/internal/model"
	"github.com/masahif/scrapeline/internal/parser"
)

// pageProcessor fetches one frontier entry and turns the response into a
// page record. It never fails: problems are recorded on the result.
type pageProcessor struct {
	fetcher Fetcher
	extract parser.Options
}

func newPageProcessor(fetcher Fetcher, extract parser.Options) *pageProcessor {
	return &pageProcessor{fetcher: fetcher, extract: extract}
}

// Process processes a single page
func (p *pageProcessor) Process(ctx context.Context, entry frontier.Entry) *PageResult {
	result := &PageResult{
		Record: model.NewPageRecord(entry.URL, entry.Depth),
		Fetch:  FetchInfo{FinalURL: entry.URL},
	}

	resp, err := p.fetcher.Fetch(ctx, entry.URL)
	result.Fetch.FetchedAt = time.Now().UTC()
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			result.Fetch.ErrorKind = transportErr.Kind
		} else {
			result.Fetch.ErrorKind = KindRequest
		}
		result.Record.Error = err.Error()
		slog.Warn("Fetch failed", "url", entry.URL, "kind", result.Fetch.ErrorKind, "error", err)
		return result
	}

	if resp.FinalURL != "" {
		result.Fetch.FinalURL = resp.FinalURL
	}
	result.Fetch.ContentType = resp.ContentType
	result.Fetch.ResponseSize = int64(len(resp.Body))
	result.Fetch.TTFB = resp.Metrics.TTFB
	result.Fetch.DownloadTime = resp.Metrics.DownloadTime

	rec := &result.Record
	rec.StatusCode = resp.StatusCode
	if statusErr := ClassifyStatus(resp.StatusCode, entry.URL); statusErr != nil {
		rec.Error = statusErr.Error()
		slog.Warn("Unexpected HTTP status", "url", entry.URL, "status", resp.StatusCode)
	}
	if resp.Truncated {
		rec.AddWarning("response body truncated at size limit")
	}

	if !isHTML(resp.ContentType) || len(resp.Body) == 0 {
		slog.Debug("Skipping HTML parsing", "url", entry.URL, "content_type", resp.ContentType, "status_code", resp.StatusCode)
		return result
	}

	htmlParser, err := parser.NewHTMLParser(result.Fetch.FinalURL)
	if err != nil {
		rec.AddWarning("could not parse page: " + err.Error())
		return result
	}

	parsed, err := htmlParser.Parse(resp.Body, p.extract)
	if parsed == nil {
		rec.AddWarning("could not parse page: " + err.Error())
		return result
	}
	for _, e := range unwrapJoined(err) {
		slog.Warn("Custom selector failed", "url", entry.URL, "error", e)
		rec.AddWarning(e.Error())
	}

	rec.Title = parsed.Title
	rec.Headings = parsed.Headings
	rec.Paragraphs = parsed.Paragraphs
	rec.Links = parsed.Links
	rec.Images = parsed.Images
	rec.Tables = parsed.Tables
	rec.CodeBlocks = parsed.CodeBlocks
	rec.Metadata = parsed.Metadata
	rec.CustomSelectors = parsed.CustomSelectors
	rec.ContentHash = parsed.ContentHash

	if reason := parser.DetectAntiBot(resp.Body, rec.TitleOrEmpty()); reason != "" {
		slog.Warn("Anti-bot protection detected", "url", entry.URL, "reason", reason)
		rec.AddWarning("Anti-bot protection detected: " + reason)
	}

	return result
}

// isHTML reports whether a response should be extracted. A missing
// content type is treated as HTML.
func isHTML(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}

// unwrapJoined flattens an errors.Join result.
func unwrapJoined(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
