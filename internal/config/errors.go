package config

import "errors"

var (
	// ErrNoSeedURLs is returned when no seed URLs are provided
	ErrNoSeedURLs = errors.New("no URLs provided. Use positional arguments or --url-file to specify URLs")
	// ErrInvalidFormat is returned for an unsupported output format
	ErrInvalidFormat = errors.New("format must be one of json, csv, text, txt, markdown, md")
	// ErrInvalidTimeout is returned when timeout is not greater than 0
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")
	// ErrInvalidDelay is returned when delay is negative
	ErrInvalidDelay = errors.New("delay cannot be negative")
	// ErrInvalidMaxDepth is returned when max_depth is negative
	ErrInvalidMaxDepth = errors.New("max_depth cannot be negative")
	// ErrInvalidMaxPages is returned when max_pages is less than 1
	ErrInvalidMaxPages = errors.New("max_pages must be at least 1")
	// ErrInvalidDomainScope is returned for a domain_scope other than host or site
	ErrInvalidDomainScope = errors.New("domain_scope must be 'host' or 'site'")
	// ErrOutputPerPageNeedsOutput is returned when output_per_page is set without output
	ErrOutputPerPageNeedsOutput = errors.New("--output-per-page requires --output to be specified as a filename prefix")
	// ErrInvalidHeader is returned for a header not in 'Name: Value' form
	ErrInvalidHeader = errors.New("invalid header format")
	// ErrNoURLsInFile is returned when a URL file has no valid URL
	ErrNoURLsInFile = errors.New("no valid URLs found in file")
	// ErrInvalidLogFormat is returned for a log format other than text or json
	ErrInvalidLogFormat = errors.New("log format must be 'text' or 'json'")
)
