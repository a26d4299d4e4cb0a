// Package config provides configuration management for scrapeline.
// It defines the run configuration, default values, validation and the
// helpers that turn raw flag values into typed settings.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var validFormats = []string{"json", "csv", "text", "txt", "markdown", "md"}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
	File   string `mapstructure:"file" yaml:"file"`     // Rotating log file, empty for stderr only
}

// ScrapeConfig holds the configuration of one run
type ScrapeConfig struct {
	// Input
	URLs    []string `mapstructure:"urls" yaml:"urls"`         // Seed URLs
	URLFile string   `mapstructure:"url_file" yaml:"url_file"` // File with one URL per line

	// Fetching
	Timeout   int      `mapstructure:"timeout" yaml:"timeout"`       // Request timeout in seconds
	Delay     int      `mapstructure:"delay" yaml:"delay"`           // Delay between requests in milliseconds
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"` // HTTP User-Agent header
	Proxy     string   `mapstructure:"proxy" yaml:"proxy"`           // Proxy URL
	Headers   []string `mapstructure:"headers" yaml:"headers"`       // Custom headers in 'Name: Value' form

	// Crawling
	Crawl       bool   `mapstructure:"crawl" yaml:"crawl"`               // Follow links
	MaxDepth    int    `mapstructure:"max_depth" yaml:"max_depth"`       // Maximum link distance from a seed
	MaxPages    int    `mapstructure:"max_pages" yaml:"max_pages"`       // Maximum number of records
	DomainScope string `mapstructure:"domain_scope" yaml:"domain_scope"` // host or site

	// Extraction
	Selectors []string `mapstructure:"selectors" yaml:"selectors"` // Custom CSS selectors
	Metadata  bool     `mapstructure:"metadata" yaml:"metadata"`   // Extract meta tags

	// Output
	Format        string `mapstructure:"format" yaml:"format"`                   // json, csv, text or markdown
	Output        string `mapstructure:"output" yaml:"output"`                   // Output file, or prefix with OutputPerPage
	OutputPerPage bool   `mapstructure:"output_per_page" yaml:"output_per_page"` // One file per record
	DatabasePath  string `mapstructure:"database_path" yaml:"database_path"`     // Optional SQLite archive

	// Logging
	Verbose bool      `mapstructure:"verbose" yaml:"verbose"`
	Quiet   bool      `mapstructure:"quiet" yaml:"quiet"`
	Log     LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *ScrapeConfig {
	return &ScrapeConfig{
		Timeout:     30,
		Delay:       1000,
		UserAgent:   DefaultUserAgent,
		MaxDepth:    2,
		MaxPages:    10,
		DomainScope: "host",
		Format:      "json",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks if the configuration is valid
func (c *ScrapeConfig) Validate() error {
	if len(c.URLs) == 0 {
		return ErrNoSeedURLs
	}

	if !isValidFormat(c.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}

	switch c.DomainScope {
	case "host", "site":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDomainScope, c.DomainScope)
	}

	if c.OutputPerPage && c.Output == "" {
		return ErrOutputPerPageNeedsOutput
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}

	if _, err := ParseHeaders(c.Headers); err != nil {
		return err
	}

	return nil
}

// RequestTimeout returns the timeout as a duration
func (c *ScrapeConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RequestDelay returns the delay as a duration
func (c *ScrapeConfig) RequestDelay() time.Duration {
	return time.Duration(c.Delay) * time.Millisecond
}

// LogLevel resolves the effective log level. An explicit level other than
// the default wins over --verbose and --quiet.
func (c *ScrapeConfig) LogLevel() string {
	level := strings.ToLower(c.Log.Level)
	if level != "" && level != "info" {
		return level
	}
	switch {
	case c.Verbose:
		return "debug"
	case c.Quiet:
		return "error"
	default:
		return "info"
	}
}

// LoadURLFile appends the URLs of URLFile to URLs.
func (c *ScrapeConfig) LoadURLFile() error {
	if c.URLFile == "" {
		return nil
	}
	urls, err := ReadURLFile(c.URLFile)
	if err != nil {
		return err
	}
	c.URLs = append(c.URLs, urls...)
	return nil
}

// ReadURLFile reads one URL per line. Blank lines and lines starting with
// '#' are skipped; lines that are not absolute URLs are skipped with a warning.
func ReadURLFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file '%s': %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if u, err := url.Parse(line); err != nil || u.Scheme == "" || u.Host == "" {
			slog.Warn("Skipping invalid URL", "file", path, "line", lineNum, "url", line)
			continue
		}

		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file '%s': %w", path, err)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("%w '%s'", ErrNoURLsInFile, path)
	}

	slog.Info("Loaded URLs from file", "count", len(urls), "file", path)
	return urls, nil
}

// ParseHeaders converts 'Name: Value' strings into a header map. Later
// entries override earlier ones with the same name.
func ParseHeaders(headers []string) (map[string]string, error) {
	result := make(map[string]string, len(headers))
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("%w: %q (expected 'Name: Value')", ErrInvalidHeader, h)
		}
		result[name] = strings.TrimSpace(value)
	}
	return result, nil
}

func isValidFormat(format string) bool {
	format = strings.ToLower(format)
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
