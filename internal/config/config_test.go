package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Format != "json" {
		t.Errorf("Expected format json, got %s", cfg.Format)
	}

	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("Expected request timeout 30s, got %v", cfg.RequestTimeout())
	}

	if cfg.RequestDelay() != 1*time.Second {
		t.Errorf("Expected request delay 1s, got %v", cfg.RequestDelay())
	}

	if cfg.MaxDepth != 2 {
		t.Errorf("Expected max depth 2, got %d", cfg.MaxDepth)
	}

	if cfg.MaxPages != 10 {
		t.Errorf("Expected max pages 10, got %d", cfg.MaxPages)
	}

	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent, got %s", cfg.UserAgent)
	}

	if cfg.DomainScope != "host" {
		t.Errorf("Expected domain scope host, got %s", cfg.DomainScope)
	}

	if cfg.Crawl || cfg.Metadata || cfg.OutputPerPage {
		t.Errorf("Expected boolean options to default to false")
	}

	if cfg.DatabasePath != "" {
		t.Errorf("Expected no database by default, got %s", cfg.DatabasePath)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *ScrapeConfig {
		cfg := DefaultConfig()
		cfg.URLs = []string{"https://example.com"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ScrapeConfig)
		wantErr error
	}{
		{"valid config", func(*ScrapeConfig) {}, nil},
		{"no urls", func(c *ScrapeConfig) { c.URLs = nil }, ErrNoSeedURLs},
		{"unknown format", func(c *ScrapeConfig) { c.Format = "xml" }, ErrInvalidFormat},
		{"uppercase format", func(c *ScrapeConfig) { c.Format = "CSV" }, nil},
		{"markdown format", func(c *ScrapeConfig) { c.Format = "md" }, nil},
		{"zero timeout", func(c *ScrapeConfig) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative delay", func(c *ScrapeConfig) { c.Delay = -1 }, ErrInvalidDelay},
		{"zero delay", func(c *ScrapeConfig) { c.Delay = 0 }, nil},
		{"negative depth", func(c *ScrapeConfig) { c.MaxDepth = -1 }, ErrInvalidMaxDepth},
		{"zero depth", func(c *ScrapeConfig) { c.MaxDepth = 0 }, nil},
		{"zero pages", func(c *ScrapeConfig) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"bad scope", func(c *ScrapeConfig) { c.DomainScope = "world" }, ErrInvalidDomainScope},
		{"site scope", func(c *ScrapeConfig) { c.DomainScope = "site" }, nil},
		{"per page without output", func(c *ScrapeConfig) { c.OutputPerPage = true }, ErrOutputPerPageNeedsOutput},
		{"per page with output", func(c *ScrapeConfig) { c.OutputPerPage = true; c.Output = "page" }, nil},
		{"bad log format", func(c *ScrapeConfig) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"bad header", func(c *ScrapeConfig) { c.Headers = []string{"NoColon"} }, ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		verbose bool
		quiet   bool
		want    string
	}{
		{"default", "info", false, false, "info"},
		{"verbose", "info", true, false, "debug"},
		{"quiet", "info", false, true, "error"},
		{"verbose wins over quiet", "", true, true, "debug"},
		{"explicit level wins", "warn", true, false, "warn"},
		{"explicit level case", "DEBUG", false, true, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Log.Level = tt.level
			cfg.Verbose = tt.verbose
			cfg.Quiet = tt.quiet

			if got := cfg.LogLevel(); got != tt.want {
				t.Errorf("LogLevel() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReadURLFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("skips comments blanks and invalid lines", func(t *testing.T) {
		path := filepath.Join(dir, "urls.txt")
		content := "# seeds\nhttps://example.com\n\n   https://example.org/page  \nnot a url\n#https://skipped.example\nftp://files.example.com/\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write URL file: %v", err)
		}

		urls, err := ReadURLFile(path)
		if err != nil {
			t.Fatalf("ReadURLFile failed: %v", err)
		}

		want := []string{"https://example.com", "https://example.org/page", "ftp://files.example.com/"}
		if len(urls) != len(want) {
			t.Fatalf("Expected %d URLs, got %v", len(want), urls)
		}
		for i := range want {
			if urls[i] != want[i] {
				t.Errorf("URL %d: expected %s, got %s", i, want[i], urls[i])
			}
		}
	})

	t.Run("no valid urls", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		if err := os.WriteFile(path, []byte("# only comments\n\nnope\n"), 0600); err != nil {
			t.Fatalf("Failed to write URL file: %v", err)
		}

		if _, err := ReadURLFile(path); !errors.Is(err, ErrNoURLsInFile) {
			t.Errorf("Expected ErrNoURLsInFile, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadURLFile(filepath.Join(dir, "missing.txt")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestLoadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte("https://example.org\n"), 0600); err != nil {
		t.Fatalf("Failed to write URL file: %v", err)
	}

	cfg := DefaultConfig()
	cfg.URLs = []string{"https://example.com"}
	cfg.URLFile = path

	if err := cfg.LoadURLFile(); err != nil {
		t.Fatalf("LoadURLFile failed: %v", err)
	}
	if len(cfg.URLs) != 2 || cfg.URLs[1] != "https://example.org" {
		t.Errorf("Expected file URLs appended, got %v", cfg.URLs)
	}
}

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders([]string{
		"Accept: application/json",
		"X-Token:  abc:def ",
		"X-Empty:",
		"Accept: text/html",
	})
	if err != nil {
		t.Fatalf("ParseHeaders failed: %v", err)
	}

	if headers["Accept"] != "text/html" {
		t.Errorf("Later header should win, got %q", headers["Accept"])
	}
	if headers["X-Token"] != "abc:def" {
		t.Errorf("Value should keep inner colons, got %q", headers["X-Token"])
	}
	if v, ok := headers["X-Empty"]; !ok || v != "" {
		t.Errorf("Expected empty header value, got %q (present %v)", v, ok)
	}

	for _, bad := range []string{"NoColon", ": value", "Bad Name: v"} {
		if _, err := ParseHeaders([]string{bad}); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("ParseHeaders(%q) expected ErrInvalidHeader, got %v", bad, err)
		}
	}
}
