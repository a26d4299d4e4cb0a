package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/masahif/scrapeline/internal/config"
	"github.com/masahif/scrapeline/internal/crawler"
	"github.com/masahif/scrapeline/internal/model"
	"github.com/masahif/scrapeline/internal/storage"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// runCommand executes a fresh root command and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	if args == nil {
		// nil makes cobra fall back to os.Args
		args = []string{}
	}

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<html><head><title>Home</title>
				<meta name="description" content="Home page"></head><body>
				<h1>Welcome</h1><p>Intro</p>
				<a href="/about">About</a>
				<a href="https://elsewhere.example.com/">Elsewhere</a>
				<span class="tag">go</span><span class="tag">web</span>
			</body></html>`))
		case "/about":
			_, _ = w.Write([]byte(`<html><head><title>About</title></head><body>
				<h1>About us</h1><a href="/">Home</a>
			</body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSetVersionInfo(t *testing.T) {
	version := "1.2.3"
	buildTime := "2023-12-01T10:00:00Z"

	SetVersionInfo(version, buildTime)

	expected := "1.2.3 (built 2023-12-01T10:00:00Z)"
	if rootCmd.Version != expected {
		t.Errorf("Expected version %s, got %s", expected, rootCmd.Version)
	}
}

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "scrapeline [URLs...]" {
		t.Errorf("Expected use 'scrapeline [URLs...]', got %s", rootCmd.Use)
	}

	if rootCmd.RunE == nil {
		t.Error("RunE should be set")
	}
}

func TestFlagBinding(t *testing.T) {
	flags := newRootCmd().Flags()

	expectedFlags := map[string]string{
		"format":          "f",
		"timeout":         "t",
		"user-agent":      "u",
		"proxy":           "p",
		"selector":        "s",
		"verbose":         "v",
		"quiet":           "q",
		"delay":           "d",
		"output":          "o",
		"header":          "H",
		"crawl":           "",
		"max-depth":       "",
		"max-pages":       "",
		"metadata":        "",
		"url-file":        "",
		"output-per-page": "",
		"domain-scope":    "",
		"database":        "",
		"show-config":     "",
		"log-level":       "",
		"log-format":      "",
		"log-file":        "",
	}

	for name, shorthand := range expectedFlags {
		flag := flags.Lookup(name)
		if flag == nil {
			t.Errorf("Expected flag %s to be defined", name)
			continue
		}
		if flag.Shorthand != shorthand {
			t.Errorf("Flag %s: expected shorthand %q, got %q", name, shorthand, flag.Shorthand)
		}
	}

	if newRootCmd().PersistentFlags().Lookup("config") == nil {
		t.Error("Expected persistent flag 'config' to be defined")
	}
}

func TestExecuteHelp(t *testing.T) {
	if _, err := runCommand(t, "--help"); err != nil {
		t.Errorf("Help should not return an error, got %v", err)
	}
}

func TestNoURLs(t *testing.T) {
	_, err := runCommand(t)
	if !errors.Is(err, config.ErrNoSeedURLs) {
		t.Errorf("Expected ErrNoSeedURLs, got %v", err)
	}
}

func TestInvalidFlagCombination(t *testing.T) {
	_, err := runCommand(t, "https://example.com", "--output-per-page")
	if !errors.Is(err, config.ErrOutputPerPageNeedsOutput) {
		t.Errorf("Expected ErrOutputPerPageNeedsOutput, got %v", err)
	}

	_, err = runCommand(t, "https://example.com", "-f", "xml")
	if !errors.Is(err, config.ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}

	_, err = runCommand(t, "https://example.com", "-H", "broken")
	if !errors.Is(err, config.ErrInvalidHeader) {
		t.Errorf("Expected ErrInvalidHeader, got %v", err)
	}
}

func TestShowConfig(t *testing.T) {
	out, err := runCommand(t, "https://example.com", "--show-config", "--max-pages", "7", "-s", "h1, h2")
	if err != nil {
		t.Fatalf("show-config failed: %v", err)
	}

	for _, want := range []string{"# Current Scrapeline Configuration", "max_pages: 7", "format: json", "- https://example.com", "- h1, h2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "scrapeline.yml")
	content := `
format: csv
max_pages: 3
delay: 0
selectors:
  - ".price"
log:
  level: warn
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	out, err := runCommand(t, "--config", configFile, "--show-config", "https://example.com")
	if err != nil {
		t.Fatalf("show-config failed: %v", err)
	}

	for _, want := range []string{"format: csv", "max_pages: 3", "delay: 0", "- .price", "level: warn"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	// Flags win over the file
	out, err = runCommand(t, "--config", configFile, "--show-config", "-f", "text", "https://example.com")
	if err != nil {
		t.Fatalf("show-config failed: %v", err)
	}
	if !strings.Contains(out, "format: text") {
		t.Errorf("Flag should override config file:\n%s", out)
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := runCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yml"), "https://example.com")
	if err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SL_FORMAT", "markdown")
	t.Setenv("SL_MAX_DEPTH", "4")

	out, err := runCommand(t, "--show-config", "https://example.com")
	if err != nil {
		t.Fatalf("show-config failed: %v", err)
	}
	if !strings.Contains(out, "format: markdown") || !strings.Contains(out, "max_depth: 4") {
		t.Errorf("Environment should override defaults:\n%s", out)
	}
}

func TestScrapeToStdout(t *testing.T) {
	server := newTestSite(t)

	out, err := runCommand(t, server.URL, "-d", "0", "--metadata", "-s", ".tag")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var records []model.PageRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("Output is not a JSON array: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record in single mode, got %d", len(records))
	}

	rec := records[0]
	if rec.TitleOrEmpty() != "Home" || rec.StatusCode != 200 {
		t.Errorf("Unexpected record %+v", rec)
	}
	if rec.Metadata == nil || rec.Metadata.Description == nil || *rec.Metadata.Description != "Home page" {
		t.Errorf("Expected metadata, got %+v", rec.Metadata)
	}
	if len(rec.CustomSelectors) != 1 || strings.Join(rec.CustomSelectors[0].Matches, ",") != "go,web" {
		t.Errorf("Unexpected selector results %+v", rec.CustomSelectors)
	}
}

func TestCrawlToFile(t *testing.T) {
	server := newTestSite(t)
	output := filepath.Join(t.TempDir(), "out.csv")

	out, err := runCommand(t, server.URL, "--crawl", "-d", "0", "-f", "csv", "-o", output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "" {
		t.Errorf("Nothing should go to stdout when -o is set, got %q", out)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}
	// Header, home and about; the external link is not followed
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][0] != server.URL+"/" || rows[2][0] != server.URL+"/about" {
		t.Errorf("Unexpected crawl order %v", rows)
	}
	if rows[2][7] != "1" {
		t.Errorf("Expected depth 1 for /about, got %s", rows[2][7])
	}
}

func TestOutputPerPage(t *testing.T) {
	server := newTestSite(t)
	prefix := filepath.Join(t.TempDir(), "page")

	_, err := runCommand(t, server.URL, server.URL+"/about", "-d", "0", "-f", "text", "-o", prefix, "--output-per-page")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, want := range []string{"Title: Home", "Title: About"} {
		name := prefix + []string{"_001.txt", "_002.txt"}[i]
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("Missing %s: %v", name, err)
		}
		if !strings.Contains(string(data), want) {
			t.Errorf("%s: expected %q, got:\n%s", name, want, data)
		}
	}
}

func TestQuietSuppressesStdout(t *testing.T) {
	server := newTestSite(t)

	out, err := runCommand(t, server.URL, "-d", "0", "-q")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "" {
		t.Errorf("Quiet mode should not print results, got %q", out)
	}
}

func TestUnreachableSeed(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	out, err := runCommand(t, target, "-d", "0", "-t", "2")
	if !errors.Is(err, crawler.ErrSeedUnreachable) {
		t.Fatalf("Expected ErrSeedUnreachable, got %v", err)
	}

	// The failed record is still written
	var records []model.PageRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("Output is not a JSON array: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].StatusCode != 0 || records[0].Error == "" {
		t.Errorf("Expected one failed record, got %+v", records)
	}
}

func TestInvalidSeedOnly(t *testing.T) {
	_, err := runCommand(t, "not a url", "-d", "0")
	if !errors.Is(err, crawler.ErrNoValidSeeds) {
		t.Errorf("Expected ErrNoValidSeeds, got %v", err)
	}
}

func TestURLFile(t *testing.T) {
	server := newTestSite(t)
	urlFile := filepath.Join(t.TempDir(), "urls.txt")
	content := "# seeds\n" + server.URL + "/about\n\n"
	if err := os.WriteFile(urlFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write URL file: %v", err)
	}

	out, err := runCommand(t, "--url-file", urlFile, "-d", "0", "-f", "csv")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out, server.URL+"/about,200,About") {
		t.Errorf("Expected the file URL to be scraped, got:\n%s", out)
	}
}

func TestDatabaseArchive(t *testing.T) {
	server := newTestSite(t)
	dbPath := filepath.Join(t.TempDir(), "data", "runs.db")

	if _, err := runCommand(t, server.URL, "--crawl", "-d", "0", "-q", "--database", dbPath); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	runID, err := store.GetMeta(ctx, "last_run_id")
	if err != nil || runID == "" {
		t.Fatalf("Expected last_run_id, got %q, %v", runID, err)
	}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if run.State != storage.RunCompleted || run.Mode != "crawl" || run.PagesFetched != 2 {
		t.Errorf("Unexpected run %+v", run)
	}

	records, err := store.LoadRecords(ctx, runID)
	if err != nil {
		t.Fatalf("Failed to load records: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 archived records, got %d", len(records))
	}
}

func TestRunState(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, storage.RunCompleted},
		{crawler.ErrSeedUnreachable, storage.RunCompleted},
		{crawler.ErrInterrupted, storage.RunInterrupted},
		{crawler.ErrNoValidSeeds, storage.RunAborted},
	}

	for _, tt := range tests {
		if got := runState(tt.err); got != tt.want {
			t.Errorf("runState(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
