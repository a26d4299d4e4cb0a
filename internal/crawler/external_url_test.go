package crawler

import (
	"context"
	"net/url"
	"testing"
)

func TestCrawlSkipsExternalLinks(t *testing.T) {
	fetcher := newMockFetcher().
		HTML("https://example.com/", linksPage("Home", "/a", "/b", "http://other.example/c"))
	fetcher.HTML("https://example.com/a", linksPage("A"))
	fetcher.HTML("https://example.com/b", linksPage("B"))
	fetcher.HTML("http://other.example/c", linksPage("C"))

	engine := NewEngine(EngineConfig{Mode: ModeCrawl, MaxDepth: 1, MaxPages: 10}, fetcher)
	records, err := engine.Run(context.Background(), []string{"https://example.com/"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []struct {
		url   string
		depth int
	}{
		{"https://example.com/", 0},
		{"https://example.com/a", 1},
		{"https://example.com/b", 1},
	}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for i, w := range want {
		if records[i].URL != w.url || records[i].Depth != w.depth {
			t.Errorf("Record %d: expected %s at depth %d, got %s at depth %d",
				i, w.url, w.depth, records[i].URL, records[i].Depth)
		}
	}

	for _, req := range fetcher.Requests() {
		if req == "http://other.example/c" {
			t.Errorf("External URL was fetched")
		}
	}

	// The external link is still reported on the seed page.
	found := false
	for _, link := range records[0].Links {
		if link.URL == "http://other.example/c" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected external link in seed record links")
	}
}

func TestCrawlRecordsStayOnSeedHosts(t *testing.T) {
	fetcher := newMockFetcher().
		HTML("https://example.com/", linksPage("Home", "/a", "https://blog.example.com/", "https://cdn.other.com/x"))
	fetcher.HTML("https://example.com/a", linksPage("A", "https://EXAMPLE.com/b#frag", "https://evil.com/"))
	fetcher.HTML("https://example.com/b", linksPage("B"))

	engine := NewEngine(EngineConfig{Mode: ModeCrawl, MaxDepth: 5, MaxPages: 50}, fetcher)
	records, err := engine.Run(context.Background(), []string{"https://example.com/"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, rec := range records {
		u, err := url.Parse(rec.URL)
		if err != nil {
			t.Fatalf("Invalid record URL %q: %v", rec.URL, err)
		}
		if u.Hostname() != "example.com" {
			t.Errorf("Record %s is outside the seed host", rec.URL)
		}
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(records))
	}
}

func TestCrawlSiteScopeFollowsSubdomains(t *testing.T) {
	fetcher := newMockFetcher().
		HTML("https://www.example.com/", linksPage("Home", "https://blog.example.com/", "https://other.com/"))
	fetcher.HTML("https://blog.example.com/", linksPage("Blog"))

	engine := NewEngine(EngineConfig{Mode: ModeCrawl, MaxDepth: 1, MaxPages: 10, Scope: ScopeSite}, fetcher)
	records, err := engine.Run(context.Background(), []string{"https://www.example.com/"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[1].URL != "https://blog.example.com/" {
		t.Errorf("Expected subdomain page, got %s", records[1].URL)
	}
}
