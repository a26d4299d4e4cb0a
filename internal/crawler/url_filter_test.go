package crawler

import (
	"net/url"
	"testing"
)

func TestInScope(t *testing.T) {
	seeds := []*url.URL{
		mustURL(t, "https://example.com/"),
		mustURL(t, "http://docs.example.org/start"),
	}

	tests := []struct {
		name     string
		url      string
		hostWant bool
		siteWant bool
	}{
		{"same host", "https://example.com/page", true, true},
		{"other scheme same host", "http://example.com/page", true, true},
		{"host with port", "https://example.com:8443/page", true, true},
		{"second seed host", "https://docs.example.org/a", true, true},
		{"subdomain of first seed", "https://blog.example.com/", false, true},
		{"sibling of second seed", "https://www.example.org/", false, true},
		{"unrelated host", "https://other.com/", false, false},
		{"lookalike suffix", "https://notexample.com/", false, false},
	}

	hostEngine := NewEngine(EngineConfig{Mode: ModeCrawl, Scope: ScopeHost}, newMockFetcher())
	siteEngine := NewEngine(EngineConfig{Mode: ModeCrawl, Scope: ScopeSite}, newMockFetcher())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := mustURL(t, tt.url)
			if got := hostEngine.inScope(target, seeds); got != tt.hostWant {
				t.Errorf("host scope inScope(%s) = %v, want %v", tt.url, got, tt.hostWant)
			}
			if got := siteEngine.inScope(target, seeds); got != tt.siteWant {
				t.Errorf("site scope inScope(%s) = %v, want %v", tt.url, got, tt.siteWant)
			}
		})
	}
}

func TestDefaultScopeIsHost(t *testing.T) {
	engine := NewEngine(EngineConfig{Mode: ModeCrawl}, newMockFetcher())
	if engine.config.Scope != ScopeHost {
		t.Errorf("Expected default scope %q, got %q", ScopeHost, engine.config.Scope)
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse %q: %v", raw, err)
	}
	return u
}
