// Package frontier provides URL canonicalization and the breadth-first
// frontier (pending queue plus visited set) used by the crawl engine.
// URLs are canonicalized before they are queued so that the same resource
// written differently is fetched only once.
package frontier

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInvalidURL is returned when a URL cannot be turned into an absolute,
// crawlable http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

// defaultPorts maps schemes to their default port strings.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Canonicalize resolves raw against base and normalizes the result for use
// as a de-duplication key: the fragment is dropped, scheme and host are
// lowercased, the default port is removed and an empty path becomes "/".
// base may be nil when raw is absolute.
func Canonicalize(base *url.URL, raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	resolved := ref
	if !ref.IsAbs() {
		if base == nil {
			return nil, fmt.Errorf("%w: %q is relative and no base is set", ErrInvalidURL, raw)
		}
		resolved = base.ResolveReference(ref)
	}

	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidURL, raw, resolved.Scheme)
	}
	if resolved.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidURL, raw)
	}

	out := *resolved
	out.Scheme = scheme
	out.Host = normalizeHost(&out)
	out.Fragment = ""
	out.RawFragment = ""
	out.User = nil
	if out.Path == "" {
		out.Path = "/"
		out.RawPath = ""
	}

	return &out, nil
}

// CanonicalizeString canonicalizes an absolute URL string.
func CanonicalizeString(raw string) (string, error) {
	u, err := Canonicalize(nil, raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// normalizeHost lowercases the hostname and removes the scheme's default port.
func normalizeHost(u *url.URL) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()

	if strings.Contains(hostname, ":") {
		// IPv6 literal
		hostname = "[" + hostname + "]"
	}

	if port == "" || defaultPorts[u.Scheme] == port {
		return hostname
	}
	return hostname + ":" + port
}

// SameHost reports whether a and b have the same hostname. Ports and
// schemes are not compared.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

// SameSite reports whether a and b share a registrable domain (eTLD+1),
// so that "www.example.com" and "docs.example.com" match. Hosts without
// a registrable domain (IP addresses, localhost) fall back to SameHost.
func SameSite(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	if net.ParseIP(a.Hostname()) != nil || net.ParseIP(b.Hostname()) != nil {
		return SameHost(a, b)
	}
	ra, errA := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(a.Hostname()))
	rb, errB := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(b.Hostname()))
	if errA != nil || errB != nil {
		return SameHost(a, b)
	}
	return ra == rb
}
