package crawler

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/dustin/go-humanize"
	"golang.org/x/net/html/charset"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 10 * 1024 * 1024
	defaultMaxRedirects = 10
)

// Options controls HTTP fetching behaviour.
type Options struct {
	UserAgent    string
	Headers      map[string]string // Extra request headers, applied last
	Timeout      time.Duration     // Per-request timeout
	ProxyURL     string            // Optional http, https or socks5 proxy
	MaxBodyBytes int64             // Larger bodies are truncated
	MaxRedirects int
}

// HTTPClient handles HTTP requests with performance metrics
type HTTPClient struct {
	client       *http.Client
	userAgent    string
	headers      map[string]string
	maxBodyBytes int64
}

// HTTPMetrics contains performance metrics for an HTTP request
type HTTPMetrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
	DNSLookup    time.Duration // DNS lookup time
	TCPConnect   time.Duration // TCP connection time
	TLSHandshake time.Duration // TLS handshake time
}

// HTTPResponse contains the response and metrics
type HTTPResponse struct {
	StatusCode      int
	Headers         http.Header
	Body            []byte // Decoded and converted to UTF-8 for text content
	ContentType     string
	ContentLength   int64
	Server          string
	LastModified    time.Time
	ContentEncoding string
	Metrics         HTTPMetrics
	FinalURL        string // After following redirects
	Truncated       bool   // Body was cut at the size cap
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxy := strings.TrimSpace(opts.ProxyURL); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("parse proxy url: %q must include scheme and host", proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		slog.Debug("Using proxy", "proxy", proxyURL.Redacted())
	}

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPClient{
		client:       client,
		userAgent:    opts.UserAgent,
		headers:      headers,
		maxBodyBytes: opts.MaxBodyBytes,
	}, nil
}

// Fetch performs an HTTP GET request with performance tracking.
// Failures before a complete response is read are returned as *TransportError.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{Kind: KindRequest, URL: rawURL, Err: err}
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for name, value := range h.headers {
		req.Header.Set(name, value)
	}

	// Setup performance tracking
	var metrics HTTPMetrics
	var dnsStart, connectStart, tlsStart, firstByteTime time.Time

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			metrics.DNSLookup = time.Since(dnsStart)
		},
		ConnectStart: func(network, addr string) {
			connectStart = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			metrics.TCPConnect = time.Since(connectStart)
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			metrics.TLSHandshake = time.Since(tlsStart)
		},
		GotFirstResponseByte: func() {
			firstByteTime = time.Now()
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	startTime := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !firstByteTime.IsZero() {
		metrics.TTFB = firstByteTime.Sub(startTime)
	}

	body, truncated, err := h.readBody(resp)
	if err != nil {
		kind := transportKind(err)
		if kind == KindRequest {
			kind = KindBody
		}
		return nil, &TransportError{Kind: kind, URL: rawURL, Err: err}
	}

	metrics.DownloadTime = time.Since(startTime)

	contentType := resp.Header.Get("Content-Type")
	body = toUTF8(body, contentType)

	var lastModified time.Time
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			lastModified = t
		}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if truncated {
		slog.Warn("Response body truncated", "url", rawURL, "limit", humanize.Bytes(uint64(h.maxBodyBytes)))
	}
	slog.Debug("Fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", humanize.Bytes(uint64(len(body))),
		"ttfb", metrics.TTFB,
		"download_time", metrics.DownloadTime)

	return &HTTPResponse{
		StatusCode:      resp.StatusCode,
		Headers:         resp.Header,
		Body:            body,
		ContentType:     contentType,
		ContentLength:   resp.ContentLength,
		Server:          resp.Header.Get("Server"),
		LastModified:    lastModified,
		ContentEncoding: resp.Header.Get("Content-Encoding"),
		Metrics:         metrics,
		FinalURL:        finalURL,
		Truncated:       truncated,
	}, nil
}

// readBody decodes the content encoding and reads at most maxBodyBytes.
func (h *HTTPClient) readBody(resp *http.Response) ([]byte, bool, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("gzip decode: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer func() { _ = fl.Close() }()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, h.maxBodyBytes+1))
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > h.maxBodyBytes {
		return body[:h.maxBodyBytes], true, nil
	}
	return body, false, nil
}

// toUTF8 converts text bodies declared (or sniffed) in another charset.
// Bodies that cannot be converted are returned unchanged.
func toUTF8(body []byte, contentType string) []byte {
	if len(body) == 0 || !isTextContent(contentType) {
		return body
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	converted, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return converted
}

func isTextContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" ||
		strings.HasPrefix(ct, "text/") ||
		strings.HasPrefix(ct, "application/xhtml+xml") ||
		strings.HasPrefix(ct, "application/xml")
}

// Close closes the HTTP client
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
